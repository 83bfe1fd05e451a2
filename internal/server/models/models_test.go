package models

import (
	"testing"

	"github.com/dmitrijs2005/flightkeeper/internal/common"
	"github.com/dmitrijs2005/flightkeeper/internal/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleFlight() Flight {
	return Flight{
		FlightID:     12,
		Orig:         "EHAM",
		Dest:         "LFPG",
		TimeOut:      1700000000,
		TimeIn:       1700004500,
		AircraftType: "E190",
		Registration: "PH-EZA",
		Name:         "SELF",
		Name2:        "J. Jansen",
		FlightNumber: "KL1233",
		Remarks:      "gusty",
		IsPIC:        true,
		IsPF:         true,
		TimeStamp:    1700005000,
	}
}

func TestFlight_RoundTripCurrentVersion(t *testing.T) {
	f := sampleFlight()

	got, err := DeserializeFlight(f.Serialize(CurrentFlightVersion), CurrentFlightVersion)
	require.NoError(t, err)
	assert.Equal(t, f, got)
}

func TestFlight_Version1DropsNewFields(t *testing.T) {
	f := sampleFlight()

	got, err := DeserializeFlight(f.Serialize(FlightVersion1), FlightVersion1)
	require.NoError(t, err)

	want := f
	want.Name2 = ""
	want.FlightNumber = ""
	assert.Equal(t, want, got)
}

func TestDeserializeFlight_Errors(t *testing.T) {
	v2 := sampleFlight().Serialize(FlightVersion2)

	tests := []struct {
		name    string
		data    []byte
		version int32
	}{
		{"unsupported version", v2, 9},
		{"v2 read as v1 leaves trailing bytes", v2, FlightVersion1},
		{"truncated", v2[:len(v2)-3], FlightVersion2},
		{"empty", nil, FlightVersion2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DeserializeFlight(tt.data, tt.version)
			assert.ErrorIs(t, err, common.ErrorBadData)
		})
	}
}

func TestPackUnpackFlights(t *testing.T) {
	a := sampleFlight()
	b := sampleFlight()
	b.FlightID = 13
	b.IsDeleted = true

	got, err := UnpackFlights(PackFlights([]Flight{a, b}, CurrentFlightVersion), CurrentFlightVersion)
	require.NoError(t, err)
	assert.Equal(t, []Flight{a, b}, got)

	empty, err := UnpackFlights(PackFlights(nil, CurrentFlightVersion), CurrentFlightVersion)
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = UnpackFlights([]byte{0, 0}, CurrentFlightVersion)
	assert.ErrorIs(t, err, common.ErrorBadData)
}

func TestLoginData_RoundTrip(t *testing.T) {
	l := LoginData{Username: "alice", Key: []byte{1, 2, 3}, SchemaVersion: 2}

	got, err := DeserializeLoginData(l.Serialize())
	require.NoError(t, err)
	assert.Equal(t, l, got)

	withEmail := LoginDataWithEmail{LoginData: l, Email: "alice@example.com"}
	got2, err := DeserializeLoginDataWithEmail(withEmail.Serialize())
	require.NoError(t, err)
	assert.Equal(t, withEmail, got2)

	_, err = DeserializeLoginData(withEmail.Serialize())
	assert.ErrorIs(t, err, common.ErrorBadData)
}

func TestDeserializeLoginData_BadInput(t *testing.T) {
	var b wire.Buffer
	b.PutString("alice").PutBytes([]byte{1})

	_, err := DeserializeLoginData(b.Bytes())
	assert.ErrorIs(t, err, common.ErrorBadData)
}

func TestAircraftType_Less(t *testing.T) {
	a := AircraftType{Name: "Embraer 190", ShortName: "E190"}
	b := AircraftType{Name: "Airbus A320", ShortName: "A320"}
	c := AircraftType{Name: "Embraer 190 LR", ShortName: "E190"}

	assert.True(t, b.Less(a))
	assert.False(t, a.Less(b))
	assert.True(t, a.Less(c))
	assert.False(t, a.Less(a))
}

func TestConsensusData_RoundTrip(t *testing.T) {
	c := ConsensusData{
		Registration: "PH-ABC",
		AircraftType: AircraftType{Name: "Boeing 737-800", ShortName: "B738", MultiPilot: true, MultiEngine: true},
		Subtract:     true,
	}

	got, err := DeserializeConsensusData(c.Serialize())
	require.NoError(t, err)
	assert.Equal(t, c, got)

	_, err = DeserializeConsensusData(wire.WrapString("PH-ABC"))
	assert.ErrorIs(t, err, common.ErrorBadData)
}

func TestTypeCounter_RoundTrip(t *testing.T) {
	c := TypeCounter{Type: AircraftType{Name: "Fokker 70", ShortName: "F70"}, Count: -2}

	got, err := DeserializeTypeCounter(c.Serialize())
	require.NoError(t, err)
	assert.Equal(t, c, got)
}

func TestEmailData_RoundTrip(t *testing.T) {
	e := EmailData{EmailID: 77, EmailAddress: "pilot@example.com", Attachment: []byte("id;orig;dest\n")}

	got, err := DeserializeEmailData(e.Serialize())
	require.NoError(t, err)
	assert.Equal(t, e, got)
}

func TestFeedbackData_RoundTrip(t *testing.T) {
	f := FeedbackData{Feedback: "Great app", ContactInfo: "@pilot"}

	got, err := DeserializeFeedbackData(f.Serialize())
	require.NoError(t, err)
	assert.Equal(t, f, got)

	_, err = DeserializeFeedbackData(wire.WrapInt(1))
	assert.ErrorIs(t, err, common.ErrorBadData)
}

func TestIDWithTimestamp_RoundTrip(t *testing.T) {
	m := IDWithTimestamp{FlightID: 4, TimeStamp: 1700000000}

	got, err := DeserializeIDWithTimestamp(m.Serialize())
	require.NoError(t, err)
	assert.Equal(t, m, got)
}
