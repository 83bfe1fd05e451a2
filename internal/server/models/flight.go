package models

import (
	"fmt"

	"github.com/dmitrijs2005/flightkeeper/internal/common"
	"github.com/dmitrijs2005/flightkeeper/internal/wire"
)

// Flight schema versions. Version 1 lacks Name2 and FlightNumber.
const (
	FlightVersion1       int32 = 1
	FlightVersion2       int32 = 2
	CurrentFlightVersion       = FlightVersion2
)

// Flight is one logbook entry. FlightID is unique within a user's logbook;
// TimeStamp is the epoch second the client last modified it.
type Flight struct {
	FlightID     int32
	Orig         string
	Dest         string
	TimeOut      int64
	TimeIn       int64
	AircraftType string
	Registration string
	Name         string
	Name2        string
	FlightNumber string
	Remarks      string
	IsPIC        bool
	IsPF         bool
	IsPlanned    bool
	IsDeleted    bool
	TimeStamp    int64
}

// SupportedFlightVersion reports whether v can be read and written.
func SupportedFlightVersion(v int32) bool {
	return v == FlightVersion1 || v == FlightVersion2
}

// Serialize encodes f in the given schema version. Unsupported versions fall
// back to the current one.
func (f Flight) Serialize(version int32) []byte {
	var b wire.Buffer
	b.PutInt(f.FlightID).
		PutString(f.Orig).
		PutString(f.Dest).
		PutLong(f.TimeOut).
		PutLong(f.TimeIn).
		PutString(f.AircraftType).
		PutString(f.Registration).
		PutString(f.Name).
		PutString(f.Remarks).
		PutBool(f.IsPIC).
		PutBool(f.IsPF).
		PutBool(f.IsPlanned).
		PutBool(f.IsDeleted).
		PutLong(f.TimeStamp)
	if version != FlightVersion1 {
		b.PutString(f.Name2).PutString(f.FlightNumber)
	}
	return b.Bytes()
}

// DeserializeFlight decodes a flight stored in the given schema version. The
// result always has the current in-memory shape.
func DeserializeFlight(data []byte, version int32) (Flight, error) {
	if !SupportedFlightVersion(version) {
		return Flight{}, fmt.Errorf("%w: unsupported flight version %d", common.ErrorBadData, version)
	}

	r := wire.NewReader(data)
	var (
		f   Flight
		err error
	)
	fail := func(field string, err error) (Flight, error) {
		return Flight{}, fmt.Errorf("%w: flight %s: %w", common.ErrorBadData, field, err)
	}

	if f.FlightID, err = r.ReadInt(); err != nil {
		return fail("id", err)
	}
	if f.Orig, err = r.ReadString(); err != nil {
		return fail("orig", err)
	}
	if f.Dest, err = r.ReadString(); err != nil {
		return fail("dest", err)
	}
	if f.TimeOut, err = r.ReadLong(); err != nil {
		return fail("timeOut", err)
	}
	if f.TimeIn, err = r.ReadLong(); err != nil {
		return fail("timeIn", err)
	}
	if f.AircraftType, err = r.ReadString(); err != nil {
		return fail("aircraftType", err)
	}
	if f.Registration, err = r.ReadString(); err != nil {
		return fail("registration", err)
	}
	if f.Name, err = r.ReadString(); err != nil {
		return fail("name", err)
	}
	if f.Remarks, err = r.ReadString(); err != nil {
		return fail("remarks", err)
	}
	if f.IsPIC, err = r.ReadBool(); err != nil {
		return fail("isPIC", err)
	}
	if f.IsPF, err = r.ReadBool(); err != nil {
		return fail("isPF", err)
	}
	if f.IsPlanned, err = r.ReadBool(); err != nil {
		return fail("isPlanned", err)
	}
	if f.IsDeleted, err = r.ReadBool(); err != nil {
		return fail("isDeleted", err)
	}
	if f.TimeStamp, err = r.ReadLong(); err != nil {
		return fail("timeStamp", err)
	}
	if version != FlightVersion1 {
		if f.Name2, err = r.ReadString(); err != nil {
			return fail("name2", err)
		}
		if f.FlightNumber, err = r.ReadString(); err != nil {
			return fail("flightNumber", err)
		}
	}
	if r.Len() != 0 {
		return fail("tail", fmt.Errorf("%d trailing bytes", r.Len()))
	}
	return f, nil
}

// PackFlights serializes flights as one packed list.
func PackFlights(flights []Flight, version int32) []byte {
	items := make([][]byte, len(flights))
	for i, f := range flights {
		items[i] = f.Serialize(version)
	}
	return wire.Pack(items)
}

// UnpackFlights reverses PackFlights.
func UnpackFlights(data []byte, version int32) ([]Flight, error) {
	items, err := wire.Unpack(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrorBadData, err)
	}
	flights := make([]Flight, 0, len(items))
	for _, it := range items {
		f, err := DeserializeFlight(it, version)
		if err != nil {
			return nil, err
		}
		flights = append(flights, f)
	}
	return flights, nil
}

// IDWithTimestamp is one entry of a flight manifest.
type IDWithTimestamp struct {
	FlightID  int32
	TimeStamp int64
}

func (m IDWithTimestamp) Serialize() []byte {
	var b wire.Buffer
	return b.PutInt(m.FlightID).PutLong(m.TimeStamp).Bytes()
}

func DeserializeIDWithTimestamp(data []byte) (IDWithTimestamp, error) {
	r := wire.NewReader(data)
	id, err := r.ReadInt()
	if err != nil {
		return IDWithTimestamp{}, fmt.Errorf("%w: manifest id: %w", common.ErrorBadData, err)
	}
	ts, err := r.ReadLong()
	if err != nil {
		return IDWithTimestamp{}, fmt.Errorf("%w: manifest timestamp: %w", common.ErrorBadData, err)
	}
	if r.Len() != 0 {
		return IDWithTimestamp{}, fmt.Errorf("%w: trailing bytes after manifest entry", common.ErrorBadData)
	}
	return IDWithTimestamp{FlightID: id, TimeStamp: ts}, nil
}
