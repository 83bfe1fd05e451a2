package flights

import (
	"cmp"
	"slices"

	"github.com/dmitrijs2005/flightkeeper/internal/cryptox"
	"github.com/dmitrijs2005/flightkeeper/internal/server/models"
)

// FlightsFile is the decrypted content of a user file. Flights are kept
// sorted by FlightID.
type FlightsFile struct {
	Timestamp int64
	Flights   []models.Flight
}

func newFlightsFile(timestamp int64, flights []models.Flight) *FlightsFile {
	ff := &FlightsFile{Timestamp: timestamp, Flights: slices.Clone(flights)}
	sortByID(ff.Flights)
	return ff
}

func sortByID(flights []models.Flight) {
	slices.SortStableFunc(flights, func(a, b models.Flight) int {
		return cmp.Compare(a.FlightID, b.FlightID)
	})
}

// Merge adds newFlights, replacing stored flights that share an id. When
// newFlights repeats an id the last one wins. It returns len(newFlights).
func (f *FlightsFile) Merge(newFlights []models.Flight) int {
	byID := make(map[int32]int, len(f.Flights))
	for i, fl := range f.Flights {
		byID[fl.FlightID] = i
	}
	for _, fl := range newFlights {
		if i, ok := byID[fl.FlightID]; ok {
			f.Flights[i] = fl
			continue
		}
		byID[fl.FlightID] = len(f.Flights)
		f.Flights = append(f.Flights, fl)
	}
	sortByID(f.Flights)
	return len(newFlights)
}

// RemoveDuplicates keeps one flight per id, the one with the newest
// TimeStamp, and returns how many were dropped.
func (f *FlightsFile) RemoveDuplicates() int {
	if len(f.Flights) < 2 {
		return 0
	}
	sortByID(f.Flights)

	out := f.Flights[:0]
	for _, fl := range f.Flights {
		last := len(out) - 1
		if last >= 0 && out[last].FlightID == fl.FlightID {
			if fl.TimeStamp >= out[last].TimeStamp {
				out[last] = fl
			}
			continue
		}
		out = append(out, fl)
	}
	removed := len(f.Flights) - len(out)
	f.Flights = out
	return removed
}

// Since returns the flights modified strictly after ts.
func (f *FlightsFile) Since(ts int64) []models.Flight {
	out := make([]models.Flight, 0)
	for _, fl := range f.Flights {
		if fl.TimeStamp > ts {
			out = append(out, fl)
		}
	}
	return out
}

// ByIDs returns the stored flights whose id is listed. Unknown ids are
// ignored.
func (f *FlightsFile) ByIDs(ids []int32) []models.Flight {
	want := make(map[int32]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	out := make([]models.Flight, 0, len(ids))
	for _, fl := range f.Flights {
		if _, ok := want[fl.FlightID]; ok {
			out = append(out, fl)
		}
	}
	return out
}

// Checksum is SHA-256 over the flights serialized in the current schema, in
// id order. Two logbooks with equal checksums hold the same flights.
func (f *FlightsFile) Checksum() []byte {
	sorted := slices.Clone(f.Flights)
	sortByID(sorted)

	var buf []byte
	for _, fl := range sorted {
		buf = append(buf, fl.Serialize(models.CurrentFlightVersion)...)
	}
	return cryptox.Hash(buf)
}

func (f *FlightsFile) Manifest() []models.IDWithTimestamp {
	out := make([]models.IDWithTimestamp, len(f.Flights))
	for i, fl := range f.Flights {
		out[i] = models.IDWithTimestamp{FlightID: fl.FlightID, TimeStamp: fl.TimeStamp}
	}
	return out
}
