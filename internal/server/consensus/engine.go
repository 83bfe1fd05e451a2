// Package consensus tracks which aircraft type users report for each
// registration and resolves a type once one holds a large enough share of
// the votes.
package consensus

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sort"
	"sync"

	"github.com/dmitrijs2005/flightkeeper/internal/common"
	"github.com/dmitrijs2005/flightkeeper/internal/filex"
	"github.com/dmitrijs2005/flightkeeper/internal/logging"
	"github.com/dmitrijs2005/flightkeeper/internal/server/models"
	"github.com/dmitrijs2005/flightkeeper/internal/wire"
	"github.com/spf13/afero"
)

// Engine holds the vote counters of every registration. All methods are
// safe for concurrent use.
type Engine struct {
	mu       sync.Mutex
	fs       afero.Fs
	path     string
	limit    float64
	counters map[string][]models.TypeCounter
	logger   logging.Logger
}

// NewEngine loads the counters stored at path. A missing file starts an
// empty map.
func NewEngine(fs afero.Fs, path string, limit float64, logger logging.Logger) (*Engine, error) {
	if limit < 0 || limit > 1 {
		return nil, fmt.Errorf("consensus limit %v out of range [0,1]", limit)
	}

	e := &Engine{
		fs:       fs,
		path:     path,
		limit:    limit,
		counters: make(map[string][]models.TypeCounter),
		logger:   logger,
	}

	ok, err := afero.Exists(fs, path)
	if err != nil {
		return nil, err
	}
	if !ok {
		return e, nil
	}

	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if e.counters, err = decodeCounters(data); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return e, nil
}

// AddCounter records one vote for t on registration.
func (e *Engine) AddCounter(registration string, t models.AircraftType) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.vote(registration, t, 1)
}

// RemoveCounter takes back one vote for t on registration.
func (e *Engine) RemoveCounter(registration string, t models.AircraftType) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.vote(registration, t, -1)
}

func (e *Engine) vote(registration string, t models.AircraftType, delta int32) {
	list := append(slices.Clone(e.counters[registration]), models.TypeCounter{Type: t, Count: delta})
	if merged := consolidate(list); len(merged) > 0 {
		e.counters[registration] = merged
	} else {
		delete(e.counters, registration)
	}
}

// Apply applies a batch of votes and writes the map to disk before
// returning. If the write fails the batch is rolled back.
func (e *Engine) Apply(ctx context.Context, votes []models.ConsensusData) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	before := make(map[string][]models.TypeCounter, len(votes))
	for _, v := range votes {
		if _, seen := before[v.Registration]; !seen {
			before[v.Registration] = e.counters[v.Registration]
		}
	}

	for _, v := range votes {
		if v.Subtract {
			e.vote(v.Registration, v.AircraftType, -1)
		} else {
			e.vote(v.Registration, v.AircraftType, 1)
		}
	}

	if err := e.writeLocked(); err != nil {
		for reg, list := range before {
			if list == nil {
				delete(e.counters, reg)
			} else {
				e.counters[reg] = list
			}
		}
		e.logger.Error(ctx, "write consensus file", "error", err)
		return err
	}

	e.logger.Debug(ctx, "consensus votes applied", "votes", len(votes))
	return nil
}

// WriteToFile rewrites the whole consensus file.
func (e *Engine) WriteToFile() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.writeLocked()
}

func (e *Engine) writeLocked() error {
	return filex.WriteFileAtomic(e.fs, e.path, encodeCounters(e.counters))
}

// Counters returns a copy of the counters kept for registration.
func (e *Engine) Counters(registration string) []models.TypeCounter {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.counters[registration])
}

// RequestConsensus returns the agreed type for registration, if any.
func (e *Engine) RequestConsensus(registration string) (models.AircraftType, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return check(e.counters[registration], e.limit)
}

// Consensus returns every registration that currently has an agreed type.
func (e *Engine) Consensus() map[string]models.AircraftType {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make(map[string]models.AircraftType)
	for reg, list := range e.counters {
		if t, ok := check(list, e.limit); ok {
			out[reg] = t
		}
	}
	return out
}

// SerializedConsensus packs Consensus as registration / aircraft type pairs,
// sorted by registration.
func (e *Engine) SerializedConsensus() []byte {
	c := e.Consensus()
	regs := slices.Sorted(maps.Keys(c))

	items := make([][]byte, 0, len(regs))
	for _, reg := range regs {
		var b wire.Buffer
		items = append(items, b.PutString(reg).PutBytes(c[reg].Serialize()).Bytes())
	}
	return wire.Pack(items)
}

// consolidate sums counts per type and drops types at zero or below.
func consolidate(list []models.TypeCounter) []models.TypeCounter {
	sums := make(map[models.AircraftType]int32, len(list))
	for _, c := range list {
		sums[c.Type] += c.Count
	}

	out := make([]models.TypeCounter, 0, len(sums))
	for t, n := range sums {
		if n > 0 {
			out = append(out, models.TypeCounter{Type: t, Count: n})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Type.Less(out[j].Type) })
	return out
}

// check picks the type with the most votes; ties go to the lowest type. It
// is the consensus when its share of all votes exceeds limit.
func check(list []models.TypeCounter, limit float64) (models.AircraftType, bool) {
	if len(list) == 0 {
		return models.AircraftType{}, false
	}

	var total int64
	best := list[0]
	for _, c := range list {
		total += int64(c.Count)
		if c.Count > best.Count || (c.Count == best.Count && c.Type.Less(best.Type)) {
			best = c
		}
	}
	if total <= 0 || float64(best.Count)/float64(total) <= limit {
		return models.AircraftType{}, false
	}
	return best.Type, true
}

// The file is a packed list of entries, each a wrapped registration
// followed by a packed list of serialized counters.
func encodeCounters(m map[string][]models.TypeCounter) []byte {
	regs := slices.Sorted(maps.Keys(m))

	items := make([][]byte, 0, len(regs))
	for _, reg := range regs {
		counters := make([][]byte, len(m[reg]))
		for i, c := range m[reg] {
			counters[i] = c.Serialize()
		}
		var b wire.Buffer
		items = append(items, b.PutString(reg).PutRaw(wire.Pack(counters)).Bytes())
	}
	return wire.Pack(items)
}

func decodeCounters(data []byte) (map[string][]models.TypeCounter, error) {
	entries, err := wire.Unpack(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrorBadData, err)
	}

	out := make(map[string][]models.TypeCounter, len(entries))
	for _, entry := range entries {
		r := wire.NewReader(entry)
		reg, err := r.ReadString()
		if err != nil {
			return nil, fmt.Errorf("%w: registration: %w", common.ErrorBadData, err)
		}
		raw, err := r.ReadList()
		if err != nil {
			return nil, fmt.Errorf("%w: counters of %s: %w", common.ErrorBadData, reg, err)
		}
		if r.Len() != 0 {
			return nil, fmt.Errorf("%w: trailing bytes after %s", common.ErrorBadData, reg)
		}

		list := make([]models.TypeCounter, 0, len(raw))
		for _, item := range raw {
			c, err := models.DeserializeTypeCounter(item)
			if err != nil {
				return nil, err
			}
			list = append(list, c)
		}
		if list = consolidate(list); len(list) > 0 {
			out[reg] = list
		}
	}
	return out, nil
}
