package models

import (
	"fmt"

	"github.com/dmitrijs2005/flightkeeper/internal/common"
	"github.com/dmitrijs2005/flightkeeper/internal/wire"
)

// AircraftType is one entry of the aircraft type catalog. ShortName is the
// type designator ("E190") and identifies the type.
type AircraftType struct {
	Name        string `yaml:"name"`
	ShortName   string `yaml:"short_name"`
	MultiPilot  bool   `yaml:"multi_pilot"`
	MultiEngine bool   `yaml:"multi_engine"`
}

// Less orders types by designator, then name.
func (a AircraftType) Less(b AircraftType) bool {
	if a.ShortName != b.ShortName {
		return a.ShortName < b.ShortName
	}
	return a.Name < b.Name
}

func (a AircraftType) Serialize() []byte {
	var b wire.Buffer
	return b.PutString(a.Name).PutString(a.ShortName).PutBool(a.MultiPilot).PutBool(a.MultiEngine).Bytes()
}

func DeserializeAircraftType(data []byte) (AircraftType, error) {
	r := wire.NewReader(data)
	a, err := readAircraftType(r)
	if err != nil {
		return AircraftType{}, err
	}
	if r.Len() != 0 {
		return AircraftType{}, fmt.Errorf("%w: trailing bytes after aircraft type", common.ErrorBadData)
	}
	return a, nil
}

func readAircraftType(r *wire.Reader) (AircraftType, error) {
	var (
		a   AircraftType
		err error
	)
	if a.Name, err = r.ReadString(); err != nil {
		return AircraftType{}, fmt.Errorf("%w: aircraft name: %w", common.ErrorBadData, err)
	}
	if a.ShortName, err = r.ReadString(); err != nil {
		return AircraftType{}, fmt.Errorf("%w: aircraft short name: %w", common.ErrorBadData, err)
	}
	if a.MultiPilot, err = r.ReadBool(); err != nil {
		return AircraftType{}, fmt.Errorf("%w: multi pilot: %w", common.ErrorBadData, err)
	}
	if a.MultiEngine, err = r.ReadBool(); err != nil {
		return AircraftType{}, fmt.Errorf("%w: multi engine: %w", common.ErrorBadData, err)
	}
	return a, nil
}

// TypeCounter is the net vote count for one type on one registration.
type TypeCounter struct {
	Type  AircraftType
	Count int32
}

func (c TypeCounter) Serialize() []byte {
	var b wire.Buffer
	return b.PutBytes(c.Type.Serialize()).PutInt(c.Count).Bytes()
}

func DeserializeTypeCounter(data []byte) (TypeCounter, error) {
	r := wire.NewReader(data)
	raw, err := r.ReadBytes()
	if err != nil {
		return TypeCounter{}, fmt.Errorf("%w: counter type: %w", common.ErrorBadData, err)
	}
	t, err := DeserializeAircraftType(raw)
	if err != nil {
		return TypeCounter{}, err
	}
	count, err := r.ReadInt()
	if err != nil {
		return TypeCounter{}, fmt.Errorf("%w: counter count: %w", common.ErrorBadData, err)
	}
	if r.Len() != 0 {
		return TypeCounter{}, fmt.Errorf("%w: trailing bytes after counter", common.ErrorBadData)
	}
	return TypeCounter{Type: t, Count: count}, nil
}

// ConsensusData is one vote sent by a client: add (or, with Subtract, take
// back) one count of AircraftType for Registration.
type ConsensusData struct {
	Registration string
	AircraftType AircraftType
	Subtract     bool
}

func (c ConsensusData) Serialize() []byte {
	var b wire.Buffer
	return b.PutString(c.Registration).PutBytes(c.AircraftType.Serialize()).PutBool(c.Subtract).Bytes()
}

func DeserializeConsensusData(data []byte) (ConsensusData, error) {
	r := wire.NewReader(data)
	reg, err := r.ReadString()
	if err != nil {
		return ConsensusData{}, fmt.Errorf("%w: registration: %w", common.ErrorBadData, err)
	}
	raw, err := r.ReadBytes()
	if err != nil {
		return ConsensusData{}, fmt.Errorf("%w: aircraft type: %w", common.ErrorBadData, err)
	}
	t, err := DeserializeAircraftType(raw)
	if err != nil {
		return ConsensusData{}, err
	}
	sub, err := r.ReadBool()
	if err != nil {
		return ConsensusData{}, fmt.Errorf("%w: subtract: %w", common.ErrorBadData, err)
	}
	if r.Len() != 0 {
		return ConsensusData{}, fmt.Errorf("%w: trailing bytes after consensus data", common.ErrorBadData)
	}
	return ConsensusData{Registration: reg, AircraftType: t, Subtract: sub}, nil
}

// ForcedType pins a registration to a type name regardless of votes.
type ForcedType struct {
	Registration string
	TypeName     string
}

func (f ForcedType) Serialize() []byte {
	var b wire.Buffer
	return b.PutString(f.Registration).PutString(f.TypeName).Bytes()
}
