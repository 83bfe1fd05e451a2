package consensus

import (
	"fmt"
	"maps"
	"slices"

	"github.com/dmitrijs2005/flightkeeper/internal/server/models"
	"github.com/dmitrijs2005/flightkeeper/internal/wire"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// MissingVersion is reported for a data file that does not exist.
const MissingVersion int32 = -1

// Catalog is the list of aircraft types served to clients, read from YAML:
//
//	version: 4
//	types:
//	  - name: Embraer 190
//	    short_name: E190
//	    multi_pilot: true
//	    multi_engine: true
type Catalog struct {
	Version int32                 `yaml:"version"`
	Types   []models.AircraftType `yaml:"types"`
}

// LoadCatalog reads path. A missing file gives an empty catalog with
// MissingVersion.
func LoadCatalog(fs afero.Fs, path string) (*Catalog, error) {
	var c Catalog
	found, err := readYAML(fs, path, &c)
	if err != nil {
		return nil, err
	}
	if !found {
		return &Catalog{Version: MissingVersion}, nil
	}
	return &c, nil
}

// Find returns the type with the given short name.
func (c *Catalog) Find(shortName string) (models.AircraftType, bool) {
	for _, t := range c.Types {
		if t.ShortName == shortName {
			return t, true
		}
	}
	return models.AircraftType{}, false
}

// Serialize packs every type in file order.
func (c *Catalog) Serialize() []byte {
	items := make([][]byte, len(c.Types))
	for i, t := range c.Types {
		items[i] = t.Serialize()
	}
	return wire.Pack(items)
}

// ForcedTypes pins registrations to catalog types regardless of votes.
type ForcedTypes struct {
	Version int32
	Types   map[string]models.AircraftType
}

type forcedTypesFile struct {
	Version int32             `yaml:"version"`
	Forced  map[string]string `yaml:"forced"`
}

// LoadForcedTypes reads a YAML file mapping registration to short type name:
//
//	version: 2
//	forced:
//	  PH-EZA: E190
//
// Names missing from catalog are skipped and returned as unmatched.
func LoadForcedTypes(fs afero.Fs, path string, catalog *Catalog) (*ForcedTypes, []string, error) {
	var raw forcedTypesFile
	found, err := readYAML(fs, path, &raw)
	if err != nil {
		return nil, nil, err
	}
	if !found {
		return &ForcedTypes{Version: MissingVersion, Types: map[string]models.AircraftType{}}, nil, nil
	}

	ft := &ForcedTypes{Version: raw.Version, Types: make(map[string]models.AircraftType, len(raw.Forced))}
	var unmatched []string
	for _, reg := range slices.Sorted(maps.Keys(raw.Forced)) {
		t, ok := catalog.Find(raw.Forced[reg])
		if !ok {
			unmatched = append(unmatched, reg)
			continue
		}
		ft.Types[reg] = t
	}
	return ft, unmatched, nil
}

// Serialize packs ForcedType entries sorted by registration.
func (f *ForcedTypes) Serialize() []byte {
	regs := slices.Sorted(maps.Keys(f.Types))
	items := make([][]byte, len(regs))
	for i, reg := range regs {
		items[i] = models.ForcedType{Registration: reg, TypeName: f.Types[reg].Name}.Serialize()
	}
	return wire.Pack(items)
}

func readYAML(fs afero.Fs, path string, out any) (bool, error) {
	ok, err := afero.Exists(fs, path)
	if err != nil || !ok {
		return false, err
	}
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return false, fmt.Errorf("read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("parse %s: %w", path, err)
	}
	return true, nil
}
