// Package airports serves the airport database blob the app downloads. The
// file holds a wrapped int version followed by the packed airport list,
// which is passed through untouched.
package airports

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/dmitrijs2005/flightkeeper/internal/wire"
	"github.com/spf13/afero"
)

// MissingVersion is reported when there is no airport file.
const MissingVersion int32 = -1

var wrappedIntSize = len(wire.WrapInt(0))

// Store reads the airport file on every call so a replaced file is picked up
// without a restart.
type Store struct {
	fs   afero.Fs
	path string
}

func NewStore(fs afero.Fs, path string) *Store {
	return &Store{fs: fs, path: path}
}

func (s *Store) read() ([]byte, bool, error) {
	data, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("read %s: %w", s.path, err)
	}
	if len(data) < wrappedIntSize {
		return nil, false, fmt.Errorf("%s: %w: %d bytes", s.path, wire.ErrMalformed, len(data))
	}
	return data, true, nil
}

// Version returns the database version, or MissingVersion without a file.
func (s *Store) Version() (int32, error) {
	data, ok, err := s.read()
	if err != nil || !ok {
		return MissingVersion, err
	}
	return wire.UnwrapInt(data[:wrappedIntSize])
}

// Data returns everything after the version. ok is false without a file.
func (s *Store) Data() (data []byte, ok bool, err error) {
	raw, ok, err := s.read()
	if err != nil || !ok {
		return nil, false, err
	}
	return raw[wrappedIntSize:], true, nil
}
