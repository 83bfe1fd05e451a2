package airports

import (
	"testing"

	"github.com/dmitrijs2005/flightkeeper/internal/wire"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_Missing(t *testing.T) {
	s := NewStore(afero.NewMemMapFs(), "/airports")

	v, err := s.Version()
	require.NoError(t, err)
	assert.Equal(t, MissingVersion, v)

	data, ok, err := s.Data()
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, data)
}

func TestStore_VersionAndData(t *testing.T) {
	fs := afero.NewMemMapFs()
	payload := wire.Pack([][]byte{[]byte("EHAM"), []byte("EGLL")})
	require.NoError(t, afero.WriteFile(fs, "/airports", append(wire.WrapInt(7), payload...), 0o644))

	s := NewStore(fs, "/airports")

	v, err := s.Version()
	require.NoError(t, err)
	assert.Equal(t, int32(7), v)

	data, ok, err := s.Data()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, payload, data)
}

func TestStore_PicksUpReplacedFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	s := NewStore(fs, "/airports")

	require.NoError(t, afero.WriteFile(fs, "/airports", wire.WrapInt(1), 0o644))
	v, err := s.Version()
	require.NoError(t, err)
	assert.Equal(t, int32(1), v)

	require.NoError(t, afero.WriteFile(fs, "/airports", wire.WrapInt(2), 0o644))
	v, err = s.Version()
	require.NoError(t, err)
	assert.Equal(t, int32(2), v)
}

func TestStore_Truncated(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/airports", []byte{0, 0}, 0o644))
	s := NewStore(fs, "/airports")

	_, err := s.Version()
	assert.ErrorIs(t, err, wire.ErrMalformed)

	_, ok, err := s.Data()
	assert.ErrorIs(t, err, wire.ErrMalformed)
	assert.False(t, ok)
}
