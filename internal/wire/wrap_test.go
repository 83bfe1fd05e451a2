package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBufferReader_MixedValues(t *testing.T) {
	var b Buffer
	b.PutString("LOGIN").
		PutInt(-7).
		PutLong(1 << 40).
		PutBool(true).
		PutBytes([]byte{9, 8, 7})

	r := NewReader(b.Bytes())

	s, err := r.ReadString()
	require.NoError(t, err)
	assert.Equal(t, "LOGIN", s)

	i, err := r.ReadInt()
	require.NoError(t, err)
	assert.Equal(t, int32(-7), i)

	l, err := r.ReadLong()
	require.NoError(t, err)
	assert.Equal(t, int64(1<<40), l)

	ok, err := r.ReadBool()
	require.NoError(t, err)
	assert.True(t, ok)

	raw, err := r.ReadBytes()
	require.NoError(t, err)
	assert.Equal(t, []byte{9, 8, 7}, raw)

	assert.Equal(t, 0, r.Len())
	_, err = r.Next()
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestPackUnpack(t *testing.T) {
	items := [][]byte{[]byte("a"), {}, WrapInt(3)}

	got, err := Unpack(Pack(items))
	require.NoError(t, err)
	assert.Equal(t, items, got)

	empty, err := Unpack(Pack(nil))
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestReader_RejectsShortElement(t *testing.T) {
	data := WrapString("hello")
	_, err := NewReader(data[:len(data)-1]).ReadString()
	assert.ErrorIs(t, err, ErrMalformed)

	_, err = NewReader(WrapString("abc")).ReadInt()
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestUnwrap_RejectsTrailingBytes(t *testing.T) {
	data := append(WrapLong(5), 0)
	_, err := UnwrapLong(data)
	assert.ErrorIs(t, err, ErrMalformed)

	v, err := UnwrapLong(WrapLong(5))
	require.NoError(t, err)
	assert.Equal(t, int64(5), v)
}

func TestNextType(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
		want Type
	}{
		{"keyword", append(WrapString("REQUEST_TIMESTAMP"), WrapLong(1)...), TypeString},
		{"int", WrapInt(1), TypeInt},
		{"long", WrapLong(2), TypeLong},
		{"bytes", WrapBytes([]byte{0, 1, 2}), TypeBytes},
		{"empty element", WrapBytes(nil), TypeBytes},
		{"truncated", []byte{0, 0, 0, 9, 'a'}, TypeInvalid},
		{"too short for length", []byte{0, 0}, TypeInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NextType(tt.in))
		})
	}
}

func TestPackInts(t *testing.T) {
	ids := []int32{1, -2, 1 << 30}

	got, err := UnpackInts(PackInts(ids))
	require.NoError(t, err)
	assert.Equal(t, ids, got)

	_, err = UnpackInts(Pack([][]byte{{1, 2}}))
	assert.ErrorIs(t, err, ErrMalformed)
}
