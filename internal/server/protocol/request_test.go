package protocol

import (
	"testing"

	"github.com/dmitrijs2005/flightkeeper/internal/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeywords_EveryKindNamed(t *testing.T) {
	seen := make(map[string]Kind)
	for k := Kind(0); k < numKinds; k++ {
		kw := k.Keyword()
		require.NotEmpty(t, kw, "kind %d has no keyword", k)
		if prev, dup := seen[kw]; dup {
			t.Fatalf("keyword %q used by %d and %d", kw, prev, k)
		}
		seen[kw] = k
	}
}

func TestKindOf(t *testing.T) {
	for k := KindHello; k < numKinds; k++ {
		assert.Equal(t, k, KindOf(k.Keyword()), k.Keyword())
	}
	assert.Equal(t, KindUnknown, KindOf("FLY_ME_TO_THE_MOON"))
	assert.Equal(t, KindUnknown, KindOf("login"))
}

func TestParseRequest(t *testing.T) {
	tests := []struct {
		name    string
		frame   []byte
		want    Request
		wantErr bool
	}{
		{
			name:  "keyword only",
			frame: wire.WrapString("SAVE_CHANGES"),
			want:  Request{Kind: KindSaveChanges, Keyword: "SAVE_CHANGES", Payload: []byte{}},
		},
		{
			name:  "keyword with payload",
			frame: append(wire.WrapString("ADD_TIMESTAMP"), wire.WrapLong(42)...),
			want:  Request{Kind: KindAddTimestamp, Keyword: "ADD_TIMESTAMP", Payload: wire.WrapLong(42)},
		},
		{
			name:  "unknown keyword",
			frame: wire.WrapString("NOPE"),
			want:  Request{Kind: KindUnknown, Keyword: "NOPE", Payload: []byte{}},
		},
		{
			name:    "empty frame",
			frame:   nil,
			wantErr: true,
		},
		{
			name:    "int instead of keyword",
			frame:   wire.WrapInt(7),
			wantErr: true,
		},
		{
			name:    "truncated",
			frame:   []byte{0, 0, 0, 9, 'L', 'O'},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRequest(tt.frame)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrNotAKeyword)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want.Kind, got.Kind)
			assert.Equal(t, tt.want.Keyword, got.Keyword)
			assert.Equal(t, len(tt.want.Payload), len(got.Payload))
			if len(tt.want.Payload) > 0 {
				assert.Equal(t, tt.want.Payload, got.Payload)
			}
		})
	}
}

func TestRequest_EncodeRoundTrip(t *testing.T) {
	req := Request{Kind: KindRequestP2PData, Payload: wire.WrapLong(1234)}

	got, err := ParseRequest(req.Encode())
	require.NoError(t, err)
	assert.Equal(t, KindRequestP2PData, got.Kind)
	assert.Equal(t, "REQUEST_P2P_DATA", got.Keyword)
	assert.Equal(t, wire.WrapLong(1234), got.Payload)
}
