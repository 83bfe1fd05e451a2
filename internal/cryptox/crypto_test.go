package cryptox

import (
	"bytes"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHash_Snapshot(t *testing.T) {
	got := hex.EncodeToString(Hash(nil))
	assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", got)
}

func TestHashWithSalt_Snapshot(t *testing.T) {
	got := hex.EncodeToString(HashWithSalt([]byte("salt"), []byte("item")))
	assert.Equal(t, "5f69461b8f4b515ba90d90f039fcfc5adc98ec3535b8a55776434d63228e8602", got)
}

func TestHashWithExtraSalt_Snapshot(t *testing.T) {
	h := HashWithExtraSalt("alice", []byte("key-1"))

	require.Len(t, h, HashSize)
	assert.Equal(t, "4e4bd339b11a436af973bd040b2d965f0501afbd178b036cf2203df20d814a1a", hex.EncodeToString(h))
}

func TestHashWithExtraSalt_DependsOnBothInputs(t *testing.T) {
	base := HashWithExtraSalt("alice", []byte("key-1"))

	assert.False(t, Equal(base, HashWithExtraSalt("bob", []byte("key-1"))))
	assert.False(t, Equal(base, HashWithExtraSalt("alice", []byte("key-2"))))
	assert.True(t, Equal(base, HashWithExtraSalt("alice", []byte("key-1"))))
}

func TestEncryptDecrypt_RoundTrip(t *testing.T) {
	key := []byte("client supplied key")
	plaintext := []byte("flights go here")

	ct, err := Encrypt(key, plaintext)
	require.NoError(t, err)
	assert.False(t, bytes.Contains(ct, plaintext), "ciphertext must not leak plaintext")

	res := Decrypt(key, ct)
	require.True(t, res.OK)
	assert.Equal(t, plaintext, res.Plaintext)
}

func TestEncrypt_FreshNonceEveryCall(t *testing.T) {
	key := []byte("k")
	a, err := Encrypt(key, []byte("same"))
	require.NoError(t, err)
	b, err := Encrypt(key, []byte("same"))
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestDecrypt_Failures(t *testing.T) {
	key := []byte("right key")
	ct, err := Encrypt(key, []byte("payload"))
	require.NoError(t, err)

	tampered := append([]byte(nil), ct...)
	tampered[len(tampered)-1] ^= 0xFF

	tests := []struct {
		name string
		key  []byte
		data []byte
	}{
		{"wrong key", []byte("wrong key"), ct},
		{"tampered", key, tampered},
		{"shorter than nonce", key, ct[:5]},
		{"empty", key, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Decrypt(tt.key, tt.data)
			assert.False(t, res.OK)
			assert.Nil(t, res.Plaintext)
		})
	}
}

func TestHashEmail_CaseInsensitive(t *testing.T) {
	salt := []byte("0123456789abcdef")

	a := HashEmail("Pilot@Example.com", salt)
	b := HashEmail(" pilot@example.com ", salt)
	c := HashEmail("pilot@example.com", []byte("fedcba9876543210"))

	assert.Len(t, a, 32)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}
