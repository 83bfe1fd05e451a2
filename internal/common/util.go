package common

import (
	"crypto/rand"
	"errors"
	"math/big"
)

// AlphaNumeric is the character set for generated usernames.
const AlphaNumeric = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// MakeRandString returns a string of size characters drawn uniformly from
// alphabet using crypto/rand.
func MakeRandString(size int, alphabet string) (string, error) {
	if alphabet == "" {
		return "", errors.New("empty alphabet")
	}
	max := big.NewInt(int64(len(alphabet)))
	out := make([]byte, size)
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		out[i] = alphabet[n.Int64()]
	}
	return string(out), nil
}

// GenerateRandByteArray returns size random bytes. It panics if the system
// random source fails.
func GenerateRandByteArray(size int) []byte {
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return b
}

// WipeByteArray zeroes b in place. Used for key material once a session ends.
func WipeByteArray(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
