// Package cryptox holds the hashing and symmetric encryption primitives used
// for credential verification and flight payload storage.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"io"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/hkdf"
)

// ExtraSalt is mixed into credential hashes so that tables keyed on username
// alone are useless.
const ExtraSalt = "JoozdLog"

// HashSize is the length of every digest produced here.
const HashSize = sha256.Size

var payloadKeyInfo = []byte("flightkeeper payload v1")

func Hash(item []byte) []byte {
	h := sha256.Sum256(item)
	return h[:]
}

// HashWithSalt returns SHA-256(salt ++ item).
func HashWithSalt(salt, item []byte) []byte {
	h := sha256.New()
	h.Write(salt)
	h.Write(item)
	return h.Sum(nil)
}

// HashWithExtraSalt returns SHA-256(username ++ ExtraSalt ++ passwordKey), the
// verification hash stored at the start of every user file.
func HashWithExtraSalt(username string, passwordKey []byte) []byte {
	h := sha256.New()
	h.Write([]byte(username))
	h.Write([]byte(ExtraSalt))
	h.Write(passwordKey)
	return h.Sum(nil)
}

// Equal compares two digests in constant time.
func Equal(a, b []byte) bool {
	return subtle.ConstantTimeCompare(a, b) == 1
}

// HashEmail derives the stored fingerprint of an email address. Addresses are
// compared case-insensitively.
func HashEmail(address string, salt []byte) []byte {
	return argon2.IDKey([]byte(strings.ToLower(strings.TrimSpace(address))), salt, 1, 64*1024, 4, 32)
}

// payloadKey stretches a client key of any length into an AES-256 key.
func payloadKey(passwordKey []byte) ([]byte, error) {
	key := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, passwordKey, nil, payloadKeyInfo), key); err != nil {
		return nil, err
	}
	return key, nil
}

func newGCM(passwordKey []byte) (cipher.AEAD, error) {
	key, err := payloadKey(passwordKey)
	if err != nil {
		return nil, err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// Encrypt seals plaintext with AES-GCM under a key derived from passwordKey.
// The random nonce is prepended to the returned ciphertext.
func Encrypt(passwordKey, plaintext []byte) ([]byte, error) {
	aesgcm, err := newGCM(passwordKey)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, aesgcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}

	return aesgcm.Seal(nonce, nonce, plaintext, nil), nil
}

// DecryptResult is the outcome of Decrypt. Plaintext is only meaningful when
// OK is set.
type DecryptResult struct {
	Plaintext []byte
	OK        bool
}

// Decrypt opens a blob produced by Encrypt. A wrong key, truncated data or
// tampering all yield a result with OK == false.
func Decrypt(passwordKey, ciphertext []byte) DecryptResult {
	aesgcm, err := newGCM(passwordKey)
	if err != nil {
		return DecryptResult{}
	}

	ns := aesgcm.NonceSize()
	if len(ciphertext) < ns {
		return DecryptResult{}
	}

	plaintext, err := aesgcm.Open(nil, ciphertext[:ns], ciphertext[ns:], nil)
	if err != nil {
		return DecryptResult{}
	}
	return DecryptResult{Plaintext: plaintext, OK: true}
}
