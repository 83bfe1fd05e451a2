package auth

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/dmitrijs2005/flightkeeper/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

func TestGenerateAndParse_Success(t *testing.T) {
	t.Parallel()

	secret := []byte("super-secret")
	hash := []byte{0, 1, 2, 250, 251}

	tok, err := GenerateEmailToken(42, hash, secret, time.Hour)
	if err != nil {
		t.Fatalf("GenerateEmailToken error: %v", err)
	}

	id, gotHash, err := ParseEmailToken(tok, secret)
	if err != nil {
		t.Fatalf("ParseEmailToken error: %v", err)
	}
	if id != 42 {
		t.Fatalf("id mismatch: got %d want 42", id)
	}
	if !bytes.Equal(gotHash, hash) {
		t.Fatalf("hash mismatch: got %v want %v", gotHash, hash)
	}
}

func TestParseEmailToken_Expired(t *testing.T) {
	t.Parallel()

	secret := []byte("secret")

	tok, err := GenerateEmailToken(1, []byte("h"), secret, -1*time.Second)
	if err != nil {
		t.Fatalf("GenerateEmailToken error: %v", err)
	}

	_, _, err = ParseEmailToken(tok, secret)
	if err != common.ErrorTokenExpired {
		t.Fatalf("expected common.ErrorTokenExpired, got %v", err)
	}
}

func TestParseEmailToken_WrongSecret(t *testing.T) {
	t.Parallel()

	tok, err := GenerateEmailToken(2, []byte("h"), []byte("right-secret"), time.Hour)
	if err != nil {
		t.Fatalf("GenerateEmailToken error: %v", err)
	}

	_, _, err = ParseEmailToken(tok, []byte("wrong-secret"))
	if !errors.Is(err, common.ErrorInvalidToken) {
		t.Fatalf("expected invalid token error, got %v", err)
	}
}

func TestParseEmailToken_MalformedString(t *testing.T) {
	t.Parallel()

	_, _, err := ParseEmailToken("not.a.jwt", []byte("k"))
	if !errors.Is(err, common.ErrorInvalidToken) {
		t.Fatalf("expected invalid token error, got %v", err)
	}
}

func TestParseEmailToken_RejectsOtherAlgorithms(t *testing.T) {
	t.Parallel()

	tok, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{EmailID: 3}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	_, _, err = ParseEmailToken(tok, []byte("k"))
	if !errors.Is(err, common.ErrorInvalidToken) {
		t.Fatalf("expected invalid token error, got %v", err)
	}
}
