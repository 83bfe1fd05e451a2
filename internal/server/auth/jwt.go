// Package auth issues and checks the signed tokens carried by email
// confirmation links.
package auth

import (
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/flightkeeper/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// Claims binds a token to one email record and the address hash it held
// when the link was sent. A record re-created with a new salt invalidates
// older links.
type Claims struct {
	jwt.RegisteredClaims
	EmailID int64  `json:"email_id"`
	Hash    string `json:"hash"`
}

func GenerateEmailToken(emailID int64, hash []byte, secretKey []byte, validityDuration time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(validityDuration)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
		EmailID: emailID,
		Hash:    base64.RawURLEncoding.EncodeToString(hash),
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// ParseEmailToken returns the record id and address hash from a token.
// Expired tokens give common.ErrorTokenExpired, anything else that fails
// common.ErrorInvalidToken.
func ParseEmailToken(tokenString string, secretKey []byte) (int64, []byte, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return 0, nil, common.ErrorTokenExpired
		}
		return 0, nil, fmt.Errorf("%w: %w", common.ErrorInvalidToken, err)
	}

	if !token.Valid {
		return 0, nil, common.ErrorInvalidToken
	}

	hash, err := base64.RawURLEncoding.DecodeString(claims.Hash)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: hash: %w", common.ErrorInvalidToken, err)
	}

	return claims.EmailID, hash, nil
}
