// Package common defines sentinel errors and small helpers shared by the
// server packages. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors.
	ErrorInternal = errors.New("internal error")

	// Token errors.
	ErrorInvalidToken = errors.New("invalid token")
	ErrorTokenExpired = errors.New("token expired")

	// Validation errors.
	ErrorBadData      = errors.New("bad data received")
	ErrorInvalidEmail = errors.New("not a valid email address")
	ErrorNotVerified  = errors.New("email not known or not verified")
)
