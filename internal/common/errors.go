// Package common defines shared constants and sentinel errors used across
// the authentication core and its boundary layers. Callers should use
// errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")
	ErrorConflict = errors.New("already exists")

	// Service-level errors.
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")

	// Input validation errors.
	ErrorInvalidUsername = errors.New("username must not be empty")

	// Crypto backend errors (bad key material, cipher setup failures).
	ErrorInvalidKey = errors.New("invalid server key")
)
