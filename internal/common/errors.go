// Package common defines shared constants and sentinel errors used across
// the service layers. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level: the subject cannot be authenticated.
	ErrorUnauthorized = errors.New("unauthorized")

	// Startup-only: missing or unusable required configuration.
	ErrorConfiguration = errors.New("configuration error")

	// Backing persistence or cache unreachable.
	ErrStoreUnavailable = errors.New("store unavailable")

	// Refresh token lifecycle errors.
	ErrInvalidToken     = errors.New("invalid token")
	ErrTokenExpired     = errors.New("token expired")
	ErrTokenAlreadyUsed = errors.New("token already used")
)
