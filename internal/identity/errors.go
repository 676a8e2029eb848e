package identity

import "errors"

var (
	// ErrInvalidToken is returned when a custom token cannot be exchanged.
	ErrInvalidToken = errors.New("invalid custom token")
	// ErrMissingSecret is returned when no signing secret is configured.
	ErrMissingSecret = errors.New("token signing secret not configured")
	// ErrSessionNotFound is returned by session stores for unknown or expired ids.
	ErrSessionNotFound = errors.New("session not found")
)
