// Package common defines shared constants and sentinel errors used across
// client and server layers of SealKeeper. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")

	// Lifecycle errors surfaced by the record controller.
	ErrUnauthenticated      = errors.New("wallet not connected")
	ErrNotReady             = errors.New("encryption subsystem not initialized")
	ErrAlreadyInProgress    = errors.New("decryption already in progress")
	ErrUserRejected         = errors.New("user rejected transaction")
	ErrTransactionFailed    = errors.New("transaction failed")
	ErrFetchFailed          = errors.New("fetch failed")
	ErrConcurrentlyVerified = errors.New("record already verified")

	// Proof and payload errors.
	ErrInvalidProof   = errors.New("invalid proof")
	ErrInvalidPayload = errors.New("invalid payload")
)
