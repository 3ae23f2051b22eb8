package campus

import "errors"

var (
	// ErrUnauthenticated indicates no credential pair is stored.
	ErrUnauthenticated = errors.New("no stored credential")
	// ErrSessionInvalid indicates the identity service rejected the stored
	// credential (expired, garbled or revoked).
	ErrSessionInvalid = errors.New("session rejected by identity service")
	// ErrInvalidCredentials indicates a login attempt was rejected.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrValidation indicates malformed client input, such as an empty
	// document list or an empty rejection reason.
	ErrValidation = errors.New("invalid input")
	// ErrConflict indicates the backend state changed concurrently: a
	// submission is already pending, or is no longer pending.
	ErrConflict = errors.New("state changed concurrently")
	// ErrNotFound indicates the requested submission does not exist.
	ErrNotFound = errors.New("not found")
	// ErrTransport indicates a network or backend failure not otherwise
	// classified.
	ErrTransport = errors.New("transport failure")
)
