package session

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by Service matches exactly one of the
// first six via errors.Is.
var (
	ErrMissingCredential   = errors.New("missing credential")
	ErrMalformedCredential = errors.New("malformed credential")
	ErrExpiredCredential   = errors.New("expired credential")
	ErrUnknownIdentity     = errors.New("unknown identity")
	ErrReuseDetected       = errors.New("refresh token reuse detected")
	ErrUnavailable         = errors.New("session store unavailable")

	// ErrConfig is returned for invalid configuration.
	ErrConfig = errors.New("invalid config")
)

// Error carries an operation, its error kind and the underlying cause.
// The cause is for logs only and is never rendered to callers.
type Error struct {
	Op   string
	Kind error
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func fail(op string, kind, cause error) error {
	return &Error{Op: op, Kind: kind, Err: cause}
}

// Stable machine-readable codes.
const (
	CodeMissingCredential   = "missing_credential"
	CodeMalformedCredential = "malformed_credential"
	CodeExpiredCredential   = "expired_credential"
	CodeUnknownIdentity     = "unknown_identity"
	CodeReuseDetected       = "reuse_detected"
	CodeUnavailable         = "unavailable"
)

// Code maps err to its stable code. Unrecognised errors map to CodeUnavailable.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrReuseDetected):
		return CodeReuseDetected
	case errors.Is(err, ErrUnknownIdentity):
		return CodeUnknownIdentity
	case errors.Is(err, ErrExpiredCredential):
		return CodeExpiredCredential
	case errors.Is(err, ErrMalformedCredential):
		return CodeMalformedCredential
	case errors.Is(err, ErrMissingCredential):
		return CodeMissingCredential
	default:
		return CodeUnavailable
	}
}

// Recoverable reports whether a caller may recover from err by
// re-authenticating. Reuse detection and storage failures are not.
func Recoverable(err error) bool {
	switch Code(err) {
	case CodeMissingCredential, CodeMalformedCredential, CodeExpiredCredential, CodeUnknownIdentity:
		return true
	default:
		return false
	}
}
