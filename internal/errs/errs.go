// Package errs defines the error taxonomy shared by the API gateway and the
// layers above it. The gateway is the only place that classifies raw
// transport and remote-response failures into these kinds; callers inspect
// kinds with KindOf or errors.As and never look at HTTP details directly.
package errs

import (
	"errors"
	"fmt"

	"github.com/rotisserie/eris"
)

// Kind classifies an error for propagation decisions.
type Kind int

const (
	// Unknown is the catch-all for unclassified failures.
	Unknown Kind = iota
	// Network covers transport failures and non-2xx HTTP responses.
	Network
	// API covers structurally valid responses carrying ok:false.
	API
	// Auth covers invalid/revoked credentials and missing scopes.
	Auth
	// Parse covers malformed remote responses.
	Parse
	// Config covers client construction failures.
	Config
	// Storage covers local persistence failures at collaborator boundaries.
	Storage
)

// String returns the kind name used in logs and error text.
func (k Kind) String() string {
	switch k {
	case Network:
		return "network"
	case API:
		return "api"
	case Auth:
		return "auth"
	case Parse:
		return "parse"
	case Config:
		return "config"
	case Storage:
		return "storage"
	default:
		return "unknown"
	}
}

// Error is a classified error. The wrapped cause carries an eris stack
// trace for diagnostics; Kind drives propagation policy.
type Error struct {
	Kind  Kind
	cause error
}

// New creates a classified error from a message.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, cause: eris.New(msg)}
}

// Newf creates a classified error from a format string.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, cause: eris.Errorf(format, args...)}
}

// Wrap classifies an existing error, annotating it with msg.
func Wrap(kind Kind, err error, msg string) *Error {
	return &Error{Kind: kind, cause: eris.Wrap(err, msg)}
}

// Wrapf classifies an existing error with a formatted annotation.
func Wrapf(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, cause: eris.Wrapf(err, format, args...)}
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.cause.Error())
}

func (e *Error) Unwrap() error {
	return e.cause
}

// KindOf returns the classification of err, or Unknown when err carries
// no classification.
func KindOf(err error) Kind {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return Unknown
}

// IsKind reports whether err is classified as kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// IsFatal reports whether err should abort the current operation rather
// than degrade it. Auth failures and hard API failures are fatal; partial
// sub-fetch failures are absorbed by the caller before reaching this check.
func IsFatal(err error) bool {
	switch KindOf(err) {
	case Auth, API:
		return true
	default:
		return false
	}
}
