// Package fault defines the error taxonomy shared across the service.
// Every recoverable error carries a machine-readable Kind and a
// human-readable reason so callers can react without string matching.
package fault

import (
	"errors"
	"fmt"
)

// Kind classifies an error for callers.
type Kind string

const (
	// KindData - corpus malformed or incomplete. Fatal at startup.
	KindData Kind = "DataError"
	// KindUnknownBook - no book name resolved from the input.
	KindUnknownBook Kind = "UnknownBookError"
	// KindAmbiguous - input matches more than one book equally well.
	KindAmbiguous Kind = "AmbiguousError"
	// KindParse - no usable reference found in the transcript.
	KindParse Kind = "ParseError"
	// KindRange - chapter or verse outside the book's actual bounds.
	KindRange Kind = "RangeError"
	// KindNotFound - reference shaped correctly but the verse is absent.
	KindNotFound Kind = "NotFoundError"
	// KindCollaborator - STT/TTS/embedding call failed or timed out.
	KindCollaborator Kind = "CollaboratorError"
	// KindProfileReload - voice-sample directory could not be read in full.
	KindProfileReload Kind = "ProfileReloadError"
)

// Error is the concrete error type used throughout the service.
type Error struct {
	Kind   Kind
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports kind equality, so errors.Is(err, &Error{Kind: k}) works
// for sentinel comparisons.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind && (t.Reason == "" || t.Reason == e.Reason)
}

// New creates an Error of the given kind with a formatted reason.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Reason: fmt.Sprintf(format, args...)}
}

// Wrap creates an Error of the given kind wrapping an underlying cause.
func Wrap(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Reason: fmt.Sprintf(format, args...), Err: err}
}

// KindOf extracts the Kind from an error chain.
// Returns false if the chain contains no *Error.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}

// Recoverable reports whether the kind is reported to the caller
// rather than terminating the process. Only DataError at startup is fatal.
func Recoverable(kind Kind) bool {
	return kind != KindData
}
