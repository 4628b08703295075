// ABOUTME: Typed error taxonomy for the memory engine core
// ABOUTME: Wraps underlying causes the way the teacher's fmt.Errorf("...: %w") does, plus a Kind discriminant
package cortexerr

import (
	"errors"
	"fmt"

	"github.com/harper/cortexmem/internal/logging"
)

var log = logging.For("cortexerr")

// Kind discriminates the error taxonomy from spec §7. It is not a type name;
// callers branch on Kind via errors.As, never on the concrete error type.
type Kind string

const (
	InvalidInput       Kind = "invalid_input"
	NotFound           Kind = "not_found"
	NotFoundForUser    Kind = "not_found_for_user"
	ConflictingFact    Kind = "conflicting_fact"
	BackendUnavailable Kind = "backend_unavailable"
	DeadlineExceeded   Kind = "deadline_exceeded"
	Internal           Kind = "internal"
)

// Error is the rich error value the core returns: kind, message, an optional
// hint for callers, and the underlying cause if any.
type Error struct {
	Kind    Kind
	Message string
	Hint    string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

// Is lets errors.Is(err, cortexerr.NotFound) work by comparing Kind, even
// across distinct Error values.
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == other.Kind
}

// New constructs an Error. Per spec §7, Internal-kind errors must be
// surfaced and logged with their cause chain at the point they're
// constructed, since callers only ever see err.Error() from there on.
func New(kind Kind, message string) *Error {
	e := &Error{Kind: kind, Message: message}
	logInternal(e)
	return e
}

func Wrap(kind Kind, message string, cause error) *Error {
	e := &Error{Kind: kind, Message: message, Cause: cause}
	logInternal(e)
	return e
}

func logInternal(e *Error) {
	if e.Kind != Internal {
		return
	}
	log.Error(e.Message, "cause", e.Cause)
}

func WithHint(kind Kind, message, hint string) *Error {
	return &Error{Kind: kind, Message: message, Hint: hint}
}

// NotFoundErr always reports as NotFound regardless of whether the id
// existed under a different owner — callers must never disclose existence
// across users.
func NotFoundErr(what, id string) *Error {
	return &Error{Kind: NotFound, Message: fmt.Sprintf("%s %q not found", what, id)}
}

// KindOf extracts the Kind from err if it (or something it wraps) is an
// *Error, defaulting to Internal for opaque errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}
