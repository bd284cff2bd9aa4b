// Package apperr defines the error values returned by command handlers,
// reconciliation jobs and the public resolver.
//
// Callers branch on the kind with errors.Is and show Message to the user.
// Raw store errors never cross this boundary unwrapped: they are always
// carried inside a StoreError.
package apperr

import (
	"errors"
	"fmt"
)

// Error kinds.
var (
	// ErrValidation means caller input broke an invariant. Retrying the same
	// input will fail again.
	ErrValidation = errors.New("validation error")

	// ErrConflict means existing data blocks the operation.
	ErrConflict = errors.New("conflict")

	// ErrNotFound means the referenced entity or token does not exist.
	ErrNotFound = errors.New("not found")

	// ErrStore means the data store call failed or timed out. The whole
	// operation may be retried.
	ErrStore = errors.New("store error")
)

// Error is a classified failure.
type Error struct {
	Kind    error
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

func Validation(format string, args ...any) error {
	return &Error{Kind: ErrValidation, Message: fmt.Sprintf(format, args...)}
}

func Conflict(format string, args ...any) error {
	return &Error{Kind: ErrConflict, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...any) error {
	return &Error{Kind: ErrNotFound, Message: fmt.Sprintf(format, args...)}
}

// Store wraps a failed store call. op names what was being attempted
// ("create assignment") and becomes the user-visible message.
func Store(op string, err error) error {
	return &Error{Kind: ErrStore, Message: op + " failed", Err: err}
}

// Message returns the user-facing text for err. Unclassified errors get a
// generic message so internals are never leaked.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "internal error"
}
