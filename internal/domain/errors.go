package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies every error that crosses a component boundary.
// The set is closed: adapters switch on it instead of inspecting messages.
type ErrorKind string

const (
	KindInvalidInput         ErrorKind = "INVALID_INPUT"
	KindNotFound             ErrorKind = "NOT_FOUND"
	KindValuationUnavailable ErrorKind = "VALUATION_UNAVAILABLE"
	KindStorageConflict      ErrorKind = "STORAGE_CONFLICT"
	KindInternal             ErrorKind = "INTERNAL"
)

// Sentinels for errors.Is. Any *Error of the same kind matches.
var (
	ErrInvalidInput         = &Error{Kind: KindInvalidInput}
	ErrNotFound             = &Error{Kind: KindNotFound}
	ErrValuationUnavailable = &Error{Kind: KindValuationUnavailable}
	ErrStorageConflict      = &Error{Kind: KindStorageConflict}
)

// Error is the domain error carried between layers.
type Error struct {
	Kind ErrorKind
	Op   string // operation that failed, e.g. "settlement.Transition"
	Msg  string
	Err  error // underlying cause, may be nil
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg = msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on kind only, so errors.Is(err, ErrNotFound) works for any not-found error.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// NewError builds a domain error of the given kind.
func NewError(kind ErrorKind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// WrapError attaches a kind to an underlying error.
func WrapError(kind ErrorKind, op string, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Msg: fmt.Sprintf(format, args...), Err: err}
}

// InvalidInput is shorthand for the most common validation failure.
func InvalidInput(op, format string, args ...any) *Error {
	return NewError(KindInvalidInput, op, format, args...)
}

// KindOf returns the kind of the outermost domain error in err's chain.
// Errors that never went through the domain are reported as KindInternal.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}
