package core

import (
	"errors"
	"fmt"
)

// Error kinds. Every stage failure wraps exactly one of these so callers can
// classify it with errors.Is without inspecting messages.
var (
	ErrFetch            = errors.New("fetch error")
	ErrParse            = errors.New("parse error")
	ErrValidationConfig = errors.New("validation config error")
	ErrConnection       = errors.New("connection error")
	ErrSchema           = errors.New("schema error")
	ErrTransaction      = errors.New("transaction error")
	ErrTimeout          = errors.New("timeout error")
)

// Error is a classified stage failure.
type Error struct {
	Kind error  // One of the Err* kinds above
	Op   string // Operation that failed, e.g. "fetch songs"
	Err  error  // Underlying cause, may be nil
}

// E builds a classified error.
func E(kind error, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Ef builds a classified error from a formatted cause.
func Ef(kind error, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

func (e *Error) Error() string {
	msg := e.Kind.Error()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// KindOf returns the kind wrapped by err, or nil if err is unclassified.
func KindOf(err error) error {
	for _, kind := range []error{
		ErrFetch, ErrParse, ErrValidationConfig, ErrConnection,
		ErrSchema, ErrTransaction, ErrTimeout,
	} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}
