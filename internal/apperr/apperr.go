// Package apperr classifies failures so handlers can map them to HTTP
// responses without inspecting message text.
package apperr

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindUnknown Kind = iota
	// KindValidation marks bad input caught before any side effect.
	KindValidation
	// KindFormat marks a malformed payload from an external workflow.
	KindFormat
	// KindTransport marks network failures and non-2xx responses.
	KindTransport
	// KindDomain marks a well-formed refusal (success:false, busy locks).
	KindDomain
	// KindInvalidState marks a rejected lifecycle transition.
	KindInvalidState
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindFormat:
		return "format"
	case KindTransport:
		return "transport"
	case KindDomain:
		return "domain"
	case KindInvalidState:
		return "invalid_state"
	default:
		return "unknown"
	}
}

type Error struct {
	kind Kind
	msg  string
	err  error
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.err)
	}
	return e.msg
}

func (e *Error) Unwrap() error { return e.err }

func (e *Error) Kind() Kind { return e.kind }

// Message is the user-facing description without the wrapped cause.
func (e *Error) Message() string { return e.msg }

func E(kind Kind, msg string) error {
	return &Error{kind: kind, msg: msg}
}

func Ef(kind Kind, format string, args ...any) error {
	return &Error{kind: kind, msg: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, msg string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{kind: kind, msg: msg, err: err}
}

// KindOf walks the wrap chain and returns the first classified kind.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.kind
	}
	return KindUnknown
}

// Message extracts the user-facing description, hiding wrapped causes.
// Unclassified errors get a generic message so internals never leak.
func Message(err error) string {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.msg
	}
	return "something went wrong"
}

func IsValidation(err error) bool   { return KindOf(err) == KindValidation }
func IsFormat(err error) bool       { return KindOf(err) == KindFormat }
func IsTransport(err error) bool    { return KindOf(err) == KindTransport }
func IsDomain(err error) bool       { return KindOf(err) == KindDomain }
func IsInvalidState(err error) bool { return KindOf(err) == KindInvalidState }
