// Package apperr classifies failures so callers can branch on the kind of
// problem instead of on a message.
package apperr

import (
	"errors"
	"fmt"
)

// Kind is the failure taxonomy shared by every pipeline.
type Kind string

const (
	KindValidation  Kind = "validation"
	KindQuota       Kind = "quota"
	KindTransport   Kind = "transport"
	KindPersistence Kind = "persistence"
	KindNotFound    Kind = "not_found"
	KindInternal    Kind = "internal"
)

// Error carries a Kind, a stable machine code and a human message.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Message
	}
	if e.Message == "" {
		return e.Err.Error()
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches sentinels by identity and by code so wrapped copies still compare equal.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e == t || (t.Code != "" && e.Code == t.Code && e.Kind == t.Kind)
}

// New constructs a sentinel-style error.
func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// Wrap attaches a kind to an underlying error.
func Wrap(kind Kind, code string, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Code: code, Message: fmt.Sprintf(format, args...), Err: err}
}

// Validation builds a local validation failure.
func Validation(code, message string) *Error {
	return New(KindValidation, code, message)
}

// KindOf reports the kind of the first *Error in the chain, or KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// CodeOf reports the code of the first *Error in the chain.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsQuota reports whether err is an expected plan or credit limit condition.
func IsQuota(err error) bool {
	return KindOf(err) == KindQuota
}
