// Package apperr defines the closed set of error kinds surfaced by the
// Taskpad client: local validation failures, auth gateway rejections,
// remote store failures, and transport failures.
package apperr

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindValidation Kind = iota
	KindAuth
	KindStore
	KindNetwork
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuth:
		return "auth"
	case KindStore:
		return "store"
	case KindNetwork:
		return "network"
	}
	return "unknown"
}

type Error struct {
	Kind    Kind
	Field   string // set for validation errors only
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Field != "" {
		return fmt.Sprintf("%s (%s): %s", e.Kind, e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Validation reports a pre-flight check failure on a named field.
func Validation(field, message string) *Error {
	return &Error{Kind: KindValidation, Field: field, Message: message}
}

// Auth wraps a credential or session rejection, keeping the gateway's
// message verbatim.
func Auth(message string, err error) *Error {
	return &Error{Kind: KindAuth, Message: message, Err: err}
}

// Store wraps a remote CRUD failure.
func Store(message string, err error) *Error {
	return &Error{Kind: KindStore, Message: message, Err: err}
}

// Network wraps a transport-level failure. Callers treat it the same as
// a store or auth failure; the kind exists for diagnostics only.
func Network(message string, err error) *Error {
	return &Error{Kind: KindNetwork, Message: message, Err: err}
}

// KindOf returns the kind of err if it is an *Error, or KindNetwork
// otherwise (unclassified failures are transport-shaped by default).
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindNetwork
}
