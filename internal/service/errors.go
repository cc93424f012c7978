package service

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"markethub/internal/db"
)

// Kind classifies every error the services surface to the route layer. The
// mapping to HTTP status codes lives in the handlers.
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindNotFound
	KindForbidden
	KindConflict
	KindUnavailable
)

// Error is the domain error: a kind plus enough structure for the boundary
// layer to render a response.
type Error struct {
	Kind   Kind
	Field  string // set for validation errors
	Reason string // machine-readable reason code
	Msg    string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

func Validation(field, msg string) error {
	return &Error{Kind: KindValidation, Field: field, Msg: msg}
}

func NotFound(what string) error {
	return &Error{Kind: KindNotFound, Msg: what + " not found"}
}

func Forbidden(reason string) error {
	return &Error{Kind: KindForbidden, Reason: reason, Msg: "forbidden"}
}

func Conflict(reason, msg string) error {
	return &Error{Kind: KindConflict, Reason: reason, Msg: msg}
}

func Unavailable(err error) error {
	return &Error{Kind: KindUnavailable, Msg: "storage temporarily unavailable", Err: err}
}

// KindOf extracts the kind from any error returned by a service.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

const pqUniqueViolation = "23505"

// IsUniqueViolation reports whether err is a Postgres duplicate-key error.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == pqUniqueViolation
}

// storageErr translates raw repository errors: missing rows become NotFound
// for the named thing, transient failures become Unavailable, anything else
// passes through wrapped.
func storageErr(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrNoRows):
		return NotFound(what)
	case db.IsTransient(err):
		return Unavailable(err)
	default:
		return fmt.Errorf("%s: %w", what, err)
	}
}
