// Package apperr defines the error taxonomy shared by the booking engine.
//
// Every failure that leaves the core is an *Error carrying a Kind. Callers
// classify with errors.Is against the sentinel values (ErrNotFound,
// ErrCapacityExceeded, ...) or with KindOf. User-correctable kinds carry the
// offending Field so adapters can render field-level messages.
package apperr

import (
	"context"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// Kind classifies an error.
type Kind string

const (
	KindInvalidIdentifier Kind = "invalid_identifier"
	KindNamespaceNotFound Kind = "namespace_not_found"
	KindNotFound          Kind = "not_found"
	KindCapacityExceeded  Kind = "capacity_exceeded"
	KindValidation        Kind = "validation_error"
	KindInvalidTransition Kind = "invalid_transition"
	KindUnexpected        Kind = "unexpected"
)

// Error is the concrete error type returned by the core.
type Error struct {
	Kind    Kind
	Field   string
	Message string
	// Details holds structured context such as requested/remaining spots.
	Details   map[string]any
	Retryable bool
	Err       error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Field != "" {
		msg = fmt.Sprintf("%s: %s", e.Field, msg)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error of the same Kind. Sentinels compare
// by kind only, so errors.Is(err, ErrNotFound) matches any not-found error.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Sentinels for errors.Is.
var (
	ErrInvalidIdentifier = &Error{Kind: KindInvalidIdentifier}
	ErrNamespaceNotFound = &Error{Kind: KindNamespaceNotFound}
	ErrNotFound          = &Error{Kind: KindNotFound}
	ErrCapacityExceeded  = &Error{Kind: KindCapacityExceeded}
	ErrValidation        = &Error{Kind: KindValidation}
	ErrInvalidTransition = &Error{Kind: KindInvalidTransition}
	ErrUnexpected        = &Error{Kind: KindUnexpected}
)

// InvalidIdentifier reports a namespace or identifier that failed the allow-list.
func InvalidIdentifier(msg string) *Error {
	return &Error{Kind: KindInvalidIdentifier, Message: msg}
}

// NamespaceNotFound reports an organization with no provisioned namespace.
func NamespaceNotFound(orgID string) *Error {
	return &Error{
		Kind:    KindNamespaceNotFound,
		Message: "no namespace provisioned for organization",
		Details: map[string]any{"organizationId": orgID},
	}
}

// NotFound reports a missing referenced entity. field names the input that
// carried the reference (for example "customerId").
func NotFound(field, msg string) *Error {
	return &Error{Kind: KindNotFound, Field: field, Message: msg}
}

// Validation reports malformed input on field.
func Validation(field, msg string) *Error {
	return &Error{Kind: KindValidation, Field: field, Message: msg}
}

// CapacityExceeded reports a booking that does not fit on the trip.
func CapacityExceeded(tripID string, requested, remaining int) *Error {
	if remaining < 0 {
		remaining = 0
	}
	return &Error{
		Kind:    KindCapacityExceeded,
		Field:   "tripId",
		Message: "no spots available on this trip",
		Details: map[string]any{
			"tripId":    tripID,
			"requested": requested,
			"remaining": remaining,
		},
	}
}

// InvalidTransition reports a lifecycle move that is not allowed.
func InvalidTransition(from, to string) *Error {
	return &Error{
		Kind:    KindInvalidTransition,
		Field:   "status",
		Message: fmt.Sprintf("cannot change booking status from %s to %s", from, to),
		Details: map[string]any{"from": from, "to": to},
	}
}

// Unexpected wraps an infrastructure failure.
func Unexpected(err error, msg string) *Error {
	return &Error{Kind: KindUnexpected, Message: msg, Err: err}
}

// Timeout wraps a lock or statement timeout. The caller may retry.
func Timeout(err error) *Error {
	return &Error{Kind: KindUnexpected, Message: "timed out waiting for a lock", Retryable: true, Err: err}
}

// Postgres SQLSTATE codes the core reacts to.
const (
	codeUniqueViolation  = "23505"
	codeLockNotAvailable = "55P03"
	codeQueryCanceled    = "57014"
)

// IsUniqueViolation reports whether err is a Postgres unique constraint
// violation, optionally on the named constraint.
func IsUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	if string(pqErr.Code) != codeUniqueViolation {
		return false
	}
	return constraint == "" || pqErr.Constraint == constraint
}

// IsTimeout reports whether err is a lock timeout, statement timeout or an
// expired context deadline.
func IsTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch string(pqErr.Code) {
		case codeLockNotAvailable, codeQueryCanceled:
			return true
		}
	}
	return false
}

// Classify converts an arbitrary error into an *Error. Errors already in the
// taxonomy pass through; timeouts become retryable Unexpected errors and
// everything else becomes a plain Unexpected wrapping err with msg.
func Classify(err error, msg string) error {
	if err == nil {
		return nil
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return err
	}
	if IsTimeout(err) {
		return Timeout(err)
	}
	return Unexpected(err, msg)
}

// KindOf returns the Kind of err, or KindUnexpected for errors outside the taxonomy.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindUnexpected
}

// IsRetryable reports whether err is marked retryable.
func IsRetryable(err error) bool {
	var appErr *Error
	return errors.As(err, &appErr) && appErr.Retryable
}
