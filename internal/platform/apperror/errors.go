// Package apperror defines the typed error kinds shared by the domain,
// application and transport layers.
package apperror

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies an error so callers can branch on it without string matching.
type Kind string

const (
	KindValidation                Kind = "validation_error"
	KindNotFound                  Kind = "not_found"
	KindForbidden                 Kind = "forbidden"
	KindUnauthorized              Kind = "unauthorized"
	KindInvalidTransition         Kind = "invalid_transition"
	KindCancellationWindowExpired Kind = "cancellation_window_expired"
	KindAlreadySettled            Kind = "already_settled"
	KindConflict                  Kind = "conflict"
	KindStoreUnavailable          Kind = "store_unavailable"
	KindInternal                  Kind = "internal"
)

// Sentinels for errors.Is comparisons. Matching is by kind only.
var (
	ErrValidation                = &Error{Kind: KindValidation}
	ErrNotFound                  = &Error{Kind: KindNotFound}
	ErrForbidden                 = &Error{Kind: KindForbidden}
	ErrUnauthorized              = &Error{Kind: KindUnauthorized}
	ErrInvalidTransition         = &Error{Kind: KindInvalidTransition}
	ErrCancellationWindowExpired = &Error{Kind: KindCancellationWindowExpired}
	ErrAlreadySettled            = &Error{Kind: KindAlreadySettled}
	ErrConflict                  = &Error{Kind: KindConflict}
	ErrStoreUnavailable          = &Error{Kind: KindStoreUnavailable}
)

// FieldError describes one invalid input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error is the application error type.
type Error struct {
	Kind    Kind
	Message string
	Fields  []FieldError
	Details map[string]string
	Err     error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if len(e.Fields) > 0 {
		parts := make([]string, len(e.Fields))
		for i, f := range e.Fields {
			parts[i] = f.Field + " " + f.Message
		}
		b.WriteString(" [")
		b.WriteString(strings.Join(parts, "; "))
		b.WriteString("]")
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// WithDetail returns a copy of err carrying an extra detail key. Non-application
// errors are returned unchanged so their kind is never widened.
func WithDetail(err error, key, value string) error {
	var appErr *Error
	if !errors.As(err, &appErr) {
		return err
	}
	cp := *appErr
	cp.Details = make(map[string]string, len(appErr.Details)+1)
	for k, v := range appErr.Details {
		cp.Details[k] = v
	}
	cp.Details[key] = value
	return &cp
}

// NewValidationError builds a validation error listing every invalid field.
func NewValidationError(message string, fields ...FieldError) *Error {
	return &Error{Kind: KindValidation, Message: message, Fields: fields}
}

// NewNotFoundError reports that an entity with the given identifier does not exist.
func NewNotFoundError(entity, id string) *Error {
	return &Error{
		Kind:    KindNotFound,
		Message: fmt.Sprintf("%s %s not found", entity, id),
		Details: map[string]string{"id": id},
	}
}

// NewForbiddenError reports an ownership or role violation.
func NewForbiddenError(message string) *Error {
	return &Error{Kind: KindForbidden, Message: message}
}

// NewUnauthorizedError reports a missing or invalid credential.
func NewUnauthorizedError(message string) *Error {
	return &Error{Kind: KindUnauthorized, Message: message}
}

// NewInvalidTransitionError reports that operation is not legal from the current status.
func NewInvalidTransitionError(currentStatus, operation string) *Error {
	return &Error{
		Kind:    KindInvalidTransition,
		Message: fmt.Sprintf("cannot %s a booking in status %s", operation, currentStatus),
		Details: map[string]string{
			"current_status": currentStatus,
			"operation":      operation,
		},
	}
}

// NewCancellationWindowExpiredError reports a cancel attempted after the window closed.
func NewCancellationWindowExpiredError(message string, details map[string]string) *Error {
	return &Error{Kind: KindCancellationWindowExpired, Message: message, Details: details}
}

// NewAlreadySettledError reports a redundant settlement.
func NewAlreadySettledError(message string) *Error {
	return &Error{Kind: KindAlreadySettled, Message: message}
}

// NewConflictError reports a lost optimistic-concurrency race.
func NewConflictError(message string) *Error {
	return &Error{Kind: KindConflict, Message: message}
}

// NewStoreUnavailableError wraps an infrastructure failure of the record store.
func NewStoreUnavailableError(op string, cause error) *Error {
	return &Error{Kind: KindStoreUnavailable, Message: op, Err: cause}
}

// NewInternalError wraps an unexpected failure.
func NewInternalError(message string, cause error) *Error {
	return &Error{Kind: KindInternal, Message: message, Err: cause}
}
