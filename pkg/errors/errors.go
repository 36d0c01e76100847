package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeValidation    Code = "VALIDATION_ERROR"
	CodeUnauthorized  Code = "UNAUTHORIZED"
	CodeForbidden     Code = "FORBIDDEN"
	CodeNotFound      Code = "NOT_FOUND"
	CodeConflict      Code = "CONFLICT"
	CodeStateConflict Code = "STATE_CONFLICT"
	CodeIdempotency   Code = "IDEMPOTENCY_KEY_REUSED"
	CodeRateLimit     Code = "RATE_LIMIT_EXCEEDED"
	CodeInternal      Code = "INTERNAL_ERROR"
	CodeDependency    Code = "DEPENDENCY_ERROR"

	// Business rule violations surfaced verbatim to callers.
	CodeInvalidInput           Code = "INVALID_INPUT"
	CodeUserNotFound           Code = "USER_NOT_FOUND"
	CodeSelfTransfer           Code = "SELF_TRANSFER"
	CodeInvalidAmount          Code = "INVALID_AMOUNT"
	CodeInsufficientFunds      Code = "INSUFFICIENT_FUNDS"
	CodeLimitExceeded          Code = "LIMIT_EXCEEDED"
	CodeDuplicateMealSlot      Code = "DUPLICATE_MEAL_SLOT"
	CodeWindowClosed           Code = "WINDOW_CLOSED"
	CodeDateIsPast             Code = "DATE_IS_PAST"
	CodeInvalidStateTransition Code = "INVALID_STATE_TRANSITION"
)

// Metadata decides how a Code is rendered over HTTP.
type Metadata struct {
	HTTPStatus     int
	Retryable      bool
	PublicMessage  string
	DetailsAllowed bool
}

type option func(*Metadata)

func retryable(m *Metadata)   { m.Retryable = true }
func withDetails(m *Metadata) { m.DetailsAllowed = true }

func meta(status int, public string, opts ...option) Metadata {
	m := Metadata{HTTPStatus: status, PublicMessage: public}
	for _, opt := range opts {
		opt(&m)
	}
	return m
}

// Business rule failures are 400s whose message is safe to show verbatim.
func businessRule(public string) Metadata {
	return meta(http.StatusBadRequest, public, withDetails)
}

var metadataByCode = map[Code]Metadata{
	CodeValidation:    meta(http.StatusBadRequest, "validation failed", withDetails),
	CodeUnauthorized:  meta(http.StatusUnauthorized, "authentication required"),
	CodeForbidden:     meta(http.StatusForbidden, "access denied"),
	CodeNotFound:      meta(http.StatusNotFound, "resource not found"),
	CodeConflict:      meta(http.StatusConflict, "conflict detected"),
	CodeStateConflict: meta(http.StatusUnprocessableEntity, "state transition disallowed", withDetails),
	CodeIdempotency:   meta(http.StatusConflict, "idempotency key reused", withDetails),
	CodeRateLimit:     meta(http.StatusTooManyRequests, "rate limit exceeded"),
	CodeInternal:      meta(http.StatusInternalServerError, "internal server error", retryable),
	CodeDependency:    meta(http.StatusServiceUnavailable, "dependency unavailable", retryable, withDetails),

	CodeInvalidInput:           businessRule("invalid input"),
	CodeUserNotFound:           businessRule("user not found"),
	CodeSelfTransfer:           businessRule("cannot transfer credit to yourself"),
	CodeInvalidAmount:          businessRule("amount must be positive"),
	CodeInsufficientFunds:      businessRule("insufficient credit"),
	CodeLimitExceeded:          businessRule("quantity exceeds item limit"),
	CodeDuplicateMealSlot:      businessRule("meal already ordered for this date"),
	CodeWindowClosed:           businessRule("cancellation window closed"),
	CodeDateIsPast:             businessRule("date is inside the reservation window"),
	CodeInvalidStateTransition: meta(http.StatusConflict, "entry already settled", withDetails),
}

// IsCode reports whether err carries the given typed code.
func IsCode(err error, code Code) bool {
	typed := As(err)
	return typed != nil && typed.Code() == code
}

func MetadataFor(code Code) Metadata {
	if meta, ok := metadataByCode[code]; ok {
		return meta
	}
	return metadataByCode[CodeInternal]
}

type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

func Wrap(code Code, err error, message string) *Error {
	if err == nil {
		return New(code, message)
	}
	return &Error{code: code, message: message, cause: err}
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

func (e *Error) WithDetails(details any) *Error {
	if e == nil {
		return nil
	}
	e.details = details
	return e
}

func (e *Error) Error() string {
	switch {
	case e == nil:
		return ""
	case e.cause != nil:
		return fmt.Sprintf("%s: %s: %v", e.code, e.message, e.cause)
	default:
		return fmt.Sprintf("%s: %s", e.code, e.message)
	}
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// Is matches another *Error by code, so errors.Is(err, New(CodeNotFound, ""))
// works regardless of message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && e != nil && t != nil && e.code == t.code
}

func As(err error) *Error {
	if err == nil {
		return nil
	}
	var typed *Error
	if stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}
