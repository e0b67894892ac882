// Package apperr is the error taxonomy shared by every handler. Errors
// carry the HTTP status they map to at the boundary; internal detail
// stays server-side.
package apperr

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/stripe/stripe-go/v75"
)

type Code string

const (
	CodeUnauthenticated  Code = "unauthenticated"
	CodeInvalidSignature Code = "invalid_signature"
	CodeValidation       Code = "validation_error"
	CodeBillingProvider  Code = "billing_provider_error"
	CodePersistence      Code = "persistence_error"
	CodeNotFound         Code = "not_found"
)

type Error struct {
	Code    Code
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func Unauthenticated(msg string) *Error {
	return &Error{Code: CodeUnauthenticated, Status: http.StatusUnauthorized, Message: msg}
}

// InvalidSignature marks a webhook whose payload failed authentication.
// It is fatal: the response status tells the provider not to bother the
// handler again with the same bytes.
func InvalidSignature(msg string) *Error {
	return &Error{Code: CodeInvalidSignature, Status: http.StatusBadRequest, Message: msg}
}

func Validation(msg string) *Error {
	return &Error{Code: CodeValidation, Status: http.StatusBadRequest, Message: msg}
}

func NotFound(msg string) *Error {
	return &Error{Code: CodeNotFound, Status: http.StatusNotFound, Message: msg}
}

// Persistence wraps a data-store failure. Webhook callers surface it as
// a 5xx so the provider redelivers the event.
func Persistence(err error) *Error {
	return &Error{
		Code:    CodePersistence,
		Status:  http.StatusInternalServerError,
		Message: "data store operation failed",
		Err:     err,
	}
}

// BillingProvider wraps a Stripe call failure, carrying the provider's
// own status code and message through unchanged when available.
func BillingProvider(err error) *Error {
	status := http.StatusBadGateway
	msg := "billing provider request failed"

	var sErr *stripe.Error
	if errors.As(err, &sErr) {
		if sErr.HTTPStatusCode != 0 {
			status = sErr.HTTPStatusCode
		}
		if sErr.Msg != "" {
			msg = sErr.Msg
		}
	}

	return &Error{Code: CodeBillingProvider, Status: status, Message: msg, Err: err}
}

// StatusOf maps any error to the HTTP status written at the boundary.
func StatusOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Status
	}
	return http.StatusInternalServerError
}

// MessageOf returns the caller-safe message for an error. Wrapped causes
// never leak past this.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "internal server error"
}

func Is(err error, code Code) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}
