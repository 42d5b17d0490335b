// Package apperr defines the error codes shared by the dedup guard, the payment
// ledger and the HTTP layer.
package apperr

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

// Code is a stable, machine readable error identifier.
type Code string

const (
	CodeDuplicateRequest         Code = "DUPLICATE_REQUEST"
	CodeStoreUnreachable         Code = "STORE_UNREACHABLE"
	CodeAttemptNotFound          Code = "ATTEMPT_NOT_FOUND"
	CodeInvalidAttemptTransition Code = "INVALID_ATTEMPT_TRANSITION"
	CodeOrderNotFound            Code = "ORDER_NOT_FOUND"
	CodeIdempotencyKeyReused     Code = "IDEMPOTENCY_KEY_REUSED"

	// Payment field validation.
	CodeMissingPaymentFields    Code = "MISSING_PAYMENT_FIELDS"
	CodeNegativeBalance         Code = "NEGATIVE_BALANCE"
	CodeAmountMismatch          Code = "AMOUNT_MISMATCH"
	CodeDepositExceedsTotal     Code = "DEPOSIT_EXCEEDS_TOTAL"
	CodePaymentAlreadyProcessed Code = "PAYMENT_ALREADY_PROCESSED"
	CodeNoBalanceRemaining      Code = "NO_BALANCE_REMAINING"
	CodeBalanceExceedsTotal     Code = "BALANCE_EXCEEDS_TOTAL"
	CodeChargeExceedsBalance    Code = "CHARGE_EXCEEDS_BALANCE"
)

// Error carries a Code plus an optional cause.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error with the same code, so wrapped instances compare equal
// to the sentinels below.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

var (
	ErrDuplicateRequest         = &Error{Code: CodeDuplicateRequest, Message: "duplicate request"}
	ErrStoreUnreachable         = &Error{Code: CodeStoreUnreachable, Message: "store unreachable"}
	ErrAttemptNotFound          = &Error{Code: CodeAttemptNotFound, Message: "payment attempt not found"}
	ErrInvalidAttemptTransition = &Error{Code: CodeInvalidAttemptTransition, Message: "payment attempt already settled"}
	ErrOrderNotFound            = &Error{Code: CodeOrderNotFound, Message: "order not found"}
	ErrIdempotencyKeyReused     = &Error{Code: CodeIdempotencyKeyReused, Message: "idempotency key belongs to another order"}
	ErrPaymentAlreadyProcessed  = &Error{Code: CodePaymentAlreadyProcessed, Message: "final payment already processed"}
)

// Store wraps a storage failure as STORE_UNREACHABLE. Errors that already carry
// a code are returned unchanged.
func Store(err error) error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return err
	}
	return &Error{Code: CodeStoreUnreachable, Message: "store unreachable", Err: err}
}

// ValidationError reports every violated payment invariant at once.
type ValidationError struct {
	Codes []Code
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Codes))
	for i, c := range e.Codes {
		parts[i] = string(c)
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

// Validation returns nil when codes is empty.
func Validation(codes ...Code) error {
	if len(codes) == 0 {
		return nil
	}
	return &ValidationError{Codes: codes}
}

// CodeOf extracts the code of err, or "" if it has none.
func CodeOf(err error) Code {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Code
	}
	return ""
}

func HTTPStatus(err error) int {
	var ve *ValidationError
	switch {
	case err == nil:
		return http.StatusOK

	case errors.As(err, &ve):
		return http.StatusUnprocessableEntity

	case errors.Is(err, ErrDuplicateRequest),
		errors.Is(err, ErrInvalidAttemptTransition),
		errors.Is(err, ErrPaymentAlreadyProcessed),
		errors.Is(err, ErrIdempotencyKeyReused):
		return http.StatusConflict

	case errors.Is(err, ErrAttemptNotFound),
		errors.Is(err, ErrOrderNotFound):
		return http.StatusNotFound

	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout

	case errors.Is(err, ErrStoreUnreachable):
		return http.StatusServiceUnavailable

	default:
		return http.StatusInternalServerError
	}
}
