// Package cartsync reconciles a shopper's cart across the local store and the
// storefront API, derives totals, resolves coupons and migrates anonymous
// state to the server on login.
package cartsync

import (
	"errors"

	"storefront/internal/domain"
)

type ErrorKind string

const (
	KindOutOfStock     ErrorKind = "out_of_stock"
	KindNetworkFailure ErrorKind = "network_failure"
	KindInvalidCoupon  ErrorKind = "invalid_coupon"
	KindInvalidInput   ErrorKind = "invalid_input"
	KindUnauthorized   ErrorKind = "unauthorized"
)

// Error is returned by every failing Aggregator operation. Message is safe to
// show to the shopper.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return string(e.Kind) + ": " + e.Message + ": " + e.Err.Error()
	}
	return string(e.Kind) + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so errors.Is(err, ErrOutOfStock)
// works regardless of message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

var (
	ErrOutOfStock     = &Error{Kind: KindOutOfStock, Message: "This item is out of stock"}
	ErrNetworkFailure = &Error{Kind: KindNetworkFailure, Message: "Could not reach the store. Please try again."}
	ErrInvalidCoupon  = &Error{Kind: KindInvalidCoupon, Message: domain.MsgCouponInvalid}
	ErrInvalidInput   = &Error{Kind: KindInvalidInput, Message: "Invalid request"}
	ErrUnauthorized   = &Error{Kind: KindUnauthorized, Message: "Your session has expired. Please sign in again."}
)

func newError(kind ErrorKind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// classify turns a backend failure into an engine error. Validation failures
// stay invalid_input, a rejected token becomes unauthorized and everything
// else is treated as a network failure.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	if errors.Is(err, domain.ErrInvalidInput) {
		return newError(KindInvalidInput, ErrInvalidInput.Message, err)
	}
	if errors.Is(err, domain.ErrUnauthorized) {
		return newError(KindUnauthorized, ErrUnauthorized.Message, err)
	}
	return newError(KindNetworkFailure, ErrNetworkFailure.Message, err)
}

// WarningKind names a non-fatal condition reported alongside a result.
type WarningKind string

const WarnPartialAvailability WarningKind = "partial_availability"

type Warning struct {
	Kind      WarningKind
	Message   string
	ProductID string
	Requested int
	Granted   int
}
