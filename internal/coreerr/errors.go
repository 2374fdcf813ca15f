// Package coreerr defines the error taxonomy shared by every fundcore subsystem.
package coreerr

import (
	"errors"
	"fmt"
)

// Category tags a fundcore error so callers can branch on kind without string matching.
type Category string

const (
	NotFound         Category = "not_found"
	InvalidInput     Category = "invalid_input"
	MarketRule       Category = "market_rule"
	AdapterError     Category = "adapter_error"
	PersistenceError Category = "persistence_error"
)

// AdapterReason sub-classifies AdapterError per the exchange/datahub contract.
type AdapterReason string

const (
	ReasonNetwork          AdapterReason = "network"
	ReasonRateLimit        AdapterReason = "rate_limit"
	ReasonAuth             AdapterReason = "auth"
	ReasonInsufficientFund AdapterReason = "insufficient_funds"
	ReasonUnknown          AdapterReason = "unknown"
)

// Error is the concrete type returned by fundcore packages. It wraps an
// underlying cause and tags it with a Category so hosts can inspect it with
// errors.As without parsing messages.
type Error struct {
	Cat    Category
	Reason AdapterReason // only meaningful when Cat == AdapterError
	Msg    string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Cat, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Cat, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Category returns the taxonomy tag, satisfying callers that only have an error.
func (e *Error) Category() Category { return e.Cat }

func NewNotFound(msg string, args ...any) error {
	return &Error{Cat: NotFound, Msg: fmt.Sprintf(msg, args...)}
}

func NewInvalidInput(msg string, args ...any) error {
	return &Error{Cat: InvalidInput, Msg: fmt.Sprintf(msg, args...)}
}

func NewMarketRule(msg string, args ...any) error {
	return &Error{Cat: MarketRule, Msg: fmt.Sprintf(msg, args...)}
}

func NewAdapterError(reason AdapterReason, err error, msg string, args ...any) error {
	return &Error{Cat: AdapterError, Reason: reason, Msg: fmt.Sprintf(msg, args...), Err: err}
}

func NewPersistenceError(err error, msg string, args ...any) error {
	return &Error{Cat: PersistenceError, Msg: fmt.Sprintf(msg, args...), Err: err}
}

// CategoryOf extracts the Category from any error in the chain, or "" if none.
func CategoryOf(err error) Category {
	var e *Error
	if errors.As(err, &e) {
		return e.Cat
	}
	return ""
}
