package challenge

import (
	"errors"
	"fmt"
)

// Code is the stable rejection code reported to callers.
type Code string

const (
	CodeNotActive         Code = "CHALLENGE_NOT_ACTIVE"
	CodeInvalidTradeType  Code = "INVALID_TRADE_TYPE"
	CodeInvalidVolume     Code = "INVALID_TRADE_VOLUME"
	CodePriceUnavailable  Code = "MARKET_PRICE_UNAVAILABLE"
	CodeInsufficientFunds Code = "INSUFFICIENT_EQUITY"
	CodeLockTimeout       Code = "LOCK_TIMEOUT"
	CodeNotFound          Code = "CHALLENGE_NOT_FOUND"
	CodeIntegrity         Code = "DATA_INTEGRITY_VIOLATION"
	CodeStoreUnavailable  Code = "STORE_UNAVAILABLE"
	CodeInvalidPlan       Code = "INVALID_PLAN"
	CodeInvalidChallenge  Code = "INVALID_CHALLENGE"
)

// RejectError is a well-formed request the engine refused. Nothing was
// mutated when one is returned.
type RejectError struct {
	Code    Code
	Message string
}

// Sentinels for errors.Is. Matching is by code only.
var (
	ErrNotActive         = &RejectError{Code: CodeNotActive}
	ErrInvalidTradeType  = &RejectError{Code: CodeInvalidTradeType}
	ErrInvalidVolume     = &RejectError{Code: CodeInvalidVolume}
	ErrPriceUnavailable  = &RejectError{Code: CodePriceUnavailable}
	ErrInsufficientFunds = &RejectError{Code: CodeInsufficientFunds}
	ErrLockTimeout       = &RejectError{Code: CodeLockTimeout}
	ErrNotFound          = &RejectError{Code: CodeNotFound}
	ErrIntegrity         = &RejectError{Code: CodeIntegrity}
	ErrStoreUnavailable  = &RejectError{Code: CodeStoreUnavailable}
	ErrInvalidPlan       = &RejectError{Code: CodeInvalidPlan}
	ErrInvalidChallenge  = &RejectError{Code: CodeInvalidChallenge}
)

// Reject builds a RejectError with a formatted message.
func Reject(code Code, format string, args ...any) *RejectError {
	return &RejectError{Code: code, Message: fmt.Sprintf(format, args...)}
}

func (e *RejectError) Error() string {
	if e.Message == "" {
		return string(e.Code)
	}
	return string(e.Code) + ": " + e.Message
}

func (e *RejectError) Is(target error) bool {
	t, ok := target.(*RejectError)
	return ok && t.Code == e.Code
}

// Retryable reports whether the caller may resubmit the same request
// unchanged and expect a different outcome.
func (e *RejectError) Retryable() bool {
	switch e.Code {
	case CodeLockTimeout, CodePriceUnavailable, CodeStoreUnavailable:
		return true
	}
	return false
}

// CodeOf extracts the rejection code from err, if any.
func CodeOf(err error) (Code, bool) {
	var re *RejectError
	if errors.As(err, &re) {
		return re.Code, true
	}
	return "", false
}
