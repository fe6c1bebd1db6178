package gateway

import (
	"errors"
	"fmt"
	"strings"
)

// Error is a failure reported by an external gateway.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("gateway error %s: %s", e.Code, e.Message)
}

// NewError builds a gateway error.
func NewError(code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Codes produced locally rather than by a remote gateway.
const (
	CodeCircuitOpen = "CIRCUIT_OPEN"
	CodeTimeout     = "TIMEOUT"
	CodeUnknown     = "UNKNOWN"
)

// FailureKind buckets gateway failures for user-facing messages.
type FailureKind string

const (
	FailureBalance FailureKind = "balance"
	FailureLimit   FailureKind = "limit"
	FailureCard    FailureKind = "card"
	FailureGeneric FailureKind = "generic"
)

var kindByCode = map[string]FailureKind{
	"NOT_ENOUGH_BALANCE":          FailureBalance,
	"INSUFFICIENT_BALANCE":        FailureBalance,
	"EXCEED_MAX_DAILY_PAYMENT":    FailureLimit,
	"EXCEED_MAX_PAYMENT_AMOUNT":   FailureLimit,
	"EXCEED_MAX_MONTHLY_PAYMENT":  FailureLimit,
	"INVALID_CARD_EXPIRATION":     FailureCard,
	"INVALID_STOPPED_CARD":        FailureCard,
	"INVALID_CARD_NUMBER":         FailureCard,
	"INVALID_CARD_LOST_OR_STOLEN": FailureCard,
	"RESTRICTED_CARD":             FailureCard,
	"REJECT_CARD_COMPANY":         FailureCard,
}

// Classify maps a gateway failure to a FailureKind. Classification only
// selects the message shown to the user; it never changes retry policy.
func Classify(err error) FailureKind {
	code := CodeOf(err)
	if kind, ok := kindByCode[code]; ok {
		return kind
	}
	switch {
	case strings.Contains(code, "BALANCE"):
		return FailureBalance
	case strings.Contains(code, "LIMIT") || strings.HasPrefix(code, "EXCEED"):
		return FailureLimit
	case strings.Contains(code, "CARD"):
		return FailureCard
	default:
		return FailureGeneric
	}
}

// CodeOf extracts the gateway code from err, or CodeUnknown.
func CodeOf(err error) string {
	var gwErr *Error
	if errors.As(err, &gwErr) {
		return gwErr.Code
	}
	return CodeUnknown
}

// MessageOf extracts the gateway message from err, falling back to err.Error().
func MessageOf(err error) string {
	var gwErr *Error
	if errors.As(err, &gwErr) {
		return gwErr.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
