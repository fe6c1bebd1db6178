package domain

import (
	"regexp"

	dErrors "moa/pkg/domain-errors"
)

// ProductID names the subscription product a party shares (for example
// "netflix-premium"). The catalog itself lives outside this module.
//
// Usage: construct via ParseProductID at trust boundaries; direct casting
// bypasses validation.
type ProductID string

var productIDPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,63}$`)

// ParseProductID validates a product identifier.
//
// Errors: returns CodeInvalidInput when the value is empty or contains
// characters outside [a-z0-9_-].
func ParseProductID(s string) (ProductID, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "product ID cannot be empty")
	}
	if !productIDPattern.MatchString(s) {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid product ID")
	}
	return ProductID(s), nil
}
