package validation

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/titancoder666/polymarket-tax-engine/internal/apperrors"
)

// MinTaxYear is the first year with prediction market activity worth reporting.
const MinTaxYear = 2020

var walletPattern = regexp.MustCompile(`^0x[0-9a-f]{40}$`)

// ValidateWallet checks that input is a wallet address and returns it lowercased.
// Usernames and profile URLs are not resolved and fail with a *apperrors.ResolutionError.
func ValidateWallet(input string) (string, error) {
	wallet := strings.ToLower(strings.TrimSpace(input))
	if wallet == "" {
		return "", &apperrors.ResolutionError{Input: input, Reason: "wallet address is required"}
	}
	if !walletPattern.MatchString(wallet) {
		return "", &apperrors.ResolutionError{Input: input, Reason: "expected 0x followed by 40 hex characters"}
	}
	return wallet, nil
}

// ParseYear parses an optional tax year. An empty value means all years and yields 0.
func ParseYear(value string) (int, error) {
	value = strings.TrimSpace(value)
	if value == "" || strings.EqualFold(value, "all") {
		return 0, nil
	}

	year, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%w: %s", apperrors.ErrInvalidYear, value)
	}
	if year < MinTaxYear || year > time.Now().UTC().Year()+1 {
		return 0, fmt.Errorf("%w: %d is outside %d-%d", apperrors.ErrInvalidYear, year, MinTaxYear, time.Now().UTC().Year()+1)
	}
	return year, nil
}

// ParseFlag parses an optional boolean query parameter. Empty means false.
func ParseFlag(name, value string) (bool, error) {
	if strings.TrimSpace(value) == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, &Error{Fields: map[string]string{name: fmt.Sprintf("invalid boolean: %s", value)}}
	}
	return b, nil
}
