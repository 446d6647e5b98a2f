// Package core provides money parsing and handling utilities.
//
// This file contains functions for parsing amounts typed by users into
// decimals and rendering them back.
package core

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// AmountScale is the number of fractional digits an amount may carry.
const AmountScale = 2

// AmountLimit is the first amount too large to store. PostgreSQL keeps
// amounts as NUMERIC(14, 2).
var AmountLimit = decimal.New(1, 12)

var (
	// 1,250 or 12,500,000
	westernGroups = regexp.MustCompile(`^\d{1,3}(,\d{3})+$`)
	// 1,25,000 or 12,50,000
	indianGroups = regexp.MustCompile(`^\d{1,2}(,\d{2})*,\d{3}$`)
)

// ParseAmount converts a user supplied decimal string into an amount.
//
// The dot is the only decimal separator. Commas group thousands, either in
// threes or in the Indian lakh style, and a malformed grouping is rejected
// rather than guessed at. A leading currency marker (₹, Rs) is ignored.
// Zero is a valid wage amount.
//
// Examples:
//
//	ParseAmount("500")        -> 500, nil
//	ParseAmount("₹1,250.5")   -> 1250.5, nil
//	ParseAmount("1,25,000")   -> 125000, nil
//	ParseAmount("612,5")      -> error (bad grouping)
//	ParseAmount("612.555")    -> error (more than two decimals)
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "₹")
	s = strings.TrimPrefix(s, "Rs.")
	s = strings.TrimPrefix(s, "Rs")
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("%w: empty", ErrInvalidAmount)
	}
	if strings.Contains(s, ",") {
		whole, frac, hasFrac := strings.Cut(s, ".")
		if !westernGroups.MatchString(whole) && !indianGroups.MatchString(whole) {
			return decimal.Zero, fmt.Errorf("%w: bad digit grouping in %q", ErrInvalidAmount, s)
		}
		s = strings.ReplaceAll(whole, ",", "")
		if hasFrac {
			s += "." + frac
		}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if err := CheckAmount(d); err != nil {
		return decimal.Zero, err
	}
	return d, nil
}

// CheckAmount reports whether d can be stored exactly by every backend.
func CheckAmount(d decimal.Decimal) error {
	switch {
	case d.IsNegative():
		return fmt.Errorf("%w: must not be negative", ErrInvalidAmount)
	case !d.Equal(d.Truncate(AmountScale)):
		return fmt.Errorf("%w: at most %d decimal places", ErrInvalidAmount, AmountScale)
	case d.GreaterThanOrEqual(AmountLimit):
		return fmt.Errorf("%w: must be below %s", ErrInvalidAmount, AmountLimit)
	}
	return nil
}

// FormatAmount renders an amount in its natural decimal form ("500",
// "612.5"). Trailing zeros are not padded.
func FormatAmount(d decimal.Decimal) string {
	return d.String()
}
