// Package money converts catalog prices and Stripe amounts between major
// units (decimal strings such as "49.99") and integer minor units (cents).
// All arithmetic is integer-based; floats never touch payment amounts.
package money

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Decimals is the fractional precision of all supported settlement currencies.
const Decimals = 2

// ErrInvalidFormat is returned when a price string cannot be parsed.
var ErrInvalidFormat = errors.New("money: invalid format")

// ErrOverflow is returned when an amount exceeds int64 minor units.
var ErrOverflow = errors.New("money: amount overflow")

// ToMinorUnits parses a major-unit decimal string into minor units, rounding
// half-up at two decimal places.
//
// Examples:
//   - ToMinorUnits("49.99")  -> 4999
//   - ToMinorUnits("10")     -> 1000
//   - ToMinorUnits("10.505") -> 1051
func ToMinorUnits(major string) (int64, error) {
	raw := strings.TrimSpace(major)
	negative := false
	switch {
	case strings.HasPrefix(raw, "-"):
		negative = true
		raw = raw[1:]
	case strings.HasPrefix(raw, "+"):
		raw = raw[1:]
	}
	if raw == "" || raw == "." {
		return 0, ErrInvalidFormat
	}

	parts := strings.Split(raw, ".")
	if len(parts) > 2 {
		return 0, fmt.Errorf("%w: too many decimal points", ErrInvalidFormat)
	}

	integerPart := parts[0]
	fractionalPart := ""
	if len(parts) == 2 {
		fractionalPart = parts[1]
	}
	if integerPart == "" {
		integerPart = "0"
	}

	integerVal, err := strconv.ParseInt(integerPart, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}

	var minorFromFraction int64
	if fractionalPart != "" {
		if !digitsOnly(fractionalPart) {
			return 0, fmt.Errorf("%w: non-digit fraction", ErrInvalidFormat)
		}
		if len(fractionalPart) > Decimals {
			// Truncate at two decimals and round half-up on the next digit.
			roundDigit := fractionalPart[Decimals] - '0'
			parsed, _ := strconv.ParseInt(fractionalPart[:Decimals], 10, 64)
			minorFromFraction = parsed
			if roundDigit >= 5 {
				minorFromFraction++
			}
		} else {
			for len(fractionalPart) < Decimals {
				fractionalPart += "0"
			}
			minorFromFraction, _ = strconv.ParseInt(fractionalPart, 10, 64)
		}
	}

	const multiplier = int64(100)
	if integerVal > (math.MaxInt64-minorFromFraction)/multiplier {
		return 0, ErrOverflow
	}

	total := integerVal*multiplier + minorFromFraction
	if negative {
		total = -total
	}
	return total, nil
}

// FromMinorUnits renders minor units as a major-unit string with two decimals.
//
// Examples:
//   - FromMinorUnits(4999) -> "49.99"
//   - FromMinorUnits(500)  -> "5.00"
func FromMinorUnits(minor int64) string {
	sign := ""
	if minor < 0 {
		sign = "-"
		minor = -minor
	}
	return fmt.Sprintf("%s%d.%02d", sign, minor/100, minor%100)
}

func digitsOnly(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return len(s) > 0
}
