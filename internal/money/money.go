// Package money represents monetary amounts as integer minor units (cents).
// All allocation and netting arithmetic happens on cents so binary
// floating-point drift can never leak into stored balances. Decimal
// representations exist only at API boundaries.
package money

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// Money is an amount in minor units (cents). It marshals to JSON as a
// two-decimal number and unmarshals from either a JSON number or a quoted
// decimal string.
type Money int64

// ErrInvalidAmount reports an unparseable or out-of-range decimal amount.
var ErrInvalidAmount = fmt.Errorf("invalid money amount")

// Parse converts a decimal string to Money with half-up rounding on the
// third decimal place. It accepts both dot (12.34) and comma (12,34)
// separators and an optional leading sign.
//
//	Parse("12.34")  -> 1234
//	Parse("12,345") -> 1235  (rounds up)
//	Parse("-0.5")   -> -50
func Parse(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	neg := false
	switch s[0] {
	case '+':
		s = s[1:]
	case '-':
		neg = true
		s = s[1:]
	}
	// Normalize decimal comma to dot.
	s = strings.ReplaceAll(s, ",", ".")
	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return 0, ErrInvalidAmount
	}
	intPart := parts[0]
	fracPart := ""
	if len(parts) == 2 {
		fracPart = parts[1]
	}
	// A bare separator carries no digits; a trailing one ("12.", "0.") is
	// fine and means zero cents.
	if intPart == "" && fracPart == "" {
		return 0, ErrInvalidAmount
	}
	if intPart == "" {
		intPart = "0"
	}
	for _, r := range intPart + fracPart {
		if !unicode.IsDigit(r) {
			return 0, ErrInvalidAmount
		}
	}
	iv, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	// Guard the *100 below.
	const maxSafe = (1<<63 - 1) / 100
	if iv > maxSafe {
		return 0, ErrInvalidAmount
	}
	// First two fractional digits, half-up rounding on the third.
	var fracCents int64
	if len(fracPart) > 0 {
		fracCents = int64(fracPart[0]-'0') * 10
		if len(fracPart) > 1 {
			fracCents += int64(fracPart[1] - '0')
			if len(fracPart) > 2 && fracPart[2] >= '5' {
				fracCents++
			}
		}
	}
	cents := iv*100 + fracCents
	if neg {
		cents = -cents
	}
	return Money(cents), nil
}

// String formats the amount as a signed two-decimal string, e.g. "-12.34".
func (m Money) String() string {
	sign := ""
	v := int64(m)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

// Abs returns the absolute value.
func (m Money) Abs() Money {
	if m < 0 {
		return -m
	}
	return m
}

// MarshalJSON writes the amount as a bare two-decimal number.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalJSON accepts either a JSON number or a quoted decimal string.
func (m *Money) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "null" {
		return nil
	}
	v, err := Parse(s)
	if err != nil {
		return err
	}
	*m = v
	return nil
}
