// Package helpers provides common utility functions used across the codebase.
package helpers

import (
	"fmt"
	"math/big"
	"strings"
)

// ParseDecimal parses a plain decimal string into an exact rational.
// Only digits and at most one decimal point are accepted; scientific
// notation, signs, and grouping characters are rejected.
func ParseDecimal(s string) (*big.Rat, error) {
	if s == "" {
		return nil, fmt.Errorf("empty amount string")
	}

	var wholeStr, fracStr string
	dot := strings.IndexByte(s, '.')
	if dot >= 0 {
		wholeStr = s[:dot]
		fracStr = s[dot+1:]
		if strings.IndexByte(fracStr, '.') >= 0 {
			return nil, fmt.Errorf("invalid amount: %s", s)
		}
	} else {
		wholeStr = s
	}

	if wholeStr == "" && fracStr == "" {
		return nil, fmt.Errorf("invalid amount: %s", s)
	}

	for _, c := range wholeStr {
		if c < '0' || c > '9' {
			return nil, fmt.Errorf("invalid character in amount: %c", c)
		}
	}
	for _, c := range fracStr {
		if c < '0' || c > '9' {
			return nil, fmt.Errorf("invalid character in amount: %c", c)
		}
	}

	if wholeStr == "" {
		wholeStr = "0"
	}

	num := new(big.Int)
	if _, ok := num.SetString(wholeStr+fracStr, 10); !ok {
		return nil, fmt.Errorf("invalid amount: %s", s)
	}

	den := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(len(fracStr))), nil)
	return new(big.Rat).SetFrac(num, den), nil
}

// FormatDecimal renders a rational as a decimal string with up to the given
// number of fractional digits, trimming trailing zeros.
func FormatDecimal(r *big.Rat, decimals int) string {
	s := r.FloatString(decimals)
	if !strings.ContainsRune(s, '.') {
		return s
	}
	s = strings.TrimRight(s, "0")
	s = strings.TrimSuffix(s, ".")
	return s
}

// MulRat returns a*b as a new rational.
func MulRat(a, b *big.Rat) *big.Rat {
	return new(big.Rat).Mul(a, b)
}

// RatFromFloat converts a float (indicative prices, fee fractions) to a
// rational for exact comparisons.
func RatFromFloat(f float64) *big.Rat {
	return new(big.Rat).SetFloat64(f)
}
