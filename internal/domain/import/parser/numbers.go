package parser

import (
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

const (
	// MaxExponent and MaxDigits bound a value to the range of a 96-bit
	// decimal with scale up to 28.
	MaxExponent = 28
	MaxDigits   = 29
)

// ParseDecimal reads a number written with loc's separators. It accepts
// surrounding whitespace, a leading or trailing sign, parentheses for negative
// values, currency symbols and an exponent. Group separators are only valid
// between three digit groups of the integer part. Values with more than
// MaxDigits significant digits or an exponent beyond MaxExponent are rejected.
func ParseDecimal(s string, loc Locale) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	s = strings.Map(func(r rune) rune {
		if unicode.Is(unicode.Sc, r) {
			return -1
		}
		return r
	}, s)
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, false
	}

	negative, parens := false, false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative, parens = true, true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}

	signs := 0
	switch {
	case strings.HasPrefix(s, "-"):
		negative, signs = !negative, 1
		s = strings.TrimSpace(s[1:])
	case strings.HasPrefix(s, "+"):
		signs = 1
		s = strings.TrimSpace(s[1:])
	}
	switch {
	case strings.HasSuffix(s, "-"):
		negative, signs = !negative, signs+1
		s = strings.TrimSpace(s[:len(s)-1])
	case strings.HasSuffix(s, "+"):
		signs++
		s = strings.TrimSpace(s[:len(s)-1])
	}
	if signs > 1 || parens && signs > 0 {
		return decimal.Zero, false
	}

	mantissa, exponent := s, ""
	if i := strings.LastIndexAny(s, "eE"); i >= 0 {
		mantissa, exponent = s[:i], s[i+1:]
		if !validExponent(exponent) {
			return decimal.Zero, false
		}
	}

	intPart, fracPart := mantissa, ""
	if i := strings.IndexRune(mantissa, loc.Decimal); i >= 0 {
		intPart = mantissa[:i]
		fracPart = mantissa[i+len(string(loc.Decimal)):]
	}
	if intPart == "" && fracPart == "" {
		return decimal.Zero, false
	}
	if !allDigits(fracPart) {
		return decimal.Zero, false
	}

	digits, ok := ungroup(intPart, loc)
	if !ok {
		return decimal.Zero, false
	}
	if significant(digits, fracPart) > MaxDigits {
		return decimal.Zero, false
	}

	var b strings.Builder
	if negative {
		b.WriteByte('-')
	}
	if digits == "" {
		digits = "0"
	}
	b.WriteString(digits)
	if fracPart != "" {
		b.WriteByte('.')
		b.WriteString(fracPart)
	}
	if exponent != "" {
		b.WriteByte('e')
		b.WriteString(exponent)
	}

	d, err := decimal.NewFromString(b.String())
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// ParseInt reads a non-negative whole number written with loc's separators
// that fits a 32-bit integer column.
func ParseInt(s string, loc Locale) (int, bool) {
	d, ok := ParseDecimal(s, loc)
	if !ok || d.IsNegative() || !d.Equal(d.Truncate(0)) {
		return 0, false
	}
	if d.GreaterThan(decimal.NewFromInt(math.MaxInt32)) {
		return 0, false
	}
	return int(d.IntPart()), true
}

// significant counts digits without leading integer zeros and trailing
// fraction zeros.
func significant(intPart, fracPart string) int {
	intPart = strings.TrimLeft(intPart, "0")
	fracPart = strings.TrimRight(fracPart, "0")
	if intPart == "" {
		return len(strings.TrimLeft(fracPart, "0"))
	}
	return len(intPart) + len(fracPart)
}

// ungroup strips group separators from the integer part, rejecting groups that
// are not exactly three digits after the first.
func ungroup(s string, loc Locale) (string, bool) {
	groups := strings.FieldsFunc(s, loc.isGroup)
	if len(groups) == 0 {
		return "", s == ""
	}
	// FieldsFunc drops empty fields; a separator count mismatch means a
	// leading, trailing or doubled separator.
	seps := 0
	for _, r := range s {
		if loc.isGroup(r) {
			seps++
		}
	}
	if seps != len(groups)-1 {
		return "", false
	}

	for i, g := range groups {
		if !allDigits(g) || g == "" {
			return "", false
		}
		if i == 0 && len(g) > 3 && len(groups) > 1 {
			return "", false
		}
		if i > 0 && len(g) != 3 {
			return "", false
		}
	}
	return strings.Join(groups, ""), true
}

func validExponent(s string) bool {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "+"), "-")
	if s == "" || !allDigits(s) {
		return false
	}
	s = strings.TrimLeft(s, "0")
	if len(s) > 2 {
		return false
	}
	n, _ := strconv.Atoi("0" + s)
	return n <= MaxExponent
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
