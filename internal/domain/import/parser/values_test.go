package parser

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupLocale(t *testing.T) {
	tests := []struct {
		name       string
		decimal    rune
		group      rune
		dateSep    string
		monthFirst bool
	}{
		{"el-GR", ',', '.', "/", false},
		{"en-US", '.', ',', "/", true},
		{"en-GB", '.', ',', "/", false},
		{"de-DE", ',', '.', ".", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loc, err := LookupLocale(tt.name)
			require.NoError(t, err)
			assert.Equal(t, tt.decimal, loc.Decimal)
			assert.Equal(t, tt.group, loc.Group)
			assert.Equal(t, tt.dateSep, loc.DateSep)
			assert.Equal(t, tt.monthFirst, loc.MonthFirst)
		})
	}

	t.Run("blank is invariant", func(t *testing.T) {
		loc, err := LookupLocale("  ")
		require.NoError(t, err)
		assert.Equal(t, InvariantLocale.Name, loc.Name)
	})

	t.Run("invalid culture", func(t *testing.T) {
		_, err := LookupLocale("??")
		assert.Error(t, err)
	})
}

func TestParseDecimal(t *testing.T) {
	el := MustLocale("el-GR")

	tests := []struct {
		name  string
		input string
		loc   Locale
		want  string
		ok    bool
	}{
		{"greek decimal comma", "1234,56", el, "1234.56", true},
		{"greek grouping", "1.234,56", el, "1234.56", true},
		{"greek negative", "-1.234,56", el, "-1234.56", true},
		{"parentheses", "(12,50)", el, "-12.5", true},
		{"trailing minus", "12,50-", el, "-12.5", true},
		{"currency symbol", "€ 1.234,56", el, "1234.56", true},
		{"exponent", "1e3", el, "1000", true},
		{"point is not a greek decimal", "100.00", el, "", false},
		{"short group", "1.23.4", el, "", false},
		{"two decimal separators", "1,2,3", el, "", false},
		{"letters", "ABC", el, "", false},
		{"blank", "  ", el, "", false},
		{"invariant grouping", "1,234.56", InvariantLocale, "1234.56", true},
		{"invariant plain", "100.00", InvariantLocale, "100", true},
		{"invariant leading point", ".5", InvariantLocale, "0.5", true},
		{"invariant plus sign", "+7", InvariantLocale, "7", true},
		{"invariant rejects decimal comma", "1,5", InvariantLocale, "", false},
		{"double sign", "--5", InvariantLocale, "", false},
		{"sign inside parentheses", "(-5)", InvariantLocale, "", false},
		{"largest exponent", "1e28", InvariantLocale, "1e28", true},
		{"negative exponent", "1,5e-28", el, "1.5e-28", true},
		{"exponent too large", "1e29", InvariantLocale, "", false},
		{"huge exponent", "1e100000000", el, "", false},
		{"huge negative exponent", "1e-999999999", InvariantLocale, "", false},
		{"padded exponent", "1e0005", InvariantLocale, "100000", true},
		{"29 digits", "12345678901234567890123456789", InvariantLocale, "12345678901234567890123456789", true},
		{"30 digits", "123456789012345678901234567890", InvariantLocale, "", false},
		{"zeros are not significant", "000001,50000", el, "1.5", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseDecimal(tt.input, tt.loc)
			require.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.True(t, decimal.RequireFromString(tt.want).Equal(got), "got %s", got)
			}
		})
	}
}

func TestParseInt(t *testing.T) {
	el := MustLocale("el-GR")

	tests := []struct {
		input string
		want  int
		ok    bool
	}{
		{"3", 3, true},
		{"1.000", 1000, true},
		{"2,0", 2, true},
		{"2,5", 0, false},
		{"-2", 0, false},
		{"abc", 0, false},
		{"2147483647", 2147483647, true},
		{"2147483648", 0, false},
		{"3000000000", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := ParseInt(tt.input, el)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseDate(t *testing.T) {
	el := MustLocale("el-GR")
	us := MustLocale("en-US")
	de := MustLocale("de-DE")
	date := func(y int, m time.Month, d int) time.Time {
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	}

	tests := []struct {
		name  string
		input string
		loc   Locale
		want  time.Time
		ok    bool
	}{
		{"day first slash", "01/02/2024", el, date(2024, 2, 1), true},
		{"iso", "2024-03-15", el, date(2024, 3, 15), true},
		{"single digits", "1/2/2024", el, date(2024, 2, 1), true},
		{"dashes", "15-03-2024", el, date(2024, 3, 15), true},
		{"exact layouts are day first even for us", "13/02/2024", us, date(2024, 2, 13), true},
		{"month first falls back to invariant", "02/13/2024", el, date(2024, 2, 13), true},
		{"locale separator", "01.02.2024", de, date(2024, 2, 1), true},
		{"with time", "01/02/2024 10:30", el, date(2024, 2, 1), true},
		{"rfc3339", "2024-02-01T10:30:00Z", el, date(2024, 2, 1), true},
		{"greek month name", "1 Φεβρουαρίου 2024", el, date(2024, 2, 1), true},
		{"english month name", "Feb 1, 2024", el, date(2024, 2, 1), true},
		{"abbreviated month", "01-Feb-2024", us, date(2024, 2, 1), true},
		{"impossible day", "31/02/2024", el, time.Time{}, false},
		{"text", "not a date", el, time.Time{}, false},
		{"blank", "", el, time.Time{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseDate(tt.input, tt.loc)
			require.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
