// Package money formats sales amounts for display. Amounts are held as
// integer minor units through go-money and converted from shopspring/decimal
// at the edges.
package money

import (
	"encoding/json"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// DefaultCurrency is used when a caller passes an unknown code.
const DefaultCurrency = "EUR"

// Money represents a monetary value with currency.
type Money struct {
	m *money.Money
}

// New creates a new Money value from minor units and currency code.
func New(amountCents int64, currencyCode string) *Money {
	return &Money{m: money.New(amountCents, currencyOrDefault(currencyCode))}
}

// NewFromDecimal creates Money from a decimal value, rounding half away from
// zero to the currency's minor unit.
func NewFromDecimal(amount decimal.Decimal, currencyCode string) *Money {
	code := currencyOrDefault(currencyCode)
	currency := money.GetCurrency(code)
	multiplier := decimal.New(1, int32(currency.Fraction))
	cents := amount.Mul(multiplier).Round(0).IntPart()
	return New(cents, code)
}

func currencyOrDefault(code string) string {
	if money.GetCurrency(code) == nil {
		return DefaultCurrency
	}
	return code
}

// Amount returns the amount in minor units.
func (m *Money) Amount() int64 {
	if m == nil || m.m == nil {
		return 0
	}
	return m.m.Amount()
}

// Currency returns the ISO-4217 currency code
func (m *Money) Currency() string {
	if m == nil || m.m == nil {
		return ""
	}
	return m.m.Currency().Code
}

// IsZero returns true if the amount is zero
func (m *Money) IsZero() bool {
	return m == nil || m.m == nil || m.m.IsZero()
}

// Add adds two Money values. Returns error if currencies don't match.
func (m *Money) Add(other *Money) (*Money, error) {
	if m == nil || m.m == nil {
		return other, nil
	}
	if other == nil || other.m == nil {
		return m, nil
	}
	result, err := m.m.Add(other.m)
	if err != nil {
		return nil, err
	}
	return &Money{m: result}, nil
}

// ToDecimal converts back to a decimal in major units.
func (m *Money) ToDecimal() decimal.Decimal {
	if m == nil || m.m == nil {
		return decimal.Zero
	}
	divisor := decimal.New(1, int32(m.m.Currency().Fraction))
	return decimal.NewFromInt(m.m.Amount()).Div(divisor)
}

// Display uses go-money's currency template, e.g. "€1,234.50".
func (m *Money) Display() string {
	if m == nil || m.m == nil {
		return ""
	}
	return m.m.Display()
}

// Format renders the amount with the separators of culture. Greek and most
// continental cultures put the symbol after the number: "1.234,50 €".
func (m *Money) Format(culture string) string {
	if m == nil || m.m == nil {
		return ""
	}
	c := m.m.Currency()
	style, ok := cultureStyles[culture]
	if !ok {
		return m.Display()
	}
	f := money.NewFormatter(c.Fraction, style.decimal, style.thousand, c.Grapheme, style.template)
	return f.Format(m.m.Amount())
}

type numberStyle struct {
	decimal, thousand, template string
}

var cultureStyles = map[string]numberStyle{
	"el-GR": {decimal: ",", thousand: ".", template: "1 $"},
	"de-DE": {decimal: ",", thousand: ".", template: "1 $"},
	"fr-FR": {decimal: ",", thousand: " ", template: "1 $"},
	"en-US": {decimal: ".", thousand: ",", template: "$1"},
	"en-GB": {decimal: ".", thousand: ",", template: "$1"},
}

// MarshalJSON writes amount, currency and display text.
func (m *Money) MarshalJSON() ([]byte, error) {
	if m == nil || m.m == nil {
		return json.Marshal(nil)
	}
	return json.Marshal(map[string]any{
		"amount":   m.ToDecimal().StringFixed(int32(m.m.Currency().Fraction)),
		"currency": m.Currency(),
		"display":  m.Display(),
	})
}
