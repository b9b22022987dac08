package parser

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/FACorreiaa/sales-analytics/internal/domain/import/inference"
)

// UnknownName replaces blank product and customer names.
const UnknownName = "(unknown)"

// maxAmount is the first magnitude a NUMERIC(18,2) amount cannot hold.
var maxAmount = decimal.New(1, 16)

// ParsedFact is one typed sales row.
type ParsedFact struct {
	Date     time.Time
	Product  string
	Customer string
	Quantity int
	Amount   decimal.Decimal
}

// FieldError reports a value that could not be read for a field.
type FieldError struct {
	Field inference.CanonicalField
	Value string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("Invalid %s: '%s'", e.Field, e.Value)
}

// RowParser converts raw rows into facts. It is a value type with no state
// beyond its locale and is safe for concurrent use.
type RowParser struct {
	locale Locale
}

func NewRowParser(loc Locale) RowParser {
	return RowParser{locale: loc}
}

func (p RowParser) Locale() Locale {
	return p.locale
}

// Parse reads Date, Product, Customer, Quantity and Amount in that order.
// Quantity falls back to 1 when unmapped or unreadable; Date and Amount fail
// the row.
func (p RowParser) Parse(row RawRow, m inference.HeaderMapping) (ParsedFact, error) {
	dateCell := p.cell(row, m, inference.FieldDate)
	date, ok := p.parseDate(dateCell)
	if !ok {
		return ParsedFact{}, &FieldError{Field: inference.FieldDate, Value: dateCell.Text}
	}

	product := nameOrUnknown(p.cell(row, m, inference.FieldProduct).Text)
	customer := nameOrUnknown(p.cell(row, m, inference.FieldCustomer).Text)

	qtyCell := Cell{Text: "1"}
	if m.Has(inference.FieldQuantity) {
		qtyCell = p.cell(row, m, inference.FieldQuantity)
	}
	quantity, ok := p.parseQuantity(qtyCell)
	if !ok {
		quantity = 1
	}

	amountCell := p.cell(row, m, inference.FieldAmount)
	amount, ok := p.parseAmount(amountCell)
	if !ok {
		return ParsedFact{}, &FieldError{Field: inference.FieldAmount, Value: amountCell.Text}
	}

	return ParsedFact{
		Date:     date,
		Product:  product,
		Customer: customer,
		Quantity: quantity,
		Amount:   amount,
	}, nil
}

func (p RowParser) cell(row RawRow, m inference.HeaderMapping, f inference.CanonicalField) Cell {
	c, _ := row.Cell(m.Header(f))
	c.Text = strings.TrimSpace(c.Text)
	return c
}

func (p RowParser) parseDate(c Cell) (time.Time, bool) {
	if c.Native {
		if serial, err := strconv.ParseFloat(c.Text, 64); err == nil && serial >= 1 && serial < 2958466 {
			if t, err := excelize.ExcelDateToTime(serial, false); err == nil {
				return dateOnly(t), true
			}
		}
	}
	return ParseDate(c.Text, p.locale)
}

func (p RowParser) parseAmount(c Cell) (decimal.Decimal, bool) {
	d, ok := p.readAmount(c)
	if !ok || !d.Round(2).Abs().LessThan(maxAmount) {
		return decimal.Zero, false
	}
	return d, true
}

func (p RowParser) readAmount(c Cell) (decimal.Decimal, bool) {
	if c.Native {
		return ParseDecimal(c.Text, InvariantLocale)
	}
	if d, ok := ParseDecimal(c.Text, p.locale); ok {
		return d, true
	}
	return ParseDecimal(c.Text, InvariantLocale)
}

func (p RowParser) parseQuantity(c Cell) (int, bool) {
	if c.Native {
		return ParseInt(c.Text, InvariantLocale)
	}
	if n, ok := ParseInt(c.Text, p.locale); ok {
		return n, true
	}
	return ParseInt(c.Text, InvariantLocale)
}

func nameOrUnknown(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return UnknownName
	}
	return s
}
