package parser

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/sales-analytics/internal/domain/import/inference"
)

var greekHeaders = []string{"Ημερομηνία", "Προϊόν", "Πελάτης", "Ποσότητα", "Ποσό"}

var greekMapping = inference.HeaderMapping{
	inference.FieldDate:     "Ημερομηνία",
	inference.FieldProduct:  "Προϊόν",
	inference.FieldCustomer: "Πελάτης",
	inference.FieldQuantity: "Ποσότητα",
	inference.FieldAmount:   "Ποσό",
}

func TestRowParser_Parse(t *testing.T) {
	p := NewRowParser(MustLocale("el-GR"))

	t.Run("parses a greek row", func(t *testing.T) {
		row := NewRawRow(greekHeaders, []string{"01/02/2024", " Καφές ", "Πελάτης Α", "3", "1234,56"})

		fact, err := p.Parse(row, greekMapping)

		require.NoError(t, err)
		assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), fact.Date)
		assert.Equal(t, "Καφές", fact.Product)
		assert.Equal(t, "Πελάτης Α", fact.Customer)
		assert.Equal(t, 3, fact.Quantity)
		assert.True(t, decimal.RequireFromString("1234.56").Equal(fact.Amount))
	})

	t.Run("invalid amount", func(t *testing.T) {
		row := NewRawRow(greekHeaders, []string{"01/02/2024", "Καφές", "Α", "1", "ABC"})

		_, err := p.Parse(row, greekMapping)

		require.Error(t, err)
		assert.Equal(t, "Invalid Amount: 'ABC'", err.Error())
		var fe *FieldError
		require.True(t, errors.As(err, &fe))
		assert.Equal(t, inference.FieldAmount, fe.Field)
	})

	t.Run("invalid date", func(t *testing.T) {
		row := NewRawRow(greekHeaders, []string{"2024/13/45", "Καφές", "Α", "1", "10"})

		_, err := p.Parse(row, greekMapping)

		require.Error(t, err)
		assert.Equal(t, "Invalid Date: '2024/13/45'", err.Error())
	})

	t.Run("amount falls back to invariant", func(t *testing.T) {
		row := NewRawRow(greekHeaders, []string{"2024-01-05", "Καφές", "Α", "1", "100.00"})

		fact, err := p.Parse(row, greekMapping)

		require.NoError(t, err)
		assert.True(t, decimal.NewFromInt(100).Equal(fact.Amount))
	})

	t.Run("unmapped quantity defaults to one", func(t *testing.T) {
		m := greekMapping.Clone()
		delete(m, inference.FieldQuantity)
		row := NewRawRow(greekHeaders, []string{"2024-01-05", "Καφές", "Α", "7", "10"})

		fact, err := p.Parse(row, m)

		require.NoError(t, err)
		assert.Equal(t, 1, fact.Quantity)
	})

	t.Run("unreadable quantity defaults to one", func(t *testing.T) {
		for _, qty := range []string{"abc", "2,5", "-3", ""} {
			row := NewRawRow(greekHeaders, []string{"2024-01-05", "Καφές", "Α", qty, "10"})

			fact, err := p.Parse(row, greekMapping)

			require.NoError(t, err, qty)
			assert.Equal(t, 1, fact.Quantity, qty)
		}
	})

	t.Run("amount must fit the fact column", func(t *testing.T) {
		for _, amount := range []string{"10.000.000.000.000.000", "1e20", "9999999999999999,995", "1e100000000"} {
			row := NewRawRow(greekHeaders, []string{"2024-01-05", "Καφές", "Α", "1", amount})

			_, err := p.Parse(row, greekMapping)

			require.Error(t, err, amount)
			assert.Equal(t, "Invalid Amount: '"+amount+"'", err.Error())
		}

		row := NewRawRow(greekHeaders, []string{"2024-01-05", "Καφές", "Α", "1", "-9.999.999.999.999.999,99"})
		fact, err := p.Parse(row, greekMapping)
		require.NoError(t, err)
		assert.True(t, decimal.RequireFromString("-9999999999999999.99").Equal(fact.Amount))
	})

	t.Run("quantity beyond int32 defaults to one", func(t *testing.T) {
		row := NewRawRow(greekHeaders, []string{"2024-01-05", "Καφές", "Α", "3000000000", "10"})

		fact, err := p.Parse(row, greekMapping)

		require.NoError(t, err)
		assert.Equal(t, 1, fact.Quantity)
	})

	t.Run("blank names become unknown", func(t *testing.T) {
		row := NewRawRow(greekHeaders, []string{"2024-01-05", "  ", "", "1", "10"})

		fact, err := p.Parse(row, greekMapping)

		require.NoError(t, err)
		assert.Equal(t, UnknownName, fact.Product)
		assert.Equal(t, UnknownName, fact.Customer)
	})

	t.Run("header lookup ignores case", func(t *testing.T) {
		m := greekMapping.Clone()
		m[inference.FieldAmount] = "ΠΟΣΌ"
		row := NewRawRow(greekHeaders, []string{"2024-01-05", "Καφές", "Α", "1", "5,5"})

		fact, err := p.Parse(row, m)

		require.NoError(t, err)
		assert.True(t, decimal.RequireFromString("5.5").Equal(fact.Amount))
	})

	t.Run("native spreadsheet numbers are invariant", func(t *testing.T) {
		row := newRow(newSchema(greekHeaders), []Cell{
			{Text: "45323", Native: true},
			{Text: "Καφές"},
			{Text: "Α"},
			{Text: "2", Native: true},
			{Text: "123.456", Native: true},
		}, 2)

		fact, err := p.Parse(row, greekMapping)

		require.NoError(t, err)
		assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), fact.Date)
		assert.Equal(t, 2, fact.Quantity)
		assert.True(t, decimal.RequireFromString("123.456").Equal(fact.Amount))
	})
}

func TestRawRow(t *testing.T) {
	row := NewRawRow([]string{"A", "a", "B"}, []string{"1", "2"})

	assert.Equal(t, "1", row.Get("a"), "first duplicate wins")
	assert.Equal(t, "", row.Get("B"), "short rows are padded")
	assert.Equal(t, "", row.Get("missing"))
	assert.Equal(t, []string{"1", "2", ""}, row.Values())
	assert.Equal(t, map[string]string{"A": "1", "a": "2", "B": ""}, row.Map())
}
