// Package testutil generates realistic sales files for tests and benchmarks.
package testutil

import (
	"bytes"
	"encoding/csv"
	"strconv"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/shopspring/decimal"
)

// GreekHeaders is the header row of the sales template.
var GreekHeaders = []string{"Ημερομηνία", "Προϊόν", "Πελάτης", "Ποσότητα", "Ποσό"}

// SaleRow is one generated sale.
type SaleRow struct {
	Date     time.Time
	Product  string
	Customer string
	Quantity int
	Amount   decimal.Decimal
}

// SalesGenerator draws products and customers from small pools so generated
// files repeat names the way real exports do.
type SalesGenerator struct {
	faker     *gofakeit.Faker
	products  []string
	customers []string
}

// NewSalesGenerator creates a generator. The same seed yields the same rows.
func NewSalesGenerator(seed int64) *SalesGenerator {
	faker := gofakeit.New(seed)
	g := &SalesGenerator{faker: faker}
	for i := 0; i < 12; i++ {
		g.products = append(g.products, faker.ProductName())
	}
	for i := 0; i < 8; i++ {
		g.customers = append(g.customers, faker.Company())
	}
	return g
}

func (g *SalesGenerator) Row() SaleRow {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return SaleRow{
		Date:     g.faker.DateRange(start, start.AddDate(1, 0, 0)).Truncate(24 * time.Hour),
		Product:  g.faker.RandomString(g.products),
		Customer: g.faker.RandomString(g.customers),
		Quantity: g.faker.IntRange(1, 20),
		Amount:   decimal.NewFromFloat(g.faker.Price(1, 5000)).Round(2),
	}
}

func (g *SalesGenerator) Rows(n int) []SaleRow {
	rows := make([]SaleRow, n)
	for i := range rows {
		rows[i] = g.Row()
	}
	return rows
}

// GreekCells formats the row the way a Greek locale export writes it.
func (r SaleRow) GreekCells() []string {
	return []string{
		r.Date.Format("02/01/2006"),
		r.Product,
		r.Customer,
		strconv.Itoa(r.Quantity),
		strings.Replace(r.Amount.StringFixed(2), ".", ",", 1),
	}
}

// GreekCSV renders rows as a semicolon separated file with GreekHeaders.
func GreekCSV(rows []SaleRow) []byte {
	cells := make([][]string, len(rows))
	for i, r := range rows {
		cells[i] = r.GreekCells()
	}
	return CSV(GreekHeaders, cells, ';')
}

// CSV writes headers and records with the given delimiter.
func CSV(headers []string, records [][]string, delimiter rune) []byte {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Comma = delimiter
	_ = w.Write(headers)
	_ = w.WriteAll(records)
	return buf.Bytes()
}
