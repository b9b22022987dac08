// Package templates produces the downloadable sales file templates.
package templates

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/gocarina/gocsv"
	"github.com/xuri/excelize/v2"

	"github.com/FACorreiaa/sales-analytics/pkg/respond"
)

const (
	SheetName = "Sales"
	utf8BOM   = "\uFEFF"
)

// SalesRow is one row of the sales template. Column order follows the tags.
type SalesRow struct {
	Date     string `csv:"Ημερομηνία"`
	Product  string `csv:"Προϊόν"`
	Customer string `csv:"Πελάτης"`
	Quantity string `csv:"Ποσότητα"`
	Amount   string `csv:"Ποσό"`
}

func (r SalesRow) cells() []any {
	return []any{r.Date, r.Product, r.Customer, r.Quantity, r.Amount}
}

// Headers lists the template columns in order.
var Headers = []string{"Ημερομηνία", "Προϊόν", "Πελάτης", "Ποσότητα", "Ποσό"}

// SampleRow is the example line shipped in both templates.
var SampleRow = SalesRow{
	Date:     "2025-01-01",
	Product:  "Δείγμα",
	Customer: "Πελάτης Α",
	Quantity: "1",
	Amount:   "100.00",
}

// WriteCSV writes the CSV template with a UTF-8 byte order mark so
// spreadsheet applications pick the right encoding.
func WriteCSV(w io.Writer) error {
	if _, err := io.WriteString(w, utf8BOM); err != nil {
		return err
	}
	rows := []SalesRow{SampleRow}
	if err := gocsv.Marshal(&rows, w); err != nil {
		return fmt.Errorf("failed to write csv template: %w", err)
	}
	return nil
}

// WriteXLSX writes the workbook template with a single Sales sheet.
func WriteXLSX(w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return err
	}
	header := make([]any, len(Headers))
	for i, h := range Headers {
		header[i] = h
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return err
	}
	sample := SampleRow.cells()
	if err := f.SetSheetRow(SheetName, "A2", &sample); err != nil {
		return err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	if err := f.SetRowStyle(SheetName, 1, 1, bold); err != nil {
		return err
	}
	if err := f.SetColWidth(SheetName, "A", "E", 18); err != nil {
		return err
	}
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write xlsx template: %w", err)
	}
	return nil
}

// Handler serves the templates as downloads.
type Handler struct {
	logger *slog.Logger
}

func NewHandler(logger *slog.Logger) *Handler {
	return &Handler{logger: logger}
}

func (h *Handler) SalesCSV(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, "sales_template.csv", "text/csv; charset=utf-8", WriteCSV)
}

func (h *Handler) SalesXLSX(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, "sales_template.xlsx",
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", WriteXLSX)
}

func (h *Handler) serve(w http.ResponseWriter, r *http.Request, filename, contentType string, write func(io.Writer) error) {
	var buf bytes.Buffer
	if err := write(&buf); err != nil {
		h.logger.Error("failed to render template", slog.String("file", filename), slog.Any("error", err))
		respond.Error(w, http.StatusInternalServerError, "internal error")
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
