// Package parser reads CSV and spreadsheet sales files as a lazy sequence of
// rows and converts each row into a typed fact using locale-aware rules.
package parser

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"path/filepath"
	"strconv"
	"strings"
)

// FileKind identifies the reader used for a file.
type FileKind string

const (
	KindCSV         FileKind = "csv"
	KindSpreadsheet FileKind = "spreadsheet"
)

// SupportedExtensions lists the accepted upload extensions. Legacy .xls
// workbooks are not among them: excelize reads only the OOXML format.
var SupportedExtensions = []string{".csv", ".xlsx"}

var ErrNoHeaders = errors.New("file has no header row")

// UnsupportedFileTypeError is returned for extensions without a reader.
type UnsupportedFileTypeError struct {
	Ext string
}

func (e *UnsupportedFileTypeError) Error() string {
	if e.Ext == ".xls" {
		return "Unsupported file type: .xls. Save the workbook as .xlsx."
	}
	return "Unsupported file type: " + e.Ext
}

// RowError reports a data line the reader could not split into cells. It is
// recoverable: iteration continues with the next line.
type RowError struct {
	Line int
	Err  error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *RowError) Unwrap() error { return e.Err }

// Opener opens a stored file for reading.
type Opener func(ctx context.Context, path string) (io.ReadCloser, error)

// Source is a tabular file read as a header row followed by data rows. Every
// call reopens the file, so Rows may be iterated more than once.
type Source interface {
	Kind() FileKind
	Headers(ctx context.Context) (headers []string, sheet string, err error)
	Rows(ctx context.Context) iter.Seq2[RawRow, error]
}

// Open picks the reader for path by extension.
func Open(path string, open Opener, sheetHint string) (Source, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".csv":
		return NewCSVSource(path, open), nil
	case ".xlsx":
		return NewSheetSource(path, open, sheetHint), nil
	default:
		return nil, &UnsupportedFileTypeError{Ext: ext}
	}
}

// IsSupported reports whether name has an accepted extension.
func IsSupported(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range SupportedExtensions {
		if e == ext {
			return true
		}
	}
	return false
}

// Cell is one raw value. Native marks a numeric spreadsheet value, which is
// always written with invariant separators.
type Cell struct {
	Text   string
	Native bool
}

type schema struct {
	headers []string
	index   map[string]int
}

func newSchema(headers []string) *schema {
	s := &schema{headers: headers, index: make(map[string]int, len(headers))}
	for i, h := range headers {
		key := strings.ToLower(strings.TrimSpace(h))
		if _, dup := s.index[key]; !dup {
			s.index[key] = i
		}
	}
	return s
}

// RawRow is one data row keyed by header. Lookups ignore case and the first of
// several identically named columns wins.
type RawRow struct {
	schema *schema
	cells  []Cell
	Line   int
}

// NewRawRow builds a row of text cells.
func NewRawRow(headers, values []string) RawRow {
	cells := make([]Cell, len(values))
	for i, v := range values {
		cells[i] = Cell{Text: v}
	}
	return newRow(newSchema(headers), cells, 0)
}

func newRow(s *schema, cells []Cell, line int) RawRow {
	if len(cells) < len(s.headers) {
		padded := make([]Cell, len(s.headers))
		copy(padded, cells)
		cells = padded
	}
	return RawRow{schema: s, cells: cells[:len(s.headers)], Line: line}
}

// Cell returns the cell under header and whether the header exists.
func (r RawRow) Cell(header string) (Cell, bool) {
	if r.schema == nil {
		return Cell{}, false
	}
	i, ok := r.schema.index[strings.ToLower(strings.TrimSpace(header))]
	if !ok {
		return Cell{}, false
	}
	return r.cells[i], true
}

// Get returns the text under header, or "" when the header is absent.
func (r RawRow) Get(header string) string {
	c, _ := r.Cell(header)
	return c.Text
}

// Headers returns the column names in file order.
func (r RawRow) Headers() []string {
	if r.schema == nil {
		return nil
	}
	return r.schema.headers
}

// Values returns the cell texts in file order.
func (r RawRow) Values() []string {
	out := make([]string, len(r.cells))
	for i, c := range r.cells {
		out[i] = c.Text
	}
	return out
}

// Map returns the row as header to text, keeping the first duplicate.
func (r RawRow) Map() map[string]string {
	out := make(map[string]string, len(r.cells))
	for i, h := range r.Headers() {
		if _, dup := out[h]; !dup {
			out[h] = r.cells[i].Text
		}
	}
	return out
}

func (r RawRow) blank() bool {
	for _, c := range r.cells {
		if strings.TrimSpace(c.Text) != "" {
			return false
		}
	}
	return true
}

// cleanHeaders trims header names and names blank ones by position.
func cleanHeaders(raw []string) ([]string, error) {
	headers := make([]string, len(raw))
	named := false
	for i, h := range raw {
		h = strings.TrimSpace(h)
		if h == "" {
			h = "Column" + strconv.Itoa(i+1)
		} else {
			named = true
		}
		headers[i] = h
	}
	if !named {
		return nil, ErrNoHeaders
	}
	return headers, nil
}
