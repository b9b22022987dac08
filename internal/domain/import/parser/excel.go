package parser

import (
	"context"
	"fmt"
	"iter"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// SheetSource reads one worksheet of an XLSX workbook. The header is the first
// row of the sheet.
type SheetSource struct {
	path      string
	open      Opener
	sheetHint string
}

func NewSheetSource(path string, open Opener, sheetHint string) *SheetSource {
	return &SheetSource{path: path, open: open, sheetHint: strings.TrimSpace(sheetHint)}
}

func (s *SheetSource) Kind() FileKind { return KindSpreadsheet }

func (s *SheetSource) workbook(ctx context.Context) (*excelize.File, error) {
	rc, err := s.open(ctx, s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer rc.Close()

	f, err := excelize.OpenReader(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	return f, nil
}

// Sheets lists the worksheet names in workbook order.
func (s *SheetSource) Sheets(ctx context.Context) ([]string, error) {
	f, err := s.workbook(ctx)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return f.GetSheetList(), nil
}

// selectSheet returns the hinted sheet when the workbook has it, else the first.
func selectSheet(f *excelize.File, hint string) (string, error) {
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return "", ErrNoHeaders
	}
	if hint != "" {
		for _, sheet := range sheets {
			if strings.EqualFold(sheet, hint) {
				return sheet, nil
			}
		}
	}
	return sheets[0], nil
}

func (s *SheetSource) Headers(ctx context.Context) ([]string, string, error) {
	f, err := s.workbook(ctx)
	if err != nil {
		return nil, "", err
	}
	defer f.Close()

	sheet, err := selectSheet(f, s.sheetHint)
	if err != nil {
		return nil, "", err
	}

	rows, err := f.Rows(sheet)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read sheet %s: %w", sheet, err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, sheet, ErrNoHeaders
	}
	raw, err := rows.Columns()
	if err != nil {
		return nil, sheet, fmt.Errorf("failed to read header row: %w", err)
	}
	headers, err := cleanHeaders(raw)
	if err != nil {
		return nil, sheet, err
	}
	return headers, sheet, nil
}

// Rows yields the data rows of the selected sheet. Numeric cells keep their
// raw invariant value and are marked Native; numbers with a date format are
// converted to yyyy-MM-dd. Blank rows are skipped.
func (s *SheetSource) Rows(ctx context.Context) iter.Seq2[RawRow, error] {
	return func(yield func(RawRow, error) bool) {
		f, err := s.workbook(ctx)
		if err != nil {
			yield(RawRow{}, err)
			return
		}
		defer f.Close()

		sheet, err := selectSheet(f, s.sheetHint)
		if err != nil {
			yield(RawRow{}, err)
			return
		}

		rows, err := f.Rows(sheet)
		if err != nil {
			yield(RawRow{}, fmt.Errorf("failed to read sheet %s: %w", sheet, err))
			return
		}
		defer rows.Close()

		if !rows.Next() {
			yield(RawRow{}, ErrNoHeaders)
			return
		}
		raw, err := rows.Columns()
		if err != nil {
			yield(RawRow{}, fmt.Errorf("failed to read header row: %w", err))
			return
		}
		headers, err := cleanHeaders(raw)
		if err != nil {
			yield(RawRow{}, err)
			return
		}
		sch := newSchema(headers)
		cells := newCellReader(f, sheet)

		line := 1
		for rows.Next() {
			line++
			if err := ctx.Err(); err != nil {
				yield(RawRow{}, err)
				return
			}

			values, err := rows.Columns(excelize.Options{RawCellValue: true})
			if err != nil {
				if !yield(RawRow{}, &RowError{Line: line, Err: err}) {
					return
				}
				continue
			}

			row := newRow(sch, cells.read(line, values), line)
			if row.blank() {
				continue
			}
			if !yield(row, nil) {
				return
			}
		}
		if err := rows.Error(); err != nil {
			yield(RawRow{}, fmt.Errorf("failed to read sheet %s: %w", sheet, err))
		}
	}
}

// cellReader types raw cell values using the cell type and number format.
type cellReader struct {
	f         *excelize.File
	sheet     string
	date1904  bool
	dateStyle map[int]bool
}

func newCellReader(f *excelize.File, sheet string) *cellReader {
	cr := &cellReader{f: f, sheet: sheet, dateStyle: make(map[int]bool)}
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		cr.date1904 = *props.Date1904
	}
	return cr
}

func (cr *cellReader) read(line int, values []string) []Cell {
	cells := make([]Cell, len(values))
	for i, v := range values {
		v = strings.TrimSpace(v)
		cells[i] = Cell{Text: v}
		if v == "" {
			continue
		}
		serial, err := strconv.ParseFloat(v, 64)
		if err != nil {
			continue
		}

		axis, err := excelize.CoordinatesToCellName(i+1, line)
		if err != nil {
			continue
		}
		typ, err := cr.f.GetCellType(cr.sheet, axis)
		if err != nil || (typ != excelize.CellTypeUnset && typ != excelize.CellTypeNumber) {
			continue
		}

		if cr.isDate(axis) {
			if t, err := excelize.ExcelDateToTime(serial, cr.date1904); err == nil {
				cells[i] = Cell{Text: t.Format("2006-01-02")}
				continue
			}
		}
		cells[i].Native = true
	}
	return cells
}

func (cr *cellReader) isDate(axis string) bool {
	idx, err := cr.f.GetCellStyle(cr.sheet, axis)
	if err != nil {
		return false
	}
	if v, ok := cr.dateStyle[idx]; ok {
		return v
	}

	isDate := false
	if style, err := cr.f.GetStyle(idx); err == nil && style != nil {
		isDate = isDateFormat(style.NumFmt, style.CustomNumFmt)
	}
	cr.dateStyle[idx] = isDate
	return isDate
}

// isDateFormat reports whether a number format shows a calendar date. Built-in
// ids 14-17 and 22 are dates; custom formats count when they contain a day or
// year token outside literals and brackets.
func isDateFormat(id int, custom *string) bool {
	if custom == nil || *custom == "" {
		return (id >= 14 && id <= 17) || id == 22
	}

	inQuote, inBracket := false, false
	for _, r := range strings.ToLower(*custom) {
		switch {
		case r == '"':
			inQuote = !inQuote
		case inQuote:
		case r == '[':
			inBracket = true
		case r == ']':
			inBracket = false
		case inBracket:
		case r == 'd' || r == 'y':
			return true
		}
	}
	return false
}
