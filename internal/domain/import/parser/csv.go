package parser

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"iter"
	"strings"

	"github.com/FACorreiaa/sales-analytics/internal/domain/import/sniffer"
)

// CSVSource reads delimited text. Encoding and delimiter are detected on
// every open.
type CSVSource struct {
	path string
	open Opener
}

func NewCSVSource(path string, open Opener) *CSVSource {
	return &CSVSource{path: path, open: open}
}

func (s *CSVSource) Kind() FileKind { return KindCSV }

// csvStream is an opened file positioned after the header line.
type csvStream struct {
	closer    io.Closer
	reader    *csv.Reader
	schema    *schema
	delimiter rune
	encoding  sniffer.Encoding
}

func (s *CSVSource) openStream(ctx context.Context) (*csvStream, error) {
	rc, err := s.open(ctx, s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	decoded, enc, err := sniffer.NewDecodingReader(rc)
	if err != nil {
		rc.Close()
		if errors.Is(err, sniffer.ErrEmptyFile) {
			return nil, ErrNoHeaders
		}
		return nil, err
	}

	br := bufio.NewReader(decoded)
	line, err := br.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		rc.Close()
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	line = sniffer.CleanLine(line, true)
	if strings.TrimSpace(line) == "" {
		rc.Close()
		return nil, ErrNoHeaders
	}

	delimiter := sniffer.DetectDelimiter(line)
	raw, err := splitHeader(line, delimiter)
	if err != nil {
		raw = sniffer.SplitLine(line, delimiter)
	}
	headers, err := cleanHeaders(raw)
	if err != nil {
		rc.Close()
		return nil, err
	}

	r := csv.NewReader(br)
	r.Comma = delimiter
	r.LazyQuotes = true
	// Leading space trimming would swallow empty tab separated fields.
	r.TrimLeadingSpace = delimiter != '\t'
	r.FieldsPerRecord = -1
	r.ReuseRecord = true

	return &csvStream{
		closer:    rc,
		reader:    r,
		schema:    newSchema(headers),
		delimiter: delimiter,
		encoding:  enc,
	}, nil
}

func splitHeader(line string, delimiter rune) ([]string, error) {
	r := csv.NewReader(strings.NewReader(line))
	r.Comma = delimiter
	r.LazyQuotes = true
	r.FieldsPerRecord = -1
	return r.Read()
}

// Headers returns the trimmed first line. CSV files have no sheets.
func (s *CSVSource) Headers(ctx context.Context) ([]string, string, error) {
	st, err := s.openStream(ctx)
	if err != nil {
		return nil, "", err
	}
	defer st.closer.Close()
	return st.schema.headers, "", nil
}

// Rows yields each data line. Lines the reader rejects are yielded as
// *RowError and iteration continues; any other error ends the sequence.
func (s *CSVSource) Rows(ctx context.Context) iter.Seq2[RawRow, error] {
	return func(yield func(RawRow, error) bool) {
		st, err := s.openStream(ctx)
		if err != nil {
			yield(RawRow{}, err)
			return
		}
		defer st.closer.Close()

		for {
			if err := ctx.Err(); err != nil {
				yield(RawRow{}, err)
				return
			}

			record, err := st.reader.Read()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				var pe *csv.ParseError
				if errors.As(err, &pe) {
					if !yield(RawRow{}, &RowError{Line: pe.StartLine + 1, Err: pe.Err}) {
						return
					}
					continue
				}
				yield(RawRow{}, fmt.Errorf("failed to read file: %w", err))
				return
			}

			line, _ := st.reader.FieldPos(0)
			cells := make([]Cell, len(record))
			for i, v := range record {
				cells[i] = Cell{Text: strings.TrimSpace(v)}
			}
			row := newRow(st.schema, cells, line+1)
			if row.blank() {
				continue
			}
			if !yield(row, nil) {
				return
			}
		}
	}
}
