package parser

import (
	"context"
	"errors"

	"github.com/FACorreiaa/sales-analytics/internal/domain/import/inference"
	"github.com/FACorreiaa/sales-analytics/internal/domain/import/sniffer"
)

// DefaultPreviewRows is the number of sample rows shown when none is requested.
const DefaultPreviewRows = 20

// PreviewResult describes a staged file before it is parsed.
type PreviewResult struct {
	FileType         FileKind            `json:"fileType"`
	Sheets           []string            `json:"sheets,omitempty"`
	SelectedSheet    string              `json:"selectedSheet,omitempty"`
	Headers          []string            `json:"headers"`
	SampleRows       []map[string]string `json:"sampleRows"`
	SuggestedMap     map[string]*string  `json:"suggestedMap"`
	Fingerprint      string              `json:"fingerprint"`
	SuggestedCulture string              `json:"suggestedCulture,omitempty"`
}

// Preview reads the headers and up to sample rows of src and suggests a column
// mapping for them. Unreadable sample lines are skipped.
func Preview(ctx context.Context, src Source, matcher *inference.Matcher, sample int, fallbackCulture string) (*PreviewResult, error) {
	if sample <= 0 {
		sample = DefaultPreviewRows
	}
	if matcher == nil {
		matcher = inference.DefaultMatcher()
	}

	headers, sheet, err := src.Headers(ctx)
	if err != nil {
		return nil, err
	}

	result := &PreviewResult{
		FileType:      src.Kind(),
		SelectedSheet: sheet,
		Headers:       headers,
		SampleRows:    make([]map[string]string, 0, sample),
		SuggestedMap:  make(map[string]*string, len(inference.Fields)),
		Fingerprint:   sniffer.Fingerprint(headers),
	}
	if ss, ok := src.(*SheetSource); ok {
		if result.Sheets, err = ss.Sheets(ctx); err != nil {
			return nil, err
		}
	}

	suggested := matcher.SuggestMap(headers)
	for _, f := range inference.Fields {
		if h := suggested.Header(f); h != "" {
			result.SuggestedMap[string(f)] = &h
		} else {
			result.SuggestedMap[string(f)] = nil
		}
	}

	var amounts, dates []string
	for row, err := range src.Rows(ctx) {
		if err != nil {
			var rowErr *RowError
			if errors.As(err, &rowErr) {
				continue
			}
			return nil, err
		}
		result.SampleRows = append(result.SampleRows, row.Map())
		if v := row.Get(suggested.Header(inference.FieldAmount)); v != "" {
			if c, _ := row.Cell(suggested.Header(inference.FieldAmount)); !c.Native {
				amounts = append(amounts, v)
			}
		}
		if v := row.Get(suggested.Header(inference.FieldDate)); v != "" {
			dates = append(dates, v)
		}
		if len(result.SampleRows) >= sample {
			break
		}
	}

	result.SuggestedCulture = sniffer.ProbeDialect(amounts, dates, fallbackCulture).Culture
	return result, nil
}
