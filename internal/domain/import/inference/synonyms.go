package inference

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/FACorreiaa/sales-analytics/internal/domain/import/normalizer"
)

// SynonymTable lists the normalized header spellings accepted for each field.
type SynonymTable map[CanonicalField][]string

// DefaultSynonyms returns a fresh copy of the built-in Greek and English synonyms.
func DefaultSynonyms() SynonymTable {
	return SynonymTable{
		FieldDate:     {"ημερομηνια", "date", "transaction date", "doc date", "ημ", "ημερα"},
		FieldProduct:  {"προιον", "product", "item", "sku", "κωδικος προιοντος", "περιγραφη"},
		FieldCustomer: {"πελατης", "customer", "client", "account", "αγοραστης"},
		FieldQuantity: {"ποσοτητα", "qty", "quantity", "τεμ", "τμχ", "pieces", "units"},
		FieldAmount:   {"ποσο", "amount", "value", "total", "συνολο", "ποσον", "τιμη", "net", "καθαρο"},
	}
}

// normalized returns a table whose entries are passed through the header
// normalizer, deduplicated, with blanks dropped. Order is preserved.
func (t SynonymTable) normalized() SynonymTable {
	out := make(SynonymTable, len(t))
	for field, words := range t {
		seen := make(map[string]struct{}, len(words))
		for _, w := range words {
			n := normalizer.Header(w)
			if n == "" {
				continue
			}
			if _, dup := seen[n]; dup {
				continue
			}
			seen[n] = struct{}{}
			out[field] = append(out[field], n)
		}
	}
	return out
}

// Merge returns the union of t and extra; extra words are appended per field.
func (t SynonymTable) Merge(extra SynonymTable) SynonymTable {
	out := make(SynonymTable, len(t))
	for field, words := range t {
		out[field] = slices.Clone(words)
	}
	for field, words := range extra {
		out[field] = append(out[field], words...)
	}
	return out
}

type synonymFile struct {
	Synonyms map[string][]string `yaml:"synonyms"`
}

// LoadSynonyms reads additional synonyms from a YAML file and merges them into
// the built-in table:
//
//	synonyms:
//	  Amount: ["αξια", "gross"]
//
// An empty path or a missing file yields the built-in table.
func LoadSynonyms(path string) (SynonymTable, error) {
	base := DefaultSynonyms()
	if path == "" {
		return base, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			slog.Debug("synonyms file not found, using built-in table", slog.String("path", path))
			return base, nil
		}
		return nil, fmt.Errorf("failed to read synonyms file: %w", err)
	}

	var file synonymFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse synonyms file %s: %w", path, err)
	}

	extra := make(SynonymTable, len(file.Synonyms))
	for name, words := range file.Synonyms {
		field, ok := ParseField(name)
		if !ok {
			return nil, fmt.Errorf("synonyms file %s: unknown field %q", path, name)
		}
		extra[field] = append(extra[field], words...)
	}
	return base.Merge(extra), nil
}
