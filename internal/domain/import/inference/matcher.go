package inference

import (
	"math"
	"unicode/utf8"

	"github.com/cloudflare/ahocorasick"

	"github.com/FACorreiaa/sales-analytics/internal/domain/import/normalizer"
)

// MinConfidence is the lowest score SuggestMap accepts for a header.
const MinConfidence = 0.65

const (
	scoreExact    = 1.0
	scoreContains = 0.8
	scorePrefix   = 0.7
	maxLenPenalty = 10
)

// Matcher scores headers against a fixed synonym table. It is immutable and
// safe for concurrent use.
type Matcher struct {
	synonyms SynonymTable
	exact    map[CanonicalField]map[string]struct{}
	contains map[CanonicalField]*ahocorasick.Matcher
}

var defaultMatcher = NewMatcher(DefaultSynonyms())

// DefaultMatcher returns the matcher built from the built-in synonyms.
func DefaultMatcher() *Matcher {
	return defaultMatcher
}

// NewMatcher normalizes the table and prepares per-field lookups.
func NewMatcher(table SynonymTable) *Matcher {
	t := table.normalized()
	m := &Matcher{
		synonyms: t,
		exact:    make(map[CanonicalField]map[string]struct{}, len(t)),
		contains: make(map[CanonicalField]*ahocorasick.Matcher, len(t)),
	}
	for field, words := range t {
		set := make(map[string]struct{}, len(words))
		for _, w := range words {
			set[w] = struct{}{}
		}
		m.exact[field] = set
		m.contains[field] = ahocorasick.NewStringMatcher(words)
	}
	return m
}

// Synonyms returns the normalized synonyms for field.
func (m *Matcher) Synonyms(field CanonicalField) []string {
	return append([]string(nil), m.synonyms[field]...)
}

// Score rates how well header names field, in [0,1]:
//
//	1.0  normalized header equals a synonym
//	0.8  normalized header contains a synonym
//	0.7  normalized header starts with a synonym
//	else 0.5 - min(length difference to the closest synonym, 10)/20
func (m *Matcher) Score(header string, field CanonicalField) float64 {
	h := normalizer.Header(header)
	words := m.synonyms[field]

	if _, ok := m.exact[field][h]; ok {
		return scoreExact
	}
	if len(words) > 0 && m.contains[field].Contains([]byte(h)) {
		return scoreContains
	}
	for _, w := range words {
		if len(h) >= len(w) && h[:len(w)] == w {
			return scorePrefix
		}
	}

	minDiff := math.MaxInt
	hLen := utf8.RuneCountInString(h)
	for _, w := range words {
		d := utf8.RuneCountInString(w) - hLen
		if d < 0 {
			d = -d
		}
		minDiff = min(minDiff, d)
	}
	return 0.5 - float64(min(minDiff, maxLenPenalty))/20.0
}

// SuggestMap proposes a mapping for headers. Fields are evaluated in Fields
// order; each takes the best scoring header still unassigned (the earliest on
// ties) if it reaches MinConfidence. A header is never assigned twice.
// Unmatched fields are absent from the result.
func (m *Matcher) SuggestMap(headers []string) HeaderMapping {
	pool := append([]string(nil), headers...)
	result := make(HeaderMapping, len(Fields))

	for _, field := range Fields {
		bestIdx := -1
		bestScore := math.Inf(-1)
		for i, h := range pool {
			if s := m.Score(h, field); s > bestScore {
				bestIdx, bestScore = i, s
			}
		}
		if bestIdx < 0 || bestScore < MinConfidence {
			continue
		}
		result[field] = pool[bestIdx]
		pool = append(pool[:bestIdx], pool[bestIdx+1:]...)
	}
	return result
}

// Resolve picks the effective mapping for a file. A persisted mapping that
// covers every required field is used verbatim; anything less is ignored in
// favour of SuggestMap(headers). The two are never merged.
func (m *Matcher) Resolve(headers []string, persisted HeaderMapping) HeaderMapping {
	if persisted.Completeness() == CompleteMapping {
		return persisted.Clone()
	}
	return m.SuggestMap(headers)
}

// Score uses the default matcher.
func Score(header string, field CanonicalField) float64 {
	return defaultMatcher.Score(header, field)
}

// SuggestMap uses the default matcher.
func SuggestMap(headers []string) HeaderMapping {
	return defaultMatcher.SuggestMap(headers)
}

// Resolve uses the default matcher.
func Resolve(headers []string, persisted HeaderMapping) HeaderMapping {
	return defaultMatcher.Resolve(headers, persisted)
}
