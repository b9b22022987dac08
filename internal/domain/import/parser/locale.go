package parser

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/FACorreiaa/sales-analytics/internal/domain/import/normalizer"
)

// DefaultCulture is used when a data source has no culture configured.
const DefaultCulture = "el-GR"

// Locale holds the regional conventions used to read numbers and dates.
type Locale struct {
	Name       string
	Tag        language.Tag
	Decimal    rune
	Group      rune
	DateSep    string
	MonthFirst bool

	months map[string]time.Month
}

// InvariantLocale mirrors culture-neutral formatting: point decimals, comma
// grouping, month-first dates and English month names.
var InvariantLocale = Locale{
	Name:       "invariant",
	Tag:        language.Und,
	Decimal:    '.',
	Group:      ',',
	DateSep:    "/",
	MonthFirst: true,
	months:     englishMonths,
}

// dateSeparators lists languages whose short date pattern does not use "/".
var dateSeparators = map[string]string{
	"de": ".", "ru": ".", "uk": ".", "pl": ".", "cs": ".", "sk": ".",
	"fi": ".", "nb": ".", "da": "-", "tr": ".", "ro": ".", "bg": ".",
	"hu": ".", "nl": "-", "sv": "-", "lt": "-", "zh": "/", "ja": "/",
}

var (
	englishMonths = buildMonths([][]string{
		{"january", "jan"}, {"february", "feb"}, {"march", "mar"},
		{"april", "apr"}, {"may"}, {"june", "jun"},
		{"july", "jul"}, {"august", "aug"}, {"september", "sep", "sept"},
		{"october", "oct"}, {"november", "nov"}, {"december", "dec"},
	})
	greekMonths = buildMonths([][]string{
		{"Ιανουάριος", "Ιανουαρίου", "Ιαν"},
		{"Φεβρουάριος", "Φεβρουαρίου", "Φεβ"},
		{"Μάρτιος", "Μαρτίου", "Μαρ"},
		{"Απρίλιος", "Απριλίου", "Απρ"},
		{"Μάιος", "Μαΐου", "Μαΐ", "Μαϊ"},
		{"Ιούνιος", "Ιουνίου", "Ιουν"},
		{"Ιούλιος", "Ιουλίου", "Ιουλ"},
		{"Αύγουστος", "Αυγούστου", "Αυγ"},
		{"Σεπτέμβριος", "Σεπτεμβρίου", "Σεπ"},
		{"Οκτώβριος", "Οκτωβρίου", "Οκτ"},
		{"Νοέμβριος", "Νοεμβρίου", "Νοε"},
		{"Δεκέμβριος", "Δεκεμβρίου", "Δεκ"},
	})
)

func buildMonths(names [][]string) map[string]time.Month {
	out := make(map[string]time.Month)
	for i, forms := range names {
		for _, f := range forms {
			out[normalizer.Header(f)] = time.Month(i + 1)
		}
	}
	return out
}

// LookupLocale resolves a culture name such as "el-GR" or "en-US". Separators
// come from CLDR data. An empty name or "invariant" returns InvariantLocale.
func LookupLocale(name string) (Locale, error) {
	name = strings.TrimSpace(name)
	if name == "" || strings.EqualFold(name, "invariant") {
		return InvariantLocale, nil
	}

	tag, err := language.Parse(name)
	if err != nil {
		return Locale{}, fmt.Errorf("invalid culture %q: %w", name, err)
	}

	loc := Locale{
		Name:    name,
		Tag:     tag,
		Decimal: '.',
		Group:   ',',
		DateSep: "/",
		months:  englishMonths,
	}
	if dec, grp, ok := separatorsFor(tag); ok {
		loc.Decimal, loc.Group = dec, grp
	}

	base, _ := tag.Base()
	if sep, ok := dateSeparators[base.String()]; ok {
		loc.DateSep = sep
	}
	if base.String() == "el" {
		loc.months = mergeMonths(greekMonths, englishMonths)
	}

	region, conf := tag.Region()
	loc.MonthFirst = region.String() == "US" && conf != language.No
	return loc, nil
}

// MustLocale is LookupLocale for known-good names.
func MustLocale(name string) Locale {
	loc, err := LookupLocale(name)
	if err != nil {
		panic(err)
	}
	return loc
}

// separatorsFor formats a sample number with the locale's CLDR pattern and
// reads the separators back out of it.
func separatorsFor(tag language.Tag) (decimal, group rune, ok bool) {
	out := message.NewPrinter(tag).Sprint(number.Decimal(1234567.5))

	var seps []rune
	for _, r := range out {
		if !unicode.IsDigit(r) {
			seps = append(seps, r)
		}
	}
	if len(seps) < 2 {
		return 0, 0, false
	}
	return seps[len(seps)-1], seps[0], true
}

func mergeMonths(tables ...map[string]time.Month) map[string]time.Month {
	out := make(map[string]time.Month)
	for _, t := range tables {
		for k, v := range t {
			out[k] = v
		}
	}
	return out
}

// month resolves a month name or abbreviation.
func (l Locale) month(s string) (time.Month, bool) {
	m, ok := l.months[normalizer.Header(strings.TrimSuffix(s, "."))]
	return m, ok
}

func (l Locale) isGroup(r rune) bool {
	if r == l.Group {
		return true
	}
	// NBSP grouping locales are often typed with a plain space.
	if l.Group == '\u00a0' || l.Group == '\u202f' {
		return r == ' ' || r == '\u00a0' || r == '\u202f'
	}
	return false
}

func (l Locale) String() string {
	return l.Name
}
