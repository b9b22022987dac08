package sniffer

import (
	"strings"
)

// Dialect is the regional number and date convention inferred from samples.
type Dialect struct {
	DecimalSeparator rune
	GroupSeparator   rune
	DayFirst         bool
	Confidence       float64
	// Culture is a locale name accepted by the row parser.
	Culture string
}

// ProbeDialect inspects sample amount and date values and suggests the culture
// that produced them. Without decisive amount hints it returns fallback.
func ProbeDialect(amounts, dates []string, fallback string) Dialect {
	commaHints, pointHints := 0, 0
	for _, v := range amounts {
		switch analyzeAmountFormat(v) {
		case 1:
			commaHints++
		case -1:
			pointHints++
		}
	}

	dayFirst, monthFirst := false, false
	for _, v := range dates {
		switch analyzeDateOrder(v) {
		case 1:
			dayFirst = true
		case -1:
			monthFirst = true
		}
	}

	d := Dialect{
		DecimalSeparator: ',',
		GroupSeparator:   '.',
		DayFirst:         !monthFirst || dayFirst,
		Confidence:       0.5,
		Culture:          fallback,
	}

	total := commaHints + pointHints
	switch {
	case commaHints > pointHints:
		d.Confidence = float64(commaHints) / float64(total)
		d.Culture = "el-GR"
	case pointHints > commaHints:
		d.DecimalSeparator, d.GroupSeparator = '.', ','
		d.Confidence = float64(pointHints) / float64(total)
		if d.DayFirst {
			d.Culture = "en-GB"
		} else {
			d.Culture = "en-US"
		}
	}
	return d
}

// analyzeAmountFormat returns 1 for a decimal comma, -1 for a decimal point and
// 0 when the value is ambiguous.
func analyzeAmountFormat(val string) int {
	cleaned := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' || r == ',' || r == '.' {
			return r
		}
		return -1
	}, val)
	if cleaned == "" {
		return 0
	}

	lastComma := strings.LastIndex(cleaned, ",")
	lastDot := strings.LastIndex(cleaned, ".")
	switch {
	case lastComma >= 0 && lastDot >= 0:
		if lastComma > lastDot {
			return 1
		}
		return -1
	case lastComma >= 0:
		if len(cleaned)-lastComma-1 <= 2 {
			return 1
		}
	case lastDot >= 0:
		if len(cleaned)-lastDot-1 <= 2 {
			return -1
		}
	}
	return 0
}

// analyzeDateOrder returns 1 when the value can only be day-first, -1 when it
// can only be month-first and 0 otherwise.
func analyzeDateOrder(val string) int {
	parts := strings.FieldsFunc(val, func(r rune) bool {
		return r == '/' || r == '-' || r == '.' || r == ' '
	})
	if len(parts) < 3 || len(parts[0]) == 4 {
		return 0
	}
	first, second := atoiPrefix(parts[0]), atoiPrefix(parts[1])
	switch {
	case first > 12 && first <= 31:
		return 1
	case second > 12 && second <= 31:
		return -1
	}
	return 0
}

func atoiPrefix(s string) int {
	n := 0
	for _, c := range strings.TrimSpace(s) {
		if c < '0' || c > '9' {
			break
		}
		n = n*10 + int(c-'0')
	}
	return n
}
