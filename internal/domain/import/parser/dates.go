package parser

import (
	"strconv"
	"strings"
	"time"
)

// exactDateLayouts are tried in order, first under the row locale and then
// invariant. A "/" stands for the locale's date separator.
var exactDateLayouts = []string{
	"2006-01-02", // yyyy-MM-dd
	"02/01/2006", // dd/MM/yyyy
	"2/1/2006",   // d/M/yyyy
	"02-01-2006", // dd-MM-yyyy
	"2-1-2006",   // d-M-yyyy
}

var isoLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006/01/02",
	"2006.01.02",
	"20060102",
}

var timeSuffixes = []string{"", " 15:04", " 15:04:05", " 3:04 PM", " 3:04:05 PM"}

// ParseDate reads a calendar date. Exact layouts win over the generic parse,
// and loc wins over the invariant locale at each stage.
func ParseDate(s string, loc Locale) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	for _, layout := range exactDateLayouts {
		if t, ok := parseLayout(s, localizeLayout(layout, loc)); ok {
			return t, true
		}
		if t, ok := parseLayout(s, layout); ok {
			return t, true
		}
	}

	if t, ok := parseGeneric(s, loc); ok {
		return t, true
	}
	return parseGeneric(s, InvariantLocale)
}

func localizeLayout(layout string, loc Locale) string {
	if loc.DateSep == "/" {
		return layout
	}
	return strings.ReplaceAll(layout, "/", loc.DateSep)
}

func parseLayout(s, layout string) (time.Time, bool) {
	t, err := time.Parse(layout, s)
	if err != nil {
		return time.Time{}, false
	}
	return dateOnly(t), true
}

// parseGeneric accepts the locale's short date pattern in its own field order,
// with an optional time, ISO forms and dates with month names.
func parseGeneric(s string, loc Locale) (time.Time, bool) {
	for _, layout := range isoLayouts {
		if t, ok := parseLayout(s, layout); ok {
			return t, true
		}
	}

	short := []string{"02/01/2006", "2/1/2006", "02/01/06", "2/1/06"}
	if loc.MonthFirst {
		short = []string{"01/02/2006", "1/2/2006", "01/02/06", "1/2/06"}
	}
	for _, layout := range short {
		layout = localizeLayout(layout, loc)
		for _, suffix := range timeSuffixes {
			if t, ok := parseLayout(s, layout+suffix); ok {
				return t, true
			}
		}
	}

	return parseMonthName(s, loc)
}

// parseMonthName handles forms such as "1 Φεβρουαρίου 2024", "Feb 1, 2024"
// and "01-Feb-2024".
func parseMonthName(s string, loc Locale) (time.Time, bool) {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == ',' || r == '-' || r == '/' || r == '.'
	})
	if len(fields) != 3 {
		return time.Time{}, false
	}

	month, monthIdx := time.Month(0), -1
	for i, f := range fields {
		if m, ok := loc.month(f); ok {
			month, monthIdx = m, i
			break
		}
	}
	if monthIdx < 0 {
		return time.Time{}, false
	}

	var nums []int
	var yearIdx = -1
	for i, f := range fields {
		if i == monthIdx {
			continue
		}
		n, err := strconv.Atoi(f)
		if err != nil {
			return time.Time{}, false
		}
		if len(f) == 4 {
			yearIdx = len(nums)
		}
		nums = append(nums, n)
	}
	if yearIdx < 0 {
		yearIdx = 1
	}
	year, day := nums[yearIdx], nums[1-yearIdx]
	if year < 100 {
		year += 2000
	}

	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	if t.Day() != day || t.Month() != month {
		return time.Time{}, false
	}
	return t, true
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
