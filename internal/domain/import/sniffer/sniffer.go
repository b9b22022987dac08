// Package sniffer detects the text encoding, delimiter and regional number
// format of delimited sales files before they are parsed.
package sniffer

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"

	"github.com/FACorreiaa/sales-analytics/internal/domain/import/normalizer"
)

var (
	ErrEmptyFile        = errors.New("file is empty")
	ErrInvalidDelimiter = errors.New("could not detect valid delimiter")
)

// Delimiters are tried in this order; the first wins on equal counts.
var Delimiters = []rune{',', ';', '\t'}

// DetectDelimiter returns the candidate delimiter occurring most often in line,
// ignoring occurrences inside double quotes. A line without any candidate is
// treated as comma separated.
func DetectDelimiter(line string) rune {
	line = CleanLine(line, true)

	counts := make(map[rune]int, len(Delimiters))
	inQuotes := false
	for _, r := range line {
		if r == '"' {
			inQuotes = !inQuotes
			continue
		}
		if inQuotes {
			continue
		}
		for _, d := range Delimiters {
			if r == d {
				counts[d]++
			}
		}
	}

	best, bestCount := Delimiters[0], 0
	for _, d := range Delimiters {
		if counts[d] > bestCount {
			best, bestCount = d, counts[d]
		}
	}
	return best
}

// SplitLine splits a header line on delimiter without quote handling. Used when
// the CSV reader rejects a malformed header.
func SplitLine(line string, delimiter rune) []string {
	line = CleanLine(line, true)
	if line == "" {
		return nil
	}
	parts := strings.Split(line, string(delimiter))
	for i, p := range parts {
		parts[i] = strings.TrimSpace(strings.Trim(strings.TrimSpace(p), `"`))
	}
	return parts
}

// CleanLine drops a trailing CR and, on the first line, a UTF-8 BOM.
func CleanLine(line string, firstLine bool) string {
	line = strings.TrimRight(line, "\r\n")
	if firstLine {
		line = strings.TrimPrefix(line, "\uFEFF")
	}
	return line
}

// Fingerprint hashes the normalized headers so files with the same layout can
// be recognised regardless of accents, case or column spacing.
func Fingerprint(headers []string) string {
	normalized := make([]string, 0, len(headers))
	for _, h := range headers {
		if n := normalizer.Header(h); n != "" {
			normalized = append(normalized, n)
		}
	}
	sum := sha256.Sum256([]byte(strings.Join(normalized, "|")))
	return hex.EncodeToString(sum[:])
}
