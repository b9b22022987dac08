package sniffer

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Encoding names the text encoding a file was decoded from.
type Encoding string

const (
	EncodingUTF8        Encoding = "utf-8"
	EncodingUTF8BOM     Encoding = "utf-8-bom"
	EncodingUTF16LE     Encoding = "utf-16le"
	EncodingUTF16BE     Encoding = "utf-16be"
	EncodingWindows1253 Encoding = "windows-1253"
)

const sniffSize = 64 * 1024

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// NewDecodingReader inspects the start of r and returns a reader producing UTF-8
// without a byte order mark. Input that is neither BOM-marked nor valid UTF-8 is
// decoded as Windows-1253, the usual legacy encoding of Greek exports.
func NewDecodingReader(r io.Reader) (io.Reader, Encoding, error) {
	br := bufio.NewReaderSize(r, sniffSize)
	head, err := br.Peek(sniffSize)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return nil, "", fmt.Errorf("failed to read file header: %w", err)
	}
	if len(head) == 0 {
		return nil, "", ErrEmptyFile
	}
	truncated := len(head) == sniffSize

	switch {
	case bytes.HasPrefix(head, bomUTF8):
		if _, err := br.Discard(len(bomUTF8)); err != nil {
			return nil, "", fmt.Errorf("failed to skip byte order mark: %w", err)
		}
		return br, EncodingUTF8BOM, nil
	case bytes.HasPrefix(head, bomUTF16LE):
		dec := unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM).NewDecoder()
		return transform.NewReader(br, dec), EncodingUTF16LE, nil
	case bytes.HasPrefix(head, bomUTF16BE):
		dec := unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM).NewDecoder()
		return transform.NewReader(br, dec), EncodingUTF16BE, nil
	case validUTF8(head, truncated):
		return br, EncodingUTF8, nil
	default:
		return transform.NewReader(br, charmap.Windows1253.NewDecoder()), EncodingWindows1253, nil
	}
}

// validUTF8 reports whether b is valid UTF-8, tolerating a rune cut off at the
// end when b is only a prefix of the input.
func validUTF8(b []byte, truncated bool) bool {
	for len(b) > 0 {
		r, size := utf8.DecodeRune(b)
		if r == utf8.RuneError && size <= 1 {
			return truncated && !utf8.FullRune(b)
		}
		b = b[size:]
	}
	return true
}
