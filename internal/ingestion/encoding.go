// Package ingestion implements channel-specific column mapping and
// normalization of raw marketplace reports into canonical sales rows.
package ingestion

import (
	"bytes"
	"fmt"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// utf8BOM is the UTF-8 byte order mark.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// DecodeResult carries the decoded text plus which encoding resolved it, for
// the audit log.
type DecodeResult struct {
	Text     string
	Encoding string
}

// candidateEncodings is the fixed detection order: UTF-8 with BOM, UTF-8,
// Latin-1, Windows-1252, ASCII.
func candidateEncodings() []struct {
	name string
	try  func([]byte) (string, bool)
} {
	return []struct {
		name string
		try  func([]byte) (string, bool)
	}{
		{"utf-8-bom", tryUTF8BOM},
		{"utf-8", tryUTF8},
		{"latin-1", tryLatin1},
		{"windows-1252", tryWindows1252},
		{"ascii", tryASCII},
	}
}

func tryUTF8BOM(raw []byte) (string, bool) {
	if !bytes.HasPrefix(raw, utf8BOM) {
		return "", false
	}
	trimmed := bytes.TrimPrefix(raw, utf8BOM)
	if !utf8.Valid(trimmed) {
		return "", false
	}
	return string(trimmed), true
}

func tryUTF8(raw []byte) (string, bool) {
	if !utf8.Valid(raw) {
		return "", false
	}
	return string(raw), true
}

func tryLatin1(raw []byte) (string, bool) {
	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(raw)
	if err != nil {
		return "", false
	}
	return string(decoded), true
}

func tryWindows1252(raw []byte) (string, bool) {
	decoded, err := charmap.Windows1252.NewDecoder().Bytes(raw)
	if err != nil {
		return "", false
	}
	return string(decoded), true
}

func tryASCII(raw []byte) (string, bool) {
	for _, b := range raw {
		if b > 0x7F {
			return "", false
		}
	}
	return string(raw), true
}

// DecodeRaw tries each candidate encoding in order and returns
// the first one that successfully decodes raw.
func DecodeRaw(raw []byte) (DecodeResult, error) {
	for _, c := range candidateEncodings() {
		if text, ok := c.try(raw); ok {
			return DecodeResult{Text: text, Encoding: c.name}, nil
		}
	}
	return DecodeResult{}, fmt.Errorf("ingestion: could not detect a usable text encoding (tried %d candidates)", len(candidateEncodings()))
}
