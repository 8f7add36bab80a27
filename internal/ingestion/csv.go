package ingestion

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// RawTable is a tabular read of an input file: normalized headers plus rows
// as header→value maps, preserving input order.
type RawTable struct {
	Headers []string
	Rows    []map[string]string
}

// ReadCSV decodes raw bytes (trying the encoding candidates in order) and
// parses them as CSV, lowercasing and underscore-normalizing headers. Malformed trailing lines are skipped rather than failing the
// whole read.
func ReadCSV(raw []byte) (RawTable, string, error) {
	decoded, err := DecodeRaw(raw)
	if err != nil {
		return RawTable{}, "", err
	}

	reader := csv.NewReader(strings.NewReader(decoded.Text))
	reader.FieldsPerRecord = -1 // tolerate ragged rows instead of failing the whole file
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		return RawTable{}, decoded.Encoding, fmt.Errorf("ingestion: reading header row: %w", err)
	}
	normalizedHeader := make([]string, len(header))
	for i, h := range header {
		normalizedHeader[i] = safeColumnName(h)
	}

	var rows []map[string]string
	for {
		record, err := reader.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			// Skip malformed lines rather than aborting the ingest.
			continue
		}
		row := make(map[string]string, len(normalizedHeader))
		for i, col := range normalizedHeader {
			if i < len(record) {
				row[col] = record[i]
			} else {
				row[col] = ""
			}
		}
		rows = append(rows, row)
	}

	return RawTable{Headers: normalizedHeader, Rows: rows}, decoded.Encoding, nil
}
