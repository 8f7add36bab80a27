package csvexport

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gstpipeline/internal/domain"
)

func sampleRow() domain.NormalizedRow {
	return domain.NormalizedRow{
		InvoiceDate:  time.Date(2025, 8, 14, 0, 0, 0, 0, time.UTC),
		Type:         domain.RowTypeShipment,
		OrderID:      "408-1234567-8901234",
		SKU:          "ABC-001",
		ASIN:         "B0ABCDEF12",
		Quantity:     2,
		TaxableValue: decimal.NewFromInt(1000),
		GSTRate:      decimal.NewFromFloat(0.18),
		StateCode:    "HR",
		Channel:      domain.ChannelAmazonMTR,
		GSTIN:        "06ABGCS4796R1ZA",
		Month:        "2025-08",
		FG:           "Widget FG",
		LedgerName:   "Amazon Sales - HR",
	}
}

func TestWriteHeader(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteHeader(&buf))

	out := buf.Bytes()
	assert.Equal(t, BOM, out[:3], "starts with UTF-8 BOM")

	header := strings.TrimSpace(string(out[3:]))
	assert.True(t, strings.HasPrefix(header, "invoice_date,type,order_id,sku,asin"))
	assert.Equal(t, len(columns), len(strings.Split(header, ",")))
}

func TestWriteNormalizedRows(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteNormalizedRows(&buf, []domain.NormalizedRow{sampleRow()}))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[1], "2025-08-14")
	assert.Contains(t, lines[1], "1000.00")
	assert.Contains(t, lines[1], "ABC-001")
	assert.Contains(t, lines[1], "Amazon Sales - HR")
}

func TestWriteRowsDeterministic(t *testing.T) {
	rows := []domain.NormalizedRow{sampleRow(), sampleRow()}
	rows[1].SKU = "ABC-002"
	rows[1].TaxableValue = decimal.NewFromFloat(42.5)

	var first, second bytes.Buffer
	require.NoError(t, WriteNormalizedRows(&first, rows))
	require.NoError(t, WriteNormalizedRows(&second, rows))

	assert.Equal(t, first.Bytes(), second.Bytes(), "same rows produce byte-identical output")
	assert.Contains(t, second.String(), "42.50")
}

func TestNormalizedFilename(t *testing.T) {
	id := uuid.MustParse("11111111-2222-3333-4444-555555555555")
	got := NormalizedFilename(domain.ChannelFlipkart, "07AAAAA0000A1Z5", "2025-07", id)
	assert.Equal(t, "flipkart_07AAAAA0000A1Z5_2025-07_normalized_11111111-2222-3333-4444-555555555555.csv", got)
}
