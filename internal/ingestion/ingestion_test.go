package ingestion

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gstpipeline/internal/domain"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func mtrRequest() Request {
	return Request{Channel: domain.ChannelAmazonMTR, GSTIN: "06ABGCS4796R1ZA", Month: "2025-08"}
}

func TestReadCSVNormalizesHeaders(t *testing.T) {
	raw := []byte("Invoice Date,Order ID,SKU\n2025-08-01,408-1,ABC-001\n")
	table, encoding, err := ReadCSV(raw)
	require.NoError(t, err)
	assert.Equal(t, "utf-8", encoding)
	assert.Equal(t, []string{"invoice_date", "order_id", "sku"}, table.Headers)
	require.Len(t, table.Rows, 1)
	assert.Equal(t, "ABC-001", table.Rows[0]["sku"])
}

func TestReadCSVHandlesUTF8BOM(t *testing.T) {
	raw := append([]byte{0xEF, 0xBB, 0xBF}, []byte("sku\nABC\n")...)
	table, encoding, err := ReadCSV(raw)
	require.NoError(t, err)
	assert.Equal(t, "utf-8-bom", encoding)
	assert.Equal(t, "ABC", table.Rows[0]["sku"])
}

func TestReadCSVSkipsRaggedRows(t *testing.T) {
	raw := []byte("a,b\n1,2\n3\n4,5\n")
	table, _, err := ReadCSV(raw)
	require.NoError(t, err)
	assert.Len(t, table.Rows, 3, "short rows keep their present fields")
}

func TestNormalizeAmazonMTRColumnPriority(t *testing.T) {
	table := RawTable{
		Headers: []string{"invoice_date", "sku", "quantity", "principal_amount", "invoice_amount", "igst_rate", "ship_to_state", "type"},
		Rows: []map[string]string{{
			"invoice_date":     "2025-08-14",
			"sku":              "ABC-001",
			"quantity":         "2",
			"principal_amount": "1000",
			"invoice_amount":   "9999", // lower-priority candidate must lose
			"igst_rate":        "0.18",
			"ship_to_state":    "KA",
			"type":             "Shipment",
		}},
	}
	res, err := Normalize(mtrRequest(), table)
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)

	row := res.Rows[0]
	assert.True(t, row.TaxableValue.Equal(dec("1000")), "principal_amount wins over invoice_amount")
	assert.True(t, row.GSTRate.Equal(dec("0.18")))
	assert.Equal(t, "KA", row.StateCode)
	assert.Equal(t, domain.RowTypeShipment, row.Type)
	assert.Equal(t, domain.ChannelAmazonMTR, row.Channel)
	assert.Equal(t, "06ABGCS4796R1ZA", row.GSTIN)
	assert.Equal(t, "2025-08", row.Month)
}

func TestNormalizeAmazonMTRSumsRateComponents(t *testing.T) {
	table := RawTable{
		Rows: []map[string]string{{
			"sku": "X", "cgst_rate": "0.09", "sgst_rate": "0.09",
			"principal_amount": "100", "type": "shipment",
		}},
	}
	res, err := Normalize(mtrRequest(), table)
	require.NoError(t, err)
	assert.True(t, res.Rows[0].GSTRate.Equal(dec("0.18")), "cgst+sgst components sum")
}

func TestNormalizeAmazonMTRFiltersNonShipmentRefund(t *testing.T) {
	table := RawTable{
		Rows: []map[string]string{
			{"sku": "A", "type": "Shipment", "principal_amount": "10"},
			{"sku": "B", "type": "Refund", "principal_amount": "5"},
			{"sku": "C", "type": "Cancel", "principal_amount": "7"},
		},
	}
	res, err := Normalize(mtrRequest(), table)
	require.NoError(t, err)
	assert.Len(t, res.Rows, 2)
	assert.Equal(t, 1, res.FilteredOut)
	assert.Equal(t, domain.RowTypeRefund, res.Rows[1].Type)
}

func TestNormalizeAmazonSTRInterstateFilter(t *testing.T) {
	req := Request{Channel: domain.ChannelAmazonSTR, GSTIN: "06X", Month: "2025-08"}
	table := RawTable{
		Rows: []map[string]string{
			{"asin": "B01", "ship_to_state": "KA", "ship_from_state": "HR", "item_price": "100", "igst_rate": "0.18"},
			{"asin": "B02", "ship_to_state": "HR", "ship_from_state": "HR", "item_price": "100", "igst_rate": "0.18"},
		},
	}
	res, err := Normalize(req, table)
	require.NoError(t, err)
	require.Len(t, res.Rows, 1, "same-state STR rows are dropped")
	assert.Equal(t, "B01", res.Rows[0].ASIN)
}

func TestNormalizeAmazonSTRResolvesASINToSKU(t *testing.T) {
	req := Request{
		Channel: domain.ChannelAmazonSTR, GSTIN: "06X", Month: "2025-08",
		ASINToSKU: map[string]string{"B01": "SKU-01"},
	}
	table := RawTable{Rows: []map[string]string{
		{"asin": "B01", "ship_to_state": "KA", "item_price": "100"},
	}}
	res, err := Normalize(req, table)
	require.NoError(t, err)
	assert.Equal(t, "SKU-01", res.Rows[0].SKU)
}

func TestNormalizeTracksPresentColumns(t *testing.T) {
	table := RawTable{
		Headers: []string{"invoice_date", "sku", "principal_amount", "cgst_rate", "sgst_rate", "ship_to_state", "type"},
		Rows: []map[string]string{{
			"invoice_date": "2025-08-14", "sku": "A", "principal_amount": "0",
			"cgst_rate": "0", "sgst_rate": "0", "ship_to_state": "HR", "type": "shipment",
		}},
	}
	res, err := Normalize(mtrRequest(), table)
	require.NoError(t, err)

	// Columns reflect the source header row, not the (possibly zero) values.
	assert.True(t, res.Columns["invoice_date"])
	assert.True(t, res.Columns["gst_rate"], "rate-component columns count for gst_rate")
	assert.True(t, res.Columns["state_code"])
	assert.True(t, res.Columns["taxable_value"])
	assert.True(t, res.Columns["gstin"], "injected run metadata is always present")
	assert.False(t, res.Columns["asin"], "no asin column in this source")
}

func TestNormalizeStateNamesBecomeCodes(t *testing.T) {
	table := RawTable{Rows: []map[string]string{
		{"sku": "A", "type": "shipment", "ship_to_state": "HARYANA", "principal_amount": "10"},
		{"sku": "B", "type": "shipment", "ship_to_state": "ka", "principal_amount": "10"},
	}}
	res, err := Normalize(mtrRequest(), table)
	require.NoError(t, err)
	assert.Equal(t, "HR", res.Rows[0].StateCode)
	assert.Equal(t, "KA", res.Rows[1].StateCode)
}

func TestNormalizeUnknownChannel(t *testing.T) {
	_, err := Normalize(Request{Channel: "ebay"}, RawTable{})
	assert.ErrorIs(t, err, domain.ErrUnknownChannel)
}

func TestNormalizeNumericDefaults(t *testing.T) {
	table := RawTable{Rows: []map[string]string{
		{"sku": "A", "type": "shipment"},
	}}
	res, err := Normalize(mtrRequest(), table)
	require.NoError(t, err)
	row := res.Rows[0]
	assert.Equal(t, 0, row.Quantity)
	assert.True(t, row.TaxableValue.IsZero())
	assert.True(t, row.GSTRate.IsZero())
}

func TestMergePepperfryNegatesReturns(t *testing.T) {
	req := Request{Channel: domain.ChannelPepperfry, GSTIN: "06X", Month: "2025-08"}
	sales := RawTable{Rows: []map[string]string{
		{"sku": "P1", "quantity": "4", "taxable_value": "400", "gst_rate": "0.18", "state_code": "HR"},
	}}
	returns := RawTable{Rows: []map[string]string{
		{"sku": "P1", "quantity": "1", "taxable_value": "100", "gst_rate": "0.18", "state_code": "HR"},
	}}

	res, err := MergePepperfry(req, sales, returns)
	require.NoError(t, err)
	require.Len(t, res.Rows, 2)

	assert.Equal(t, 4, res.Rows[0].Quantity)
	assert.False(t, res.Rows[0].IsReturn)
	assert.Equal(t, -1, res.Rows[1].Quantity, "return quantity negated")
	assert.True(t, res.Rows[1].IsReturn)
	assert.Equal(t, domain.RowTypeReturn, res.Rows[1].Type)
}

func TestDecodeRawEncodingCascade(t *testing.T) {
	utf8Res, err := DecodeRaw([]byte("plain ascii"))
	require.NoError(t, err)
	assert.Equal(t, "utf-8", utf8Res.Encoding)

	// 0xE9 is é in Latin-1 but invalid standalone UTF-8.
	latinRes, err := DecodeRaw([]byte{'c', 'a', 'f', 0xE9})
	require.NoError(t, err)
	assert.Equal(t, "latin-1", latinRes.Encoding)
	assert.Equal(t, "café", latinRes.Text)
}
