package ingestion

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"gstpipeline/internal/domain"
)

// Request carries one ingestion call's run-scoped metadata.
type Request struct {
	Channel domain.Channel
	GSTIN   string
	Month   string
	// ASINToSKU is the amazon_str seller-supplied ASIN→SKU map.
	ASINToSKU map[string]string
}

// Result is one channel's normalized output plus bookkeeping for the audit
// log and schema validator.
type Result struct {
	Rows           []domain.NormalizedRow
	Encoding       string
	SourceRowCount int
	FilteredOut    int
	// Columns records which canonical targets had a source column in the
	// input. The schema validator checks membership here rather than
	// inferring presence from the values, since zero is a legitimate value
	// for several required columns (a 0% GST rate, for one).
	Columns map[string]bool
}

var dateLayouts = []string{
	"2006-01-02", "02-01-2006", "01/02/2006", "02/01/2006",
	"2006/01/02", time.RFC3339, "Jan 2, 2006", "2 Jan 2006",
}

func parseDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func parseDecimal(raw string) decimal.Decimal {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func parseInt(raw string) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return int(f)
	}
	return 0
}

// Normalize maps one channel's raw table into canonical rows. amazon_str additionally resolves ASIN→SKU from req.ASINToSKU.
func Normalize(req Request, table RawTable) (Result, error) {
	mapping, ok := channelMappings[req.Channel]
	if !ok {
		return Result{}, fmt.Errorf("%w: %s", domain.ErrUnknownChannel, req.Channel)
	}

	res := Result{
		SourceRowCount: len(table.Rows),
		Columns:        presentTargets(req.Channel, table),
	}

	for _, raw := range table.Rows {
		if !rowFilter(req.Channel, raw) {
			res.FilteredOut++
			continue
		}

		row := domain.NormalizedRow{
			Channel: req.Channel,
			GSTIN:   req.GSTIN,
			Month:   req.Month,
			Type:    domain.RowTypeShipment,
		}

		if v, ok := firstPresent(raw, mapping["invoice_date"]); ok {
			if t, ok := parseDate(v); ok {
				row.InvoiceDate = t
			}
		}
		if v, ok := firstPresent(raw, mapping["order_id"]); ok {
			row.OrderID = v
		}
		if v, ok := firstPresent(raw, mapping["sku"]); ok {
			row.SKU = v
		}
		if v, ok := firstPresent(raw, mapping["asin"]); ok {
			row.ASIN = v
		}
		if req.Channel == domain.ChannelAmazonSTR && row.SKU == "" && row.ASIN != "" {
			row.SKU = req.ASINToSKU[row.ASIN]
		}
		if v, ok := firstPresent(raw, mapping["quantity"]); ok {
			row.Quantity = parseInt(v)
		}
		if v, ok := firstPresent(raw, mapping["taxable_value"]); ok {
			row.TaxableValue = parseDecimal(v)
		}
		if v, ok := firstPresent(raw, mapping["state_code"]); ok {
			row.StateCode = normalizeState(v)
		}

		switch req.Channel {
		case domain.ChannelAmazonMTR:
			var sum decimal.Decimal
			found := false
			for _, col := range gstRateSourceColumns {
				if v, ok := raw[col]; ok {
					sum = sum.Add(parseDecimal(v))
					found = true
				}
			}
			if found {
				row.GSTRate = sum
			}
			if typeVal, ok := firstPresent(raw, mapping["type"]); ok {
				row.Type = classifyRowType(typeVal)
			}
		case domain.ChannelAmazonSTR:
			if v, ok := firstPresent(raw, mapping["gst_rate"]); ok {
				row.GSTRate = parseDecimal(v)
			}
		default:
			if v, ok := firstPresent(raw, mapping["gst_rate"]); ok {
				row.GSTRate = parseDecimal(v)
			}
		}

		res.Rows = append(res.Rows, row)
	}

	return res, nil
}

// presentTargets reports which canonical targets have at least one source
// candidate column in the table's header row. The run-metadata targets are
// always injected, so they always count as present.
func presentTargets(channel domain.Channel, table RawTable) map[string]bool {
	headers := make(map[string]bool, len(table.Headers))
	for _, h := range table.Headers {
		headers[h] = true
	}

	out := map[string]bool{"channel": true, "gstin": true, "month": true}
	for target, candidates := range channelMappings[channel] {
		for _, c := range candidates {
			if headers[c] {
				out[target] = true
				break
			}
		}
	}
	if channel == domain.ChannelAmazonMTR {
		for _, col := range gstRateSourceColumns {
			if headers[col] {
				out["gst_rate"] = true
				break
			}
		}
	}
	return out
}

// normalizeState collapses full state names (HARYANA) and already-short
// codes (hr) to the canonical two-letter abbreviation.
func normalizeState(raw string) string {
	s := strings.ToUpper(strings.TrimSpace(raw))
	if len(s) == 2 {
		return s
	}
	if code, ok := domain.StateCodeFromName(s); ok {
		return code
	}
	return s
}

func classifyRowType(raw string) domain.RowType {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "refund":
		return domain.RowTypeRefund
	case "return":
		return domain.RowTypeReturn
	default:
		return domain.RowTypeShipment
	}
}

// MergePepperfry merges a sales table and a returns table into one
// normalized set, negating returned quantity and flagging is_return.
func MergePepperfry(req Request, sales, returns RawTable) (Result, error) {
	salesRes, err := Normalize(req, sales)
	if err != nil {
		return Result{}, err
	}
	returnsRes, err := Normalize(req, returns)
	if err != nil {
		return Result{}, err
	}

	for i := range returnsRes.Rows {
		returnsRes.Rows[i].IsReturn = true
		returnsRes.Rows[i].Type = domain.RowTypeReturn
		returnsRes.Rows[i].Quantity = -absInt(returnsRes.Rows[i].Quantity)
	}

	columns := make(map[string]bool, len(salesRes.Columns))
	for col := range salesRes.Columns {
		columns[col] = true
	}
	for col := range returnsRes.Columns {
		columns[col] = true
	}

	merged := Result{
		Rows:           append(salesRes.Rows, returnsRes.Rows...),
		Encoding:       salesRes.Encoding,
		SourceRowCount: salesRes.SourceRowCount + returnsRes.SourceRowCount,
		FilteredOut:    salesRes.FilteredOut + returnsRes.FilteredOut,
		Columns:        columns,
	}
	return merged, nil
}

func absInt(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
