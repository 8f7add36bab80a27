package ingestion

import (
	"strings"

	"gstpipeline/internal/domain"
)

// fieldCandidates is the ordered list of source header names one canonical
// target may be read from; the first header present in a row wins.
type fieldCandidates map[string][]string

// channelMappings is the closed, per-channel source candidate table.
var channelMappings = map[domain.Channel]fieldCandidates{
	domain.ChannelAmazonMTR: {
		"invoice_date":  {"invoice_date", "final_invoice_date"},
		"order_id":      {"order_id", "order id"},
		"sku":           {"sku"},
		"asin":          {"asin"},
		"quantity":      {"quantity"},
		"taxable_value": {"principal_amount", "tax_exclusive_gross", "invoice_amount"},
		"state_code":    {"ship_to_state", "bill_from_state"},
		"type":          {"type", "transaction_type", "line_item_type"},
	},
	domain.ChannelAmazonSTR: {
		"invoice_date":  {"invoice_date", "posting_date", "shipment_date"},
		"order_id":      {"order_id", "amazon_order_id"},
		"asin":          {"asin", "asin1"},
		"quantity":      {"quantity", "qty"},
		"taxable_value": {"principal_amount", "tax_exclusive_gross", "item_price"},
		"gst_rate":      {"igst_rate", "gst_rate", "tax_rate"},
		"state_code":    {"ship_to_state", "ship_to_state_code", "ship_state_code", "destination_state", "state_code"},
		"seller_state":  {"ship_from_state", "seller_state_code", "from_state_code", "origin_state_code"},
	},
	domain.ChannelFlipkart: {
		"invoice_date":  {"invoice_date", "order_date", "date"},
		"order_id":      {"order_id", "order"},
		"sku":           {"sku", "fsn"},
		"quantity":      {"quantity", "qty"},
		"taxable_value": {"taxable_value", "net_amount", "item_price"},
		"gst_rate":      {"gst_rate", "tax_rate"},
		"state_code":    {"ship_to_state_code", "state_code", "state"},
	},
	domain.ChannelPepperfry: {
		"invoice_date":  {"invoice_date", "date"},
		"order_id":      {"order_id", "order"},
		"sku":           {"sku", "item_sku"},
		"quantity":      {"quantity", "qty"},
		"taxable_value": {"taxable_value", "net_amount", "item_price"},
		"gst_rate":      {"gst_rate", "tax_rate"},
		"state_code":    {"state_code", "ship_to_state_code", "state"},
	},
}

// gstRateSourceColumns lists the columns amazon_mtr sums to build gst_rate.
var gstRateSourceColumns = []string{"igst_rate", "cgst_rate", "sgst_rate"}

// The numeric targets (quantity, taxable_value, gst_rate) default to 0 when
// no candidate column is present; everything else defaults to "".

// safeColumnName lowercases and underscore-normalizes a raw header.
func safeColumnName(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.ReplaceAll(s, " ", "_")
	return s
}

// firstPresent returns the first candidate header present in row, and ok.
func firstPresent(row map[string]string, candidates []string) (string, bool) {
	for _, c := range candidates {
		if v, ok := row[c]; ok {
			return v, true
		}
	}
	return "", false
}

// rowFilter reports whether a raw row (with normalized headers) should be
// kept for channel, applying the report-specific filters.
func rowFilter(channel domain.Channel, row map[string]string) bool {
	switch channel {
	case domain.ChannelAmazonMTR:
		typeVal, ok := firstPresent(row, channelMappings[channel]["type"])
		if !ok {
			return true
		}
		t := strings.ToLower(strings.TrimSpace(typeVal))
		return t == "shipment" || t == "refund"
	case domain.ChannelAmazonSTR:
		m := channelMappings[channel]
		shipState, shipOK := firstPresent(row, m["state_code"])
		sellerState, sellerOK := firstPresent(row, m["seller_state"])
		if shipOK && sellerOK {
			return !strings.EqualFold(strings.TrimSpace(shipState), strings.TrimSpace(sellerState))
		}
		return true
	default:
		return true
	}
}
