// Package exception runs the detection passes that scan normalized rows
// for the closed error-code taxonomy's violations.
package exception

import (
	"encoding/json"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"

	"gstpipeline/internal/domain"
)

var validGSTRates = map[string]bool{"0": true, "0.05": true, "0.12": true, "0.18": true, "0.28": true}

// validStateCodes is the closed 36-entry abbreviation set state_code is
// checked against (distinct from the GSTIN numeric codes in
// domain/states.go, which key by full state name).
var validStateCodes = map[string]bool{
	"AP": true, "AR": true, "AS": true, "BR": true, "CG": true, "GA": true, "GJ": true, "HR": true,
	"HP": true, "JH": true, "KA": true, "KL": true, "MP": true, "MH": true, "MN": true, "ML": true,
	"MZ": true, "NL": true, "OR": true, "PB": true, "RJ": true, "SK": true, "TN": true, "TS": true,
	"TR": true, "UP": true, "UK": true, "WB": true, "AN": true, "CH": true, "DH": true, "DL": true,
	"JK": true, "LA": true, "LD": true, "PY": true,
}

var registry = domain.NewErrorCodeRegistry()

var invoicePatterns = map[domain.Channel]*regexp.Regexp{
	domain.ChannelAmazonMTR:  regexp.MustCompile(`^AMZ[A-Z]{2}\d{9}$`),
	domain.ChannelAmazonSTR:  regexp.MustCompile(`^AMZST[A-Z]{2}\d{9}$`),
	domain.ChannelFlipkart:   regexp.MustCompile(`^FLIP[A-Z]{2}\d{9}$`),
	domain.ChannelPepperfry:  regexp.MustCompile(`^PEPP[A-Z]{2}\d{9}$`),
}

// New builds an Exception record for one row, marshaling details to JSON.
func New(runID uuid.UUID, recordType, recordID, errorCode, message string, details map[string]interface{}) domain.Exception {
	def, _ := registry.Lookup(errorCode)
	raw, _ := json.Marshal(details)
	return domain.Exception{
		ID:           uuid.New(),
		RunID:        runID,
		RecordType:   recordType,
		RecordID:     recordID,
		ErrorCode:    errorCode,
		ErrorMessage: message,
		ErrorDetails: raw,
		Severity:     def.Severity,
		CreatedAt:    time.Now(),
	}
}

// DetectMapping finds unmapped SKUs/ASINs and unmapped ledgers.
func DetectMapping(runID uuid.UUID, rows []domain.NormalizedRow, recordType string) []domain.Exception {
	var out []domain.Exception
	for i, row := range rows {
		switch {
		case row.SKU != "" && !row.ItemResolved:
			out = append(out, New(runID, recordType, row.SKU, "MAP-001", "SKU not found in item_master table", map[string]interface{}{
				"sku": row.SKU, "asin": row.ASIN, "channel": row.Channel, "row_index": i,
			}))
		case row.SKU == "" && row.ASIN != "" && !row.ItemResolved:
			out = append(out, New(runID, recordType, row.ASIN, "MAP-002", "ASIN not found in item_master table", map[string]interface{}{
				"asin": row.ASIN, "channel": row.Channel, "row_index": i,
			}))
		}

		if row.LedgerName == "" {
			out = append(out, New(runID, recordType, fmt.Sprintf("%s_%s", row.Channel, row.StateCode), "LED-001", "Channel and state combination not found in ledger_master", map[string]interface{}{
				"channel": row.Channel, "state_code": row.StateCode, "row_index": i,
			}))
		}

		if row.StateCode != "" && !validStateCodes[row.StateCode] {
			out = append(out, New(runID, recordType, row.StateCode, "LED-002", "State code not recognized or invalid format", map[string]interface{}{
				"state_code": row.StateCode, "channel": row.Channel, "row_index": i,
			}))
		}
	}
	return out
}

// DetectGST finds invalid/missing GST rates and tax-calculation mismatches.
func DetectGST(runID uuid.UUID, rows []domain.NormalizedRow, recordType string) []domain.Exception {
	var out []domain.Exception
	tolerance := 0.01
	for i, row := range rows {
		rateKey := row.GSTRate.StringFixed(2)
		rateKey = trimTrailingZeros(rateKey)
		if !validGSTRates[rateKey] {
			out = append(out, New(runID, recordType, fmt.Sprintf("rate_%s", row.GSTRate), "GST-001", "GST rate not in allowed values (0%, 5%, 12%, 18%, 28%)", map[string]interface{}{
				"gst_rate": row.GSTRate, "sku": row.SKU, "fg": row.FG, "row_index": i,
			}))
		}

		if row.TaxableValue.Sign() > 0 && row.GSTRate.IsZero() && row.CGST.IsZero() && row.SGST.IsZero() && row.IGST.IsZero() {
			out = append(out, New(runID, recordType, fmt.Sprintf("txn_%d", i), "GST-003", "GST rate not specified for taxable transaction", map[string]interface{}{
				"taxable_value": row.TaxableValue, "sku": row.SKU, "row_index": i,
			}))
		}

		expected := row.TaxableValue.Mul(row.GSTRate)
		actual := row.CGST.Add(row.SGST).Add(row.IGST)
		diff := expected.Sub(actual).Abs()
		if diff.InexactFloat64() > tolerance {
			out = append(out, New(runID, recordType, fmt.Sprintf("calc_%d", i), "GST-002", "Computed GST amount doesn't match expected calculation", map[string]interface{}{
				"taxable_value": row.TaxableValue, "gst_rate": row.GSTRate, "computed_tax": actual, "expected_tax": expected, "difference": diff, "row_index": i,
			}))
		}
	}
	return out
}

func trimTrailingZeros(s string) string {
	for len(s) > 0 && s[len(s)-1] == '0' {
		s = s[:len(s)-1]
	}
	if len(s) > 0 && s[len(s)-1] == '.' {
		s = s[:len(s)-1]
	}
	if s == "" {
		s = "0"
	}
	return s
}

// DetectInvoice finds duplicate invoice numbers, format violations, and
// future-dated invoices.
func DetectInvoice(runID uuid.UUID, rows []domain.NormalizedRow, recordType string) []domain.Exception {
	var out []domain.Exception
	counts := make(map[string]int)
	for _, row := range rows {
		if row.InvoiceNo != "" {
			counts[row.InvoiceNo]++
		}
	}

	now := time.Now()
	for i, row := range rows {
		if row.InvoiceNo != "" && counts[row.InvoiceNo] > 1 {
			out = append(out, New(runID, recordType, row.InvoiceNo, "INV-001", "Invoice number already exists in system", map[string]interface{}{
				"invoice_no": row.InvoiceNo, "duplicate_count": counts[row.InvoiceNo], "row_index": i,
			}))
		}

		if pattern, ok := invoicePatterns[row.Channel]; ok && row.InvoiceNo != "" {
			if !pattern.MatchString(row.InvoiceNo) {
				out = append(out, New(runID, recordType, row.InvoiceNo, "INV-002", "Invoice number doesn't match expected pattern", map[string]interface{}{
					"invoice_no": row.InvoiceNo, "channel": row.Channel, "row_index": i,
				}))
			}
		}

		if !row.InvoiceDate.IsZero() && row.InvoiceDate.Sub(now) > 24*time.Hour {
			out = append(out, New(runID, recordType, fmt.Sprintf("date_%s", row.InvoiceDate.Format("2006-01-02")), "INV-003", "Invoice date is invalid or outside acceptable range", map[string]interface{}{
				"invoice_date": row.InvoiceDate, "row_index": i,
			}))
		}
	}
	return out
}

// DetectDataQuality finds negative amounts, non-positive quantities, and
// missing required fields.
func DetectDataQuality(runID uuid.UUID, rows []domain.NormalizedRow, recordType string) []domain.Exception {
	var out []domain.Exception
	for i, row := range rows {
		if row.TaxableValue.Sign() < 0 {
			out = append(out, New(runID, recordType, fmt.Sprintf("taxable_value_%d", i), "DAT-001", "Negative amount in taxable_value", map[string]interface{}{
				"column": "taxable_value", "value": row.TaxableValue, "sku": row.SKU, "row_index": i,
			}))
		}
		qty := row.Quantity
		if row.NetQuantity != 0 {
			qty = row.NetQuantity
		}
		if qty <= 0 && !row.IsReturn {
			out = append(out, New(runID, recordType, fmt.Sprintf("qty_%d", i), "DAT-002", "Zero or negative quantity", map[string]interface{}{
				"quantity": qty, "sku": row.SKU, "row_index": i,
			}))
		}
		if row.InvoiceDate.IsZero() {
			out = append(out, New(runID, recordType, fmt.Sprintf("invoice_date_%d", i), "DAT-003", "Missing required field: invoice_date", map[string]interface{}{
				"missing_column": "invoice_date", "row_index": i,
			}))
		}
		if row.GSTIN == "" {
			out = append(out, New(runID, recordType, fmt.Sprintf("gstin_%d", i), "DAT-003", "Missing required field: gstin", map[string]interface{}{
				"missing_column": "gstin", "row_index": i,
			}))
		}
	}
	return out
}

// Summary aggregates a batch of detected exceptions by category and
// severity.
type Summary struct {
	Total            int
	Critical         int
	Warnings         int
	Errors           int
	AutoResolved     int
	RequiresApproval int
	ByErrorCode      map[string]int
	ProcessingOK     bool
}

// Summarize computes a Summary over a slice of exceptions.
func Summarize(exceptions []domain.Exception) Summary {
	s := Summary{ByErrorCode: make(map[string]int)}
	s.Total = len(exceptions)
	for _, e := range exceptions {
		switch e.Severity {
		case domain.SeverityCritical:
			s.Critical++
		case domain.SeverityWarning:
			s.Warnings++
		case domain.SeverityError:
			s.Errors++
		}
		if def, ok := registry.Lookup(e.ErrorCode); ok {
			if def.AutoResolve {
				s.AutoResolved++
			}
			if def.RequiresApproval {
				s.RequiresApproval++
			}
		}
		s.ByErrorCode[e.ErrorCode]++
	}
	s.ProcessingOK = s.Critical == 0
	return s
}
