package expense

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"gstpipeline/internal/domain"
)

// The raw-text extraction below starts where the upstream PDF/spreadsheet
// extractor stops: given plain text, it pulls candidate invoice fields with
// a fixed family of regex patterns.

var (
	invoiceNoPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)invoice\s*(?:no\.?|number|#)\s*[:\-]?\s*([A-Z0-9][A-Z0-9\-/]{3,})`),
		regexp.MustCompile(`(?i)bill\s*(?:no\.?|number)\s*[:\-]?\s*([A-Z0-9][A-Z0-9\-/]{3,})`),
		regexp.MustCompile(`(?i)document\s*(?:no\.?|number)\s*[:\-]?\s*([A-Z0-9][A-Z0-9\-/]{3,})`),
	}

	invoiceDatePattern = regexp.MustCompile(`(?i)(?:invoice\s*)?date\s*[:\-]?\s*(\d{1,4}[-/]\d{1,2}[-/]\d{1,4})`)

	gstinPattern = regexp.MustCompile(`\b(\d{2}[A-Z]{5}\d{4}[A-Z][1-9A-Z]Z[0-9A-Z])\b`)

	amountToken = `([\d,]+(?:\.\d{1,2})?)`
)

// feePatterns is the fixed catalog of fee line patterns. Each matches
// "<label> ... <taxable> ... <total>" on one line of extracted text.
var feePatterns = []struct {
	expenseType string
	re          *regexp.Regexp
}{
	{"Closing Fee", feeLineRegexp(`closing\s+fee`)},
	{"Shipping Fee", feeLineRegexp(`shipping\s+fee`)},
	{"Commission", feeLineRegexp(`commission`)},
	{"Fulfillment Fee", feeLineRegexp(`fulfill?ment\s+fee`)},
	{"Storage Fee", feeLineRegexp(`storage\s+fee`)},
	{"Advertising Fee", feeLineRegexp(`advertising\s+fee`)},
	{"Refund Processing Fee", feeLineRegexp(`refund\s+processing\s+fee`)},
	{"Return Processing Fee", feeLineRegexp(`return\s+processing\s+fee`)},
	{"Payment Gateway Fee", feeLineRegexp(`payment\s+gateway\s+fee`)},
}

func feeLineRegexp(label string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)` + label + `[^\d\n]*` + amountToken + `[^\d\n]+` + amountToken)
}

var defaultExpenseGSTRate = decimal.NewFromFloat(0.18)

// ParseText extracts invoice number, date, vendor GSTIN, and fee line items
// from already-extracted invoice text. Fields that fail to match are left
// zero for Validate to report.
func ParseText(channel domain.Channel, companyGSTIN, text string) ParsedInvoice {
	inv := ParsedInvoice{
		Channel: channel,
		GSTIN:   companyGSTIN,
	}

	for _, p := range invoiceNoPatterns {
		if m := p.FindStringSubmatch(text); m != nil {
			inv.InvoiceNo = strings.TrimSpace(m[1])
			break
		}
	}

	if m := invoiceDatePattern.FindStringSubmatch(text); m != nil {
		if t, err := ParseInvoiceDate(m[1]); err == nil {
			inv.InvoiceDate = t
		}
	}

	// The first GSTIN that is not the company's own is the vendor's.
	for _, m := range gstinPattern.FindAllStringSubmatch(text, -1) {
		if m[1] != companyGSTIN {
			inv.VendorGSTIN = m[1]
			break
		}
	}

	for _, fee := range feePatterns {
		for _, m := range fee.re.FindAllStringSubmatch(text, -1) {
			taxable := parseAmount(m[1])
			total := parseAmount(m[2])
			if taxable.Sign() == 0 && total.Sign() == 0 {
				continue
			}
			// GST is whatever separates total from taxable; the default
			// rate stands in until the rule catalog overrides it.
			inv.LineItems = append(inv.LineItems, LineItem{
				ExpenseType:  fee.expenseType,
				TaxableValue: taxable,
				GSTRate:      defaultExpenseGSTRate,
				TotalValue:   total,
			})
		}
	}
	return inv
}

func parseAmount(raw string) decimal.Decimal {
	raw = strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero
	}
	return d
}
