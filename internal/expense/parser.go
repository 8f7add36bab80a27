// Package expense implements the seller-invoice/expense sub-pipeline:
// parsing seller fee invoices, mapping line items to GL ledgers via
// GST-split computation, and rendering expense X2Beta vouchers.
package expense

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"gstpipeline/internal/domain"
)

// LineItem is one raw charge extracted from a seller invoice's text or
// cell matrix. PDF/Excel extraction happens upstream; this package receives
// plain rows.
type LineItem struct {
	ExpenseType  string
	TaxableValue decimal.Decimal
	GSTRate      decimal.Decimal
	TotalValue   decimal.Decimal
}

// ParsedInvoice is one seller invoice's header plus its line items.
type ParsedInvoice struct {
	InvoiceNo   string
	InvoiceDate time.Time
	GSTIN       string
	VendorGSTIN string
	Channel     domain.Channel
	LineItems   []LineItem
}

var invoiceDateLayouts = []string{"2006-01-02", "02-01-2006", "02/01/2006"}

// ParseInvoiceDate accepts the handful of date layouts seller invoices use.
func ParseInvoiceDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range invoiceDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("expense: unrecognized invoice date %q", raw)
}

// Validate checks a parsed invoice carries the minimum required fields,
// returning every problem rather than stopping at the first.
func Validate(inv ParsedInvoice) []string {
	var errs []string
	if inv.InvoiceNo == "" {
		errs = append(errs, "invoice number not found")
	}
	if inv.InvoiceDate.IsZero() {
		errs = append(errs, "invoice date not found")
	}
	if len(inv.LineItems) == 0 {
		errs = append(errs, "no line items found in invoice")
	}
	for i, item := range inv.LineItems {
		if item.ExpenseType == "" {
			errs = append(errs, fmt.Sprintf("line item %d: missing expense type", i+1))
		}
		if item.TaxableValue.Sign() < 0 {
			errs = append(errs, fmt.Sprintf("line item %d: invalid taxable value", i+1))
		}
		if item.TotalValue.Sign() < 0 {
			errs = append(errs, fmt.Sprintf("line item %d: invalid total value", i+1))
		}
	}
	return errs
}
