package expense

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"gstpipeline/internal/domain"
)

// GSTSplit is the CGST/SGST vs IGST breakdown for one expense line.
type GSTSplit struct {
	CGSTRate   decimal.Decimal
	SGSTRate   decimal.Decimal
	IGSTRate   decimal.Decimal
	CGSTAmount decimal.Decimal
	SGSTAmount decimal.Decimal
	IGSTAmount decimal.Decimal
}

func (s GSTSplit) TotalGST() decimal.Decimal {
	return s.CGSTAmount.Add(s.SGSTAmount).Add(s.IGSTAmount)
}

// ComputeGSTSplit computes the input-GST split for an expense line. A
// missing or differing-state vendor GSTIN is treated as interstate —
// marketplace fee invoices commonly omit the vendor GSTIN altogether.
func ComputeGSTSplit(taxableAmount, gstRate decimal.Decimal, companyGSTIN, vendorGSTIN string) GSTSplit {
	if gstRate.Sign() == 0 {
		return GSTSplit{}
	}

	companyState := stateCodePrefix(companyGSTIN)
	vendorState := stateCodePrefix(vendorGSTIN)

	if vendorGSTIN == "" || companyState != vendorState {
		return GSTSplit{
			IGSTRate:   gstRate,
			IGSTAmount: taxableAmount.Mul(gstRate),
		}
	}

	half := gstRate.Div(decimal.NewFromInt(2))
	return GSTSplit{
		CGSTRate:   half,
		SGSTRate:   half,
		CGSTAmount: taxableAmount.Mul(half),
		SGSTAmount: taxableAmount.Mul(half),
	}
}

func stateCodePrefix(gstin string) string {
	if len(gstin) < 2 {
		return ""
	}
	return gstin[:2]
}

// LedgerNames returns the Input-GST ledger names implied by a split,
// omitting any leg with a zero amount.
func LedgerNames(split GSTSplit) (cgst, sgst, igst string) {
	if split.CGSTAmount.Sign() > 0 {
		cgst = fmt.Sprintf("Input CGST @ %s%%", split.CGSTRate.Mul(decimal.NewFromInt(100)).StringFixed(0))
	}
	if split.SGSTAmount.Sign() > 0 {
		sgst = fmt.Sprintf("Input SGST @ %s%%", split.SGSTRate.Mul(decimal.NewFromInt(100)).StringFixed(0))
	}
	if split.IGSTAmount.Sign() > 0 {
		igst = fmt.Sprintf("Input IGST @ %s%%", split.IGSTRate.Mul(decimal.NewFromInt(100)).StringFixed(0))
	}
	return
}

// MapLineItems resolves each line item to a SellerInvoice record, applying
// the expense rule catalog for the ledger name and default GST rate, and
// computing the GST split.
func MapLineItems(runID uuid.UUID, inv ParsedInvoice) []domain.SellerInvoice {
	out := make([]domain.SellerInvoice, 0, len(inv.LineItems))
	for _, item := range inv.LineItems {
		expenseType := domain.NormalizeExpenseType(item.ExpenseType)
		gstRate := item.GSTRate

		var ledgerName string
		if rule, ok := domain.GetExpenseRule(string(inv.Channel), expenseType); ok {
			ledgerName = rule.LedgerName
			gstRate = rule.GSTRate
		} else {
			ledgerName = fmt.Sprintf("%s %s", titleCase(string(inv.Channel)), expenseType)
			if gstRate.Sign() == 0 {
				gstRate = decimal.NewFromFloat(0.18)
			}
		}

		// An absent vendor GSTIN falls through to ComputeGSTSplit's
		// interstate branch.
		split := ComputeGSTSplit(item.TaxableValue, gstRate, inv.GSTIN, inv.VendorGSTIN)

		out = append(out, domain.SellerInvoice{
			ID:               uuid.New(),
			RunID:            runID,
			Channel:          inv.Channel,
			GSTIN:            inv.GSTIN,
			InvoiceNo:        inv.InvoiceNo,
			InvoiceDate:      inv.InvoiceDate,
			ExpenseType:      expenseType,
			TaxableValue:     item.TaxableValue,
			GSTRate:          gstRate,
			CGST:             split.CGSTAmount,
			SGST:             split.SGSTAmount,
			IGST:             split.IGSTAmount,
			TotalValue:       item.TotalValue,
			LedgerName:       ledgerName,
			ProcessingStatus: domain.ExpenseStatusMapped,
		})
	}
	return out
}

func titleCase(s string) string {
	words := strings.FieldsFunc(s, func(r rune) bool { return r == '_' || r == ' ' })
	for i, w := range words {
		if len(w) > 0 {
			words[i] = strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
		}
	}
	return strings.Join(words, " ")
}
