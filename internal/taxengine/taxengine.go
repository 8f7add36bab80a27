// Package taxengine computes the CGST/SGST/IGST split for normalized sales
// rows, on shopspring/decimal so that half-away-from-zero rounding to 0.01
// stays exact across large batches.
package taxengine

import (
	"fmt"

	"github.com/shopspring/decimal"

	"gstpipeline/internal/domain"
)

// validRates is the closed GST slab set; any other rate fails with GST-001.
var validRates = []decimal.Decimal{
	decimal.Zero,
	decimal.NewFromFloat(0.05),
	decimal.NewFromFloat(0.12),
	decimal.NewFromFloat(0.18),
	decimal.NewFromFloat(0.28),
}

// IsValidRate reports whether rate is one of the five recognized GST slabs.
func IsValidRate(rate decimal.Decimal) bool {
	for _, r := range validRates {
		if r.Equal(rate) {
			return true
		}
	}
	return false
}

// Input carries everything the engine needs to compute one row's tax split.
type Input struct {
	Channel       domain.Channel
	CompanyGSTIN  string
	CustomerState string // state_code, upper-case two-letter
	SellerState   string // used by flipkart; defaults to company state
	TaxableValue  decimal.Decimal
	ShippingValue decimal.Decimal
	GSTRate       decimal.Decimal
	TotalQty      int // pepperfry only
	ReturnedQty   int // pepperfry only
}

// Result is the computed split plus the adjusted taxable value (pepperfry
// applies a return-ratio adjustment before tax is computed).
type Result struct {
	TaxableValue decimal.Decimal
	CGST         decimal.Decimal
	SGST         decimal.Decimal
	IGST         decimal.Decimal
	Interstate   bool
	NetQuantity  int
}

// round2 applies half-away-from-zero rounding to 2 decimal places
// (decimal.Round documents half-away-from-zero for positive scale).
func round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// Compute applies the channel-specific interstate rule and the split table
// to in, returning an error (GST-001) if the rate isn't in the valid set.
func Compute(in Input) (Result, error) {
	if !IsValidRate(in.GSTRate) {
		return Result{}, fmt.Errorf("%w: %s (code=GST-001)", domain.ErrInvalidGSTRate, in.GSTRate.String())
	}

	taxable := in.TaxableValue
	netQty := in.TotalQty

	if in.Channel == domain.ChannelPepperfry && in.TotalQty > 0 {
		netQty = in.TotalQty - in.ReturnedQty
		ratio := decimal.NewFromInt(int64(netQty)).Div(decimal.NewFromInt(int64(in.TotalQty)))
		taxable = round2(taxable.Mul(ratio))
	}

	interstate := isInterstate(in)

	total := taxable.Add(in.ShippingValue)
	result := Result{TaxableValue: taxable, Interstate: interstate, NetQuantity: netQty}

	if interstate {
		result.IGST = round2(total.Mul(in.GSTRate))
	} else {
		half := in.GSTRate.Div(decimal.NewFromInt(2))
		result.CGST = round2(total.Mul(half))
		result.SGST = round2(total.Mul(half))
	}
	return result, nil
}

// isInterstate applies the channel-specific interstate determination rule.
func isInterstate(in Input) bool {
	switch in.Channel {
	case domain.ChannelAmazonSTR:
		return true
	case domain.ChannelAmazonMTR, domain.ChannelPepperfry:
		companyState, _ := domain.StateCodeFromGSTIN(in.CompanyGSTIN)
		return in.CustomerState != companyState
	case domain.ChannelFlipkart:
		sellerState := in.SellerState
		if sellerState == "" {
			sellerState, _ = domain.StateCodeFromGSTIN(in.CompanyGSTIN)
		}
		return sellerState != in.CustomerState
	default:
		return true
	}
}

// Reconciles reports whether a computed split satisfies the validation
// predicate: cgst/sgst both zero or both nonzero, mutually exclusive with
// igst, and the sum reconciling with expectedTotalTax within 0.01.
func Reconciles(r Result, expectedTotalTax decimal.Decimal) bool {
	bothZero := r.CGST.IsZero() && r.SGST.IsZero()
	bothNonzero := !r.CGST.IsZero() && !r.SGST.IsZero()
	if !bothZero && !bothNonzero {
		return false
	}
	if bothNonzero && !r.IGST.IsZero() {
		return false
	}
	if !r.IGST.IsZero() && (!r.CGST.IsZero() || !r.SGST.IsZero()) {
		return false
	}
	sum := r.CGST.Add(r.SGST).Add(r.IGST)
	diff := sum.Sub(expectedTotalTax).Abs()
	return diff.LessThanOrEqual(decimal.NewFromFloat(0.01))
}
