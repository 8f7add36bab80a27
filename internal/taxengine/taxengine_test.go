package taxengine

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gstpipeline/internal/domain"
)

const gstinHaryana = "06ABGCS4796R1ZA"

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestComputeAmazonMTRIntrastate(t *testing.T) {
	// taxable=1000 at 18% shipped within Haryana splits evenly into CGST/SGST.
	res, err := Compute(Input{
		Channel:       domain.ChannelAmazonMTR,
		CompanyGSTIN:  gstinHaryana,
		CustomerState: "HR",
		TaxableValue:  dec("1000"),
		GSTRate:       dec("0.18"),
	})
	require.NoError(t, err)
	assert.False(t, res.Interstate)
	assert.True(t, res.CGST.Equal(dec("90.00")), "cgst: %s", res.CGST)
	assert.True(t, res.SGST.Equal(dec("90.00")), "sgst: %s", res.SGST)
	assert.True(t, res.IGST.IsZero())
}

func TestComputeAmazonMTRInterstate(t *testing.T) {
	// Haryana seller shipping to Karnataka: IGST only, 1059 * 0.18 = 190.62.
	res, err := Compute(Input{
		Channel:       domain.ChannelAmazonMTR,
		CompanyGSTIN:  gstinHaryana,
		CustomerState: "KA",
		TaxableValue:  dec("1059"),
		GSTRate:       dec("0.18"),
	})
	require.NoError(t, err)
	assert.True(t, res.Interstate)
	assert.True(t, res.CGST.IsZero())
	assert.True(t, res.SGST.IsZero())
	assert.True(t, res.IGST.Equal(dec("190.62")), "igst: %s", res.IGST)
}

func TestComputeAmazonSTRForcesIGST(t *testing.T) {
	// STR is IGST-only even when customer and company share a state.
	res, err := Compute(Input{
		Channel:       domain.ChannelAmazonSTR,
		CompanyGSTIN:  gstinHaryana,
		CustomerState: "HR",
		TaxableValue:  dec("500"),
		GSTRate:       dec("0.18"),
	})
	require.NoError(t, err)
	assert.True(t, res.Interstate)
	assert.True(t, res.IGST.Equal(dec("90.00")), "igst: %s", res.IGST)
	assert.True(t, res.CGST.IsZero())
	assert.True(t, res.SGST.IsZero())
}

func TestComputePepperfryReturnAdjustment(t *testing.T) {
	// 4 sold, 1 returned: taxable 400 scales to 300 before the MTR rule.
	res, err := Compute(Input{
		Channel:       domain.ChannelPepperfry,
		CompanyGSTIN:  gstinHaryana,
		CustomerState: "HR",
		TaxableValue:  dec("400"),
		GSTRate:       dec("0.18"),
		TotalQty:      4,
		ReturnedQty:   1,
	})
	require.NoError(t, err)
	assert.True(t, res.TaxableValue.Equal(dec("300.00")), "adjusted taxable: %s", res.TaxableValue)
	assert.Equal(t, 3, res.NetQuantity)
	assert.True(t, res.CGST.Equal(dec("27.00")), "cgst: %s", res.CGST)
	assert.True(t, res.SGST.Equal(dec("27.00")), "sgst: %s", res.SGST)
	assert.True(t, res.IGST.IsZero())
}

func TestComputeFlipkartSellerStateDefaults(t *testing.T) {
	// Without an explicit seller state the company state stands in, so a
	// Haryana customer is intrastate.
	res, err := Compute(Input{
		Channel:       domain.ChannelFlipkart,
		CompanyGSTIN:  gstinHaryana,
		CustomerState: "HR",
		TaxableValue:  dec("200"),
		GSTRate:       dec("0.05"),
	})
	require.NoError(t, err)
	assert.False(t, res.Interstate)
	assert.True(t, res.CGST.Equal(dec("5.00")))
	assert.True(t, res.SGST.Equal(dec("5.00")))

	res, err = Compute(Input{
		Channel:       domain.ChannelFlipkart,
		CompanyGSTIN:  gstinHaryana,
		SellerState:   "DL",
		CustomerState: "HR",
		TaxableValue:  dec("200"),
		GSTRate:       dec("0.05"),
	})
	require.NoError(t, err)
	assert.True(t, res.Interstate)
	assert.True(t, res.IGST.Equal(dec("10.00")))
}

func TestComputeShippingIncludedInTotal(t *testing.T) {
	res, err := Compute(Input{
		Channel:       domain.ChannelAmazonMTR,
		CompanyGSTIN:  gstinHaryana,
		CustomerState: "KA",
		TaxableValue:  dec("100"),
		ShippingValue: dec("50"),
		GSTRate:       dec("0.12"),
	})
	require.NoError(t, err)
	assert.True(t, res.IGST.Equal(dec("18.00")), "(100+50)*0.12: %s", res.IGST)
}

func TestComputeInvalidRate(t *testing.T) {
	_, err := Compute(Input{
		Channel:       domain.ChannelAmazonMTR,
		CompanyGSTIN:  gstinHaryana,
		CustomerState: "HR",
		TaxableValue:  dec("100"),
		GSTRate:       dec("0.15"),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidGSTRate)
}

func TestComputeZeroRate(t *testing.T) {
	res, err := Compute(Input{
		Channel:       domain.ChannelAmazonMTR,
		CompanyGSTIN:  gstinHaryana,
		CustomerState: "HR",
		TaxableValue:  dec("100"),
		GSTRate:       decimal.Zero,
	})
	require.NoError(t, err)
	assert.True(t, res.CGST.IsZero())
	assert.True(t, res.SGST.IsZero())
	assert.True(t, res.IGST.IsZero())
}

func TestIsValidRate(t *testing.T) {
	for _, rate := range []string{"0", "0.05", "0.12", "0.18", "0.28"} {
		assert.True(t, IsValidRate(dec(rate)), rate)
	}
	for _, rate := range []string{"0.1", "0.15", "0.2", "1"} {
		assert.False(t, IsValidRate(dec(rate)), rate)
	}
}

func TestReconciles(t *testing.T) {
	ok := Result{CGST: dec("90"), SGST: dec("90")}
	assert.True(t, Reconciles(ok, dec("180")))
	assert.False(t, Reconciles(ok, dec("180.05")), "beyond tolerance")

	mixed := Result{CGST: dec("90"), SGST: dec("90"), IGST: dec("10")}
	assert.False(t, Reconciles(mixed, dec("190")), "mixed split is invalid")

	lopsided := Result{CGST: dec("90")}
	assert.False(t, Reconciles(lopsided, dec("90")), "cgst without sgst is invalid")

	igstOnly := Result{IGST: dec("190.62")}
	assert.True(t, Reconciles(igstOnly, dec("190.62")))
}
