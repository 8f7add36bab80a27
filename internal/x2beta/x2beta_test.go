package x2beta

import (
	"testing"

	"github.com/google/uuid"
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

func intrastateSummary() domain.PivotSummary {
	return domain.PivotSummary{
		RunID: uuid.New(), GSTIN: "06ABGCS4796R1ZA", Month: "2025-08",
		GSTRate: dec("0.18"), LedgerName: "Amazon Sales - HR", FG: "Widget",
		TotalQuantity: 2, TotalTaxable: dec("1000"),
		TotalCGST: dec("90"), TotalSGST: dec("90"),
	}
}

func interstateSummary() domain.PivotSummary {
	return domain.PivotSummary{
		RunID: uuid.New(), GSTIN: "06ABGCS4796R1ZA", Month: "2025-08",
		GSTRate: dec("0.18"), LedgerName: "Amazon Sales - KA", FG: "Widget",
		TotalQuantity: 1, TotalTaxable: dec("1059"), TotalIGST: dec("190.62"),
	}
}

func TestBuildVouchersIntrastate(t *testing.T) {
	vouchers := BuildVouchers("2025-08", []domain.PivotSummary{intrastateSummary()}, nil)
	require.Len(t, vouchers, 1)
	v := vouchers[0]

	assert.Equal(t, "01-08-2025", v.Date.Format("02-01-2006"), "first day of month")
	assert.Equal(t, "Sales", v.VoucherType)
	assert.Equal(t, "Amazon Sales - HR", v.PartyLedger)
	assert.Equal(t, "Output CGST @ 18%", v.CGSTLedger)
	assert.Equal(t, "Output SGST @ 18%", v.SGSTLedger)
	assert.Empty(t, v.IGSTLedger)
	assert.True(t, v.TotalAmount.Equal(dec("1180")), "total: %s", v.TotalAmount)
	assert.True(t, v.Rate.Equal(dec("500")), "1000/2: %s", v.Rate)
	assert.Equal(t, "Sales - Widget - 2025-08", v.Narration)
}

func TestBuildVouchersInterstate(t *testing.T) {
	vouchers := BuildVouchers("2025-08", []domain.PivotSummary{interstateSummary()}, nil)
	require.Len(t, vouchers, 1)
	v := vouchers[0]

	assert.Equal(t, "Output IGST @ 18%", v.IGSTLedger)
	assert.Empty(t, v.CGSTLedger)
	assert.Empty(t, v.SGSTLedger)
	assert.True(t, v.TotalAmount.Equal(dec("1249.62")), "total: %s", v.TotalAmount)
}

func TestBuildVouchersRateDivisorFloorsAtOne(t *testing.T) {
	s := intrastateSummary()
	s.TotalQuantity = 0
	vouchers := BuildVouchers("2025-08", []domain.PivotSummary{s}, nil)
	require.Len(t, vouchers, 1)
	assert.True(t, vouchers[0].Rate.Equal(dec("1000")), "taxable/max(qty,1): %s", vouchers[0].Rate)
	assert.True(t, vouchers[0].Quantity.IsZero())
}

func TestBuildVouchersZeroGST(t *testing.T) {
	s := intrastateSummary()
	s.GSTRate = decimal.Zero
	s.TotalCGST, s.TotalSGST = decimal.Zero, decimal.Zero
	vouchers := BuildVouchers("2025-08", []domain.PivotSummary{s}, nil)
	require.Len(t, vouchers, 1)
	assert.Empty(t, vouchers[0].CGSTLedger)
	assert.Empty(t, vouchers[0].IGSTLedger)
	assert.True(t, vouchers[0].TotalAmount.Equal(dec("1000")))
}

func TestBuildVouchersUsesAssignedInvoiceNo(t *testing.T) {
	s := intrastateSummary()
	nos := map[string]string{"Amazon Sales - HR|Widget|0.18": "AMZ-HR-08-0001"}
	vouchers := BuildVouchers("2025-08", []domain.PivotSummary{s}, nos)
	assert.Equal(t, "AMZ-HR-08-0001", vouchers[0].VoucherNo)

	vouchers = BuildVouchers("2025-08", []domain.PivotSummary{s}, nil)
	assert.Equal(t, "SL2025080001", vouchers[0].VoucherNo, "synthesized when unassigned")
}

func TestValidateCatchesImbalance(t *testing.T) {
	vouchers := BuildVouchers("2025-08", []domain.PivotSummary{intrastateSummary()}, nil)
	assert.Empty(t, Validate(vouchers))

	vouchers[0].TotalAmount = dec("1100")
	errs := Validate(vouchers)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "does not balance")
}

func TestValidateCatchesMixedSplit(t *testing.T) {
	vouchers := BuildVouchers("2025-08", []domain.PivotSummary{intrastateSummary()}, nil)
	vouchers[0].IGSTAmount = dec("10")
	vouchers[0].TotalAmount = vouchers[0].TotalAmount.Add(dec("10"))
	errs := Validate(vouchers)
	require.NotEmpty(t, errs)
	assert.Contains(t, errs[len(errs)-1], "mixes IGST")
}

func TestFilename(t *testing.T) {
	assert.Equal(t,
		"amazon_mtr_06ABGCS4796R1ZA_2025-08_18pct_x2beta.xlsx",
		Filename(domain.ChannelAmazonMTR, "06ABGCS4796R1ZA", "2025-08", dec("0.18")))
	assert.Equal(t,
		"flipkart_06X_2025-08_0pct_x2beta.xlsx",
		Filename(domain.ChannelFlipkart, "06X", "2025-08", decimal.Zero))
}

func TestTemplateName(t *testing.T) {
	assert.Equal(t, "X2Beta Sales Template - 06ABGCS4796R1ZA.xlsx", TemplateName("06ABGCS4796R1ZA"))
}

func TestRenderDefaultSheet(t *testing.T) {
	vouchers := BuildVouchers("2025-08", []domain.PivotSummary{intrastateSummary(), interstateSummary()}, nil)
	f, err := Render("", 5, "2025-08", "06ABGCS4796R1ZA", vouchers)
	require.NoError(t, err)
	defer f.Close()

	got, err := f.GetCellValue(DefaultSheetName, "B5")
	require.NoError(t, err)
	assert.Equal(t, "SL2025080001", got, "voucher no in data row")

	header, err := f.GetCellValue(DefaultSheetName, "A4")
	require.NoError(t, err)
	assert.Equal(t, "Date", header)

	party, err := f.GetCellValue(DefaultSheetName, "D6")
	require.NoError(t, err)
	assert.Equal(t, "Amazon Sales - KA", party)
}

func TestLastDataRow(t *testing.T) {
	vouchers := BuildVouchers("2025-08", []domain.PivotSummary{intrastateSummary()}, nil)
	f, err := Render("", 5, "2025-08", "06ABGCS4796R1ZA", vouchers)
	require.NoError(t, err)
	defer f.Close()

	sheet, last, err := LastDataRow(f)
	require.NoError(t, err)
	assert.Equal(t, DefaultSheetName, sheet)
	assert.Equal(t, 5, last, "headers occupy rows 1-4, one data row at 5")
}
