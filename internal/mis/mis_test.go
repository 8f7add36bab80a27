package mis

import (
	"bytes"
	"strings"
	"testing"
	"time"

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

func sampleInputs() Inputs {
	runID := uuid.New()
	return Inputs{
		Run: domain.Run{
			ID:      runID,
			Channel: domain.ChannelAmazonMTR,
			GSTIN:   "06ABGCS4796R1ZA",
			Month:   "2025-08",
		},
		Rows: []domain.NormalizedRow{
			{Type: domain.RowTypeShipment, TaxableValue: dec("1000")},
			{Type: domain.RowTypeShipment, TaxableValue: dec("500")},
			{Type: domain.RowTypeRefund, TaxableValue: dec("200"), IsReturn: true},
		},
		Pivot: []domain.PivotSummary{
			{FG: "Widget", TotalQuantity: 10, TotalTaxable: dec("1300"), TotalCGST: dec("117"), TotalSGST: dec("117")},
			{FG: "Gadget", TotalQuantity: 2, TotalTaxable: dec("0"), TotalIGST: dec("0")},
		},
		SellerInvoices: []domain.SellerInvoice{
			{ExpenseType: "Commission", TaxableValue: dec("100"), IGST: dec("18")},
			{ExpenseType: "Shipping Fee", TaxableValue: dec("50"), CGST: dec("4.5"), SGST: dec("4.5")},
			{ExpenseType: "Subscription Fee", TaxableValue: dec("30"), IGST: dec("5.4")},
		},
		ExceptionCount: 1,
		ApprovalCount:  0,
	}
}

func TestGenerateSalesMetrics(t *testing.T) {
	r := Generate(sampleInputs())

	assert.True(t, r.Sales.TotalSales.Equal(dec("1300")))
	assert.True(t, r.Sales.TotalReturns.Equal(dec("200")))
	assert.True(t, r.Sales.NetSales.Equal(dec("1100")))
	assert.Equal(t, 3, r.Sales.TotalTransactions)
	assert.Equal(t, 2, r.Sales.TotalSKUs)
	assert.Equal(t, 12, r.Sales.TotalQuantity)
	assert.True(t, r.Sales.AvgOrderValue.Equal(dec("433.33")), "1300/3 rounded: got %s", r.Sales.AvgOrderValue)
}

func TestGenerateExpenseBuckets(t *testing.T) {
	r := Generate(sampleInputs())

	assert.True(t, r.Expense.Commission.Equal(dec("100")))
	assert.True(t, r.Expense.Shipping.Equal(dec("50")))
	assert.True(t, r.Expense.Other.Equal(dec("30")), "subscription fee falls into other")
	assert.True(t, r.Expense.Total().Equal(dec("180")))
}

func TestGenerateGSTMetrics(t *testing.T) {
	r := Generate(sampleInputs())

	assert.True(t, r.GST.NetGSTOutput.Equal(dec("234")))
	assert.True(t, r.GST.NetGSTInput.Equal(dec("32.4")))
	assert.True(t, r.GST.GSTLiability.Equal(dec("201.6")))
	assert.True(t, r.GST.CGST.Equal(dec("117")))
	assert.True(t, r.GST.SGST.Equal(dec("117")))
	assert.True(t, r.GST.IGST.Equal(dec("0")))
}

func TestGenerateProfitability(t *testing.T) {
	r := Generate(sampleInputs())

	// gross profit = 1100 - 180
	assert.True(t, r.Profitability.GrossProfit.Equal(dec("920")))
	assert.True(t, r.Profitability.ProfitMargin.Equal(dec("83.64")), "920/1100*100: got %s", r.Profitability.ProfitMargin)
	assert.True(t, r.Profitability.ReturnRate.Equal(dec("33.33")))
}

func TestProfitMarginZeroWhenNoSales(t *testing.T) {
	in := sampleInputs()
	in.Rows = nil
	in.Pivot = nil
	r := Generate(in)
	assert.True(t, r.Profitability.ProfitMargin.IsZero())
	assert.True(t, r.Sales.AvgOrderValue.IsZero())
}

func TestDataQualityScore(t *testing.T) {
	tests := []struct {
		name                 string
		total, excs, apprs   int
		want                 string
	}{
		{"clean run", 100, 0, 0, "100"},
		{"one exception per hundred", 100, 1, 0, "99"},
		{"mixed", 200, 5, 5, "95"},
		{"floor at zero", 10, 20, 5, "0"},
		{"empty dataset", 0, 3, 0, "100"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DataQualityScore(tt.total, tt.excs, tt.apprs)
			assert.True(t, got.Equal(dec(tt.want)), "got %s want %s", got, tt.want)
		})
	}
}

func TestGrowthRateConvention(t *testing.T) {
	assert.True(t, GrowthRate(dec("100"), dec("150")).Equal(dec("50")))
	assert.True(t, GrowthRate(dec("200"), dec("150")).Equal(dec("-25")))
	assert.True(t, GrowthRate(dec("0"), dec("10")).Equal(dec("100")), "old=0 and new>0 yields 100")
	assert.True(t, GrowthRate(dec("0"), dec("0")).IsZero(), "old=0 and new=0 yields 0")
}

func TestCompare(t *testing.T) {
	old := Generate(sampleInputs())
	in := sampleInputs()
	in.Pivot[0].TotalTaxable = dec("2600")
	current := Generate(in)
	current.Month = "2025-09"

	c := Compare(old, current)
	assert.Equal(t, "2025-08", c.OldMonth)
	assert.Equal(t, "2025-09", c.NewMonth)
	assert.True(t, c.SalesGrowth.Equal(dec("100")), "1300 -> 2600 is +100%%: got %s", c.SalesGrowth)
	assert.True(t, c.ExpenseGrowth.IsZero())
}

func TestWriteCSVSingleFlatRow(t *testing.T) {
	r := Generate(sampleInputs())
	r.CreatedAt = time.Date(2025, 9, 1, 10, 0, 0, 0, time.UTC)

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, r))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2, "header plus exactly one data row")
	assert.True(t, strings.HasPrefix(lines[0], "run_id,channel,gstin,month"))
	assert.Contains(t, lines[1], "amazon_mtr")
	assert.Contains(t, lines[1], "1300.00")
	assert.Contains(t, lines[1], "201.60")
}

func TestWriteExcelHasSummarySheet(t *testing.T) {
	r := Generate(sampleInputs())
	f, err := WriteExcel(r)
	require.NoError(t, err)
	defer f.Close()

	title, err := f.GetCellValue(misSheet, "A1")
	require.NoError(t, err)
	assert.Contains(t, title, "MIS Report")

	rows, err := f.GetRows(misSheet)
	require.NoError(t, err)
	assert.Greater(t, len(rows), 25, "all five sections written")
}
