package expense

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gstpipeline/internal/domain"
)

const companyGSTIN = "06ABGCS4796R1ZA"

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestComputeGSTSplitInterstateWhenVendorGSTINMissing(t *testing.T) {
	split := ComputeGSTSplit(dec("1000"), dec("0.18"), companyGSTIN, "")
	assert.True(t, split.IGSTAmount.Equal(dec("180")))
	assert.True(t, split.CGSTAmount.IsZero())
	assert.True(t, split.SGSTAmount.IsZero())
}

func TestComputeGSTSplitIntrastateSameState(t *testing.T) {
	split := ComputeGSTSplit(dec("1000"), dec("0.18"), companyGSTIN, "06AAAAA0000A1Z5")
	assert.True(t, split.CGSTAmount.Equal(dec("90")))
	assert.True(t, split.SGSTAmount.Equal(dec("90")))
	assert.True(t, split.IGSTAmount.IsZero())
}

func TestComputeGSTSplitInterstateDifferentState(t *testing.T) {
	split := ComputeGSTSplit(dec("500"), dec("0.18"), companyGSTIN, "29AAAAA0000A1Z5")
	assert.True(t, split.IGSTAmount.Equal(dec("90")))
}

func TestLedgerNames(t *testing.T) {
	cgst, sgst, igst := LedgerNames(GSTSplit{
		CGSTRate: dec("0.09"), SGSTRate: dec("0.09"),
		CGSTAmount: dec("90"), SGSTAmount: dec("90"),
	})
	assert.Equal(t, "Input CGST @ 9%", cgst)
	assert.Equal(t, "Input SGST @ 9%", sgst)
	assert.Empty(t, igst)
}

func parsedInvoiceFixture() ParsedInvoice {
	return ParsedInvoice{
		InvoiceNo:   "INV-2025-001",
		InvoiceDate: time.Date(2025, 8, 5, 0, 0, 0, 0, time.UTC),
		GSTIN:       companyGSTIN,
		Channel:     domain.ChannelAmazonMTR,
		LineItems: []LineItem{
			{ExpenseType: "Commission", TaxableValue: dec("1000"), GSTRate: dec("0.18"), TotalValue: dec("1180")},
			{ExpenseType: "Closing Fee", TaxableValue: dec("50"), GSTRate: dec("0.18"), TotalValue: dec("59")},
		},
	}
}

func TestMapLineItemsResolvesLedgers(t *testing.T) {
	out := MapLineItems(uuid.New(), parsedInvoiceFixture())
	require.Len(t, out, 2)

	assert.Equal(t, "Amazon Commission", out[0].LedgerName)
	assert.Equal(t, "Amazon Closing Fee", out[1].LedgerName)
	assert.Equal(t, domain.ExpenseStatusMapped, out[0].ProcessingStatus)
	// No vendor GSTIN on the invoice, so the split assumes interstate.
	assert.True(t, out[0].IGST.Equal(dec("180")))
	assert.True(t, out[0].CGST.IsZero())
	assert.True(t, out[0].SGST.IsZero())
}

func TestMapLineItemsIntrastateWithVendorGSTIN(t *testing.T) {
	inv := parsedInvoiceFixture()
	inv.VendorGSTIN = "06AAAAA0000A1Z5" // same state prefix as the company
	out := MapLineItems(uuid.New(), inv)
	require.Len(t, out, 2)
	assert.True(t, out[0].CGST.Equal(dec("90")))
	assert.True(t, out[0].SGST.Equal(dec("90")))
	assert.True(t, out[0].IGST.IsZero())
}

func TestMapLineItemsSumOfGSTInvariant(t *testing.T) {
	tolerance := dec("0.01")
	for _, inv := range MapLineItems(uuid.New(), parsedInvoiceFixture()) {
		gst := inv.CGST.Add(inv.SGST).Add(inv.IGST)
		diff := gst.Sub(inv.TotalValue.Sub(inv.TaxableValue)).Abs()
		assert.True(t, diff.LessThanOrEqual(tolerance),
			"%s: gst %s vs total-taxable %s", inv.ExpenseType, gst, inv.TotalValue.Sub(inv.TaxableValue))
	}
}

func TestVoucherNoPattern(t *testing.T) {
	assert.Equal(t, "EXP0625080001", VoucherNo(companyGSTIN, "2025-08", 1))
	assert.Equal(t, "EXP0625080042", VoucherNo(companyGSTIN, "2025-08", 42))
}

func TestBuildVoucherLinesBalanceToZero(t *testing.T) {
	// One invoice at 18% IGST: expense +1000, Input IGST +180, Payable -1180.
	invoices := []domain.SellerInvoice{{
		ID: uuid.New(), Channel: domain.ChannelAmazonMTR, GSTIN: companyGSTIN,
		InvoiceNo: "INV-1", InvoiceDate: time.Date(2025, 8, 5, 0, 0, 0, 0, time.UTC),
		ExpenseType: "Commission", TaxableValue: dec("1000"), GSTRate: dec("0.18"),
		IGST: dec("180"), TotalValue: dec("1180"), LedgerName: "Amazon Commission",
	}}

	lines := BuildVoucherLines(companyGSTIN, "2025-08", invoices)
	require.Len(t, lines, 3)
	assert.Equal(t, "Amazon Commission", lines[0].Ledger)
	assert.True(t, lines[0].Amount.Equal(dec("1000")))
	assert.Equal(t, "Input IGST @ 18%", lines[1].Ledger)
	assert.True(t, lines[1].Amount.Equal(dec("180")))
	assert.Equal(t, "Amazon Payable", lines[2].Ledger)
	assert.True(t, lines[2].Amount.Equal(dec("-1180")))

	for _, l := range lines {
		assert.Equal(t, "EXP0625080001", l.VoucherNo)
	}
	assert.Empty(t, ValidateBalance(lines))
}

func TestBuildVoucherLinesIntrastateSplitsBothLegs(t *testing.T) {
	invoices := []domain.SellerInvoice{{
		ID: uuid.New(), Channel: domain.ChannelFlipkart, GSTIN: companyGSTIN,
		InvoiceNo: "INV-2", InvoiceDate: time.Date(2025, 8, 5, 0, 0, 0, 0, time.UTC),
		ExpenseType: "Shipping Fee", TaxableValue: dec("200"), GSTRate: dec("0.18"),
		CGST: dec("18"), SGST: dec("18"), TotalValue: dec("236"),
		LedgerName: "Flipkart Shipping Fee",
	}}
	lines := BuildVoucherLines(companyGSTIN, "2025-08", invoices)
	require.Len(t, lines, 4)
	assert.Equal(t, "Flipkart Payable", lines[3].Ledger)
	assert.Empty(t, ValidateBalance(lines))
}

func TestValidateBalanceDetectsDrift(t *testing.T) {
	lines := []Line{
		{VoucherNo: "EXP0625080001", Ledger: "A", Amount: dec("100")},
		{VoucherNo: "EXP0625080001", Ledger: "Payable", Amount: dec("-90")},
	}
	errs := ValidateBalance(lines)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "EXP0625080001")
}

func TestExpenseFilenames(t *testing.T) {
	at := time.Date(2025, 8, 31, 14, 30, 5, 0, time.UTC)
	assert.Equal(t,
		"amazon_mtr_expenses_06ABGCS4796R1ZA_2025-08_x2beta_20250831_143005.xlsx",
		Filename(domain.ChannelAmazonMTR, companyGSTIN, "2025-08", at))
	assert.Equal(t,
		"amazon_mtr_combined_06ABGCS4796R1ZA_2025-08_x2beta_20250831_143005.xlsx",
		CombinedFilename(domain.ChannelAmazonMTR, companyGSTIN, "2025-08", at))
}

func TestRenderFreshWorkbook(t *testing.T) {
	invoices := []domain.SellerInvoice{{
		ID: uuid.New(), Channel: domain.ChannelAmazonMTR, GSTIN: companyGSTIN,
		InvoiceNo: "INV-1", InvoiceDate: time.Date(2025, 8, 5, 0, 0, 0, 0, time.UTC),
		ExpenseType: "Commission", TaxableValue: dec("1000"), GSTRate: dec("0.18"),
		IGST: dec("180"), TotalValue: dec("1180"), LedgerName: "Amazon Commission",
	}}
	lines := BuildVoucherLines(companyGSTIN, "2025-08", invoices)

	f, err := Render(nil, "", 0, lines)
	require.NoError(t, err)
	defer f.Close()

	header, err := f.GetCellValue("Expense Vouchers", "A1")
	require.NoError(t, err)
	assert.Equal(t, "Date", header)

	ledger, err := f.GetCellValue("Expense Vouchers", "D2")
	require.NoError(t, err)
	assert.Equal(t, "Amazon Commission", ledger)

	vtype, err := f.GetCellValue("Expense Vouchers", "C2")
	require.NoError(t, err)
	assert.Equal(t, "Purchase", vtype)
}

func TestParseInvoiceDateFormats(t *testing.T) {
	for _, raw := range []string{"2025-08-05", "05-08-2025", "05/08/2025"} {
		got, err := ParseInvoiceDate(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, time.August, got.Month())
		assert.Equal(t, 5, got.Day())
	}
	_, err := ParseInvoiceDate("Aug 5")
	assert.Error(t, err)
}

func TestParsedInvoiceValidate(t *testing.T) {
	inv := parsedInvoiceFixture()
	assert.Empty(t, Validate(inv))

	inv.InvoiceNo = ""
	inv.LineItems = nil
	problems := Validate(inv)
	assert.Contains(t, problems, "invoice number not found")
	assert.Contains(t, problems, "no line items found in invoice")
}

func TestParseTextExtractsFields(t *testing.T) {
	text := `Tax Invoice
Invoice No: AMZ-FEE-2025-0042
Invoice Date: 2025-08-05
Sold by Amazon Seller Services, GSTIN 29AAACA1234B1ZP
Commission          1,000.00    1,180.00
Closing Fee            50.00       59.00
Shipping Fee          200.00      236.00
`
	inv := ParseText(domain.ChannelAmazonMTR, companyGSTIN, text)

	assert.Equal(t, "AMZ-FEE-2025-0042", inv.InvoiceNo)
	assert.Equal(t, "2025-08-05", inv.InvoiceDate.Format("2006-01-02"))
	assert.Equal(t, "29AAACA1234B1ZP", inv.VendorGSTIN)
	require.Len(t, inv.LineItems, 3)

	byType := make(map[string]LineItem)
	for _, item := range inv.LineItems {
		byType[item.ExpenseType] = item
	}
	require.Contains(t, byType, "Commission")
	assert.True(t, byType["Commission"].TaxableValue.Equal(dec("1000")))
	assert.True(t, byType["Commission"].TotalValue.Equal(dec("1180")))
	assert.True(t, byType["Closing Fee"].TotalValue.Equal(dec("59")))
}

func TestParseTextMissingFieldsLeftZero(t *testing.T) {
	inv := ParseText(domain.ChannelFlipkart, companyGSTIN, "nothing useful here")
	assert.Empty(t, inv.InvoiceNo)
	assert.True(t, inv.InvoiceDate.IsZero())
	assert.Empty(t, inv.LineItems)
	assert.NotEmpty(t, Validate(inv))
}
