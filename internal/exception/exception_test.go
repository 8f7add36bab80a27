package exception

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gstpipeline/internal/domain"
	"gstpipeline/mocks"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func cleanRow() domain.NormalizedRow {
	return domain.NormalizedRow{
		InvoiceDate:  time.Date(2025, 8, 14, 0, 0, 0, 0, time.UTC),
		Type:         domain.RowTypeShipment,
		SKU:          "ABC-001",
		Quantity:     1,
		TaxableValue: dec("1000"),
		GSTRate:      dec("0.18"),
		CGST:         dec("90"),
		SGST:         dec("90"),
		StateCode:    "HR",
		Channel:      domain.ChannelAmazonMTR,
		GSTIN:        "06ABGCS4796R1ZA",
		Month:        "2025-08",
		FG:           "Widget",
		ItemResolved: true,
		LedgerName:   "Amazon Sales - HR",
		InvoiceNo:    "AMZHR202508001",
	}
}

func codesOf(excs []domain.Exception) []string {
	var out []string
	for _, e := range excs {
		out = append(out, e.ErrorCode)
	}
	return out
}

func TestDetectMappingCleanRow(t *testing.T) {
	excs := DetectMapping(uuid.New(), []domain.NormalizedRow{cleanRow()}, "normalized_row")
	assert.Empty(t, excs)
}

func TestDetectMappingMissingSKUAndLedger(t *testing.T) {
	row := cleanRow()
	row.ItemResolved = false
	row.LedgerName = ""
	excs := DetectMapping(uuid.New(), []domain.NormalizedRow{row}, "normalized_row")
	assert.ElementsMatch(t, []string{"MAP-001", "LED-001"}, codesOf(excs))
}

func TestDetectMappingASINOnly(t *testing.T) {
	row := cleanRow()
	row.SKU = ""
	row.ASIN = "B0ABCDEF12"
	row.ItemResolved = false
	excs := DetectMapping(uuid.New(), []domain.NormalizedRow{row}, "normalized_row")
	assert.Equal(t, []string{"MAP-002"}, codesOf(excs))
}

func TestDetectMappingInvalidStateCode(t *testing.T) {
	row := cleanRow()
	row.StateCode = "XX"
	excs := DetectMapping(uuid.New(), []domain.NormalizedRow{row}, "normalized_row")
	assert.Contains(t, codesOf(excs), "LED-002")
}

func TestDetectGSTInvalidRate(t *testing.T) {
	row := cleanRow()
	row.GSTRate = dec("0.15")
	excs := DetectGST(uuid.New(), []domain.NormalizedRow{row}, "normalized_row")
	assert.Contains(t, codesOf(excs), "GST-001")
}

func TestDetectGSTMismatch(t *testing.T) {
	row := cleanRow()
	row.CGST = dec("80") // 80+90 != 180
	excs := DetectGST(uuid.New(), []domain.NormalizedRow{row}, "normalized_row")
	assert.Equal(t, []string{"GST-002"}, codesOf(excs))
}

func TestDetectGSTMissingRateOnTaxableRow(t *testing.T) {
	row := cleanRow()
	row.GSTRate = decimal.Zero
	row.CGST, row.SGST = decimal.Zero, decimal.Zero
	excs := DetectGST(uuid.New(), []domain.NormalizedRow{row}, "normalized_row")
	assert.Contains(t, codesOf(excs), "GST-003")
}

func TestDetectInvoiceDuplicates(t *testing.T) {
	a, b := cleanRow(), cleanRow()
	// Two rows sharing AMZHR202508001 both get flagged.
	excs := DetectInvoice(uuid.New(), []domain.NormalizedRow{a, b}, "normalized_row")

	dupes := 0
	for _, e := range excs {
		if e.ErrorCode == "INV-001" {
			dupes++
			assert.Equal(t, domain.SeverityError, e.Severity)
			assert.Equal(t, "AMZHR202508001", e.RecordID)
		}
	}
	assert.Equal(t, 2, dupes, "both duplicate rows flagged")
}

func TestDetectInvoiceFormatMismatch(t *testing.T) {
	row := cleanRow()
	row.InvoiceNo = "BOGUS-123"
	excs := DetectInvoice(uuid.New(), []domain.NormalizedRow{row}, "normalized_row")
	assert.Contains(t, codesOf(excs), "INV-002")
}

func TestDetectInvoiceFutureDate(t *testing.T) {
	row := cleanRow()
	row.InvoiceDate = time.Now().Add(72 * time.Hour)
	excs := DetectInvoice(uuid.New(), []domain.NormalizedRow{row}, "normalized_row")
	assert.Contains(t, codesOf(excs), "INV-003")
}

func TestDetectDataQuality(t *testing.T) {
	neg := cleanRow()
	neg.TaxableValue = dec("-10")
	zeroQty := cleanRow()
	zeroQty.Quantity = 0
	noDate := cleanRow()
	noDate.InvoiceDate = time.Time{}

	excs := DetectDataQuality(uuid.New(), []domain.NormalizedRow{neg, zeroQty, noDate}, "normalized_row")
	codes := codesOf(excs)
	assert.Contains(t, codes, "DAT-001")
	assert.Contains(t, codes, "DAT-002")
	assert.Contains(t, codes, "DAT-003")
}

func TestDetectDataQualityReturnsMayHaveNegativeQuantity(t *testing.T) {
	ret := cleanRow()
	ret.Quantity = -1
	ret.IsReturn = true
	excs := DetectDataQuality(uuid.New(), []domain.NormalizedRow{ret}, "normalized_row")
	assert.NotContains(t, codesOf(excs), "DAT-002")
}

func TestSummarize(t *testing.T) {
	runID := uuid.New()
	excs := []domain.Exception{
		New(runID, "r", "", "MAP-001", "missing sku", nil),
		New(runID, "r", "", "GST-001", "bad rate", nil),
		New(runID, "r", "", "SCH-001", "missing column", nil),
	}
	s := Summarize(excs)
	assert.Equal(t, 3, s.Total)
	assert.Equal(t, 1, s.Critical, "SCH-001 is critical")
	assert.False(t, s.ProcessingOK)
	assert.Equal(t, 1, s.ByErrorCode["MAP-001"])

	s = Summarize(excs[:2])
	assert.True(t, s.ProcessingOK)
}

func itemPayload(t *testing.T, sku string) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(domain.ItemApprovalPayload{SKU: sku, SuggestedFG: sku + "_FG", GSTRate: dec("0.18")})
	require.NoError(t, err)
	return raw
}

func TestCheckAutoApprovalItemPrefix(t *testing.T) {
	rules := DefaultRules()

	known := domain.ApprovalRequest{Type: domain.ApprovalTypeItem, Payload: itemPayload(t, "ABC-001")}
	d := CheckAutoApproval(rules, known)
	assert.True(t, d.CanAutoApprove)

	unknown := domain.ApprovalRequest{Type: domain.ApprovalTypeItem, Payload: itemPayload(t, "ZZZ-001")}
	d = CheckAutoApproval(rules, unknown)
	assert.False(t, d.CanAutoApprove)
}

func TestCheckAutoApprovalLedgerAlwaysManual(t *testing.T) {
	d := CheckAutoApproval(DefaultRules(), domain.ApprovalRequest{Type: domain.ApprovalTypeLedger})
	assert.False(t, d.CanAutoApprove)
}

func TestCheckAutoApprovalGSTRate(t *testing.T) {
	rules := DefaultRules()
	valid, err := json.Marshal(domain.GSTRateApprovalPayload{ProposedRate: dec("0.12")})
	require.NoError(t, err)
	d := CheckAutoApproval(rules, domain.ApprovalRequest{Type: domain.ApprovalTypeGSTRate, Payload: valid})
	assert.True(t, d.CanAutoApprove)

	invalid, err := json.Marshal(domain.GSTRateApprovalPayload{ProposedRate: dec("0.15")})
	require.NoError(t, err)
	d = CheckAutoApproval(rules, domain.ApprovalRequest{Type: domain.ApprovalTypeGSTRate, Payload: invalid})
	assert.False(t, d.CanAutoApprove)
}

func TestCheckAutoApprovalInvoiceFormatFixOnly(t *testing.T) {
	rules := DefaultRules()
	fix, err := json.Marshal(domain.InvoiceApprovalPayload{OverrideType: "format_fix"})
	require.NoError(t, err)
	d := CheckAutoApproval(rules, domain.ApprovalRequest{Type: domain.ApprovalTypeInvoice, Payload: fix})
	assert.True(t, d.CanAutoApprove)

	other, err := json.Marshal(domain.InvoiceApprovalPayload{OverrideType: "renumber"})
	require.NoError(t, err)
	d = CheckAutoApproval(rules, domain.ApprovalRequest{Type: domain.ApprovalTypeInvoice, Payload: other})
	assert.False(t, d.CanAutoApprove)
}

func TestProcessPendingForRun(t *testing.T) {
	runID := uuid.New()
	run := domain.Run{ID: runID}
	auto := domain.ApprovalRequest{ID: uuid.New(), RunID: runID, Type: domain.ApprovalTypeItem, Payload: itemPayload(t, "ABC-007")}
	manual := domain.ApprovalRequest{ID: uuid.New(), RunID: runID, Type: domain.ApprovalTypeLedger}

	repo := new(mocks.MockApprovalRepo)
	repo.On("ListPending", context.Background(), runID).Return([]domain.ApprovalRequest{auto, manual}, nil)
	repo.On("Decide", context.Background(), auto.ID, domain.ApprovalStatusApproved, "system_auto", "similar SKU pattern found: ABC").Return(nil)

	approved, pending, err := ProcessPendingForRun(context.Background(), repo, DefaultRules(), run)
	require.NoError(t, err)
	assert.Equal(t, 1, approved)
	assert.Equal(t, 1, pending)
	repo.AssertExpectations(t)
}
