package masterresolver

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"gstpipeline/internal/domain"
	"gstpipeline/mocks"
)

func TestItemResolvePrefersSKU(t *testing.T) {
	items := new(mocks.MockItemMasterRepo)
	approvals := new(mocks.MockApprovalRepo)
	items.On("GetBySKU", mock.Anything, "ABC-001").
		Return(&domain.ItemMaster{SKU: "ABC-001", FG: "Widget FG"}, nil)

	r := NewItemResolver(items, approvals, uuid.New())
	fg, ok, err := r.Resolve(context.Background(), "ABC-001", "B0XYZ")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Widget FG", fg)
	items.AssertNotCalled(t, "GetByASIN", mock.Anything, mock.Anything)
}

func TestItemResolveFallsBackToASIN(t *testing.T) {
	items := new(mocks.MockItemMasterRepo)
	approvals := new(mocks.MockApprovalRepo)
	items.On("GetBySKU", mock.Anything, "ABC-001").Return(nil, domain.ErrItemMasterNotFound)
	items.On("GetByASIN", mock.Anything, "B0XYZ").
		Return(&domain.ItemMaster{ASIN: "B0XYZ", FG: "Widget FG"}, nil)

	r := NewItemResolver(items, approvals, uuid.New())
	fg, ok, err := r.Resolve(context.Background(), "ABC-001", "B0XYZ")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Widget FG", fg)
}

func TestItemResolveCachesWithinRun(t *testing.T) {
	items := new(mocks.MockItemMasterRepo)
	approvals := new(mocks.MockApprovalRepo)
	items.On("GetBySKU", mock.Anything, "ABC-001").
		Return(&domain.ItemMaster{SKU: "ABC-001", FG: "Widget FG"}, nil).Once()

	r := NewItemResolver(items, approvals, uuid.New())
	for i := 0; i < 3; i++ {
		_, ok, err := r.Resolve(context.Background(), "ABC-001", "")
		require.NoError(t, err)
		assert.True(t, ok)
	}
	items.AssertExpectations(t)
}

func TestItemResolveDatasetEmitsOneApprovalPerKey(t *testing.T) {
	runID := uuid.New()
	items := new(mocks.MockItemMasterRepo)
	approvals := new(mocks.MockApprovalRepo)
	items.On("GetBySKU", mock.Anything, "KNOWN").
		Return(&domain.ItemMaster{SKU: "KNOWN", FG: "Known FG"}, nil)
	items.On("GetBySKU", mock.Anything, "MISSING").Return(nil, domain.ErrItemMasterNotFound)
	approvals.On("ExistsPendingForKey", mock.Anything, runID, domain.ApprovalTypeItem, "MISSING_FG").
		Return(false, nil).Once()
	approvals.On("Create", mock.Anything, mock.MatchedBy(func(req *domain.ApprovalRequest) bool {
		return req.Type == domain.ApprovalTypeItem && req.SuggestedValue == "MISSING_FG"
	})).Return(nil).Once()

	rows := []domain.NormalizedRow{
		{SKU: "KNOWN"}, {SKU: "MISSING"}, {SKU: "MISSING"}, {SKU: "KNOWN"},
	}
	r := NewItemResolver(items, approvals, runID)
	res, err := r.ResolveDataset(context.Background(), rows)
	require.NoError(t, err)

	assert.Equal(t, 2, res.MappedCount)
	assert.Equal(t, 1, res.PendingRequests, "duplicate misses collapse to one request")
	assert.Equal(t, 50, res.CoveragePct)
	assert.Equal(t, "Known FG", rows[0].FG)
	assert.True(t, rows[0].ItemResolved)
	assert.False(t, rows[1].ItemResolved)
	approvals.AssertExpectations(t)
}

func TestLedgerResolveAndSuggestion(t *testing.T) {
	ledgers := new(mocks.MockLedgerMasterRepo)
	approvals := new(mocks.MockApprovalRepo)
	ledgers.On("Get", mock.Anything, domain.ChannelAmazonMTR, "HR").
		Return(&domain.LedgerMaster{LedgerName: "Amazon Sales - HR"}, nil)

	r := NewLedgerResolver(ledgers, approvals, uuid.New())
	name, ok, err := r.Resolve(context.Background(), domain.ChannelAmazonMTR, "hr")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Amazon Sales - HR", name)
}

func TestSuggestedLedgerName(t *testing.T) {
	assert.Equal(t, "Amazon Mtr Sales - KA", SuggestedLedgerName(domain.ChannelAmazonMTR, "KARNATAKA"))
	assert.Equal(t, "Flipkart Sales - DL", SuggestedLedgerName(domain.ChannelFlipkart, "DELHI"))
	assert.Equal(t, "Pepperfry Sales - MH", SuggestedLedgerName(domain.ChannelPepperfry, "MAHARASHTRA"))
}

func TestLedgerResolveDatasetRequestsApprovalOnMiss(t *testing.T) {
	runID := uuid.New()
	ledgers := new(mocks.MockLedgerMasterRepo)
	approvals := new(mocks.MockApprovalRepo)
	ledgers.On("Get", mock.Anything, domain.ChannelFlipkart, "KA").
		Return(nil, domain.ErrLedgerMasterNotFound)
	approvals.On("ExistsPendingForKey", mock.Anything, runID, domain.ApprovalTypeLedger, "Flipkart Sales - KA").
		Return(false, nil).Once()
	approvals.On("Create", mock.Anything, mock.MatchedBy(func(req *domain.ApprovalRequest) bool {
		return req.Type == domain.ApprovalTypeLedger && req.SuggestedValue == "Flipkart Sales - KA"
	})).Return(nil).Once()

	rows := []domain.NormalizedRow{
		{Channel: domain.ChannelFlipkart, StateCode: "KA"},
		{Channel: domain.ChannelFlipkart, StateCode: "KA"},
	}
	r := NewLedgerResolver(ledgers, approvals, runID)
	res, err := r.ResolveDataset(context.Background(), rows)
	require.NoError(t, err)
	assert.Equal(t, 0, res.MappedCount)
	assert.Equal(t, 1, res.PendingRequests)
	approvals.AssertExpectations(t)
}

func TestLedgerRequestApprovalSkipsWhenPending(t *testing.T) {
	runID := uuid.New()
	ledgers := new(mocks.MockLedgerMasterRepo)
	approvals := new(mocks.MockApprovalRepo)
	approvals.On("ExistsPendingForKey", mock.Anything, runID, domain.ApprovalTypeLedger, "Flipkart Sales - KA").
		Return(true, nil).Once()

	r := NewLedgerResolver(ledgers, approvals, runID)
	require.NoError(t, r.RequestApproval(context.Background(), domain.ChannelFlipkart, "KA"))
	approvals.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestAliasColumns(t *testing.T) {
	assert.Equal(t, "sku", AliasItemMasterColumn("Sales_Portal_SKU"))
	assert.Equal(t, "fg", AliasItemMasterColumn("Final_Goods"))
	assert.Equal(t, "custom_col", AliasItemMasterColumn("Custom_Col"))

	assert.Equal(t, "channel", AliasLedgerMasterColumn("Platform"))
	assert.Equal(t, "state_code", AliasLedgerMasterColumn("State_Name"))
	assert.Equal(t, "ledger_name", AliasLedgerMasterColumn("Tally_Ledger"))
}

func TestLoadItemMasterRows(t *testing.T) {
	rows := []map[string]string{
		{"sku": "ABC-001", "fg": "Widget FG", "gst_rate": "0.12"},
		{"sku": "ABC-002", "fg": "Gadget FG"},
		{"sku": "", "fg": "Orphan"},
		{"sku": "NO-FG", "fg": ""},
	}
	items := LoadItemMasterRows(rows, "bulk_loader")
	require.Len(t, items, 2, "rows missing sku or fg dropped")
	assert.True(t, items[0].GSTRateDefault.Equal(decimal.NewFromFloat(0.12)))
	assert.True(t, items[1].GSTRateDefault.Equal(decimal.NewFromFloat(0.18)), "default rate applied")
	assert.Equal(t, "bulk_loader", items[0].ApprovedBy)
	assert.Equal(t, "ABC-001", items[0].ItemCode)
}

func TestLoadLedgerMasterRows(t *testing.T) {
	rows := []map[string]string{
		{"channel": "Amazon", "state_code": "hr", "ledger_name": "Amazon Sales - HR"},
		{"channel": "", "state_code": "KA", "ledger_name": "X"},
	}
	ledgers := LoadLedgerMasterRows(rows, "bulk_loader")
	require.Len(t, ledgers, 1)
	assert.Equal(t, domain.Channel("amazon"), ledgers[0].Channel)
	assert.Equal(t, "HR", ledgers[0].StateCode)
}
