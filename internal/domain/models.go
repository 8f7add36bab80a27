package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Run is a single end-to-end pipeline invocation scoped by a fresh uuid.
// Created at pipeline start, mutated only by the controller, immutable after
// a terminal status.
type Run struct {
	ID         uuid.UUID  `db:"id" json:"id"`
	Channel    Channel    `db:"channel" json:"channel"`
	GSTIN      string     `db:"gstin" json:"gstin"`
	Month      string     `db:"month" json:"month"` // "YYYY-MM"
	Status     RunStatus  `db:"status" json:"status"`
	StartedAt  time.Time  `db:"started_at" json:"started_at"`
	FinishedAt *time.Time `db:"finished_at" json:"finished_at,omitempty"`
}

// RawReport records one ingested input file.
type RawReport struct {
	ID          uuid.UUID `db:"id" json:"id"`
	RunID       uuid.UUID `db:"run_id" json:"run_id"`
	ReportType  string    `db:"report_type" json:"report_type"`
	StoragePath string    `db:"storage_path" json:"storage_path"`
	ContentHash string    `db:"content_hash" json:"content_hash"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// NormalizedRow is the canonical sales transaction row produced by ingestion
//. Later stages add derived columns only; they never mutate the
// fields populated here.
type NormalizedRow struct {
	InvoiceDate   time.Time       `json:"invoice_date"`
	Type          RowType         `json:"type"`
	OrderID       string          `json:"order_id"`
	SKU           string          `json:"sku"`
	ASIN          string          `json:"asin"`
	Quantity      int             `json:"quantity"` // may be negative for returns
	TaxableValue  decimal.Decimal `json:"taxable_value"`
	ShippingValue decimal.Decimal `json:"shipping_value"`
	GSTRate       decimal.Decimal `json:"gst_rate"`
	StateCode     string          `json:"state_code"`
	Channel       Channel         `json:"channel"`
	GSTIN         string          `json:"gstin"`
	Month         string          `json:"month"`

	// Derived columns, populated by later stages.
	FG             string          `json:"fg,omitempty"`
	ItemResolved   bool            `json:"item_resolved,omitempty"`
	LedgerName     string          `json:"ledger_name,omitempty"`
	LedgerResolved bool            `json:"ledger_resolved,omitempty"`
	CGST           decimal.Decimal `json:"cgst,omitempty"`
	SGST           decimal.Decimal `json:"sgst,omitempty"`
	IGST           decimal.Decimal `json:"igst,omitempty"`
	InvoiceNo      string          `json:"invoice_no,omitempty"`
	IsReturn       bool            `json:"is_return,omitempty"`
	NetQuantity    int             `json:"net_quantity,omitempty"`
	ReturnedQty    int             `json:"returned_qty,omitempty"`
}

// ItemMaster maps a channel SKU/ASIN to an accounting Final Goods name.
// At least one of SKU/ASIN is non-empty; each is an independent unique key.
type ItemMaster struct {
	ID             int64           `db:"id" json:"id"`
	SKU            string          `db:"sku" json:"sku,omitempty"`
	ASIN           string          `db:"asin" json:"asin,omitempty"`
	ItemCode       string          `db:"item_code" json:"item_code"`
	FG             string          `db:"fg" json:"fg"`
	GSTRateDefault decimal.Decimal `db:"gst_rate" json:"gst_rate_default"`
	ApprovedBy     string          `db:"approved_by" json:"approved_by,omitempty"`
	ApprovedAt     *time.Time      `db:"approved_at" json:"approved_at,omitempty"`
}

// LedgerMaster maps (channel, state_code) to a ledger name. Key is unique.
type LedgerMaster struct {
	ID         int64      `db:"id" json:"id"`
	Channel    Channel    `db:"channel" json:"channel"`
	StateCode  string     `db:"state_code" json:"state_code"`
	LedgerName string     `db:"ledger_name" json:"ledger_name"`
	ApprovedBy string     `db:"approved_by" json:"approved_by,omitempty"`
	ApprovedAt *time.Time `db:"approved_at" json:"approved_at,omitempty"`
}

// ApprovalRequest is a pending or decided human-in-the-loop decision.
type ApprovalRequest struct {
	ID             uuid.UUID       `db:"id" json:"id"`
	RunID          uuid.UUID       `db:"run_id" json:"run_id"`
	Type           ApprovalType    `db:"request_type" json:"type"`
	Payload        json.RawMessage `db:"payload" json:"payload"`
	Status         ApprovalStatus  `db:"status" json:"status"`
	SuggestedValue string          `db:"suggested_value" json:"suggested_value"`
	Priority       int             `db:"priority" json:"priority"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
	DecidedAt      *time.Time      `db:"decided_at" json:"decided_at,omitempty"`
	Approver       string          `db:"approver" json:"approver,omitempty"`
	Notes          string          `db:"notes" json:"notes,omitempty"`
}

// ItemApprovalPayload is the tagged-variant payload for ApprovalTypeItem.
type ItemApprovalPayload struct {
	SKU         string          `json:"sku,omitempty"`
	ASIN        string          `json:"asin,omitempty"`
	ItemCode    string          `json:"item_code,omitempty"`
	SuggestedFG string          `json:"suggested_fg"`
	GSTRate     decimal.Decimal `json:"gst_rate"`
}

// LedgerApprovalPayload is the tagged-variant payload for ApprovalTypeLedger.
type LedgerApprovalPayload struct {
	Channel         Channel `json:"channel"`
	StateCode       string  `json:"state_code"`
	SuggestedLedger string  `json:"suggested_ledger"`
}

// GSTRateApprovalPayload is the tagged-variant payload for ApprovalTypeGSTRate.
type GSTRateApprovalPayload struct {
	RowRef       string          `json:"row_ref"`
	ProposedRate decimal.Decimal `json:"proposed_rate"`
}

// InvoiceApprovalPayload is the tagged-variant payload for ApprovalTypeInvoice.
type InvoiceApprovalPayload struct {
	InvoiceNo    string `json:"invoice_no"`
	OverrideType string `json:"override_type"` // e.g. "format_fix"
}

// TaxComputation is the per-row GST split result. Invariant: exactly one
// of {cgst+sgst>0 and igst==0}, {cgst==0 and sgst==0 and igst>0}, or all zero.
type TaxComputation struct {
	RunID         uuid.UUID       `db:"run_id" json:"run_id"`
	Channel       Channel         `db:"channel" json:"channel"`
	GSTIN         string          `db:"gstin" json:"gstin"`
	StateCode     string          `db:"state_code" json:"state_code"`
	RowRef        string          `db:"sku" json:"row_ref"`
	TaxableValue  decimal.Decimal `db:"taxable_value" json:"taxable_value"`
	ShippingValue decimal.Decimal `db:"shipping_value" json:"shipping_value"`
	CGST          decimal.Decimal `db:"cgst" json:"cgst"`
	SGST          decimal.Decimal `db:"sgst" json:"sgst"`
	IGST          decimal.Decimal `db:"igst" json:"igst"`
	GSTRate       decimal.Decimal `db:"gst_rate" json:"gst_rate"`
}

// InvoiceRegistry records an assigned, globally-unique invoice number.
type InvoiceRegistry struct {
	RunID     uuid.UUID `db:"run_id" json:"run_id"`
	Channel   Channel   `db:"channel" json:"channel"`
	GSTIN     string    `db:"gstin" json:"gstin"`
	StateCode string    `db:"state_code" json:"state_code"`
	Month     string    `db:"month" json:"month"`
	InvoiceNo string    `db:"invoice_no" json:"invoice_no"`
}

// PivotSummary is one grouped aggregate row, keyed by the full grouping tuple.
type PivotSummary struct {
	RunID         uuid.UUID       `db:"run_id" json:"run_id"`
	Channel       Channel         `db:"channel" json:"channel"`
	GSTIN         string          `db:"gstin" json:"gstin"`
	Month         string          `db:"month" json:"month"`
	GSTRate       decimal.Decimal `db:"gst_rate" json:"gst_rate"`
	LedgerName    string          `db:"ledger" json:"ledger_name"`
	FG            string          `db:"fg" json:"fg"`
	StateCode     string          `db:"state_code" json:"state_code,omitempty"`
	TotalQuantity int             `db:"total_quantity" json:"total_quantity"`
	TotalTaxable  decimal.Decimal `db:"total_taxable" json:"total_taxable"`
	TotalCGST     decimal.Decimal `db:"total_cgst" json:"total_cgst"`
	TotalSGST     decimal.Decimal `db:"total_sgst" json:"total_sgst"`
	TotalIGST     decimal.Decimal `db:"total_igst" json:"total_igst"`
}

// TotalTax returns cgst+sgst+igst.
func (p PivotSummary) TotalTax() decimal.Decimal {
	return p.TotalCGST.Add(p.TotalSGST).Add(p.TotalIGST)
}

// TotalAmount returns total_taxable + total_tax.
func (p PivotSummary) TotalAmount() decimal.Decimal {
	return p.TotalTaxable.Add(p.TotalTax())
}

// BatchFile is one per-GST-rate output file produced by the batch splitter.
type BatchFile struct {
	RunID        uuid.UUID       `db:"run_id" json:"run_id"`
	Channel      Channel         `db:"channel" json:"channel"`
	GSTIN        string          `db:"gstin" json:"gstin"`
	Month        string          `db:"month" json:"month"`
	GSTRate      decimal.Decimal `db:"gst_rate" json:"gst_rate"`
	FilePath     string          `db:"file_path" json:"file_path"`
	RecordCount  int             `db:"record_count" json:"record_count"`
	TotalTaxable decimal.Decimal `db:"total_taxable" json:"total_taxable"`
	TotalTax     decimal.Decimal `db:"total_tax" json:"total_tax"`
}

// TallyExport records one X2Beta voucher workbook written for a batch.
type TallyExport struct {
	RunID        uuid.UUID       `db:"run_id" json:"run_id"`
	Channel      Channel         `db:"channel" json:"channel"`
	GSTIN        string          `db:"gstin" json:"gstin"`
	Month        string          `db:"month" json:"month"`
	GSTRate      decimal.Decimal `db:"gst_rate" json:"gst_rate"`
	TemplateName string          `db:"template_name" json:"template_name"`
	FilePath     string          `db:"file_path" json:"file_path"`
	FileSize     int64           `db:"file_size" json:"file_size"`
	RecordCount  int             `db:"record_count" json:"record_count"`
	TotalTaxable decimal.Decimal `db:"total_taxable" json:"total_taxable"`
	TotalTax     decimal.Decimal `db:"total_tax" json:"total_tax"`
	ExportStatus ExportStatus    `db:"export_status" json:"export_status"`
}

// SellerInvoice is a parsed seller-fee invoice from the expense sub-pipeline.
// Invariant: cgst+sgst+igst == total_value-taxable_value within 0.01.
type SellerInvoice struct {
	ID               uuid.UUID               `db:"id" json:"id"`
	RunID            uuid.UUID               `db:"run_id" json:"run_id"`
	Channel          Channel                 `db:"channel" json:"channel"`
	GSTIN            string                  `db:"gstin" json:"gstin"`
	InvoiceNo        string                  `db:"invoice_no" json:"invoice_no"`
	InvoiceDate      time.Time               `db:"invoice_date" json:"invoice_date"`
	ExpenseType      string                  `db:"expense_type" json:"expense_type"`
	TaxableValue     decimal.Decimal         `db:"taxable_value" json:"taxable_value"`
	GSTRate          decimal.Decimal         `db:"gst_rate" json:"gst_rate"`
	CGST             decimal.Decimal         `db:"cgst" json:"cgst"`
	SGST             decimal.Decimal         `db:"sgst" json:"sgst"`
	IGST             decimal.Decimal         `db:"igst" json:"igst"`
	TotalValue       decimal.Decimal         `db:"total_value" json:"total_value"`
	LedgerName       string                  `db:"ledger_name" json:"ledger_name"`
	ProcessingStatus ExpenseProcessingStatus `db:"processing_status" json:"processing_status"`
}

// ExpenseExport records one rendered expense (or combined) X2Beta workbook.
type ExpenseExport struct {
	ID           uuid.UUID       `db:"id" json:"id"`
	RunID        uuid.UUID       `db:"run_id" json:"run_id"`
	Channel      Channel         `db:"channel" json:"channel"`
	GSTIN        string          `db:"gstin" json:"gstin"`
	Month        string          `db:"month" json:"month"`
	ExpenseType  string          `db:"expense_type" json:"expense_type"`
	TemplateName string          `db:"template_name" json:"template_name"`
	FilePath     string          `db:"file_path" json:"file_path"`
	FileSize     int64           `db:"file_size" json:"file_size"`
	RecordCount  int             `db:"record_count" json:"record_count"`
	TotalTaxable decimal.Decimal `db:"total_taxable" json:"total_taxable"`
	TotalTax     decimal.Decimal `db:"total_tax" json:"total_tax"`
	ExportStatus ExportStatus    `db:"export_status" json:"export_status"`
}

// X2BetaVoucher is one row of a rendered voucher file.
// Invariant: for an expense voucher, Σ total_amount over its voucher_no group
// == 0; for a sales voucher, total_amount == taxable+cgst+sgst+igst.
type X2BetaVoucher struct {
	Date          time.Time       `json:"date"`
	VoucherNo     string          `json:"voucher_no"`
	VoucherType   string          `json:"voucher_type"` // "Sales" | "Purchase"
	PartyLedger   string          `json:"party_ledger"`
	ItemName      string          `json:"item_name"`
	Quantity      decimal.Decimal `json:"quantity"`
	Rate          decimal.Decimal `json:"rate"`
	TaxableAmount decimal.Decimal `json:"taxable_amount"`
	CGSTLedger    string          `json:"cgst_ledger,omitempty"`
	CGSTAmount    decimal.Decimal `json:"cgst_amount"`
	SGSTLedger    string          `json:"sgst_ledger,omitempty"`
	SGSTAmount    decimal.Decimal `json:"sgst_amount"`
	IGSTLedger    string          `json:"igst_ledger,omitempty"`
	IGSTAmount    decimal.Decimal `json:"igst_amount"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	Narration     string          `json:"narration"`
}

// Exception is a detected row- or stage-level defect.
type Exception struct {
	ID           uuid.UUID         `db:"id" json:"id"`
	RunID        uuid.UUID         `db:"run_id" json:"run_id"`
	RecordType   string            `db:"record_type" json:"record_type"`
	RecordID     string            `db:"record_id" json:"record_id,omitempty"`
	ErrorCode    string            `db:"error_code" json:"error_code"`
	ErrorMessage string            `db:"error_message" json:"error_message"`
	ErrorDetails json.RawMessage   `db:"error_details" json:"error_details,omitempty"`
	Severity     ExceptionSeverity `db:"severity" json:"severity"`
	CreatedAt    time.Time         `db:"created_at" json:"created_at"`
}

// AuditLogEntry is one immutable, append-only audit record.
type AuditLogEntry struct {
	ID         uuid.UUID       `db:"id" json:"id"`
	RunID      uuid.UUID       `db:"run_id" json:"run_id"`
	Actor      AuditActor      `db:"actor" json:"actor"`
	Action     AuditAction     `db:"action" json:"action"`
	EntityType string          `db:"entity_type" json:"entity_type,omitempty"`
	EntityID   string          `db:"entity_id" json:"entity_id,omitempty"`
	Details    json.RawMessage `db:"details" json:"details,omitempty"`
	Metadata   json.RawMessage `db:"metadata" json:"metadata,omitempty"`
	Timestamp  time.Time       `db:"timestamp" json:"timestamp"`
}

// OperationTiming aggregates wall-clock cost for one named operation across
// an audit session.
type OperationTiming struct {
	Count int           `json:"count"`
	Total time.Duration `json:"total"`
	Min   time.Duration `json:"min"`
	Max   time.Duration `json:"max"`
}

// Avg returns the mean duration, or zero if Count is zero.
func (t OperationTiming) Avg() time.Duration {
	if t.Count == 0 {
		return 0
	}
	return t.Total / time.Duration(t.Count)
}

// SalesMetrics is the sales-side component of an MISReport.
type SalesMetrics struct {
	TotalSales        decimal.Decimal `json:"total_sales"`
	TotalReturns      decimal.Decimal `json:"total_returns"`
	NetSales          decimal.Decimal `json:"net_sales"`
	TotalTransactions int             `json:"total_transactions"`
	TotalSKUs         int             `json:"total_skus"`
	TotalQuantity     int             `json:"total_quantity"`
	AvgOrderValue     decimal.Decimal `json:"avg_order_value"`
}

// ExpenseMetrics is the expense-side component of an MISReport, bucketed by
// normalized expense type.
type ExpenseMetrics struct {
	Commission  decimal.Decimal `json:"commission"`
	Shipping    decimal.Decimal `json:"shipping"`
	Fulfillment decimal.Decimal `json:"fulfillment"`
	Advertising decimal.Decimal `json:"advertising"`
	Storage     decimal.Decimal `json:"storage"`
	Other       decimal.Decimal `json:"other"`
}

// Total returns the sum of all expense buckets.
func (e ExpenseMetrics) Total() decimal.Decimal {
	return e.Commission.Add(e.Shipping).Add(e.Fulfillment).Add(e.Advertising).Add(e.Storage).Add(e.Other)
}

// GSTMetrics is the GST-liability component of an MISReport.
type GSTMetrics struct {
	NetGSTOutput decimal.Decimal `json:"net_gst_output"`
	NetGSTInput  decimal.Decimal `json:"net_gst_input"`
	GSTLiability decimal.Decimal `json:"gst_liability"`
	CGST         decimal.Decimal `json:"cgst"`
	SGST         decimal.Decimal `json:"sgst"`
	IGST         decimal.Decimal `json:"igst"`
}

// ProfitabilityMetrics is the profitability component of an MISReport.
type ProfitabilityMetrics struct {
	GrossProfit   decimal.Decimal `json:"gross_profit"`
	ProfitMargin  decimal.Decimal `json:"profit_margin"`
	RevenuePerTxn decimal.Decimal `json:"revenue_per_txn"`
	CostPerTxn    decimal.Decimal `json:"cost_per_txn"`
	ReturnRate    decimal.Decimal `json:"return_rate"`
}

// MISReport is the derived management-information view for one (run,
// channel, gstin, month).
type MISReport struct {
	RunID            uuid.UUID            `db:"run_id" json:"run_id"`
	Channel          Channel              `db:"channel" json:"channel"`
	GSTIN            string               `db:"gstin" json:"gstin"`
	Month            string               `db:"month" json:"month"`
	Sales            SalesMetrics         `db:"-" json:"sales_metrics"`
	Expense          ExpenseMetrics       `db:"-" json:"expense_metrics"`
	GST              GSTMetrics           `db:"-" json:"gst_metrics"`
	Profitability    ProfitabilityMetrics `db:"-" json:"profitability_metrics"`
	DataQualityScore decimal.Decimal      `db:"data_quality_score" json:"data_quality_score"`
	ExceptionCount   int                  `db:"exception_count" json:"exception_count"`
	ApprovalCount    int                  `db:"approval_count" json:"approval_count"`
	CreatedAt        time.Time            `db:"created_at" json:"created_at"`
}
