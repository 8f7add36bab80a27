// Package pipeline implements the staged batch controller: ingestion
// through MIS, each stage consuming the previous stage's output plus master
// data and emitting enriched rows, persisted records, and audit events.
package pipeline

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"gstpipeline/internal/approvalqueue"
	"gstpipeline/internal/audit"
	"gstpipeline/internal/config"
	"gstpipeline/internal/csvexport"
	"gstpipeline/internal/domain"
	"gstpipeline/internal/exception"
	"gstpipeline/internal/expense"
	"gstpipeline/internal/ingestion"
	"gstpipeline/internal/invoicenumber"
	"gstpipeline/internal/masterresolver"
	"gstpipeline/internal/mis"
	"gstpipeline/internal/pivot"
	"gstpipeline/internal/port"
	"gstpipeline/internal/schemavalidator"
	"gstpipeline/internal/taxengine"
	"gstpipeline/internal/x2beta"
)

// exceptionWriteBatch is how many exception rows each persistence write
// carries.
const exceptionWriteBatch = 100

// Stores bundles every repository the controller touches.
type Stores struct {
	Runs           port.RunRepository
	Reports        port.RawReportRepository
	Items          port.ItemMasterRepository
	Ledgers        port.LedgerMasterRepository
	Approvals      port.ApprovalRepository
	Taxes          port.TaxComputationRepository
	Invoices       port.InvoiceRegistryRepository
	Pivots         port.PivotRepository
	Batches        port.BatchRepository
	TallyExports   port.TallyExportRepository
	SellerInvoices port.SellerInvoiceRepository
	ExpenseExports port.ExpenseExportRepository
	Exceptions     port.ExceptionRepository
	AuditLogs      port.AuditLogRepository
	MISReports     port.MISReportRepository
}

// Controller drives a run through the stage sequence. Stages execute
// sequentially; row-level work inside the tax stage fans out to a bounded
// worker pool with deterministic, index-addressed results.
type Controller struct {
	cfg      *config.Config
	stores   Stores
	storage  port.ObjectStorage // optional; nil keeps artifacts local-only
	notifier port.Notifier
	rules    exception.Rules
}

// New creates a Controller.
func New(cfg *config.Config, stores Stores, storage port.ObjectStorage, notifier port.Notifier) *Controller {
	return &Controller{
		cfg:      cfg,
		stores:   stores,
		storage:  storage,
		notifier: notifier,
		rules:    exception.DefaultRules(),
	}
}

// Outcome is what Execute hands back to the driver.
type Outcome struct {
	Run             *domain.Run
	Status          domain.RunStatus
	RowCount        int
	PendingApprovals int
	ExceptionCount  int
	BatchFiles      []string
	ExportFiles     []string
}

// Execute runs the selected stages for one input. It never panics its way
// out: every exit path finishes the run record, ends the audit session, and
// returns a status for the driver's exit code.
func (c *Controller) Execute(ctx context.Context, opts Options) (Outcome, error) {
	if err := opts.Validate(); err != nil {
		return Outcome{Status: domain.RunStatusFailed}, err
	}
	if opts.OutputDir == "" {
		opts.OutputDir = c.cfg.Pipeline.DefaultOutputDir
	}
	if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
		return Outcome{Status: domain.RunStatusFailed}, fmt.Errorf("pipeline: creating output dir: %w", err)
	}

	run := &domain.Run{
		ID:        uuid.New(),
		Channel:   opts.Channel,
		GSTIN:     opts.GSTIN,
		Month:     opts.Month,
		Status:    domain.RunStatusRunning,
		StartedAt: time.Now().UTC(),
	}
	if err := c.stores.Runs.Create(ctx, run); err != nil {
		return Outcome{Status: domain.RunStatusFailed}, fmt.Errorf("pipeline: creating run: %w", err)
	}

	logger := audit.NewLogger(c.stores.AuditLogs, run.ID)
	session := audit.StartSession(ctx, logger, domain.ActorSystem)

	outcome := Outcome{Run: run, Status: domain.RunStatusSuccess}
	st := &runState{opts: opts, run: run, logger: logger}

	stages := []struct {
		name    string
		enabled bool
		fn      func(context.Context, *runState) error
	}{
		{"ingest", true, c.stageIngest},
		{"schema_validate", true, c.stageSchemaValidate},
		{"master_resolution", opts.EnableMapping, c.stageMasterResolution},
		{"tax_compute", opts.EnableTaxInvoice, c.stageTax},
		{"invoice_numbering", opts.EnableTaxInvoice, c.stageInvoiceNumbering},
		{"pivot_batch", opts.EnablePivotBatch, c.stagePivotBatch},
		{"tally_export", opts.EnableTallyExport, c.stageTallyExport},
		{"expense_processing", opts.EnableExpenseProcessing, c.stageExpense},
		{"exception_handling", opts.EnableExceptionHandling, c.stageExceptions},
		{"mis_audit", opts.EnableMISAudit, c.stageMIS},
	}

	for _, stage := range stages {
		if !stage.enabled {
			continue
		}
		// Cancellation is honored at stage boundaries.
		if err := ctx.Err(); err != nil {
			st.failStatus = domain.RunStatusFailed
			st.failErr = fmt.Errorf("pipeline: run cancelled: %w", err)
			break
		}
		if err := session.Operation(ctx, stage.name, func() error {
			return stage.fn(ctx, st)
		}); err != nil {
			if st.failStatus == "" {
				st.failStatus = domain.RunStatusFailed
			}
			st.failErr = err
			break
		}
		if st.failStatus != "" || st.awaitingApproval {
			break
		}
	}

	status := domain.RunStatusSuccess
	switch {
	case st.failStatus != "":
		status = st.failStatus
	case st.awaitingApproval:
		status = domain.RunStatusAwaitingApproval
	case opts.EnableMISAudit:
		status = domain.RunStatusSummarized
	case opts.EnableTallyExport:
		status = domain.RunStatusExported
	}

	outcome.Status = status
	outcome.RowCount = len(st.rows)
	outcome.PendingApprovals = st.pendingApprovals
	outcome.ExceptionCount = st.exceptionCount
	outcome.BatchFiles = st.batchFiles
	outcome.ExportFiles = st.exportFiles

	session.End(ctx, status)
	c.finishRun(ctx, run, status)

	if st.failErr != nil {
		c.notify(ctx, string(domain.SeverityCritical), "Pipeline run failed", map[string]interface{}{
			"run_id": run.ID.String(),
			"status": string(status),
			"error":  st.failErr.Error(),
		})
	}
	return outcome, st.failErr
}

// finishRun records the terminal (or paused) status; awaiting_approval is not
// terminal, so only the status column moves.
func (c *Controller) finishRun(ctx context.Context, run *domain.Run, status domain.RunStatus) {
	var err error
	if status == domain.RunStatusAwaitingApproval {
		err = c.stores.Runs.UpdateStatus(ctx, run.ID, status)
	} else {
		err = c.stores.Runs.Finish(ctx, run.ID, status, time.Now().UTC())
	}
	if err != nil {
		log.Printf("pipeline: recording run %s status %s: %v", run.ID, status, err)
	}
	run.Status = status
}

// runState threads the enriched row set and stage bookkeeping through the
// sequence.
type runState struct {
	opts   Options
	run    *domain.Run
	logger *audit.Logger

	rows             []domain.NormalizedRow
	columns          map[string]bool
	awaitingApproval bool
	pendingApprovals int
	exceptionCount   int
	failStatus       domain.RunStatus
	failErr          error
	batchFiles       []string
	exportFiles      []string
	salesWorkbookPath string
}

func (c *Controller) stageIngest(ctx context.Context, st *runState) error {
	raw, err := os.ReadFile(st.opts.InputPath)
	if err != nil {
		return fmt.Errorf("pipeline: reading input: %w", err)
	}

	table, _, err := ingestion.ReadCSV(raw)
	if err != nil {
		return fmt.Errorf("pipeline: parsing input: %w", err)
	}

	req := ingestion.Request{Channel: st.opts.Channel, GSTIN: st.opts.GSTIN, Month: st.opts.Month}
	if st.opts.AsinMapPath != "" {
		asinMap, err := loadASINMap(st.opts.AsinMapPath)
		if err != nil {
			return err
		}
		req.ASINToSKU = asinMap
	}

	var result ingestion.Result
	if st.opts.Channel == domain.ChannelPepperfry {
		returnsRaw, err := os.ReadFile(st.opts.ReturnsPath)
		if err != nil {
			return fmt.Errorf("pipeline: reading returns: %w", err)
		}
		returnsTable, _, err := ingestion.ReadCSV(returnsRaw)
		if err != nil {
			return fmt.Errorf("pipeline: parsing returns: %w", err)
		}
		result, err = ingestion.MergePepperfry(req, table, returnsTable)
		if err != nil {
			return err
		}
	} else {
		result, err = ingestion.Normalize(req, table)
		if err != nil {
			return err
		}
	}
	st.rows = result.Rows
	st.columns = result.Columns

	st.logger.Log(ctx, domain.ActorSystem, domain.ActionEncodingResolved, "report", st.opts.InputPath,
		map[string]interface{}{"encoding": result.Encoding})

	// Persist the normalized CSV with a uuid suffix and register the report.
	fileID := uuid.New()
	filename := csvexport.NormalizedFilename(st.opts.Channel, st.opts.GSTIN, st.opts.Month, fileID)
	var buf bytes.Buffer
	if err := csvexport.WriteNormalizedRows(&buf, st.rows); err != nil {
		return err
	}
	localPath := filepath.Join(st.opts.OutputDir, filename)
	if err := os.WriteFile(localPath, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("pipeline: writing normalized csv: %w", err)
	}
	storagePath := c.uploadArtifact(ctx, filename, buf.Bytes(), "text/csv", localPath)

	hash := sha256.Sum256(raw)
	report := &domain.RawReport{
		ID:          fileID,
		RunID:       st.run.ID,
		ReportType:  string(st.opts.Channel),
		StoragePath: storagePath,
		ContentHash: hex.EncodeToString(hash[:]),
	}
	if err := c.stores.Reports.Create(ctx, report); err != nil {
		return fmt.Errorf("pipeline: registering report: %w", err)
	}

	st.logger.Log(ctx, domain.ActorAgent, domain.ActionIngestCompleted, "report", report.ID.String(),
		map[string]interface{}{
			"rows":         len(st.rows),
			"source_rows":  result.SourceRowCount,
			"filtered_out": result.FilteredOut,
			"file":         storagePath,
		})
	return nil
}

func (c *Controller) stageSchemaValidate(ctx context.Context, st *runState) error {
	result := schemavalidator.Validate(st.columns, nil)
	if result.Success {
		st.logger.Log(ctx, domain.ActorSystem, domain.ActionSchemaValidated, "run", st.run.ID.String(), nil)
		return nil
	}

	var excs []domain.Exception
	for _, msg := range result.Errors {
		excs = append(excs, exception.New(st.run.ID, "normalized_row", "", "SCH-001", msg, nil))
	}
	c.persistExceptions(ctx, st, excs)
	st.logger.Log(ctx, domain.ActorSystem, domain.ActionSchemaFailed, "run", st.run.ID.String(),
		map[string]interface{}{"missing": result.Errors})
	st.failStatus = domain.RunStatusFailed
	return fmt.Errorf("pipeline: schema validation failed: %v", result.Errors)
}

func (c *Controller) stageMasterResolution(ctx context.Context, st *runState) error {
	items := masterresolver.NewItemResolver(c.stores.Items, c.stores.Approvals, st.run.ID)
	itemResult, err := items.ResolveDataset(ctx, st.rows)
	if err != nil {
		return err
	}
	st.logger.Log(ctx, domain.ActorAgent, domain.ActionItemResolved, "run", st.run.ID.String(),
		map[string]interface{}{"mapped": itemResult.MappedCount, "coverage_pct": itemResult.CoveragePct})

	ledgers := masterresolver.NewLedgerResolver(c.stores.Ledgers, c.stores.Approvals, st.run.ID)
	ledgerResult, err := ledgers.ResolveDataset(ctx, st.rows)
	if err != nil {
		return err
	}
	st.logger.Log(ctx, domain.ActorAgent, domain.ActionLedgerResolved, "run", st.run.ID.String(),
		map[string]interface{}{"mapped": ledgerResult.MappedCount, "coverage_pct": ledgerResult.CoveragePct})

	st.logger.Log(ctx, domain.ActorSystem, domain.ActionMasterCoverageReported, "run", st.run.ID.String(),
		map[string]interface{}{
			"item_coverage_pct":   itemResult.CoveragePct,
			"ledger_coverage_pct": ledgerResult.CoveragePct,
		})

	// Auto-approve what the rules allow, applying master mutations
	// immediately, then re-resolve with fresh caches so approved rows
	// unblock within the same run.
	applier := approvalqueue.NewApplier(c.stores.Approvals, c.stores.Items, c.stores.Ledgers)
	pending, err := c.stores.Approvals.ListPending(ctx, st.run.ID)
	if err != nil {
		return err
	}
	autoApproved := 0
	for _, req := range pending {
		decision := exception.CheckAutoApproval(c.rules, req)
		if !decision.CanAutoApprove {
			st.pendingApprovals++
			continue
		}
		if err := applier.Decide(ctx, req, domain.ApprovalStatusApproved, "system_auto", decision.Reason); err != nil {
			return err
		}
		autoApproved++
		st.logger.Log(ctx, domain.ActorSystem, domain.ActionApprovalAutoApproved, "approval", req.ID.String(),
			map[string]interface{}{"reason": decision.Reason})
	}

	if autoApproved > 0 {
		items = masterresolver.NewItemResolver(c.stores.Items, c.stores.Approvals, st.run.ID)
		if _, err := items.ResolveDataset(ctx, st.rows); err != nil {
			return err
		}
		ledgers = masterresolver.NewLedgerResolver(c.stores.Ledgers, c.stores.Approvals, st.run.ID)
		if _, err := ledgers.ResolveDataset(ctx, st.rows); err != nil {
			return err
		}
	}

	if st.pendingApprovals > 0 {
		// Unmapped rows block the tax and invoice stages; the run pauses
		// for the approval CLI instead of busy-waiting.
		st.awaitingApproval = true
		st.logger.Log(ctx, domain.ActorSystem, domain.ActionApprovalQueued, "run", st.run.ID.String(),
			map[string]interface{}{"pending": st.pendingApprovals})
		c.notify(ctx, string(domain.SeverityWarning), "Approvals required",
			map[string]interface{}{
				"run_id":  st.run.ID.String(),
				"pending": st.pendingApprovals,
			})
	}
	return nil
}

func (c *Controller) stageTax(ctx context.Context, st *runState) error {
	workers := c.cfg.Pipeline.RowWorkerPoolSize
	if workers <= 0 {
		workers = 4
	}

	type taxOut struct {
		result taxengine.Result
		err    error
	}
	results := make([]taxOut, len(st.rows))

	// Bounded fan-out; results land at their row's index so the output is
	// deterministic regardless of worker count.
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup
	for i := range st.rows {
		if ctx.Err() != nil {
			break
		}
		i := i
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			row := st.rows[i]
			res, err := taxengine.Compute(taxengine.Input{
				Channel:       row.Channel,
				CompanyGSTIN:  row.GSTIN,
				CustomerState: row.StateCode,
				TaxableValue:  row.TaxableValue,
				ShippingValue: row.ShippingValue,
				GSTRate:       row.GSTRate,
				TotalQty:      row.Quantity,
				ReturnedQty:   row.ReturnedQty,
			})
			results[i] = taxOut{result: res, err: err}
		}()
	}
	wg.Wait()
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("pipeline: tax stage cancelled: %w", err)
	}

	var excs []domain.Exception
	computations := make([]domain.TaxComputation, 0, len(st.rows))
	for i := range st.rows {
		if results[i].err != nil {
			excs = append(excs, exception.New(st.run.ID, "normalized_row", st.rows[i].SKU,
				"GST-001", results[i].err.Error(),
				map[string]interface{}{"gst_rate": st.rows[i].GSTRate.String()}))
			continue
		}
		res := results[i].result
		st.rows[i].TaxableValue = res.TaxableValue
		st.rows[i].CGST = res.CGST
		st.rows[i].SGST = res.SGST
		st.rows[i].IGST = res.IGST
		if res.NetQuantity != 0 {
			st.rows[i].NetQuantity = res.NetQuantity
		}

		computations = append(computations, domain.TaxComputation{
			RunID:         st.run.ID,
			Channel:       st.rows[i].Channel,
			GSTIN:         st.rows[i].GSTIN,
			StateCode:     st.rows[i].StateCode,
			RowRef:        st.rows[i].SKU,
			TaxableValue:  res.TaxableValue,
			ShippingValue: st.rows[i].ShippingValue,
			CGST:          res.CGST,
			SGST:          res.SGST,
			IGST:          res.IGST,
			GSTRate:       st.rows[i].GSTRate,
		})
	}
	c.persistExceptions(ctx, st, excs)

	if err := c.stores.Taxes.BulkInsert(ctx, computations); err != nil {
		return fmt.Errorf("pipeline: persisting tax computations: %w", err)
	}
	st.logger.Log(ctx, domain.ActorAgent, domain.ActionTaxComputed, "run", st.run.ID.String(),
		map[string]interface{}{"computed": len(computations), "failed": len(excs)})
	return nil
}

func (c *Controller) stageInvoiceNumbering(ctx context.Context, st *runState) error {
	existing, err := c.stores.Invoices.ListNumbers(ctx, st.opts.Channel, st.opts.GSTIN, st.opts.Month)
	if err != nil {
		return fmt.Errorf("pipeline: preloading invoice registry: %w", err)
	}

	assign := func() ([]domain.InvoiceRegistry, error) {
		engine := invoicenumber.NewEngine(st.opts.Channel, existing)
		refs := make([]invoicenumber.RowRef, len(st.rows))
		for i, row := range st.rows {
			refs[i] = invoicenumber.RowRef{Index: i, StateCode: row.StateCode}
		}
		assigned, err := engine.GenerateBatch(refs, st.opts.Month)
		if err != nil {
			return nil, err
		}

		entries := make([]domain.InvoiceRegistry, 0, len(assigned))
		seen := make(map[string]bool, len(assigned))
		for i := range st.rows {
			num := assigned[i]
			st.rows[i].InvoiceNo = num
			if num == "" || seen[num] {
				continue
			}
			seen[num] = true
			entries = append(entries, domain.InvoiceRegistry{
				RunID:     st.run.ID,
				Channel:   st.opts.Channel,
				GSTIN:     st.opts.GSTIN,
				StateCode: st.rows[i].StateCode,
				Month:     st.opts.Month,
				InvoiceNo: num,
			})
		}
		return entries, nil
	}

	entries, err := assign()
	if err != nil {
		return err
	}
	err = c.stores.Invoices.BulkInsert(ctx, entries)
	if errors.Is(err, domain.ErrDuplicateInvoiceNo) {
		// A concurrent run over the same partition won the race; reload the
		// registry and renumber once.
		st.logger.Log(ctx, domain.ActorSystem, domain.ActionInvoiceDuplicate, "run", st.run.ID.String(), nil)
		existing, err = c.stores.Invoices.ListNumbers(ctx, st.opts.Channel, st.opts.GSTIN, st.opts.Month)
		if err != nil {
			return fmt.Errorf("pipeline: reloading invoice registry: %w", err)
		}
		entries, err = assign()
		if err != nil {
			return err
		}
		err = c.stores.Invoices.BulkInsert(ctx, entries)
	}
	if err != nil {
		return fmt.Errorf("pipeline: persisting invoice numbers: %w", err)
	}

	st.logger.Log(ctx, domain.ActorAgent, domain.ActionInvoiceAssigned, "run", st.run.ID.String(),
		map[string]interface{}{"assigned": len(entries)})
	return nil
}

func (c *Controller) stagePivotBatch(ctx context.Context, st *runState) error {
	summaries := pivot.Summarize(st.run.ID, st.opts.Channel, st.opts.GSTIN, st.opts.Month, st.rows)
	if err := c.stores.Pivots.BulkInsert(ctx, summaries); err != nil {
		return fmt.Errorf("pipeline: persisting pivot summaries: %w", err)
	}
	st.logger.Log(ctx, domain.ActorAgent, domain.ActionPivotCompleted, "run", st.run.ID.String(),
		map[string]interface{}{"groups": len(summaries)})

	batches := pivot.Split(st.run.ID, st.opts.Channel, st.opts.GSTIN, st.opts.Month, summaries)
	files := make([]domain.BatchFile, 0, len(batches))
	for _, b := range batches {
		var buf bytes.Buffer
		if err := pivot.WriteCSV(&buf, b.Summaries); err != nil {
			return err
		}
		localPath := filepath.Join(st.opts.OutputDir, b.Filename)
		if err := os.WriteFile(localPath, buf.Bytes(), 0o644); err != nil {
			return fmt.Errorf("pipeline: writing batch file: %w", err)
		}
		storagePath := c.uploadArtifact(ctx, b.Filename, buf.Bytes(), "text/csv", localPath)

		file := b.File
		file.FilePath = storagePath
		files = append(files, file)
		st.batchFiles = append(st.batchFiles, localPath)
		st.logger.Log(ctx, domain.ActorAgent, domain.ActionBatchWritten, "batch", b.Filename,
			map[string]interface{}{"records": file.RecordCount, "gst_rate": b.GSTRate.String()})
	}

	integrity := pivot.VerifyIntegrity(summaries, batches)
	if !integrity.Valid {
		var excs []domain.Exception
		for _, msg := range integrity.Errors {
			excs = append(excs, exception.New(st.run.ID, "batch", "", "SYS-002", msg, nil))
		}
		c.persistExceptions(ctx, st, excs)
		st.logger.Log(ctx, domain.ActorSystem, domain.ActionBatchIntegrityFailed, "run", st.run.ID.String(),
			map[string]interface{}{"errors": integrity.Errors})
		st.failStatus = domain.RunStatusFailed
		return fmt.Errorf("pipeline: %w: %v", domain.ErrBatchIntegrityFailed, integrity.Errors)
	}

	if err := c.stores.Batches.BulkInsert(ctx, files); err != nil {
		return fmt.Errorf("pipeline: registering batch files: %w", err)
	}
	return nil
}

func (c *Controller) stageTallyExport(ctx context.Context, st *runState) error {
	batches, err := c.stores.Batches.ListByRun(ctx, st.run.ID)
	if err != nil {
		return fmt.Errorf("pipeline: listing batch files: %w", err)
	}
	if len(batches) == 0 {
		st.failStatus = domain.RunStatusBatchMissing
		return fmt.Errorf("pipeline: no batch files to export")
	}

	templatePath := ""
	templateName := ""
	if dir := c.cfg.Tally.TemplateDir; dir != "" {
		templateName = x2beta.TemplateName(st.opts.GSTIN)
		templatePath = filepath.Join(dir, templateName)
		if _, err := os.Stat(templatePath); err != nil {
			excs := []domain.Exception{exception.New(st.run.ID, "tally_export", templateName,
				"EXP-001", fmt.Sprintf("x2beta template not found: %s", templatePath), nil)}
			c.persistExceptions(ctx, st, excs)
			st.logger.Log(ctx, domain.ActorSystem, domain.ActionX2BetaTemplateMissing, "tally_export", templateName, nil)
			st.failStatus = domain.RunStatusTallyTemplateMiss
			return fmt.Errorf("pipeline: %w: %s", domain.ErrTemplateNotFound, templatePath)
		}
	}

	// Invoice numbers index by pivot group so each voucher carries the
	// group's first assigned number.
	invoiceNos := make(map[string]string)
	for _, row := range st.rows {
		if row.InvoiceNo == "" {
			continue
		}
		key := row.LedgerName + "|" + row.FG + "|" + row.GSTRate.String()
		if _, ok := invoiceNos[key]; !ok {
			invoiceNos[key] = row.InvoiceNo
		}
	}

	summaries, err := c.stores.Pivots.ListByRun(ctx, st.run.ID)
	if err != nil {
		return fmt.Errorf("pipeline: listing pivot summaries: %w", err)
	}
	byRate := make(map[string][]domain.PivotSummary)
	for _, s := range summaries {
		byRate[s.GSTRate.String()] = append(byRate[s.GSTRate.String()], s)
	}

	for _, batch := range batches {
		group := byRate[batch.GSTRate.String()]
		vouchers := x2beta.BuildVouchers(st.opts.Month, group, invoiceNos)
		if errs := x2beta.Validate(vouchers); len(errs) > 0 {
			return fmt.Errorf("pipeline: %w: %v", domain.ErrVoucherNotBalanced, errs)
		}

		f, err := x2beta.Render(templatePath, c.cfg.Tally.StartRow, st.opts.Month, st.opts.GSTIN, vouchers)
		if err != nil {
			return err
		}
		filename := x2beta.Filename(st.opts.Channel, st.opts.GSTIN, st.opts.Month, batch.GSTRate)
		localPath := filepath.Join(st.opts.OutputDir, filename)
		if err := f.SaveAs(localPath); err != nil {
			f.Close()
			return fmt.Errorf("pipeline: saving x2beta workbook: %w", err)
		}
		f.Close()

		info, err := os.Stat(localPath)
		if err != nil {
			return fmt.Errorf("pipeline: sizing x2beta workbook: %w", err)
		}

		export := &domain.TallyExport{
			RunID:        st.run.ID,
			Channel:      st.opts.Channel,
			GSTIN:        st.opts.GSTIN,
			Month:        st.opts.Month,
			GSTRate:      batch.GSTRate,
			TemplateName: templateName,
			FilePath:     localPath,
			FileSize:     info.Size(),
			RecordCount:  len(vouchers),
			TotalTaxable: batch.TotalTaxable,
			TotalTax:     batch.TotalTax,
			ExportStatus: domain.ExportStatusSuccess,
		}
		if err := c.stores.TallyExports.Create(ctx, export); err != nil {
			return fmt.Errorf("pipeline: registering tally export: %w", err)
		}
		st.exportFiles = append(st.exportFiles, localPath)
		st.salesWorkbookPath = localPath
		st.logger.Log(ctx, domain.ActorAgent, domain.ActionX2BetaRendered, "tally_export", filename,
			map[string]interface{}{"vouchers": len(vouchers), "gst_rate": batch.GSTRate.String()})
	}
	return nil
}

func (c *Controller) stageExpense(ctx context.Context, st *runState) error {
	var allInvoices []domain.SellerInvoice
	for _, path := range st.opts.SellerInvoicePaths {
		raw, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("pipeline: reading seller invoice: %w", err)
		}
		decoded, err := ingestion.DecodeRaw(raw)
		if err != nil {
			return fmt.Errorf("pipeline: decoding seller invoice %s: %w", path, err)
		}

		parsed := expense.ParseText(st.opts.Channel, st.opts.GSTIN, decoded.Text)
		if problems := expense.Validate(parsed); len(problems) > 0 {
			var excs []domain.Exception
			for _, p := range problems {
				excs = append(excs, exception.New(st.run.ID, "seller_invoice", path, "EXP-002", p, nil))
			}
			c.persistExceptions(ctx, st, excs)
			continue
		}
		st.logger.Log(ctx, domain.ActorAgent, domain.ActionExpenseParsed, "seller_invoice", parsed.InvoiceNo,
			map[string]interface{}{"line_items": len(parsed.LineItems)})

		mapped := expense.MapLineItems(st.run.ID, parsed)
		allInvoices = append(allInvoices, mapped...)
	}
	if len(allInvoices) == 0 {
		return nil
	}

	if err := c.stores.SellerInvoices.BulkInsert(ctx, allInvoices); err != nil {
		return fmt.Errorf("pipeline: persisting seller invoices: %w", err)
	}
	st.logger.Log(ctx, domain.ActorAgent, domain.ActionExpenseMapped, "run", st.run.ID.String(),
		map[string]interface{}{"invoices": len(allInvoices)})

	lines := expense.BuildVoucherLines(st.opts.GSTIN, st.opts.Month, allInvoices)
	if errs := expense.ValidateBalance(lines); len(errs) > 0 {
		var excs []domain.Exception
		for _, msg := range errs {
			excs = append(excs, exception.New(st.run.ID, "expense_voucher", "", "EXP-004", msg, nil))
		}
		c.persistExceptions(ctx, st, excs)
		return fmt.Errorf("pipeline: %w: %v", domain.ErrVoucherNotBalanced, errs)
	}

	now := time.Now().UTC()
	f, err := expense.Render(nil, "", 0, lines)
	if err != nil {
		return err
	}
	filename := expense.Filename(st.opts.Channel, st.opts.GSTIN, st.opts.Month, now)
	localPath := filepath.Join(st.opts.OutputDir, filename)
	if err := f.SaveAs(localPath); err != nil {
		f.Close()
		return fmt.Errorf("pipeline: saving expense workbook: %w", err)
	}
	f.Close()

	totalTaxable, totalTax := expenseTotals(allInvoices)
	info, err := os.Stat(localPath)
	if err != nil {
		return fmt.Errorf("pipeline: sizing expense workbook: %w", err)
	}
	export := &domain.ExpenseExport{
		RunID:        st.run.ID,
		Channel:      st.opts.Channel,
		GSTIN:        st.opts.GSTIN,
		Month:        st.opts.Month,
		FilePath:     localPath,
		FileSize:     info.Size(),
		RecordCount:  len(allInvoices),
		TotalTaxable: totalTaxable,
		TotalTax:     totalTax,
		ExportStatus: domain.ExportStatusSuccess,
	}
	if err := c.stores.ExpenseExports.Create(ctx, export); err != nil {
		return fmt.Errorf("pipeline: registering expense export: %w", err)
	}
	st.exportFiles = append(st.exportFiles, localPath)
	st.logger.Log(ctx, domain.ActorAgent, domain.ActionExpenseRendered, "expense_export", filename,
		map[string]interface{}{"lines": len(lines)})

	// Merge with the sales workbook of the same run when one was rendered.
	if st.salesWorkbookPath != "" {
		combined, err := c.mergeCombined(st, lines, now)
		if err != nil {
			return err
		}
		st.exportFiles = append(st.exportFiles, combined)
		st.logger.Log(ctx, domain.ActorAgent, domain.ActionExpenseMerged, "expense_export", filepath.Base(combined), nil)
	}

	for i := range allInvoices {
		if err := c.stores.SellerInvoices.UpdateStatus(ctx, allInvoices[i].ID, domain.ExpenseStatusExported); err != nil {
			return fmt.Errorf("pipeline: updating seller invoice status: %w", err)
		}
	}
	return nil
}

func (c *Controller) mergeCombined(st *runState, lines []expense.Line, now time.Time) (string, error) {
	f, err := x2beta.OpenWorkbook(st.salesWorkbookPath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	sheet, lastRow, err := x2beta.LastDataRow(f)
	if err != nil {
		return "", err
	}
	if _, err := expense.Render(f, sheet, lastRow+1, lines); err != nil {
		return "", err
	}
	combined := filepath.Join(st.opts.OutputDir,
		expense.CombinedFilename(st.opts.Channel, st.opts.GSTIN, st.opts.Month, now))
	if err := f.SaveAs(combined); err != nil {
		return "", fmt.Errorf("pipeline: saving combined workbook: %w", err)
	}
	return combined, nil
}

func (c *Controller) stageExceptions(ctx context.Context, st *runState) error {
	var excs []domain.Exception
	excs = append(excs, exception.DetectMapping(st.run.ID, st.rows, "normalized_row")...)
	excs = append(excs, exception.DetectGST(st.run.ID, st.rows, "normalized_row")...)
	excs = append(excs, exception.DetectInvoice(st.run.ID, st.rows, "normalized_row")...)
	excs = append(excs, exception.DetectDataQuality(st.run.ID, st.rows, "normalized_row")...)

	c.persistExceptions(ctx, st, excs)

	summary := exception.Summarize(excs)
	st.logger.Log(ctx, domain.ActorSystem, domain.ActionExceptionRaised, "run", st.run.ID.String(),
		map[string]interface{}{
			"total":    summary.Total,
			"critical": summary.Critical,
			"errors":   summary.Errors,
			"warnings": summary.Warnings,
		})

	if summary.Critical > 0 {
		st.failStatus = domain.RunStatusFailed
		return fmt.Errorf("pipeline: %w: %d critical exceptions", domain.ErrExceptionHalts, summary.Critical)
	}
	return nil
}

func (c *Controller) stageMIS(ctx context.Context, st *runState) error {
	pivotRows, err := c.stores.Pivots.ListByRun(ctx, st.run.ID)
	if err != nil {
		return fmt.Errorf("pipeline: listing pivot summaries: %w", err)
	}
	invoices, err := c.stores.SellerInvoices.ListByRun(ctx, st.run.ID)
	if err != nil {
		return fmt.Errorf("pipeline: listing seller invoices: %w", err)
	}
	exceptionCount, err := c.stores.Exceptions.CountByRun(ctx, st.run.ID)
	if err != nil {
		return fmt.Errorf("pipeline: counting exceptions: %w", err)
	}
	approvals, err := c.stores.Approvals.ListPending(ctx, st.run.ID)
	if err != nil {
		return fmt.Errorf("pipeline: listing approvals: %w", err)
	}

	report := mis.Generate(mis.Inputs{
		Run:            *st.run,
		Rows:           st.rows,
		Pivot:          pivotRows,
		SellerInvoices: invoices,
		ExceptionCount: exceptionCount,
		ApprovalCount:  len(approvals),
	})
	if err := c.stores.MISReports.Create(ctx, &report); err != nil {
		return fmt.Errorf("pipeline: persisting mis report: %w", err)
	}
	st.logger.Log(ctx, domain.ActorSystem, domain.ActionMISGenerated, "mis_report", st.run.ID.String(),
		map[string]interface{}{"data_quality_score": report.DataQualityScore.String()})

	base := fmt.Sprintf("%s_%s_%s_mis", st.opts.Channel, st.opts.GSTIN, st.opts.Month)
	var buf bytes.Buffer
	if err := mis.WriteCSV(&buf, report); err != nil {
		return err
	}
	csvPath := filepath.Join(st.opts.OutputDir, base+".csv")
	if err := os.WriteFile(csvPath, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("pipeline: writing mis csv: %w", err)
	}

	wb, err := mis.WriteExcel(report)
	if err != nil {
		return err
	}
	xlsxPath := filepath.Join(st.opts.OutputDir, base+".xlsx")
	if err := wb.SaveAs(xlsxPath); err != nil {
		wb.Close()
		return fmt.Errorf("pipeline: writing mis workbook: %w", err)
	}
	wb.Close()

	st.exportFiles = append(st.exportFiles, csvPath, xlsxPath)
	st.exceptionCount = exceptionCount
	st.logger.Log(ctx, domain.ActorSystem, domain.ActionMISExported, "mis_report", st.run.ID.String(),
		map[string]interface{}{"csv": csvPath, "xlsx": xlsxPath})
	return nil
}

func expenseTotals(invoices []domain.SellerInvoice) (taxable, tax decimal.Decimal) {
	for _, inv := range invoices {
		taxable = taxable.Add(inv.TaxableValue)
		tax = tax.Add(inv.CGST).Add(inv.SGST).Add(inv.IGST)
	}
	return taxable.Round(2), tax.Round(2)
}

// persistExceptions writes exception rows in batches of 100 and tracks the
// running count.
func (c *Controller) persistExceptions(ctx context.Context, st *runState, excs []domain.Exception) {
	st.exceptionCount += len(excs)
	for start := 0; start < len(excs); start += exceptionWriteBatch {
		end := start + exceptionWriteBatch
		if end > len(excs) {
			end = len(excs)
		}
		if err := c.stores.Exceptions.BulkInsert(ctx, excs[start:end]); err != nil {
			log.Printf("pipeline: persisting exceptions: %v", err)
			return
		}
	}
}

// uploadArtifact pushes bytes to the object store when one is configured,
// returning the storage path, or the local path when storage is absent.
func (c *Controller) uploadArtifact(ctx context.Context, filename string, data []byte, contentType, localPath string) string {
	if c.storage == nil {
		return localPath
	}
	key := fmt.Sprintf("%s/%s", uuid.New(), filename)
	_, err := c.storage.Upload(ctx, port.UploadInput{
		Bucket:      c.cfg.S3.Bucket,
		Key:         key,
		Body:        bytes.NewReader(data),
		ContentType: contentType,
		Size:        int64(len(data)),
	})
	if err != nil {
		log.Printf("pipeline: upload of %s failed, keeping local copy: %v", filename, err)
		return localPath
	}
	return fmt.Sprintf("%s/%s", c.cfg.S3.Bucket, key)
}

func (c *Controller) notify(ctx context.Context, kind, title string, payload map[string]interface{}) {
	if c.notifier == nil {
		return
	}
	if err := c.notifier.Send(ctx, port.Notification{Kind: kind, Title: title, Payload: payload}); err != nil {
		log.Printf("pipeline: notification %q failed: %v", title, err)
	}
}

// loadASINMap reads a two-column asin,sku file for amazon_str ingestion.
func loadASINMap(path string) (map[string]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("pipeline: reading asin map: %w", err)
	}
	table, _, err := ingestion.ReadCSV(raw)
	if err != nil {
		return nil, fmt.Errorf("pipeline: parsing asin map: %w", err)
	}
	out := make(map[string]string, len(table.Rows))
	for _, row := range table.Rows {
		asin, sku := row["asin"], row["sku"]
		if asin != "" && sku != "" {
			out[asin] = sku
		}
	}
	return out, nil
}
