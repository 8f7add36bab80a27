// Command pipeline is the batch driver: it selects an ingestion agent, runs
// the enabled stages, and exits with the run status's code.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"gstpipeline/internal/config"
	"gstpipeline/internal/domain"
	"gstpipeline/internal/notify"
	"gstpipeline/internal/pipeline"
	"gstpipeline/internal/port"
	"gstpipeline/internal/repository/postgres"
	"gstpipeline/internal/storage/s3"
)

// stringList collects a repeatable flag value.
type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }

func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

func main() {
	var sellerInvoices stringList

	agent := flag.String("agent", "", "ingestion agent: amazon_mtr|amazon_str|flipkart|pepperfry")
	input := flag.String("input", "", "input report path (required)")
	returns := flag.String("returns", "", "returns report path (pepperfry)")
	asinMap := flag.String("asin-map", "", "ASIN to SKU map path (amazon_str)")
	channel := flag.String("channel", "", "sales channel (required)")
	gstin := flag.String("gstin", "", "company GSTIN (required)")
	month := flag.String("month", "", "report month YYYY-MM (required)")

	enableMapping := flag.Bool("enable-mapping", false, "run master resolution")
	enableTaxInvoice := flag.Bool("enable-tax-invoice", false, "run tax computation and invoice numbering")
	enablePivotBatch := flag.Bool("enable-pivot-batch", false, "run pivot aggregation and batch split")
	enableTallyExport := flag.Bool("enable-tally-export", false, "render X2Beta workbooks")
	enableExpense := flag.Bool("enable-expense-processing", false, "run the expense sub-pipeline")
	flag.Var(&sellerInvoices, "seller-invoices", "seller invoice path (repeatable)")
	enableExceptions := flag.Bool("enable-exception-handling", false, "run exception detection")
	skipExceptions := flag.Bool("skip-exception-handling", false, "skip exception detection")
	enableMISAudit := flag.Bool("enable-mis-audit", false, "generate MIS report and audit summary")
	fullPipeline := flag.Bool("full-pipeline", false, "enable every stage")
	outputDir := flag.String("output-dir", "", "artifact directory (default from config)")
	noStore := flag.Bool("no-object-store", false, "keep artifacts local, skip S3 uploads")
	flag.Parse()

	if *channel == "" {
		*channel = *agent
	}
	opts := pipeline.Options{
		Channel:                 domain.Channel(*channel),
		GSTIN:                   *gstin,
		Month:                   *month,
		InputPath:               *input,
		ReturnsPath:             *returns,
		AsinMapPath:             *asinMap,
		EnableMapping:           *enableMapping,
		EnableTaxInvoice:        *enableTaxInvoice,
		EnablePivotBatch:        *enablePivotBatch,
		EnableTallyExport:       *enableTallyExport,
		EnableExpenseProcessing: *enableExpense,
		SellerInvoicePaths:      sellerInvoices,
		EnableExceptionHandling: *enableExceptions,
		EnableMISAudit:          *enableMISAudit,
		OutputDir:               *outputDir,
	}
	if *fullPipeline {
		opts.EnableFullPipeline()
	}
	if *skipExceptions {
		opts.EnableExceptionHandling = false
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	db, err := postgres.NewDB(&cfg.DB)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()

	var storage port.ObjectStorage
	if !*noStore {
		storage, err = s3.NewS3Client(&cfg.S3)
		if err != nil {
			log.Fatalf("failed to build object storage: %v", err)
		}
	}

	notifier, err := notify.FromConfig(&cfg.Notify)
	if err != nil {
		log.Fatalf("failed to build notifier: %v", err)
	}

	controller := pipeline.New(cfg, pipeline.Stores{
		Runs:           postgres.NewRunRepo(db),
		Reports:        postgres.NewRawReportRepo(db),
		Items:          postgres.NewItemMasterRepo(db),
		Ledgers:        postgres.NewLedgerMasterRepo(db),
		Approvals:      postgres.NewApprovalRepo(db),
		Taxes:          postgres.NewTaxComputationRepo(db),
		Invoices:       postgres.NewInvoiceRegistryRepo(db),
		Pivots:         postgres.NewPivotRepo(db),
		Batches:        postgres.NewBatchRepo(db),
		TallyExports:   postgres.NewTallyExportRepo(db),
		SellerInvoices: postgres.NewSellerInvoiceRepo(db),
		ExpenseExports: postgres.NewExpenseExportRepo(db),
		Exceptions:     postgres.NewExceptionRepo(db),
		AuditLogs:      postgres.NewAuditLogRepo(db),
		MISReports:     postgres.NewMISRepo(db),
	}, storage, notifier)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	outcome, err := controller.Execute(ctx, opts)
	if err != nil {
		log.Printf("pipeline: %v", err)
	}
	if outcome.Run != nil {
		fmt.Printf("run %s finished with status %s (%d rows, %d pending approvals, %d exceptions)\n",
			outcome.Run.ID, outcome.Status, outcome.RowCount, outcome.PendingApprovals, outcome.ExceptionCount)
		for _, f := range outcome.BatchFiles {
			fmt.Printf("  batch:  %s\n", f)
		}
		for _, f := range outcome.ExportFiles {
			fmt.Printf("  export: %s\n", f)
		}
	}
	os.Exit(outcome.Status.ExitCode())
}
