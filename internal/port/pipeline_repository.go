package port

import (
	"context"

	"github.com/google/uuid"

	"gstpipeline/internal/domain"
)

// TaxComputationRepository persists per-row GST split results.
type TaxComputationRepository interface {
	BulkInsert(ctx context.Context, computations []domain.TaxComputation) error
	ListByRun(ctx context.Context, runID uuid.UUID) ([]domain.TaxComputation, error)
}

// InvoiceRegistryRepository persists assigned invoice numbers. invoice_no is
// globally unique; Create surfaces domain.ErrDuplicateInvoiceNo on a
// unique-index violation so the numbering engine can retry with the next
// sequence.
type InvoiceRegistryRepository interface {
	BulkInsert(ctx context.Context, entries []domain.InvoiceRegistry) error
	ListNumbers(ctx context.Context, channel domain.Channel, gstin, month string) ([]string, error)
}

// PivotRepository persists grouped pivot summaries.
type PivotRepository interface {
	BulkInsert(ctx context.Context, summaries []domain.PivotSummary) error
	ListByRun(ctx context.Context, runID uuid.UUID) ([]domain.PivotSummary, error)
}

// BatchRepository registers per-GST-rate batch files.
type BatchRepository interface {
	BulkInsert(ctx context.Context, batches []domain.BatchFile) error
	ListByRun(ctx context.Context, runID uuid.UUID) ([]domain.BatchFile, error)
}

// TallyExportRepository registers rendered X2Beta workbooks.
type TallyExportRepository interface {
	Create(ctx context.Context, export *domain.TallyExport) error
	ListByRun(ctx context.Context, runID uuid.UUID) ([]domain.TallyExport, error)
}
