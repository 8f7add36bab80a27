package port

import (
	"context"

	"github.com/google/uuid"

	"gstpipeline/internal/domain"
)

// SellerInvoiceRepository persists parsed seller-fee invoices.
type SellerInvoiceRepository interface {
	BulkInsert(ctx context.Context, invoices []domain.SellerInvoice) error
	ListByRun(ctx context.Context, runID uuid.UUID) ([]domain.SellerInvoice, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.ExpenseProcessingStatus) error
}

// ExpenseExportRepository registers rendered expense/combined workbooks.
type ExpenseExportRepository interface {
	Create(ctx context.Context, export *domain.ExpenseExport) error
	ListByRun(ctx context.Context, runID uuid.UUID) ([]domain.ExpenseExport, error)
}
