package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"gstpipeline/internal/domain"
	"gstpipeline/internal/port"
)

type sellerInvoiceRepo struct {
	db *sqlx.DB
}

// NewSellerInvoiceRepo creates a new PostgreSQL-backed SellerInvoiceRepository.
func NewSellerInvoiceRepo(db *sqlx.DB) port.SellerInvoiceRepository {
	return &sellerInvoiceRepo{db: db}
}

func (r *sellerInvoiceRepo) BulkInsert(ctx context.Context, invoices []domain.SellerInvoice) error {
	if len(invoices) == 0 {
		return nil
	}
	for i := range invoices {
		if invoices[i].ID == uuid.Nil {
			invoices[i].ID = uuid.New()
		}
	}
	query := `INSERT INTO seller_invoices
		(id, run_id, channel, gstin, invoice_no, invoice_date, expense_type, taxable_value,
		 gst_rate, cgst, sgst, igst, total_value, ledger_name, processing_status)
		VALUES (:id, :run_id, :channel, :gstin, :invoice_no, :invoice_date, :expense_type, :taxable_value,
		 :gst_rate, :cgst, :sgst, :igst, :total_value, :ledger_name, :processing_status)`

	if _, err := r.db.NamedExecContext(ctx, query, invoices); err != nil {
		return fmt.Errorf("sellerInvoiceRepo.BulkInsert: %w", err)
	}
	return nil
}

func (r *sellerInvoiceRepo) ListByRun(ctx context.Context, runID uuid.UUID) ([]domain.SellerInvoice, error) {
	var invoices []domain.SellerInvoice
	err := r.db.SelectContext(ctx, &invoices,
		"SELECT * FROM seller_invoices WHERE run_id = $1 ORDER BY invoice_date, invoice_no", runID)
	if err != nil {
		return nil, fmt.Errorf("sellerInvoiceRepo.ListByRun: %w", err)
	}
	return invoices, nil
}

func (r *sellerInvoiceRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.ExpenseProcessingStatus) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE seller_invoices SET processing_status = $1 WHERE id = $2", status, id)
	if err != nil {
		return fmt.Errorf("sellerInvoiceRepo.UpdateStatus: %w", err)
	}
	return nil
}
