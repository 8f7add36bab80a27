package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"gstpipeline/internal/domain"
	"gstpipeline/internal/port"
)

type invoiceRegistryRepo struct {
	db *sqlx.DB
}

// NewInvoiceRegistryRepo creates a new PostgreSQL-backed InvoiceRegistryRepository.
func NewInvoiceRegistryRepo(db *sqlx.DB) port.InvoiceRegistryRepository {
	return &invoiceRegistryRepo{db: db}
}

func (r *invoiceRegistryRepo) BulkInsert(ctx context.Context, entries []domain.InvoiceRegistry) error {
	if len(entries) == 0 {
		return nil
	}
	query := `INSERT INTO invoice_registry (run_id, channel, gstin, state_code, invoice_no, month)
		VALUES (:run_id, :channel, :gstin, :state_code, :invoice_no, :month)`

	if _, err := r.db.NamedExecContext(ctx, query, entries); err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return domain.ErrDuplicateInvoiceNo
		}
		return fmt.Errorf("invoiceRegistryRepo.BulkInsert: %w", err)
	}
	return nil
}

func (r *invoiceRegistryRepo) ListNumbers(ctx context.Context, channel domain.Channel, gstin, month string) ([]string, error) {
	var numbers []string
	err := r.db.SelectContext(ctx, &numbers,
		`SELECT invoice_no FROM invoice_registry
		 WHERE channel = $1 AND gstin = $2 AND month = $3 ORDER BY invoice_no`,
		channel, gstin, month)
	if err != nil {
		return nil, fmt.Errorf("invoiceRegistryRepo.ListNumbers: %w", err)
	}
	return numbers, nil
}
