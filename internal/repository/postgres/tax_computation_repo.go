package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"gstpipeline/internal/domain"
	"gstpipeline/internal/port"
)

type taxComputationRepo struct {
	db *sqlx.DB
}

// NewTaxComputationRepo creates a new PostgreSQL-backed TaxComputationRepository.
func NewTaxComputationRepo(db *sqlx.DB) port.TaxComputationRepository {
	return &taxComputationRepo{db: db}
}

func (r *taxComputationRepo) BulkInsert(ctx context.Context, computations []domain.TaxComputation) error {
	if len(computations) == 0 {
		return nil
	}
	query := `INSERT INTO tax_computations
		(run_id, channel, gstin, state_code, sku, taxable_value, shipping_value, cgst, sgst, igst, gst_rate)
		VALUES (:run_id, :channel, :gstin, :state_code, :sku, :taxable_value, :shipping_value, :cgst, :sgst, :igst, :gst_rate)`

	if _, err := r.db.NamedExecContext(ctx, query, computations); err != nil {
		return fmt.Errorf("taxComputationRepo.BulkInsert: %w", err)
	}
	return nil
}

func (r *taxComputationRepo) ListByRun(ctx context.Context, runID uuid.UUID) ([]domain.TaxComputation, error) {
	var computations []domain.TaxComputation
	err := r.db.SelectContext(ctx, &computations,
		"SELECT * FROM tax_computations WHERE run_id = $1 ORDER BY state_code, sku", runID)
	if err != nil {
		return nil, fmt.Errorf("taxComputationRepo.ListByRun: %w", err)
	}
	return computations, nil
}
