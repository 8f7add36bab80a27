package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"gstpipeline/internal/domain"
	"gstpipeline/internal/port"
)

type pivotRepo struct {
	db *sqlx.DB
}

// NewPivotRepo creates a new PostgreSQL-backed PivotRepository.
func NewPivotRepo(db *sqlx.DB) port.PivotRepository {
	return &pivotRepo{db: db}
}

func (r *pivotRepo) BulkInsert(ctx context.Context, summaries []domain.PivotSummary) error {
	if len(summaries) == 0 {
		return nil
	}
	query := `INSERT INTO pivot_summaries
		(run_id, channel, gstin, month, gst_rate, ledger, fg, state_code,
		 total_quantity, total_taxable, total_cgst, total_sgst, total_igst)
		VALUES (:run_id, :channel, :gstin, :month, :gst_rate, :ledger, :fg, :state_code,
		 :total_quantity, :total_taxable, :total_cgst, :total_sgst, :total_igst)`

	if _, err := r.db.NamedExecContext(ctx, query, summaries); err != nil {
		return fmt.Errorf("pivotRepo.BulkInsert: %w", err)
	}
	return nil
}

func (r *pivotRepo) ListByRun(ctx context.Context, runID uuid.UUID) ([]domain.PivotSummary, error) {
	var summaries []domain.PivotSummary
	err := r.db.SelectContext(ctx, &summaries,
		"SELECT * FROM pivot_summaries WHERE run_id = $1 ORDER BY gst_rate, ledger, fg", runID)
	if err != nil {
		return nil, fmt.Errorf("pivotRepo.ListByRun: %w", err)
	}
	return summaries, nil
}
