package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"gstpipeline/internal/domain"
	"gstpipeline/internal/port"
)

type batchRepo struct {
	db *sqlx.DB
}

// NewBatchRepo creates a new PostgreSQL-backed BatchRepository.
func NewBatchRepo(db *sqlx.DB) port.BatchRepository {
	return &batchRepo{db: db}
}

func (r *batchRepo) BulkInsert(ctx context.Context, batches []domain.BatchFile) error {
	if len(batches) == 0 {
		return nil
	}
	query := `INSERT INTO batch_registry
		(run_id, channel, gstin, month, gst_rate, file_path, record_count, total_taxable, total_tax)
		VALUES (:run_id, :channel, :gstin, :month, :gst_rate, :file_path, :record_count, :total_taxable, :total_tax)`

	if _, err := r.db.NamedExecContext(ctx, query, batches); err != nil {
		return fmt.Errorf("batchRepo.BulkInsert: %w", err)
	}
	return nil
}

func (r *batchRepo) ListByRun(ctx context.Context, runID uuid.UUID) ([]domain.BatchFile, error) {
	var batches []domain.BatchFile
	err := r.db.SelectContext(ctx, &batches,
		"SELECT * FROM batch_registry WHERE run_id = $1 ORDER BY gst_rate", runID)
	if err != nil {
		return nil, fmt.Errorf("batchRepo.ListByRun: %w", err)
	}
	return batches, nil
}
