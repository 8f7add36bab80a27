package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"gstpipeline/internal/domain"
	"gstpipeline/internal/port"
)

type tallyExportRepo struct {
	db *sqlx.DB
}

// NewTallyExportRepo creates a new PostgreSQL-backed TallyExportRepository.
func NewTallyExportRepo(db *sqlx.DB) port.TallyExportRepository {
	return &tallyExportRepo{db: db}
}

func (r *tallyExportRepo) Create(ctx context.Context, export *domain.TallyExport) error {
	query := `INSERT INTO tally_exports
		(run_id, channel, gstin, month, gst_rate, template_name, file_path,
		 file_size, record_count, total_taxable, total_tax, export_status)
		VALUES (:run_id, :channel, :gstin, :month, :gst_rate, :template_name, :file_path,
		 :file_size, :record_count, :total_taxable, :total_tax, :export_status)`

	if _, err := r.db.NamedExecContext(ctx, query, export); err != nil {
		return fmt.Errorf("tallyExportRepo.Create: %w", err)
	}
	return nil
}

func (r *tallyExportRepo) ListByRun(ctx context.Context, runID uuid.UUID) ([]domain.TallyExport, error) {
	var exports []domain.TallyExport
	err := r.db.SelectContext(ctx, &exports,
		"SELECT * FROM tally_exports WHERE run_id = $1 ORDER BY gst_rate", runID)
	if err != nil {
		return nil, fmt.Errorf("tallyExportRepo.ListByRun: %w", err)
	}
	return exports, nil
}
