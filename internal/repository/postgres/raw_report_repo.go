package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"gstpipeline/internal/domain"
	"gstpipeline/internal/port"
)

type rawReportRepo struct {
	db *sqlx.DB
}

// NewRawReportRepo creates a new PostgreSQL-backed RawReportRepository.
func NewRawReportRepo(db *sqlx.DB) port.RawReportRepository {
	return &rawReportRepo{db: db}
}

func (r *rawReportRepo) Create(ctx context.Context, report *domain.RawReport) error {
	if report.ID == uuid.Nil {
		report.ID = uuid.New()
	}
	if report.CreatedAt.IsZero() {
		report.CreatedAt = time.Now().UTC()
	}

	query := `INSERT INTO reports (id, run_id, report_type, file_path, hash, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.db.ExecContext(ctx, query,
		report.ID, report.RunID, report.ReportType, report.StoragePath, report.ContentHash, report.CreatedAt)
	if err != nil {
		return fmt.Errorf("rawReportRepo.Create: %w", err)
	}
	return nil
}

func (r *rawReportRepo) ListByRun(ctx context.Context, runID uuid.UUID) ([]domain.RawReport, error) {
	var reports []domain.RawReport
	err := r.db.SelectContext(ctx, &reports,
		`SELECT id, run_id, report_type, file_path AS storage_path, hash AS content_hash, created_at
		 FROM reports WHERE run_id = $1 ORDER BY created_at`, runID)
	if err != nil {
		return nil, fmt.Errorf("rawReportRepo.ListByRun: %w", err)
	}
	return reports, nil
}
