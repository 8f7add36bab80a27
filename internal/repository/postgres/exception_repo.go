package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"gstpipeline/internal/domain"
	"gstpipeline/internal/port"
)

type exceptionRepo struct {
	db *sqlx.DB
}

// NewExceptionRepo creates a new PostgreSQL-backed ExceptionRepository.
func NewExceptionRepo(db *sqlx.DB) port.ExceptionRepository {
	return &exceptionRepo{db: db}
}

func (r *exceptionRepo) BulkInsert(ctx context.Context, exceptions []domain.Exception) error {
	if len(exceptions) == 0 {
		return nil
	}
	for i := range exceptions {
		if exceptions[i].ID == uuid.Nil {
			exceptions[i].ID = uuid.New()
		}
	}
	query := `INSERT INTO exceptions
		(id, run_id, record_type, record_id, error_code, error_message, error_details, severity, created_at)
		VALUES (:id, :run_id, :record_type, :record_id, :error_code, :error_message, :error_details, :severity, :created_at)`

	if _, err := r.db.NamedExecContext(ctx, query, exceptions); err != nil {
		return fmt.Errorf("exceptionRepo.BulkInsert: %w", err)
	}
	return nil
}

func (r *exceptionRepo) ListByRun(ctx context.Context, runID uuid.UUID) ([]domain.Exception, error) {
	var exceptions []domain.Exception
	err := r.db.SelectContext(ctx, &exceptions,
		"SELECT * FROM exceptions WHERE run_id = $1 ORDER BY created_at", runID)
	if err != nil {
		return nil, fmt.Errorf("exceptionRepo.ListByRun: %w", err)
	}
	return exceptions, nil
}

func (r *exceptionRepo) CountByRun(ctx context.Context, runID uuid.UUID) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count,
		"SELECT COUNT(*) FROM exceptions WHERE run_id = $1", runID)
	if err != nil {
		return 0, fmt.Errorf("exceptionRepo.CountByRun: %w", err)
	}
	return count, nil
}
