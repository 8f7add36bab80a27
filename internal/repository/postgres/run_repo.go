package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"gstpipeline/internal/domain"
	"gstpipeline/internal/port"
)

type runRepo struct {
	db *sqlx.DB
}

// NewRunRepo creates a new PostgreSQL-backed RunRepository.
func NewRunRepo(db *sqlx.DB) port.RunRepository {
	return &runRepo{db: db}
}

func (r *runRepo) Create(ctx context.Context, run *domain.Run) error {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}

	query := `INSERT INTO runs (id, channel, gstin, month, status, started_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.db.ExecContext(ctx, query,
		run.ID, run.Channel, run.GSTIN, run.Month, run.Status, run.StartedAt)
	if err != nil {
		return fmt.Errorf("runRepo.Create: %w", err)
	}
	return nil
}

func (r *runRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Run, error) {
	var run domain.Run
	err := r.db.GetContext(ctx, &run, "SELECT * FROM runs WHERE id = $1", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrRunNotFound
		}
		return nil, fmt.Errorf("runRepo.GetByID: %w", err)
	}
	return &run, nil
}

func (r *runRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.RunStatus) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE runs SET status = $1 WHERE id = $2 AND finished_at IS NULL", status, id)
	if err != nil {
		return fmt.Errorf("runRepo.UpdateStatus: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("runRepo.UpdateStatus rows: %w", err)
	}
	if affected == 0 {
		return domain.ErrRunAlreadyTerminal
	}
	return nil
}

func (r *runRepo) Finish(ctx context.Context, id uuid.UUID, status domain.RunStatus, finishedAt time.Time) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE runs SET status = $1, finished_at = $2 WHERE id = $3 AND finished_at IS NULL",
		status, finishedAt.UTC(), id)
	if err != nil {
		return fmt.Errorf("runRepo.Finish: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("runRepo.Finish rows: %w", err)
	}
	if affected == 0 {
		return domain.ErrRunAlreadyTerminal
	}
	return nil
}

func (r *runRepo) ListByMonth(ctx context.Context, channel domain.Channel, gstin, month string) ([]domain.Run, error) {
	var runs []domain.Run
	err := r.db.SelectContext(ctx, &runs,
		`SELECT * FROM runs WHERE channel = $1 AND gstin = $2 AND month = $3
		 ORDER BY started_at`, channel, gstin, month)
	if err != nil {
		return nil, fmt.Errorf("runRepo.ListByMonth: %w", err)
	}
	return runs, nil
}
