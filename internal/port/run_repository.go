package port

import (
	"context"
	"time"

	"github.com/google/uuid"

	"gstpipeline/internal/domain"
)

// RunRepository persists pipeline Run lifecycle records. Only the
// controller mutates a run; a run in a terminal status is immutable.
type RunRepository interface {
	Create(ctx context.Context, run *domain.Run) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Run, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.RunStatus) error
	// Finish sets the terminal status and finished_at in one statement, so
	// every controller exit path records run completion.
	Finish(ctx context.Context, id uuid.UUID, status domain.RunStatus, finishedAt time.Time) error
	ListByMonth(ctx context.Context, channel domain.Channel, gstin, month string) ([]domain.Run, error)
}

// RawReportRepository registers ingested input files.
type RawReportRepository interface {
	Create(ctx context.Context, report *domain.RawReport) error
	ListByRun(ctx context.Context, runID uuid.UUID) ([]domain.RawReport, error)
}
