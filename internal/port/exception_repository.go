package port

import (
	"context"

	"github.com/google/uuid"

	"gstpipeline/internal/domain"
)

// ExceptionRepository persists detected defects. Writes are batched by the
// detection passes.
type ExceptionRepository interface {
	BulkInsert(ctx context.Context, exceptions []domain.Exception) error
	ListByRun(ctx context.Context, runID uuid.UUID) ([]domain.Exception, error)
	CountByRun(ctx context.Context, runID uuid.UUID) (int, error)
}
