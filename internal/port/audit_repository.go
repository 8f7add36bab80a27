package port

import (
	"context"

	"github.com/google/uuid"

	"gstpipeline/internal/domain"
)

// AuditLogRepository persists the immutable, append-only audit trail.
type AuditLogRepository interface {
	BulkInsert(ctx context.Context, entries []domain.AuditLogEntry) error
	ListByRun(ctx context.Context, runID uuid.UUID) ([]domain.AuditLogEntry, error)
}
