package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"gstpipeline/internal/domain"
	"gstpipeline/internal/port"
)

type auditLogRepo struct {
	db *sqlx.DB
}

// NewAuditLogRepo creates a new PostgreSQL-backed AuditLogRepository. The
// table is append-only; there are no update or delete operations.
func NewAuditLogRepo(db *sqlx.DB) port.AuditLogRepository {
	return &auditLogRepo{db: db}
}

func (r *auditLogRepo) BulkInsert(ctx context.Context, entries []domain.AuditLogEntry) error {
	if len(entries) == 0 {
		return nil
	}
	query := `INSERT INTO audit_logs
		(id, run_id, actor, action, entity_type, entity_id, details, metadata, timestamp)
		VALUES (:id, :run_id, :actor, :action, :entity_type, :entity_id, :details, :metadata, :timestamp)`

	if _, err := r.db.NamedExecContext(ctx, query, entries); err != nil {
		return fmt.Errorf("auditLogRepo.BulkInsert: %w", err)
	}
	return nil
}

func (r *auditLogRepo) ListByRun(ctx context.Context, runID uuid.UUID) ([]domain.AuditLogEntry, error) {
	var entries []domain.AuditLogEntry
	err := r.db.SelectContext(ctx, &entries,
		"SELECT * FROM audit_logs WHERE run_id = $1 ORDER BY timestamp, id", runID)
	if err != nil {
		return nil, fmt.Errorf("auditLogRepo.ListByRun: %w", err)
	}
	return entries, nil
}
