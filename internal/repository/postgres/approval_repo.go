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

type approvalRepo struct {
	db *sqlx.DB
}

// NewApprovalRepo creates a new PostgreSQL-backed ApprovalRepository.
func NewApprovalRepo(db *sqlx.DB) port.ApprovalRepository {
	return &approvalRepo{db: db}
}

func (r *approvalRepo) Create(ctx context.Context, req *domain.ApprovalRequest) error {
	if req.ID == uuid.Nil {
		req.ID = uuid.New()
	}
	if req.CreatedAt.IsZero() {
		req.CreatedAt = time.Now().UTC()
	}
	if req.Status == "" {
		req.Status = domain.ApprovalStatusPending
	}

	query := `INSERT INTO approval_queue
		(id, run_id, request_type, payload, status, suggested_value, priority, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.db.ExecContext(ctx, query,
		req.ID, req.RunID, req.Type, req.Payload, req.Status,
		req.SuggestedValue, req.Priority, req.CreatedAt)
	if err != nil {
		return fmt.Errorf("approvalRepo.Create: %w", err)
	}
	return nil
}

func (r *approvalRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.ApprovalRequest, error) {
	var req domain.ApprovalRequest
	err := r.db.GetContext(ctx, &req, "SELECT * FROM approval_queue WHERE id = $1", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrApprovalNotFound
		}
		return nil, fmt.Errorf("approvalRepo.GetByID: %w", err)
	}
	return &req, nil
}

func (r *approvalRepo) ListPending(ctx context.Context, runID uuid.UUID) ([]domain.ApprovalRequest, error) {
	var reqs []domain.ApprovalRequest
	err := r.db.SelectContext(ctx, &reqs,
		`SELECT * FROM approval_queue WHERE run_id = $1 AND status = $2
		 ORDER BY priority DESC, created_at`, runID, domain.ApprovalStatusPending)
	if err != nil {
		return nil, fmt.Errorf("approvalRepo.ListPending: %w", err)
	}
	return reqs, nil
}

func (r *approvalRepo) ListAllPending(ctx context.Context, limit int) ([]domain.ApprovalRequest, error) {
	var reqs []domain.ApprovalRequest
	err := r.db.SelectContext(ctx, &reqs,
		`SELECT * FROM approval_queue WHERE status = $1
		 ORDER BY created_at LIMIT $2`, domain.ApprovalStatusPending, limit)
	if err != nil {
		return nil, fmt.Errorf("approvalRepo.ListAllPending: %w", err)
	}
	return reqs, nil
}

func (r *approvalRepo) ListByType(ctx context.Context, runID uuid.UUID, t domain.ApprovalType) ([]domain.ApprovalRequest, error) {
	var reqs []domain.ApprovalRequest
	err := r.db.SelectContext(ctx, &reqs,
		`SELECT * FROM approval_queue WHERE run_id = $1 AND request_type = $2
		 ORDER BY created_at`, runID, t)
	if err != nil {
		return nil, fmt.Errorf("approvalRepo.ListByType: %w", err)
	}
	return reqs, nil
}

func (r *approvalRepo) ExistsPendingForKey(ctx context.Context, runID uuid.UUID, t domain.ApprovalType, suggestedValue string) (bool, error) {
	var count int
	err := r.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM approval_queue
		 WHERE run_id = $1 AND request_type = $2 AND suggested_value = $3 AND status = $4`,
		runID, t, suggestedValue, domain.ApprovalStatusPending)
	if err != nil {
		return false, fmt.Errorf("approvalRepo.ExistsPendingForKey: %w", err)
	}
	return count > 0, nil
}

func (r *approvalRepo) Decide(ctx context.Context, id uuid.UUID, status domain.ApprovalStatus, approver, notes string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE approval_queue SET status = $1, approver = $2, notes = $3, decided_at = $4
		 WHERE id = $5 AND status = $6`,
		status, approver, notes, time.Now().UTC(), id, domain.ApprovalStatusPending)
	if err != nil {
		return fmt.Errorf("approvalRepo.Decide: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("approvalRepo.Decide rows: %w", err)
	}
	if affected == 0 {
		return domain.ErrApprovalNotPending
	}
	return nil
}
