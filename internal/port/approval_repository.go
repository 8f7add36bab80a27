package port

import (
	"context"

	"github.com/google/uuid"

	"gstpipeline/internal/domain"
)

// ApprovalRepository persists the human-in-the-loop approval queue.
type ApprovalRepository interface {
	Create(ctx context.Context, req *domain.ApprovalRequest) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.ApprovalRequest, error)
	ListPending(ctx context.Context, runID uuid.UUID) ([]domain.ApprovalRequest, error)
	// ListAllPending returns pending requests across every run, oldest first,
	// for the background approval-queue worker.
	ListAllPending(ctx context.Context, limit int) ([]domain.ApprovalRequest, error)
	ListByType(ctx context.Context, runID uuid.UUID, t domain.ApprovalType) ([]domain.ApprovalRequest, error)
	// ExistsPendingForKey reports whether a pending request with this
	// suggested value already exists, avoiding duplicate approval rows for
	// the same missing key.
	ExistsPendingForKey(ctx context.Context, runID uuid.UUID, t domain.ApprovalType, suggestedValue string) (bool, error)
	Decide(ctx context.Context, id uuid.UUID, status domain.ApprovalStatus, approver, notes string) error
}
