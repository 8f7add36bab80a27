package port

import (
	"context"

	"github.com/google/uuid"

	"gstpipeline/internal/domain"
)

// MISReportRepository persists derived management reports.
type MISReportRepository interface {
	Create(ctx context.Context, report *domain.MISReport) error
	GetByRun(ctx context.Context, runID uuid.UUID) (*domain.MISReport, error)
	ListByChannel(ctx context.Context, channel domain.Channel, gstin string) ([]domain.MISReport, error)
}
