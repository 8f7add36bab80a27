package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"gstpipeline/internal/domain"
)

// MockApprovalRepo is a mock implementation of port.ApprovalRepository.
type MockApprovalRepo struct {
	mock.Mock
}

func (m *MockApprovalRepo) Create(ctx context.Context, req *domain.ApprovalRequest) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}

func (m *MockApprovalRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.ApprovalRequest, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ApprovalRequest), args.Error(1)
}

func (m *MockApprovalRepo) ListPending(ctx context.Context, runID uuid.UUID) ([]domain.ApprovalRequest, error) {
	args := m.Called(ctx, runID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ApprovalRequest), args.Error(1)
}

func (m *MockApprovalRepo) ListAllPending(ctx context.Context, limit int) ([]domain.ApprovalRequest, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ApprovalRequest), args.Error(1)
}

func (m *MockApprovalRepo) ListByType(ctx context.Context, runID uuid.UUID, t domain.ApprovalType) ([]domain.ApprovalRequest, error) {
	args := m.Called(ctx, runID, t)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ApprovalRequest), args.Error(1)
}

func (m *MockApprovalRepo) ExistsPendingForKey(ctx context.Context, runID uuid.UUID, t domain.ApprovalType, suggestedValue string) (bool, error) {
	args := m.Called(ctx, runID, t, suggestedValue)
	return args.Bool(0), args.Error(1)
}

func (m *MockApprovalRepo) Decide(ctx context.Context, id uuid.UUID, status domain.ApprovalStatus, approver, notes string) error {
	args := m.Called(ctx, id, status, approver, notes)
	return args.Error(0)
}
