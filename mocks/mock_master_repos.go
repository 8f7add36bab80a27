package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"gstpipeline/internal/domain"
)

// MockItemMasterRepo is a mock implementation of port.ItemMasterRepository.
type MockItemMasterRepo struct {
	mock.Mock
}

func (m *MockItemMasterRepo) GetBySKU(ctx context.Context, sku string) (*domain.ItemMaster, error) {
	args := m.Called(ctx, sku)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ItemMaster), args.Error(1)
}

func (m *MockItemMasterRepo) GetByASIN(ctx context.Context, asin string) (*domain.ItemMaster, error) {
	args := m.Called(ctx, asin)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ItemMaster), args.Error(1)
}

func (m *MockItemMasterRepo) Create(ctx context.Context, item *domain.ItemMaster) error {
	args := m.Called(ctx, item)
	return args.Error(0)
}

func (m *MockItemMasterRepo) BulkInsertSkippingDuplicates(ctx context.Context, items []domain.ItemMaster) (int, error) {
	args := m.Called(ctx, items)
	return args.Int(0), args.Error(1)
}

// MockLedgerMasterRepo is a mock implementation of port.LedgerMasterRepository.
type MockLedgerMasterRepo struct {
	mock.Mock
}

func (m *MockLedgerMasterRepo) Get(ctx context.Context, channel domain.Channel, stateCode string) (*domain.LedgerMaster, error) {
	args := m.Called(ctx, channel, stateCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LedgerMaster), args.Error(1)
}

func (m *MockLedgerMasterRepo) Create(ctx context.Context, ledger *domain.LedgerMaster) error {
	args := m.Called(ctx, ledger)
	return args.Error(0)
}

func (m *MockLedgerMasterRepo) BulkInsertSkippingDuplicates(ctx context.Context, ledgers []domain.LedgerMaster) (int, error) {
	args := m.Called(ctx, ledgers)
	return args.Int(0), args.Error(1)
}
