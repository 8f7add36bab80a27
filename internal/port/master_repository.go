package port

import (
	"context"

	"gstpipeline/internal/domain"
)

// ItemMasterRepository persists SKU/ASIN→FG resolutions.
type ItemMasterRepository interface {
	GetBySKU(ctx context.Context, sku string) (*domain.ItemMaster, error)
	GetByASIN(ctx context.Context, asin string) (*domain.ItemMaster, error)
	Create(ctx context.Context, item *domain.ItemMaster) error
	BulkInsertSkippingDuplicates(ctx context.Context, items []domain.ItemMaster) (int, error)
}

// LedgerMasterRepository persists channel+state→ledger-name resolutions.
type LedgerMasterRepository interface {
	Get(ctx context.Context, channel domain.Channel, stateCode string) (*domain.LedgerMaster, error)
	Create(ctx context.Context, ledger *domain.LedgerMaster) error
	BulkInsertSkippingDuplicates(ctx context.Context, ledgers []domain.LedgerMaster) (int, error)
}
