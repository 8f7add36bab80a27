package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"gstpipeline/internal/domain"
	"gstpipeline/internal/port"
)

type itemMasterRepo struct {
	db *sqlx.DB
}

// NewItemMasterRepo creates a new PostgreSQL-backed ItemMasterRepository.
func NewItemMasterRepo(db *sqlx.DB) port.ItemMasterRepository {
	return &itemMasterRepo{db: db}
}

func (r *itemMasterRepo) GetBySKU(ctx context.Context, sku string) (*domain.ItemMaster, error) {
	var item domain.ItemMaster
	err := r.db.GetContext(ctx, &item,
		"SELECT * FROM item_master WHERE sku = $1", sku)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrItemMasterNotFound
		}
		return nil, fmt.Errorf("itemMasterRepo.GetBySKU: %w", err)
	}
	return &item, nil
}

func (r *itemMasterRepo) GetByASIN(ctx context.Context, asin string) (*domain.ItemMaster, error) {
	var item domain.ItemMaster
	err := r.db.GetContext(ctx, &item,
		"SELECT * FROM item_master WHERE asin = $1", asin)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrItemMasterNotFound
		}
		return nil, fmt.Errorf("itemMasterRepo.GetByASIN: %w", err)
	}
	return &item, nil
}

func (r *itemMasterRepo) Create(ctx context.Context, item *domain.ItemMaster) error {
	query := `INSERT INTO item_master (sku, asin, item_code, fg, gst_rate, approved_by, approved_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`

	err := r.db.QueryRowxContext(ctx, query,
		nullIfEmpty(item.SKU), nullIfEmpty(item.ASIN), item.ItemCode, item.FG,
		item.GSTRateDefault, item.ApprovedBy, item.ApprovedAt).Scan(&item.ID)
	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return domain.ErrDuplicateItemMaster
		}
		return fmt.Errorf("itemMasterRepo.Create: %w", err)
	}
	return nil
}

func (r *itemMasterRepo) BulkInsertSkippingDuplicates(ctx context.Context, items []domain.ItemMaster) (int, error) {
	inserted := 0
	for i := range items {
		err := r.Create(ctx, &items[i])
		if errors.Is(err, domain.ErrDuplicateItemMaster) {
			continue
		}
		if err != nil {
			return inserted, fmt.Errorf("itemMasterRepo.BulkInsertSkippingDuplicates: %w", err)
		}
		inserted++
	}
	return inserted, nil
}

// nullIfEmpty maps "" to NULL so partial unique indexes on sku/asin ignore
// rows where only the other key is present.
func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
