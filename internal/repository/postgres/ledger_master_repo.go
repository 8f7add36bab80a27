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

type ledgerMasterRepo struct {
	db *sqlx.DB
}

// NewLedgerMasterRepo creates a new PostgreSQL-backed LedgerMasterRepository.
func NewLedgerMasterRepo(db *sqlx.DB) port.LedgerMasterRepository {
	return &ledgerMasterRepo{db: db}
}

func (r *ledgerMasterRepo) Get(ctx context.Context, channel domain.Channel, stateCode string) (*domain.LedgerMaster, error) {
	var ledger domain.LedgerMaster
	err := r.db.GetContext(ctx, &ledger,
		"SELECT * FROM ledger_master WHERE channel = $1 AND state_code = $2",
		strings.ToLower(string(channel)), strings.ToUpper(stateCode))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrLedgerMasterNotFound
		}
		return nil, fmt.Errorf("ledgerMasterRepo.Get: %w", err)
	}
	return &ledger, nil
}

func (r *ledgerMasterRepo) Create(ctx context.Context, ledger *domain.LedgerMaster) error {
	query := `INSERT INTO ledger_master (channel, state_code, ledger_name, approved_by, approved_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`

	err := r.db.QueryRowxContext(ctx, query,
		strings.ToLower(string(ledger.Channel)), strings.ToUpper(ledger.StateCode),
		ledger.LedgerName, ledger.ApprovedBy, ledger.ApprovedAt).Scan(&ledger.ID)
	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return domain.ErrDuplicateLedgerMaster
		}
		return fmt.Errorf("ledgerMasterRepo.Create: %w", err)
	}
	return nil
}

func (r *ledgerMasterRepo) BulkInsertSkippingDuplicates(ctx context.Context, ledgers []domain.LedgerMaster) (int, error) {
	inserted := 0
	for i := range ledgers {
		err := r.Create(ctx, &ledgers[i])
		if errors.Is(err, domain.ErrDuplicateLedgerMaster) {
			continue
		}
		if err != nil {
			return inserted, fmt.Errorf("ledgerMasterRepo.BulkInsertSkippingDuplicates: %w", err)
		}
		inserted++
	}
	return inserted, nil
}
