package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"gstpipeline/internal/domain"
	"gstpipeline/internal/port"
)

type expenseExportRepo struct {
	db *sqlx.DB
}

// NewExpenseExportRepo creates a new PostgreSQL-backed ExpenseExportRepository.
func NewExpenseExportRepo(db *sqlx.DB) port.ExpenseExportRepository {
	return &expenseExportRepo{db: db}
}

func (r *expenseExportRepo) Create(ctx context.Context, export *domain.ExpenseExport) error {
	if export.ID == uuid.Nil {
		export.ID = uuid.New()
	}
	query := `INSERT INTO expense_exports
		(id, run_id, channel, gstin, month, expense_type, template_name, file_path,
		 file_size, record_count, total_taxable, total_tax, export_status)
		VALUES (:id, :run_id, :channel, :gstin, :month, :expense_type, :template_name, :file_path,
		 :file_size, :record_count, :total_taxable, :total_tax, :export_status)`

	if _, err := r.db.NamedExecContext(ctx, query, export); err != nil {
		return fmt.Errorf("expenseExportRepo.Create: %w", err)
	}
	return nil
}

func (r *expenseExportRepo) ListByRun(ctx context.Context, runID uuid.UUID) ([]domain.ExpenseExport, error) {
	var exports []domain.ExpenseExport
	err := r.db.SelectContext(ctx, &exports,
		"SELECT * FROM expense_exports WHERE run_id = $1 ORDER BY expense_type", runID)
	if err != nil {
		return nil, fmt.Errorf("expenseExportRepo.ListByRun: %w", err)
	}
	return exports, nil
}
