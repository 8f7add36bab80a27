package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"gstpipeline/internal/domain"
	"gstpipeline/internal/port"
)

type misRepo struct {
	db *sqlx.DB
}

// NewMISRepo creates a new PostgreSQL-backed MISReportRepository. The four
// metric groups are stored as one jsonb column each.
func NewMISRepo(db *sqlx.DB) port.MISReportRepository {
	return &misRepo{db: db}
}

// misRow is the flattened table shape of an MISReport.
type misRow struct {
	RunID            uuid.UUID       `db:"run_id"`
	Channel          domain.Channel  `db:"channel"`
	GSTIN            string          `db:"gstin"`
	Month            string          `db:"month"`
	SalesMetrics     []byte          `db:"sales_metrics"`
	ExpenseMetrics   []byte          `db:"expense_metrics"`
	GSTMetrics       []byte          `db:"gst_metrics"`
	ProfitMetrics    []byte          `db:"profitability_metrics"`
	DataQualityScore decimal.Decimal `db:"data_quality_score"`
	ExceptionCount   int             `db:"exception_count"`
	ApprovalCount    int             `db:"approval_count"`
	CreatedAt        time.Time       `db:"created_at"`
}

func (r *misRepo) Create(ctx context.Context, report *domain.MISReport) error {
	row, err := toMISRow(report)
	if err != nil {
		return fmt.Errorf("misRepo.Create marshal: %w", err)
	}

	query := `INSERT INTO mis_reports
		(run_id, channel, gstin, month, sales_metrics, expense_metrics, gst_metrics,
		 profitability_metrics, data_quality_score, exception_count, approval_count, created_at)
		VALUES (:run_id, :channel, :gstin, :month, :sales_metrics, :expense_metrics, :gst_metrics,
		 :profitability_metrics, :data_quality_score, :exception_count, :approval_count, :created_at)`

	if _, err := r.db.NamedExecContext(ctx, query, row); err != nil {
		return fmt.Errorf("misRepo.Create: %w", err)
	}
	return nil
}

func (r *misRepo) GetByRun(ctx context.Context, runID uuid.UUID) (*domain.MISReport, error) {
	var row misRow
	err := r.db.GetContext(ctx, &row, "SELECT * FROM mis_reports WHERE run_id = $1", runID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrMISIncomplete
		}
		return nil, fmt.Errorf("misRepo.GetByRun: %w", err)
	}
	return fromMISRow(row)
}

func (r *misRepo) ListByChannel(ctx context.Context, channel domain.Channel, gstin string) ([]domain.MISReport, error) {
	var rows []misRow
	err := r.db.SelectContext(ctx, &rows,
		"SELECT * FROM mis_reports WHERE channel = $1 AND gstin = $2 ORDER BY month", channel, gstin)
	if err != nil {
		return nil, fmt.Errorf("misRepo.ListByChannel: %w", err)
	}

	reports := make([]domain.MISReport, 0, len(rows))
	for _, row := range rows {
		report, err := fromMISRow(row)
		if err != nil {
			return nil, err
		}
		reports = append(reports, *report)
	}
	return reports, nil
}

func toMISRow(report *domain.MISReport) (*misRow, error) {
	sales, err := json.Marshal(report.Sales)
	if err != nil {
		return nil, err
	}
	expense, err := json.Marshal(report.Expense)
	if err != nil {
		return nil, err
	}
	gst, err := json.Marshal(report.GST)
	if err != nil {
		return nil, err
	}
	profit, err := json.Marshal(report.Profitability)
	if err != nil {
		return nil, err
	}
	return &misRow{
		RunID:            report.RunID,
		Channel:          report.Channel,
		GSTIN:            report.GSTIN,
		Month:            report.Month,
		SalesMetrics:     sales,
		ExpenseMetrics:   expense,
		GSTMetrics:       gst,
		ProfitMetrics:    profit,
		DataQualityScore: report.DataQualityScore,
		ExceptionCount:   report.ExceptionCount,
		ApprovalCount:    report.ApprovalCount,
		CreatedAt:        report.CreatedAt,
	}, nil
}

func fromMISRow(row misRow) (*domain.MISReport, error) {
	report := &domain.MISReport{
		RunID:            row.RunID,
		Channel:          row.Channel,
		GSTIN:            row.GSTIN,
		Month:            row.Month,
		DataQualityScore: row.DataQualityScore,
		ExceptionCount:   row.ExceptionCount,
		ApprovalCount:    row.ApprovalCount,
		CreatedAt:        row.CreatedAt,
	}
	if err := json.Unmarshal(row.SalesMetrics, &report.Sales); err != nil {
		return nil, fmt.Errorf("misRepo sales_metrics: %w", err)
	}
	if err := json.Unmarshal(row.ExpenseMetrics, &report.Expense); err != nil {
		return nil, fmt.Errorf("misRepo expense_metrics: %w", err)
	}
	if err := json.Unmarshal(row.GSTMetrics, &report.GST); err != nil {
		return nil, fmt.Errorf("misRepo gst_metrics: %w", err)
	}
	if err := json.Unmarshal(row.ProfitMetrics, &report.Profitability); err != nil {
		return nil, fmt.Errorf("misRepo profitability_metrics: %w", err)
	}
	return report, nil
}
