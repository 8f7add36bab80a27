package mis

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"gstpipeline/internal/domain"
)

var csvColumns = []string{
	"run_id", "channel", "gstin", "month",
	"total_sales", "total_returns", "net_sales", "total_transactions",
	"total_skus", "total_quantity", "avg_order_value",
	"expense_commission", "expense_shipping", "expense_fulfillment",
	"expense_advertising", "expense_storage", "expense_other", "total_expenses",
	"net_gst_output", "net_gst_input", "gst_liability", "cgst", "sgst", "igst",
	"gross_profit", "profit_margin", "revenue_per_txn", "cost_per_txn", "return_rate",
	"data_quality_score", "exception_count", "approval_count", "created_at",
}

// WriteCSV emits the flat single-row CSV form of a report.
func WriteCSV(w io.Writer, r domain.MISReport) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvColumns); err != nil {
		return fmt.Errorf("mis csv header: %w", err)
	}

	record := []string{
		r.RunID.String(), string(r.Channel), r.GSTIN, r.Month,
		r.Sales.TotalSales.StringFixed(2), r.Sales.TotalReturns.StringFixed(2),
		r.Sales.NetSales.StringFixed(2), fmt.Sprintf("%d", r.Sales.TotalTransactions),
		fmt.Sprintf("%d", r.Sales.TotalSKUs), fmt.Sprintf("%d", r.Sales.TotalQuantity),
		r.Sales.AvgOrderValue.StringFixed(2),
		r.Expense.Commission.StringFixed(2), r.Expense.Shipping.StringFixed(2),
		r.Expense.Fulfillment.StringFixed(2), r.Expense.Advertising.StringFixed(2),
		r.Expense.Storage.StringFixed(2), r.Expense.Other.StringFixed(2),
		r.Expense.Total().StringFixed(2),
		r.GST.NetGSTOutput.StringFixed(2), r.GST.NetGSTInput.StringFixed(2),
		r.GST.GSTLiability.StringFixed(2), r.GST.CGST.StringFixed(2),
		r.GST.SGST.StringFixed(2), r.GST.IGST.StringFixed(2),
		r.Profitability.GrossProfit.StringFixed(2), r.Profitability.ProfitMargin.StringFixed(2),
		r.Profitability.RevenuePerTxn.StringFixed(2), r.Profitability.CostPerTxn.StringFixed(2),
		r.Profitability.ReturnRate.StringFixed(2),
		r.DataQualityScore.StringFixed(2),
		fmt.Sprintf("%d", r.ExceptionCount), fmt.Sprintf("%d", r.ApprovalCount),
		r.CreatedAt.Format("2006-01-02 15:04:05"),
	}
	if err := cw.Write(record); err != nil {
		return fmt.Errorf("mis csv row: %w", err)
	}
	cw.Flush()
	return cw.Error()
}

// misSheet is the worksheet name of the Excel summary.
const misSheet = "MIS Summary"

// WriteExcel builds the single-sheet Excel summary with styled section
// headers.
func WriteExcel(r domain.MISReport) (*excelize.File, error) {
	f := excelize.NewFile()
	idx, err := f.NewSheet(misSheet)
	if err != nil {
		return nil, fmt.Errorf("mis excel sheet: %w", err)
	}
	f.SetActiveSheet(idx)
	_ = f.DeleteSheet("Sheet1")

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"4472C4"}},
	})
	if err != nil {
		return nil, fmt.Errorf("mis excel style: %w", err)
	}

	row := 1
	section := func(title string) error {
		cell := fmt.Sprintf("A%d", row)
		if err := f.SetCellValue(misSheet, cell, title); err != nil {
			return err
		}
		if err := f.SetCellStyle(misSheet, cell, fmt.Sprintf("B%d", row), headerStyle); err != nil {
			return err
		}
		row++
		return nil
	}
	kv := func(label string, value interface{}) error {
		if err := f.SetCellValue(misSheet, fmt.Sprintf("A%d", row), label); err != nil {
			return err
		}
		if err := f.SetCellValue(misSheet, fmt.Sprintf("B%d", row), value); err != nil {
			return err
		}
		row++
		return nil
	}

	steps := []func() error{
		func() error { return section(fmt.Sprintf("MIS Report — %s %s %s", r.Channel, r.GSTIN, r.Month)) },
		func() error { return kv("Run ID", r.RunID.String()) },
		func() error { return kv("Created At", r.CreatedAt.Format("2006-01-02 15:04:05")) },

		func() error { return section("Sales") },
		func() error { return kv("Total Sales", r.Sales.TotalSales.InexactFloat64()) },
		func() error { return kv("Total Returns", r.Sales.TotalReturns.InexactFloat64()) },
		func() error { return kv("Net Sales", r.Sales.NetSales.InexactFloat64()) },
		func() error { return kv("Transactions", r.Sales.TotalTransactions) },
		func() error { return kv("Distinct SKUs", r.Sales.TotalSKUs) },
		func() error { return kv("Total Quantity", r.Sales.TotalQuantity) },
		func() error { return kv("Avg Order Value", r.Sales.AvgOrderValue.InexactFloat64()) },

		func() error { return section("Expenses") },
		func() error { return kv("Commission", r.Expense.Commission.InexactFloat64()) },
		func() error { return kv("Shipping", r.Expense.Shipping.InexactFloat64()) },
		func() error { return kv("Fulfillment", r.Expense.Fulfillment.InexactFloat64()) },
		func() error { return kv("Advertising", r.Expense.Advertising.InexactFloat64()) },
		func() error { return kv("Storage", r.Expense.Storage.InexactFloat64()) },
		func() error { return kv("Other", r.Expense.Other.InexactFloat64()) },
		func() error { return kv("Total Expenses", r.Expense.Total().InexactFloat64()) },

		func() error { return section("GST") },
		func() error { return kv("Output GST", r.GST.NetGSTOutput.InexactFloat64()) },
		func() error { return kv("Input GST", r.GST.NetGSTInput.InexactFloat64()) },
		func() error { return kv("GST Liability", r.GST.GSTLiability.InexactFloat64()) },
		func() error { return kv("CGST", r.GST.CGST.InexactFloat64()) },
		func() error { return kv("SGST", r.GST.SGST.InexactFloat64()) },
		func() error { return kv("IGST", r.GST.IGST.InexactFloat64()) },

		func() error { return section("Profitability") },
		func() error { return kv("Gross Profit", r.Profitability.GrossProfit.InexactFloat64()) },
		func() error { return kv("Profit Margin %", r.Profitability.ProfitMargin.InexactFloat64()) },
		func() error { return kv("Revenue / Txn", r.Profitability.RevenuePerTxn.InexactFloat64()) },
		func() error { return kv("Cost / Txn", r.Profitability.CostPerTxn.InexactFloat64()) },
		func() error { return kv("Return Rate %", r.Profitability.ReturnRate.InexactFloat64()) },

		func() error { return section("Data Quality") },
		func() error { return kv("Quality Score", r.DataQualityScore.InexactFloat64()) },
		func() error { return kv("Exceptions", r.ExceptionCount) },
		func() error { return kv("Approvals", r.ApprovalCount) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return nil, fmt.Errorf("mis excel write: %w", err)
		}
	}

	if err := f.SetColWidth(misSheet, "A", "A", 24); err != nil {
		return nil, err
	}
	if err := f.SetColWidth(misSheet, "B", "B", 40); err != nil {
		return nil, err
	}
	return f, nil
}
