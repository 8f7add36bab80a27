package mis

import (
	"time"

	"github.com/shopspring/decimal"

	"gstpipeline/internal/domain"
)

var hundred = decimal.NewFromInt(100)

// Inputs carries everything the MIS generator derives its view from.
type Inputs struct {
	Run            domain.Run
	Rows           []domain.NormalizedRow
	Pivot          []domain.PivotSummary
	SellerInvoices []domain.SellerInvoice
	ExceptionCount int
	ApprovalCount  int
}

// Generate computes the derived MIS report for one (run, channel, gstin, month).
func Generate(in Inputs) domain.MISReport {
	sales := salesMetrics(in.Rows, in.Pivot)
	expense := expenseMetrics(in.SellerInvoices)
	gst := gstMetrics(in.Pivot, in.SellerInvoices)
	profit := profitabilityMetrics(sales, expense, in.Rows)

	return domain.MISReport{
		RunID:            in.Run.ID,
		Channel:          in.Run.Channel,
		GSTIN:            in.Run.GSTIN,
		Month:            in.Run.Month,
		Sales:            sales,
		Expense:          expense,
		GST:              gst,
		Profitability:    profit,
		DataQualityScore: DataQualityScore(len(in.Rows), in.ExceptionCount, in.ApprovalCount),
		ExceptionCount:   in.ExceptionCount,
		ApprovalCount:    in.ApprovalCount,
		CreatedAt:        time.Now().UTC(),
	}
}

func salesMetrics(rows []domain.NormalizedRow, pivot []domain.PivotSummary) domain.SalesMetrics {
	m := domain.SalesMetrics{}

	skus := make(map[string]struct{})
	for _, p := range pivot {
		m.TotalSales = m.TotalSales.Add(p.TotalTaxable)
		m.TotalQuantity += p.TotalQuantity
		if p.FG != "" {
			skus[p.FG] = struct{}{}
		}
	}
	m.TotalSKUs = len(skus)
	m.TotalTransactions = len(rows)

	for _, r := range rows {
		if r.IsReturn || r.Type == domain.RowTypeReturn || r.Type == domain.RowTypeRefund {
			m.TotalReturns = m.TotalReturns.Add(r.TaxableValue.Abs())
		}
	}
	m.NetSales = m.TotalSales.Sub(m.TotalReturns)

	if m.TotalTransactions > 0 {
		m.AvgOrderValue = m.TotalSales.DivRound(decimal.NewFromInt(int64(m.TotalTransactions)), 2)
	}
	m.TotalSales = m.TotalSales.Round(2)
	m.TotalReturns = m.TotalReturns.Round(2)
	m.NetSales = m.NetSales.Round(2)
	return m
}

func expenseMetrics(invoices []domain.SellerInvoice) domain.ExpenseMetrics {
	m := domain.ExpenseMetrics{}
	for _, inv := range invoices {
		switch domain.ExpenseBucketFor(inv.ExpenseType) {
		case "commission":
			m.Commission = m.Commission.Add(inv.TaxableValue)
		case "shipping":
			m.Shipping = m.Shipping.Add(inv.TaxableValue)
		case "fulfillment":
			m.Fulfillment = m.Fulfillment.Add(inv.TaxableValue)
		case "advertising":
			m.Advertising = m.Advertising.Add(inv.TaxableValue)
		case "storage":
			m.Storage = m.Storage.Add(inv.TaxableValue)
		default:
			m.Other = m.Other.Add(inv.TaxableValue)
		}
	}
	m.Commission = m.Commission.Round(2)
	m.Shipping = m.Shipping.Round(2)
	m.Fulfillment = m.Fulfillment.Round(2)
	m.Advertising = m.Advertising.Round(2)
	m.Storage = m.Storage.Round(2)
	m.Other = m.Other.Round(2)
	return m
}

func gstMetrics(pivot []domain.PivotSummary, invoices []domain.SellerInvoice) domain.GSTMetrics {
	m := domain.GSTMetrics{}
	for _, p := range pivot {
		m.CGST = m.CGST.Add(p.TotalCGST)
		m.SGST = m.SGST.Add(p.TotalSGST)
		m.IGST = m.IGST.Add(p.TotalIGST)
	}
	m.NetGSTOutput = m.CGST.Add(m.SGST).Add(m.IGST).Round(2)

	for _, inv := range invoices {
		m.NetGSTInput = m.NetGSTInput.Add(inv.CGST).Add(inv.SGST).Add(inv.IGST)
	}
	m.NetGSTInput = m.NetGSTInput.Round(2)
	m.GSTLiability = m.NetGSTOutput.Sub(m.NetGSTInput).Round(2)
	m.CGST = m.CGST.Round(2)
	m.SGST = m.SGST.Round(2)
	m.IGST = m.IGST.Round(2)
	return m
}

func profitabilityMetrics(sales domain.SalesMetrics, expense domain.ExpenseMetrics, rows []domain.NormalizedRow) domain.ProfitabilityMetrics {
	m := domain.ProfitabilityMetrics{}
	totalExpenses := expense.Total()
	m.GrossProfit = sales.NetSales.Sub(totalExpenses).Round(2)

	if sales.NetSales.IsPositive() {
		m.ProfitMargin = m.GrossProfit.Div(sales.NetSales).Mul(hundred).Round(2)
	}

	if sales.TotalTransactions > 0 {
		txns := decimal.NewFromInt(int64(sales.TotalTransactions))
		m.RevenuePerTxn = sales.TotalSales.DivRound(txns, 2)
		m.CostPerTxn = totalExpenses.DivRound(txns, 2)
	}

	returns := 0
	for _, r := range rows {
		if r.IsReturn || r.Type == domain.RowTypeReturn || r.Type == domain.RowTypeRefund {
			returns++
		}
	}
	if len(rows) > 0 {
		m.ReturnRate = decimal.NewFromInt(int64(returns)).
			Div(decimal.NewFromInt(int64(len(rows)))).Mul(hundred).Round(2)
	}
	return m
}

// DataQualityScore is max(0, 100 - 100*(exceptions+approvals)/total).
func DataQualityScore(totalRecords, exceptionCount, approvalCount int) decimal.Decimal {
	if totalRecords <= 0 {
		return hundred
	}
	penalty := decimal.NewFromInt(int64(exceptionCount + approvalCount)).
		Div(decimal.NewFromInt(int64(totalRecords))).Mul(hundred)
	score := hundred.Sub(penalty).Round(2)
	if score.IsNegative() {
		return decimal.Zero
	}
	return score
}

// GrowthRate computes (new-old)/old*100 with the comparative-report
// convention: old=0 yields 100 if new>0 else 0.
func GrowthRate(old, current decimal.Decimal) decimal.Decimal {
	if old.IsZero() {
		if current.IsPositive() {
			return hundred
		}
		return decimal.Zero
	}
	return current.Sub(old).Div(old).Mul(hundred).Round(2)
}

// Comparison is a month-over-month growth view across two MIS reports.
type Comparison struct {
	OldMonth         string          `json:"old_month"`
	NewMonth         string          `json:"new_month"`
	SalesGrowth      decimal.Decimal `json:"sales_growth"`
	NetSalesGrowth   decimal.Decimal `json:"net_sales_growth"`
	ExpenseGrowth    decimal.Decimal `json:"expense_growth"`
	GSTLiabilityGrowth decimal.Decimal `json:"gst_liability_growth"`
	ProfitGrowth     decimal.Decimal `json:"profit_growth"`
}

// Compare builds the month-over-month comparative report.
func Compare(old, current domain.MISReport) Comparison {
	return Comparison{
		OldMonth:           old.Month,
		NewMonth:           current.Month,
		SalesGrowth:        GrowthRate(old.Sales.TotalSales, current.Sales.TotalSales),
		NetSalesGrowth:     GrowthRate(old.Sales.NetSales, current.Sales.NetSales),
		ExpenseGrowth:      GrowthRate(old.Expense.Total(), current.Expense.Total()),
		GSTLiabilityGrowth: GrowthRate(old.GST.GSTLiability, current.GST.GSTLiability),
		ProfitGrowth:       GrowthRate(old.Profitability.GrossProfit, current.Profitability.GrossProfit),
	}
}
