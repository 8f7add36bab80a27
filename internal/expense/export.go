package expense

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"gstpipeline/internal/domain"
)

// Filename builds "{channel}_expenses_{gstin}_{month}_x2beta_{YYYYMMDD_HHMMSS}.xlsx".
func Filename(channel domain.Channel, gstin, month string, at time.Time) string {
	return fmt.Sprintf("%s_expenses_%s_%s_x2beta_%s.xlsx",
		channel, gstin, month, at.Format("20060102_150405"))
}

// CombinedFilename is Filename with "expenses" replaced by "combined", used
// when the expense vouchers are merged into the sales workbook.
func CombinedFilename(channel domain.Channel, gstin, month string, at time.Time) string {
	return fmt.Sprintf("%s_combined_%s_%s_x2beta_%s.xlsx",
		channel, gstin, month, at.Format("20060102_150405"))
}

// VoucherNo builds "EXP{SS}{YY}{MM}{seq4}" where SS is the company's GSTIN
// state code and YY/MM come from the run month.
func VoucherNo(companyGSTIN, month string, seq int) string {
	ss := stateCodePrefix(companyGSTIN)
	yy, mm := "00", "00"
	if len(month) == 7 { // "YYYY-MM"
		yy, mm = month[2:4], month[5:7]
	}
	return fmt.Sprintf("EXP%s%s%s%04d", ss, yy, mm, seq)
}

// Line is one row of an expense voucher group: a debit to the expense or
// input-GST ledger, or the closing credit to the channel payable ledger. The
// amounts of one voucher group net to zero.
type Line struct {
	Date        time.Time
	VoucherNo   string
	Ledger      string
	ExpenseType string
	Amount      decimal.Decimal
	Narration   string
}

// BuildVoucherLines expands each mapped seller-invoice record into its 3-5
// voucher lines: expense ledger debit, one debit per nonzero input-GST leg,
// and a credit to "{Channel} Payable" for the negated total.
func BuildVoucherLines(companyGSTIN, month string, invoices []domain.SellerInvoice) []Line {
	var lines []Line
	for i, inv := range invoices {
		voucherNo := VoucherNo(companyGSTIN, month, i+1)
		narration := fmt.Sprintf("%s - %s", inv.ExpenseType, inv.InvoiceNo)
		payable := fmt.Sprintf("%s Payable", titleCase(string(inv.Channel)))

		split := GSTSplit{
			CGSTRate: inv.GSTRate.Div(decimal.NewFromInt(2)), SGSTRate: inv.GSTRate.Div(decimal.NewFromInt(2)),
			IGSTRate:   inv.GSTRate,
			CGSTAmount: inv.CGST, SGSTAmount: inv.SGST, IGSTAmount: inv.IGST,
		}
		cgstLedger, sgstLedger, igstLedger := LedgerNames(split)

		lines = append(lines, Line{
			Date: inv.InvoiceDate, VoucherNo: voucherNo, Ledger: inv.LedgerName,
			ExpenseType: inv.ExpenseType, Amount: inv.TaxableValue, Narration: narration,
		})
		if inv.CGST.Sign() > 0 {
			lines = append(lines, Line{
				Date: inv.InvoiceDate, VoucherNo: voucherNo, Ledger: cgstLedger,
				ExpenseType: inv.ExpenseType, Amount: inv.CGST, Narration: narration,
			})
		}
		if inv.SGST.Sign() > 0 {
			lines = append(lines, Line{
				Date: inv.InvoiceDate, VoucherNo: voucherNo, Ledger: sgstLedger,
				ExpenseType: inv.ExpenseType, Amount: inv.SGST, Narration: narration,
			})
		}
		if inv.IGST.Sign() > 0 {
			lines = append(lines, Line{
				Date: inv.InvoiceDate, VoucherNo: voucherNo, Ledger: igstLedger,
				ExpenseType: inv.ExpenseType, Amount: inv.IGST, Narration: narration,
			})
		}
		lines = append(lines, Line{
			Date: inv.InvoiceDate, VoucherNo: voucherNo, Ledger: payable,
			ExpenseType: inv.ExpenseType, Amount: inv.TotalValue.Neg(), Narration: narration,
		})
	}
	return lines
}

// ValidateBalance checks the algebraic sum of each voucher group's amounts
// nets to zero within a 0.01 tolerance.
func ValidateBalance(lines []Line) []string {
	tolerance := decimal.NewFromFloat(0.01)
	sums := make(map[string]decimal.Decimal)
	order := make([]string, 0)
	for _, l := range lines {
		if _, ok := sums[l.VoucherNo]; !ok {
			order = append(order, l.VoucherNo)
		}
		sums[l.VoucherNo] = sums[l.VoucherNo].Add(l.Amount)
	}

	var errs []string
	for _, voucherNo := range order {
		if sums[voucherNo].Abs().GreaterThan(tolerance) {
			errs = append(errs, fmt.Sprintf("expense voucher %s: lines net to %s, want 0",
				voucherNo, sums[voucherNo].StringFixed(2)))
		}
	}
	return errs
}

var expenseColumnHeaders = []string{
	"Date", "Voucher No.", "Voucher Type", "Ledger", "Expense Type", "Amount", "Narration",
}

// Render writes expense voucher lines to a workbook. Pass nil to start a
// fresh expense workbook; pass the sales workbook plus the row after its
// last data row to merge both into a combined export.
func Render(f *excelize.File, sheet string, startRow int, lines []Line) (*excelize.File, error) {
	if f == nil {
		f = excelize.NewFile()
		sheet = "Expense Vouchers"
		if err := f.SetSheetName("Sheet1", sheet); err != nil {
			return nil, fmt.Errorf("expense: renaming default sheet: %w", err)
		}
		for col, h := range expenseColumnHeaders {
			cell, err := excelize.CoordinatesToCellName(col+1, 1)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellValue(sheet, cell, h); err != nil {
				return nil, err
			}
		}
		startRow = 2
	}

	numStyle, err := f.NewStyle(&excelize.Style{CustomNumFmt: strPtr("#,##0.00")})
	if err != nil {
		return nil, fmt.Errorf("expense: creating number style: %w", err)
	}

	for i, l := range lines {
		row := startRow + i
		values := []interface{}{
			l.Date.Format("02-01-2006"),
			l.VoucherNo,
			"Purchase",
			l.Ledger,
			l.ExpenseType,
			l.Amount.InexactFloat64(),
			l.Narration,
		}
		for col, val := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellValue(sheet, cell, val); err != nil {
				return nil, fmt.Errorf("expense: writing cell %s: %w", cell, err)
			}
		}
		amountCell, err := excelize.CoordinatesToCellName(6, row)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellStyle(sheet, amountCell, amountCell, numStyle); err != nil {
			return nil, err
		}
	}
	return f, nil
}

func strPtr(s string) *string { return &s }
