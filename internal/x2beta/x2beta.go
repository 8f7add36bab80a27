// Package x2beta renders batch pivot summaries as Tally-importable X2Beta
// voucher workbooks.
package x2beta

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"gstpipeline/internal/domain"
)

// DefaultSheetName is the worksheet X2Beta templates and default workbooks
// use for sales vouchers.
const DefaultSheetName = "Sales Vouchers"

var columnHeaders = []string{
	"Date", "Voucher No.", "Voucher Type", "Party Ledger", "Item Name",
	"Quantity", "Rate", "Taxable Amount",
	"Output CGST Ledger", "CGST Amount",
	"Output SGST Ledger", "SGST Amount",
	"Output IGST Ledger", "IGST Amount",
	"Total Amount", "Narration",
}

// BuildVouchers maps one batch's pivot summaries to X2Beta vouchers, one
// row per summary, generating a voucher number when no invoice number is
// known.
func BuildVouchers(month string, summaries []domain.PivotSummary, invoiceNos map[string]string) []domain.X2BetaVoucher {
	vouchers := make([]domain.X2BetaVoucher, 0, len(summaries))
	for i, s := range summaries {
		qty := decimal.NewFromInt(int64(s.TotalQuantity))
		rate := s.TotalTaxable.DivRound(decimal.NewFromInt(int64(max(s.TotalQuantity, 1))), 2)

		voucherNo := invoiceNos[summaryKey(s)]
		if voucherNo == "" {
			voucherNo = fmt.Sprintf("SL%s%04d", compactMonth(month), i+1)
		}

		v := domain.X2BetaVoucher{
			Date:          monthStart(month),
			VoucherNo:     voucherNo,
			VoucherType:   "Sales",
			PartyLedger:   s.LedgerName,
			ItemName:      s.FG,
			Quantity:      qty,
			Rate:          rate,
			TaxableAmount: s.TotalTaxable,
			TotalAmount:   s.TotalTaxable.Add(s.TotalTax()),
			Narration:     fmt.Sprintf("Sales - %s - %s", s.FG, month),
		}

		ratePct := s.GSTRate.Mul(decimal.NewFromInt(100)).StringFixed(0)
		switch {
		case s.TotalCGST.Sign() > 0:
			v.CGSTLedger = fmt.Sprintf("Output CGST @ %s%%", ratePct)
			v.CGSTAmount = s.TotalCGST
			v.SGSTLedger = fmt.Sprintf("Output SGST @ %s%%", ratePct)
			v.SGSTAmount = s.TotalSGST
		case s.TotalIGST.Sign() > 0:
			v.IGSTLedger = fmt.Sprintf("Output IGST @ %s%%", ratePct)
			v.IGSTAmount = s.TotalIGST
		}

		vouchers = append(vouchers, v)
	}
	return vouchers
}

// monthStart resolves "YYYY-MM" to its first day, the voucher date.
func monthStart(month string) time.Time {
	t, err := time.Parse("2006-01", month)
	if err != nil {
		return time.Time{}
	}
	return t
}

func summaryKey(s domain.PivotSummary) string {
	return s.LedgerName + "|" + s.FG + "|" + s.GSTRate.String()
}

func compactMonth(month string) string {
	out := make([]byte, 0, len(month))
	for _, r := range month {
		if r != '-' {
			out = append(out, byte(r))
		}
	}
	return string(out)
}

// OpenWorkbook opens a previously rendered voucher workbook, e.g. to append
// expense vouchers into a combined export.
func OpenWorkbook(path string) (*excelize.File, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("x2beta: opening workbook %s: %w", path, err)
	}
	return f, nil
}

// LastDataRow returns the voucher sheet name and the index of its last
// populated row.
func LastDataRow(f *excelize.File) (string, int, error) {
	sheet := DefaultSheetName
	if idx, err := f.GetSheetIndex(sheet); err != nil || idx < 0 {
		sheet = f.GetSheetName(0)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return "", 0, fmt.Errorf("x2beta: reading workbook rows: %w", err)
	}
	return sheet, len(rows), nil
}

// TemplateName is the per-GSTIN template workbook file name.
func TemplateName(gstin string) string {
	return fmt.Sprintf("X2Beta Sales Template - %s.xlsx", gstin)
}

// Filename builds "{channel}_{gstin}_{month}_{N}pct_x2beta.xlsx".
func Filename(channel domain.Channel, gstin, month string, gstRate decimal.Decimal) string {
	pct := gstRate.Mul(decimal.NewFromInt(100))
	label := "0"
	if pct.Sign() != 0 {
		label = pct.StringFixed(0)
	}
	return fmt.Sprintf("%s_%s_%s_%spct_x2beta.xlsx", channel, gstin, month, label)
}

// Validate checks the balancing invariant: taxable + cgst + sgst + igst ==
// total for every voucher, and that no voucher mixes CGST/SGST with
// IGST.
func Validate(vouchers []domain.X2BetaVoucher) []string {
	var errs []string
	tolerance := decimal.NewFromFloat(0.01)
	for i, v := range vouchers {
		sum := v.TaxableAmount.Add(v.CGSTAmount).Add(v.SGSTAmount).Add(v.IGSTAmount)
		if sum.Sub(v.TotalAmount).Abs().GreaterThan(tolerance) {
			errs = append(errs, fmt.Sprintf("voucher %d (%s): total %s does not balance components sum %s", i, v.VoucherNo, v.TotalAmount, sum))
		}
		if v.IGSTAmount.Sign() > 0 && (v.CGSTAmount.Sign() > 0 || v.SGSTAmount.Sign() > 0) {
			errs = append(errs, fmt.Sprintf("voucher %d (%s): mixes IGST with CGST/SGST", i, v.VoucherNo))
		}
	}
	return errs
}

// Render writes vouchers into a workbook, starting from a template if
// templatePath is non-empty, otherwise building a default sheet. startRow is where data rows begin (the
// template may reserve header rows above it).
func Render(templatePath string, startRow int, month, gstin string, vouchers []domain.X2BetaVoucher) (*excelize.File, error) {
	var f *excelize.File
	var err error

	if templatePath != "" {
		f, err = excelize.OpenFile(templatePath)
		if err != nil {
			return nil, fmt.Errorf("x2beta: opening template %s: %w", templatePath, err)
		}
	} else {
		f = excelize.NewFile()
		if err := f.SetSheetName("Sheet1", DefaultSheetName); err != nil {
			return nil, fmt.Errorf("x2beta: renaming default sheet: %w", err)
		}
		if err := writeHeaderRows(f, gstin); err != nil {
			return nil, err
		}
		startRow = 5
	}

	sheet := f.GetSheetName(f.GetActiveSheetIndex())

	if err := clearDataRows(f, sheet, startRow); err != nil {
		return nil, err
	}

	for i, v := range vouchers {
		row := startRow + i
		values := []interface{}{
			v.Date.Format("02-01-2006"),
			v.VoucherNo,
			v.VoucherType,
			v.PartyLedger,
			v.ItemName,
			v.Quantity.InexactFloat64(),
			v.Rate.InexactFloat64(),
			v.TaxableAmount.InexactFloat64(),
			v.CGSTLedger,
			v.CGSTAmount.InexactFloat64(),
			v.SGSTLedger,
			v.SGSTAmount.InexactFloat64(),
			v.IGSTLedger,
			v.IGSTAmount.InexactFloat64(),
			v.TotalAmount.InexactFloat64(),
			v.Narration,
		}
		for col, val := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row)
			if err != nil {
				return nil, fmt.Errorf("x2beta: cell coordinates: %w", err)
			}
			if err := f.SetCellValue(sheet, cell, val); err != nil {
				return nil, fmt.Errorf("x2beta: writing cell %s: %w", cell, err)
			}
		}
	}

	if len(vouchers) > 0 {
		if err := styleDataRows(f, sheet, startRow, startRow+len(vouchers)-1); err != nil {
			return nil, err
		}
	}
	if err := autoSizeColumns(f, sheet); err != nil {
		return nil, err
	}

	return f, nil
}

// amountColumns are the 1-based numeric columns formatted "#,##0.00":
// Quantity, Rate, Taxable, CGST, SGST, IGST, Total.
var amountColumns = []int{6, 7, 8, 10, 12, 14, 15}

func styleDataRows(f *excelize.File, sheet string, firstRow, lastRow int) error {
	numFmt := "#,##0.00"
	numStyle, err := f.NewStyle(&excelize.Style{CustomNumFmt: &numFmt})
	if err != nil {
		return fmt.Errorf("x2beta: creating number style: %w", err)
	}
	for _, col := range amountColumns {
		top, err := excelize.CoordinatesToCellName(col, firstRow)
		if err != nil {
			return err
		}
		bottom, err := excelize.CoordinatesToCellName(col, lastRow)
		if err != nil {
			return err
		}
		if err := f.SetCellStyle(sheet, top, bottom, numStyle); err != nil {
			return fmt.Errorf("x2beta: styling column %d: %w", col, err)
		}
	}
	return nil
}

// autoSizeColumns widens each column to min(longest value + 2, 50).
func autoSizeColumns(f *excelize.File, sheet string) error {
	rows, err := f.GetRows(sheet)
	if err != nil {
		return fmt.Errorf("x2beta: sizing columns: %w", err)
	}
	widths := make(map[int]int)
	for _, row := range rows {
		for i, val := range row {
			if len(val) > widths[i] {
				widths[i] = len(val)
			}
		}
	}
	for i, w := range widths {
		width := float64(w + 2)
		if width > 50 {
			width = 50
		}
		name, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(sheet, name, name, width); err != nil {
			return err
		}
	}
	return nil
}

func writeHeaderRows(f *excelize.File, gstin string) error {
	sheet := DefaultSheetName
	if err := f.SetCellValue(sheet, "A1", "Company: "+gstin); err != nil {
		return err
	}
	if err := f.SetCellValue(sheet, "A2", "GSTIN: "+gstin); err != nil {
		return err
	}
	if err := f.SetCellValue(sheet, "A3", "X2Beta Sales Import Template"); err != nil {
		return err
	}
	for col, h := range columnHeaders {
		cell, err := excelize.CoordinatesToCellName(col+1, 4)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
	}
	return nil
}

// clearDataRows removes any previously written data rows at or after
// startRow, keeping header rows intact.
func clearDataRows(f *excelize.File, sheet string, startRow int) error {
	rows, err := f.GetRows(sheet)
	if err != nil {
		return fmt.Errorf("x2beta: reading existing rows: %w", err)
	}
	for len(rows) >= startRow {
		if err := f.RemoveRow(sheet, startRow); err != nil {
			return fmt.Errorf("x2beta: clearing row %d: %w", startRow, err)
		}
		rows = rows[:len(rows)-1]
	}
	return nil
}
