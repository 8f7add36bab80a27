package pivot

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"gstpipeline/internal/domain"
)

// BatchFilename builds "{channel}_{gstin}_{month}_{N}pct_batch.csv",
// e.g. "amazon_mtr_07ABCDE1234F1Z5_2024-03_18pct_batch.csv".
func BatchFilename(channel domain.Channel, gstin, month string, gstRate decimal.Decimal) string {
	return fmt.Sprintf("%s_%s_%s_%spct_batch.csv", channel, gstin, month, ratePercentLabel(gstRate))
}

func ratePercentLabel(rate decimal.Decimal) string {
	pct := rate.Mul(decimal.NewFromInt(100))
	if pct.Sign() == 0 {
		return "0"
	}
	return pct.StringFixed(0)
}

var batchCSVHeader = []string{
	"gstin", "month", "gst_rate", "ledger", "fg", "state_code",
	"total_quantity", "total_taxable", "total_cgst", "total_sgst", "total_igst",
	"total_tax", "total_amount",
}

// WriteCSV serializes one batch's summaries as the standard pivot output
// columns.
func WriteCSV(w io.Writer, summaries []domain.PivotSummary) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(batchCSVHeader); err != nil {
		return fmt.Errorf("pivot: writing batch header: %w", err)
	}
	for _, s := range summaries {
		record := []string{
			s.GSTIN,
			s.Month,
			s.GSTRate.String(),
			s.LedgerName,
			s.FG,
			s.StateCode,
			fmt.Sprintf("%d", s.TotalQuantity),
			s.TotalTaxable.StringFixed(2),
			s.TotalCGST.StringFixed(2),
			s.TotalSGST.StringFixed(2),
			s.TotalIGST.StringFixed(2),
			s.TotalTax().StringFixed(2),
			s.TotalTaxable.Add(s.TotalTax()).StringFixed(2),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("pivot: writing batch row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Batch is one GST-rate partition of a pivot result, ready to be written.
type Batch struct {
	GSTRate   decimal.Decimal
	Filename  string
	Summaries []domain.PivotSummary
	File      domain.BatchFile
}

// Split partitions pivot summaries into one batch per distinct GST rate,
// sorted by rate ascending.
func Split(runID uuid.UUID, channel domain.Channel, gstin, month string, summaries []domain.PivotSummary) []Batch {
	byRate := make(map[string][]domain.PivotSummary)
	var rates []decimal.Decimal
	seen := make(map[string]bool)

	for _, s := range summaries {
		key := s.GSTRate.String()
		byRate[key] = append(byRate[key], s)
		if !seen[key] {
			seen[key] = true
			rates = append(rates, s.GSTRate)
		}
	}

	sort.Slice(rates, func(i, j int) bool { return rates[i].LessThan(rates[j]) })

	batches := make([]Batch, 0, len(rates))
	for _, rate := range rates {
		group := byRate[rate.String()]
		var totalTaxable, totalTax decimal.Decimal
		var totalQty int
		for _, s := range group {
			totalTaxable = totalTaxable.Add(s.TotalTaxable)
			totalTax = totalTax.Add(s.TotalTax())
			totalQty += s.TotalQuantity
		}
		filename := BatchFilename(channel, gstin, month, rate)
		batches = append(batches, Batch{
			GSTRate:   rate,
			Filename:  filename,
			Summaries: group,
			File: domain.BatchFile{
				RunID:        runID,
				Channel:      channel,
				GSTIN:        gstin,
				Month:        month,
				GSTRate:      rate,
				FilePath:     filename,
				RecordCount:  len(group),
				TotalTaxable: totalTaxable,
				TotalTax:     totalTax,
			},
		})
	}
	return batches
}

// IntegrityResult reports whether the batch split conserved the original
// pivot totals.
type IntegrityResult struct {
	Valid  bool
	Errors []string
}

var tolerance = decimal.NewFromFloat(0.01)

// VerifyIntegrity re-sums every batch and compares against the source pivot
// summaries' totals.
func VerifyIntegrity(original []domain.PivotSummary, batches []Batch) IntegrityResult {
	var wantRecords, gotRecords int
	var wantTaxable, wantTax, gotTaxable, gotTax decimal.Decimal

	wantRecords = len(original)
	for _, s := range original {
		wantTaxable = wantTaxable.Add(s.TotalTaxable)
		wantTax = wantTax.Add(s.TotalTax())
	}
	for _, b := range batches {
		gotRecords += b.File.RecordCount
		gotTaxable = gotTaxable.Add(b.File.TotalTaxable)
		gotTax = gotTax.Add(b.File.TotalTax)
	}

	res := IntegrityResult{Valid: true}
	if wantRecords != gotRecords {
		res.Valid = false
		res.Errors = append(res.Errors, fmt.Sprintf("record count mismatch: %d vs %d", wantRecords, gotRecords))
	}
	if wantTaxable.Sub(gotTaxable).Abs().GreaterThan(tolerance) {
		res.Valid = false
		res.Errors = append(res.Errors, fmt.Sprintf("taxable amount mismatch: %s vs %s", wantTaxable, gotTaxable))
	}
	if wantTax.Sub(gotTax).Abs().GreaterThan(tolerance) {
		res.Valid = false
		res.Errors = append(res.Errors, fmt.Sprintf("tax amount mismatch: %s vs %s", wantTax, gotTax))
	}
	return res
}
