// Package pivot groups enriched rows into accounting summaries and splits
// them into per-GST-rate batch files.
package pivot

import (
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"gstpipeline/internal/domain"
)

// pivotKey is the grouping tuple; StateCode only participates for flipkart.
type pivotKey struct {
	GSTRate    string
	LedgerName string
	FG         string
	StateCode  string
}

func keyFor(channel domain.Channel, row domain.NormalizedRow) pivotKey {
	k := pivotKey{GSTRate: row.GSTRate.String(), LedgerName: row.LedgerName, FG: row.FG}
	if channel == domain.ChannelFlipkart {
		k.StateCode = row.StateCode
	}
	return k
}

// Summarize groups rows by {gstin, month, gst_rate, ledger_name, fg}
// (+state_code for flipkart), applying amazon_str's force-IGST-only rule
// and excluding zero-taxable groups.
func Summarize(runID uuid.UUID, channel domain.Channel, gstin, month string, rows []domain.NormalizedRow) []domain.PivotSummary {
	groups := make(map[pivotKey]*domain.PivotSummary)
	var order []pivotKey

	for _, row := range rows {
		k := keyFor(channel, row)
		summary, ok := groups[k]
		if !ok {
			summary = &domain.PivotSummary{
				RunID:      runID,
				Channel:    channel,
				GSTIN:      gstin,
				Month:      month,
				GSTRate:    row.GSTRate,
				LedgerName: row.LedgerName,
				FG:         row.FG,
				StateCode:  k.StateCode,
			}
			groups[k] = summary
			order = append(order, k)
		}
		// Pepperfry rows carry a return-adjusted net quantity; everyone else
		// pivots on the raw quantity.
		qty := row.Quantity
		if row.NetQuantity != 0 {
			qty = row.NetQuantity
		}
		summary.TotalQuantity += qty
		summary.TotalTaxable = summary.TotalTaxable.Add(row.TaxableValue)
		summary.TotalCGST = summary.TotalCGST.Add(row.CGST)
		summary.TotalSGST = summary.TotalSGST.Add(row.SGST)
		summary.TotalIGST = summary.TotalIGST.Add(row.IGST)
	}

	sort.Slice(order, func(i, j int) bool {
		if order[i].GSTRate != order[j].GSTRate {
			return order[i].GSTRate < order[j].GSTRate
		}
		if order[i].LedgerName != order[j].LedgerName {
			return order[i].LedgerName < order[j].LedgerName
		}
		return order[i].FG < order[j].FG
	})

	out := make([]domain.PivotSummary, 0, len(order))
	for _, k := range order {
		s := groups[k]
		if channel == domain.ChannelAmazonSTR {
			// STR always uses IGST; force_igst_only zeroes any stray CGST/SGST.
			s.TotalCGST = decimal.Zero
			s.TotalSGST = decimal.Zero
		}
		if s.TotalTaxable.Sign() <= 0 {
			continue
		}
		out = append(out, *s)
	}
	return out
}
