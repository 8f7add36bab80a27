// Package csvexport writes the pipeline's normalized-row CSV artifacts: the canonical sales rows a run persists to its normalized area
// before the downstream stages consume them.
package csvexport

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/google/uuid"

	"gstpipeline/internal/domain"
)

// BOM is the UTF-8 byte-order mark, written first for Excel compatibility.
var BOM = []byte{0xEF, 0xBB, 0xBF}

// columns defines the normalized CSV header row.
var columns = []string{
	"invoice_date",
	"type",
	"order_id",
	"sku",
	"asin",
	"quantity",
	"taxable_value",
	"shipping_value",
	"gst_rate",
	"state_code",
	"channel",
	"gstin",
	"month",
	"fg",
	"ledger_name",
	"cgst",
	"sgst",
	"igst",
	"invoice_no",
	"is_return",
	"net_quantity",
	"returned_qty",
}

// NormalizedFilename builds "{channel}_{gstin}_{month}_normalized_{uuid}.csv".
func NormalizedFilename(channel domain.Channel, gstin, month string, id uuid.UUID) string {
	return fmt.Sprintf("%s_%s_%s_normalized_%s.csv", channel, gstin, month, id)
}

// WriteHeader writes the BOM and the column header row.
func WriteHeader(w io.Writer) error {
	if _, err := w.Write(BOM); err != nil {
		return fmt.Errorf("csvexport: writing BOM: %w", err)
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(columns); err != nil {
		return fmt.Errorf("csvexport: writing header: %w", err)
	}
	cw.Flush()
	return cw.Error()
}

// WriteRows appends one CSV record per normalized row, in input order so a
// re-ingest of the same file is byte-identical.
func WriteRows(w io.Writer, rows []domain.NormalizedRow) error {
	cw := csv.NewWriter(w)
	for i, row := range rows {
		if err := cw.Write(record(row)); err != nil {
			return fmt.Errorf("csvexport: writing row %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteNormalizedRows writes a complete normalized CSV: BOM, header, rows.
func WriteNormalizedRows(w io.Writer, rows []domain.NormalizedRow) error {
	if err := WriteHeader(w); err != nil {
		return err
	}
	return WriteRows(w, rows)
}

func record(row domain.NormalizedRow) []string {
	date := ""
	if !row.InvoiceDate.IsZero() {
		date = row.InvoiceDate.Format("2006-01-02")
	}
	return []string{
		date,
		string(row.Type),
		row.OrderID,
		row.SKU,
		row.ASIN,
		strconv.Itoa(row.Quantity),
		row.TaxableValue.StringFixed(2),
		row.ShippingValue.StringFixed(2),
		row.GSTRate.String(),
		row.StateCode,
		string(row.Channel),
		row.GSTIN,
		row.Month,
		row.FG,
		row.LedgerName,
		row.CGST.StringFixed(2),
		row.SGST.StringFixed(2),
		row.IGST.StringFixed(2),
		row.InvoiceNo,
		strconv.FormatBool(row.IsReturn),
		strconv.Itoa(row.NetQuantity),
		strconv.Itoa(row.ReturnedQty),
	}
}
