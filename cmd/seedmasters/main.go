// Command seedmasters bulk-loads item and ledger master spreadsheets into
// the master tables, skipping rows whose key already exists.
// Usage: seedmasters -items item_master.xlsx -ledgers ledger_master.xlsx
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strings"

	"github.com/xuri/excelize/v2"

	"gstpipeline/internal/config"
	"gstpipeline/internal/masterresolver"
	"gstpipeline/internal/repository/postgres"
)

func main() {
	itemsPath := flag.String("items", "", "item master spreadsheet (sku/asin/fg columns)")
	ledgersPath := flag.String("ledgers", "", "ledger master spreadsheet (channel/state/ledger columns)")
	approver := flag.String("approver", "bulk_loader", "recorded approver for seeded rows")
	flag.Parse()

	if *itemsPath == "" && *ledgersPath == "" {
		flag.Usage()
		log.Fatal("at least one of -items or -ledgers is required")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	db, err := postgres.NewDB(&cfg.DB)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()

	ctx := context.Background()

	if *itemsPath != "" {
		rows, err := readSheet(*itemsPath, masterresolver.AliasItemMasterColumn)
		if err != nil {
			log.Fatalf("reading item master sheet: %v", err)
		}
		items := masterresolver.LoadItemMasterRows(rows, *approver)
		inserted, err := postgres.NewItemMasterRepo(db).BulkInsertSkippingDuplicates(ctx, items)
		if err != nil {
			log.Fatalf("inserting item masters: %v", err)
		}
		fmt.Printf("item master: %d read, %d inserted, %d skipped\n",
			len(items), inserted, len(items)-inserted)
	}

	if *ledgersPath != "" {
		rows, err := readSheet(*ledgersPath, masterresolver.AliasLedgerMasterColumn)
		if err != nil {
			log.Fatalf("reading ledger master sheet: %v", err)
		}
		ledgers := masterresolver.LoadLedgerMasterRows(rows, *approver)
		inserted, err := postgres.NewLedgerMasterRepo(db).BulkInsertSkippingDuplicates(ctx, ledgers)
		if err != nil {
			log.Fatalf("inserting ledger masters: %v", err)
		}
		fmt.Printf("ledger master: %d read, %d inserted, %d skipped\n",
			len(ledgers), inserted, len(ledgers)-inserted)
	}
}

// readSheet reads the first worksheet into header-aliased row maps.
func readSheet(path string, alias func(string) string) ([]map[string]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		return nil, err
	}
	if len(rows) < 2 {
		return nil, nil
	}

	headers := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		headers[i] = alias(strings.TrimSpace(h))
	}

	out := make([]map[string]string, 0, len(rows)-1)
	for _, row := range rows[1:] {
		record := make(map[string]string, len(headers))
		empty := true
		for i, h := range headers {
			if h == "" || i >= len(row) {
				continue
			}
			val := strings.TrimSpace(row[i])
			record[h] = val
			if val != "" {
				empty = false
			}
		}
		if !empty {
			out = append(out, record)
		}
	}
	return out, nil
}
