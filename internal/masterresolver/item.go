// Package masterresolver resolves SKU/ASIN→FG and channel+state→ledger
// mappings against the master tables, emitting approval requests on miss.
package masterresolver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"gstpipeline/internal/domain"
	"gstpipeline/internal/port"
)

// defaultGSTRate seeds suggested approval payloads when no rate is known.
var defaultGSTRate = decimal.NewFromFloat(0.18)

// ItemResolver resolves item FG mappings with a run-scoped cache keyed by
// "sku|asin".
type ItemResolver struct {
	items     port.ItemMasterRepository
	approvals port.ApprovalRepository
	runID     uuid.UUID
	cache     map[string]itemCacheEntry
}

type itemCacheEntry struct {
	fg       string
	resolved bool
}

func NewItemResolver(items port.ItemMasterRepository, approvals port.ApprovalRepository, runID uuid.UUID) *ItemResolver {
	return &ItemResolver{items: items, approvals: approvals, runID: runID, cache: make(map[string]itemCacheEntry)}
}

func itemCacheKey(sku, asin string) string {
	return sku + "|" + asin
}

// Resolve returns (fg, resolved) for one sku/asin pair, checking the cache,
// then SKU, then ASIN.
func (r *ItemResolver) Resolve(ctx context.Context, sku, asin string) (string, bool, error) {
	key := itemCacheKey(sku, asin)
	if entry, ok := r.cache[key]; ok {
		return entry.fg, entry.resolved, nil
	}

	if sku != "" {
		item, err := r.items.GetBySKU(ctx, sku)
		if err != nil && !errors.Is(err, domain.ErrItemMasterNotFound) {
			return "", false, fmt.Errorf("masterresolver: lookup sku %q: %w", sku, err)
		}
		if item != nil {
			r.cache[key] = itemCacheEntry{fg: item.FG, resolved: true}
			return item.FG, true, nil
		}
	}
	if asin != "" {
		item, err := r.items.GetByASIN(ctx, asin)
		if err != nil && !errors.Is(err, domain.ErrItemMasterNotFound) {
			return "", false, fmt.Errorf("masterresolver: lookup asin %q: %w", asin, err)
		}
		if item != nil {
			r.cache[key] = itemCacheEntry{fg: item.FG, resolved: true}
			return item.FG, true, nil
		}
	}

	r.cache[key] = itemCacheEntry{resolved: false}
	return "", false, nil
}

// RequestApproval creates an ApprovalTypeItem request for an unresolved
// sku/asin pair, skipping if one is already pending.
func (r *ItemResolver) RequestApproval(ctx context.Context, sku, asin, itemCode string) error {
	suggestedFG := fmt.Sprintf("%s_FG", sku)
	exists, err := r.approvals.ExistsPendingForKey(ctx, r.runID, domain.ApprovalTypeItem, suggestedFG)
	if err != nil {
		return fmt.Errorf("masterresolver: checking pending item approval: %w", err)
	}
	if exists {
		return nil
	}

	payload := domain.ItemApprovalPayload{
		SKU:         sku,
		ASIN:        asin,
		ItemCode:    itemCode,
		SuggestedFG: suggestedFG,
		GSTRate:     defaultGSTRate,
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("masterresolver: marshaling item approval payload: %w", err)
	}

	req := &domain.ApprovalRequest{
		ID:             uuid.New(),
		RunID:          r.runID,
		Type:           domain.ApprovalTypeItem,
		Payload:        raw,
		Status:         domain.ApprovalStatusPending,
		SuggestedValue: suggestedFG,
	}
	return r.approvals.Create(ctx, req)
}

// DatasetResult summarizes a full-batch resolution pass.
type DatasetResult struct {
	MappedCount     int
	PendingRequests int
	CoveragePct     int
}

// ResolveDataset resolves and backfills FG on every row, deduping unique
// (sku, asin) pairs before hitting the repository and before requesting
// approval.
func (r *ItemResolver) ResolveDataset(ctx context.Context, rows []domain.NormalizedRow) (DatasetResult, error) {
	if len(rows) == 0 {
		return DatasetResult{}, nil
	}

	requested := make(map[string]bool)
	mapped := 0

	for i := range rows {
		fg, resolved, err := r.Resolve(ctx, rows[i].SKU, rows[i].ASIN)
		if err != nil {
			return DatasetResult{}, err
		}
		if resolved {
			rows[i].FG = fg
			rows[i].ItemResolved = true
			mapped++
			continue
		}

		key := itemCacheKey(rows[i].SKU, rows[i].ASIN)
		if requested[key] {
			continue
		}
		requested[key] = true
		if err := r.RequestApproval(ctx, rows[i].SKU, rows[i].ASIN, rows[i].SKU); err != nil {
			return DatasetResult{}, err
		}
	}

	coverage := 0
	if len(rows) > 0 {
		coverage = mapped * 100 / len(rows)
	}
	return DatasetResult{MappedCount: mapped, PendingRequests: len(requested), CoveragePct: coverage}, nil
}

// itemMasterColumnAliases maps heuristic source-spreadsheet headers to
// canonical field names.
var itemMasterColumnAliases = map[string]string{
	"sales_portal_sku": "sku",
	"portal_sku":       "sku",
	"tally_new_sku":    "fg",
	"final_goods":      "fg",
	"fg_name":          "fg",
	"item_name":        "fg",
	"gst_rate_%":       "gst_rate",
	"tax_rate":         "gst_rate",
}

// AliasItemMasterColumn resolves a raw spreadsheet header to its canonical
// field name, or returns it unchanged if no alias applies.
func AliasItemMasterColumn(raw string) string {
	key := strings.ToLower(strings.TrimSpace(raw))
	if canon, ok := itemMasterColumnAliases[key]; ok {
		return canon
	}
	return key
}

// LoadItemMasterRows builds ItemMaster records from already-aliased
// spreadsheet rows, defaulting asin="", item_code=sku, gst_rate=0.18, and
// dropping rows missing sku or fg.
func LoadItemMasterRows(rows []map[string]string, approver string) []domain.ItemMaster {
	var out []domain.ItemMaster
	for _, row := range rows {
		sku := strings.TrimSpace(row["sku"])
		fg := strings.TrimSpace(row["fg"])
		if sku == "" || fg == "" {
			continue
		}
		rate := defaultGSTRate
		if raw, ok := row["gst_rate"]; ok {
			if d, err := decimal.NewFromString(strings.TrimSpace(raw)); err == nil {
				rate = d
			}
		}
		out = append(out, domain.ItemMaster{
			SKU:            sku,
			ASIN:           row["asin"],
			ItemCode:       sku,
			FG:             fg,
			GSTRateDefault: rate,
			ApprovedBy:     approver,
		})
	}
	return out
}
