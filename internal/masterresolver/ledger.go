package masterresolver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"gstpipeline/internal/domain"
	"gstpipeline/internal/port"
)

// stateAbbreviations gives the short ledger-name suffix for a full state
// name.
var stateAbbreviations = map[string]string{
	"ANDHRA PRADESH": "AP", "ARUNACHAL PRADESH": "AR", "ASSAM": "AS", "BIHAR": "BR",
	"CHHATTISGARH": "CG", "GOA": "GA", "GUJARAT": "GJ", "HARYANA": "HR",
	"HIMACHAL PRADESH": "HP", "JHARKHAND": "JH", "KARNATAKA": "KA", "KERALA": "KL",
	"MADHYA PRADESH": "MP", "MAHARASHTRA": "MH", "MANIPUR": "MN", "MEGHALAYA": "ML",
	"MIZORAM": "MZ", "NAGALAND": "NL", "ODISHA": "OR", "PUNJAB": "PB",
	"RAJASTHAN": "RJ", "SIKKIM": "SK", "TAMIL NADU": "TN", "TELANGANA": "TG",
	"TRIPURA": "TR", "UTTAR PRADESH": "UP", "UTTARAKHAND": "UK", "WEST BENGAL": "WB",
	"DELHI": "DL", "JAMMU & KASHMIR": "JK", "LADAKH": "LA", "CHANDIGARH": "CH",
	"DADRA & NAGAR HAVELI": "DN", "DAMAN & DIU": "DD", "LAKSHADWEEP": "LD", "PUDUCHERRY": "PY",
}

func stateAbbreviation(stateCode string) string {
	upper := strings.ToUpper(strings.TrimSpace(stateCode))
	if abbr, ok := stateAbbreviations[upper]; ok {
		return abbr
	}
	if len(upper) >= 2 {
		return upper[:2]
	}
	return upper
}

// LedgerResolver resolves channel+state_code to a ledger name with a
// run-scoped cache.
type LedgerResolver struct {
	ledgers   port.LedgerMasterRepository
	approvals port.ApprovalRepository
	runID     uuid.UUID
	cache     map[string]ledgerCacheEntry
}

type ledgerCacheEntry struct {
	name     string
	resolved bool
}

func ledgerCacheKey(channel domain.Channel, stateCode string) string {
	return strings.ToLower(string(channel)) + "|" + strings.ToUpper(strings.TrimSpace(stateCode))
}

func NewLedgerResolver(ledgers port.LedgerMasterRepository, approvals port.ApprovalRepository, runID uuid.UUID) *LedgerResolver {
	return &LedgerResolver{ledgers: ledgers, approvals: approvals, runID: runID, cache: make(map[string]ledgerCacheEntry)}
}

// Resolve returns (ledgerName, resolved) for channel+stateCode.
func (r *LedgerResolver) Resolve(ctx context.Context, channel domain.Channel, stateCode string) (string, bool, error) {
	key := ledgerCacheKey(channel, stateCode)
	if entry, ok := r.cache[key]; ok {
		return entry.name, entry.resolved, nil
	}

	ledger, err := r.ledgers.Get(ctx, channel, strings.ToUpper(strings.TrimSpace(stateCode)))
	if err != nil && !errors.Is(err, domain.ErrLedgerMasterNotFound) {
		return "", false, fmt.Errorf("masterresolver: lookup ledger %s/%s: %w", channel, stateCode, err)
	}
	if ledger != nil {
		r.cache[key] = ledgerCacheEntry{name: ledger.LedgerName, resolved: true}
		return ledger.LedgerName, true, nil
	}

	r.cache[key] = ledgerCacheEntry{resolved: false}
	return "", false, nil
}

// SuggestedLedgerName builds the candidate name an approval request
// proposes, e.g. "Amazon Mtr Sales - KA".
func SuggestedLedgerName(channel domain.Channel, stateCode string) string {
	return fmt.Sprintf("%s Sales - %s", titleCase(string(channel)), stateAbbreviation(stateCode))
}

func titleCase(s string) string {
	words := strings.Fields(strings.ReplaceAll(s, "_", " "))
	for i, w := range words {
		if len(w) > 0 {
			words[i] = strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
		}
	}
	return strings.Join(words, " ")
}

// RequestApproval creates an ApprovalTypeLedger request, skipping if one is
// already pending for this channel/state.
func (r *LedgerResolver) RequestApproval(ctx context.Context, channel domain.Channel, stateCode string) error {
	suggested := SuggestedLedgerName(channel, stateCode)
	exists, err := r.approvals.ExistsPendingForKey(ctx, r.runID, domain.ApprovalTypeLedger, suggested)
	if err != nil {
		return fmt.Errorf("masterresolver: checking pending ledger approval: %w", err)
	}
	if exists {
		return nil
	}

	payload := domain.LedgerApprovalPayload{
		Channel:         channel,
		StateCode:       strings.ToUpper(strings.TrimSpace(stateCode)),
		SuggestedLedger: suggested,
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("masterresolver: marshaling ledger approval payload: %w", err)
	}

	req := &domain.ApprovalRequest{
		ID:             uuid.New(),
		RunID:          r.runID,
		Type:           domain.ApprovalTypeLedger,
		Payload:        raw,
		Status:         domain.ApprovalStatusPending,
		SuggestedValue: suggested,
	}
	return r.approvals.Create(ctx, req)
}

// ResolveDataset backfills ledger_name across every row, resolving each
// unique (channel, state_code) pair once.
func (r *LedgerResolver) ResolveDataset(ctx context.Context, rows []domain.NormalizedRow) (DatasetResult, error) {
	if len(rows) == 0 {
		return DatasetResult{}, nil
	}

	requested := make(map[string]bool)
	mapped := 0

	for i := range rows {
		if rows[i].Channel == "" || rows[i].StateCode == "" {
			continue
		}
		name, resolved, err := r.Resolve(ctx, rows[i].Channel, rows[i].StateCode)
		if err != nil {
			return DatasetResult{}, err
		}
		if resolved {
			rows[i].LedgerName = name
			rows[i].LedgerResolved = true
			mapped++
			continue
		}

		key := ledgerCacheKey(rows[i].Channel, rows[i].StateCode)
		if requested[key] {
			continue
		}
		requested[key] = true
		if err := r.RequestApproval(ctx, rows[i].Channel, rows[i].StateCode); err != nil {
			return DatasetResult{}, err
		}
	}

	coverage := 0
	if len(rows) > 0 {
		coverage = mapped * 100 / len(rows)
	}
	return DatasetResult{MappedCount: mapped, PendingRequests: len(requested), CoveragePct: coverage}, nil
}

// ledgerMasterColumnAliases maps heuristic spreadsheet headers to their
// canonical field names.
var ledgerMasterColumnAliases = map[string]string{
	"sales_channel": "channel",
	"platform":      "channel",
	"state":         "state_code",
	"state_name":    "state_code",
	"ledger":        "ledger_name",
	"account_name":  "ledger_name",
	"tally_ledger":  "ledger_name",
}

// AliasLedgerMasterColumn resolves a raw spreadsheet header to its
// canonical field name, or returns it unchanged if no alias applies.
func AliasLedgerMasterColumn(raw string) string {
	key := strings.ToLower(strings.TrimSpace(raw))
	if canon, ok := ledgerMasterColumnAliases[key]; ok {
		return canon
	}
	return key
}

// LoadLedgerMasterRows builds LedgerMaster records from already-aliased
// spreadsheet rows, dropping rows missing channel, state_code, or
// ledger_name.
func LoadLedgerMasterRows(rows []map[string]string, approver string) []domain.LedgerMaster {
	var out []domain.LedgerMaster
	for _, row := range rows {
		channel := strings.ToLower(strings.TrimSpace(row["channel"]))
		state := strings.ToUpper(strings.TrimSpace(row["state_code"]))
		name := strings.TrimSpace(row["ledger_name"])
		if channel == "" || state == "" || name == "" {
			continue
		}
		out = append(out, domain.LedgerMaster{
			Channel:    domain.Channel(channel),
			StateCode:  state,
			LedgerName: name,
			ApprovedBy: approver,
		})
	}
	return out
}
