package exception

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"gstpipeline/internal/domain"
	"gstpipeline/internal/port"
)

// Rules configures the auto-approval engine's thresholds. Ledger mapping
// auto-approval and GST rate overrides stay conservative (manual by
// default) — only item mappings for known SKU prefixes and invoice format
// fixes auto-resolve out of the box.
type Rules struct {
	AutoApproveItemPrefixes map[string]bool
	AutoApproveFormatFix    bool
	AllowedGSTRates         []decimal.Decimal
}

// DefaultRules returns the conservative out-of-the-box rule table.
func DefaultRules() Rules {
	return Rules{
		AutoApproveItemPrefixes: map[string]bool{"ABC": true, "XYZ": true, "DEF": true},
		AutoApproveFormatFix:    true,
		AllowedGSTRates: []decimal.Decimal{
			decimal.Zero, decimal.NewFromFloat(0.05), decimal.NewFromFloat(0.12),
			decimal.NewFromFloat(0.18), decimal.NewFromFloat(0.28),
		},
	}
}

// Decision is the auto-approval verdict for one pending request.
type Decision struct {
	CanAutoApprove bool
	Reason         string
}

// CheckAutoApproval decides whether a pending request can be resolved
// without a human, dispatching on the request type.
func CheckAutoApproval(rules Rules, req domain.ApprovalRequest) Decision {
	switch req.Type {
	case domain.ApprovalTypeItem:
		return checkItemAutoApproval(rules, req)
	case domain.ApprovalTypeLedger:
		return Decision{false, "manual approval required for ledger mapping"}
	case domain.ApprovalTypeGSTRate:
		return checkGSTRateAutoApproval(rules, req)
	case domain.ApprovalTypeInvoice:
		return checkInvoiceAutoApproval(rules, req)
	default:
		return Decision{false, "no rules defined for request type"}
	}
}

func checkItemAutoApproval(rules Rules, req domain.ApprovalRequest) Decision {
	var payload domain.ItemApprovalPayload
	if err := json.Unmarshal(req.Payload, &payload); err != nil {
		return Decision{false, "unparseable item payload"}
	}
	if len(payload.SKU) >= 3 && rules.AutoApproveItemPrefixes[payload.SKU[:3]] {
		return Decision{true, fmt.Sprintf("similar SKU pattern found: %s", payload.SKU[:3])}
	}
	return Decision{false, "no auto-approval criteria met"}
}

func checkGSTRateAutoApproval(rules Rules, req domain.ApprovalRequest) Decision {
	var payload domain.GSTRateApprovalPayload
	if err := json.Unmarshal(req.Payload, &payload); err != nil {
		return Decision{false, "unparseable gst rate payload"}
	}
	for _, allowed := range rules.AllowedGSTRates {
		if payload.ProposedRate.Equal(allowed) {
			return Decision{true, "proposed rate is valid"}
		}
	}
	return Decision{false, fmt.Sprintf("proposed rate %s not in allowed rates", payload.ProposedRate)}
}

func checkInvoiceAutoApproval(rules Rules, req domain.ApprovalRequest) Decision {
	var payload domain.InvoiceApprovalPayload
	if err := json.Unmarshal(req.Payload, &payload); err != nil {
		return Decision{false, "unparseable invoice payload"}
	}
	if payload.OverrideType == "format_fix" && rules.AutoApproveFormatFix {
		return Decision{true, "auto-approved invoice format correction"}
	}
	return Decision{false, "manual approval required for invoice changes"}
}

// ProcessPendingForRun scans a run's pending approval requests, auto-resolves
// what the rules allow, and leaves the rest queued for a human reviewer.
func ProcessPendingForRun(ctx context.Context, repo port.ApprovalRepository, rules Rules, run domain.Run) (autoApproved, stillPending int, err error) {
	pending, err := repo.ListPending(ctx, run.ID)
	if err != nil {
		return 0, 0, fmt.Errorf("exception: listing pending approvals: %w", err)
	}
	for _, req := range pending {
		decision := CheckAutoApproval(rules, req)
		if !decision.CanAutoApprove {
			stillPending++
			continue
		}
		if err := repo.Decide(ctx, req.ID, domain.ApprovalStatusApproved, "system_auto", decision.Reason); err != nil {
			return autoApproved, stillPending, fmt.Errorf("exception: auto-approving %s: %w", req.ID, err)
		}
		autoApproved++
	}
	return autoApproved, stillPending, nil
}
