// Package approvalqueue applies approval decisions to the master tables and
// runs the background worker that drains the pending queue.
package approvalqueue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gstpipeline/internal/domain"
	"gstpipeline/internal/port"
)

// Applier mutates ItemMaster/LedgerMaster when a request is approved. Both
// the auto-approval worker and the human decision surfaces route through it,
// so master mutation happens exactly once per approved request.
type Applier struct {
	approvals port.ApprovalRepository
	items     port.ItemMasterRepository
	ledgers   port.LedgerMasterRepository
}

// NewApplier creates an Applier over the master and approval repositories.
func NewApplier(approvals port.ApprovalRepository, items port.ItemMasterRepository, ledgers port.LedgerMasterRepository) *Applier {
	return &Applier{approvals: approvals, items: items, ledgers: ledgers}
}

// Decide records the decision and, for "approved", applies the payload to the
// relevant master table. A duplicate master row is not an error: a parallel
// run may have approved the same key first.
func (a *Applier) Decide(ctx context.Context, req domain.ApprovalRequest, status domain.ApprovalStatus, approver, notes string) error {
	if err := a.approvals.Decide(ctx, req.ID, status, approver, notes); err != nil {
		return err
	}
	if status != domain.ApprovalStatusApproved {
		return nil
	}
	return a.apply(ctx, req, approver)
}

func (a *Applier) apply(ctx context.Context, req domain.ApprovalRequest, approver string) error {
	now := time.Now().UTC()
	switch req.Type {
	case domain.ApprovalTypeItem:
		var payload domain.ItemApprovalPayload
		if err := json.Unmarshal(req.Payload, &payload); err != nil {
			return fmt.Errorf("approvalqueue: %w: %v", domain.ErrApprovalPayloadInvalid, err)
		}
		fg := req.SuggestedValue
		if fg == "" {
			fg = payload.SuggestedFG
		}
		err := a.items.Create(ctx, &domain.ItemMaster{
			SKU: payload.SKU, ASIN: payload.ASIN, ItemCode: payload.ItemCode,
			FG: fg, GSTRateDefault: payload.GSTRate,
			ApprovedBy: approver, ApprovedAt: &now,
		})
		if errors.Is(err, domain.ErrDuplicateItemMaster) {
			return nil
		}
		return err

	case domain.ApprovalTypeLedger:
		var payload domain.LedgerApprovalPayload
		if err := json.Unmarshal(req.Payload, &payload); err != nil {
			return fmt.Errorf("approvalqueue: %w: %v", domain.ErrApprovalPayloadInvalid, err)
		}
		name := req.SuggestedValue
		if name == "" {
			name = payload.SuggestedLedger
		}
		err := a.ledgers.Create(ctx, &domain.LedgerMaster{
			Channel: payload.Channel, StateCode: payload.StateCode,
			LedgerName: name, ApprovedBy: approver, ApprovedAt: &now,
		})
		if errors.Is(err, domain.ErrDuplicateLedgerMaster) {
			return nil
		}
		return err

	case domain.ApprovalTypeGSTRate, domain.ApprovalTypeInvoice:
		// Rate overrides and invoice fixes adjust rows in the run they came
		// from; the decision record itself is what downstream stages read.
		return nil

	default:
		return fmt.Errorf("approvalqueue: %w: unknown type %q", domain.ErrApprovalPayloadInvalid, req.Type)
	}
}
