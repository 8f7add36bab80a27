// Command approve is the approval CLI: it lists pending requests and applies
// approve/reject decisions, mutating the master tables on approval.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/google/uuid"

	"gstpipeline/internal/approvalqueue"
	"gstpipeline/internal/config"
	"gstpipeline/internal/domain"
	"gstpipeline/internal/repository/postgres"
)

func main() {
	runID := flag.String("run", "", "list pending requests for this run id")
	listAll := flag.Bool("list", false, "list pending requests across all runs")
	approveID := flag.String("approve", "", "approve the request with this id")
	rejectID := flag.String("reject", "", "reject the request with this id")
	approver := flag.String("approver", "", "approver name (required for decisions)")
	notes := flag.String("notes", "", "decision notes")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	db, err := postgres.NewDB(&cfg.DB)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()

	approvals := postgres.NewApprovalRepo(db)
	applier := approvalqueue.NewApplier(approvals,
		postgres.NewItemMasterRepo(db), postgres.NewLedgerMasterRepo(db))

	ctx := context.Background()

	switch {
	case *listAll:
		pending, err := approvals.ListAllPending(ctx, 200)
		if err != nil {
			log.Fatalf("listing pending approvals: %v", err)
		}
		printPending(pending)

	case *runID != "":
		id, err := uuid.Parse(*runID)
		if err != nil {
			log.Fatalf("invalid run id: %v", err)
		}
		pending, err := approvals.ListPending(ctx, id)
		if err != nil {
			log.Fatalf("listing pending approvals: %v", err)
		}
		printPending(pending)

	case *approveID != "" || *rejectID != "":
		if *approver == "" {
			log.Fatal("a decision requires -approver")
		}
		rawID, status := *approveID, domain.ApprovalStatusApproved
		if *rejectID != "" {
			rawID, status = *rejectID, domain.ApprovalStatusRejected
		}
		id, err := uuid.Parse(rawID)
		if err != nil {
			log.Fatalf("invalid approval id: %v", err)
		}
		req, err := approvals.GetByID(ctx, id)
		if err != nil {
			log.Fatalf("loading approval request: %v", err)
		}
		if err := applier.Decide(ctx, *req, status, *approver, *notes); err != nil {
			log.Fatalf("applying decision: %v", err)
		}
		fmt.Printf("%s %s by %s\n", req.ID, status, *approver)

	default:
		flag.Usage()
		os.Exit(1)
	}
}

func printPending(pending []domain.ApprovalRequest) {
	if len(pending) == 0 {
		fmt.Println("no pending approval requests")
		return
	}
	for _, req := range pending {
		var payload map[string]interface{}
		_ = json.Unmarshal(req.Payload, &payload)
		fmt.Printf("%s  %-8s  run=%s  suggested=%q  payload=%v\n",
			req.ID, req.Type, req.RunID, req.SuggestedValue, payload)
	}
	fmt.Printf("%d pending request(s)\n", len(pending))
}
