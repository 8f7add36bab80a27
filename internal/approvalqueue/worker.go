package approvalqueue

import (
	"context"
	"log"
	"sync"
	"time"

	"gstpipeline/internal/domain"
	"gstpipeline/internal/exception"
	"gstpipeline/internal/port"
)

// WorkerConfig sizes the queue worker's poll loop.
type WorkerConfig struct {
	PollInterval time.Duration
	Concurrency  int
	BatchSize    int
}

// Worker polls the pending approval queue, auto-resolves what the rules
// allow, and dispatches a notification for each request that needs a human.
type Worker struct {
	approvals port.ApprovalRepository
	applier   *Applier
	notifier  port.Notifier
	rules     exception.Rules
	cfg       WorkerConfig

	mu       sync.Mutex
	notified map[string]struct{}
}

// NewWorker creates a queue worker.
func NewWorker(approvals port.ApprovalRepository, applier *Applier, notifier port.Notifier, rules exception.Rules, cfg WorkerConfig) *Worker {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 10 * time.Second
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 5
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	return &Worker{
		approvals: approvals,
		applier:   applier,
		notifier:  notifier,
		rules:     rules,
		cfg:       cfg,
		notified:  make(map[string]struct{}),
	}
}

// Start runs the poll loop until ctx is cancelled.
func (w *Worker) Start(ctx context.Context) {
	log.Printf("approvalQueueWorker: starting, poll interval %s, concurrency %d",
		w.cfg.PollInterval, w.cfg.Concurrency)
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Printf("approvalQueueWorker: stopping: %v", ctx.Err())
			return
		case <-ticker.C:
			if err := w.Drain(ctx); err != nil {
				log.Printf("approvalQueueWorker: drain failed: %v", err)
			}
		}
	}
}

// Drain processes one batch of pending requests with bounded concurrency.
func (w *Worker) Drain(ctx context.Context) error {
	pending, err := w.approvals.ListAllPending(ctx, w.cfg.BatchSize)
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		return nil
	}

	sem := make(chan struct{}, w.cfg.Concurrency)
	var wg sync.WaitGroup
	for _, req := range pending {
		req := req
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			w.process(ctx, req)
		}()
	}
	wg.Wait()
	return nil
}

func (w *Worker) process(ctx context.Context, req domain.ApprovalRequest) {
	decision := exception.CheckAutoApproval(w.rules, req)
	if decision.CanAutoApprove {
		if err := w.applier.Decide(ctx, req, domain.ApprovalStatusApproved, "system_auto", decision.Reason); err != nil {
			log.Printf("approvalQueueWorker: auto-approve %s failed: %v", req.ID, err)
		}
		return
	}

	// Notify once per request, then leave it queued for a human.
	w.mu.Lock()
	_, seen := w.notified[req.ID.String()]
	if !seen {
		w.notified[req.ID.String()] = struct{}{}
	}
	w.mu.Unlock()
	if seen {
		return
	}

	err := w.notifier.Send(ctx, port.Notification{
		Kind:  string(domain.SeverityWarning),
		Title: "Approval required: " + string(req.Type),
		Payload: map[string]interface{}{
			"request_id":      req.ID.String(),
			"run_id":          req.RunID.String(),
			"type":            string(req.Type),
			"suggested_value": req.SuggestedValue,
			"reason":          decision.Reason,
		},
	})
	if err != nil {
		log.Printf("approvalQueueWorker: notify for %s failed: %v", req.ID, err)
	}
}
