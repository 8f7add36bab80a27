package audit

import (
	"context"
	"sync"
	"time"

	"gstpipeline/internal/domain"
)

// Session wraps a run's audit logger with wall-clock bookkeeping and
// per-operation timing aggregation. Operations emit a START action on
// enter and a COMPLETE or CRITICAL_ERROR action on exit; the timing is
// recorded on every exit path.
type Session struct {
	logger  *Logger
	actor   domain.AuditActor
	started time.Time

	mu      sync.Mutex
	timings map[string]*domain.OperationTiming
}

// StartSession records the run-start event and begins the wall clock.
func StartSession(ctx context.Context, logger *Logger, actor domain.AuditActor) *Session {
	s := &Session{
		logger:  logger,
		actor:   actor,
		started: time.Now(),
		timings: make(map[string]*domain.OperationTiming),
	}
	logger.Log(ctx, actor, domain.ActionRunStarted, "run", logger.runID.String(), nil)
	return s
}

// Operation runs fn under audit bracketing: a stage START event on enter, a
// COMPLETE or CRITICAL_ERROR event on exit, with the elapsed duration folded
// into the per-operation timing aggregate in all paths.
func (s *Session) Operation(ctx context.Context, name string, fn func() error) error {
	s.logger.Log(ctx, s.actor, domain.ActionStageStarted, "stage", name, nil)
	start := time.Now()

	err := fn()
	elapsed := time.Since(start)
	s.record(name, elapsed)

	details := map[string]interface{}{
		"operation":   name,
		"duration_ms": elapsed.Milliseconds(),
	}
	if err != nil {
		details["error"] = err.Error()
		s.logger.Log(ctx, s.actor, domain.ActionStageCriticalError, "stage", name, details)
		return err
	}
	s.logger.Log(ctx, s.actor, domain.ActionStageCompleted, "stage", name, details)
	return nil
}

func (s *Session) record(name string, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.timings[name]
	if !ok {
		s.timings[name] = &domain.OperationTiming{Count: 1, Total: d, Min: d, Max: d}
		return
	}
	t.Count++
	t.Total += d
	if d < t.Min {
		t.Min = d
	}
	if d > t.Max {
		t.Max = d
	}
}

// Timings returns a copy of the per-operation timing aggregates.
func (s *Session) Timings() map[string]domain.OperationTiming {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]domain.OperationTiming, len(s.timings))
	for name, t := range s.timings {
		out[name] = *t
	}
	return out
}

// End records the run-end event with total duration and the per-operation
// metric dictionary, then flushes the buffer.
func (s *Session) End(ctx context.Context, status domain.RunStatus) {
	metrics := make(map[string]interface{}, len(s.timings))
	for name, t := range s.Timings() {
		metrics[name] = map[string]interface{}{
			"count":    t.Count,
			"total_ms": t.Total.Milliseconds(),
			"min_ms":   t.Min.Milliseconds(),
			"max_ms":   t.Max.Milliseconds(),
			"avg_ms":   t.Avg().Milliseconds(),
		}
	}

	action := domain.ActionRunCompleted
	if status == domain.RunStatusFailed {
		action = domain.ActionRunFailed
	}
	s.logger.LogWithMetadata(ctx, s.actor, action, "run", s.logger.runID.String(),
		map[string]interface{}{
			"status":      string(status),
			"duration_ms": time.Since(s.started).Milliseconds(),
		},
		map[string]interface{}{"operations": metrics},
	)
	s.logger.Flush(ctx)
}
