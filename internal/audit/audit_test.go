package audit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gstpipeline/internal/domain"
)

type capturingAuditRepo struct {
	mu      sync.Mutex
	batches [][]domain.AuditLogEntry
}

func (r *capturingAuditRepo) BulkInsert(_ context.Context, entries []domain.AuditLogEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	batch := make([]domain.AuditLogEntry, len(entries))
	copy(batch, entries)
	r.batches = append(r.batches, batch)
	return nil
}

func (r *capturingAuditRepo) ListByRun(_ context.Context, _ uuid.UUID) ([]domain.AuditLogEntry, error) {
	return nil, nil
}

func (r *capturingAuditRepo) all() []domain.AuditLogEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.AuditLogEntry
	for _, b := range r.batches {
		out = append(out, b...)
	}
	return out
}

func TestLoggerBuffersUntilFull(t *testing.T) {
	repo := &capturingAuditRepo{}
	l := NewLogger(repo, uuid.New())
	l.bufferSize = 3

	ctx := context.Background()
	l.Log(ctx, domain.ActorSystem, domain.ActionStageStarted, "stage", "ingest", nil)
	l.Log(ctx, domain.ActorSystem, domain.ActionStageCompleted, "stage", "ingest", nil)
	assert.Empty(t, repo.batches, "no flush before buffer fills")
	assert.Equal(t, 2, l.Pending())

	l.Log(ctx, domain.ActorSystem, domain.ActionStageStarted, "stage", "tax", nil)
	require.Len(t, repo.batches, 1)
	assert.Len(t, repo.batches[0], 3)
	assert.Equal(t, 0, l.Pending())
}

func TestLoggerFlushWritesRemainder(t *testing.T) {
	repo := &capturingAuditRepo{}
	l := NewLogger(repo, uuid.New())

	ctx := context.Background()
	l.Log(ctx, domain.ActorUser, domain.ActionApprovalDecided, "approval", "a-1", map[string]interface{}{"decision": "approved"})
	l.Flush(ctx)

	entries := repo.all()
	require.Len(t, entries, 1)
	assert.Equal(t, domain.ActorUser, entries[0].Actor)
	assert.JSONEq(t, `{"decision":"approved"}`, string(entries[0].Details))

	l.Flush(ctx)
	assert.Len(t, repo.batches, 1, "empty flush writes nothing")
}

func TestLoggerPreservesEmissionOrder(t *testing.T) {
	repo := &capturingAuditRepo{}
	runID := uuid.New()
	l := NewLogger(repo, runID)

	ctx := context.Background()
	actions := []domain.AuditAction{
		domain.ActionRunStarted,
		domain.ActionStageStarted,
		domain.ActionStageCompleted,
		domain.ActionRunCompleted,
	}
	for _, a := range actions {
		l.Log(ctx, domain.ActorSystem, a, "", "", nil)
	}
	l.Flush(ctx)

	entries := repo.all()
	require.Len(t, entries, len(actions))
	for i, e := range entries {
		assert.Equal(t, actions[i], e.Action)
		assert.Equal(t, runID, e.RunID)
		if i > 0 {
			assert.False(t, e.Timestamp.Before(entries[i-1].Timestamp),
				"timestamps must be non-decreasing in emission order")
		}
	}
}

func TestSessionOperationBracketsStartAndComplete(t *testing.T) {
	repo := &capturingAuditRepo{}
	l := NewLogger(repo, uuid.New())
	ctx := context.Background()

	s := StartSession(ctx, l, domain.ActorSystem)
	err := s.Operation(ctx, "pivot", func() error {
		time.Sleep(5 * time.Millisecond)
		return nil
	})
	require.NoError(t, err)
	s.End(ctx, domain.RunStatusSuccess)

	entries := repo.all()
	require.Len(t, entries, 4)
	assert.Equal(t, domain.ActionRunStarted, entries[0].Action)
	assert.Equal(t, domain.ActionStageStarted, entries[1].Action)
	assert.Equal(t, domain.ActionStageCompleted, entries[2].Action)
	assert.Equal(t, domain.ActionRunCompleted, entries[3].Action)

	timings := s.Timings()
	require.Contains(t, timings, "pivot")
	assert.Equal(t, 1, timings["pivot"].Count)
	assert.GreaterOrEqual(t, timings["pivot"].Total, 5*time.Millisecond)
}

func TestSessionOperationRecordsCriticalError(t *testing.T) {
	repo := &capturingAuditRepo{}
	l := NewLogger(repo, uuid.New())
	ctx := context.Background()

	s := StartSession(ctx, l, domain.ActorSystem)
	boom := errors.New("template missing")
	err := s.Operation(ctx, "tally_export", func() error { return boom })
	require.ErrorIs(t, err, boom)
	s.End(ctx, domain.RunStatusFailed)

	entries := repo.all()
	require.Len(t, entries, 4)
	assert.Equal(t, domain.ActionStageCriticalError, entries[2].Action)
	assert.Equal(t, domain.ActionRunFailed, entries[3].Action)

	timings := s.Timings()
	assert.Equal(t, 1, timings["tally_export"].Count, "timing recorded on the error path too")
}

func TestSessionTimingAggregation(t *testing.T) {
	repo := &capturingAuditRepo{}
	l := NewLogger(repo, uuid.New())
	ctx := context.Background()

	s := StartSession(ctx, l, domain.ActorSystem)
	for i := 0; i < 3; i++ {
		_ = s.Operation(ctx, "batch_write", func() error { return nil })
	}

	timings := s.Timings()
	require.Contains(t, timings, "batch_write")
	tm := timings["batch_write"]
	assert.Equal(t, 3, tm.Count)
	assert.LessOrEqual(t, tm.Min, tm.Max)
	assert.Equal(t, tm.Total/3, tm.Avg())
}
