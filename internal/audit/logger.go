package audit

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"gstpipeline/internal/domain"
	"gstpipeline/internal/port"
)

// DefaultBufferSize is how many entries accumulate before a batch flush.
const DefaultBufferSize = 100

// Logger buffers audit entries in-memory and batch-flushes them in emission
// order. It is safe for concurrent use; entries appended while holding the
// lock preserve happens-before order across the flush boundary.
type Logger struct {
	repo       port.AuditLogRepository
	runID      uuid.UUID
	bufferSize int

	mu  sync.Mutex
	buf []domain.AuditLogEntry
}

// NewLogger creates an audit logger for one run with the default buffer size.
func NewLogger(repo port.AuditLogRepository, runID uuid.UUID) *Logger {
	return &Logger{repo: repo, runID: runID, bufferSize: DefaultBufferSize}
}

// Log appends one entry, flushing when the buffer fills. details and metadata
// are marshaled immediately so later mutation of the maps cannot alter the
// recorded entry.
func (l *Logger) Log(ctx context.Context, actor domain.AuditActor, action domain.AuditAction, entityType, entityID string, details map[string]interface{}) {
	l.LogWithMetadata(ctx, actor, action, entityType, entityID, details, nil)
}

// LogWithMetadata is Log with an extra free-form metadata map.
func (l *Logger) LogWithMetadata(ctx context.Context, actor domain.AuditActor, action domain.AuditAction, entityType, entityID string, details, metadata map[string]interface{}) {
	entry := domain.AuditLogEntry{
		ID:         uuid.New(),
		RunID:      l.runID,
		Actor:      actor,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Details:    marshalMap(details),
		Metadata:   marshalMap(metadata),
		Timestamp:  time.Now().UTC(),
	}

	l.mu.Lock()
	l.buf = append(l.buf, entry)
	full := len(l.buf) >= l.bufferSize
	var batch []domain.AuditLogEntry
	if full {
		batch = l.buf
		l.buf = nil
	}
	l.mu.Unlock()

	if full {
		l.write(ctx, batch)
	}
}

// Flush writes any buffered entries. Call on every controller exit path.
func (l *Logger) Flush(ctx context.Context) {
	l.mu.Lock()
	batch := l.buf
	l.buf = nil
	l.mu.Unlock()

	if len(batch) > 0 {
		l.write(ctx, batch)
	}
}

// Pending returns the count of buffered, not-yet-flushed entries.
func (l *Logger) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buf)
}

func (l *Logger) write(ctx context.Context, batch []domain.AuditLogEntry) {
	if l.repo == nil {
		return
	}
	if err := l.repo.BulkInsert(ctx, batch); err != nil {
		// The audit trail must never take the pipeline down with it.
		log.Printf("audit: flush of %d entries failed: %v", len(batch), err)
	}
}

func marshalMap(m map[string]interface{}) json.RawMessage {
	if len(m) == 0 {
		return nil
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return nil
	}
	return raw
}
