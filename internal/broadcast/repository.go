package broadcast

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// LogRepository persists broadcast run logs.
type LogRepository interface {
	Insert(ctx context.Context, log *Log) error
	List(ctx context.Context, limit, offset int) ([]Log, error)
}

// InMemoryLogRepository is an in-memory LogRepository for tests and
// development.
type InMemoryLogRepository struct {
	mu   sync.RWMutex
	logs []Log
}

// NewInMemoryLogRepository creates an empty in-memory log store.
func NewInMemoryLogRepository() *InMemoryLogRepository {
	return &InMemoryLogRepository{}
}

// Insert assigns an id and timestamp and appends the log.
func (r *InMemoryLogRepository) Insert(ctx context.Context, log *Log) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	log.ID = uuid.New().String()
	log.CreatedAt = time.Now().UTC()
	r.logs = append(r.logs, *log)
	return nil
}

// List returns logs newest first.
func (r *InMemoryLogRepository) List(ctx context.Context, limit, offset int) ([]Log, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Log, 0, limit)
	for i := len(r.logs) - 1 - offset; i >= 0 && len(out) < limit; i-- {
		out = append(out, r.logs[i])
	}
	return out, nil
}
