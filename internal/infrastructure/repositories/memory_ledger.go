package repositories

import (
	"context"
	"sync"

	"github.com/qrisgate-service/qrisgate_service/internal/domain/entities"
	apperrors "github.com/qrisgate-service/qrisgate_service/pkg/errors"
)

// MemoryLedger keeps ledger entries in memory only. It is the degraded mode
// when the durable store cannot be opened, and the fixture for tests.
type MemoryLedger struct {
	mu      sync.RWMutex
	byID    map[string]*entities.LedgerEntry
	ordered []string // most recent first
}

// NewMemoryLedger creates an empty in-memory ledger
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{byID: make(map[string]*entities.LedgerEntry)}
}

// Append stores a new entry at the front of the history
func (l *MemoryLedger) Append(ctx context.Context, entry *entities.LedgerEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	clone := *entry
	if _, exists := l.byID[entry.ID]; !exists {
		l.ordered = append([]string{entry.ID}, l.ordered...)
	}
	l.byID[entry.ID] = &clone
	return nil
}

// UpdateStatus rewrites the status of an existing entry in place
func (l *MemoryLedger) UpdateStatus(ctx context.Context, id string, status entities.DepositStatus) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.byID[id]
	if !ok {
		return apperrors.NewStorageError("update_status", errEntryNotFound(id))
	}
	entry.Status = status
	return nil
}

// ListRecent returns at most n entries, most recently created first
func (l *MemoryLedger) ListRecent(ctx context.Context, n int) ([]*entities.LedgerEntry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var entries []*entities.LedgerEntry
	for _, id := range l.ordered {
		if n >= 0 && len(entries) >= n {
			break
		}
		clone := *l.byID[id]
		entries = append(entries, &clone)
	}
	return entries, nil
}

// LoadAll returns every entry, most recently created first
func (l *MemoryLedger) LoadAll(ctx context.Context) ([]*entities.LedgerEntry, error) {
	return l.ListRecent(ctx, -1)
}

// Close is a no-op for the in-memory ledger
func (l *MemoryLedger) Close() error {
	return nil
}

type errEntryNotFound string

func (e errEntryNotFound) Error() string {
	return "ledger entry not found: " + string(e)
}
