// Package repositories declares the persistence interfaces of the domain.
package repositories

import (
	"context"

	"github.com/qrisgate-service/qrisgate_service/internal/domain/entities"
)

// Ledger defines the interface for the local transaction log. Entries are
// appended when a deposit is created and mutated only by status transitions;
// they are never deleted. Implementations must tolerate a corrupted or empty
// backing store by starting from an empty ledger rather than failing.
type Ledger interface {
	// Append stores a new entry. Appending an id that already exists
	// overwrites the previous record for that id.
	Append(ctx context.Context, entry *entities.LedgerEntry) error
	// UpdateStatus rewrites the status of an existing entry in place.
	UpdateStatus(ctx context.Context, id string, status entities.DepositStatus) error
	// ListRecent returns at most n entries, most recently created first.
	ListRecent(ctx context.Context, n int) ([]*entities.LedgerEntry, error)
	// LoadAll returns every readable entry, most recently created first.
	// Unreadable entries are skipped, not fatal.
	LoadAll(ctx context.Context) ([]*entities.LedgerEntry, error)
	// Close releases the backing store.
	Close() error
}
