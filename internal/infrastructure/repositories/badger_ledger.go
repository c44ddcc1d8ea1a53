package repositories

import (
	"context"
	"encoding/json"
	"sort"

	badger "github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"

	"github.com/qrisgate-service/qrisgate_service/internal/domain/entities"
	apperrors "github.com/qrisgate-service/qrisgate_service/pkg/errors"
)

var ledgerPrefix = []byte("ledger/")

// BadgerLedger persists ledger entries in an embedded badger store. This is
// the default driver: the ledger is a local, single-device transaction log.
type BadgerLedger struct {
	db     *badger.DB
	logger *zap.Logger
}

// NewBadgerLedger opens (or creates) the badger store at path
func NewBadgerLedger(path string, logger *zap.Logger) (*BadgerLedger, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, apperrors.NewStorageError("open", err)
	}
	return &BadgerLedger{db: db, logger: logger}, nil
}

// NewBadgerLedgerInMemory opens a badger store without a backing directory.
// Used in tests.
func NewBadgerLedgerInMemory(logger *zap.Logger) (*BadgerLedger, error) {
	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, apperrors.NewStorageError("open", err)
	}
	return &BadgerLedger{db: db, logger: logger}, nil
}

func ledgerKey(id string) []byte {
	return append(append([]byte{}, ledgerPrefix...), id...)
}

// Append stores a new entry keyed by its deposit id
func (l *BadgerLedger) Append(ctx context.Context, entry *entities.LedgerEntry) error {
	value, err := json.Marshal(entry)
	if err != nil {
		return apperrors.NewStorageError("append", err)
	}
	err = l.db.Update(func(txn *badger.Txn) error {
		return txn.Set(ledgerKey(entry.ID), value)
	})
	if err != nil {
		return apperrors.NewStorageError("append", err)
	}
	return nil
}

// UpdateStatus rewrites the status of an existing entry in place
func (l *BadgerLedger) UpdateStatus(ctx context.Context, id string, status entities.DepositStatus) error {
	err := l.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(ledgerKey(id))
		if err != nil {
			return err
		}
		var entry entities.LedgerEntry
		err = item.Value(func(val []byte) error {
			return json.Unmarshal(val, &entry)
		})
		if err != nil {
			return err
		}
		entry.Status = status
		value, err := json.Marshal(&entry)
		if err != nil {
			return err
		}
		return txn.Set(ledgerKey(id), value)
	})
	if err != nil {
		return apperrors.NewStorageError("update_status", err)
	}
	return nil
}

// ListRecent returns at most n entries, most recently created first
func (l *BadgerLedger) ListRecent(ctx context.Context, n int) ([]*entities.LedgerEntry, error) {
	entries, err := l.LoadAll(ctx)
	if err != nil {
		return nil, err
	}
	if n >= 0 && len(entries) > n {
		entries = entries[:n]
	}
	return entries, nil
}

// LoadAll returns every readable entry, most recently created first.
// Corrupt values are skipped so a damaged store degrades instead of failing.
func (l *BadgerLedger) LoadAll(ctx context.Context) ([]*entities.LedgerEntry, error) {
	var entries []*entities.LedgerEntry
	err := l.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = ledgerPrefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.ValidForPrefix(ledgerPrefix); it.Next() {
			item := it.Item()
			err := item.Value(func(val []byte) error {
				var entry entities.LedgerEntry
				if err := json.Unmarshal(val, &entry); err != nil {
					l.logger.Warn("Skipping corrupt ledger entry",
						zap.ByteString("key", item.Key()),
						zap.Error(err))
					return nil
				}
				entries = append(entries, &entry)
				return nil
			})
			if err != nil {
				l.logger.Warn("Failed to read ledger entry",
					zap.ByteString("key", item.Key()),
					zap.Error(err))
			}
		}
		return nil
	})
	if err != nil {
		return nil, apperrors.NewStorageError("load_all", err)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].LocalCreatedAt.After(entries[j].LocalCreatedAt)
	})
	return entries, nil
}

// Close releases the badger store
func (l *BadgerLedger) Close() error {
	return l.db.Close()
}
