package repositories

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/qrisgate-service/qrisgate_service/internal/domain/entities"
	apperrors "github.com/qrisgate-service/qrisgate_service/pkg/errors"
)

const (
	redisEntryKeyPrefix = "qrisgate:ledger:entry:"
	redisIndexKey       = "qrisgate:ledger:index"
)

// RedisLedger persists ledger entries in redis, for deployments that already
// run one. The index list holds ids most-recent-first; entry bodies are JSON.
type RedisLedger struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisLedger creates a redis-backed ledger and verifies connectivity
func NewRedisLedger(addr string, db int, logger *zap.Logger) (*RedisLedger, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, DB: db})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, apperrors.NewStorageError("open", err)
	}
	return &RedisLedger{client: client, logger: logger}, nil
}

func redisEntryKey(id string) string {
	return redisEntryKeyPrefix + id
}

// Append stores a new entry and pushes its id to the front of the index
func (l *RedisLedger) Append(ctx context.Context, entry *entities.LedgerEntry) error {
	value, err := json.Marshal(entry)
	if err != nil {
		return apperrors.NewStorageError("append", err)
	}

	exists, err := l.client.Exists(ctx, redisEntryKey(entry.ID)).Result()
	if err != nil {
		return apperrors.NewStorageError("append", err)
	}

	pipe := l.client.TxPipeline()
	pipe.Set(ctx, redisEntryKey(entry.ID), value, 0)
	if exists == 0 {
		pipe.LPush(ctx, redisIndexKey, entry.ID)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return apperrors.NewStorageError("append", err)
	}
	return nil
}

// UpdateStatus rewrites the status of an existing entry in place
func (l *RedisLedger) UpdateStatus(ctx context.Context, id string, status entities.DepositStatus) error {
	raw, err := l.client.Get(ctx, redisEntryKey(id)).Bytes()
	if err != nil {
		return apperrors.NewStorageError("update_status", err)
	}
	var entry entities.LedgerEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return apperrors.NewStorageError("update_status", err)
	}
	entry.Status = status
	value, err := json.Marshal(&entry)
	if err != nil {
		return apperrors.NewStorageError("update_status", err)
	}
	if err := l.client.Set(ctx, redisEntryKey(id), value, 0).Err(); err != nil {
		return apperrors.NewStorageError("update_status", err)
	}
	return nil
}

// ListRecent returns at most n entries, most recently created first
func (l *RedisLedger) ListRecent(ctx context.Context, n int) ([]*entities.LedgerEntry, error) {
	// LRANGE(0, -1) means "everything"; n == 0 must mean "nothing", as in
	// the other drivers.
	if n == 0 {
		return nil, nil
	}
	stop := int64(n) - 1
	if n < 0 {
		stop = -1
	}
	ids, err := l.client.LRange(ctx, redisIndexKey, 0, stop).Result()
	if err != nil {
		return nil, apperrors.NewStorageError("list_recent", err)
	}

	var entries []*entities.LedgerEntry
	for _, id := range ids {
		raw, err := l.client.Get(ctx, redisEntryKey(id)).Bytes()
		if err != nil {
			if !errors.Is(err, redis.Nil) {
				return nil, apperrors.NewStorageError("list_recent", err)
			}
			continue
		}
		var entry entities.LedgerEntry
		if err := json.Unmarshal(raw, &entry); err != nil {
			l.logger.Warn("Skipping corrupt ledger entry",
				zap.String("id", id),
				zap.Error(err))
			continue
		}
		entries = append(entries, &entry)
	}
	return entries, nil
}

// LoadAll returns every readable entry, most recently created first
func (l *RedisLedger) LoadAll(ctx context.Context) ([]*entities.LedgerEntry, error) {
	return l.ListRecent(ctx, -1)
}

// Close releases the redis connection
func (l *RedisLedger) Close() error {
	return l.client.Close()
}
