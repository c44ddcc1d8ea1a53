package reconciliation

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qrisgate-service/qrisgate_service/internal/domain/entities"
	infrarepos "github.com/qrisgate-service/qrisgate_service/internal/infrastructure/repositories"
	apperrors "github.com/qrisgate-service/qrisgate_service/pkg/errors"
	"github.com/qrisgate-service/qrisgate_service/pkg/logger"
)

type fakeChecker struct {
	statusFn func(ctx context.Context, depositID string) (*entities.Deposit, error)
	calls    atomic.Int32
}

func (f *fakeChecker) GetStatus(ctx context.Context, depositID string) (*entities.Deposit, error) {
	f.calls.Add(1)
	return f.statusFn(ctx, depositID)
}

func seedEntry(t *testing.T, ledger *infrarepos.MemoryLedger, id string, status entities.DepositStatus, age time.Duration) {
	t.Helper()
	err := ledger.Append(context.Background(), &entities.LedgerEntry{
		ID:             id,
		Nominal:        50_000,
		Method:         "QRIS",
		Status:         status,
		LocalCreatedAt: time.Now().Add(-age),
	})
	require.NoError(t, err)
}

func TestRunOnceFinalizesStalePendingEntries(t *testing.T) {
	ledger := infrarepos.NewMemoryLedger()
	seedEntry(t, ledger, "dep-stale", entities.DepositStatusPending, time.Hour)

	checker := &fakeChecker{statusFn: func(ctx context.Context, id string) (*entities.Deposit, error) {
		return &entities.Deposit{ID: id, Status: entities.DepositStatusExpired}, nil
	}}

	sweeper := NewSweeper(ledger, checker, Config{MinAge: 30 * time.Minute}, logger.NewNop())
	sweeper.RunOnce(context.Background())

	entries, err := ledger.LoadAll(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, entities.DepositStatusExpired, entries[0].Status)
	assert.Equal(t, int32(1), checker.calls.Load())
}

func TestRunOnceSkipsTerminalAndFreshEntries(t *testing.T) {
	ledger := infrarepos.NewMemoryLedger()
	seedEntry(t, ledger, "dep-done", entities.DepositStatusSuccess, time.Hour)
	seedEntry(t, ledger, "dep-fresh", entities.DepositStatusPending, time.Minute)

	checker := &fakeChecker{statusFn: func(ctx context.Context, id string) (*entities.Deposit, error) {
		t.Errorf("unexpected status check for %s", id)
		return nil, nil
	}}

	sweeper := NewSweeper(ledger, checker, Config{MinAge: 30 * time.Minute}, logger.NewNop())
	sweeper.RunOnce(context.Background())

	assert.Equal(t, int32(0), checker.calls.Load())
}

func TestRunOnceLeavesStillPendingEntriesAlone(t *testing.T) {
	ledger := infrarepos.NewMemoryLedger()
	seedEntry(t, ledger, "dep-stale", entities.DepositStatusPending, time.Hour)

	checker := &fakeChecker{statusFn: func(ctx context.Context, id string) (*entities.Deposit, error) {
		return &entities.Deposit{ID: id, Status: entities.DepositStatusPending}, nil
	}}

	sweeper := NewSweeper(ledger, checker, Config{MinAge: 30 * time.Minute}, logger.NewNop())
	sweeper.RunOnce(context.Background())

	entries, err := ledger.LoadAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, entities.DepositStatusPending, entries[0].Status)
}

func TestRunOnceSurvivesCheckFailures(t *testing.T) {
	ledger := infrarepos.NewMemoryLedger()
	seedEntry(t, ledger, "dep-a", entities.DepositStatusPending, time.Hour)
	seedEntry(t, ledger, "dep-b", entities.DepositStatusPending, time.Hour)

	checker := &fakeChecker{statusFn: func(ctx context.Context, id string) (*entities.Deposit, error) {
		if id == "dep-b" {
			return nil, apperrors.NewNetworkError("/h2h/deposit/status", context.DeadlineExceeded)
		}
		return &entities.Deposit{ID: id, Status: entities.DepositStatusSuccess}, nil
	}}

	sweeper := NewSweeper(ledger, checker, Config{MinAge: 30 * time.Minute}, logger.NewNop())
	sweeper.RunOnce(context.Background())

	entries, err := ledger.LoadAll(context.Background())
	require.NoError(t, err)
	byID := map[string]entities.DepositStatus{}
	for _, e := range entries {
		byID[e.ID] = e.Status
	}
	assert.Equal(t, entities.DepositStatusSuccess, byID["dep-a"])
	assert.Equal(t, entities.DepositStatusPending, byID["dep-b"])
}

func TestSweeperStartStop(t *testing.T) {
	ledger := infrarepos.NewMemoryLedger()
	checker := &fakeChecker{statusFn: func(ctx context.Context, id string) (*entities.Deposit, error) {
		return &entities.Deposit{ID: id, Status: entities.DepositStatusPending}, nil
	}}

	sweeper := NewSweeper(ledger, checker, Config{Schedule: "@every 1h", MinAge: time.Minute}, logger.NewNop())
	require.NoError(t, sweeper.Start())
	sweeper.Stop()
}
