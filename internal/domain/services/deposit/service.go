// Package deposit implements the deposit lifecycle controller: it owns the
// single current transaction, schedules the poll and countdown tasks, applies
// status transitions and keeps the ledger consistent with the server-reported
// status.
package deposit

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/qrisgate-service/qrisgate_service/internal/domain/entities"
	"github.com/qrisgate-service/qrisgate_service/internal/domain/repositories"
	"github.com/qrisgate-service/qrisgate_service/internal/domain/services/fee"
	apperrors "github.com/qrisgate-service/qrisgate_service/pkg/errors"
	"github.com/qrisgate-service/qrisgate_service/pkg/logger"
	"github.com/qrisgate-service/qrisgate_service/pkg/metrics"
)

// State is the controller's lifecycle state
type State string

const (
	StateIdle      State = "idle"
	StateCreating  State = "creating"
	StatePending   State = "pending"
	StateSuccess   State = "success"
	StateCancelled State = "cancelled"
	StateExpired   State = "expired"
)

// stateForStatus maps a terminal deposit status onto the controller state
func stateForStatus(status entities.DepositStatus) State {
	switch status {
	case entities.DepositStatusSuccess:
		return StateSuccess
	case entities.DepositStatusCancel:
		return StateCancelled
	case entities.DepositStatusExpired:
		return StateExpired
	default:
		return StatePending
	}
}

// Gateway is the slice of the payment gateway the controller needs
type Gateway interface {
	ListMethods(ctx context.Context) ([]entities.PaymentMethod, error)
	CreateDeposit(ctx context.Context, nominal int64, method entities.PaymentMethod) (*entities.Deposit, error)
	GetStatus(ctx context.Context, depositID string) (*entities.Deposit, error)
	Cancel(ctx context.Context, depositID string) (*entities.Deposit, error)
}

// Config holds controller timing and history settings
type Config struct {
	PollInterval  time.Duration
	CountdownTick time.Duration
	HistoryLimit  int
}

// DefaultConfig returns the cadence of the reference deployment
func DefaultConfig() Config {
	return Config{
		PollInterval:  10 * time.Second,
		CountdownTick: time.Second,
		HistoryLimit:  10,
	}
}

const eventBufferSize = 64

// Service is the deposit lifecycle controller. All state is guarded by mu;
// network calls never run while it is held.
type Service struct {
	gateway Gateway
	ledger  repositories.Ledger
	calc    *fee.Calculator
	logger  *logger.Logger
	cfg     Config

	mu            sync.Mutex
	state         State
	current       *entities.Deposit
	methods       []entities.PaymentMethod
	methodsByCode map[string]entities.PaymentMethod
	pollTask      *task
	countdownTask *task
	creating      bool

	checkInFlight atomic.Bool

	rootCtx    context.Context
	rootCancel context.CancelFunc
	wg         sync.WaitGroup

	evMu     sync.Mutex
	events   chan Event
	disposed bool
}

// NewService creates a deposit lifecycle controller
func NewService(gateway Gateway, ledger repositories.Ledger, calc *fee.Calculator, cfg Config, log *logger.Logger) *Service {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultConfig().PollInterval
	}
	if cfg.CountdownTick <= 0 {
		cfg.CountdownTick = DefaultConfig().CountdownTick
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = DefaultConfig().HistoryLimit
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Service{
		gateway:    gateway,
		ledger:     ledger,
		calc:       calc,
		logger:     log,
		cfg:        cfg,
		state:      StateIdle,
		rootCtx:    ctx,
		rootCancel: cancel,
		events:     make(chan Event, eventBufferSize),
	}
}

// Events returns the lifecycle notification channel. Slow consumers lose
// events rather than blocking the controller.
func (s *Service) Events() <-chan Event {
	return s.events
}

// CurrentState returns the controller state
func (s *Service) CurrentState() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Current returns a snapshot of the active deposit, or nil
func (s *Service) Current() *entities.Deposit {
	return s.currentSnapshot()
}

func (s *Service) currentSnapshot() *entities.Deposit {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneDeposit(s.current)
}

func cloneDeposit(d *entities.Deposit) *entities.Deposit {
	if d == nil {
		return nil
	}
	clone := *d
	return &clone
}

// Methods returns the QRIS-capable method catalog, refreshing it wholesale
// from the gateway. A refresh failure falls back to the cached catalog when
// one exists.
func (s *Service) Methods(ctx context.Context) ([]entities.PaymentMethod, error) {
	fetched, err := s.gateway.ListMethods(ctx)
	if err != nil {
		s.mu.Lock()
		cached := s.methods
		s.mu.Unlock()
		if len(cached) > 0 {
			s.logger.Warn("Method catalog refresh failed, serving cached catalog", "error", err)
			return cached, nil
		}
		return nil, err
	}

	byCode := make(map[string]entities.PaymentMethod, len(fetched))
	for _, m := range fetched {
		byCode[m.Code] = m
	}

	s.mu.Lock()
	s.methods = fetched
	s.methodsByCode = byCode
	s.mu.Unlock()
	return fetched, nil
}

// resolveMethod finds a catalog entry by code, fetching the catalog if it has
// not been loaded yet.
func (s *Service) resolveMethod(ctx context.Context, code string) (*entities.PaymentMethod, error) {
	s.mu.Lock()
	cached, ok := s.methodsByCode[code]
	haveCatalog := len(s.methodsByCode) > 0
	s.mu.Unlock()
	if ok {
		return &cached, nil
	}
	if haveCatalog {
		return nil, apperrors.NewValidationError("unknown payment method: %s", code)
	}

	if _, err := s.Methods(ctx); err != nil {
		return nil, err
	}

	s.mu.Lock()
	cached, ok = s.methodsByCode[code]
	s.mu.Unlock()
	if !ok {
		return nil, apperrors.NewValidationError("unknown payment method: %s", code)
	}
	return &cached, nil
}

// Quote computes the pre-submission fee estimate for a nominal amount
func (s *Service) Quote(ctx context.Context, nominal int64, methodCode string) (*fee.Quote, error) {
	var method *entities.PaymentMethod
	if s.calc.Mode() == fee.ModeMethod {
		resolved, err := s.resolveMethod(ctx, methodCode)
		if err != nil {
			return nil, err
		}
		method = resolved
	}
	return s.calc.Quote(nominal, method)
}

// Submit validates the amount, creates the deposit at the gateway, writes the
// ledger entry and starts the poll and countdown tasks. A pending deposit is
// fully torn down before the new one starts, but only once the new submission
// has passed validation: a rejected input leaves the live transaction and its
// timers untouched.
func (s *Service) Submit(ctx context.Context, nominal int64, methodCode string) (*entities.Deposit, error) {
	method, err := s.resolveMethod(ctx, methodCode)
	if err != nil {
		return nil, err
	}

	// Rejects out-of-bounds amounts before any create call is made.
	if _, err := s.calc.Quote(nominal, method); err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.creating {
		s.mu.Unlock()
		return nil, apperrors.NewValidationError("a deposit is already being created")
	}
	s.stopTimersLocked()
	s.creating = true
	s.state = StateCreating
	s.mu.Unlock()

	dep, err := s.gateway.CreateDeposit(ctx, nominal, *method)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.creating = false

	if err != nil {
		s.state = StateIdle
		s.current = nil
		return nil, err
	}

	s.current = dep
	s.state = stateForStatus(dep.Status)

	entry := entities.LedgerEntryFromDeposit(dep, time.Now())
	if err := s.ledger.Append(ctx, entry); err != nil {
		// History degrades; the transaction itself is unaffected.
		s.logger.Warn("Failed to persist ledger entry", "deposit_id", dep.ID, "error", err)
	}

	metrics.DepositsCreatedCounter.WithLabelValues(dep.Method).Inc()

	if dep.Status == entities.DepositStatusPending {
		s.startTimersLocked(dep)
	}

	s.logger.Info("Deposit created",
		"deposit_id", dep.ID,
		"nominal", dep.Nominal,
		"method", dep.Method,
		"expires_at", dep.ExpiresAt)

	s.publish(Event{Type: EventDepositCreated, State: s.state, Deposit: cloneDeposit(dep)})
	return cloneDeposit(dep), nil
}

// CheckNow performs one explicit status check against the gateway
func (s *Service) CheckNow(ctx context.Context) (*entities.Deposit, error) {
	s.mu.Lock()
	if s.current == nil {
		s.mu.Unlock()
		return nil, apperrors.NewValidationError("no active deposit")
	}
	id := s.current.ID
	s.mu.Unlock()

	return s.checkOnce(ctx, id)
}

// checkOnce fetches the status of one deposit and applies it. At most one
// check per service is in flight at any time; an overlapping call returns the
// current snapshot untouched.
func (s *Service) checkOnce(ctx context.Context, depositID string) (*entities.Deposit, error) {
	if !s.checkInFlight.CompareAndSwap(false, true) {
		metrics.PollSkippedCounter.Inc()
		return s.currentSnapshot(), nil
	}
	defer s.checkInFlight.Store(false)

	metrics.PollTicksCounter.Inc()

	result, err := s.gateway.GetStatus(ctx, depositID)
	if err != nil {
		metrics.PollErrorsCounter.Inc()
		s.publish(Event{Type: EventPollError, State: s.CurrentState(), Error: err.Error()})
		return s.currentSnapshot(), err
	}

	s.applyStatus(ctx, result)
	return s.currentSnapshot(), nil
}

// applyStatus merges a server response into the current deposit and applies
// the transition rules. Stale responses for other transactions and transitions
// out of a terminal state are dropped.
func (s *Service) applyStatus(ctx context.Context, result *entities.Deposit) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil || s.current.ID != result.ID {
		s.logger.Debug("Dropping status response for inactive deposit", "deposit_id", result.ID)
		return
	}

	s.current.LastCheckedAt = time.Now()

	// Terminal states are sticky even if a stale poll response races in.
	if s.current.Status.IsTerminal() {
		return
	}

	// Server-confirmed amounts are the source of truth.
	if result.Fee > 0 {
		s.current.Fee = result.Fee
	}
	if result.NetAmount > 0 {
		s.current.NetAmount = result.NetAmount
	}

	if result.Status == entities.DepositStatusPending {
		s.publish(Event{Type: EventStillPending, State: s.state, Deposit: cloneDeposit(s.current)})
		return
	}

	if err := s.current.Status.ValidateTransition(result.Status); err != nil {
		s.logger.Warn("Ignoring invalid status transition",
			"deposit_id", s.current.ID,
			"from", s.current.Status,
			"to", result.Status)
		return
	}

	// Both tasks go down together; partial teardown would resurrect a
	// finished transaction.
	s.stopTimersLocked()

	s.current.Status = result.Status
	s.state = stateForStatus(result.Status)
	metrics.StatusTransitionsCounter.WithLabelValues(string(result.Status)).Inc()

	if err := s.ledger.UpdateStatus(ctx, s.current.ID, result.Status); err != nil {
		s.logger.Warn("Failed to update ledger entry", "deposit_id", s.current.ID, "error", err)
	}

	s.logger.Info("Deposit reached terminal status",
		"deposit_id", s.current.ID,
		"status", s.current.Status)

	s.publish(Event{Type: EventStatusChanged, State: s.state, Deposit: cloneDeposit(s.current)})
}

// Cancel cancels the active deposit at the gateway. Cancelling an
// already-terminal deposit is idempotent. A failed cancel leaves the deposit
// pending with its timers intact.
func (s *Service) Cancel(ctx context.Context) (*entities.Deposit, error) {
	s.mu.Lock()
	if s.current == nil {
		s.mu.Unlock()
		return nil, apperrors.NewValidationError("no active deposit")
	}
	if s.current.Status.IsTerminal() {
		snapshot := cloneDeposit(s.current)
		s.mu.Unlock()
		return snapshot, nil
	}
	id := s.current.ID
	s.mu.Unlock()

	result, err := s.gateway.Cancel(ctx, id)
	if err != nil {
		return nil, err
	}

	s.applyStatus(ctx, result)
	return s.currentSnapshot(), nil
}

// Reset clears the current deposit and returns to idle. Timers are torn down
// unconditionally; already-written ledger entries are never touched. A still
// pending entry left behind is picked up by reconciliation.
func (s *Service) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopTimersLocked()
	if s.current != nil && !s.current.Status.IsTerminal() {
		s.logger.Warn("Reset with a pending deposit; reconciliation will finalize it",
			"deposit_id", s.current.ID)
	}
	s.current = nil
	s.state = StateIdle
}

// History returns the most recent ledger entries, newest first
func (s *Service) History(ctx context.Context) ([]*entities.LedgerEntry, error) {
	return s.ledger.ListRecent(ctx, s.cfg.HistoryLimit)
}

// Dispose tears down both timers, waits for their goroutines and closes the
// event channel. The service must not be used afterwards.
func (s *Service) Dispose() {
	s.Reset()
	s.rootCancel()
	s.wg.Wait()

	s.evMu.Lock()
	defer s.evMu.Unlock()
	if !s.disposed {
		s.disposed = true
		close(s.events)
	}
}

// startTimersLocked starts the poll and countdown tasks for dep.
// Caller holds mu; any previous tasks must already be stopped.
func (s *Service) startTimersLocked(dep *entities.Deposit) {
	id := dep.ID
	expiresAt := dep.ExpiresAt
	s.pollTask = s.spawn(func(ctx context.Context) {
		s.pollLoop(ctx, id)
	})
	s.countdownTask = s.spawn(func(ctx context.Context) {
		s.countdownLoop(ctx, id, expiresAt)
	})
	metrics.ActiveDepositGauge.Set(1)
}

// stopTimersLocked cancels both tasks. Caller holds mu.
func (s *Service) stopTimersLocked() {
	if s.pollTask != nil {
		s.pollTask.stop()
		s.pollTask = nil
	}
	if s.countdownTask != nil {
		s.countdownTask.stop()
		s.countdownTask = nil
	}
	metrics.ActiveDepositGauge.Set(0)
}

// publish delivers an event without ever blocking the controller
func (s *Service) publish(ev Event) {
	s.evMu.Lock()
	defer s.evMu.Unlock()
	if s.disposed {
		return
	}
	select {
	case s.events <- ev:
	default:
		s.logger.Debug("Event buffer full, dropping event", "type", string(ev.Type))
	}
}
