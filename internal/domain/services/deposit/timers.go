package deposit

import (
	"context"
	"sync"
	"time"
)

// task is a cancellable scheduled job. Stop is safe to call more than once
// and from any goroutine; the loop itself re-validates the current deposit
// before acting, so a tick that was already in flight when Stop ran is a
// no-op.
type task struct {
	cancel context.CancelFunc
	once   sync.Once
}

func (t *task) stop() {
	t.once.Do(t.cancel)
}

// spawn runs fn on its own goroutine under a child context and returns its
// cancellation handle.
func (s *Service) spawn(fn func(ctx context.Context)) *task {
	ctx, cancel := context.WithCancel(s.rootCtx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		fn(ctx)
	}()
	return &task{cancel: cancel}
}

// pollLoop checks the deposit status at a fixed interval until cancelled.
// A tick is skipped when the previous check is still in flight, so polls for
// one transaction never overlap.
func (s *Service) pollLoop(ctx context.Context, depositID string) {
	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.checkOnce(ctx, depositID); err != nil {
				// Surfaced via events inside checkOnce; the next tick
				// still occurs.
				s.logger.Warn("Status poll failed",
					"deposit_id", depositID,
					"error", err)
			}
		}
	}
}

// countdownLoop tracks the payment window against the local clock. Reaching
// zero is a UI signal only: the loop stops ticking and triggers one final
// authoritative status check instead of closing the transaction itself.
func (s *Service) countdownLoop(ctx context.Context, depositID string, expiresAt time.Time) {
	if expiresAt.IsZero() {
		return
	}

	ticker := time.NewTicker(s.cfg.CountdownTick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			remaining := time.Until(expiresAt)
			if remaining <= 0 {
				s.publish(Event{
					Type:    EventCountdownExpired,
					State:   s.CurrentState(),
					Deposit: s.currentSnapshot(),
				})
				if _, err := s.checkOnce(ctx, depositID); err != nil {
					s.logger.Warn("Final status check after countdown expiry failed",
						"deposit_id", depositID,
						"error", err)
				}
				return
			}
			s.publish(Event{
				Type:      EventCountdownTick,
				State:     s.CurrentState(),
				Remaining: remaining,
			})
		}
	}
}
