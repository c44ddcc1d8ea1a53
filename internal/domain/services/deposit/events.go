package deposit

import (
	"time"

	"github.com/qrisgate-service/qrisgate_service/internal/domain/entities"
)

// EventType identifies what a lifecycle event reports
type EventType string

const (
	// EventDepositCreated fires once a deposit exists at the gateway
	EventDepositCreated EventType = "deposit_created"
	// EventStatusChanged fires on every applied status transition
	EventStatusChanged EventType = "status_changed"
	// EventStillPending fires when a poll confirms the deposit is unpaid
	EventStillPending EventType = "still_pending"
	// EventPollError fires when a status check fails; the deposit stays pending
	EventPollError EventType = "poll_error"
	// EventCountdownTick reports the remaining payment window
	EventCountdownTick EventType = "countdown_tick"
	// EventCountdownExpired fires when the local countdown reaches zero.
	// The transaction is not closed locally; one final authoritative status
	// check follows.
	EventCountdownExpired EventType = "countdown_expired"
)

// Event is a lifecycle notification for the presentation layer
type Event struct {
	Type      EventType         `json:"type"`
	State     State             `json:"state"`
	Deposit   *entities.Deposit `json:"deposit,omitempty"`
	Remaining time.Duration     `json:"remaining,omitempty"`
	Error     string            `json:"error,omitempty"`
}
