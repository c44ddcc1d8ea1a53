package entities

import "fmt"

// DepositStatus represents the server-reported status of a deposit
type DepositStatus string

const (
	DepositStatusPending DepositStatus = "pending" // Awaiting payment
	DepositStatusSuccess DepositStatus = "success" // Terminal: paid
	DepositStatusCancel  DepositStatus = "cancel"  // Terminal: cancelled
	DepositStatusExpired DepositStatus = "expired" // Terminal: payment window elapsed
)

// ValidDepositStatuses contains all valid deposit statuses
var ValidDepositStatuses = map[DepositStatus]bool{
	DepositStatusPending: true,
	DepositStatusSuccess: true,
	DepositStatusCancel:  true,
	DepositStatusExpired: true,
}

// ValidDepositTransitions defines allowed status transitions.
// Terminal states are sticky: a stale poll response can never reopen them.
var ValidDepositTransitions = map[DepositStatus][]DepositStatus{
	DepositStatusPending: {DepositStatusSuccess, DepositStatusCancel, DepositStatusExpired},
	DepositStatusSuccess: {},
	DepositStatusCancel:  {},
	DepositStatusExpired: {},
}

// IsValid checks if the status is a valid deposit status
func (s DepositStatus) IsValid() bool {
	return ValidDepositStatuses[s]
}

// CanTransitionTo checks if transition to new status is allowed
func (s DepositStatus) CanTransitionTo(newStatus DepositStatus) bool {
	allowed, exists := ValidDepositTransitions[s]
	if !exists {
		return false
	}
	for _, status := range allowed {
		if status == newStatus {
			return true
		}
	}
	return false
}

// IsTerminal returns true if this is a terminal state
func (s DepositStatus) IsTerminal() bool {
	return s == DepositStatusSuccess || s == DepositStatusCancel || s == DepositStatusExpired
}

// ValidateTransition validates and returns error if transition is invalid
func (s DepositStatus) ValidateTransition(newStatus DepositStatus) error {
	if !newStatus.IsValid() {
		return fmt.Errorf("invalid deposit status: %s", newStatus)
	}
	if !s.CanTransitionTo(newStatus) {
		return fmt.Errorf("invalid status transition from %s to %s", s, newStatus)
	}
	return nil
}
