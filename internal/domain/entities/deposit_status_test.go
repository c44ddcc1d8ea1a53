package entities

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDepositStatusIsValid(t *testing.T) {
	assert.True(t, DepositStatusPending.IsValid())
	assert.True(t, DepositStatusSuccess.IsValid())
	assert.True(t, DepositStatusCancel.IsValid())
	assert.True(t, DepositStatusExpired.IsValid())
	assert.False(t, DepositStatus("paid").IsValid())
	assert.False(t, DepositStatus("").IsValid())
}

func TestDepositStatusTransitions(t *testing.T) {
	tests := []struct {
		name    string
		from    DepositStatus
		to      DepositStatus
		allowed bool
	}{
		{name: "pending to success", from: DepositStatusPending, to: DepositStatusSuccess, allowed: true},
		{name: "pending to cancel", from: DepositStatusPending, to: DepositStatusCancel, allowed: true},
		{name: "pending to expired", from: DepositStatusPending, to: DepositStatusExpired, allowed: true},
		{name: "success is sticky", from: DepositStatusSuccess, to: DepositStatusPending, allowed: false},
		{name: "success to cancel", from: DepositStatusSuccess, to: DepositStatusCancel, allowed: false},
		{name: "cancel is sticky", from: DepositStatusCancel, to: DepositStatusSuccess, allowed: false},
		{name: "expired is sticky", from: DepositStatusExpired, to: DepositStatusPending, allowed: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.allowed, tt.from.CanTransitionTo(tt.to))
			err := tt.from.ValidateTransition(tt.to)
			if tt.allowed {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestDepositStatusIsTerminal(t *testing.T) {
	assert.False(t, DepositStatusPending.IsTerminal())
	assert.True(t, DepositStatusSuccess.IsTerminal())
	assert.True(t, DepositStatusCancel.IsTerminal())
	assert.True(t, DepositStatusExpired.IsTerminal())
}

func TestValidateTransitionRejectsUnknownStatus(t *testing.T) {
	err := DepositStatusPending.ValidateTransition(DepositStatus("paid"))
	assert.Error(t, err)
}
