package entities

import "time"

// PaymentMethod describes one entry of the gateway's method catalog.
// Immutable once fetched; refreshed wholesale from the catalog endpoint.
type PaymentMethod struct {
	Code       string `json:"code"`
	Name       string `json:"name"`
	Type       string `json:"type"`
	Min        int64  `json:"min"`
	Max        int64  `json:"max"`
	FeeFixed   int64  `json:"fee_fixed"`
	FeePercent string `json:"fee_percent"`
}

// Deposit is a single request to receive funds via a scannable payment code,
// tracked from creation to a terminal outcome. ID and the timestamps are
// server-assigned; LastCheckedAt is client-local.
type Deposit struct {
	ID                 string        `json:"id"`
	ReferenceID        string        `json:"reference_id"`
	Nominal            int64         `json:"nominal"`
	Fee                int64         `json:"fee"`
	NetAmount          int64         `json:"net_amount"`
	Method             string        `json:"method"`
	PaymentCodeImage   string        `json:"payment_code_image,omitempty"`
	PaymentCodePayload string        `json:"payment_code_payload,omitempty"`
	Status             DepositStatus `json:"status"`
	CreatedAt          time.Time     `json:"created_at"`
	ExpiresAt          time.Time     `json:"expires_at"`
	LastCheckedAt      time.Time     `json:"last_checked_at,omitempty"`
}

// LedgerEntry is the persisted projection of a Deposit. Created the instant a
// deposit is created, mutated only by status transitions, never deleted.
type LedgerEntry struct {
	ID             string        `json:"id"`
	Nominal        int64         `json:"nominal"`
	Fee            int64         `json:"fee"`
	NetAmount      int64         `json:"net_amount"`
	Method         string        `json:"method"`
	Status         DepositStatus `json:"status"`
	CreatedAt      time.Time     `json:"created_at"`
	ExpiresAt      time.Time     `json:"expires_at"`
	LocalCreatedAt time.Time     `json:"local_created_at"`
}

// LedgerEntryFromDeposit builds the persisted projection of a deposit.
func LedgerEntryFromDeposit(d *Deposit, now time.Time) *LedgerEntry {
	return &LedgerEntry{
		ID:             d.ID,
		Nominal:        d.Nominal,
		Fee:            d.Fee,
		NetAmount:      d.NetAmount,
		Method:         d.Method,
		Status:         d.Status,
		CreatedAt:      d.CreatedAt,
		ExpiresAt:      d.ExpiresAt,
		LocalCreatedAt: now,
	}
}

// ErrorResponse is the JSON error body returned by the HTTP layer
type ErrorResponse struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}
