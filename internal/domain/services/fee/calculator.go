// Package fee computes deposit fee quotes. The calculator is pure: same
// inputs, same quote, no side effects.
package fee

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/qrisgate-service/qrisgate_service/internal/domain/entities"
	apperrors "github.com/qrisgate-service/qrisgate_service/pkg/errors"
)

// Mode selects the fee model
type Mode string

const (
	// ModeFlat charges a single global percentage on top of the nominal.
	// The payer covers the fee; the credited amount equals the nominal.
	ModeFlat Mode = "flat"
	// ModeMethod deducts the per-method fee from the credited amount.
	ModeMethod Mode = "method"
)

// Flat-mode bounds, matching the gateway's global QRIS limits
const (
	DefaultFlatMin int64 = 10_000
	DefaultFlatMax int64 = 5_000_000
)

// Quote is a pre-submission fee estimate. Server-confirmed fee and balance
// override it once a create/status response has arrived.
type Quote struct {
	Nominal   int64 `json:"nominal"`
	Fee       int64 `json:"fee"`
	Total     int64 `json:"total"`
	NetAmount int64 `json:"net_amount"`
}

// Config holds calculator configuration
type Config struct {
	Mode Mode
	// FlatPercent is the global percentage for ModeFlat, e.g. "2" for 2%
	FlatPercent string
	FlatMin     int64
	FlatMax     int64
}

// Calculator computes fee quotes for deposit amounts
type Calculator struct {
	mode     Mode
	flatRate decimal.Decimal
	flatMin  int64
	flatMax  int64
}

// NewCalculator creates a calculator for the given config
func NewCalculator(cfg Config) (*Calculator, error) {
	switch cfg.Mode {
	case ModeFlat, ModeMethod:
	default:
		return nil, fmt.Errorf("unknown fee mode: %q", cfg.Mode)
	}

	rate := decimal.Zero
	if cfg.Mode == ModeFlat {
		parsed, err := decimal.NewFromString(cfg.FlatPercent)
		if err != nil {
			return nil, fmt.Errorf("invalid flat fee percent %q: %w", cfg.FlatPercent, err)
		}
		if parsed.IsNegative() {
			return nil, fmt.Errorf("flat fee percent must not be negative")
		}
		rate = parsed
	}

	flatMin, flatMax := cfg.FlatMin, cfg.FlatMax
	if flatMin == 0 {
		flatMin = DefaultFlatMin
	}
	if flatMax == 0 {
		flatMax = DefaultFlatMax
	}

	return &Calculator{mode: cfg.Mode, flatRate: rate, flatMin: flatMin, flatMax: flatMax}, nil
}

// Mode returns the configured fee mode
func (c *Calculator) Mode() Mode {
	return c.mode
}

// Quote computes the fee estimate for a nominal amount. In method mode the
// payment method supplies the bounds and fee schedule; in flat mode it is
// ignored and may be nil.
func (c *Calculator) Quote(nominal int64, method *entities.PaymentMethod) (*Quote, error) {
	if c.mode == ModeFlat {
		return c.quoteFlat(nominal)
	}
	if method == nil {
		return nil, apperrors.NewValidationError("payment method is required for per-method fees")
	}
	return c.quoteForMethod(nominal, *method)
}

func (c *Calculator) quoteFlat(nominal int64) (*Quote, error) {
	if nominal < c.flatMin {
		return nil, apperrors.NewValidationError("nominal %d is below the minimum of %d", nominal, c.flatMin)
	}
	if nominal > c.flatMax {
		return nil, apperrors.NewValidationError("nominal %d exceeds the maximum of %d", nominal, c.flatMax)
	}

	fee := decimal.NewFromInt(nominal).
		Mul(c.flatRate).
		Div(decimal.NewFromInt(100)).
		Round(0).
		IntPart()

	return &Quote{
		Nominal:   nominal,
		Fee:       fee,
		Total:     nominal + fee,
		NetAmount: nominal,
	}, nil
}

func (c *Calculator) quoteForMethod(nominal int64, method entities.PaymentMethod) (*Quote, error) {
	if nominal < method.Min {
		return nil, apperrors.NewValidationError("nominal %d is below the %s minimum of %d", nominal, method.Code, method.Min)
	}
	if method.Max > 0 && nominal > method.Max {
		return nil, apperrors.NewValidationError("nominal %d exceeds the %s maximum of %d", nominal, method.Code, method.Max)
	}

	percent := decimal.Zero
	if method.FeePercent != "" {
		parsed, err := decimal.NewFromString(method.FeePercent)
		if err != nil {
			return nil, apperrors.NewValidationError("method %s has malformed fee percent %q", method.Code, method.FeePercent)
		}
		percent = parsed
	}

	fee := decimal.NewFromInt(nominal).
		Mul(percent).
		Div(decimal.NewFromInt(100)).
		Floor().
		IntPart() + method.FeeFixed

	if fee < 0 {
		fee = 0
	}

	return &Quote{
		Nominal:   nominal,
		Fee:       fee,
		Total:     nominal,
		NetAmount: nominal - fee,
	}, nil
}
