package fee

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qrisgate-service/qrisgate_service/internal/domain/entities"
	apperrors "github.com/qrisgate-service/qrisgate_service/pkg/errors"
)

func newFlatCalculator(t *testing.T, percent string) *Calculator {
	t.Helper()
	calc, err := NewCalculator(Config{Mode: ModeFlat, FlatPercent: percent})
	require.NoError(t, err)
	return calc
}

func TestFlatQuote(t *testing.T) {
	calc := newFlatCalculator(t, "2")

	tests := []struct {
		name      string
		nominal   int64
		wantFee   int64
		wantTotal int64
		wantNet   int64
	}{
		{name: "round amount", nominal: 50_000, wantFee: 1_000, wantTotal: 51_000, wantNet: 50_000},
		{name: "minimum", nominal: 10_000, wantFee: 200, wantTotal: 10_200, wantNet: 10_000},
		{name: "maximum", nominal: 5_000_000, wantFee: 100_000, wantTotal: 5_100_000, wantNet: 5_000_000},
		{name: "rounds half up", nominal: 10_025, wantFee: 201, wantTotal: 10_226, wantNet: 10_025},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			quote, err := calc.Quote(tt.nominal, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.nominal, quote.Nominal)
			assert.Equal(t, tt.wantFee, quote.Fee)
			assert.Equal(t, tt.wantTotal, quote.Total)
			assert.Equal(t, tt.wantNet, quote.NetAmount)
		})
	}
}

func TestFlatQuoteBounds(t *testing.T) {
	calc := newFlatCalculator(t, "2")

	_, err := calc.Quote(9_999, nil)
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))

	_, err = calc.Quote(5_000_001, nil)
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}

func TestFlatQuoteCustomBounds(t *testing.T) {
	calc, err := NewCalculator(Config{Mode: ModeFlat, FlatPercent: "2", FlatMin: 25_000, FlatMax: 200_000})
	require.NoError(t, err)

	_, err = calc.Quote(24_999, nil)
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))

	_, err = calc.Quote(200_001, nil)
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))

	quote, err := calc.Quote(25_000, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(500), quote.Fee)

	quote, err = calc.Quote(200_000, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(4_000), quote.Fee)
}

func TestFlatQuoteZeroPercent(t *testing.T) {
	calc := newFlatCalculator(t, "0")

	quote, err := calc.Quote(50_000, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(0), quote.Fee)
	assert.Equal(t, int64(50_000), quote.Total)
}

func TestMethodQuote(t *testing.T) {
	calc, err := NewCalculator(Config{Mode: ModeMethod})
	require.NoError(t, err)

	method := &entities.PaymentMethod{
		Code:       "QRIS",
		Min:        1_000,
		Max:        10_000_000,
		FeeFixed:   100,
		FeePercent: "0.7",
	}

	quote, err := calc.Quote(50_000, method)
	require.NoError(t, err)
	// floor(50000 * 0.7%) + 100
	assert.Equal(t, int64(450), quote.Fee)
	assert.Equal(t, int64(50_000), quote.Total)
	assert.Equal(t, int64(49_550), quote.NetAmount)
}

func TestMethodQuoteFloorsPercentage(t *testing.T) {
	calc, err := NewCalculator(Config{Mode: ModeMethod})
	require.NoError(t, err)

	method := &entities.PaymentMethod{Code: "QRIS", Min: 1_000, FeePercent: "0.7"}

	quote, err := calc.Quote(10_001, method)
	require.NoError(t, err)
	// 10001 * 0.7% = 70.007, floored
	assert.Equal(t, int64(70), quote.Fee)
	assert.Equal(t, int64(9_931), quote.NetAmount)
}

func TestMethodQuoteRequiresMethod(t *testing.T) {
	calc, err := NewCalculator(Config{Mode: ModeMethod})
	require.NoError(t, err)

	_, err = calc.Quote(50_000, nil)
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}

func TestMethodQuoteBounds(t *testing.T) {
	calc, err := NewCalculator(Config{Mode: ModeMethod})
	require.NoError(t, err)

	method := &entities.PaymentMethod{Code: "QRIS", Min: 5_000, Max: 100_000}

	_, err = calc.Quote(4_999, method)
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))

	_, err = calc.Quote(100_001, method)
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}

func TestNewCalculatorRejectsBadConfig(t *testing.T) {
	_, err := NewCalculator(Config{Mode: "percentage"})
	assert.Error(t, err)

	_, err = NewCalculator(Config{Mode: ModeFlat, FlatPercent: "abc"})
	assert.Error(t, err)

	_, err = NewCalculator(Config{Mode: ModeFlat, FlatPercent: "-1"})
	assert.Error(t, err)
}
