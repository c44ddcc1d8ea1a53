package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qrisgate-service/qrisgate_service/internal/domain/entities"
	"github.com/qrisgate-service/qrisgate_service/internal/domain/services/deposit"
	"github.com/qrisgate-service/qrisgate_service/internal/domain/services/fee"
	infrarepos "github.com/qrisgate-service/qrisgate_service/internal/infrastructure/repositories"
	"github.com/qrisgate-service/qrisgate_service/pkg/logger"
)

type stubGateway struct {
	statusFn func(ctx context.Context, depositID string) (*entities.Deposit, error)
}

func (g *stubGateway) ListMethods(ctx context.Context) ([]entities.PaymentMethod, error) {
	return []entities.PaymentMethod{{Code: "QRIS", Name: "QRIS", Type: "ewallet", Min: 1_000, Max: 10_000_000}}, nil
}

func (g *stubGateway) CreateDeposit(ctx context.Context, nominal int64, method entities.PaymentMethod) (*entities.Deposit, error) {
	return &entities.Deposit{
		ID:        "dep-1",
		Nominal:   nominal,
		Method:    method.Code,
		Status:    entities.DepositStatusPending,
		CreatedAt: time.Now(),
		ExpiresAt: time.Now().Add(time.Hour),
	}, nil
}

func (g *stubGateway) GetStatus(ctx context.Context, depositID string) (*entities.Deposit, error) {
	if g.statusFn != nil {
		return g.statusFn(ctx, depositID)
	}
	return &entities.Deposit{ID: depositID, Status: entities.DepositStatusPending}, nil
}

func (g *stubGateway) Cancel(ctx context.Context, depositID string) (*entities.Deposit, error) {
	return &entities.Deposit{ID: depositID, Status: entities.DepositStatusCancel}, nil
}

func setupRouter(t *testing.T) (*gin.Engine, *stubGateway) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	gw := &stubGateway{}
	calc, err := fee.NewCalculator(fee.Config{Mode: fee.ModeFlat, FlatPercent: "2"})
	require.NoError(t, err)

	svc := deposit.NewService(gw, infrarepos.NewMemoryLedger(), calc, deposit.Config{
		PollInterval:  time.Hour,
		CountdownTick: time.Hour,
		HistoryLimit:  10,
	}, logger.NewNop())
	t.Cleanup(svc.Dispose)

	h := NewDepositHandlers(svc, logger.NewNop())

	router := gin.New()
	router.GET("/methods", h.ListMethods)
	router.GET("/deposit", h.GetDeposit)
	router.POST("/deposit", h.CreateDeposit)
	router.GET("/deposit/quote", h.QuoteDeposit)
	router.POST("/deposit/check", h.CheckDeposit)
	router.POST("/deposit/cancel", h.CancelDeposit)
	router.POST("/deposit/reset", h.ResetDeposit)
	router.GET("/deposit/history", h.GetHistory)
	return router, gw
}

func doRequest(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestListMethodsEndpoint(t *testing.T) {
	router, _ := setupRouter(t)

	w := doRequest(router, http.MethodGet, "/methods", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "QRIS")
}

func TestGetDepositWithoutActiveDeposit(t *testing.T) {
	router, _ := setupRouter(t)

	w := doRequest(router, http.MethodGet, "/deposit", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "NOT_FOUND")
}

func TestCreateDepositEndpoint(t *testing.T) {
	router, _ := setupRouter(t)

	w := doRequest(router, http.MethodPost, "/deposit", `{"nominal": 50000, "method": "QRIS"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"state":"pending"`)
	assert.Contains(t, w.Body.String(), "dep-1")

	w = doRequest(router, http.MethodGet, "/deposit", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCreateDepositRejectsBadBody(t *testing.T) {
	router, _ := setupRouter(t)

	w := doRequest(router, http.MethodPost, "/deposit", `{"nominal": 50000}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "INVALID_REQUEST")
}

func TestCreateDepositRejectsOutOfBoundsAmount(t *testing.T) {
	router, _ := setupRouter(t)

	w := doRequest(router, http.MethodPost, "/deposit", `{"nominal": 5000, "method": "QRIS"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "VALIDATION_ERROR")
}

func TestQuoteEndpoint(t *testing.T) {
	router, _ := setupRouter(t)

	w := doRequest(router, http.MethodGet, "/deposit/quote?nominal=50000&method=QRIS", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"fee":1000`)
	assert.Contains(t, w.Body.String(), `"total":51000`)
}

func TestQuoteEndpointMissingNominal(t *testing.T) {
	router, _ := setupRouter(t)

	w := doRequest(router, http.MethodGet, "/deposit/quote", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestQuoteEndpointRejectsMalformedNominal(t *testing.T) {
	router, _ := setupRouter(t)

	// Trailing garbage must not parse as a number
	w := doRequest(router, http.MethodGet, "/deposit/quote?nominal=50000abc&method=QRIS", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "INVALID_REQUEST")
}

func TestCheckEndpointAppliesStatus(t *testing.T) {
	router, gw := setupRouter(t)

	w := doRequest(router, http.MethodPost, "/deposit", `{"nominal": 50000, "method": "QRIS"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	gw.statusFn = func(ctx context.Context, id string) (*entities.Deposit, error) {
		return &entities.Deposit{ID: id, Status: entities.DepositStatusSuccess}, nil
	}

	w = doRequest(router, http.MethodPost, "/deposit/check", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"state":"success"`)
}

func TestCheckEndpointWithoutDeposit(t *testing.T) {
	router, _ := setupRouter(t)

	w := doRequest(router, http.MethodPost, "/deposit/check", "")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestCancelEndpoint(t *testing.T) {
	router, _ := setupRouter(t)

	w := doRequest(router, http.MethodPost, "/deposit", `{"nominal": 50000, "method": "QRIS"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	w = doRequest(router, http.MethodPost, "/deposit/cancel", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"state":"cancelled"`)
}

func TestResetEndpoint(t *testing.T) {
	router, _ := setupRouter(t)

	w := doRequest(router, http.MethodPost, "/deposit", `{"nominal": 50000, "method": "QRIS"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	w = doRequest(router, http.MethodPost, "/deposit/reset", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"state":"idle"`)

	w = doRequest(router, http.MethodGet, "/deposit", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHistoryEndpoint(t *testing.T) {
	router, _ := setupRouter(t)

	w := doRequest(router, http.MethodGet, "/deposit/history", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"history":[]`)

	w = doRequest(router, http.MethodPost, "/deposit", `{"nominal": 50000, "method": "QRIS"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	w = doRequest(router, http.MethodGet, "/deposit/history", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "dep-1")
}
