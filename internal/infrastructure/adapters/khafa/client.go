// Package khafa implements the client for the upstream H2H payment gateway.
// It translates core-level calls into the gateway's request/response contract
// and normalizes responses into domain entities. It never touches local state;
// the deposit controller alone applies results to the ledger.
package khafa

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/qrisgate-service/qrisgate_service/internal/domain/entities"
	"github.com/qrisgate-service/qrisgate_service/pkg/circuitbreaker"
	apperrors "github.com/qrisgate-service/qrisgate_service/pkg/errors"
	"github.com/qrisgate-service/qrisgate_service/pkg/metrics"
)

const maxResponseBytes = 1 << 20 // 1MB

// Config holds gateway client configuration
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Client talks to the upstream payment gateway
type Client struct {
	cfg        Config
	httpClient *http.Client
	breaker    *circuitbreaker.CircuitBreaker
	logger     *zap.Logger
}

// NewClient creates a new gateway client
func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("gateway base URL is required")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("gateway api key is required")
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}

	breakerCfg := circuitbreaker.DefaultConfig()
	breakerCfg.OnStateChange = func(from, to string) {
		logger.Warn("Gateway circuit breaker state changed",
			zap.String("from", from),
			zap.String("to", to))
	}

	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		breaker:    circuitbreaker.New("khafa-gateway", breakerCfg),
		logger:     logger,
	}, nil
}

// ListMethods fetches the method catalog and filters it to entries usable for
// the scannable-code flow (ewallet entries whose code contains QRIS).
func (c *Client) ListMethods(ctx context.Context) ([]entities.PaymentMethod, error) {
	var resp methodsResponse
	if err := c.doGet(ctx, endpointMethods, nil, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, apperrors.NewUpstreamError(http.StatusOK, endpointMethods, resp.Message)
	}

	var methods []entities.PaymentMethod
	for _, m := range resp.Metode {
		if m.Type == "ewallet" && strings.Contains(m.Metode, "QRIS") {
			methods = append(methods, m.toEntity())
		}
	}
	return methods, nil
}

// CreateDeposit creates a deposit for the given nominal and method. The
// bounds check runs before any network call as a fast-fail.
func (c *Client) CreateDeposit(ctx context.Context, nominal int64, method entities.PaymentMethod) (*entities.Deposit, error) {
	if nominal < method.Min {
		return nil, apperrors.NewValidationError("nominal %d is below the %s minimum of %d", nominal, method.Code, method.Min)
	}
	if method.Max > 0 && nominal > method.Max {
		return nil, apperrors.NewValidationError("nominal %d exceeds the %s maximum of %d", nominal, method.Code, method.Max)
	}

	query := url.Values{}
	query.Set("nominal", strconv.FormatInt(nominal, 10))
	query.Set("metode", method.Code)

	var resp createResponse
	if err := c.doGet(ctx, endpointCreate, query, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, apperrors.NewUpstreamError(http.StatusOK, endpointCreate, resp.Message)
	}

	d := resp.Data
	return &entities.Deposit{
		ID:                 d.ID,
		ReferenceID:        d.ReffID,
		Nominal:            d.Nominal,
		Fee:                d.Fee,
		NetAmount:          d.GetBalance,
		Method:             method.Code,
		PaymentCodeImage:   d.QRImage,
		PaymentCodePayload: d.QRString,
		Status:             normalizeStatus(d.Status),
		CreatedAt:          parseTime(d.CreatedAt),
		ExpiresAt:          parseTime(d.ExpiredAt),
	}, nil
}

// GetStatus fetches the current status and amounts of a deposit. The returned
// deposit carries only the fields the status endpoint reports; callers merge
// it into their stored record.
func (c *Client) GetStatus(ctx context.Context, depositID string) (*entities.Deposit, error) {
	query := url.Values{}
	query.Set("id", depositID)

	var resp statusResponse
	if err := c.doGet(ctx, endpointStatus, query, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, apperrors.NewUpstreamError(http.StatusOK, endpointStatus, resp.Message)
	}

	d := resp.Data
	return &entities.Deposit{
		ID:        d.ID,
		Nominal:   d.Nominal,
		Fee:       d.Fee,
		NetAmount: d.GetBalance,
		Method:    d.Metode,
		Status:    normalizeStatus(d.Status),
		CreatedAt: parseTime(d.CreatedAt),
	}, nil
}

// Cancel cancels a deposit. Cancelling an already-terminal deposit does not
// raise: when the gateway refuses, the current status is fetched and returned
// unchanged if it turns out to be terminal.
func (c *Client) Cancel(ctx context.Context, depositID string) (*entities.Deposit, error) {
	query := url.Values{}
	query.Set("id", depositID)

	var resp cancelResponse
	if err := c.doGet(ctx, endpointCancel, query, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		current, statusErr := c.GetStatus(ctx, depositID)
		if statusErr == nil && current.Status.IsTerminal() {
			return current, nil
		}
		return nil, apperrors.NewUpstreamError(http.StatusOK, endpointCancel, resp.Message)
	}

	d := resp.Data
	return &entities.Deposit{
		ID:        d.ID,
		Status:    normalizeStatus(d.Status),
		CreatedAt: parseTime(d.CreatedAt),
	}, nil
}

// doGet performs an authenticated GET and decodes the JSON body into out.
// Transport failures surface as NetworkError, non-2xx as UpstreamError.
func (c *Client) doGet(ctx context.Context, endpoint string, query url.Values, out interface{}) error {
	reqURL := strings.TrimRight(c.cfg.BaseURL, "/") + endpoint
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	start := time.Now()
	outcome := "ok"
	defer func() {
		metrics.GatewayRequestDuration.WithLabelValues(endpoint, outcome).Observe(time.Since(start).Seconds())
	}()

	var body []byte
	var statusCode int

	err := c.breaker.Execute(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return fmt.Errorf("failed to build request: %w", err)
		}
		req.Header.Set("X-APIKEY", c.cfg.APIKey)
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return apperrors.NewNetworkError(endpoint, err)
		}
		defer resp.Body.Close()

		statusCode = resp.StatusCode
		body, err = io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
		if err != nil {
			return apperrors.NewNetworkError(endpoint, err)
		}

		if statusCode < 200 || statusCode >= 300 {
			var eb errorBody
			_ = json.Unmarshal(body, &eb)
			return apperrors.NewUpstreamError(statusCode, endpoint, eb.Message)
		}
		return nil
	})
	if err != nil {
		outcome = "error"
		if err == circuitbreaker.ErrOpen {
			err = apperrors.NewNetworkError(endpoint, err)
		}
		c.logger.Warn("Gateway request failed",
			zap.String("endpoint", endpoint),
			zap.Int("status_code", statusCode),
			zap.Error(err))
		return err
	}

	if err := json.Unmarshal(body, out); err != nil {
		outcome = "error"
		c.logger.Warn("Gateway returned malformed body",
			zap.String("endpoint", endpoint),
			zap.Error(err))
		return apperrors.NewUpstreamError(statusCode, endpoint, "malformed response body")
	}
	return nil
}
