// Package handlers exposes the deposit lifecycle over HTTP.
package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/qrisgate-service/qrisgate_service/internal/api/handlers/common"
	"github.com/qrisgate-service/qrisgate_service/internal/domain/entities"
	"github.com/qrisgate-service/qrisgate_service/internal/domain/services/deposit"
	"github.com/qrisgate-service/qrisgate_service/pkg/logger"
)

// DepositHandlers serves the deposit lifecycle endpoints
type DepositHandlers struct {
	service *deposit.Service
	logger  *logger.Logger
}

// NewDepositHandlers creates the deposit handlers
func NewDepositHandlers(service *deposit.Service, log *logger.Logger) *DepositHandlers {
	return &DepositHandlers{service: service, logger: log}
}

// CreateDepositRequest is the body of POST /api/v1/deposit
type CreateDepositRequest struct {
	Nominal int64  `json:"nominal" binding:"required,gt=0"`
	Method  string `json:"method" binding:"required"`
}

// DepositStateResponse pairs the controller state with the active deposit
type DepositStateResponse struct {
	State   deposit.State     `json:"state"`
	Deposit *entities.Deposit `json:"deposit,omitempty"`
}

// ListMethods handles GET /api/v1/methods
func (h *DepositHandlers) ListMethods(c *gin.Context) {
	methods, err := h.service.Methods(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to list payment methods", "error", err, "request_id", common.GetRequestID(c))
		common.RespondServiceError(c, err)
		return
	}
	common.RespondSuccess(c, gin.H{"methods": methods})
}

// QuoteDeposit handles GET /api/v1/deposit/quote
func (h *DepositHandlers) QuoteDeposit(c *gin.Context) {
	nominal, ok := common.ParseInt64Query(c, "nominal")
	if !ok {
		return
	}

	quote, err := h.service.Quote(c.Request.Context(), nominal, c.Query("method"))
	if err != nil {
		common.RespondServiceError(c, err)
		return
	}
	common.RespondSuccess(c, quote)
}

// CreateDeposit handles POST /api/v1/deposit
func (h *DepositHandlers) CreateDeposit(c *gin.Context) {
	var req CreateDepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, "Invalid request: nominal and method are required", map[string]interface{}{"error": err.Error()})
		return
	}

	dep, err := h.service.Submit(c.Request.Context(), req.Nominal, req.Method)
	if err != nil {
		h.logger.Error("Failed to create deposit",
			"error", err,
			"nominal", req.Nominal,
			"method", req.Method,
			"request_id", common.GetRequestID(c))
		common.RespondServiceError(c, err)
		return
	}

	common.RespondCreated(c, DepositStateResponse{State: h.service.CurrentState(), Deposit: dep})
}

// GetDeposit handles GET /api/v1/deposit
func (h *DepositHandlers) GetDeposit(c *gin.Context) {
	dep := h.service.Current()
	if dep == nil {
		common.RespondNotFound(c, "No active deposit")
		return
	}
	common.RespondSuccess(c, DepositStateResponse{State: h.service.CurrentState(), Deposit: dep})
}

// CheckDeposit handles POST /api/v1/deposit/check
func (h *DepositHandlers) CheckDeposit(c *gin.Context) {
	dep, err := h.service.CheckNow(c.Request.Context())
	if err != nil {
		common.RespondServiceError(c, err)
		return
	}
	common.RespondSuccess(c, DepositStateResponse{State: h.service.CurrentState(), Deposit: dep})
}

// CancelDeposit handles POST /api/v1/deposit/cancel
func (h *DepositHandlers) CancelDeposit(c *gin.Context) {
	dep, err := h.service.Cancel(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to cancel deposit", "error", err, "request_id", common.GetRequestID(c))
		common.RespondServiceError(c, err)
		return
	}
	common.RespondSuccess(c, DepositStateResponse{State: h.service.CurrentState(), Deposit: dep})
}

// ResetDeposit handles POST /api/v1/deposit/reset
func (h *DepositHandlers) ResetDeposit(c *gin.Context) {
	h.service.Reset()
	common.RespondSuccess(c, DepositStateResponse{State: h.service.CurrentState()})
}

// GetHistory handles GET /api/v1/deposit/history
func (h *DepositHandlers) GetHistory(c *gin.Context) {
	entries, err := h.service.History(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to load deposit history", "error", err, "request_id", common.GetRequestID(c))
		common.RespondServiceError(c, err)
		return
	}
	if entries == nil {
		entries = []*entities.LedgerEntry{}
	}
	common.RespondSuccess(c, gin.H{"history": entries})
}

// StreamEvents handles GET /api/v1/deposit/events as a server-sent event
// stream. The controller emits to a single channel, so one consumer at a time
// sees the stream.
func (h *DepositHandlers) StreamEvents(c *gin.Context) {
	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	events := h.service.Events()
	ctx := c.Request.Context()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case ev, ok := <-events:
			if !ok {
				return false
			}
			payload, err := json.Marshal(ev)
			if err != nil {
				h.logger.Warn("Failed to encode lifecycle event", "error", err)
				return true
			}
			c.SSEvent(string(ev.Type), string(payload))
			return true
		}
	})
}

// Healthz handles GET /healthz
func (h *DepositHandlers) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
