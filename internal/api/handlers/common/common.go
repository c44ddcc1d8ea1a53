package common

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/qrisgate-service/qrisgate_service/internal/domain/entities"
	apperrors "github.com/qrisgate-service/qrisgate_service/pkg/errors"
)

// GetRequestID extracts request ID from context
func GetRequestID(c *gin.Context) string {
	if reqID, exists := c.Get("request_id"); exists {
		if id, ok := reqID.(string); ok {
			return id
		}
	}
	return ""
}

// RespondError sends a standardized error response
func RespondError(c *gin.Context, status int, code, message string, details map[string]interface{}) {
	c.JSON(status, entities.ErrorResponse{
		Code:    code,
		Message: message,
		Details: details,
	})
}

// RespondBadRequest sends a bad request error
func RespondBadRequest(c *gin.Context, message string, details ...map[string]interface{}) {
	var det map[string]interface{}
	if len(details) > 0 {
		det = details[0]
	}
	RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", message, det)
}

// RespondNotFound sends a not found error
func RespondNotFound(c *gin.Context, message string) {
	RespondError(c, http.StatusNotFound, "NOT_FOUND", message, nil)
}

// RespondInternalError sends an internal server error
func RespondInternalError(c *gin.Context, message string) {
	RespondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", message, nil)
}

// RespondSuccess sends a success response with data
func RespondSuccess(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, data)
}

// RespondCreated sends a created response with data
func RespondCreated(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, data)
}

// RespondServiceError maps a typed service error onto the matching HTTP
// status. Unrecognized errors surface as a generic 500 without leaking
// internals.
func RespondServiceError(c *gin.Context, err error) {
	switch {
	case apperrors.IsValidation(err):
		RespondError(c, http.StatusUnprocessableEntity, "VALIDATION_ERROR", err.Error(), nil)
	case apperrors.IsUpstream(err):
		RespondError(c, http.StatusBadGateway, "UPSTREAM_ERROR", err.Error(), nil)
	case apperrors.IsNetwork(err):
		RespondError(c, http.StatusServiceUnavailable, "NETWORK_ERROR", err.Error(), nil)
	case apperrors.IsStorage(err):
		RespondError(c, http.StatusInternalServerError, "STORAGE_ERROR", err.Error(), nil)
	default:
		RespondInternalError(c, "An unexpected error occurred")
	}
}

// ParseInt64Query parses a required int64 query parameter.
// Returns false if an error response was already sent.
func ParseInt64Query(c *gin.Context, param string) (int64, bool) {
	raw := c.Query(param)
	if raw == "" {
		RespondBadRequest(c, fmt.Sprintf("Missing %s parameter", param), nil)
		return 0, false
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		RespondBadRequest(c, fmt.Sprintf("Invalid %s parameter", param), map[string]interface{}{"value": raw})
		return 0, false
	}
	return v, true
}
