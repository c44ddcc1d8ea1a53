package khafa

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/qrisgate-service/qrisgate_service/internal/domain/entities"
)

// Upstream endpoint paths
const (
	endpointMethods = "/deposit/metode"
	endpointCreate  = "/h2h/deposit/create"
	endpointStatus  = "/h2h/deposit/status"
	endpointCancel  = "/h2h/deposit/cancel"
)

// methodsResponse is the body of GET /deposit/metode
type methodsResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Metode  []methodPayload `json:"metode"`
}

type methodPayload struct {
	Type      string      `json:"type"`
	Metode    string      `json:"metode"`
	Name      string      `json:"name"`
	Min       int64       `json:"min"`
	Max       int64       `json:"max"`
	Fee       int64       `json:"fee"`
	FeePersen json.Number `json:"fee_persen"`
}

func (p methodPayload) toEntity() entities.PaymentMethod {
	return entities.PaymentMethod{
		Code:       p.Metode,
		Name:       p.Name,
		Type:       p.Type,
		Min:        p.Min,
		Max:        p.Max,
		FeeFixed:   p.Fee,
		FeePercent: p.FeePersen.String(),
	}
}

// createResponse is the body of GET /h2h/deposit/create
type createResponse struct {
	Success bool          `json:"success"`
	Message string        `json:"message"`
	Data    createPayload `json:"data"`
}

type createPayload struct {
	ID         string `json:"id"`
	ReffID     string `json:"reff_id"`
	Nominal    int64  `json:"nominal"`
	Fee        int64  `json:"fee"`
	GetBalance int64  `json:"get_balance"`
	QRString   string `json:"qr_string"`
	QRImage    string `json:"qr_image"`
	Status     string `json:"status"`
	CreatedAt  string `json:"created_at"`
	ExpiredAt  string `json:"expired_at"`
}

// statusResponse is the body of GET /h2h/deposit/status
type statusResponse struct {
	Success bool          `json:"success"`
	Message string        `json:"message"`
	Data    statusPayload `json:"data"`
}

type statusPayload struct {
	ID         string `json:"id"`
	Nominal    int64  `json:"nominal"`
	Fee        int64  `json:"fee"`
	GetBalance int64  `json:"get_balance"`
	Metode     string `json:"metode"`
	Status     string `json:"status"`
	CreatedAt  string `json:"created_at"`
}

// cancelResponse is the body of GET /h2h/deposit/cancel
type cancelResponse struct {
	Success bool          `json:"success"`
	Message string        `json:"message"`
	Data    cancelPayload `json:"data"`
}

type cancelPayload struct {
	ID        string `json:"id"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at"`
}

// errorBody is the shape attempted on non-2xx responses
type errorBody struct {
	Message string `json:"message"`
}

// normalizeStatus maps the gateway's status strings onto the four statuses the
// lifecycle understands. Anything unrecognized is treated as still pending.
func normalizeStatus(s string) entities.DepositStatus {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "success", "paid":
		return entities.DepositStatusSuccess
	case "cancel", "canceled", "cancelled":
		return entities.DepositStatusCancel
	case "expired", "expire":
		return entities.DepositStatusExpired
	default:
		return entities.DepositStatusPending
	}
}

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// parseTime parses the gateway's loosely formatted timestamps. Returns the
// zero time when nothing matches; callers treat that as "unknown".
func parseTime(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
