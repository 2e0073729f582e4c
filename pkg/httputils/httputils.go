package httputils

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/IgorGrieder/link-registry/internal/constants"
	"github.com/IgorGrieder/link-registry/internal/infrastructure/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	CorrelationIDHeader = "X-Correlation-Id"

	maxBodyBytes = 1 << 20
)

// APIResponse wraps all API responses with metadata
type APIResponse struct {
	ResponseTime  time.Time `json:"responseTime" example:"2024-01-15T10:30:00Z"`
	CorrelationId string    `json:"correlationId" example:"550e8400-e29b-41d4-a716-446655440000"`
	Code          string    `json:"code,omitempty" example:"LINK_ISSUED"`
	Data          any       `json:"data,omitempty"`
	Error         string    `json:"error,omitempty" example:"INVALID_URL"`
	Message       string    `json:"message,omitempty" example:"url must not be blank"`
}

type SuccessResponse struct {
	Data any `json:"data"`
}

// GetCorrelationID extracts the correlation ID from the request header
// If not present, generates a new UUID v4
func GetCorrelationID(r *http.Request) string {
	correlationID := r.Header.Get(CorrelationIDHeader)
	if correlationID == "" {
		correlationID = uuid.New().String()
	}
	return correlationID
}

// DecodeJSON reads a single JSON document of at most 1 MiB into dst.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// WriteAPIError writes an error response with metadata using a predefined APIError
func WriteAPIError(w http.ResponseWriter, r *http.Request, apiErr constants.APIError) {
	writeEnvelope(w, r, apiErr.Status, APIResponse{
		Error:   apiErr.Code,
		Message: apiErr.Message,
	})
}

// WriteAPISuccess writes a success response with metadata using a predefined APISuccess
func WriteAPISuccess(w http.ResponseWriter, r *http.Request, apiSuccess constants.APISuccess, data any) {
	writeEnvelope(w, r, apiSuccess.Status, APIResponse{
		Code: apiSuccess.Code,
		Data: data,
	})
}

func RespondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(SuccessResponse{Data: data}); err != nil {
		logger.Error("failed to encode json response", zap.Error(err))
	}
}

func writeEnvelope(w http.ResponseWriter, r *http.Request, status int, response APIResponse) {
	correlationID := GetCorrelationID(r)

	w.Header().Set(CorrelationIDHeader, correlationID)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	response.ResponseTime = time.Now().UTC()
	response.CorrelationId = correlationID

	if err := json.NewEncoder(w).Encode(response); err != nil {
		logger.Error("failed to encode api response", zap.Error(err))
	}
}
