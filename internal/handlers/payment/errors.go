package payment

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/kevin07696/collections-service/internal/domain"
	pkgerrors "github.com/kevin07696/collections-service/pkg/errors"
	"go.uber.org/zap"
)

// ErrorResponse is the JSON body of every failed API call
type ErrorResponse struct {
	Error         string `json:"error"`
	Message       string `json:"message"`
	Field         string `json:"field,omitempty"`
	GatewayStatus int    `json:"gateway_status,omitempty"`
	Detail        string `json:"detail,omitempty"`
	CorrelationID string `json:"correlation_id,omitempty"`
}

// statusForGatewayKind maps gateway failures onto our own API. A request the
// gateway will never accept as sent is a 4xx. Credential and permission
// problems are ours, not the caller's, so they surface as 502.
func statusForGatewayKind(kind pkgerrors.Kind) int {
	switch kind {
	case pkgerrors.KindInvalidRequest, pkgerrors.KindUnprocessable, pkgerrors.KindNotSupported:
		return http.StatusUnprocessableEntity
	case pkgerrors.KindNotFound:
		return http.StatusNotFound
	case pkgerrors.KindRateLimited:
		return http.StatusTooManyRequests
	case pkgerrors.KindNetwork:
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

func statusForDomainCode(code domain.ErrorCode) int {
	switch code {
	case domain.ErrorCodeInvoiceNotFound, domain.ErrorCodePayerNotFound, domain.ErrorCodeTxnNotFound:
		return http.StatusNotFound
	case domain.ErrorCodeTxnInvalidState, domain.ErrorCodeIdempotencyConflict, domain.ErrorCodeInvoicePaid:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeError maps a service error to a status code and JSON body
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		status int
		body   ErrorResponse
	)

	var vErr *pkgerrors.ValidationError
	var dErr *domain.DomainError

	if gwErr, ok := pkgerrors.AsGatewayError(err); ok {
		status = statusForGatewayKind(gwErr.Kind)
		body = ErrorResponse{
			Error:         "gateway_" + string(gwErr.Kind),
			Message:       gwErr.Title,
			GatewayStatus: gwErr.Status,
			Detail:        gwErr.Detail,
			CorrelationID: gwErr.CorrelationID,
		}
	} else if errors.As(err, &vErr) {
		status = http.StatusBadRequest
		body = ErrorResponse{Error: "validation_error", Message: vErr.Message, Field: vErr.Field}
	} else if errors.As(err, &dErr) && dErr.Code != domain.ErrorCodeDatabaseError && dErr.Code != domain.ErrorCodeInternalError {
		status = statusForDomainCode(dErr.Code)
		body = ErrorResponse{Error: string(dErr.Code), Message: dErr.Message}
	} else if errors.Is(err, context.DeadlineExceeded) {
		status = http.StatusGatewayTimeout
		body = ErrorResponse{Error: "timeout", Message: "request timed out"}
	} else {
		status = http.StatusInternalServerError
		body = ErrorResponse{Error: "internal_error", Message: "internal server error"}
	}

	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", status),
			zap.String("correlation_id", body.CorrelationID),
			zap.Error(err),
		)
	} else {
		h.logger.Info("request rejected",
			zap.String("path", r.URL.Path),
			zap.Int("status", status),
			zap.String("error", body.Error),
		)
	}

	writeJSON(w, status, body, h.logger)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}, logger *zap.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("failed to encode response", zap.Error(err))
	}
}
