package webhook

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/kevin07696/collections-service/internal/services/ports"
	"github.com/kevin07696/collections-service/pkg/resilience"
	"go.uber.org/zap"
)

// maxNotificationBytes caps one delivery
const maxNotificationBytes = 1 << 20

// NotificationHandler receives settlement notifications pushed by the gateway
type NotificationHandler struct {
	recon    ports.ReconciliationService
	timeouts *resilience.TimeoutConfig
	logger   *zap.Logger
}

// NewNotificationHandler creates a new webhook handler
func NewNotificationHandler(recon ports.ReconciliationService, timeouts *resilience.TimeoutConfig, logger *zap.Logger) *NotificationHandler {
	return &NotificationHandler{
		recon:    recon,
		timeouts: timeouts,
		logger:   logger,
	}
}

// NotificationResponse summarises one delivery
type NotificationResponse struct {
	Processed int    `json:"processed"`
	Skipped   int    `json:"skipped"`
	Errors    int    `json:"errors"`
	Error     string `json:"error,omitempty"`
}

// HandleNotification handles POST /webhooks/c6bank/pix.
// Malformed events inside a batch still answer 200. Only a failure to apply
// the batch answers 503, which makes the gateway redeliver.
func (h *NotificationHandler) HandleNotification(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		h.respond(w, http.StatusMethodNotAllowed, NotificationResponse{Error: "only POST method is allowed"})
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxNotificationBytes))
	if err != nil {
		h.logger.Warn("failed to read notification body", zap.Error(err))
		h.respond(w, http.StatusBadRequest, NotificationResponse{Error: "unreadable body"})
		return
	}

	ctx, cancel := h.timeouts.NotificationContext(r.Context())
	defer cancel()

	result, err := h.recon.IngestNotification(ctx, body)
	switch {
	case errors.Is(err, ports.ErrInvalidNotification):
		h.logger.Warn("notification rejected",
			zap.Int("bytes", len(body)),
			zap.Error(err),
		)
		h.respond(w, http.StatusBadRequest, NotificationResponse{Error: "body is not valid JSON"})
	case err != nil:
		h.logger.Error("notification processing failed",
			zap.Int("bytes", len(body)),
			zap.Error(err),
		)
		h.respond(w, http.StatusServiceUnavailable, NotificationResponse{Error: "temporarily unable to process notification"})
	default:
		h.respond(w, http.StatusOK, NotificationResponse{
			Processed: result.Processed,
			Skipped:   result.Skipped,
			Errors:    result.Errors,
		})
	}
}

func (h *NotificationHandler) respond(w http.ResponseWriter, status int, resp NotificationResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error("failed to encode response", zap.Error(err))
	}
}
