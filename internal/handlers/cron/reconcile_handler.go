package cron

import (
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/kevin07696/collections-service/internal/services/ports"
	"github.com/kevin07696/collections-service/pkg/resilience"
	"go.uber.org/zap"
)

const (
	defaultBatchSize = 100
	maxBatchSize     = 1000
)

// ReconcileHandler handles cron endpoints for the pending-transaction sweep
type ReconcileHandler struct {
	recon      ports.ReconciliationService
	timeouts   *resilience.TimeoutConfig
	logger     *zap.Logger
	cronSecret string // Secret token for authenticating cron requests
}

// NewReconcileHandler creates a new reconcile cron handler
func NewReconcileHandler(
	recon ports.ReconciliationService,
	timeouts *resilience.TimeoutConfig,
	logger *zap.Logger,
	cronSecret string,
) *ReconcileHandler {
	return &ReconcileHandler{
		recon:      recon,
		timeouts:   timeouts,
		logger:     logger,
		cronSecret: cronSecret,
	}
}

// ReconcileRequest is the optional request body
type ReconcileRequest struct {
	BatchSize *int `json:"batch_size"` // defaults to 100
}

// ReconcileResponse represents the response from a sweep
type ReconcileResponse struct {
	Success     bool   `json:"success"`
	Checked     int    `json:"checked"`
	Approved    int    `json:"approved"`
	Rejected    int    `json:"rejected"`
	Expired     int    `json:"expired"`
	Errors      int    `json:"errors"`
	ProcessedAt string `json:"processed_at"`
}

// ReconcilePending handles the POST /cron/reconcile-pending endpoint.
// Partial failure answers 206.
func (h *ReconcileHandler) ReconcilePending(w http.ResponseWriter, r *http.Request) {
	h.logger.Info("reconcile cron job triggered",
		zap.String("remote_addr", r.RemoteAddr),
		zap.String("user_agent", r.UserAgent()),
	)

	if r.Method != http.MethodPost {
		h.respondError(w, http.StatusMethodNotAllowed, "only POST method is allowed")
		return
	}

	if !h.authenticateRequest(r) {
		h.logger.Warn("unauthorized cron request",
			zap.String("remote_addr", r.RemoteAddr),
		)
		h.respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req ReconcileRequest
	if r.Body != nil && r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
			return
		}
	}

	batchSize := defaultBatchSize
	if req.BatchSize != nil {
		if *req.BatchSize < 1 || *req.BatchSize > maxBatchSize {
			h.respondError(w, http.StatusBadRequest, fmt.Sprintf("batch_size must be between 1 and %d", maxBatchSize))
			return
		}
		batchSize = *req.BatchSize
	}

	ctx, cancel := h.timeouts.CronContext(r.Context())
	defer cancel()

	result, err := h.recon.ReconcilePending(ctx, int32(batchSize))
	if err != nil {
		h.logger.Error("reconcile sweep failed", zap.Error(err))
		h.respondError(w, http.StatusInternalServerError, "sweep failed")
		return
	}

	resp := ReconcileResponse{
		Success:     result.Errors == 0,
		Checked:     result.Checked,
		Approved:    result.Approved,
		Rejected:    result.Rejected,
		Expired:     result.Expired,
		Errors:      result.Errors,
		ProcessedAt: time.Now().UTC().Format(time.RFC3339),
	}

	status := http.StatusOK
	if !resp.Success {
		status = http.StatusPartialContent
	}
	h.respond(w, status, resp)
}

// authenticateRequest accepts the secret in X-Cron-Secret or as a bearer token
func (h *ReconcileHandler) authenticateRequest(r *http.Request) bool {
	if h.cronSecret == "" {
		return false
	}

	if secret := r.Header.Get("X-Cron-Secret"); secret != "" {
		return subtle.ConstantTimeCompare([]byte(secret), []byte(h.cronSecret)) == 1
	}

	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	return ok && subtle.ConstantTimeCompare([]byte(token), []byte(h.cronSecret)) == 1
}

// HealthCheck handles GET /cron/health for monitoring
func (h *ReconcileHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	h.respond(w, http.StatusOK, map[string]interface{}{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *ReconcileHandler) respondError(w http.ResponseWriter, statusCode int, message string) {
	h.respond(w, statusCode, map[string]interface{}{
		"success": false,
		"error":   message,
	})
}

func (h *ReconcileHandler) respond(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("failed to encode response", zap.Error(err))
	}
}
