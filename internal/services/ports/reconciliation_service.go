package ports

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/kevin07696/collections-service/internal/domain"
)

// IngestResult summarises one notification batch. Processed counts events
// handled without error, skipped ones included.
type IngestResult struct {
	Processed int `json:"processed"`
	Skipped   int `json:"skipped"`
	Errors    int `json:"errors"`
}

// SweepResult summarises one pass over open transactions
type SweepResult struct {
	Checked  int `json:"checked"`
	Approved int `json:"approved"`
	Rejected int `json:"rejected"`
	Expired  int `json:"expired"`
	Errors   int `json:"errors"`
}

// ReconciliationService brings local transaction state in line with the gateway
type ReconciliationService interface {
	PollStatus(ctx context.Context, id uuid.UUID) (*domain.Transaction, error)

	// IngestNotification applies a settlement notification. A returned error
	// means the batch could not be processed at all and should be redelivered.
	IngestNotification(ctx context.Context, payload []byte) (*IngestResult, error)

	ReconcilePending(ctx context.Context, limit int32) (*SweepResult, error)
}

// ErrInvalidNotification is returned when a notification body is not JSON at all
var ErrInvalidNotification = errors.New("notification payload is not valid JSON")
