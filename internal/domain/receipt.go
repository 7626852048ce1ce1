package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SettlementReceipt records one transfer actually received, as reported by a
// gateway notification. EndToEndID is unique per money movement.
type SettlementReceipt struct {
	PaidAt        time.Time       `json:"paid_at"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	RawPayload    json.RawMessage `json:"-"`
	Amount        decimal.Decimal `json:"amount"`
	EndToEndID    string          `json:"end_to_end_id"`
	ExternalID    string          `json:"external_id"`
	PayerInfo     string          `json:"payer_info,omitempty"`
	ID            uuid.UUID       `json:"id"`
	TransactionID uuid.UUID       `json:"transaction_id"`
}
