package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentType is the collection channel of a transaction
type PaymentType string

const (
	PaymentTypeInstantTransfer PaymentType = "instant_transfer"
	PaymentTypeBankSlip        PaymentType = "bank_slip"
	PaymentTypeCard            PaymentType = "card"
)

// Valid reports whether t is a known payment type
func (t PaymentType) Valid() bool {
	switch t {
	case PaymentTypeInstantTransfer, PaymentTypeBankSlip, PaymentTypeCard:
		return true
	}
	return false
}

// TransactionStatus is the lifecycle state of a collection attempt
type TransactionStatus string

const (
	TransactionStatusPending    TransactionStatus = "pending"
	TransactionStatusApproved   TransactionStatus = "approved"
	TransactionStatusRejected   TransactionStatus = "rejected"
	TransactionStatusExpired    TransactionStatus = "expired"
	TransactionStatusProcessing TransactionStatus = "processing"
	TransactionStatusCancelled  TransactionStatus = "cancelled"
)

// Transaction is one attempt to collect an invoice through the gateway.
// Amount is frozen at creation.
type Transaction struct {
	CreatedAt   time.Time            `json:"created_at"`
	UpdatedAt   time.Time            `json:"updated_at"`
	ExpiresAt   time.Time            `json:"expires_at"`
	ApprovedAt  *time.Time           `json:"approved_at,omitempty"`
	CancelledAt *time.Time           `json:"cancelled_at,omitempty"`
	LastError   *string              `json:"last_error,omitempty"`
	RawResponse json.RawMessage      `json:"-"`
	Receipts    []*SettlementReceipt `json:"receipts,omitempty"` // loaded on read, never persisted
	Amount      decimal.Decimal      `json:"amount"`
	PaymentType PaymentType          `json:"payment_type"`
	Status      TransactionStatus    `json:"status"`
	ExternalID  string               `json:"external_id"`
	PaymentCode string               `json:"payment_code,omitempty"` // copy-paste code, digitable line or checkout URL
	PaymentURL  string               `json:"payment_url,omitempty"`
	Description string               `json:"description,omitempty"`
	InvoiceID   int64                `json:"invoice_id"`
	ID          uuid.UUID            `json:"id"`
}

// IsActive returns true while the attempt can still be paid and must be
// reused instead of creating a new one
func (t *Transaction) IsActive(now time.Time) bool {
	return t.Status == TransactionStatusPending && t.ExpiresAt.After(now)
}

// IsStale returns true for a pending attempt whose deadline has passed
func (t *Transaction) IsStale(now time.Time) bool {
	return t.Status == TransactionStatusPending && !t.ExpiresAt.After(now)
}

// IsFinal returns true when no gateway state can change the record any more.
// Expired is deliberately absent: a late settlement may still approve it.
func (t *Transaction) IsFinal() bool {
	switch t.Status {
	case TransactionStatusApproved, TransactionStatusRejected, TransactionStatusCancelled:
		return true
	}
	return false
}

// Expire moves a stale pending attempt to expired
func (t *Transaction) Expire(now time.Time) error {
	if t.Status != TransactionStatusPending {
		return ErrTxnInvalidState.WithDetail("status", t.Status)
	}
	t.Status = TransactionStatusExpired
	t.UpdatedAt = now
	return nil
}

// Approve records confirmed settlement. Money received wins over any local
// state, so this succeeds from every status. Reports whether anything changed;
// ApprovedAt is only set on the first approval.
func (t *Transaction) Approve(now time.Time) bool {
	if t.Status == TransactionStatusApproved {
		return false
	}
	t.Status = TransactionStatusApproved
	t.ApprovedAt = &now
	t.UpdatedAt = now
	return true
}

// Reject records payer-initiated removal at the gateway
func (t *Transaction) Reject(now time.Time) error {
	if t.Status != TransactionStatusPending && t.Status != TransactionStatusProcessing {
		return ErrTxnInvalidState.WithDetail("status", t.Status)
	}
	t.Status = TransactionStatusRejected
	t.UpdatedAt = now
	return nil
}

// MarkProcessing records an intermediate card authorization step
func (t *Transaction) MarkProcessing(now time.Time) error {
	if t.Status != TransactionStatusPending {
		return ErrTxnInvalidState.WithDetail("status", t.Status)
	}
	t.Status = TransactionStatusProcessing
	t.UpdatedAt = now
	return nil
}

// Cancel records an operator cancellation
func (t *Transaction) Cancel(now time.Time) error {
	if t.Status != TransactionStatusPending && t.Status != TransactionStatusProcessing {
		return ErrTxnInvalidState.WithDetail("status", t.Status)
	}
	t.Status = TransactionStatusCancelled
	t.CancelledAt = &now
	t.UpdatedAt = now
	return nil
}

// RecordError keeps the last processing failure for audit
func (t *Transaction) RecordError(msg string) {
	t.LastError = &msg
}
