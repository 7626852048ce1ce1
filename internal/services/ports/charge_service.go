package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/kevin07696/collections-service/internal/domain"
)

// ChargeService creates and manages collection attempts for invoices.
// Creation is idempotent per (invoice, payment type) while the latest
// attempt is still payable.
type ChargeService interface {
	CreateInstantTransferCharge(ctx context.Context, invoiceID int64) (*domain.Transaction, error)
	CreateBankSlip(ctx context.Context, invoiceID int64) (*domain.Transaction, error)
	CreateCardCheckout(ctx context.Context, invoiceID int64) (*domain.Transaction, error)

	// CancelTransaction cancels a pending bank slip or checkout at the gateway
	CancelTransaction(ctx context.Context, id uuid.UUID) (*domain.Transaction, error)

	GetTransaction(ctx context.Context, id uuid.UUID) (*domain.Transaction, error)
	GetBankSlipPDF(ctx context.Context, id uuid.UUID) ([]byte, error)

	// AmountDue prices an invoice as of a calendar date; a zero asOf means today
	AmountDue(ctx context.Context, invoiceID int64, asOf time.Time) (*AmountDueResult, error)
}

// AmountDueResult is an invoice priced on a given date
type AmountDueResult struct {
	InvoiceID int64            `json:"invoice_id"`
	AsOf      string           `json:"as_of"`
	DueDate   string           `json:"due_date"`
	Base      string           `json:"base"`
	Status    string           `json:"status"`
	Breakdown domain.AmountDue `json:"breakdown"`
}
