package ports

import (
	"context"

	"github.com/google/uuid"
	"github.com/kevin07696/collections-service/internal/domain"
)

// InvoiceRepository is the invoice store owned by billing. Writes re-evaluate
// the pending/overdue status before persisting.
type InvoiceRepository interface {
	GetByID(ctx context.Context, db DBTX, id int64) (*domain.Invoice, error)

	// GetByIDForUpdate locks the invoice row for the rest of tx
	GetByIDForUpdate(ctx context.Context, tx DBTX, id int64) (*domain.Invoice, error)

	// Save persists status, amount and notes
	Save(ctx context.Context, tx DBTX, invoice *domain.Invoice) error
}

// PayerRepository reads payer identity owned by enrollment
type PayerRepository interface {
	GetByID(ctx context.Context, db DBTX, id int64) (*domain.Payer, error)
}

// TransactionRepository persists collection attempts
type TransactionRepository interface {
	Create(ctx context.Context, tx DBTX, txn *domain.Transaction) error

	GetByID(ctx context.Context, db DBTX, id uuid.UUID) (*domain.Transaction, error)

	// GetByIDForUpdate locks the transaction row for the rest of tx
	GetByIDForUpdate(ctx context.Context, tx DBTX, id uuid.UUID) (*domain.Transaction, error)

	// GetByExternalIDForUpdate finds the transaction a gateway charge id belongs to and locks it
	GetByExternalIDForUpdate(ctx context.Context, tx DBTX, externalID string) (*domain.Transaction, error)

	// FindLatestPending returns the newest pending attempt for the pair, or
	// domain.ErrTxnNotFound when there is none
	FindLatestPending(ctx context.Context, db DBTX, invoiceID int64, paymentType domain.PaymentType) (*domain.Transaction, error)

	// Update persists status, timestamps, payment details and the last error
	Update(ctx context.Context, tx DBTX, txn *domain.Transaction) error

	// ListOpen lists pending and processing attempts, oldest first
	ListOpen(ctx context.Context, db DBTX, limit int32) ([]*domain.Transaction, error)

	// LockCharge serialises charge creation for an (invoice, payment type)
	// pair until tx ends
	LockCharge(ctx context.Context, tx DBTX, invoiceID int64, paymentType domain.PaymentType) error
}

// ReceiptRepository persists settlement receipts, unique by end-to-end id
type ReceiptRepository interface {
	// Upsert inserts the receipt or refreshes the stored one with the same
	// end-to-end id. Reports whether a new row was created.
	Upsert(ctx context.Context, tx DBTX, receipt *domain.SettlementReceipt) (bool, error)

	ListByTransaction(ctx context.Context, db DBTX, transactionID uuid.UUID) ([]*domain.SettlementReceipt, error)
}
