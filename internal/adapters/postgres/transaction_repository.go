package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kevin07696/collections-service/internal/domain"
	"github.com/kevin07696/collections-service/internal/domain/ports"
)

const transactionColumns = `id, invoice_id, payment_type, amount, status, external_id,
	payment_code, payment_url, description, raw_response, last_error,
	expires_at, approved_at, cancelled_at, created_at, updated_at`

// TransactionRepository implements ports.TransactionRepository
type TransactionRepository struct {
	pool *pgxpool.Pool
}

// NewTransactionRepository creates a new transaction repository
func NewTransactionRepository(db ports.DBPort) *TransactionRepository {
	return &TransactionRepository{pool: db.GetDB()}
}

// Create inserts a new attempt. A second pending attempt for the same
// invoice and payment type violates uq_transactions_one_pending and is
// reported as domain.ErrIdempotencyConflict.
func (r *TransactionRepository) Create(ctx context.Context, tx ports.DBTX, txn *domain.Transaction) error {
	if txn.ID == uuid.Nil {
		txn.ID = uuid.New()
	}

	amount, err := decimalToPgNumeric(txn.Amount)
	if err != nil {
		return domain.WrapError(domain.ErrorCodeDatabaseError, "create transaction", err)
	}

	err = conn(r.pool, tx).QueryRow(ctx, `
		INSERT INTO transactions (
			id, invoice_id, payment_type, amount, status, external_id,
			payment_code, payment_url, description, raw_response, last_error,
			expires_at, approved_at, cancelled_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING created_at, updated_at`,
		txn.ID, txn.InvoiceID, string(txn.PaymentType), amount, string(txn.Status),
		nullText(txn.ExternalID), nullText(txn.PaymentCode), nullText(txn.PaymentURL),
		txn.Description, nullJSON(txn.RawResponse), nullTextPtr(txn.LastError),
		txn.ExpiresAt, txn.ApprovedAt, txn.CancelledAt,
	).Scan(&txn.CreatedAt, &txn.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrIdempotencyConflict.WithDetail("invoice_id", txn.InvoiceID)
		}
		return domain.WrapError(domain.ErrorCodeDatabaseError, "create transaction", err)
	}
	return nil
}

// GetByID loads a transaction
func (r *TransactionRepository) GetByID(ctx context.Context, db ports.DBTX, id uuid.UUID) (*domain.Transaction, error) {
	row := conn(r.pool, db).QueryRow(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = $1`, id)
	return scanTransaction(row)
}

// GetByIDForUpdate loads and locks a transaction row
func (r *TransactionRepository) GetByIDForUpdate(ctx context.Context, tx ports.DBTX, id uuid.UUID) (*domain.Transaction, error) {
	row := conn(r.pool, tx).QueryRow(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = $1 FOR UPDATE`, id)
	return scanTransaction(row)
}

// GetByExternalIDForUpdate finds the newest attempt carrying a gateway charge id
func (r *TransactionRepository) GetByExternalIDForUpdate(ctx context.Context, tx ports.DBTX, externalID string) (*domain.Transaction, error) {
	row := conn(r.pool, tx).QueryRow(ctx, `
		SELECT `+transactionColumns+` FROM transactions
		WHERE external_id = $1
		ORDER BY created_at DESC
		LIMIT 1
		FOR UPDATE`, externalID)
	return scanTransaction(row)
}

// FindLatestPending returns the newest pending attempt for the pair
func (r *TransactionRepository) FindLatestPending(ctx context.Context, db ports.DBTX, invoiceID int64, paymentType domain.PaymentType) (*domain.Transaction, error) {
	row := conn(r.pool, db).QueryRow(ctx, `
		SELECT `+transactionColumns+` FROM transactions
		WHERE invoice_id = $1 AND payment_type = $2 AND status = 'pending'
		ORDER BY created_at DESC
		LIMIT 1`, invoiceID, string(paymentType))
	return scanTransaction(row)
}

// Update persists the mutable fields of an attempt
func (r *TransactionRepository) Update(ctx context.Context, tx ports.DBTX, txn *domain.Transaction) error {
	err := conn(r.pool, tx).QueryRow(ctx, `
		UPDATE transactions SET
			status = $2,
			external_id = $3,
			payment_code = $4,
			payment_url = $5,
			raw_response = COALESCE($6, raw_response),
			last_error = $7,
			approved_at = $8,
			cancelled_at = $9,
			updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`,
		txn.ID, string(txn.Status), nullText(txn.ExternalID), nullText(txn.PaymentCode),
		nullText(txn.PaymentURL), nullJSON(txn.RawResponse), nullTextPtr(txn.LastError),
		txn.ApprovedAt, txn.CancelledAt,
	).Scan(&txn.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrIdempotencyConflict.WithDetail("transaction_id", txn.ID)
		}
		return classify(err, domain.ErrTxnNotFound, "update transaction")
	}
	return nil
}

// ListOpen lists pending and processing attempts, oldest first
func (r *TransactionRepository) ListOpen(ctx context.Context, db ports.DBTX, limit int32) ([]*domain.Transaction, error) {
	rows, err := conn(r.pool, db).Query(ctx, `
		SELECT `+transactionColumns+` FROM transactions
		WHERE status IN ('pending', 'processing')
		ORDER BY created_at ASC
		LIMIT $1`, limit)
	if err != nil {
		return nil, domain.WrapError(domain.ErrorCodeDatabaseError, "list open transactions", err)
	}
	defer rows.Close()

	var txns []*domain.Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txns = append(txns, txn)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.WrapError(domain.ErrorCodeDatabaseError, "list open transactions", err)
	}
	return txns, nil
}

// LockCharge takes a transaction-scoped advisory lock on the pair, so two
// concurrent charge requests for one invoice serialise instead of racing
func (r *TransactionRepository) LockCharge(ctx context.Context, tx ports.DBTX, invoiceID int64, paymentType domain.PaymentType) error {
	key := fmt.Sprintf("charge:%d:%s", invoiceID, paymentType)
	if _, err := conn(r.pool, tx).Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, key); err != nil {
		return domain.WrapError(domain.ErrorCodeDatabaseError, "lock charge", err)
	}
	return nil
}

func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	var (
		txn                              domain.Transaction
		paymentType, status              string
		amount                           pgtype.Numeric
		externalID, code, url, lastError pgtype.Text
	)
	err := row.Scan(
		&txn.ID, &txn.InvoiceID, &paymentType, &amount, &status, &externalID,
		&code, &url, &txn.Description, &txn.RawResponse, &lastError,
		&txn.ExpiresAt, &txn.ApprovedAt, &txn.CancelledAt, &txn.CreatedAt, &txn.UpdatedAt,
	)
	if err != nil {
		return nil, classify(err, domain.ErrTxnNotFound, "get transaction")
	}

	txn.Amount, err = pgNumericToDecimal(amount)
	if err != nil {
		return nil, domain.WrapError(domain.ErrorCodeDatabaseError, "get transaction", err)
	}
	txn.PaymentType = domain.PaymentType(paymentType)
	txn.Status = domain.TransactionStatus(status)
	txn.ExternalID = externalID.String
	txn.PaymentCode = code.String
	txn.PaymentURL = url.String
	txn.LastError = textPtr(lastError)
	return &txn, nil
}
