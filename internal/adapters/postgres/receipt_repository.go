package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kevin07696/collections-service/internal/domain"
	"github.com/kevin07696/collections-service/internal/domain/ports"
)

// ReceiptRepository implements ports.ReceiptRepository
type ReceiptRepository struct {
	pool *pgxpool.Pool
}

// NewReceiptRepository creates a new settlement receipt repository
func NewReceiptRepository(db ports.DBPort) *ReceiptRepository {
	return &ReceiptRepository{pool: db.GetDB()}
}

// Upsert stores a receipt keyed by its end-to-end id. A replayed notification
// refreshes the stored row instead of adding a second one; the returned bool
// is true only when the row was inserted.
func (r *ReceiptRepository) Upsert(ctx context.Context, tx ports.DBTX, receipt *domain.SettlementReceipt) (bool, error) {
	if receipt.ID == uuid.Nil {
		receipt.ID = uuid.New()
	}

	amount, err := decimalToPgNumeric(receipt.Amount)
	if err != nil {
		return false, domain.WrapError(domain.ErrorCodeDatabaseError, "upsert receipt", err)
	}

	raw := receipt.RawPayload
	if len(raw) == 0 {
		raw = []byte("{}")
	}

	var inserted bool
	err = conn(r.pool, tx).QueryRow(ctx, `
		INSERT INTO settlement_receipts (
			id, transaction_id, end_to_end_id, external_id, amount, paid_at, payer_info, raw_payload
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (end_to_end_id) DO UPDATE SET
			amount      = EXCLUDED.amount,
			paid_at     = EXCLUDED.paid_at,
			payer_info  = EXCLUDED.payer_info,
			raw_payload = EXCLUDED.raw_payload,
			updated_at  = NOW()
		RETURNING id, created_at, updated_at, (xmax = 0) AS inserted`,
		receipt.ID, receipt.TransactionID, receipt.EndToEndID, receipt.ExternalID,
		amount, receipt.PaidAt, nullText(receipt.PayerInfo), raw,
	).Scan(&receipt.ID, &receipt.CreatedAt, &receipt.UpdatedAt, &inserted)
	if err != nil {
		return false, domain.WrapError(domain.ErrorCodeDatabaseError, "upsert receipt", err)
	}
	return inserted, nil
}

// ListByTransaction lists receipts for a transaction in payment order
func (r *ReceiptRepository) ListByTransaction(ctx context.Context, db ports.DBTX, transactionID uuid.UUID) ([]*domain.SettlementReceipt, error) {
	rows, err := conn(r.pool, db).Query(ctx, `
		SELECT id, transaction_id, end_to_end_id, external_id, amount, paid_at,
		       payer_info, raw_payload, created_at, updated_at
		FROM settlement_receipts
		WHERE transaction_id = $1
		ORDER BY paid_at ASC`, transactionID)
	if err != nil {
		return nil, domain.WrapError(domain.ErrorCodeDatabaseError, "list receipts", err)
	}
	defer rows.Close()

	var receipts []*domain.SettlementReceipt
	for rows.Next() {
		var (
			rc        domain.SettlementReceipt
			amount    pgtype.Numeric
			payerInfo pgtype.Text
		)
		if err := rows.Scan(&rc.ID, &rc.TransactionID, &rc.EndToEndID, &rc.ExternalID, &amount,
			&rc.PaidAt, &payerInfo, &rc.RawPayload, &rc.CreatedAt, &rc.UpdatedAt); err != nil {
			return nil, domain.WrapError(domain.ErrorCodeDatabaseError, "list receipts", err)
		}
		if rc.Amount, err = pgNumericToDecimal(amount); err != nil {
			return nil, domain.WrapError(domain.ErrorCodeDatabaseError, "list receipts", err)
		}
		rc.PayerInfo = payerInfo.String
		receipts = append(receipts, &rc)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.WrapError(domain.ErrorCodeDatabaseError, "list receipts", err)
	}
	return receipts, nil
}
