package reconciliation

import (
	"context"

	"github.com/kevin07696/collections-service/internal/domain"
	"github.com/kevin07696/collections-service/internal/domain/ports"
	"go.uber.org/zap"
)

// LateSettlementPolicy runs inside the settling DB transaction when money
// arrives for an attempt that had already expired. Returning an error rolls
// the settlement back.
type LateSettlementPolicy interface {
	OnLateSettlement(ctx context.Context, tx ports.DBTX, txn *domain.Transaction, invoice *domain.Invoice) error
}

// LateSettlementFunc adapts a function to LateSettlementPolicy
type LateSettlementFunc func(ctx context.Context, tx ports.DBTX, txn *domain.Transaction, invoice *domain.Invoice) error

func (f LateSettlementFunc) OnLateSettlement(ctx context.Context, tx ports.DBTX, txn *domain.Transaction, invoice *domain.Invoice) error {
	return f(ctx, tx, txn, invoice)
}

// LogLateSettlement records the event and changes nothing else
func LogLateSettlement(logger *zap.Logger) LateSettlementPolicy {
	return LateSettlementFunc(func(ctx context.Context, tx ports.DBTX, txn *domain.Transaction, invoice *domain.Invoice) error {
		logger.Warn("settlement received for expired transaction",
			zap.String("transaction_id", txn.ID.String()),
			zap.String("external_id", txn.ExternalID),
			zap.Int64("invoice_id", invoice.ID),
			zap.String("amount", txn.Amount.StringFixed(2)),
		)
		return nil
	})
}
