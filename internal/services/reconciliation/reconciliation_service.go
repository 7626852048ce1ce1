package reconciliation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/kevin07696/collections-service/internal/domain"
	"github.com/kevin07696/collections-service/internal/domain/ports"
	serviceports "github.com/kevin07696/collections-service/internal/services/ports"
	pkgerrors "github.com/kevin07696/collections-service/pkg/errors"
	"github.com/kevin07696/collections-service/pkg/observability"
	"github.com/kevin07696/collections-service/pkg/timeutil"
	"go.uber.org/zap"
)

var _ serviceports.ReconciliationService = (*Service)(nil)

// listingClockSkew widens the charge listing window on both ends
const listingClockSkew = 5 * time.Minute

// Service implements ports.ReconciliationService. Every mutation is
// idempotent, so polling, sweeps and notification redelivery can overlap.
type Service struct {
	db       ports.DBPort
	invoices ports.InvoiceRepository
	txns     ports.TransactionRepository
	receipts ports.ReceiptRepository
	gateway  ports.PaymentGateway
	decoder  ports.NotificationDecoder
	late     LateSettlementPolicy
	logger   *zap.Logger
	now      func() time.Time
}

// NewService creates a new reconciliation service. A nil policy logs late
// settlements and does nothing else.
func NewService(
	db ports.DBPort,
	invoices ports.InvoiceRepository,
	txns ports.TransactionRepository,
	receipts ports.ReceiptRepository,
	gateway ports.PaymentGateway,
	decoder ports.NotificationDecoder,
	late LateSettlementPolicy,
	logger *zap.Logger,
) *Service {
	if late == nil {
		late = LogLateSettlement(logger)
	}
	return &Service{
		db:       db,
		invoices: invoices,
		txns:     txns,
		receipts: receipts,
		gateway:  gateway,
		decoder:  decoder,
		late:     late,
		logger:   logger,
		now:      timeutil.Now,
	}
}

// WithClock replaces the time source, for tests
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// PollStatus refreshes one transaction from the gateway. Stale pending
// attempts are expired locally and final ones returned as they are, both
// without a gateway call.
func (s *Service) PollStatus(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	txn, err := s.txns.GetByID(ctx, nil, id)
	if err != nil {
		return nil, err
	}
	return s.poll(ctx, txn, nil)
}

// poll applies status to txn, fetching it from the gateway when nil
func (s *Service) poll(ctx context.Context, txn *domain.Transaction, status *ports.ChargeStatus) (*domain.Transaction, error) {
	if txn.IsFinal() {
		return txn, nil
	}
	if txn.IsStale(s.now()) {
		return s.expire(ctx, txn.ID)
	}

	if status == nil {
		var err error
		status, err = s.gateway.GetChargeStatus(ctx, txn.PaymentType, txn.ExternalID)
		if err != nil {
			s.logger.Warn("status poll failed",
				zap.String("transaction_id", txn.ID.String()),
				zap.String("external_id", txn.ExternalID),
				zap.String("correlation_id", pkgerrors.CorrelationID(err)),
				zap.Error(err),
			)
			return nil, fmt.Errorf("poll %s charge: %w", txn.PaymentType, err)
		}
	}

	var result *domain.Transaction
	err := s.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		locked, err := s.txns.GetByIDForUpdate(ctx, tx, txn.ID)
		if err != nil {
			return err
		}
		result = locked
		return s.applyState(ctx, tx, locked, status)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Service) applyState(ctx context.Context, tx ports.DBTX, txn *domain.Transaction, status *ports.ChargeStatus) error {
	now := s.now()
	from := txn.Status

	switch status.State {
	case ports.GatewayStateCompleted:
		_, err := s.settle(ctx, tx, txn, now)
		return err

	case ports.GatewayStateRemovedByPayee:
		if txn.Status != domain.TransactionStatusPending && txn.Status != domain.TransactionStatusProcessing {
			return nil
		}
		if err := txn.Reject(now); err != nil {
			return err
		}

	case ports.GatewayStateProcessing:
		if txn.PaymentType != domain.PaymentTypeCard || txn.Status != domain.TransactionStatusPending {
			return nil
		}
		if err := txn.MarkProcessing(now); err != nil {
			return err
		}

	default:
		return nil
	}

	if err := s.txns.Update(ctx, tx, txn); err != nil {
		return err
	}
	observability.RecordStatusTransition(string(txn.PaymentType), string(from), string(txn.Status))
	s.logger.Info("transaction status changed",
		zap.String("transaction_id", txn.ID.String()),
		zap.String("from", string(from)),
		zap.String("to", string(txn.Status)),
		zap.String("gateway_status", status.RawStatus),
	)
	return nil
}

func (s *Service) expire(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	var result *domain.Transaction
	err := s.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		txn, err := s.txns.GetByIDForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		result = txn
		if !txn.IsStale(s.now()) {
			return nil
		}
		if err := txn.Expire(s.now()); err != nil {
			return err
		}
		observability.RecordStatusTransition(string(txn.PaymentType), string(domain.TransactionStatusPending), string(domain.TransactionStatusExpired))
		return s.txns.Update(ctx, tx, txn)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// settle approves the transaction and marks its invoice paid. Both steps are
// no-ops when already done; approved-at is only stamped on the first pass.
func (s *Service) settle(ctx context.Context, tx ports.DBTX, txn *domain.Transaction, now time.Time) (bool, error) {
	from := txn.Status
	approved := txn.Approve(now)
	if approved {
		if err := s.txns.Update(ctx, tx, txn); err != nil {
			return false, err
		}
		observability.RecordStatusTransition(string(txn.PaymentType), string(from), string(txn.Status))
	}

	inv, err := s.invoices.GetByIDForUpdate(ctx, tx, txn.InvoiceID)
	if err != nil {
		return false, err
	}

	if approved && from == domain.TransactionStatusExpired {
		if err := s.late.OnLateSettlement(ctx, tx, txn, inv); err != nil {
			return false, &lateSettlementError{err: err}
		}
	}

	if inv.MarkPaid() {
		if err := s.invoices.Save(ctx, tx, inv); err != nil {
			return false, err
		}
		s.logger.Info("invoice paid",
			zap.Int64("invoice_id", inv.ID),
			zap.String("transaction_id", txn.ID.String()),
		)
	}
	return approved, nil
}

// IngestNotification applies each settlement event in its own DB
// transaction. Malformed events and events the database rejects as data are
// counted and skipped. Any other repository failure aborts the batch so the
// gateway redelivers it.
func (s *Service) IngestNotification(ctx context.Context, payload []byte) (*serviceports.IngestResult, error) {
	events, err := s.decoder.Split(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", serviceports.ErrInvalidNotification, err)
	}

	result := &serviceports.IngestResult{}
	for i, raw := range events {
		event, err := s.decoder.Decode(raw)
		if err != nil {
			result.Errors++
			observability.RecordNotificationEvent("error")
			s.logger.Warn("malformed settlement event",
				zap.Int("index", i),
				zap.Error(err),
			)
			continue
		}

		outcome, err := s.applySettlement(ctx, event)
		if err != nil && isEventFailure(err) {
			result.Errors++
			observability.RecordNotificationEvent("error")
			s.logger.Warn("settlement event rejected",
				zap.Int("index", i),
				zap.String("end_to_end_id", event.EndToEndID),
				zap.String("txid", event.ExternalID),
				zap.Error(err),
			)
			continue
		}
		if err != nil {
			observability.RecordNotificationEvent("error")
			s.logger.Error("settlement event failed",
				zap.Int("index", i),
				zap.String("end_to_end_id", event.EndToEndID),
				zap.String("txid", event.ExternalID),
				zap.Error(err),
			)
			return nil, fmt.Errorf("apply settlement %s: %w", event.EndToEndID, err)
		}

		observability.RecordNotificationEvent(outcome)
		if outcome == "skipped" {
			result.Skipped++
		}
		result.Processed++
	}

	s.logger.Info("notification processed",
		zap.Int("events", len(events)),
		zap.Int("processed", result.Processed),
		zap.Int("skipped", result.Skipped),
		zap.Int("errors", result.Errors),
	)
	return result, nil
}

// applySettlement returns settled, duplicate or skipped
func (s *Service) applySettlement(ctx context.Context, event *ports.SettlementEvent) (string, error) {
	if event.ExternalID == "" {
		s.logger.Info("settlement without charge reference skipped",
			zap.String("end_to_end_id", event.EndToEndID),
		)
		return "skipped", nil
	}

	outcome := "settled"
	err := s.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		txn, err := s.txns.GetByExternalIDForUpdate(ctx, tx, event.ExternalID)
		if err != nil {
			return err
		}

		now := s.now()
		paidAt := event.PaidAt
		if paidAt.IsZero() {
			paidAt = now
		}

		inserted, err := s.receipts.Upsert(ctx, tx, &domain.SettlementReceipt{
			TransactionID: txn.ID,
			EndToEndID:    event.EndToEndID,
			ExternalID:    event.ExternalID,
			Amount:        event.Amount,
			PaidAt:        paidAt,
			PayerInfo:     event.PayerInfo,
			RawPayload:    event.Raw,
		})
		if err != nil {
			return err
		}
		if !inserted {
			outcome = "duplicate"
		}

		if !event.Amount.Equal(txn.Amount) {
			s.logger.Warn("settled amount differs from charge",
				zap.String("transaction_id", txn.ID.String()),
				zap.String("charged", txn.Amount.StringFixed(2)),
				zap.String("received", event.Amount.StringFixed(2)),
			)
		}

		_, err = s.settle(ctx, tx, txn, now)
		return err
	})

	if errors.Is(err, domain.ErrTxnNotFound) {
		s.logger.Info("settlement for unknown charge skipped",
			zap.String("end_to_end_id", event.EndToEndID),
			zap.String("txid", event.ExternalID),
		)
		return "skipped", nil
	}
	if err != nil {
		return "", err
	}
	return outcome, nil
}

// listInstantTransfers fetches the statuses of the open instant-transfer
// charges through the gateway listing, keyed by external id. Listing
// failures are logged and leave the map empty.
func (s *Service) listInstantTransfers(ctx context.Context, open []*domain.Transaction) map[string]*ports.ChargeStatus {
	lister, ok := s.gateway.(ports.ChargeLister)
	if !ok {
		return nil
	}

	var earliest time.Time
	for _, txn := range open {
		if txn.PaymentType != domain.PaymentTypeInstantTransfer || txn.ExternalID == "" {
			continue
		}
		if earliest.IsZero() || txn.CreatedAt.Before(earliest) {
			earliest = txn.CreatedAt
		}
	}
	if earliest.IsZero() {
		return nil
	}

	// The gateway stamps creation with its own clock
	from := earliest.Add(-listingClockSkew)
	to := s.now().Add(listingClockSkew)
	statuses, err := lister.ListInstantTransferStatuses(ctx, from, to)
	if err != nil {
		s.logger.Warn("instant-transfer listing failed, polling charges one by one",
			zap.Time("from", from),
			zap.Time("to", to),
			zap.String("correlation_id", pkgerrors.CorrelationID(err)),
			zap.Error(err),
		)
		return nil
	}

	byID := make(map[string]*ports.ChargeStatus, len(statuses))
	for i := range statuses {
		byID[statuses[i].ExternalID] = &statuses[i]
	}
	s.logger.Debug("instant-transfer charges listed",
		zap.Int("charges", len(statuses)),
		zap.Time("from", from),
	)
	return byID
}

type lateSettlementError struct {
	err error
}

func (e *lateSettlementError) Error() string { return "late settlement policy: " + e.err.Error() }
func (e *lateSettlementError) Unwrap() error { return e.err }

// isEventFailure reports errors confined to one event: the database rejected
// its data (SQLSTATE classes 22 and 23) or the late settlement policy refused
// it. Connection and transaction failures are not.
func isEventFailure(err error) bool {
	var late *lateSettlementError
	if errors.As(err, &late) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return strings.HasPrefix(pgErr.Code, "22") || strings.HasPrefix(pgErr.Code, "23")
	}
	return false
}

// ReconcilePending polls open transactions, oldest first. Individual
// failures are counted and the sweep carries on. When the gateway can list
// instant-transfer charges, their statuses are fetched in one paged walk and
// only charges missing from the listing are polled one by one.
func (s *Service) ReconcilePending(ctx context.Context, limit int32) (*serviceports.SweepResult, error) {
	start := time.Now()
	defer func() { observability.ObserveReconcileSweep(time.Since(start)) }()

	open, err := s.txns.ListOpen(ctx, nil, limit)
	if err != nil {
		return nil, err
	}
	listed := s.listInstantTransfers(ctx, open)

	result := &serviceports.SweepResult{}
	for _, txn := range open {
		if ctx.Err() != nil {
			break
		}

		before := txn.Status
		var updated *domain.Transaction
		if status, ok := listed[txn.ExternalID]; ok && txn.PaymentType == domain.PaymentTypeInstantTransfer {
			updated, err = s.poll(ctx, txn, status)
		} else {
			updated, err = s.PollStatus(ctx, txn.ID)
		}
		if err != nil {
			result.Errors++
			continue
		}
		result.Checked++

		if updated.Status == before {
			continue
		}
		switch updated.Status {
		case domain.TransactionStatusApproved:
			result.Approved++
		case domain.TransactionStatusRejected:
			result.Rejected++
		case domain.TransactionStatusExpired:
			result.Expired++
		}
	}

	s.logger.Info("pending sweep finished",
		zap.Int("open", len(open)),
		zap.Int("checked", result.Checked),
		zap.Int("approved", result.Approved),
		zap.Int("rejected", result.Rejected),
		zap.Int("expired", result.Expired),
		zap.Int("errors", result.Errors),
		zap.Duration("elapsed", time.Since(start)),
	)
	return result, nil
}
