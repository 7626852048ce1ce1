package charge

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/kevin07696/collections-service/internal/domain"
	"github.com/kevin07696/collections-service/internal/domain/ports"
	serviceports "github.com/kevin07696/collections-service/internal/services/ports"
	pkgerrors "github.com/kevin07696/collections-service/pkg/errors"
	"github.com/kevin07696/collections-service/pkg/observability"
	"github.com/kevin07696/collections-service/pkg/timeutil"
	"go.uber.org/zap"
)

var _ serviceports.ChargeService = (*Service)(nil)

// Service implements ports.ChargeService
type Service struct {
	db       ports.DBPort
	invoices ports.InvoiceRepository
	payers   ports.PayerRepository
	txns     ports.TransactionRepository
	receipts ports.ReceiptRepository
	gateway  ports.PaymentGateway
	config   Config
	logger   *zap.Logger
	now      func() time.Time
}

// NewService creates a new charge service
func NewService(
	db ports.DBPort,
	invoices ports.InvoiceRepository,
	payers ports.PayerRepository,
	txns ports.TransactionRepository,
	receipts ports.ReceiptRepository,
	gateway ports.PaymentGateway,
	cfg Config,
	logger *zap.Logger,
) *Service {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &Service{
		db:       db,
		invoices: invoices,
		payers:   payers,
		txns:     txns,
		receipts: receipts,
		gateway:  gateway,
		config:   cfg,
		logger:   logger,
		now:      timeutil.Now,
	}
}

// WithClock replaces the time source, for tests
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func (s *Service) today() time.Time {
	return timeutil.Today(s.now(), s.config.Location)
}

// chargeBuilder turns an unpaid invoice into a validated gateway request and
// the instant the resulting attempt stops being payable
type chargeBuilder func(ctx context.Context, tx ports.DBTX, inv *domain.Invoice, now time.Time) (domain.ChargeRequest, time.Time, error)

// CreateInstantTransferCharge returns the active instant-transfer charge for
// the invoice, creating one priced at today's amount due when there is none
func (s *Service) CreateInstantTransferCharge(ctx context.Context, invoiceID int64) (*domain.Transaction, error) {
	return s.create(ctx, invoiceID, domain.PaymentTypeInstantTransfer, func(ctx context.Context, tx ports.DBTX, inv *domain.Invoice, now time.Time) (domain.ChargeRequest, time.Time, error) {
		due := domain.ComputeAmountDue(inv, s.today())
		req, err := domain.NewInstantTransfer(due.Total, s.config.PayeeKey, describe(inv), s.config.InstantTransferExpiration)
		if err != nil {
			return nil, time.Time{}, err
		}
		return req, now.Add(req.Expiration), nil
	})
}

// CreateBankSlip returns the active bank slip for the invoice or issues one.
// Slips carry the base amount; for an overdue invoice the gateway applies
// the fine and interest rules itself.
func (s *Service) CreateBankSlip(ctx context.Context, invoiceID int64) (*domain.Transaction, error) {
	return s.create(ctx, invoiceID, domain.PaymentTypeBankSlip, func(ctx context.Context, tx ports.DBTX, inv *domain.Invoice, now time.Time) (domain.ChargeRequest, time.Time, error) {
		payer, err := s.payers.GetByID(ctx, tx, inv.PayerID)
		if err != nil {
			return nil, time.Time{}, err
		}

		today := s.today()
		overdue := inv.IsOverdue(today)
		dueDate := timeutil.Date(inv.DueDate)
		if overdue {
			dueDate = today.AddDate(0, 0, s.config.BankSlipGraceDays)
		}

		req, err := domain.NewBankSlip(domain.BankSlipParams{
			Amount:            inv.Amount,
			DueDate:           dueDate,
			ExternalReference: newSlipReference(),
			Payer:             *payer,
			Instructions:      s.config.BankSlipInstructions,
			Overdue:           overdue,
		})
		if err != nil {
			return nil, time.Time{}, err
		}

		expiresAt := timeutil.EndOfDay(dueDate.AddDate(0, 0, s.config.BankSlipValidityDays), s.config.Location)
		return req, expiresAt, nil
	})
}

// CreateCardCheckout returns the active card checkout for the invoice or
// opens one for today's amount due
func (s *Service) CreateCardCheckout(ctx context.Context, invoiceID int64) (*domain.Transaction, error) {
	return s.create(ctx, invoiceID, domain.PaymentTypeCard, func(ctx context.Context, tx ports.DBTX, inv *domain.Invoice, now time.Time) (domain.ChargeRequest, time.Time, error) {
		payer, err := s.payers.GetByID(ctx, tx, inv.PayerID)
		if err != nil {
			return nil, time.Time{}, err
		}

		installments := s.config.CardInstallments
		if installments == 0 {
			installments = 1
		}

		due := domain.ComputeAmountDue(inv, s.today())
		req, err := domain.NewCardCheckout(domain.CardCheckoutParams{
			Amount:            due.Total,
			Description:       describe(inv),
			ExternalReference: newSlipReference(),
			Payer:             *payer,
			Installments:      installments,
			InterestBearing:   s.config.CardInterest,
			Capture:           s.config.CardCapture,
			Expiration:        s.config.CheckoutExpiration,
		})
		if err != nil {
			return nil, time.Time{}, err
		}
		return req, now.Add(req.Expiration), nil
	})
}

// create runs the idempotent creation protocol for one (invoice, payment
// type) pair. The advisory lock is held until the surrounding DB transaction
// ends, so concurrent callers observe each other's result.
func (s *Service) create(ctx context.Context, invoiceID int64, paymentType domain.PaymentType, build chargeBuilder) (*domain.Transaction, error) {
	var (
		result *domain.Transaction
		reused bool
	)

	err := s.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		if err := s.txns.LockCharge(ctx, tx, invoiceID, paymentType); err != nil {
			return err
		}

		now := s.now()
		existing, err := s.txns.FindLatestPending(ctx, tx, invoiceID, paymentType)
		switch {
		case err == nil && existing.IsActive(now):
			result, reused = existing, true
			return nil
		case err == nil:
			if err := existing.Expire(now); err != nil {
				return err
			}
			if err := s.txns.Update(ctx, tx, existing); err != nil {
				return fmt.Errorf("expire stale transaction: %w", err)
			}
			observability.RecordStatusTransition(string(paymentType), string(domain.TransactionStatusPending), string(domain.TransactionStatusExpired))
			s.logger.Info("expired stale pending transaction",
				zap.String("transaction_id", existing.ID.String()),
				zap.Int64("invoice_id", invoiceID),
			)
		case !errors.Is(err, domain.ErrTxnNotFound):
			return err
		}

		inv, err := s.invoices.GetByID(ctx, tx, invoiceID)
		if err != nil {
			return err
		}
		if inv.IsPaid() {
			return domain.ErrInvoiceAlreadyPaid.WithDetail("invoice_id", invoiceID)
		}

		req, expiresAt, err := build(ctx, tx, inv, now)
		if err != nil {
			observability.RecordCharge(string(paymentType), "rejected", 0)
			return err
		}

		start := time.Now()
		res, err := s.gateway.CreateCharge(ctx, req)
		if err != nil {
			observability.RecordCharge(string(paymentType), "gateway_error", req.ChargeAmount().InexactFloat64())
			s.logger.Warn("gateway rejected charge",
				zap.Int64("invoice_id", invoiceID),
				zap.String("payment_type", string(paymentType)),
				zap.String("correlation_id", pkgerrors.CorrelationID(err)),
				zap.Duration("elapsed", time.Since(start)),
				zap.Error(err),
			)
			return fmt.Errorf("create %s charge: %w", paymentType, err)
		}

		txn := &domain.Transaction{
			ID:          uuid.New(),
			InvoiceID:   invoiceID,
			PaymentType: paymentType,
			Amount:      req.ChargeAmount(),
			Status:      domain.TransactionStatusPending,
			ExternalID:  res.ExternalID,
			PaymentCode: res.PaymentCode,
			PaymentURL:  res.PaymentURL,
			Description: describe(inv),
			RawResponse: res.Raw,
			ExpiresAt:   expiresAt,
		}

		if paymentType == domain.PaymentTypeInstantTransfer && txn.PaymentCode == "" {
			s.fillPaymentCode(ctx, txn)
		}

		if err := s.txns.Create(ctx, tx, txn); err != nil {
			return err
		}

		result = txn
		return nil
	})
	if err != nil {
		return nil, err
	}

	outcome := "created"
	if reused {
		outcome = "reused"
	}
	observability.RecordCharge(string(paymentType), outcome, result.Amount.InexactFloat64())
	s.logger.Info("charge ready",
		zap.String("outcome", outcome),
		zap.String("transaction_id", result.ID.String()),
		zap.String("external_id", result.ExternalID),
		zap.Int64("invoice_id", invoiceID),
		zap.String("payment_type", string(paymentType)),
	)
	return result, nil
}

// fillPaymentCode makes one follow-up read when the create response lacked
// the copy-paste code. A failure is kept on the record, not raised.
func (s *Service) fillPaymentCode(ctx context.Context, txn *domain.Transaction) {
	status, err := s.gateway.GetChargeStatus(ctx, txn.PaymentType, txn.ExternalID)
	if err != nil {
		s.logger.Warn("payment code follow-up failed",
			zap.String("external_id", txn.ExternalID),
			zap.Error(err),
		)
		txn.RecordError(fmt.Sprintf("fetch payment code: %v", err))
		return
	}
	if status.PaymentCode == "" {
		txn.RecordError("fetch payment code: gateway returned no code")
		return
	}
	txn.PaymentCode = status.PaymentCode
}

// CancelTransaction cancels a pending bank slip or card checkout
func (s *Service) CancelTransaction(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	var result *domain.Transaction

	err := s.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		txn, err := s.txns.GetByIDForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if txn.PaymentType == domain.PaymentTypeInstantTransfer {
			return pkgerrors.NewValidationError("payment_type", "instant transfer charges cannot be cancelled")
		}
		if txn.Status != domain.TransactionStatusPending && txn.Status != domain.TransactionStatusProcessing {
			return domain.ErrTxnInvalidState.WithDetail("status", txn.Status)
		}

		if err := s.gateway.CancelCharge(ctx, txn.PaymentType, txn.ExternalID); err != nil {
			return fmt.Errorf("cancel %s charge: %w", txn.PaymentType, err)
		}

		from := txn.Status
		if err := txn.Cancel(s.now()); err != nil {
			return err
		}
		if err := s.txns.Update(ctx, tx, txn); err != nil {
			return err
		}
		observability.RecordStatusTransition(string(txn.PaymentType), string(from), string(txn.Status))

		result = txn
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("transaction cancelled",
		zap.String("transaction_id", id.String()),
		zap.String("external_id", result.ExternalID),
	)
	return result, nil
}

// GetTransaction loads a transaction, expiring it first when it is pending
// past its deadline. Approved transactions carry their settlement receipts.
func (s *Service) GetTransaction(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	txn, err := s.txns.GetByID(ctx, nil, id)
	if err != nil {
		return nil, err
	}

	if txn.IsStale(s.now()) {
		err = s.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
			locked, err := s.txns.GetByIDForUpdate(ctx, tx, id)
			if err != nil {
				return err
			}
			txn = locked
			if !locked.IsStale(s.now()) {
				return nil
			}
			if err := locked.Expire(s.now()); err != nil {
				return err
			}
			observability.RecordStatusTransition(string(locked.PaymentType), string(domain.TransactionStatusPending), string(domain.TransactionStatusExpired))
			return s.txns.Update(ctx, tx, locked)
		})
		if err != nil {
			return nil, err
		}
	}

	if txn.Status == domain.TransactionStatusApproved {
		receipts, err := s.receipts.ListByTransaction(ctx, nil, txn.ID)
		if err != nil {
			return nil, err
		}
		txn.Receipts = receipts
	}
	return txn, nil
}

// GetBankSlipPDF returns the printable slip for a bank-slip transaction
func (s *Service) GetBankSlipPDF(ctx context.Context, id uuid.UUID) ([]byte, error) {
	txn, err := s.txns.GetByID(ctx, nil, id)
	if err != nil {
		return nil, err
	}
	if txn.PaymentType != domain.PaymentTypeBankSlip {
		return nil, pkgerrors.NewValidationError("payment_type", "only bank slips have a printable document")
	}
	if txn.ExternalID == "" {
		return nil, domain.ErrTxnInvalidState.WithDetail("external_id", "missing")
	}
	return s.gateway.GetBankSlipPDF(ctx, txn.ExternalID)
}

// AmountDue prices an invoice as of asOf, or today when asOf is zero
func (s *Service) AmountDue(ctx context.Context, invoiceID int64, asOf time.Time) (*serviceports.AmountDueResult, error) {
	inv, err := s.invoices.GetByID(ctx, nil, invoiceID)
	if err != nil {
		return nil, err
	}

	if asOf.IsZero() {
		asOf = s.today()
	}

	return &serviceports.AmountDueResult{
		InvoiceID: inv.ID,
		AsOf:      timeutil.FormatDate(asOf),
		DueDate:   timeutil.FormatDate(inv.DueDate),
		Base:      inv.Amount.StringFixed(2),
		Status:    string(inv.Status),
		Breakdown: domain.ComputeAmountDue(inv, asOf),
	}, nil
}

func describe(inv *domain.Invoice) string {
	return fmt.Sprintf("Invoice %d due %s", inv.ID, timeutil.FormatDate(inv.DueDate))
}

// newSlipReference returns a 10-character alphanumeric reference, the
// longest the gateway accepts
func newSlipReference() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:domain.BankSlipReferenceMax])
}
