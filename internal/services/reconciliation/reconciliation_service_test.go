package reconciliation_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/kevin07696/collections-service/internal/adapters/c6bank"
	"github.com/kevin07696/collections-service/internal/domain"
	"github.com/kevin07696/collections-service/internal/domain/ports"
	serviceports "github.com/kevin07696/collections-service/internal/services/ports"
	"github.com/kevin07696/collections-service/internal/services/reconciliation"
	pkgerrors "github.com/kevin07696/collections-service/pkg/errors"
	"github.com/kevin07696/collections-service/test/mocks"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var now = time.Date(2025, 3, 20, 12, 0, 0, 0, time.UTC)

type fixture struct {
	db       *mocks.MockDBPort
	invoices *mocks.MockInvoiceRepository
	txns     *mocks.MockTransactionRepository
	receipts *mocks.MockReceiptRepository
	gateway  *mocks.MockPaymentGateway
	late     int
	service  *reconciliation.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		db:       &mocks.MockDBPort{},
		invoices: new(mocks.MockInvoiceRepository),
		txns:     new(mocks.MockTransactionRepository),
		receipts: new(mocks.MockReceiptRepository),
		gateway:  new(mocks.MockPaymentGateway),
	}
	policy := reconciliation.LateSettlementFunc(func(ctx context.Context, tx ports.DBTX, txn *domain.Transaction, inv *domain.Invoice) error {
		f.late++
		return nil
	})
	f.service = reconciliation.NewService(f.db, f.invoices, f.txns, f.receipts, f.gateway,
		c6bank.NotificationDecoder{}, policy, zap.NewNop()).
		WithClock(func() time.Time { return now })
	return f
}

func txnWith(status domain.TransactionStatus, expiresAt time.Time) *domain.Transaction {
	return &domain.Transaction{
		ID:          uuid.New(),
		InvoiceID:   42,
		PaymentType: domain.PaymentTypeInstantTransfer,
		Amount:      decimal.RequireFromString("102.33"),
		Status:      status,
		ExternalID:  "txid" + uuid.NewString()[:8],
		ExpiresAt:   expiresAt,
	}
}

func unpaidInvoice() *domain.Invoice {
	return &domain.Invoice{
		ID:      42,
		PayerID: 7,
		Amount:  decimal.RequireFromString("100.00"),
		DueDate: time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
		Status:  domain.InvoiceStatusOverdue,
	}
}

func TestPollStatus_StalePendingExpiresWithoutNetwork(t *testing.T) {
	f := newFixture(t)
	txn := txnWith(domain.TransactionStatusPending, now.Add(-time.Minute))
	locked := *txn
	f.txns.On("GetByID", mock.Anything, mock.Anything, txn.ID).Return(txn, nil)
	f.txns.On("GetByIDForUpdate", mock.Anything, mock.Anything, txn.ID).Return(&locked, nil)
	f.txns.On("Update", mock.Anything, mock.Anything, &locked).Return(nil)

	got, err := f.service.PollStatus(context.Background(), txn.ID)
	require.NoError(t, err)

	assert.Equal(t, domain.TransactionStatusExpired, got.Status)
	f.gateway.AssertNotCalled(t, "GetChargeStatus", mock.Anything, mock.Anything, mock.Anything)
}

func TestPollStatus_FinalStatesMakeNoCall(t *testing.T) {
	for _, status := range []domain.TransactionStatus{
		domain.TransactionStatusApproved,
		domain.TransactionStatusRejected,
		domain.TransactionStatusCancelled,
	} {
		t.Run(string(status), func(t *testing.T) {
			f := newFixture(t)
			txn := txnWith(status, now.Add(-time.Hour))
			f.txns.On("GetByID", mock.Anything, mock.Anything, txn.ID).Return(txn, nil)

			got, err := f.service.PollStatus(context.Background(), txn.ID)
			require.NoError(t, err)
			assert.Equal(t, status, got.Status)
			f.gateway.AssertNotCalled(t, "GetChargeStatus", mock.Anything, mock.Anything, mock.Anything)
			f.txns.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestPollStatus_CompletedApprovesAndPaysInvoice(t *testing.T) {
	f := newFixture(t)
	txn := txnWith(domain.TransactionStatusPending, now.Add(time.Hour))
	inv := unpaidInvoice()

	f.txns.On("GetByID", mock.Anything, mock.Anything, txn.ID).Return(txn, nil)
	f.gateway.On("GetChargeStatus", mock.Anything, domain.PaymentTypeInstantTransfer, txn.ExternalID).
		Return(&ports.ChargeStatus{ExternalID: txn.ExternalID, RawStatus: "CONCLUIDA", State: ports.GatewayStateCompleted}, nil)
	f.txns.On("GetByIDForUpdate", mock.Anything, mock.Anything, txn.ID).Return(txn, nil)
	f.txns.On("Update", mock.Anything, mock.Anything, txn).Return(nil)
	f.invoices.On("GetByIDForUpdate", mock.Anything, mock.Anything, int64(42)).Return(inv, nil)
	f.invoices.On("Save", mock.Anything, mock.Anything, inv).Return(nil)

	got, err := f.service.PollStatus(context.Background(), txn.ID)
	require.NoError(t, err)

	assert.Equal(t, domain.TransactionStatusApproved, got.Status)
	require.NotNil(t, got.ApprovedAt)
	assert.Equal(t, now, *got.ApprovedAt)
	assert.Equal(t, domain.InvoiceStatusPaid, inv.Status)
	assert.Equal(t, 0, f.late)
}

func TestPollStatus_RemovedByPayeeRejects(t *testing.T) {
	f := newFixture(t)
	txn := txnWith(domain.TransactionStatusPending, now.Add(time.Hour))

	f.txns.On("GetByID", mock.Anything, mock.Anything, txn.ID).Return(txn, nil)
	f.gateway.On("GetChargeStatus", mock.Anything, mock.Anything, txn.ExternalID).
		Return(&ports.ChargeStatus{State: ports.GatewayStateRemovedByPayee}, nil)
	f.txns.On("GetByIDForUpdate", mock.Anything, mock.Anything, txn.ID).Return(txn, nil)
	f.txns.On("Update", mock.Anything, mock.Anything, txn).Return(nil)

	got, err := f.service.PollStatus(context.Background(), txn.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TransactionStatusRejected, got.Status)
	f.invoices.AssertNotCalled(t, "Save", mock.Anything, mock.Anything, mock.Anything)
}

func TestPollStatus_CardProcessing(t *testing.T) {
	f := newFixture(t)
	txn := txnWith(domain.TransactionStatusPending, now.Add(time.Hour))
	txn.PaymentType = domain.PaymentTypeCard

	f.txns.On("GetByID", mock.Anything, mock.Anything, txn.ID).Return(txn, nil)
	f.gateway.On("GetChargeStatus", mock.Anything, domain.PaymentTypeCard, txn.ExternalID).
		Return(&ports.ChargeStatus{State: ports.GatewayStateProcessing}, nil)
	f.txns.On("GetByIDForUpdate", mock.Anything, mock.Anything, txn.ID).Return(txn, nil)
	f.txns.On("Update", mock.Anything, mock.Anything, txn).Return(nil)

	got, err := f.service.PollStatus(context.Background(), txn.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TransactionStatusProcessing, got.Status)
}

func TestPollStatus_ActiveIsNoOp(t *testing.T) {
	f := newFixture(t)
	txn := txnWith(domain.TransactionStatusPending, now.Add(time.Hour))

	f.txns.On("GetByID", mock.Anything, mock.Anything, txn.ID).Return(txn, nil)
	f.gateway.On("GetChargeStatus", mock.Anything, mock.Anything, txn.ExternalID).
		Return(&ports.ChargeStatus{State: ports.GatewayStateActive}, nil)
	f.txns.On("GetByIDForUpdate", mock.Anything, mock.Anything, txn.ID).Return(txn, nil)

	got, err := f.service.PollStatus(context.Background(), txn.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TransactionStatusPending, got.Status)
	f.txns.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
}

func TestPollStatus_GatewayFailureLeavesStateAlone(t *testing.T) {
	f := newFixture(t)
	txn := txnWith(domain.TransactionStatusPending, now.Add(time.Hour))

	f.txns.On("GetByID", mock.Anything, mock.Anything, txn.ID).Return(txn, nil)
	f.gateway.On("GetChargeStatus", mock.Anything, mock.Anything, txn.ExternalID).
		Return(nil, pkgerrors.NewNetworkError(context.DeadlineExceeded))

	_, err := f.service.PollStatus(context.Background(), txn.ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, pkgerrors.ErrNetwork))
	assert.True(t, pkgerrors.IsRetriable(err))
	assert.Equal(t, 0, f.db.Transactions)
	assert.Equal(t, domain.TransactionStatusPending, txn.Status)
}

func notification(endToEndID, txid, amount string) string {
	return `{"endToEndId":"` + endToEndID + `","txid":"` + txid + `","valor":"` + amount + `","horario":"2025-03-20T11:59:00Z"}`
}

func TestIngestNotification_ExpiredTransactionIsApproved(t *testing.T) {
	f := newFixture(t)
	txn := txnWith(domain.TransactionStatusExpired, now.Add(-time.Hour))
	inv := unpaidInvoice()

	f.txns.On("GetByExternalIDForUpdate", mock.Anything, mock.Anything, txn.ExternalID).Return(txn, nil)
	f.receipts.On("Upsert", mock.Anything, mock.Anything, mock.MatchedBy(func(r *domain.SettlementReceipt) bool {
		return r.TransactionID == txn.ID && r.EndToEndID == "E1" && r.Amount.StringFixed(2) == "102.33" &&
			r.PaidAt.Equal(time.Date(2025, 3, 20, 11, 59, 0, 0, time.UTC))
	})).Return(true, nil)
	f.txns.On("Update", mock.Anything, mock.Anything, txn).Return(nil)
	f.invoices.On("GetByIDForUpdate", mock.Anything, mock.Anything, int64(42)).Return(inv, nil)
	f.invoices.On("Save", mock.Anything, mock.Anything, inv).Return(nil)

	res, err := f.service.IngestNotification(context.Background(), []byte(`{"pix":[`+notification("E1", txn.ExternalID, "102.33")+`]}`))
	require.NoError(t, err)

	assert.Equal(t, serviceports.IngestResult{Processed: 1}, *res)
	assert.Equal(t, domain.TransactionStatusApproved, txn.Status)
	assert.Equal(t, domain.InvoiceStatusPaid, inv.Status)
	assert.Equal(t, 1, f.late)
}

func TestIngestNotification_DuplicateEndToEndID(t *testing.T) {
	f := newFixture(t)
	txn := txnWith(domain.TransactionStatusPending, now.Add(time.Hour))
	inv := unpaidInvoice()

	f.txns.On("GetByExternalIDForUpdate", mock.Anything, mock.Anything, txn.ExternalID).Return(txn, nil)
	f.receipts.On("Upsert", mock.Anything, mock.Anything, mock.Anything).Return(true, nil).Once()
	f.receipts.On("Upsert", mock.Anything, mock.Anything, mock.Anything).Return(false, nil).Once()
	f.txns.On("Update", mock.Anything, mock.Anything, txn).Return(nil).Once()
	f.invoices.On("GetByIDForUpdate", mock.Anything, mock.Anything, int64(42)).Return(inv, nil)
	f.invoices.On("Save", mock.Anything, mock.Anything, inv).Return(nil).Once()

	payload := []byte(notification("E-dup", txn.ExternalID, "102.33"))

	_, err := f.service.IngestNotification(context.Background(), payload)
	require.NoError(t, err)
	firstApproval := *txn.ApprovedAt

	res, err := f.service.IngestNotification(context.Background(), payload)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Processed)

	assert.Equal(t, firstApproval, *txn.ApprovedAt)
	f.receipts.AssertNumberOfCalls(t, "Upsert", 2)
	f.txns.AssertNumberOfCalls(t, "Update", 1)
	f.invoices.AssertNumberOfCalls(t, "Save", 1)
}

func TestIngestNotification_MalformedEventInBatch(t *testing.T) {
	f := newFixture(t)
	first := txnWith(domain.TransactionStatusPending, now.Add(time.Hour))
	third := txnWith(domain.TransactionStatusPending, now.Add(time.Hour))
	third.InvoiceID = 43
	inv42, inv43 := unpaidInvoice(), unpaidInvoice()
	inv43.ID = 43

	f.txns.On("GetByExternalIDForUpdate", mock.Anything, mock.Anything, first.ExternalID).Return(first, nil)
	f.txns.On("GetByExternalIDForUpdate", mock.Anything, mock.Anything, third.ExternalID).Return(third, nil)
	f.receipts.On("Upsert", mock.Anything, mock.Anything, mock.Anything).Return(true, nil)
	f.txns.On("Update", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.invoices.On("GetByIDForUpdate", mock.Anything, mock.Anything, int64(42)).Return(inv42, nil)
	f.invoices.On("GetByIDForUpdate", mock.Anything, mock.Anything, int64(43)).Return(inv43, nil)
	f.invoices.On("Save", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	payload := `[` +
		notification("E1", first.ExternalID, "102.33") + `,` +
		`{"txid":"` + third.ExternalID + `","valor":"oops"}` + `,` +
		notification("E3", third.ExternalID, "102.33") +
		`]`

	res, err := f.service.IngestNotification(context.Background(), []byte(payload))
	require.NoError(t, err)

	assert.Equal(t, 2, res.Processed)
	assert.Equal(t, 1, res.Errors)
	assert.Equal(t, 0, res.Skipped)
	assert.Equal(t, domain.TransactionStatusApproved, first.Status)
	assert.Equal(t, domain.TransactionStatusApproved, third.Status)
	assert.True(t, inv42.IsPaid())
	assert.True(t, inv43.IsPaid())
}

func TestIngestNotification_RejectedRowInBatch(t *testing.T) {
	f := newFixture(t)
	first := txnWith(domain.TransactionStatusPending, now.Add(time.Hour))
	second := txnWith(domain.TransactionStatusPending, now.Add(time.Hour))
	third := txnWith(domain.TransactionStatusPending, now.Add(time.Hour))
	third.InvoiceID = 43
	inv42, inv43 := unpaidInvoice(), unpaidInvoice()
	inv43.ID = 43

	tooLong := domain.WrapError(domain.ErrorCodeDatabaseError, "upsert receipt",
		&pgconn.PgError{Code: "22001", Message: "value too long for type character varying(100)"})

	for _, txn := range []*domain.Transaction{first, second, third} {
		f.txns.On("GetByExternalIDForUpdate", mock.Anything, mock.Anything, txn.ExternalID).Return(txn, nil)
	}
	f.receipts.On("Upsert", mock.Anything, mock.Anything, mock.MatchedBy(func(r *domain.SettlementReceipt) bool {
		return r.EndToEndID == "E2"
	})).Return(false, tooLong)
	f.receipts.On("Upsert", mock.Anything, mock.Anything, mock.Anything).Return(true, nil)
	f.txns.On("Update", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.invoices.On("GetByIDForUpdate", mock.Anything, mock.Anything, int64(42)).Return(inv42, nil)
	f.invoices.On("GetByIDForUpdate", mock.Anything, mock.Anything, int64(43)).Return(inv43, nil)
	f.invoices.On("Save", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	payload := `[` +
		notification("E1", first.ExternalID, "102.33") + `,` +
		notification("E2", second.ExternalID, "102.33") + `,` +
		notification("E3", third.ExternalID, "102.33") +
		`]`

	res, err := f.service.IngestNotification(context.Background(), []byte(payload))
	require.NoError(t, err)

	assert.Equal(t, serviceports.IngestResult{Processed: 2, Errors: 1}, *res)
	assert.Equal(t, domain.TransactionStatusApproved, first.Status)
	assert.Equal(t, domain.TransactionStatusPending, second.Status)
	assert.Equal(t, domain.TransactionStatusApproved, third.Status)
	assert.True(t, inv43.IsPaid())
}

func TestIngestNotification_LatePolicyRefusalIsCounted(t *testing.T) {
	f := newFixture(t)
	refusing := reconciliation.LateSettlementFunc(func(context.Context, ports.DBTX, *domain.Transaction, *domain.Invoice) error {
		return errors.New("late fee already billed")
	})
	service := reconciliation.NewService(f.db, f.invoices, f.txns, f.receipts, f.gateway,
		c6bank.NotificationDecoder{}, refusing, zap.NewNop()).
		WithClock(func() time.Time { return now })

	expired := txnWith(domain.TransactionStatusExpired, now.Add(-time.Hour))
	f.txns.On("GetByExternalIDForUpdate", mock.Anything, mock.Anything, expired.ExternalID).Return(expired, nil)
	f.receipts.On("Upsert", mock.Anything, mock.Anything, mock.Anything).Return(true, nil)
	f.txns.On("Update", mock.Anything, mock.Anything, expired).Return(nil)
	f.invoices.On("GetByIDForUpdate", mock.Anything, mock.Anything, int64(42)).Return(unpaidInvoice(), nil)

	res, err := service.IngestNotification(context.Background(), []byte(notification("E1", expired.ExternalID, "102.33")))
	require.NoError(t, err)
	assert.Equal(t, serviceports.IngestResult{Errors: 1}, *res)
	f.invoices.AssertNotCalled(t, "Save", mock.Anything, mock.Anything, mock.Anything)
}

func TestIngestNotification_SkipsUnknownAndUnreferenced(t *testing.T) {
	f := newFixture(t)
	f.txns.On("GetByExternalIDForUpdate", mock.Anything, mock.Anything, "unknown").Return(nil, domain.ErrTxnNotFound)

	payload := `[` +
		notification("E1", "unknown", "10.00") + `,` +
		`{"endToEndId":"E2","valor":"10.00"}` +
		`]`

	res, err := f.service.IngestNotification(context.Background(), []byte(payload))
	require.NoError(t, err)
	assert.Equal(t, serviceports.IngestResult{Processed: 2, Skipped: 2}, *res)
	f.receipts.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything, mock.Anything)
}

func TestIngestNotification_NotJSON(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.IngestNotification(context.Background(), []byte("not json"))
	assert.True(t, errors.Is(err, serviceports.ErrInvalidNotification))
}

func TestIngestNotification_RepositoryFailureAbortsBatch(t *testing.T) {
	f := newFixture(t)
	dbDown := domain.WrapError(domain.ErrorCodeDatabaseError, "get transaction", errors.New("connection refused"))
	f.txns.On("GetByExternalIDForUpdate", mock.Anything, mock.Anything, "tx1").Return(nil, dbDown)

	payload := `[` + notification("E1", "tx1", "10.00") + `,` + notification("E2", "tx2", "10.00") + `]`

	_, err := f.service.IngestNotification(context.Background(), []byte(payload))
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrDatabaseError))
	f.txns.AssertNumberOfCalls(t, "GetByExternalIDForUpdate", 1)
}

func TestReconcilePending(t *testing.T) {
	f := newFixture(t)
	stale := txnWith(domain.TransactionStatusPending, now.Add(-time.Minute))
	paid := txnWith(domain.TransactionStatusPending, now.Add(time.Hour))
	broken := txnWith(domain.TransactionStatusPending, now.Add(time.Hour))
	inv := unpaidInvoice()

	f.txns.On("ListOpen", mock.Anything, mock.Anything, int32(50)).Return([]*domain.Transaction{stale, paid, broken}, nil)
	for _, txn := range []*domain.Transaction{stale, paid, broken} {
		f.txns.On("GetByID", mock.Anything, mock.Anything, txn.ID).Return(txn, nil)
		f.txns.On("GetByIDForUpdate", mock.Anything, mock.Anything, txn.ID).Return(txn, nil)
	}
	f.txns.On("Update", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.gateway.On("GetChargeStatus", mock.Anything, mock.Anything, paid.ExternalID).
		Return(&ports.ChargeStatus{State: ports.GatewayStateCompleted}, nil)
	f.gateway.On("GetChargeStatus", mock.Anything, mock.Anything, broken.ExternalID).
		Return(nil, pkgerrors.NewGatewayError(pkgerrors.KindServer, 502, "Bad Gateway", ""))
	f.invoices.On("GetByIDForUpdate", mock.Anything, mock.Anything, int64(42)).Return(inv, nil)
	f.invoices.On("Save", mock.Anything, mock.Anything, inv).Return(nil)

	res, err := f.service.ReconcilePending(context.Background(), 50)
	require.NoError(t, err)

	assert.Equal(t, serviceports.SweepResult{Checked: 2, Approved: 1, Expired: 1, Errors: 1}, *res)
}

// listingGateway adds charge listing to the mock gateway
type listingGateway struct {
	*mocks.MockPaymentGateway
	statuses []ports.ChargeStatus
	err      error
	from, to time.Time
}

func (g *listingGateway) ListInstantTransferStatuses(ctx context.Context, start, end time.Time) ([]ports.ChargeStatus, error) {
	g.from, g.to = start, end
	return g.statuses, g.err
}

func TestReconcilePending_UsesChargeListing(t *testing.T) {
	f := newFixture(t)
	listed := txnWith(domain.TransactionStatusPending, now.Add(time.Hour))
	listed.CreatedAt = now.Add(-20 * time.Minute)
	unlisted := txnWith(domain.TransactionStatusPending, now.Add(time.Hour))
	unlisted.CreatedAt = now.Add(-10 * time.Minute)
	slip := txnWith(domain.TransactionStatusPending, now.Add(72*time.Hour))
	slip.PaymentType = domain.PaymentTypeBankSlip
	slip.CreatedAt = now.Add(-48 * time.Hour)
	inv := unpaidInvoice()

	gw := &listingGateway{
		MockPaymentGateway: f.gateway,
		statuses: []ports.ChargeStatus{
			{ExternalID: listed.ExternalID, RawStatus: "CONCLUIDA", State: ports.GatewayStateCompleted},
			{ExternalID: "someone-elses", RawStatus: "ATIVA", State: ports.GatewayStateActive},
		},
	}
	service := reconciliation.NewService(f.db, f.invoices, f.txns, f.receipts, gw,
		c6bank.NotificationDecoder{}, nil, zap.NewNop()).
		WithClock(func() time.Time { return now })

	f.txns.On("ListOpen", mock.Anything, mock.Anything, int32(50)).Return([]*domain.Transaction{listed, unlisted, slip}, nil)
	for _, txn := range []*domain.Transaction{listed, unlisted, slip} {
		f.txns.On("GetByID", mock.Anything, mock.Anything, txn.ID).Return(txn, nil)
		f.txns.On("GetByIDForUpdate", mock.Anything, mock.Anything, txn.ID).Return(txn, nil)
	}
	f.txns.On("Update", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.gateway.On("GetChargeStatus", mock.Anything, domain.PaymentTypeInstantTransfer, unlisted.ExternalID).
		Return(&ports.ChargeStatus{State: ports.GatewayStateActive}, nil)
	f.gateway.On("GetChargeStatus", mock.Anything, domain.PaymentTypeBankSlip, slip.ExternalID).
		Return(&ports.ChargeStatus{State: ports.GatewayStateActive}, nil)
	f.invoices.On("GetByIDForUpdate", mock.Anything, mock.Anything, int64(42)).Return(inv, nil)
	f.invoices.On("Save", mock.Anything, mock.Anything, inv).Return(nil)

	res, err := service.ReconcilePending(context.Background(), 50)
	require.NoError(t, err)

	assert.Equal(t, serviceports.SweepResult{Checked: 3, Approved: 1}, *res)
	assert.Equal(t, domain.TransactionStatusApproved, listed.Status)
	f.gateway.AssertNotCalled(t, "GetChargeStatus", mock.Anything, mock.Anything, listed.ExternalID)
	f.gateway.AssertNumberOfCalls(t, "GetChargeStatus", 2)

	// The window starts before the oldest instant transfer, not the slip
	assert.Equal(t, listed.CreatedAt.Add(-5*time.Minute), gw.from)
	assert.Equal(t, now.Add(5*time.Minute), gw.to)
}

func TestReconcilePending_ListingFailureFallsBackToPolling(t *testing.T) {
	f := newFixture(t)
	txn := txnWith(domain.TransactionStatusPending, now.Add(time.Hour))
	txn.CreatedAt = now.Add(-time.Minute)

	gw := &listingGateway{
		MockPaymentGateway: f.gateway,
		err:                pkgerrors.NewGatewayError(pkgerrors.KindServer, 503, "Service Unavailable", ""),
	}
	service := reconciliation.NewService(f.db, f.invoices, f.txns, f.receipts, gw,
		c6bank.NotificationDecoder{}, nil, zap.NewNop()).
		WithClock(func() time.Time { return now })

	f.txns.On("ListOpen", mock.Anything, mock.Anything, int32(10)).Return([]*domain.Transaction{txn}, nil)
	f.txns.On("GetByID", mock.Anything, mock.Anything, txn.ID).Return(txn, nil)
	f.txns.On("GetByIDForUpdate", mock.Anything, mock.Anything, txn.ID).Return(txn, nil)
	f.gateway.On("GetChargeStatus", mock.Anything, domain.PaymentTypeInstantTransfer, txn.ExternalID).
		Return(&ports.ChargeStatus{State: ports.GatewayStateActive}, nil)

	res, err := service.ReconcilePending(context.Background(), 10)
	require.NoError(t, err)

	assert.Equal(t, serviceports.SweepResult{Checked: 1}, *res)
	f.gateway.AssertNumberOfCalls(t, "GetChargeStatus", 1)
}
