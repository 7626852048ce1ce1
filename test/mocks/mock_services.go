package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/kevin07696/collections-service/internal/domain"
	"github.com/kevin07696/collections-service/internal/services/ports"
	"github.com/stretchr/testify/mock"
)

var (
	_ ports.ChargeService         = (*MockChargeService)(nil)
	_ ports.ReconciliationService = (*MockReconciliationService)(nil)
)

// MockChargeService mocks the charge service for handler tests
type MockChargeService struct {
	mock.Mock
}

func (m *MockChargeService) txn(args mock.Arguments) (*domain.Transaction, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Transaction), args.Error(1)
}

func (m *MockChargeService) CreateInstantTransferCharge(ctx context.Context, invoiceID int64) (*domain.Transaction, error) {
	return m.txn(m.Called(ctx, invoiceID))
}

func (m *MockChargeService) CreateBankSlip(ctx context.Context, invoiceID int64) (*domain.Transaction, error) {
	return m.txn(m.Called(ctx, invoiceID))
}

func (m *MockChargeService) CreateCardCheckout(ctx context.Context, invoiceID int64) (*domain.Transaction, error) {
	return m.txn(m.Called(ctx, invoiceID))
}

func (m *MockChargeService) CancelTransaction(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	return m.txn(m.Called(ctx, id))
}

func (m *MockChargeService) GetTransaction(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	return m.txn(m.Called(ctx, id))
}

func (m *MockChargeService) GetBankSlipPDF(ctx context.Context, id uuid.UUID) ([]byte, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockChargeService) AmountDue(ctx context.Context, invoiceID int64, asOf time.Time) (*ports.AmountDueResult, error) {
	args := m.Called(ctx, invoiceID, asOf)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ports.AmountDueResult), args.Error(1)
}

// MockReconciliationService mocks the reconciliation service for handler tests
type MockReconciliationService struct {
	mock.Mock
}

func (m *MockReconciliationService) PollStatus(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Transaction), args.Error(1)
}

func (m *MockReconciliationService) IngestNotification(ctx context.Context, payload []byte) (*ports.IngestResult, error) {
	args := m.Called(ctx, payload)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ports.IngestResult), args.Error(1)
}

func (m *MockReconciliationService) ReconcilePending(ctx context.Context, limit int32) (*ports.SweepResult, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ports.SweepResult), args.Error(1)
}
