package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/kevin07696/collections-service/internal/domain"
	"github.com/kevin07696/collections-service/internal/domain/ports"
	"github.com/stretchr/testify/mock"
)

var (
	_ ports.InvoiceRepository     = (*MockInvoiceRepository)(nil)
	_ ports.PayerRepository       = (*MockPayerRepository)(nil)
	_ ports.TransactionRepository = (*MockTransactionRepository)(nil)
	_ ports.ReceiptRepository     = (*MockReceiptRepository)(nil)
)

// MockInvoiceRepository mocks the invoice repository
type MockInvoiceRepository struct {
	mock.Mock
}

func (m *MockInvoiceRepository) GetByID(ctx context.Context, db ports.DBTX, id int64) (*domain.Invoice, error) {
	args := m.Called(ctx, db, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) GetByIDForUpdate(ctx context.Context, tx ports.DBTX, id int64) (*domain.Invoice, error) {
	args := m.Called(ctx, tx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) Save(ctx context.Context, tx ports.DBTX, invoice *domain.Invoice) error {
	args := m.Called(ctx, tx, invoice)
	return args.Error(0)
}

// MockPayerRepository mocks the payer repository
type MockPayerRepository struct {
	mock.Mock
}

func (m *MockPayerRepository) GetByID(ctx context.Context, db ports.DBTX, id int64) (*domain.Payer, error) {
	args := m.Called(ctx, db, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Payer), args.Error(1)
}

// MockTransactionRepository mocks the transaction repository
type MockTransactionRepository struct {
	mock.Mock
}

func (m *MockTransactionRepository) Create(ctx context.Context, tx ports.DBTX, txn *domain.Transaction) error {
	args := m.Called(ctx, tx, txn)
	return args.Error(0)
}

func (m *MockTransactionRepository) GetByID(ctx context.Context, db ports.DBTX, id uuid.UUID) (*domain.Transaction, error) {
	args := m.Called(ctx, db, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) GetByIDForUpdate(ctx context.Context, tx ports.DBTX, id uuid.UUID) (*domain.Transaction, error) {
	args := m.Called(ctx, tx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) GetByExternalIDForUpdate(ctx context.Context, tx ports.DBTX, externalID string) (*domain.Transaction, error) {
	args := m.Called(ctx, tx, externalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) FindLatestPending(ctx context.Context, db ports.DBTX, invoiceID int64, paymentType domain.PaymentType) (*domain.Transaction, error) {
	args := m.Called(ctx, db, invoiceID, paymentType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) Update(ctx context.Context, tx ports.DBTX, txn *domain.Transaction) error {
	args := m.Called(ctx, tx, txn)
	return args.Error(0)
}

func (m *MockTransactionRepository) ListOpen(ctx context.Context, db ports.DBTX, limit int32) ([]*domain.Transaction, error) {
	args := m.Called(ctx, db, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) LockCharge(ctx context.Context, tx ports.DBTX, invoiceID int64, paymentType domain.PaymentType) error {
	args := m.Called(ctx, tx, invoiceID, paymentType)
	return args.Error(0)
}

// MockReceiptRepository mocks the settlement receipt repository
type MockReceiptRepository struct {
	mock.Mock
}

func (m *MockReceiptRepository) Upsert(ctx context.Context, tx ports.DBTX, receipt *domain.SettlementReceipt) (bool, error) {
	args := m.Called(ctx, tx, receipt)
	return args.Bool(0), args.Error(1)
}

func (m *MockReceiptRepository) ListByTransaction(ctx context.Context, db ports.DBTX, transactionID uuid.UUID) ([]*domain.SettlementReceipt, error) {
	args := m.Called(ctx, db, transactionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.SettlementReceipt), args.Error(1)
}
