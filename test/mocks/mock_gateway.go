package mocks

import (
	"context"

	"github.com/kevin07696/collections-service/internal/domain"
	"github.com/kevin07696/collections-service/internal/domain/ports"
	"github.com/stretchr/testify/mock"
)

var _ ports.PaymentGateway = (*MockPaymentGateway)(nil)

// MockPaymentGateway mocks the banking gateway
type MockPaymentGateway struct {
	mock.Mock
}

func (m *MockPaymentGateway) CreateCharge(ctx context.Context, req domain.ChargeRequest) (*ports.ChargeResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ports.ChargeResult), args.Error(1)
}

func (m *MockPaymentGateway) GetChargeStatus(ctx context.Context, paymentType domain.PaymentType, externalID string) (*ports.ChargeStatus, error) {
	args := m.Called(ctx, paymentType, externalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ports.ChargeStatus), args.Error(1)
}

func (m *MockPaymentGateway) CancelCharge(ctx context.Context, paymentType domain.PaymentType, externalID string) error {
	args := m.Called(ctx, paymentType, externalID)
	return args.Error(0)
}

func (m *MockPaymentGateway) GetBankSlipPDF(ctx context.Context, externalID string) ([]byte, error) {
	args := m.Called(ctx, externalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}
