package ports

import (
	"context"
	"encoding/json"
	"time"

	"github.com/kevin07696/collections-service/internal/domain"
	"github.com/shopspring/decimal"
)

// GatewayState is the gateway's view of a charge, normalised across payment types
type GatewayState string

const (
	GatewayStateActive            GatewayState = "active"
	GatewayStateProcessing        GatewayState = "processing"
	GatewayStateCompleted         GatewayState = "completed"
	GatewayStateRemovedByPayee    GatewayState = "removed_by_payee"
	GatewayStateRemovedByProvider GatewayState = "removed_by_provider"
	GatewayStateCancelled         GatewayState = "cancelled"
	GatewayStateUnknown           GatewayState = "unknown"
)

// ChargeResult is what the gateway returns when a charge is created
type ChargeResult struct {
	ExternalID  string
	PaymentCode string // copy-paste code, digitable line or checkout URL
	PaymentURL  string
	State       GatewayState
	Raw         json.RawMessage
}

// ChargeStatus is the current gateway state of an existing charge
type ChargeStatus struct {
	ExternalID  string
	RawStatus   string
	PaymentCode string
	State       GatewayState
	Raw         json.RawMessage
}

// PaymentGateway creates and queries charges at the banking gateway.
// Implementations never retry; failures are *errors.GatewayError.
type PaymentGateway interface {
	CreateCharge(ctx context.Context, req domain.ChargeRequest) (*ChargeResult, error)
	GetChargeStatus(ctx context.Context, paymentType domain.PaymentType, externalID string) (*ChargeStatus, error)
	CancelCharge(ctx context.Context, paymentType domain.PaymentType, externalID string) error
	GetBankSlipPDF(ctx context.Context, externalID string) ([]byte, error)
}

// ChargeLister is implemented by gateways that can list instant-transfer
// charges by creation time. A sweep uses it to learn many statuses with a
// few paged calls instead of one call per charge.
type ChargeLister interface {
	ListInstantTransferStatuses(ctx context.Context, start, end time.Time) ([]ChargeStatus, error)
}

// SettlementEvent is one settlement decoded from a gateway notification.
// An empty ExternalID means the payment was not made against a charge.
type SettlementEvent struct {
	EndToEndID string
	ExternalID string
	Amount     decimal.Decimal
	PaidAt     time.Time // zero when the gateway did not say
	PayerInfo  string
	Raw        json.RawMessage
}

// NotificationDecoder understands the gateway's notification payloads
type NotificationDecoder interface {
	// Split breaks a payload into individual events. It fails only when the
	// payload is not JSON at all.
	Split(payload []byte) ([]json.RawMessage, error)

	// Decode parses one event; malformed events return an error
	Decode(raw json.RawMessage) (*SettlementEvent, error)
}
