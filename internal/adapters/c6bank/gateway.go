package c6bank

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kevin07696/collections-service/internal/domain"
	"github.com/kevin07696/collections-service/internal/domain/ports"
	pkgerrors "github.com/kevin07696/collections-service/pkg/errors"
	"github.com/kevin07696/collections-service/pkg/timeutil"
	"github.com/shopspring/decimal"
)

var (
	_ ports.PaymentGateway = (*Client)(nil)
	_ ports.ChargeLister   = (*Client)(nil)
)

// CreateCharge creates the gateway charge matching the request variant
func (c *Client) CreateCharge(ctx context.Context, req domain.ChargeRequest) (*ports.ChargeResult, error) {
	switch r := req.(type) {
	case domain.InstantTransfer:
		return c.createInstantTransfer(ctx, r)
	case domain.BankSlip:
		return c.createBankSlip(ctx, r)
	case domain.CardCheckout:
		return c.createCardCheckout(ctx, r)
	default:
		return nil, fmt.Errorf("unsupported charge request %T", req)
	}
}

func (c *Client) createInstantTransfer(ctx context.Context, r domain.InstantTransfer) (*ports.ChargeResult, error) {
	charge, err := c.CreatePixCharge(ctx, &PixChargeRequest{
		Calendar:     PixCalendar{Expiration: int(r.Expiration / time.Second)},
		Value:        PixValue{Original: r.Amount.StringFixed(2)},
		Key:          r.PayeeKey,
		PayerMessage: r.Description,
	})
	if err != nil {
		return nil, err
	}
	return &ports.ChargeResult{
		ExternalID:  charge.TxID,
		PaymentCode: charge.CopyPaste,
		State:       PixState(charge.Status),
		Raw:         charge.Raw,
	}, nil
}

func (c *Client) createBankSlip(ctx context.Context, r domain.BankSlip) (*ports.ChargeResult, error) {
	req := &BankSlipRequest{
		ExternalReferenceID: r.ExternalReference,
		Amount:              money(r.Amount),
		DueDate:             timeutil.FormatDate(r.DueDate),
		Instructions:        r.Instructions,
		Payer: SlipPayer{
			Name:  r.Payer.Name,
			TaxID: r.Payer.TaxID,
			Email: r.Payer.Email,
			Address: SlipAddress{
				Street:     r.Payer.Address.Street,
				Number:     r.Payer.Address.Number,
				Complement: r.Payer.Address.Complement,
				District:   r.Payer.Address.District,
				City:       r.Payer.Address.City,
				State:      r.Payer.Address.State,
				ZipCode:    r.Payer.Address.PostalCode,
			},
		},
	}
	if r.Fine != nil {
		req.Fine = &SlipFeeRule{Type: SlipFeePercentage, Value: money(r.Fine.Percent)}
	}
	if r.Interest != nil {
		req.Interest = &SlipFeeRule{Type: SlipFeeMonthlyPercentage, Value: money(r.Interest.Percent)}
	}

	slip, err := c.CreateBankSlip(ctx, req)
	if err != nil {
		return nil, err
	}
	return &ports.ChargeResult{
		ExternalID:  slip.ID,
		PaymentCode: slip.DigitableLine,
		State:       BankSlipState(slip.Status),
		Raw:         slip.Raw,
	}, nil
}

func (c *Client) createCardCheckout(ctx context.Context, r domain.CardCheckout) (*ports.ChargeResult, error) {
	checkout, err := c.CreateCheckout(ctx, &CheckoutRequest{
		Amount:              money(r.Amount),
		Description:         r.Description,
		ExternalReferenceID: r.ExternalReference,
		ExpirationDateTime:  timeutil.Now().Add(r.Expiration).Format("2006-01-02T15:04:05.000Z"),
		Payer: &CheckoutPayer{
			Name:        r.Payer.Name,
			TaxID:       r.Payer.TaxID,
			Email:       r.Payer.Email,
			PhoneNumber: r.Payer.Phone,
		},
		Payment: &CheckoutPayment{Card: CheckoutCard{
			Type:         "CREDIT",
			Installments: r.Installments,
			Interest:     r.InterestBearing,
			Capture:      r.Capture,
		}},
	})
	if err != nil {
		return nil, err
	}
	return &ports.ChargeResult{
		ExternalID:  checkout.ID,
		PaymentCode: checkout.URL,
		PaymentURL:  checkout.URL,
		State:       CheckoutState(checkout.Status),
		Raw:         checkout.Raw,
	}, nil
}

// GetChargeStatus fetches the current state of a charge
func (c *Client) GetChargeStatus(ctx context.Context, paymentType domain.PaymentType, externalID string) (*ports.ChargeStatus, error) {
	switch paymentType {
	case domain.PaymentTypeInstantTransfer:
		charge, err := c.GetPixCharge(ctx, externalID)
		if err != nil {
			return nil, err
		}
		return &ports.ChargeStatus{
			ExternalID:  charge.TxID,
			RawStatus:   charge.Status,
			PaymentCode: charge.CopyPaste,
			State:       PixState(charge.Status),
			Raw:         charge.Raw,
		}, nil

	case domain.PaymentTypeBankSlip:
		slip, err := c.GetBankSlip(ctx, externalID)
		if err != nil {
			return nil, err
		}
		return &ports.ChargeStatus{
			ExternalID:  slip.ID,
			RawStatus:   slip.Status,
			PaymentCode: slip.DigitableLine,
			State:       BankSlipState(slip.Status),
			Raw:         slip.Raw,
		}, nil

	case domain.PaymentTypeCard:
		checkout, err := c.GetCheckout(ctx, externalID)
		if err != nil {
			return nil, err
		}
		return &ports.ChargeStatus{
			ExternalID:  checkout.ID,
			RawStatus:   checkout.Status,
			PaymentCode: checkout.URL,
			State:       CheckoutState(checkout.Status),
			Raw:         checkout.Raw,
		}, nil

	default:
		return nil, pkgerrors.NewValidationError("payment_type", fmt.Sprintf("unknown payment type %q", paymentType))
	}
}

// ListInstantTransferStatuses lists the instant-transfer charges created
// between start and end
func (c *Client) ListInstantTransferStatuses(ctx context.Context, start, end time.Time) ([]ports.ChargeStatus, error) {
	charges, err := c.ListPixCharges(ctx, start, end)
	if err != nil {
		return nil, err
	}
	statuses := make([]ports.ChargeStatus, 0, len(charges))
	for _, charge := range charges {
		statuses = append(statuses, ports.ChargeStatus{
			ExternalID:  charge.TxID,
			RawStatus:   charge.Status,
			PaymentCode: charge.CopyPaste,
			State:       PixState(charge.Status),
			Raw:         charge.Raw,
		})
	}
	return statuses, nil
}

// CancelCharge cancels a bank slip or checkout. Instant-transfer charges
// cannot be cancelled by the payee and simply expire.
func (c *Client) CancelCharge(ctx context.Context, paymentType domain.PaymentType, externalID string) error {
	switch paymentType {
	case domain.PaymentTypeBankSlip:
		return c.CancelBankSlip(ctx, externalID)
	case domain.PaymentTypeCard:
		return c.CancelCheckout(ctx, externalID)
	default:
		return pkgerrors.NewValidationError("payment_type", fmt.Sprintf("%s charges cannot be cancelled", paymentType))
	}
}

// money renders an amount as a JSON number with two decimals
func money(d decimal.Decimal) json.Number {
	return json.Number(d.StringFixed(2))
}
