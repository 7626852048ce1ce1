package c6bank

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/kevin07696/collections-service/internal/domain/ports"
)

// CheckoutRequest is the body of POST /v1/checkouts/
type CheckoutRequest struct {
	Amount              json.Number      `json:"amount"`
	Description         string           `json:"description"`
	ExternalReferenceID string           `json:"external_reference_id,omitempty"`
	ExpirationDateTime  string           `json:"expiration_date_time"`
	Payer               *CheckoutPayer   `json:"payer,omitempty"`
	Payment             *CheckoutPayment `json:"payment,omitempty"`
}

type CheckoutPayer struct {
	Name        string `json:"name"`
	TaxID       string `json:"tax_id,omitempty"`
	Email       string `json:"email,omitempty"`
	PhoneNumber string `json:"phone_number,omitempty"`
}

type CheckoutPayment struct {
	Card CheckoutCard `json:"card"`
}

type CheckoutCard struct {
	Type         string `json:"type"`
	Installments int    `json:"installments"`
	Interest     bool   `json:"interest"`
	Capture      bool   `json:"capture"`
}

// Checkout is a hosted card checkout
type Checkout struct {
	ID                  string      `json:"id"`
	URL                 string      `json:"url"`
	Status              string      `json:"status"`
	Amount              json.Number `json:"amount"`
	ExternalReferenceID string      `json:"external_reference_id"`

	Raw json.RawMessage `json:"-"`
}

// CreateCheckout creates a hosted checkout page
func (c *Client) CreateCheckout(ctx context.Context, req *CheckoutRequest) (*Checkout, error) {
	var checkout Checkout
	raw, err := c.callRaw(ctx, apiRequest{
		op:     "checkout_create",
		method: http.MethodPost,
		path:   "/v1/checkouts/",
		body:   req,
	}, &checkout)
	if err != nil {
		return nil, err
	}
	checkout.Raw = raw
	return &checkout, nil
}

// GetCheckout fetches a checkout by gateway id
func (c *Client) GetCheckout(ctx context.Context, id string) (*Checkout, error) {
	var checkout Checkout
	raw, err := c.callRaw(ctx, apiRequest{
		op:     "checkout_get",
		method: http.MethodGet,
		path:   "/v1/checkouts/" + url.PathEscape(id),
	}, &checkout)
	if err != nil {
		return nil, err
	}
	checkout.Raw = raw
	return &checkout, nil
}

// CancelCheckout cancels an open checkout
func (c *Client) CancelCheckout(ctx context.Context, id string) error {
	return c.call(ctx, apiRequest{
		op:     "checkout_cancel",
		method: http.MethodPut,
		path:   "/v1/checkouts/" + url.PathEscape(id) + "/cancel",
	}, nil)
}

// CheckoutState normalises a checkout status
func CheckoutState(status string) ports.GatewayState {
	switch strings.ToUpper(status) {
	case "PAID", "APPROVED", "CAPTURED":
		return ports.GatewayStateCompleted
	case "AUTHORIZED", "PROCESSING", "IN_ANALYSIS":
		return ports.GatewayStateProcessing
	case "DECLINED":
		return ports.GatewayStateRemovedByPayee
	case "CANCELED", "CANCELLED", "EXPIRED":
		return ports.GatewayStateCancelled
	default:
		return ports.GatewayStateActive
	}
}
