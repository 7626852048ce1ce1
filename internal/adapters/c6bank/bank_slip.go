package c6bank

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/kevin07696/collections-service/internal/domain/ports"
	pkgerrors "github.com/kevin07696/collections-service/pkg/errors"
)

// Late fee rule types understood by the bank slip API
const (
	SlipFeePercentage        = "PERCENTAGE"
	SlipFeeMonthlyPercentage = "MONTHLY_PERCENTAGE"
)

// BankSlipRequest is the body of POST /v1/bank_slips/
type BankSlipRequest struct {
	ExternalReferenceID string       `json:"external_reference_id"`
	Amount              json.Number  `json:"amount"`
	DueDate             string       `json:"due_date"`
	Payer               SlipPayer    `json:"payer"`
	Instructions        []string     `json:"instructions,omitempty"`
	Fine                *SlipFeeRule `json:"fine,omitempty"`
	Interest            *SlipFeeRule `json:"interest,omitempty"`
}

type SlipPayer struct {
	Name    string      `json:"name"`
	TaxID   string      `json:"tax_id"`
	Email   string      `json:"email,omitempty"`
	Address SlipAddress `json:"address"`
}

type SlipAddress struct {
	Street     string `json:"street"`
	Number     string `json:"number"`
	Complement string `json:"complement,omitempty"`
	District   string `json:"district,omitempty"`
	City       string `json:"city"`
	State      string `json:"state"`
	ZipCode    string `json:"zip_code"`
}

// SlipFeeRule is a percentage the gateway applies after the due date
type SlipFeeRule struct {
	Type  string      `json:"type"`
	Value json.Number `json:"value"`
}

// BankSlip is an issued bank slip
type BankSlip struct {
	ID                  string      `json:"id"`
	ExternalReferenceID string      `json:"external_reference_id"`
	Status              string      `json:"status"`
	Amount              json.Number `json:"amount"`
	DueDate             string      `json:"due_date"`
	DigitableLine       string      `json:"digitable_line"`
	BarCode             string      `json:"bar_code"`
	OurNumber           string      `json:"our_number"`

	Raw json.RawMessage `json:"-"`
}

// CreateBankSlip issues a bank slip
func (c *Client) CreateBankSlip(ctx context.Context, req *BankSlipRequest) (*BankSlip, error) {
	var slip BankSlip
	raw, err := c.callRaw(ctx, apiRequest{
		op:      "bank_slip_create",
		method:  http.MethodPost,
		path:    "/v1/bank_slips/",
		body:    req,
		headers: c.partnerHeaders(),
	}, &slip)
	if err != nil {
		return nil, err
	}
	slip.Raw = raw
	return &slip, nil
}

// GetBankSlip fetches a bank slip by gateway id
func (c *Client) GetBankSlip(ctx context.Context, id string) (*BankSlip, error) {
	var slip BankSlip
	raw, err := c.callRaw(ctx, apiRequest{
		op:      "bank_slip_get",
		method:  http.MethodGet,
		path:    "/v1/bank_slips/" + url.PathEscape(id),
		headers: c.partnerHeaders(),
	}, &slip)
	if err != nil {
		return nil, err
	}
	slip.Raw = raw
	return &slip, nil
}

// BankSlipUpdate is the body of PUT /v1/bank_slips/{id}. Only the fields
// that are set are changed.
type BankSlipUpdate struct {
	Amount   json.Number  `json:"amount,omitempty"`
	DueDate  string       `json:"due_date,omitempty"`
	Fine     *SlipFeeRule `json:"fine,omitempty"`
	Interest *SlipFeeRule `json:"interest,omitempty"`
}

// UpdateBankSlip changes the amount, due date or fee rules of an unpaid slip
func (c *Client) UpdateBankSlip(ctx context.Context, id string, update *BankSlipUpdate) (*BankSlip, error) {
	if update == nil || (update.Amount == "" && update.DueDate == "" && update.Fine == nil && update.Interest == nil) {
		return nil, pkgerrors.NewValidationError("update", "at least one field must change")
	}

	var slip BankSlip
	raw, err := c.callRaw(ctx, apiRequest{
		op:      "bank_slip_update",
		method:  http.MethodPut,
		path:    "/v1/bank_slips/" + url.PathEscape(id),
		body:    update,
		headers: c.partnerHeaders(),
	}, &slip)
	if err != nil {
		return nil, err
	}
	slip.Raw = raw
	return &slip, nil
}

// CancelBankSlip cancels an unpaid bank slip
func (c *Client) CancelBankSlip(ctx context.Context, id string) error {
	return c.call(ctx, apiRequest{
		op:      "bank_slip_cancel",
		method:  http.MethodPut,
		path:    "/v1/bank_slips/" + url.PathEscape(id) + "/cancel",
		headers: c.partnerHeaders(),
	}, nil)
}

// GetBankSlipPDF downloads the printable slip
func (c *Client) GetBankSlipPDF(ctx context.Context, id string) ([]byte, error) {
	data, _, err := c.send(ctx, apiRequest{
		op:      "bank_slip_pdf",
		method:  http.MethodGet,
		path:    "/v1/bank_slips/" + url.PathEscape(id) + "/pdf",
		headers: c.partnerHeaders(),
		accept:  contentTypePDF,
	})
	return data, err
}

// BankSlipState normalises a bank slip status
func BankSlipState(status string) ports.GatewayState {
	switch strings.ToUpper(status) {
	case "PAID", "SETTLED", "LIQUIDATED":
		return ports.GatewayStateCompleted
	case "CANCELLED", "CANCELED", "WRITTEN_OFF":
		return ports.GatewayStateCancelled
	default:
		return ports.GatewayStateActive
	}
}
