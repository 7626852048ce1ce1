package c6bank

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/kevin07696/collections-service/internal/domain/ports"
)

// Instant-transfer charge statuses
const (
	PixStatusActive            = "ATIVA"
	PixStatusCompleted         = "CONCLUIDA"
	PixStatusRemovedByPayee    = "REMOVIDA_PELO_USUARIO_RECEBEDOR"
	PixStatusRemovedByProvider = "REMOVIDA_PELO_PSP"
)

// PixChargeRequest is the body of POST /v2/pix/cob
type PixChargeRequest struct {
	Calendar     PixCalendar `json:"calendario"`
	Value        PixValue    `json:"valor"`
	Key          string      `json:"chave"`
	PayerMessage string      `json:"solicitacaoPagador,omitempty"`
}

type PixCalendar struct {
	Created    string `json:"criacao,omitempty"`
	Expiration int    `json:"expiracao"`
}

type PixValue struct {
	Original string `json:"original"`
}

// PixCharge is an instant-transfer charge as returned by the gateway
type PixCharge struct {
	TxID      string          `json:"txid"`
	Status    string          `json:"status"`
	Revision  int             `json:"revisao"`
	Calendar  PixCalendar     `json:"calendario"`
	Location  string          `json:"location"`
	CopyPaste string          `json:"pixCopiaECola"`
	Value     PixValue        `json:"valor"`
	Key       string          `json:"chave"`
	Payments  []PixSettlement `json:"pix,omitempty"`

	Raw json.RawMessage `json:"-"`
}

// PixSettlement is one payment received against a charge. The same shape is
// pushed to the notification webhook.
type PixSettlement struct {
	EndToEndID string `json:"endToEndId"`
	TxID       string `json:"txid"`
	Value      string `json:"valor"`
	Time       string `json:"horario"`
	PayerInfo  string `json:"infoPagador,omitempty"`
}

// CreatePixCharge creates an immediate instant-transfer charge with a
// gateway-assigned txid
func (c *Client) CreatePixCharge(ctx context.Context, req *PixChargeRequest) (*PixCharge, error) {
	var charge PixCharge
	raw, err := c.callRaw(ctx, apiRequest{
		op:     "pix_create",
		method: http.MethodPost,
		path:   "/v2/pix/cob",
		body:   req,
	}, &charge)
	if err != nil {
		return nil, err
	}
	charge.Raw = raw
	return &charge, nil
}

// GetPixCharge fetches a charge by txid
func (c *Client) GetPixCharge(ctx context.Context, txid string) (*PixCharge, error) {
	var charge PixCharge
	raw, err := c.callRaw(ctx, apiRequest{
		op:     "pix_get",
		method: http.MethodGet,
		path:   "/v2/pix/cob/" + url.PathEscape(txid),
	}, &charge)
	if err != nil {
		return nil, err
	}
	charge.Raw = raw
	return &charge, nil
}

// PixState normalises an instant-transfer status
func PixState(status string) ports.GatewayState {
	switch status {
	case PixStatusActive:
		return ports.GatewayStateActive
	case PixStatusCompleted:
		return ports.GatewayStateCompleted
	case PixStatusRemovedByPayee:
		return ports.GatewayStateRemovedByPayee
	case PixStatusRemovedByProvider:
		return ports.GatewayStateRemovedByProvider
	default:
		return ports.GatewayStateUnknown
	}
}
