package c6bank

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/kevin07696/collections-service/pkg/timeutil"
)

const (
	listPageSize      = 100
	maxListPages      = 50
	statementPageSize = 200
)

// Pagination is the paging block of the instant-transfer list endpoints.
// Pages are numbered from zero.
type Pagination struct {
	CurrentPage  int `json:"paginaAtual"`
	ItemsPerPage int `json:"itensPorPagina"`
	Pages        int `json:"quantidadeDePaginas"`
	TotalItems   int `json:"quantidadeTotalDeItens"`
}

type listParameters struct {
	Start      string     `json:"inicio"`
	End        string     `json:"fim"`
	Pagination Pagination `json:"paginacao"`
}

type pixChargePage struct {
	Parameters listParameters    `json:"parametros"`
	Charges    []json.RawMessage `json:"cobs"`
}

type webhookPage struct {
	Parameters listParameters `json:"parametros"`
	Webhooks   []Webhook      `json:"webhooks"`
}

func windowQuery(start, end time.Time, page int) url.Values {
	q := url.Values{}
	if !start.IsZero() {
		q.Set("inicio", start.UTC().Format(time.RFC3339))
	}
	if !end.IsZero() {
		q.Set("fim", end.UTC().Format(time.RFC3339))
	}
	q.Set("paginaAtual", strconv.Itoa(page))
	q.Set("itensPorPagina", strconv.Itoa(listPageSize))
	return q
}

// ListPixCharges returns every immediate charge created between start and
// end, walking all pages
func (c *Client) ListPixCharges(ctx context.Context, start, end time.Time) ([]PixCharge, error) {
	if start.IsZero() || end.IsZero() || !start.Before(end) {
		return nil, fmt.Errorf("invalid charge listing window %s..%s", start, end)
	}

	var charges []PixCharge
	for page := 0; page < maxListPages; page++ {
		var resp pixChargePage
		if err := c.call(ctx, apiRequest{
			op:     "pix_list",
			method: http.MethodGet,
			path:   "/v2/pix/cob",
			query:  windowQuery(start, end, page),
		}, &resp); err != nil {
			return nil, err
		}

		for _, raw := range resp.Charges {
			var charge PixCharge
			if err := json.Unmarshal(raw, &charge); err != nil {
				return nil, malformedResponse(http.StatusOK, fmt.Errorf("failed to decode listed charge: %w", err))
			}
			charge.Raw = raw
			charges = append(charges, charge)
		}

		if page+1 >= resp.Parameters.Pagination.Pages || len(resp.Charges) == 0 {
			return charges, nil
		}
	}
	return nil, fmt.Errorf("charge listing exceeded %d pages", maxListPages)
}

// ListWebhooks returns the notification endpoints registered for every payee
// key on the account. A zero start or end leaves that bound open.
func (c *Client) ListWebhooks(ctx context.Context, start, end time.Time) ([]Webhook, error) {
	var hooks []Webhook
	for page := 0; page < maxListPages; page++ {
		var resp webhookPage
		if err := c.call(ctx, apiRequest{
			op:     "webhook_list",
			method: http.MethodGet,
			path:   "/v2/pix/webhook",
			query:  windowQuery(start, end, page),
		}, &resp); err != nil {
			return nil, err
		}
		hooks = append(hooks, resp.Webhooks...)

		if page+1 >= resp.Parameters.Pagination.Pages || len(resp.Webhooks) == 0 {
			return hooks, nil
		}
	}
	return nil, fmt.Errorf("webhook listing exceeded %d pages", maxListPages)
}

// Statement kinds served under /v1/c6pay/statement
const (
	StatementReceivables  = "receivables"
	StatementTransactions = "transactions"
)

// GetStatement returns one page of card receivables or card transactions for
// the days from start to end. A zero end queries the start day alone. Pages
// are numbered from one and the body is passed through undecoded.
func (c *Client) GetStatement(ctx context.Context, kind string, start, end time.Time, page int) (json.RawMessage, error) {
	switch kind {
	case StatementReceivables, StatementTransactions:
	default:
		return nil, fmt.Errorf("unknown statement %q", kind)
	}
	if page < 1 {
		page = 1
	}

	q := url.Values{}
	q.Set("start_date", timeutil.FormatDate(start))
	if !end.IsZero() {
		q.Set("end_date", timeutil.FormatDate(end))
	}
	q.Set("page", strconv.Itoa(page))
	q.Set("size", strconv.Itoa(statementPageSize))

	var body json.RawMessage
	if err := c.call(ctx, apiRequest{
		op:      "statement_" + kind,
		method:  http.MethodGet,
		path:    "/v1/c6pay/statement/" + kind,
		query:   q,
		headers: c.partnerHeaders(),
	}, &body); err != nil {
		return nil, err
	}
	return body, nil
}
