package c6bank

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/kevin07696/collections-service/internal/domain/ports"
	pkgerrors "github.com/kevin07696/collections-service/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListPixCharges_WalksPages(t *testing.T) {
	start := time.Date(2025, 3, 20, 9, 0, 0, 0, time.FixedZone("BRT", -3*3600))
	end := start.Add(3 * time.Hour)

	var pages []string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/v2/pix/cob", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "2025-03-20T12:00:00Z", q.Get("inicio"))
		assert.Equal(t, "2025-03-20T15:00:00Z", q.Get("fim"))
		assert.Equal(t, "100", q.Get("itensPorPagina"))
		page := q.Get("paginaAtual")
		pages = append(pages, page)

		status := "ATIVA"
		if page == "1" {
			status = "CONCLUIDA"
		}
		writeJSON(w, http.StatusOK, fmt.Sprintf(
			`{"parametros":{"inicio":"x","fim":"y","paginacao":{"paginaAtual":%s,"itensPorPagina":100,"quantidadeDePaginas":2,"quantidadeTotalDeItens":2}},`+
				`"cobs":[{"txid":"tx%s","status":"%s","pixCopiaECola":"000201"}]}`, page, page, status))
	})

	charges, err := client.ListPixCharges(context.Background(), start, end)
	require.NoError(t, err)

	assert.Equal(t, []string{"0", "1"}, pages)
	require.Len(t, charges, 2)
	assert.Equal(t, "tx0", charges[0].TxID)
	assert.Equal(t, "CONCLUIDA", charges[1].Status)
	assert.JSONEq(t, `{"txid":"tx1","status":"CONCLUIDA","pixCopiaECola":"000201"}`, string(charges[1].Raw))

	statuses, err := client.ListInstantTransferStatuses(context.Background(), start, end)
	require.NoError(t, err)
	require.Len(t, statuses, 2)
	assert.Equal(t, ports.GatewayStateCompleted, statuses[1].State)
	assert.Equal(t, "tx1", statuses[1].ExternalID)
}

func TestListPixCharges_RejectsEmptyWindow(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	})
	now := time.Now()

	_, err := client.ListPixCharges(context.Background(), now, now)
	assert.Error(t, err)
	_, err = client.ListPixCharges(context.Background(), time.Time{}, now)
	assert.Error(t, err)
}

func TestListPixCharges_GatewayError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, `{"type":"https://pix.bcb.gov.br/api/v2/error/ConsultarCobsInvalida","title":"Consulta inválida","status":400}`)
	})

	_, err := client.ListPixCharges(context.Background(), time.Now().Add(-time.Hour), time.Now())
	var gwErr *pkgerrors.GatewayError
	require.ErrorAs(t, err, &gwErr)
	assert.Equal(t, pkgerrors.KindInvalidRequest, gwErr.Kind)
}

func TestListWebhooks(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/pix/webhook", r.URL.Path)
		assert.Empty(t, r.URL.Query().Get("inicio"))
		writeJSON(w, http.StatusOK, `{"parametros":{"paginacao":{"paginaAtual":0,"itensPorPagina":100,"quantidadeDePaginas":1,"quantidadeTotalDeItens":2}},`+
			`"webhooks":[{"webhookUrl":"https://a.example/pix","chave":"payee@example.com","criacao":"2025-03-01T10:00:00Z"},`+
			`{"webhookUrl":"https://b.example/pix","chave":"+5511999990000"}]}`)
	})

	hooks, err := client.ListWebhooks(context.Background(), time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, hooks, 2)
	assert.Equal(t, "payee@example.com", hooks[0].Key)
	assert.Equal(t, "https://b.example/pix", hooks[1].WebhookURL)
}

func TestGetStatement(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/c6pay/statement/receivables", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "2025-03-01", q.Get("start_date"))
		assert.Equal(t, "2025-03-31", q.Get("end_date"))
		assert.Equal(t, "1", q.Get("page"))
		assert.Equal(t, "200", q.Get("size"))
		writeJSON(w, http.StatusOK, `{"content":[{"amount":10.5}],"page":1}`)
	})

	body, err := client.GetStatement(context.Background(), StatementReceivables,
		time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC), 0)
	require.NoError(t, err)
	assert.JSONEq(t, `{"content":[{"amount":10.5}],"page":1}`, string(body))

	_, err = client.GetStatement(context.Background(), "chargebacks", time.Now(), time.Time{}, 1)
	assert.Error(t, err)
}

func TestUpdateBankSlip(t *testing.T) {
	var body map[string]interface{}
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/v1/bank_slips/bs1", r.URL.Path)
		body = decodeBody(t, r)
		writeJSON(w, http.StatusOK, `{"id":"bs1","status":"REGISTERED","amount":150.00,"due_date":"2025-04-10"}`)
	})

	slip, err := client.UpdateBankSlip(context.Background(), "bs1", &BankSlipUpdate{
		Amount:  json.Number("150.00"),
		DueDate: "2025-04-10",
	})
	require.NoError(t, err)
	assert.Equal(t, "2025-04-10", slip.DueDate)
	assert.Equal(t, map[string]interface{}{"amount": 150.0, "due_date": "2025-04-10"}, body)

	_, err = client.UpdateBankSlip(context.Background(), "bs1", &BankSlipUpdate{})
	assert.True(t, pkgerrors.IsValidationError(err))
}
