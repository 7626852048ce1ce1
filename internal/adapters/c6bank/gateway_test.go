package c6bank

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/kevin07696/collections-service/internal/domain"
	"github.com/kevin07696/collections-service/internal/domain/ports"
	pkgerrors "github.com/kevin07696/collections-service/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeBody(t *testing.T, r *http.Request) map[string]interface{} {
	t.Helper()
	data, err := io.ReadAll(r.Body)
	require.NoError(t, err)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &body))
	return body
}

func TestCreateCharge_InstantTransfer(t *testing.T) {
	var body map[string]interface{}
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v2/pix/cob", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body = decodeBody(t, r)
		writeJSON(w, http.StatusCreated, `{"txid":"7978c0c97ea847e78e8849634473c1f1","status":"ATIVA","pixCopiaECola":"00020101021226...","calendario":{"expiracao":1800}}`)
	})

	req, err := domain.NewInstantTransfer(decimal.RequireFromString("102.33"), "payee@example.com", "Mensalidade 03/2025", 30*time.Minute)
	require.NoError(t, err)

	result, err := client.CreateCharge(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, "7978c0c97ea847e78e8849634473c1f1", result.ExternalID)
	assert.Equal(t, "00020101021226...", result.PaymentCode)
	assert.Equal(t, ports.GatewayStateActive, result.State)
	assert.NotEmpty(t, result.Raw)

	assert.Equal(t, "payee@example.com", body["chave"])
	assert.Equal(t, "Mensalidade 03/2025", body["solicitacaoPagador"])
	assert.Equal(t, map[string]interface{}{"original": "102.33"}, body["valor"])
	assert.Equal(t, float64(1800), body["calendario"].(map[string]interface{})["expiracao"])
}

func TestCreateCharge_BankSlipOverdue(t *testing.T) {
	var (
		body    map[string]interface{}
		partner string
	)
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/bank_slips/", r.URL.Path)
		partner = r.Header.Get(headerPartnerSoftwareName)
		body = decodeBody(t, r)
		writeJSON(w, http.StatusCreated, `{"id":"bs-1","status":"REGISTERED","digitable_line":"33690.00000 00000.000000 00000.000000 1 00000000025000"}`)
	})
	client.config.PartnerSoftwareName = "collections"

	slip, err := domain.NewBankSlip(domain.BankSlipParams{
		Amount:            decimal.RequireFromString("250.00"),
		DueDate:           time.Date(2025, 4, 10, 0, 0, 0, 0, time.UTC),
		ExternalReference: "A1B2C3",
		Payer: domain.Payer{
			Name:  "Maria Souza",
			TaxID: "529.982.247-25",
			Address: domain.Address{
				Street: "Av. Paulista", Number: "1000", City: "Sao Paulo", State: "SP", PostalCode: "01310-100",
			},
		},
		Overdue: true,
	})
	require.NoError(t, err)

	result, err := client.CreateCharge(context.Background(), slip)
	require.NoError(t, err)

	assert.Equal(t, "bs-1", result.ExternalID)
	assert.Contains(t, result.PaymentCode, "33690")
	assert.Equal(t, ports.GatewayStateActive, result.State)
	assert.Equal(t, "collections", partner)

	assert.Equal(t, "A1B2C3", body["external_reference_id"])
	assert.Equal(t, 250.0, body["amount"])
	assert.Equal(t, "2025-04-10", body["due_date"])
	payer := body["payer"].(map[string]interface{})
	assert.Equal(t, "52998224725", payer["tax_id"])
	assert.Equal(t, "01310100", payer["address"].(map[string]interface{})["zip_code"])
	assert.Equal(t, map[string]interface{}{"type": SlipFeePercentage, "value": 2.0}, body["fine"])
	assert.Equal(t, map[string]interface{}{"type": SlipFeeMonthlyPercentage, "value": 1.0}, body["interest"])
}

func TestCreateCharge_CardCheckout(t *testing.T) {
	var body map[string]interface{}
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/checkouts/", r.URL.Path)
		body = decodeBody(t, r)
		writeJSON(w, http.StatusCreated, `{"id":"co-1","url":"https://checkout.example/co-1"}`)
	})

	checkout, err := domain.NewCardCheckout(domain.CardCheckoutParams{
		Amount:       decimal.RequireFromString("102.33"),
		Description:  "Mensalidade",
		Payer:        domain.Payer{Name: "Maria", TaxID: "52998224725", Phone: "(11) 98765-4321"},
		Installments: 1,
		Capture:      true,
		Expiration:   168 * time.Hour,
	})
	require.NoError(t, err)

	result, err := client.CreateCharge(context.Background(), checkout)
	require.NoError(t, err)

	assert.Equal(t, "co-1", result.ExternalID)
	assert.Equal(t, "https://checkout.example/co-1", result.PaymentURL)
	assert.Equal(t, result.PaymentURL, result.PaymentCode)

	card := body["payment"].(map[string]interface{})["card"].(map[string]interface{})
	assert.Equal(t, float64(1), card["installments"])
	assert.Equal(t, true, card["capture"])
	assert.Equal(t, false, card["interest"])
	assert.Equal(t, "11987654321", body["payer"].(map[string]interface{})["phone_number"])

	expiresAt, err := time.Parse("2006-01-02T15:04:05.000Z", body["expiration_date_time"].(string))
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(168*time.Hour), expiresAt, time.Minute)
}

func TestCreateCharge_GatewayRejection(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, `{"title":"Method Not Allowed","correlation_id":"x1"}`)
	})

	req, err := domain.NewInstantTransfer(decimal.RequireFromString("10.00"), "key", "", time.Minute)
	require.NoError(t, err)

	_, err = client.CreateCharge(context.Background(), req)

	require.Error(t, err)
	assert.ErrorIs(t, err, pkgerrors.ErrNotSupported)
	assert.False(t, pkgerrors.IsRetriable(err))
}

func TestGetChargeStatus(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v2/pix/cob/tx1":
			writeJSON(w, http.StatusOK, `{"txid":"tx1","status":"CONCLUIDA","pixCopiaECola":"000201"}`)
		case "/v1/bank_slips/bs1":
			writeJSON(w, http.StatusOK, `{"id":"bs1","status":"CANCELLED"}`)
		case "/v1/checkouts/co1":
			writeJSON(w, http.StatusOK, `{"id":"co1","status":"IN_ANALYSIS","url":"https://checkout.example/co1"}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	ctx := context.Background()

	status, err := client.GetChargeStatus(ctx, domain.PaymentTypeInstantTransfer, "tx1")
	require.NoError(t, err)
	assert.Equal(t, ports.GatewayStateCompleted, status.State)
	assert.Equal(t, "CONCLUIDA", status.RawStatus)
	assert.Equal(t, "000201", status.PaymentCode)

	status, err = client.GetChargeStatus(ctx, domain.PaymentTypeBankSlip, "bs1")
	require.NoError(t, err)
	assert.Equal(t, ports.GatewayStateCancelled, status.State)

	status, err = client.GetChargeStatus(ctx, domain.PaymentTypeCard, "co1")
	require.NoError(t, err)
	assert.Equal(t, ports.GatewayStateProcessing, status.State)
}

func TestCancelCharge(t *testing.T) {
	var paths []string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		paths = append(paths, r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	})

	ctx := context.Background()
	require.NoError(t, client.CancelCharge(ctx, domain.PaymentTypeBankSlip, "bs1"))
	require.NoError(t, client.CancelCharge(ctx, domain.PaymentTypeCard, "co1"))

	err := client.CancelCharge(ctx, domain.PaymentTypeInstantTransfer, "tx1")
	assert.True(t, pkgerrors.IsValidationError(err))

	assert.Equal(t, []string{"/v1/bank_slips/bs1/cancel", "/v1/checkouts/co1/cancel"}, paths)
}

func TestGetBankSlipPDF(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/bank_slips/bs1/pdf", r.URL.Path)
		assert.Equal(t, "application/pdf", r.Header.Get("Accept"))
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte("%PDF-1.4"))
	})

	pdf, err := client.GetBankSlipPDF(context.Background(), "bs1")

	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-1.4"), pdf)
}

func TestWebhookManagement(t *testing.T) {
	var registered string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/pix/webhook/payee@example.com", r.URL.Path)
		switch r.Method {
		case http.MethodPut:
			registered = decodeBody(t, r)["webhookUrl"].(string)
			writeJSON(w, http.StatusOK, `{}`)
		case http.MethodGet:
			writeJSON(w, http.StatusOK, `{"webhookUrl":"`+registered+`","chave":"payee@example.com"}`)
		case http.MethodDelete:
			w.WriteHeader(http.StatusNoContent)
		}
	})

	ctx := context.Background()
	require.NoError(t, client.RegisterWebhook(ctx, client.PixKey(), "https://collections.example/webhooks/c6bank/pix"))

	hook, err := client.GetWebhook(ctx, client.PixKey())
	require.NoError(t, err)
	assert.Equal(t, "https://collections.example/webhooks/c6bank/pix", hook.WebhookURL)

	require.NoError(t, client.DeleteWebhook(ctx, client.PixKey()))
}

func TestStateNormalisation(t *testing.T) {
	assert.Equal(t, ports.GatewayStateActive, PixState("ATIVA"))
	assert.Equal(t, ports.GatewayStateCompleted, PixState("CONCLUIDA"))
	assert.Equal(t, ports.GatewayStateRemovedByPayee, PixState("REMOVIDA_PELO_USUARIO_RECEBEDOR"))
	assert.Equal(t, ports.GatewayStateRemovedByProvider, PixState("REMOVIDA_PELO_PSP"))
	assert.Equal(t, ports.GatewayStateUnknown, PixState("NOVO"))

	for _, s := range []string{"PAID", "settled", "LIQUIDATED"} {
		assert.Equal(t, ports.GatewayStateCompleted, BankSlipState(s), s)
	}
	for _, s := range []string{"CANCELLED", "CANCELED", "WRITTEN_OFF"} {
		assert.Equal(t, ports.GatewayStateCancelled, BankSlipState(s), s)
	}
	assert.Equal(t, ports.GatewayStateActive, BankSlipState("REGISTERED"))

	assert.Equal(t, ports.GatewayStateCompleted, CheckoutState("CAPTURED"))
	assert.Equal(t, ports.GatewayStateProcessing, CheckoutState("AUTHORIZED"))
	assert.Equal(t, ports.GatewayStateRemovedByPayee, CheckoutState("DECLINED"))
	assert.Equal(t, ports.GatewayStateCancelled, CheckoutState("EXPIRED"))
	assert.Equal(t, ports.GatewayStateActive, CheckoutState("CREATED"))
}
