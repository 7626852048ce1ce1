package payment

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"github.com/kevin07696/collections-service/internal/domain"
	"github.com/kevin07696/collections-service/internal/services/ports"
	pkgerrors "github.com/kevin07696/collections-service/pkg/errors"
	"github.com/kevin07696/collections-service/pkg/observability"
	"github.com/kevin07696/collections-service/pkg/resilience"
	"go.uber.org/zap"
)

// Handler serves the collections REST API consumed by the presentation layer
type Handler struct {
	charges  ports.ChargeService
	recon    ports.ReconciliationService
	timeouts *resilience.TimeoutConfig
	location *time.Location
	logger   *zap.Logger
}

// NewHandler creates a new payment handler. Dates in query strings are read
// in loc.
func NewHandler(
	charges ports.ChargeService,
	recon ports.ReconciliationService,
	timeouts *resilience.TimeoutConfig,
	loc *time.Location,
	logger *zap.Logger,
) *Handler {
	if loc == nil {
		loc = time.UTC
	}
	return &Handler{
		charges:  charges,
		recon:    recon,
		timeouts: timeouts,
		location: loc,
		logger:   logger,
	}
}

type route struct {
	method  string
	pattern string
	name    string
	handle  runtime.HandlerFunc
}

// RegisterRoutes mounts every endpoint on mux
func (h *Handler) RegisterRoutes(mux *runtime.ServeMux) error {
	routes := []route{
		{http.MethodPost, "/api/v1/invoices/{invoice_id}/charges/instant_transfer", "create_instant_transfer", h.createCharge(domain.PaymentTypeInstantTransfer)},
		{http.MethodPost, "/api/v1/invoices/{invoice_id}/charges/bank_slip", "create_bank_slip", h.createCharge(domain.PaymentTypeBankSlip)},
		{http.MethodPost, "/api/v1/invoices/{invoice_id}/charges/card", "create_card_checkout", h.createCharge(domain.PaymentTypeCard)},
		{http.MethodGet, "/api/v1/invoices/{invoice_id}/amount-due", "amount_due", h.amountDue},
		{http.MethodGet, "/api/v1/transactions/{id}", "get_transaction", h.getTransaction},
		{http.MethodPost, "/api/v1/transactions/{id}/poll", "poll_transaction", h.pollTransaction},
		{http.MethodPost, "/api/v1/transactions/{id}/cancel", "cancel_transaction", h.cancelTransaction},
		{http.MethodGet, "/api/v1/transactions/{id}/bank-slip.pdf", "bank_slip_pdf", h.bankSlipPDF},
	}

	for _, rt := range routes {
		if err := mux.HandlePath(rt.method, rt.pattern, h.wrap(rt)); err != nil {
			return fmt.Errorf("register %s %s: %w", rt.method, rt.pattern, err)
		}
	}
	return nil
}

// wrap adds metrics and the handler deadline to a route
func (h *Handler) wrap(rt route) runtime.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request, params map[string]string) {
		observability.InstrumentHandler(rt.name, func(w http.ResponseWriter, r *http.Request) {
			if _, ok := r.Context().Deadline(); !ok {
				ctx, cancel := h.timeouts.HandlerContext(r.Context())
				defer cancel()
				r = r.WithContext(ctx)
			}
			rt.handle(w, r, params)
		})(w, r)
	}
}

func (h *Handler) createCharge(paymentType domain.PaymentType) runtime.HandlerFunc {
	create := map[domain.PaymentType]func(context.Context, int64) (*domain.Transaction, error){
		domain.PaymentTypeInstantTransfer: h.charges.CreateInstantTransferCharge,
		domain.PaymentTypeBankSlip:        h.charges.CreateBankSlip,
		domain.PaymentTypeCard:            h.charges.CreateCardCheckout,
	}[paymentType]

	return func(w http.ResponseWriter, r *http.Request, params map[string]string) {
		invoiceID, err := parseInvoiceID(params)
		if err != nil {
			h.writeError(w, r, err)
			return
		}

		h.logger.Info("charge requested",
			zap.Int64("invoice_id", invoiceID),
			zap.String("payment_type", string(paymentType)),
		)

		txn, err := create(r.Context(), invoiceID)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, txn, h.logger)
	}
}

func (h *Handler) amountDue(w http.ResponseWriter, r *http.Request, params map[string]string) {
	invoiceID, err := parseInvoiceID(params)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	var asOf time.Time
	if raw := r.URL.Query().Get("as_of"); raw != "" {
		asOf, err = time.ParseInLocation("2006-01-02", raw, h.location)
		if err != nil {
			h.writeError(w, r, pkgerrors.NewValidationError("as_of", "must be a date formatted YYYY-MM-DD"))
			return
		}
	}

	result, err := h.charges.AmountDue(r.Context(), invoiceID, asOf)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result, h.logger)
}

func (h *Handler) getTransaction(w http.ResponseWriter, r *http.Request, params map[string]string) {
	h.withTransactionID(w, r, params, h.charges.GetTransaction)
}

func (h *Handler) pollTransaction(w http.ResponseWriter, r *http.Request, params map[string]string) {
	h.withTransactionID(w, r, params, h.recon.PollStatus)
}

func (h *Handler) cancelTransaction(w http.ResponseWriter, r *http.Request, params map[string]string) {
	h.withTransactionID(w, r, params, h.charges.CancelTransaction)
}

func (h *Handler) withTransactionID(
	w http.ResponseWriter,
	r *http.Request,
	params map[string]string,
	op func(context.Context, uuid.UUID) (*domain.Transaction, error),
) {
	id, err := parseTransactionID(params)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	txn, err := op(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, txn, h.logger)
}

func (h *Handler) bankSlipPDF(w http.ResponseWriter, r *http.Request, params map[string]string) {
	id, err := parseTransactionID(params)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	pdf, err := h.charges.GetBankSlipPDF(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`inline; filename="bank-slip-%s.pdf"`, id))
	w.Header().Set("Content-Length", strconv.Itoa(len(pdf)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(pdf); err != nil {
		h.logger.Warn("failed to write bank slip pdf", zap.Error(err))
	}
}

func parseInvoiceID(params map[string]string) (int64, error) {
	id, err := strconv.ParseInt(params["invoice_id"], 10, 64)
	if err != nil || id <= 0 {
		return 0, pkgerrors.NewValidationError("invoice_id", "must be a positive integer")
	}
	return id, nil
}

func parseTransactionID(params map[string]string) (uuid.UUID, error) {
	id, err := uuid.Parse(params["id"])
	if err != nil {
		return uuid.Nil, pkgerrors.NewValidationError("id", "must be a UUID")
	}
	return id, nil
}
