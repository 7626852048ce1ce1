package c6bank

import (
	"encoding/json"
	"net/http"

	pkgerrors "github.com/kevin07696/collections-service/pkg/errors"
)

const problemTypeBase = "https://developers.c6bank.com.br/v1/error/"

var problemSlugs = map[int]string{
	http.StatusBadRequest:          "invalid_request",
	http.StatusUnauthorized:        "unauthorized",
	http.StatusForbidden:           "access_denied",
	http.StatusNotFound:            "not_found",
	http.StatusMethodNotAllowed:    "method_not_allowed",
	http.StatusUnprocessableEntity: "unprocessable_entity",
	http.StatusTooManyRequests:     "too_many_requests",
	http.StatusInternalServerError: "internal_server_error",
	http.StatusNotImplemented:      "not_implemented",
	http.StatusBadGateway:          "bad_gateway",
	http.StatusServiceUnavailable:  "service_unavailable",
	http.StatusGatewayTimeout:      "gateway_timeout",
}

// problemDocument is the RFC 7807 body the gateway returns on errors
type problemDocument struct {
	Type          string `json:"type"`
	Title         string `json:"title"`
	Status        int    `json:"status"`
	Timestamp     string `json:"timestamp"`
	CorrelationID string `json:"correlation_id"`
	Detail        string `json:"detail"`
}

// parseProblem turns a non-2xx response into a *GatewayError. Missing type and
// title are synthesised from the HTTP status. kind overrides the status-based
// classification when set.
func parseProblem(status int, header http.Header, body []byte, kind pkgerrors.Kind) *pkgerrors.GatewayError {
	var doc problemDocument
	_ = json.Unmarshal(body, &doc)

	if kind == "" {
		kind = pkgerrors.KindForStatus(status)
	}

	gwErr := &pkgerrors.GatewayError{
		Kind:          kind,
		Type:          doc.Type,
		Title:         doc.Title,
		Status:        status,
		Timestamp:     doc.Timestamp,
		CorrelationID: doc.CorrelationID,
		Detail:        doc.Detail,
	}

	if gwErr.Type == "" {
		slug, ok := problemSlugs[status]
		if !ok {
			slug = "unknown_error"
		}
		gwErr.Type = problemTypeBase + slug
	}
	if gwErr.Title == "" {
		gwErr.Title = http.StatusText(status)
		if gwErr.Title == "" {
			gwErr.Title = "Unexpected Gateway Response"
		}
	}
	if gwErr.CorrelationID == "" && header != nil {
		gwErr.CorrelationID = header.Get("X-Correlation-Id")
	}

	return gwErr
}

func malformedResponse(status int, err error) *pkgerrors.GatewayError {
	return &pkgerrors.GatewayError{
		Kind:   pkgerrors.KindServer,
		Type:   problemTypeBase + "malformed_response",
		Title:  "Malformed Gateway Response",
		Status: status,
		Err:    err,
	}
}
