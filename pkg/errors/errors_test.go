package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindForStatus(t *testing.T) {
	tests := []struct {
		status int
		want   Kind
	}{
		{http.StatusBadRequest, KindInvalidRequest},
		{http.StatusUnauthorized, KindUnauthorized},
		{http.StatusForbidden, KindAccessDenied},
		{http.StatusNotFound, KindNotFound},
		{http.StatusMethodNotAllowed, KindNotSupported},
		{http.StatusNotImplemented, KindNotSupported},
		{http.StatusUnprocessableEntity, KindUnprocessable},
		{http.StatusTooManyRequests, KindRateLimited},
		{http.StatusInternalServerError, KindServer},
		{http.StatusServiceUnavailable, KindServer},
		{http.StatusGatewayTimeout, KindServer},
		{http.StatusConflict, KindInvalidRequest},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.want, KindForStatus(tt.status))
		})
	}
}

func TestGatewayError_IsMatchesKindSentinel(t *testing.T) {
	err := fmt.Errorf("create charge: %w", NewGatewayError(KindUnprocessable, 422, "Unprocessable Entity", "invalid key"))

	assert.True(t, stderrors.Is(err, ErrUnprocessable))
	assert.False(t, stderrors.Is(err, ErrServer))
}

func TestGatewayError_Retriable(t *testing.T) {
	assert.True(t, NewGatewayError(KindServer, 503, "Service Unavailable", "").Retriable())
	assert.True(t, NewGatewayError(KindRateLimited, 429, "Too Many Requests", "").Retriable())
	assert.True(t, NewNetworkError(context.DeadlineExceeded).Retriable())
	assert.False(t, NewGatewayError(KindNotSupported, 405, "Method Not Allowed", "").Retriable())
	assert.False(t, NewGatewayError(KindAuthentication, 401, "Unauthorized", "").Retriable())
}

func TestGatewayError_MessageCarriesCorrelationID(t *testing.T) {
	gwErr := NewGatewayError(KindInvalidRequest, 400, "Bad Request", "valor.original invalid")
	gwErr.CorrelationID = "abc-123"

	assert.Contains(t, gwErr.Error(), "correlation_id=abc-123")
	assert.Contains(t, gwErr.Error(), "valor.original invalid")
	assert.Equal(t, "abc-123", CorrelationID(fmt.Errorf("wrapped: %w", gwErr)))
}

func TestNetworkError_UnwrapsCause(t *testing.T) {
	err := NewNetworkError(context.DeadlineExceeded)

	assert.True(t, stderrors.Is(err, context.DeadlineExceeded))
	assert.True(t, stderrors.Is(err, ErrNetwork))
	assert.True(t, IsRetriable(err))
}

func TestValidationError(t *testing.T) {
	err := fmt.Errorf("bank slip: %w", NewValidationError("payer.tax_id", "invalid check digits"))

	assert.True(t, IsValidationError(err))
	assert.EqualError(t, err, "bank slip: validation error on field 'payer.tax_id': invalid check digits")
	assert.False(t, IsValidationError(NewGatewayError(KindServer, 500, "x", "")))
}
