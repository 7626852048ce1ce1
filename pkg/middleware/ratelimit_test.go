package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestRateLimiter_PerIP(t *testing.T) {
	rl := NewRateLimiter(1, 2, zap.NewNop())
	defer rl.Shutdown()

	handler := rl.HTTPHandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	call := func(remote string) int {
		req := httptest.NewRequest(http.MethodPost, "/webhooks/c6bank/pix", nil)
		req.RemoteAddr = remote
		rec := httptest.NewRecorder()
		handler(rec, req)
		return rec.Code
	}

	// ports differ but the host shares one bucket
	assert.Equal(t, http.StatusOK, call("203.0.113.7:1000"))
	assert.Equal(t, http.StatusOK, call("203.0.113.7:1001"))
	assert.Equal(t, http.StatusTooManyRequests, call("203.0.113.7:1002"))

	assert.Equal(t, http.StatusOK, call("198.51.100.1:1000"))
}

func TestRateLimiter_Cleanup(t *testing.T) {
	rl := NewRateLimiter(10, 10, zap.NewNop())
	defer rl.Shutdown()

	rl.Allow("203.0.113.7")
	rl.Allow("198.51.100.1")
	assert.Len(t, rl.limiters, 2)

	rl.cleanup(time.Now().Add(rl.cleanupInterval + time.Second))
	assert.Empty(t, rl.limiters)
}

func TestRateLimiter_EvictsOldestAtCapacity(t *testing.T) {
	rl := NewRateLimiter(10, 10, zap.NewNop())
	defer rl.Shutdown()
	rl.maxSize = 2

	rl.Allow("a")
	time.Sleep(time.Millisecond)
	rl.Allow("b")
	rl.Allow("c")

	assert.Len(t, rl.limiters, 2)
	assert.NotContains(t, rl.limiters, "a")
}

func TestRateLimiter_ShutdownTwice(t *testing.T) {
	rl := NewRateLimiter(1, 1, zap.NewNop())
	rl.Shutdown()
	assert.NotPanics(t, rl.Shutdown)
}
