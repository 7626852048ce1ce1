package resilience

import (
	"context"
	"time"
)

// TimeoutConfig defines the timeout hierarchy, outermost first:
//
//	HTTP handler (60s)
//	  Service operation (50s)
//	    Gateway call (30s)
//	      Database query (2s/5s/30s, set on the pool)
//
// Each layer must finish before its parent gives up.
type TimeoutConfig struct {
	HTTPHandler time.Duration
	CronJob     time.Duration

	Service time.Duration
	// NotificationBatch bounds one webhook delivery; the gateway resends on timeout
	NotificationBatch time.Duration

	ExternalAPI time.Duration
}

// DefaultTimeoutConfig returns production timeout values
func DefaultTimeoutConfig() *TimeoutConfig {
	return &TimeoutConfig{
		HTTPHandler:       60 * time.Second,
		CronJob:           5 * time.Minute,
		Service:           50 * time.Second,
		NotificationBatch: 30 * time.Second,
		ExternalAPI:       30 * time.Second,
	}
}

// TestTimeoutConfig returns shorter timeouts for testing
func TestTimeoutConfig() *TimeoutConfig {
	return &TimeoutConfig{
		HTTPHandler:       5 * time.Second,
		CronJob:           30 * time.Second,
		Service:           4 * time.Second,
		NotificationBatch: 3 * time.Second,
		ExternalAPI:       2 * time.Second,
	}
}

// HandlerContext creates a context with timeout for HTTP handlers
func (tc *TimeoutConfig) HandlerContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, tc.HTTPHandler)
}

// CronContext creates a context with timeout for cron jobs
func (tc *TimeoutConfig) CronContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, tc.CronJob)
}

// ServiceContext creates a context with timeout for service layer operations
func (tc *TimeoutConfig) ServiceContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, tc.Service)
}

// NotificationContext bounds processing of one notification batch
func (tc *TimeoutConfig) NotificationContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, tc.NotificationBatch)
}

// ExternalAPIContext creates a context for gateway calls
func (tc *TimeoutConfig) ExternalAPIContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, tc.ExternalAPI)
}
