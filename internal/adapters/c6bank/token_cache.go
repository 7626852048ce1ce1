package c6bank

import (
	"sync"
	"time"
)

// tokenRefreshMargin renews tokens a minute before the gateway expires them
const tokenRefreshMargin = 60 * time.Second

type cachedToken struct {
	value     string
	expiresAt time.Time
}

// TokenCache holds access tokens per environment. It is shared by every
// client in the process; two concurrent misses may both fetch a token.
type TokenCache struct {
	mu      sync.RWMutex
	entries map[string]cachedToken
	now     func() time.Time
}

// NewTokenCache creates an empty token cache
func NewTokenCache() *TokenCache {
	return &TokenCache{
		entries: make(map[string]cachedToken),
		now:     time.Now,
	}
}

// Get returns a token for environment that is still inside its validity window
func (c *TokenCache) Get(environment string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[environment]
	if !ok || !c.now().Before(entry.expiresAt) {
		return "", false
	}
	return entry.value, true
}

// Set stores a token that the gateway says lives for expiresIn
func (c *TokenCache) Set(environment, token string, expiresIn time.Duration) {
	ttl := expiresIn - tokenRefreshMargin
	if ttl <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[environment] = cachedToken{value: token, expiresAt: c.now().Add(ttl)}
}

// Invalidate drops the token for environment
func (c *TokenCache) Invalidate(environment string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, environment)
}
