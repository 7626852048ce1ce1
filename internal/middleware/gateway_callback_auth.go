package middleware

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// SignatureHeader carries the hex HMAC-SHA256 of the raw request body
const SignatureHeader = "X-Signature"

type contextKey string

const clientIPKey contextKey = "client_ip"

// ClientIP returns the caller address recorded by GatewayCallbackAuth
func ClientIP(ctx context.Context) string {
	ip, _ := ctx.Value(clientIPKey).(string)
	return ip
}

// CallbackAuthConfig configures inbound gateway callback checks
type CallbackAuthConfig struct {
	// AllowedIPs lists single addresses or CIDR ranges. Empty disables the
	// address check.
	AllowedIPs []string
	// HMACSecret enables signature verification when set
	HMACSecret string
	// AllowPrivate admits loopback and private addresses, for local development
	AllowPrivate bool
	// TrustForwardedFor reads the caller from X-Forwarded-For / X-Real-IP.
	// Only enable behind a proxy that overwrites those headers.
	TrustForwardedFor bool
}

// GatewayCallbackAuth authenticates notifications pushed by the banking gateway
type GatewayCallbackAuth struct {
	networks     []*net.IPNet
	secret       []byte
	allowPrivate bool
	trustProxy   bool
	logger       *zap.Logger
}

// NewGatewayCallbackAuth parses the allowlist and creates the authenticator
func NewGatewayCallbackAuth(cfg CallbackAuthConfig, logger *zap.Logger) (*GatewayCallbackAuth, error) {
	auth := &GatewayCallbackAuth{
		secret:       []byte(cfg.HMACSecret),
		allowPrivate: cfg.AllowPrivate,
		trustProxy:   cfg.TrustForwardedFor,
		logger:       logger,
	}

	for _, entry := range cfg.AllowedIPs {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if !strings.Contains(entry, "/") {
			if ip := net.ParseIP(entry); ip != nil && ip.To4() != nil {
				entry += "/32"
			} else {
				entry += "/128"
			}
		}
		_, network, err := net.ParseCIDR(entry)
		if err != nil {
			return nil, fmt.Errorf("invalid callback allowlist entry %q: %w", entry, err)
		}
		auth.networks = append(auth.networks, network)
	}

	if len(auth.networks) == 0 {
		logger.Warn("gateway callback IP allowlist is empty, address check disabled")
	}
	if len(auth.secret) == 0 {
		logger.Warn("gateway callback HMAC secret not set, signature check disabled")
	}

	return auth, nil
}

// Middleware wraps an HTTP handler with gateway callback authentication
func (g *GatewayCallbackAuth) Middleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clientIP := g.clientIP(r)
		if !g.isAllowed(clientIP) {
			g.logger.Warn("gateway callback from unauthorized IP",
				zap.String("ip", clientIP),
				zap.String("path", r.URL.Path),
			)
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}

		if len(g.secret) > 0 {
			signature := strings.TrimPrefix(r.Header.Get(SignatureHeader), "sha256=")
			if signature == "" {
				g.logger.Warn("gateway callback missing signature",
					zap.String("ip", clientIP),
				)
				http.Error(w, "Missing signature", http.StatusUnauthorized)
				return
			}

			body, err := io.ReadAll(r.Body)
			if err != nil {
				g.logger.Error("failed to read callback body",
					zap.String("ip", clientIP),
					zap.Error(err),
				)
				http.Error(w, "Bad request", http.StatusBadRequest)
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			if !g.validSignature(body, signature) {
				g.logger.Warn("gateway callback signature mismatch",
					zap.String("ip", clientIP),
					zap.String("path", r.URL.Path),
				)
				http.Error(w, "Invalid signature", http.StatusUnauthorized)
				return
			}
		}

		g.logger.Debug("gateway callback authenticated", zap.String("ip", clientIP))
		next(w, r.WithContext(context.WithValue(r.Context(), clientIPKey, clientIP)))
	}
}

func (g *GatewayCallbackAuth) isAllowed(raw string) bool {
	ip := net.ParseIP(raw)
	if ip == nil {
		return false
	}
	if g.allowPrivate && (ip.IsLoopback() || ip.IsPrivate()) {
		return true
	}
	if len(g.networks) == 0 {
		return true
	}
	for _, network := range g.networks {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

func (g *GatewayCallbackAuth) validSignature(body []byte, signature string) bool {
	provided, err := hex.DecodeString(strings.ToLower(signature))
	if err != nil {
		return false
	}
	return hmac.Equal(provided, Sign(g.secret, body))
}

// Sign computes the HMAC-SHA256 of body
func Sign(secret, body []byte) []byte {
	h := hmac.New(sha256.New, secret)
	h.Write(body)
	return h.Sum(nil)
}

func (g *GatewayCallbackAuth) clientIP(r *http.Request) string {
	if g.trustProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			if ip := strings.TrimSpace(first); ip != "" {
				return ip
			}
		}
		if xri := r.Header.Get("X-Real-IP"); xri != "" {
			return strings.TrimSpace(xri)
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
