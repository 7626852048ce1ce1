package c6bank

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/kevin07696/collections-service/internal/domain/ports"
	pkgerrors "github.com/kevin07696/collections-service/pkg/errors"
	"github.com/kevin07696/collections-service/pkg/observability"
	"github.com/kevin07696/collections-service/pkg/resilience"
	"go.uber.org/zap"
)

const (
	headerPartnerSoftwareName    = "partner-software-name"
	headerPartnerSoftwareVersion = "partner-software-version"

	contentTypeJSON = "application/json"
	contentTypePDF  = "application/pdf"
)

// Client talks to the C6 Bank API over mutual TLS. It never retries; callers
// decide what to do with a *errors.GatewayError.
type Client struct {
	config     *Config
	httpClient ports.HTTPClient
	tokens     *TokenCache
	breaker    *resilience.CircuitBreaker
	logger     *zap.Logger
}

// NewClient creates a client over an existing HTTP client. tokens may be nil
// when the client is the only one in the process.
func NewClient(config *Config, httpClient ports.HTTPClient, tokens *TokenCache, logger *zap.Logger) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if tokens == nil {
		tokens = NewTokenCache()
	}

	breakerConfig := resilience.DefaultCircuitBreakerConfig()
	breakerConfig.IsFailure = countsAgainstCircuit
	breaker := resilience.NewCircuitBreaker(breakerConfig)
	breaker.OnStateChange(func(from, to resilience.CircuitState) {
		observability.SetGatewayCircuitState(int(to))
		logger.Warn("Gateway circuit breaker changed state",
			zap.String("from", from.String()),
			zap.String("to", to.String()),
		)
	})

	return &Client{
		config:     config,
		httpClient: httpClient,
		tokens:     tokens,
		breaker:    breaker,
		logger:     logger,
	}, nil
}

// NewClientWithCertificate creates a client with its own mTLS HTTP client
func NewClientWithCertificate(config *Config, cert tls.Certificate, tokens *TokenCache, logger *zap.Logger) (*Client, error) {
	return NewClient(config, NewMTLSHTTPClient(cert, config.Timeout), tokens, logger)
}

// countsAgainstCircuit trips the breaker only on outages, never on requests
// the gateway rejected on their merits
func countsAgainstCircuit(err error) bool {
	gwErr, ok := pkgerrors.AsGatewayError(err)
	if !ok {
		return true
	}
	return gwErr.Kind == pkgerrors.KindNetwork || gwErr.Kind == pkgerrors.KindServer
}

// Environment returns sandbox or production
func (c *Client) Environment() string {
	return c.config.Environment
}

// PixKey returns the configured payee routing key
func (c *Client) PixKey() string {
	return c.config.PixKey
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// AccessToken returns a cached bearer token or fetches a new one with the
// client credentials grant
func (c *Client) AccessToken(ctx context.Context) (string, error) {
	if token, ok := c.tokens.Get(c.config.Environment); ok {
		return token, nil
	}

	form := url.Values{"grant_type": {"client_credentials"}}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/v1/auth/", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create token request: %w", err)
	}
	httpReq.SetBasicAuth(c.config.ClientID, c.config.ClientSecret)
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("Accept", contentTypeJSON)
	httpReq.Header.Set("User-Agent", userAgent)

	c.logger.Info("Requesting gateway access token",
		zap.String("environment", c.config.Environment),
	)

	body, status, err := c.roundTrip("token", httpReq, pkgerrors.KindAuthentication)
	if err != nil {
		observability.RecordTokenRefresh(c.config.Environment, false)
		return "", err
	}

	var tok tokenResponse
	if err := json.Unmarshal(body, &tok); err != nil || tok.AccessToken == "" {
		observability.RecordTokenRefresh(c.config.Environment, false)
		if err == nil {
			err = errors.New("response has no access_token")
		}
		return "", malformedResponse(status, err)
	}

	expiresIn := tok.ExpiresIn
	if expiresIn <= 0 {
		expiresIn = 3600
	}
	c.tokens.Set(c.config.Environment, tok.AccessToken, time.Duration(expiresIn)*time.Second)
	observability.RecordTokenRefresh(c.config.Environment, true)

	return tok.AccessToken, nil
}

// apiRequest describes one authenticated call. op names the call in metrics
// and logs.
type apiRequest struct {
	op      string
	method  string
	path    string
	body    interface{}
	query   url.Values
	headers map[string]string
	accept  string
}

// Do sends an authenticated JSON request and decodes the response into out
// (which may be nil)
func (c *Client) Do(ctx context.Context, method, path string, body interface{}, query url.Values, out interface{}) error {
	return c.call(ctx, apiRequest{op: "custom", method: method, path: path, body: body, query: query}, out)
}

func (c *Client) call(ctx context.Context, req apiRequest, out interface{}) error {
	data, status, err := c.send(ctx, req)
	if err != nil {
		return err
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return malformedResponse(status, fmt.Errorf("failed to decode %s response: %w", req.op, err))
	}
	return nil
}

func (c *Client) send(ctx context.Context, req apiRequest) ([]byte, int, error) {
	token, err := c.AccessToken(ctx)
	if err != nil {
		return nil, 0, err
	}

	var payload io.Reader
	if req.body != nil {
		encoded, err := json.Marshal(req.body)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to encode %s request: %w", req.op, err)
		}
		payload = bytes.NewReader(encoded)
	}

	endpoint := c.config.BaseURL + req.path
	if len(req.query) > 0 {
		endpoint += "?" + req.query.Encode()
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, endpoint, payload)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create %s request: %w", req.op, err)
	}

	accept := req.accept
	if accept == "" {
		accept = contentTypeJSON
	}
	httpReq.Header.Set("Authorization", "Bearer "+token)
	httpReq.Header.Set("Accept", accept)
	httpReq.Header.Set("User-Agent", userAgent)
	if payload != nil {
		httpReq.Header.Set("Content-Type", contentTypeJSON)
	}
	for k, v := range req.headers {
		httpReq.Header.Set(k, v)
	}

	c.logger.Debug("Sending gateway request",
		zap.String("operation", req.op),
		zap.String("method", req.method),
		zap.String("path", req.path),
	)

	body, status, err := c.roundTrip(req.op, httpReq, "")
	if err != nil {
		if errors.Is(err, pkgerrors.ErrUnauthorized) {
			// the token was revoked or expired early; fetch a fresh one next time
			c.tokens.Invalidate(c.config.Environment)
		}
		return nil, status, err
	}
	return body, status, nil
}

// roundTrip executes httpReq through the circuit breaker and classifies the
// outcome. Non-2xx responses become *GatewayError of the given kind, or of the
// kind implied by the status when kind is empty.
func (c *Client) roundTrip(op string, httpReq *http.Request, kind pkgerrors.Kind) ([]byte, int, error) {
	var (
		body   []byte
		status int
	)
	statusLabel := "network"
	start := time.Now()

	err := c.breaker.Call(func() error {
		resp, err := c.httpClient.Do(httpReq)
		if err != nil {
			return pkgerrors.NewNetworkError(err)
		}
		defer resp.Body.Close()

		status = resp.StatusCode
		statusLabel = strconv.Itoa(resp.StatusCode)

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return pkgerrors.NewNetworkError(fmt.Errorf("failed to read response: %w", err))
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return parseProblem(resp.StatusCode, resp.Header, data, kind)
		}
		body = data
		return nil
	})
	elapsed := time.Since(start)

	if errors.Is(err, resilience.ErrCircuitOpen) || errors.Is(err, resilience.ErrTooManyRequests) {
		statusLabel = "circuit_open"
		err = pkgerrors.NewNetworkError(err)
	}
	observability.RecordGatewayRequest(op, statusLabel, elapsed)

	if err != nil {
		fields := []zap.Field{
			zap.String("operation", op),
			zap.Duration("elapsed", elapsed),
			zap.Error(err),
		}
		if gwErr, ok := pkgerrors.AsGatewayError(err); ok {
			fields = append(fields,
				zap.String("kind", string(gwErr.Kind)),
				zap.Int("status", gwErr.Status),
				zap.String("correlation_id", gwErr.CorrelationID),
			)
		}
		c.logger.Warn("Gateway request failed", fields...)
		return nil, status, err
	}

	c.logger.Debug("Gateway request completed",
		zap.String("operation", op),
		zap.Int("status", status),
		zap.Duration("elapsed", elapsed),
	)
	return body, status, nil
}

// partnerHeaders returns the optional partner identification headers
func (c *Client) partnerHeaders() map[string]string {
	headers := map[string]string{}
	if c.config.PartnerSoftwareName != "" {
		headers[headerPartnerSoftwareName] = c.config.PartnerSoftwareName
	}
	if c.config.PartnerSoftwareVersion != "" {
		headers[headerPartnerSoftwareVersion] = c.config.PartnerSoftwareVersion
	}
	return headers
}

// callRaw is call that also hands back the undecoded body for auditing
func (c *Client) callRaw(ctx context.Context, req apiRequest, out interface{}) (json.RawMessage, error) {
	data, status, err := c.send(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return nil, malformedResponse(status, fmt.Errorf("failed to decode %s response: %w", req.op, err))
	}
	return json.RawMessage(data), nil
}
