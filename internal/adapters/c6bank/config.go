package c6bank

import (
	"fmt"
	"strings"
	"time"
)

// Gateway environments
const (
	EnvironmentSandbox    = "sandbox"
	EnvironmentProduction = "production"
)

const (
	SandboxBaseURL    = "https://baas-api-sandbox.c6bank.info"
	ProductionBaseURL = "https://baas-api.c6bank.info"

	defaultTimeout = 30 * time.Second
	userAgent      = "collections-service/1.0"
)

// Config contains configuration for the C6 Bank client
type Config struct {
	// Environment selects the credentials and base URL: sandbox or production
	Environment string

	// BaseURL overrides the environment default (tests, proxies)
	BaseURL string

	ClientID     string
	ClientSecret string

	// PixKey is the payee routing key charges are paid to
	PixKey string

	Timeout time.Duration

	// Optional partner identification sent on bank slip requests
	PartnerSoftwareName    string
	PartnerSoftwareVersion string
}

// DefaultConfig returns the configuration for an environment. Anything that is
// not sandbox is treated as production.
func DefaultConfig(environment string) *Config {
	env := strings.ToLower(strings.TrimSpace(environment))
	baseURL := ProductionBaseURL
	if env == EnvironmentSandbox {
		baseURL = SandboxBaseURL
	} else {
		env = EnvironmentProduction
	}

	return &Config{
		Environment: env,
		BaseURL:     baseURL,
		Timeout:     defaultTimeout,
	}
}

// Validate checks that the client can authenticate
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("c6bank: base URL is required")
	}
	if c.ClientID == "" {
		return fmt.Errorf("c6bank: client id is required")
	}
	if c.ClientSecret == "" {
		return fmt.Errorf("c6bank: client secret is required")
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	return nil
}
