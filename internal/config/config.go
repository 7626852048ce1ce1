package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // billing timezone must load in minimal containers

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environments
const (
	EnvironmentDevelopment = "development"
	EnvironmentProduction  = "production"
)

// Config holds all application configuration
type Config struct {
	Environment string          `yaml:"environment"`
	Server      ServerConfig    `yaml:"server"`
	Database    DatabaseConfig  `yaml:"database"`
	Gateway     GatewayConfig   `yaml:"gateway"`
	Billing     BillingConfig   `yaml:"billing"`
	Secrets     SecretsConfig   `yaml:"secrets"`
	Webhook     WebhookConfig   `yaml:"webhook"`
	Cron        CronConfig      `yaml:"cron"`
	APIAuth     APIAuthConfig   `yaml:"api_auth"`
	RateLimit   RateLimitConfig `yaml:"rate_limit"`
	Logger      LoggerConfig    `yaml:"logger"`
}

// ServerConfig holds listener ports
type ServerConfig struct {
	HTTPPort    int `yaml:"http_port"`
	GRPCPort    int `yaml:"grpc_port"`
	MetricsPort int `yaml:"metrics_port"`
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"name"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int32  `yaml:"max_conns"`
	MinConns int32  `yaml:"min_conns"`
}

// GatewayConfig holds C6 Bank client configuration. The client secret comes
// either inline or from the secrets backend at ClientSecretPath; the
// certificate pair always comes from the backend.
type GatewayConfig struct {
	Environment            string        `yaml:"environment"` // sandbox or production
	BaseURL                string        `yaml:"base_url"`    // overrides the environment default
	ClientID               string        `yaml:"client_id"`
	ClientSecret           string        `yaml:"-"`
	ClientSecretPath       string        `yaml:"client_secret_path"`
	CertPath               string        `yaml:"cert_path"`
	KeyPath                string        `yaml:"key_path"`
	PixKey                 string        `yaml:"pix_key"`
	Timeout                time.Duration `yaml:"timeout"`
	PartnerSoftwareName    string        `yaml:"partner_software_name"`
	PartnerSoftwareVersion string        `yaml:"partner_software_version"`
}

// BillingConfig holds charge defaults and the business calendar
type BillingConfig struct {
	Timezone             string        `yaml:"timezone"`
	PixExpiration        time.Duration `yaml:"pix_expiration"`
	CheckoutExpiration   time.Duration `yaml:"checkout_expiration"`
	BankSlipGraceDays    int           `yaml:"bank_slip_grace_days"`
	BankSlipValidityDays int           `yaml:"bank_slip_validity_days"`
	CardInstallments     int           `yaml:"card_installments"`
}

// SecretsConfig selects the secrets backend
type SecretsConfig struct {
	Backend      string `yaml:"backend"` // local, vault, aws or gcp
	LocalPath    string `yaml:"local_path"`
	VaultAddress string `yaml:"vault_address"`
	VaultToken   string `yaml:"-"`
	AWSRegion    string `yaml:"aws_region"`
	GCPProjectID string `yaml:"gcp_project_id"`
}

// WebhookConfig configures the inbound notification endpoint
type WebhookConfig struct {
	AllowedIPs        []string `yaml:"allowed_ips"`
	HMACSecret        string   `yaml:"-"`
	PublicURL         string   `yaml:"public_url"`
	TrustForwardedFor bool     `yaml:"trust_forwarded_for"`
}

// CronConfig authenticates scheduler calls
type CronConfig struct {
	Secret string `yaml:"-"`
}

// APIAuthConfig configures bearer token checks for internal API callers
type APIAuthConfig struct {
	KeysDir  string `yaml:"keys_dir"` // <issuer>.pem public keys
	Audience string `yaml:"audience"`
}

// RateLimitConfig bounds requests per client address
type RateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

// LoggerConfig holds logging configuration
type LoggerConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// Default returns the built-in defaults
func Default() *Config {
	return &Config{
		Environment: EnvironmentDevelopment,
		Server: ServerConfig{
			HTTPPort:    8081,
			GRPCPort:    50051,
			MetricsPort: 9090,
		},
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "postgres",
			Database: "collections",
			SSLMode:  "disable",
			MaxConns: 25,
			MinConns: 5,
		},
		Gateway: GatewayConfig{
			Environment: "sandbox",
			Timeout:     30 * time.Second,
		},
		Billing: BillingConfig{
			Timezone:             "America/Sao_Paulo",
			PixExpiration:        1800 * time.Second,
			CheckoutExpiration:   168 * time.Hour,
			BankSlipGraceDays:    3,
			BankSlipValidityDays: 30,
			CardInstallments:     1,
		},
		Secrets: SecretsConfig{
			Backend:   "local",
			LocalPath: "./secrets",
		},
		RateLimit: RateLimitConfig{
			RPS:   10,
			Burst: 20,
		},
		Logger: LoggerConfig{
			Level: "info",
		},
	}
}

// LoadFromEnv reads .env when present, then CONFIG_FILE defaults, then
// environment variables
func LoadFromEnv() (*Config, error) {
	return Load(".env")
}

// Load is LoadFromEnv with an explicit dotenv path. Variables already in the
// environment win over the dotenv file.
func Load(dotEnvPath string) (*Config, error) {
	cfg, err := Read(dotEnvPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Read layers the sources like Load but skips validation, for tools that only
// need part of the configuration
func Read(dotEnvPath string) (*Config, error) {
	if dotEnvPath != "" {
		if err := godotenv.Load(dotEnvPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", dotEnvPath, err)
		}
	}

	cfg := Default()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	var errs []error
	durations := func(key string, def time.Duration) time.Duration {
		d, err := getEnvAsDuration(key, def)
		if err != nil {
			errs = append(errs, err)
		}
		return d
	}

	c.Environment = getEnv("ENVIRONMENT", c.Environment)

	c.Server.HTTPPort = getEnvAsInt("HTTP_PORT", c.Server.HTTPPort)
	c.Server.GRPCPort = getEnvAsInt("GRPC_PORT", c.Server.GRPCPort)
	c.Server.MetricsPort = getEnvAsInt("METRICS_PORT", c.Server.MetricsPort)

	c.Database.Host = getEnv("DB_HOST", c.Database.Host)
	c.Database.Port = getEnvAsInt("DB_PORT", c.Database.Port)
	c.Database.User = getEnv("DB_USER", c.Database.User)
	c.Database.Password = getEnv("DB_PASSWORD", c.Database.Password)
	c.Database.Database = getEnv("DB_NAME", c.Database.Database)
	c.Database.SSLMode = getEnv("DB_SSL_MODE", c.Database.SSLMode)
	c.Database.MaxConns = int32(getEnvAsInt("DB_MAX_CONNS", int(c.Database.MaxConns)))
	c.Database.MinConns = int32(getEnvAsInt("DB_MIN_CONNS", int(c.Database.MinConns)))

	c.Gateway.Environment = getEnv("C6_ENVIRONMENT", c.Gateway.Environment)
	c.Gateway.BaseURL = getEnv("C6_BASE_URL", c.Gateway.BaseURL)
	c.Gateway.ClientID = getEnv("C6_CLIENT_ID", c.Gateway.ClientID)
	c.Gateway.ClientSecret = getEnv("C6_CLIENT_SECRET", c.Gateway.ClientSecret)
	c.Gateway.ClientSecretPath = getEnv("C6_CLIENT_SECRET_PATH", c.Gateway.ClientSecretPath)
	c.Gateway.CertPath = getEnv("C6_CERT_PATH", c.Gateway.CertPath)
	c.Gateway.KeyPath = getEnv("C6_KEY_PATH", c.Gateway.KeyPath)
	c.Gateway.PixKey = getEnv("C6_PIX_KEY", c.Gateway.PixKey)
	c.Gateway.Timeout = durations("C6_TIMEOUT", c.Gateway.Timeout)
	c.Gateway.PartnerSoftwareName = getEnv("C6_PARTNER_SOFTWARE_NAME", c.Gateway.PartnerSoftwareName)
	c.Gateway.PartnerSoftwareVersion = getEnv("C6_PARTNER_SOFTWARE_VERSION", c.Gateway.PartnerSoftwareVersion)

	c.Billing.Timezone = getEnv("BILLING_TIMEZONE", c.Billing.Timezone)
	c.Billing.PixExpiration = durations("PIX_EXPIRATION", c.Billing.PixExpiration)
	c.Billing.CheckoutExpiration = durations("CHECKOUT_EXPIRATION", c.Billing.CheckoutExpiration)
	c.Billing.BankSlipGraceDays = getEnvAsInt("BANK_SLIP_GRACE_DAYS", c.Billing.BankSlipGraceDays)
	c.Billing.BankSlipValidityDays = getEnvAsInt("BANK_SLIP_VALIDITY_DAYS", c.Billing.BankSlipValidityDays)
	c.Billing.CardInstallments = getEnvAsInt("CARD_INSTALLMENTS", c.Billing.CardInstallments)

	c.Secrets.Backend = getEnv("SECRETS_BACKEND", c.Secrets.Backend)
	c.Secrets.LocalPath = getEnv("SECRETS_LOCAL_PATH", c.Secrets.LocalPath)
	c.Secrets.VaultAddress = getEnv("VAULT_ADDR", c.Secrets.VaultAddress)
	c.Secrets.VaultToken = getEnv("VAULT_TOKEN", c.Secrets.VaultToken)
	c.Secrets.AWSRegion = getEnv("AWS_REGION", c.Secrets.AWSRegion)
	c.Secrets.GCPProjectID = getEnv("GCP_PROJECT_ID", c.Secrets.GCPProjectID)

	c.Webhook.AllowedIPs = getEnvAsList("WEBHOOK_ALLOWED_IPS", c.Webhook.AllowedIPs)
	c.Webhook.HMACSecret = getEnv("WEBHOOK_HMAC_SECRET", c.Webhook.HMACSecret)
	c.Webhook.PublicURL = getEnv("WEBHOOK_PUBLIC_URL", c.Webhook.PublicURL)
	c.Webhook.TrustForwardedFor = getEnvAsBool("WEBHOOK_TRUST_FORWARDED_FOR", c.Webhook.TrustForwardedFor)

	c.Cron.Secret = getEnv("CRON_SECRET", c.Cron.Secret)

	c.APIAuth.KeysDir = getEnv("API_AUTH_KEYS_DIR", c.APIAuth.KeysDir)
	c.APIAuth.Audience = getEnv("API_AUTH_AUDIENCE", c.APIAuth.Audience)

	if v := os.Getenv("RATE_LIMIT_RPS"); v != "" {
		rps, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("RATE_LIMIT_RPS: %w", err))
		} else {
			c.RateLimit.RPS = rps
		}
	}
	c.RateLimit.Burst = getEnvAsInt("RATE_LIMIT_BURST", c.RateLimit.Burst)

	c.Logger.Level = getEnv("LOG_LEVEL", c.Logger.Level)

	return errors.Join(errs...)
}

// Validate checks required fields and value ranges
func (c *Config) Validate() error {
	var errs []error
	required := func(value, key string) {
		if strings.TrimSpace(value) == "" {
			errs = append(errs, fmt.Errorf("%s is required", key))
		}
	}

	required(c.Database.Password, "DB_PASSWORD")
	required(c.Gateway.ClientID, "C6_CLIENT_ID")
	required(c.Gateway.CertPath, "C6_CERT_PATH")
	required(c.Gateway.KeyPath, "C6_KEY_PATH")
	if c.Gateway.ClientSecret == "" && c.Gateway.ClientSecretPath == "" {
		errs = append(errs, fmt.Errorf("C6_CLIENT_SECRET or C6_CLIENT_SECRET_PATH is required"))
	}

	switch c.Gateway.Environment {
	case "sandbox", "production":
	default:
		errs = append(errs, fmt.Errorf("C6_ENVIRONMENT must be sandbox or production, got %q", c.Gateway.Environment))
	}

	if _, err := c.Billing.Location(); err != nil {
		errs = append(errs, fmt.Errorf("BILLING_TIMEZONE: %w", err))
	}
	if c.Billing.PixExpiration <= 0 || c.Billing.CheckoutExpiration <= 0 {
		errs = append(errs, fmt.Errorf("charge expirations must be positive"))
	}
	if c.Billing.BankSlipGraceDays < 0 || c.Billing.BankSlipValidityDays < 0 {
		errs = append(errs, fmt.Errorf("bank slip day counts cannot be negative"))
	}
	if c.Billing.CardInstallments < 1 || c.Billing.CardInstallments > 12 {
		errs = append(errs, fmt.Errorf("CARD_INSTALLMENTS must be between 1 and 12"))
	}

	if c.IsProduction() {
		required(c.Cron.Secret, "CRON_SECRET")
		required(c.APIAuth.KeysDir, "API_AUTH_KEYS_DIR")
		if len(c.Webhook.AllowedIPs) == 0 && c.Webhook.HMACSecret == "" {
			errs = append(errs, fmt.Errorf("WEBHOOK_ALLOWED_IPS or WEBHOOK_HMAC_SECRET is required in production"))
		}
	}

	return errors.Join(errs...)
}

// IsProduction reports whether the service runs with production settings
func (c *Config) IsProduction() bool {
	return c.Environment == EnvironmentProduction
}

// Location loads the business timezone
func (b *BillingConfig) Location() (*time.Location, error) {
	return time.LoadLocation(b.Timezone)
}

// ConnectionString returns the PostgreSQL URL
func (c *DatabaseConfig) ConnectionString() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     "/" + c.Database,
		RawQuery: "sslmode=" + url.QueryEscape(c.SSLMode),
	}
	return u.String()
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsDuration accepts Go durations ("30s") or plain seconds ("1800")
func getEnvAsDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue, nil
	}
	if seconds, err := strconv.Atoi(valueStr); err == nil {
		return time.Duration(seconds) * time.Second, nil
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue, fmt.Errorf("%s: %w", key, err)
	}
	return value, nil
}

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(valueStr, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
