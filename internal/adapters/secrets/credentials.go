package secrets

import (
	"context"
	"fmt"

	"github.com/kevin07696/collections-service/internal/domain/ports"
	"go.uber.org/zap"
)

// Backend names accepted by NewSecretManager
const (
	BackendLocal = "local"
	BackendVault = "vault"
	BackendAWS   = "aws"
	BackendGCP   = "gcp"
)

// BackendConfig selects and configures a secret backend
type BackendConfig struct {
	Backend      string
	LocalPath    string
	VaultAddress string
	VaultToken   string
	AWSRegion    string
	GCPProjectID string
}

// NewSecretManager builds the configured backend
func NewSecretManager(ctx context.Context, cfg BackendConfig, logger *zap.Logger) (ports.SecretManagerAdapter, error) {
	switch cfg.Backend {
	case BackendLocal, "":
		return NewLocalSecretManager(cfg.LocalPath, logger), nil
	case BackendVault:
		vc := DefaultVaultConfig(cfg.VaultAddress)
		vc.Token = cfg.VaultToken
		return NewVaultAdapter(ctx, vc, logger)
	case BackendAWS:
		return NewAWSSecretsManagerAdapter(ctx, DefaultAWSSecretsManagerConfig(cfg.AWSRegion), logger)
	case BackendGCP:
		return NewGCPSecretManager(ctx, DefaultGCPSecretManagerConfig(cfg.GCPProjectID), logger)
	default:
		return nil, fmt.Errorf("unknown secrets backend %q", cfg.Backend)
	}
}

// GatewayCredentialPaths locate the gateway credentials in the backend. An
// empty ClientSecretPath means the secret comes from configuration instead.
type GatewayCredentialPaths struct {
	ClientSecretPath string
	CertPath         string
	KeyPath          string
}

// GatewayCredentials are the material needed to open an mTLS session and
// request tokens
type GatewayCredentials struct {
	ClientSecret string
	CertPEM      []byte
	KeyPEM       []byte
}

// LoadGatewayCredentials fetches the client secret and the client
// certificate pair from sm
func LoadGatewayCredentials(ctx context.Context, sm ports.SecretManagerAdapter, paths GatewayCredentialPaths) (*GatewayCredentials, error) {
	if paths.CertPath == "" || paths.KeyPath == "" {
		return nil, fmt.Errorf("client certificate and key paths are required")
	}

	creds := &GatewayCredentials{}

	if paths.ClientSecretPath != "" {
		secret, err := sm.GetSecret(ctx, paths.ClientSecretPath)
		if err != nil {
			return nil, fmt.Errorf("load client secret: %w", err)
		}
		creds.ClientSecret = secret.Value
	}

	cert, err := sm.GetSecret(ctx, paths.CertPath)
	if err != nil {
		return nil, fmt.Errorf("load client certificate: %w", err)
	}
	creds.CertPEM = []byte(cert.Value)

	key, err := sm.GetSecret(ctx, paths.KeyPath)
	if err != nil {
		return nil, fmt.Errorf("load client key: %w", err)
	}
	creds.KeyPEM = []byte(key.Value)

	return creds, nil
}
