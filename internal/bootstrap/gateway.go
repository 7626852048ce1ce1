package bootstrap

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/kevin07696/collections-service/internal/adapters/c6bank"
	"github.com/kevin07696/collections-service/internal/adapters/secrets"
	"github.com/kevin07696/collections-service/internal/config"
)

// NewGatewayClient loads the mTLS material from the secrets backend and builds the
// C6 Bank client. An inline C6_CLIENT_SECRET wins over the backend copy.
func NewGatewayClient(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*c6bank.Client, error) {
	sm, err := secrets.NewSecretManager(ctx, secrets.BackendConfig{
		Backend:      cfg.Secrets.Backend,
		LocalPath:    cfg.Secrets.LocalPath,
		VaultAddress: cfg.Secrets.VaultAddress,
		VaultToken:   cfg.Secrets.VaultToken,
		AWSRegion:    cfg.Secrets.AWSRegion,
		GCPProjectID: cfg.Secrets.GCPProjectID,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("secrets backend: %w", err)
	}
	if closer, ok := sm.(io.Closer); ok {
		defer closer.Close()
	}

	paths := secrets.GatewayCredentialPaths{
		CertPath: cfg.Gateway.CertPath,
		KeyPath:  cfg.Gateway.KeyPath,
	}
	if cfg.Gateway.ClientSecret == "" {
		paths.ClientSecretPath = cfg.Gateway.ClientSecretPath
	}

	creds, err := secrets.LoadGatewayCredentials(ctx, sm, paths)
	if err != nil {
		return nil, err
	}

	cert, err := c6bank.LoadClientCertificate(creds.CertPEM, creds.KeyPEM)
	if err != nil {
		return nil, err
	}

	gwCfg := c6bank.DefaultConfig(cfg.Gateway.Environment)
	if cfg.Gateway.BaseURL != "" {
		gwCfg.BaseURL = cfg.Gateway.BaseURL
	}
	if cfg.Gateway.Timeout > 0 {
		gwCfg.Timeout = cfg.Gateway.Timeout
	}
	gwCfg.ClientID = cfg.Gateway.ClientID
	gwCfg.ClientSecret = cfg.Gateway.ClientSecret
	if gwCfg.ClientSecret == "" {
		gwCfg.ClientSecret = creds.ClientSecret
	}
	gwCfg.PixKey = cfg.Gateway.PixKey
	gwCfg.PartnerSoftwareName = cfg.Gateway.PartnerSoftwareName
	gwCfg.PartnerSoftwareVersion = cfg.Gateway.PartnerSoftwareVersion

	client, err := c6bank.NewClientWithCertificate(gwCfg, cert, c6bank.NewTokenCache(), logger)
	if err != nil {
		return nil, err
	}

	logger.Info("C6 Bank client initialized",
		zap.String("environment", gwCfg.Environment),
		zap.String("base_url", gwCfg.BaseURL),
		zap.String("secrets_backend", cfg.Secrets.Backend),
	)
	return client, nil
}
