package secrets

import (
	"context"
	"fmt"
	"strings"
	"time"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/googleapis/gax-go/v2"
	"github.com/kevin07696/collections-service/internal/domain/ports"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var _ ports.SecretManagerAdapter = (*GCPSecretManager)(nil)

// GCPSecretManagerConfig configures the Google Cloud Secret Manager backend.
// Credentials come from GOOGLE_APPLICATION_CREDENTIALS or workload identity.
type GCPSecretManagerConfig struct {
	ProjectID string
	CacheTTL  time.Duration
}

// DefaultGCPSecretManagerConfig returns a five minute cache
func DefaultGCPSecretManagerConfig(projectID string) *GCPSecretManagerConfig {
	return &GCPSecretManagerConfig{
		ProjectID: projectID,
		CacheTTL:  5 * time.Minute,
	}
}

// gcpSecretsAPI is the subset of the Secret Manager client the adapter calls
type gcpSecretsAPI interface {
	AccessSecretVersion(ctx context.Context, req *secretmanagerpb.AccessSecretVersionRequest, opts ...gax.CallOption) (*secretmanagerpb.AccessSecretVersionResponse, error)
	AddSecretVersion(ctx context.Context, req *secretmanagerpb.AddSecretVersionRequest, opts ...gax.CallOption) (*secretmanagerpb.SecretVersion, error)
	CreateSecret(ctx context.Context, req *secretmanagerpb.CreateSecretRequest, opts ...gax.CallOption) (*secretmanagerpb.Secret, error)
	Close() error
}

// GCPSecretManager reads the latest version of project secrets. Secret ids
// cannot contain slashes, so "collections/c6bank/cert" is stored as
// "collections-c6bank-cert".
type GCPSecretManager struct {
	client    gcpSecretsAPI
	projectID string
	logger    *zap.Logger
	cache     *secretCache
}

// NewGCPSecretManager dials Secret Manager for cfg.ProjectID
func NewGCPSecretManager(ctx context.Context, cfg *GCPSecretManagerConfig, logger *zap.Logger) (*GCPSecretManager, error) {
	if cfg.ProjectID == "" {
		return nil, fmt.Errorf("GCP project ID is required")
	}

	client, err := secretmanager.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCP Secret Manager client: %w", err)
	}

	logger.Info("GCP Secret Manager initialized",
		zap.String("project_id", cfg.ProjectID),
		zap.Duration("cache_ttl", cfg.CacheTTL),
	)
	return newGCPSecretManager(client, cfg, logger), nil
}

func newGCPSecretManager(client gcpSecretsAPI, cfg *GCPSecretManagerConfig, logger *zap.Logger) *GCPSecretManager {
	return &GCPSecretManager{
		client:    client,
		projectID: cfg.ProjectID,
		logger:    logger,
		cache:     newSecretCache(true, cfg.CacheTTL),
	}
}

// Close releases the gRPC connection
func (sm *GCPSecretManager) Close() error {
	return sm.client.Close()
}

func secretID(path string) string {
	return strings.ReplaceAll(strings.Trim(path, "/"), "/", "-")
}

func (sm *GCPSecretManager) secretName(path string) string {
	return fmt.Sprintf("projects/%s/secrets/%s", sm.projectID, secretID(path))
}

// GetSecret reads the latest version of path
func (sm *GCPSecretManager) GetSecret(ctx context.Context, path string) (*ports.Secret, error) {
	if cached := sm.cache.get(path); cached != nil {
		sm.logger.Debug("Secret cache hit", zap.String("path", path))
		return cached, nil
	}

	name := sm.secretName(path) + "/versions/latest"
	result, err := sm.client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{Name: name})
	if err != nil {
		sm.logger.Error("Failed to access GCP secret",
			zap.String("path", path),
			zap.String("secret_name", name),
			zap.Error(err),
		)
		return nil, fmt.Errorf("failed to access GCP secret %s: %w", path, err)
	}

	secret := &ports.Secret{
		Value:   string(result.GetPayload().GetData()),
		Version: versionFromName(result.GetName()),
		Metadata: map[string]string{
			"gcp_project_id": sm.projectID,
			"gcp_secret":     path,
		},
	}

	sm.cache.set(path, secret)
	sm.logger.Info("Secret fetched from GCP",
		zap.String("path", path),
		zap.String("version", secret.Version),
	)
	return secret, nil
}

// PutSecret adds a version, creating the secret on first write
func (sm *GCPSecretManager) PutSecret(ctx context.Context, path string, value string, metadata map[string]string) (string, error) {
	defer sm.cache.invalidate(path)

	add := &secretmanagerpb.AddSecretVersionRequest{
		Parent:  sm.secretName(path),
		Payload: &secretmanagerpb.SecretPayload{Data: []byte(value)},
	}

	version, err := sm.client.AddSecretVersion(ctx, add)
	if status.Code(err) == codes.NotFound {
		_, err = sm.client.CreateSecret(ctx, &secretmanagerpb.CreateSecretRequest{
			Parent:   "projects/" + sm.projectID,
			SecretId: secretID(path),
			Secret: &secretmanagerpb.Secret{
				Labels: metadata,
				Replication: &secretmanagerpb.Replication{
					Replication: &secretmanagerpb.Replication_Automatic_{
						Automatic: &secretmanagerpb.Replication_Automatic{},
					},
				},
			},
		})
		if err != nil {
			return "", fmt.Errorf("failed to create GCP secret %s: %w", path, err)
		}
		version, err = sm.client.AddSecretVersion(ctx, add)
	}
	if err != nil {
		sm.logger.Error("Failed to add GCP secret version",
			zap.String("path", path),
			zap.Error(err),
		)
		return "", fmt.Errorf("failed to add version to GCP secret %s: %w", path, err)
	}

	v := versionFromName(version.GetName())
	sm.logger.Info("Secret stored in GCP",
		zap.String("path", path),
		zap.String("version", v),
	)
	return v, nil
}

// versionFromName takes the last segment of
// projects/{project}/secrets/{secret}/versions/{version}
func versionFromName(name string) string {
	if i := strings.LastIndexByte(name, '/'); i >= 0 && i < len(name)-1 {
		return name[i+1:]
	}
	return "unknown"
}
