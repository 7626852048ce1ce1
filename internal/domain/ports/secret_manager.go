package ports

import (
	"context"
)

// Secret represents a retrieved secret with metadata
type Secret struct {
	Value     string
	Version   string
	Metadata  map[string]string
	CreatedAt string
}

// SecretManagerAdapter retrieves secrets (gateway client secret, client
// certificate and key PEM) from a secret management backend.
//
// Path format depends on implementation:
//   - Local: file path relative to the configured base directory
//   - AWS: secret name or ARN, e.g. "collections/c6bank/production/client-secret"
//   - Vault: KV path under the mount, e.g. "collections/c6bank/production"
//   - GCP: slash-separated path mapped onto a secret id, e.g.
//     "c6bank/production/key" is "projects/{project}/secrets/c6bank-production-key"
type SecretManagerAdapter interface {
	GetSecret(ctx context.Context, path string) (*Secret, error)

	// PutSecret creates or updates a secret and returns its version
	PutSecret(ctx context.Context, path string, value string, metadata map[string]string) (string, error)
}
