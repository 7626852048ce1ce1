package secrets

import (
	"context"
	"errors"
	"testing"

	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/googleapis/gax-go/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type fakeGCPSecrets struct {
	accessed []string
	added    []string
	created  *secretmanagerpb.CreateSecretRequest
	addErr   error
	closed   bool
}

func (f *fakeGCPSecrets) AccessSecretVersion(ctx context.Context, req *secretmanagerpb.AccessSecretVersionRequest, _ ...gax.CallOption) (*secretmanagerpb.AccessSecretVersionResponse, error) {
	f.accessed = append(f.accessed, req.GetName())
	return &secretmanagerpb.AccessSecretVersionResponse{
		Name:    "projects/collections-prod/secrets/c6bank-sandbox-client-secret/versions/7",
		Payload: &secretmanagerpb.SecretPayload{Data: []byte("gcp-secret")},
	}, nil
}

func (f *fakeGCPSecrets) AddSecretVersion(ctx context.Context, req *secretmanagerpb.AddSecretVersionRequest, _ ...gax.CallOption) (*secretmanagerpb.SecretVersion, error) {
	f.added = append(f.added, req.GetParent())
	if f.addErr != nil {
		err := f.addErr
		f.addErr = nil
		return nil, err
	}
	return &secretmanagerpb.SecretVersion{Name: req.GetParent() + "/versions/8"}, nil
}

func (f *fakeGCPSecrets) CreateSecret(ctx context.Context, req *secretmanagerpb.CreateSecretRequest, _ ...gax.CallOption) (*secretmanagerpb.Secret, error) {
	f.created = req
	return &secretmanagerpb.Secret{Name: req.GetParent() + "/secrets/" + req.GetSecretId()}, nil
}

func (f *fakeGCPSecrets) Close() error {
	f.closed = true
	return nil
}

func TestGCPSecretManager_GetCachesLatestVersion(t *testing.T) {
	fake := &fakeGCPSecrets{}
	sm := newGCPSecretManager(fake, DefaultGCPSecretManagerConfig("collections-prod"), zap.NewNop())
	ctx := context.Background()

	secret, err := sm.GetSecret(ctx, "c6bank/sandbox/client-secret")
	require.NoError(t, err)
	assert.Equal(t, "gcp-secret", secret.Value)
	assert.Equal(t, "7", secret.Version)
	assert.Equal(t, "collections-prod", secret.Metadata["gcp_project_id"])

	_, err = sm.GetSecret(ctx, "c6bank/sandbox/client-secret")
	require.NoError(t, err)
	assert.Equal(t, []string{"projects/collections-prod/secrets/c6bank-sandbox-client-secret/versions/latest"}, fake.accessed)

	require.NoError(t, sm.Close())
	assert.True(t, fake.closed)
}

func TestGCPSecretManager_PutCreatesMissingSecret(t *testing.T) {
	fake := &fakeGCPSecrets{addErr: status.Error(codes.NotFound, "secret not found")}
	sm := newGCPSecretManager(fake, DefaultGCPSecretManagerConfig("collections-prod"), zap.NewNop())

	version, err := sm.PutSecret(context.Background(), "c6bank/production/key", "pem", map[string]string{"env": "production"})
	require.NoError(t, err)
	assert.Equal(t, "8", version)

	require.NotNil(t, fake.created)
	assert.Equal(t, "projects/collections-prod", fake.created.GetParent())
	assert.Equal(t, "c6bank-production-key", fake.created.GetSecretId())
	assert.Equal(t, "production", fake.created.GetSecret().GetLabels()["env"])
	assert.NotNil(t, fake.created.GetSecret().GetReplication().GetAutomatic())
	assert.Len(t, fake.added, 2)
}

func TestGCPSecretManager_PutPropagatesOtherErrors(t *testing.T) {
	fake := &fakeGCPSecrets{addErr: status.Error(codes.PermissionDenied, "denied")}
	sm := newGCPSecretManager(fake, DefaultGCPSecretManagerConfig("collections-prod"), zap.NewNop())

	_, err := sm.PutSecret(context.Background(), "c6bank/production/key", "pem", nil)
	require.Error(t, err)
	assert.Equal(t, codes.PermissionDenied, status.Code(errors.Unwrap(err)))
	assert.Nil(t, fake.created)
}

func TestNewGCPSecretManager_ProjectRequired(t *testing.T) {
	_, err := NewGCPSecretManager(context.Background(), DefaultGCPSecretManagerConfig(""), zap.NewNop())
	assert.Error(t, err)
}
