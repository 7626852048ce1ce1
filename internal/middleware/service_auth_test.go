package middleware

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func serviceToken(t *testing.T, key *rsa.PrivateKey, issuer, audience string, expiresIn time.Duration) string {
	t.Helper()
	now := time.Now()
	claims := ServiceClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Audience:  jwt.ClaimStrings{audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiresIn)),
		},
		Scopes: []string{"charges:write"},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
	require.NoError(t, err)
	return signed
}

func TestServiceAuth(t *testing.T) {
	billing, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	stranger, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	keys := NewPublicKeyStore()
	keys.AddKey("billing-portal", &billing.PublicKey)
	auth := NewServiceAuthWithKeys(keys, "collections-service", zap.NewNop())

	var seen string
	handler := auth.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = ServiceID(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	hs256, err := jwt.NewWithClaims(jwt.SigningMethodHS256, ServiceClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "billing-portal",
			Audience:  jwt.ClaimStrings{"collections-service"},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
	}).SignedString([]byte("shared"))
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"valid token", "Bearer " + serviceToken(t, billing, "billing-portal", "collections-service", time.Minute), http.StatusOK},
		{"missing header", "", http.StatusUnauthorized},
		{"not bearer", "Basic dXNlcjpwYXNz", http.StatusUnauthorized},
		{"expired", "Bearer " + serviceToken(t, billing, "billing-portal", "collections-service", -time.Minute), http.StatusUnauthorized},
		{"wrong audience", "Bearer " + serviceToken(t, billing, "billing-portal", "ledger", time.Minute), http.StatusUnauthorized},
		{"unknown issuer", "Bearer " + serviceToken(t, billing, "crm", "collections-service", time.Minute), http.StatusUnauthorized},
		{"signed by another key", "Bearer " + serviceToken(t, stranger, "billing-portal", "collections-service", time.Minute), http.StatusUnauthorized},
		{"symmetric algorithm", "Bearer " + hs256, http.StatusUnauthorized},
		{"garbage", "Bearer not.a.jwt", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = ""
			req := httptest.NewRequest(http.MethodGet, "/api/v1/transactions/7", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			if tt.status == http.StatusOK {
				assert.Equal(t, "billing-portal", seen)
			} else {
				assert.Empty(t, seen)
			}
		})
	}
}

func TestServiceAuth_DisabledWithoutKeys(t *testing.T) {
	auth, err := NewServiceAuth(ServiceAuthConfig{}, zap.NewNop())
	require.NoError(t, err)

	handler := auth.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/transactions/7", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestNewServiceAuth_LoadsKeysDirectory(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "billing-portal.pem"),
		pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README"), []byte("ignored"), 0o600))

	auth, err := NewServiceAuth(ServiceAuthConfig{KeysDir: dir}, zap.NewNop())
	require.NoError(t, err)
	got, err := auth.keys.PublicKey("billing-portal")
	require.NoError(t, err)
	assert.True(t, key.PublicKey.Equal(got))

	_, err = NewServiceAuth(ServiceAuthConfig{KeysDir: t.TempDir()}, zap.NewNop())
	assert.Error(t, err)

	bad := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(bad, "crm.pem"), []byte("junk"), 0o600))
	_, err = NewServiceAuth(ServiceAuthConfig{KeysDir: bad}, zap.NewNop())
	assert.Error(t, err)
}
