package middleware

import (
	"context"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

const serviceIDKey contextKey = "service_id"

// ServiceID returns the issuer of the bearer token accepted by ServiceAuth
func ServiceID(ctx context.Context) string {
	id, _ := ctx.Value(serviceIDKey).(string)
	return id
}

// ServiceClaims are the claims an internal caller puts in its bearer token.
// The issuer names the calling service and selects its public key.
type ServiceClaims struct {
	jwt.RegisteredClaims
	Scopes []string `json:"scopes,omitempty"`
}

// PublicKeyStore maps issuer names to RSA verification keys
type PublicKeyStore struct {
	keys map[string]*rsa.PublicKey
	mu   sync.RWMutex
}

// NewPublicKeyStore creates an empty store
func NewPublicKeyStore() *PublicKeyStore {
	return &PublicKeyStore{keys: make(map[string]*rsa.PublicKey)}
}

// LoadKeysFromDirectory registers every <issuer>.pem file in dir
func (s *PublicKeyStore) LoadKeysFromDirectory(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read keys directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".pem" {
			continue
		}
		issuer := strings.TrimSuffix(entry.Name(), ".pem")

		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return fmt.Errorf("failed to read key for %s: %w", issuer, err)
		}
		key, err := ParseRSAPublicKey(data)
		if err != nil {
			return fmt.Errorf("failed to load key for %s: %w", issuer, err)
		}
		s.AddKey(issuer, key)
	}
	return nil
}

// AddKey registers or replaces the key for issuer
func (s *PublicKeyStore) AddKey(issuer string, key *rsa.PublicKey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys[issuer] = key
}

// PublicKey looks up the key for issuer
func (s *PublicKeyStore) PublicKey(issuer string) (*rsa.PublicKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	key, ok := s.keys[issuer]
	if !ok {
		return nil, fmt.Errorf("unknown issuer: %s", issuer)
	}
	return key, nil
}

// Len returns the number of registered issuers
func (s *PublicKeyStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.keys)
}

// ParseRSAPublicKey decodes a PKIX "PUBLIC KEY" PEM block
func ParseRSAPublicKey(data []byte) (*rsa.PublicKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("failed to parse PEM block")
	}

	pub, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse public key: %w", err)
	}

	rsaPub, ok := pub.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("not an RSA public key")
	}
	return rsaPub, nil
}

// ServiceAuthConfig configures bearer token checks on the REST API
type ServiceAuthConfig struct {
	// KeysDir holds one <issuer>.pem public key per calling service. Empty
	// leaves the API open.
	KeysDir string
	// Audience, when set, must appear in the token's aud claim
	Audience string
}

// ServiceAuth verifies RS256 bearer tokens issued by internal callers
type ServiceAuth struct {
	keys   *PublicKeyStore
	parser *jwt.Parser
	logger *zap.Logger
}

// NewServiceAuth loads the issuer keys and creates the authenticator
func NewServiceAuth(cfg ServiceAuthConfig, logger *zap.Logger) (*ServiceAuth, error) {
	keys := NewPublicKeyStore()
	if cfg.KeysDir != "" {
		if err := keys.LoadKeysFromDirectory(cfg.KeysDir); err != nil {
			return nil, err
		}
		if keys.Len() == 0 {
			return nil, fmt.Errorf("no issuer keys found in %s", cfg.KeysDir)
		}
	} else {
		logger.Warn("API service keys not configured, bearer token check disabled")
	}
	return NewServiceAuthWithKeys(keys, cfg.Audience, logger), nil
}

// NewServiceAuthWithKeys creates the authenticator over a prepared store.
// An empty store disables the check.
func NewServiceAuthWithKeys(keys *PublicKeyStore, audience string, logger *zap.Logger) *ServiceAuth {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	}
	if audience != "" {
		opts = append(opts, jwt.WithAudience(audience))
	}
	return &ServiceAuth{
		keys:   keys,
		parser: jwt.NewParser(opts...),
		logger: logger,
	}
}

// Middleware rejects requests without a valid bearer token
func (a *ServiceAuth) Middleware(next http.Handler) http.Handler {
	if a.keys.Len() == 0 {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || strings.TrimSpace(raw) == "" {
			http.Error(w, "Missing bearer token", http.StatusUnauthorized)
			return
		}

		claims, err := a.verify(strings.TrimSpace(raw))
		if err != nil {
			a.logger.Warn("API bearer token rejected",
				zap.String("path", r.URL.Path),
				zap.Error(err),
			)
			http.Error(w, "Invalid bearer token", http.StatusUnauthorized)
			return
		}

		a.logger.Debug("API caller authenticated",
			zap.String("service_id", claims.Issuer),
			zap.String("path", r.URL.Path),
		)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), serviceIDKey, claims.Issuer)))
	})
}

func (a *ServiceAuth) verify(raw string) (*ServiceClaims, error) {
	claims := &ServiceClaims{}
	token, err := a.parser.ParseWithClaims(raw, claims, func(token *jwt.Token) (interface{}, error) {
		if claims.Issuer == "" {
			return nil, errors.New("token has no issuer")
		}
		return a.keys.PublicKey(claims.Issuer)
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}
