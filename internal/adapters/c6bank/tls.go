package c6bank

import (
	"crypto/tls"
	"fmt"
	"net/http"
	"time"

	pkghttp "github.com/kevin07696/collections-service/pkg/http"
)

// LoadClientCertificate parses the PEM-encoded client certificate and key
// issued by the bank for mutual TLS
func LoadClientCertificate(certPEM, keyPEM []byte) (tls.Certificate, error) {
	cert, err := tls.X509KeyPair(certPEM, keyPEM)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("failed to parse client certificate: %w", err)
	}
	return cert, nil
}

// NewMTLSHTTPClient builds the HTTP client every gateway call goes through
func NewMTLSHTTPClient(cert tls.Certificate, timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return pkghttp.NewHTTPClient(pkghttp.GatewayClientConfig(cert), timeout)
}
