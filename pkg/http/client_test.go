package http

import (
	"crypto/tls"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGatewayClientConfig_CarriesCertificates(t *testing.T) {
	cert := tls.Certificate{Certificate: [][]byte{{0x01}}}
	client := NewHTTPClient(GatewayClientConfig(cert), 15*time.Second)

	assert.Equal(t, 15*time.Second, client.Timeout)

	transport, ok := client.Transport.(*http.Transport)
	require.True(t, ok)
	require.Len(t, transport.TLSClientConfig.Certificates, 1)
	assert.Equal(t, uint16(tls.VersionTLS12), transport.TLSClientConfig.MinVersion)
	assert.Equal(t, 50, transport.MaxIdleConnsPerHost)
	assert.True(t, transport.ForceAttemptHTTP2)
}

func TestDefaultClientConfig_NoCertificates(t *testing.T) {
	client := NewHTTPClient(DefaultClientConfig(), 0)

	transport, ok := client.Transport.(*http.Transport)
	require.True(t, ok)
	assert.Empty(t, transport.TLSClientConfig.Certificates)
	assert.Equal(t, 10, transport.MaxIdleConnsPerHost)
}
