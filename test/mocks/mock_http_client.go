package mocks

import (
	"bytes"
	"io"
	"net/http"
	"sync"
)

// MockHTTPClient is a scripted ports.HTTPClient for gateway client tests.
// Responses are keyed by "METHOD path"; unscripted requests get a 404.
type MockHTTPClient struct {
	mu        sync.Mutex
	responses map[string]func(req *http.Request) (*http.Response, error)
	calls     []*http.Request
}

// NewMockHTTPClient creates an empty scripted client
func NewMockHTTPClient() *MockHTTPClient {
	return &MockHTTPClient{responses: make(map[string]func(*http.Request) (*http.Response, error))}
}

// On scripts the response for method and path
func (m *MockHTTPClient) On(method, path string, fn func(req *http.Request) (*http.Response, error)) *MockHTTPClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[method+" "+path] = fn
	return m
}

// Respond scripts a fixed status and body for method and path
func (m *MockHTTPClient) Respond(method, path string, status int, body string) *MockHTTPClient {
	return m.On(method, path, func(*http.Request) (*http.Response, error) {
		return Response(status, body), nil
	})
}

// Do records the request and plays back the scripted response
func (m *MockHTTPClient) Do(req *http.Request) (*http.Response, error) {
	m.mu.Lock()
	m.calls = append(m.calls, req)
	fn, ok := m.responses[req.Method+" "+req.URL.Path]
	m.mu.Unlock()

	if !ok {
		return Response(http.StatusNotFound, `{"title":"not scripted"}`), nil
	}
	return fn(req)
}

// Calls returns the requests seen so far
func (m *MockHTTPClient) Calls() []*http.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*http.Request, len(m.calls))
	copy(out, m.calls)
	return out
}

// Response builds a JSON response with the given status
func Response(status int, body string) *http.Response {
	header := make(http.Header)
	header.Set("Content-Type", "application/json")
	return &http.Response{
		StatusCode: status,
		Header:     header,
		Body:       io.NopCloser(bytes.NewBufferString(body)),
	}
}
