package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/fivetwenty-io/hubclient/pkg/hub"
)

const personsV12 = "application/vnd.hedtech.integration.v12+json"

type testName struct {
	First string `json:"firstName"`
	Last  string `json:"lastName"`
}

type testPerson struct {
	hub.Entity
	Names []testName `json:"names"`
}

func (testPerson) ResourceName() string { return "persons" }
func (testPerson) VersionType() string  { return personsV12 }

// stubTokenManager hands out a fixed token, or fails every call.
type stubTokenManager struct {
	token string
	fail  bool
	calls atomic.Int32
}

func (s *stubTokenManager) EnsureAuthenticated(context.Context) bool {
	s.calls.Add(1)

	return !s.fail
}

func (s *stubTokenManager) GetToken(ctx context.Context) (string, error) {
	if !s.EnsureAuthenticated(ctx) {
		return "", fmt.Errorf("%w: stub refused", hub.ErrUnauthenticated)
	}

	return s.token, nil
}

func (s *stubTokenManager) RefreshToken(context.Context) error { return nil }

func (s *stubTokenManager) SetToken(token string, _ time.Time) { s.token = token }

// capturedRequest is what the test server saw.
type capturedRequest struct {
	Method   string
	Path     string
	RawQuery string
	Header   http.Header
	Body     string
}

type recorder struct {
	mu       sync.Mutex
	requests []capturedRequest
}

func (r *recorder) last(t *testing.T) capturedRequest {
	t.Helper()

	r.mu.Lock()
	defer r.mu.Unlock()

	require.NotEmpty(t, r.requests, "no request reached the server")

	return r.requests[len(r.requests)-1]
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.requests)
}

// newTestServer records each request and answers with respond.
func newTestServer(t *testing.T, respond http.HandlerFunc) (*httptest.Server, *recorder) {
	t.Helper()

	rec := &recorder{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)

		rec.mu.Lock()
		rec.requests = append(rec.requests, capturedRequest{
			Method:   r.Method,
			Path:     r.URL.Path,
			RawQuery: r.URL.RawQuery,
			Header:   r.Header.Clone(),
			Body:     string(body),
		})
		rec.mu.Unlock()

		respond(w, r)
	}))
	t.Cleanup(server.Close)

	return server, rec
}

// NewTestClient creates a client for baseURL authenticated by a stub token.
func NewTestClient(t *testing.T, baseURL string, mutate ...func(*hub.Config)) (*Client, *stubTokenManager) {
	t.Helper()

	config := &hub.Config{BaseURI: baseURL, APIKey: "test-key"}
	for _, m := range mutate {
		m(config)
	}

	tokens := &stubTokenManager{token: "test-token"}

	client, err := NewWithTokenManager(config, tokens)
	require.NoError(t, err)

	return client, tokens
}

func respondWith(status int, headers map[string]string, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		for key, value := range headers {
			w.Header().Set(key, value)
		}

		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}
}
