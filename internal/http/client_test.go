package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	hubhttp "github.com/fivetwenty-io/hubclient/internal/http"
	"github.com/fivetwenty-io/hubclient/pkg/hub"
)

var errTokenUnavailable = errors.New("token unavailable")

// MockTokenManager for testing.
type MockTokenManager struct {
	token string
	err   error
	calls atomic.Int32
}

func (m *MockTokenManager) GetToken(ctx context.Context) (string, error) {
	m.calls.Add(1)

	return m.token, m.err
}

// MockLogger for testing.
type MockLogger struct {
	logs []map[string]interface{}
}

func (l *MockLogger) Debug(msg string, fields map[string]interface{}) {
	l.logs = append(l.logs, map[string]interface{}{"level": "debug", "msg": msg, "fields": fields})
}

func (l *MockLogger) Info(msg string, fields map[string]interface{}) {
	l.logs = append(l.logs, map[string]interface{}{"level": "info", "msg": msg, "fields": fields})
}

func (l *MockLogger) Warn(msg string, fields map[string]interface{}) {
	l.logs = append(l.logs, map[string]interface{}{"level": "warn", "msg": msg, "fields": fields})
}

func (l *MockLogger) Error(msg string, fields map[string]interface{}) {
	l.logs = append(l.logs, map[string]interface{}{"level": "error", "msg": msg, "fields": fields})
}

//nolint:funlen // Test functions can be longer for comprehensive testing
func TestClient_Do(t *testing.T) {
	t.Parallel()
	t.Run("successful request", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			assert.Equal(t, "/api/persons", request.URL.Path)
			assert.Equal(t, "GET", request.Method)
			assert.Equal(t, "Bearer test-token", request.Header.Get("Authorization"))
			assert.Equal(t, "application/json", request.Header.Get("Accept"))
			assert.Equal(t, "UTF-8", request.Header.Get("Accept-Charset"))
			assert.Empty(t, request.Header.Get("Content-Type"))

			_ = json.NewEncoder(writer).Encode(map[string]string{"id": "p-1"})
		}))
		defer server.Close()

		tokenManager := &MockTokenManager{token: "test-token"}
		client := hubhttp.NewClient(server.URL, tokenManager)

		resp, err := client.Do(context.Background(), &hubhttp.Request{
			Method: "GET",
			Path:   "api/persons",
		})
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)
		assert.True(t, resp.IsSuccess())

		var result map[string]string

		require.NoError(t, json.Unmarshal(resp.Body, &result))
		assert.Equal(t, "p-1", result["id"])
	})

	t.Run("version media type is sent as accept", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			assert.Equal(t, "application/vnd.hedtech.integration.v12+json", request.Header.Get("Accept"))
			assert.Equal(t, "UTF-8", request.Header.Get("Accept-Charset"))
			writer.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		client := hubhttp.NewClient(server.URL, nil)

		_, err := client.Do(context.Background(), &hubhttp.Request{
			Method: "GET",
			Path:   "api/persons",
			Accept: "application/vnd.hedtech.integration.v12+json",
		})
		require.NoError(t, err)
	})

	t.Run("query keeps caller order", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			assert.Equal(t, "criteria=a+b%26c&offset=0&limit=10", request.URL.RawQuery)
			writer.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		client := hubhttp.NewClient(server.URL, nil)

		_, err := client.Do(context.Background(), &hubhttp.Request{
			Method: "GET",
			Path:   "api/persons",
			Query:  hub.NewQuery("criteria", "a b&c", "offset", "0", "limit", "10"),
		})
		require.NoError(t, err)
	})

	t.Run("body defaults to json", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			assert.Equal(t, "POST", request.Method)
			assert.Equal(t, "application/json", request.Header.Get("Content-Type"))

			var body map[string]string

			_ = json.NewDecoder(request.Body).Decode(&body)
			assert.Equal(t, "Ada", body["name"])

			writer.WriteHeader(http.StatusCreated)
		}))
		defer server.Close()

		client := hubhttp.NewClient(server.URL, nil)

		resp, err := client.Do(context.Background(), &hubhttp.Request{
			Method: "POST",
			Path:   "api/persons",
			Body:   map[string]string{"name": "Ada"},
		})
		require.NoError(t, err)
		assert.Equal(t, 201, resp.StatusCode)
	})

	t.Run("raw body with explicit content type", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			assert.Equal(t, "application/vnd.hedtech.change-notifications.v2+json", request.Header.Get("Content-Type"))

			body, _ := io.ReadAll(request.Body)
			assert.JSONEq(t, `{"id":-1}`, string(body))

			writer.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		client := hubhttp.NewClient(server.URL, nil)

		_, err := client.Do(context.Background(), &hubhttp.Request{
			Method:      "POST",
			Path:        "publish",
			Body:        `{"id":-1}`,
			ContentType: "application/vnd.hedtech.change-notifications.v2+json",
		})
		require.NoError(t, err)
	})

	t.Run("error status is returned, not raised", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			writer.WriteHeader(http.StatusNotFound)
			_, _ = writer.Write([]byte(`{"message":"not found"}`))
		}))
		defer server.Close()

		client := hubhttp.NewClient(server.URL, nil)

		resp, err := client.Do(context.Background(), &hubhttp.Request{
			Method: "GET",
			Path:   "api/persons/missing",
		})
		require.NoError(t, err)
		assert.Equal(t, 404, resp.StatusCode)
		assert.False(t, resp.IsSuccess())
		assert.JSONEq(t, `{"message":"not found"}`, string(resp.Body))
	})

	t.Run("custom headers", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			assert.Equal(t, "custom-value", request.Header.Get("X-Custom-Header"))
			assert.Equal(t, "UTF-8", request.Header.Get("Accept-Charset"))
			writer.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		client := hubhttp.NewClient(server.URL, nil)

		_, err := client.Do(context.Background(), &hubhttp.Request{
			Method: "GET",
			Path:   "api/persons",
			Headers: map[string]string{
				"X-Custom-Header": "custom-value",
				"Accept-Charset":  "ISO-8859-1",
			},
		})
		require.NoError(t, err)
	})

	t.Run("explicit authorization header skips token manager", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			assert.Equal(t, "Bearer api-key", request.Header.Get("Authorization"))
			writer.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		tokenManager := &MockTokenManager{token: "session-token"}
		client := hubhttp.NewClient(server.URL, tokenManager)

		_, err := client.Do(context.Background(), &hubhttp.Request{
			Method:  "POST",
			Path:    "auth",
			Headers: map[string]string{"Authorization": "Bearer api-key"},
		})
		require.NoError(t, err)
		assert.Equal(t, int32(0), tokenManager.calls.Load())
	})

	t.Run("token failure sends nothing", func(t *testing.T) {
		t.Parallel()

		var hits atomic.Int32

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			hits.Add(1)
			writer.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		client := hubhttp.NewClient(server.URL, &MockTokenManager{err: errTokenUnavailable})

		_, err := client.Do(context.Background(), &hubhttp.Request{Method: "GET", Path: "api/persons"})
		require.Error(t, err)
		require.ErrorIs(t, err, errTokenUnavailable)
		assert.Equal(t, int32(0), hits.Load())
	})

	t.Run("with debug logging", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			writer.Header().Set("X-Media-Type", "application/vnd.hedtech.integration.v12+json")
			writer.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		logger := &MockLogger{}
		client := hubhttp.NewClient(server.URL, nil, hubhttp.WithLogger(logger), hubhttp.WithDebug(true))

		_, err := client.Do(context.Background(), &hubhttp.Request{Method: "GET", Path: "api/persons"})
		require.NoError(t, err)

		require.Len(t, logger.logs, 2)
		assert.Equal(t, "HTTP Request", logger.logs[0]["msg"])
		assert.Equal(t, "HTTP Response", logger.logs[1]["msg"])
	})
}

func TestClient_NoRetry(t *testing.T) {
	t.Parallel()

	for _, status := range []int{http.StatusInternalServerError, http.StatusServiceUnavailable, http.StatusTooManyRequests} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			t.Parallel()

			var attempts atomic.Int32

			server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
				attempts.Add(1)
				writer.WriteHeader(status)
			}))
			defer server.Close()

			client := hubhttp.NewClient(server.URL, nil)

			resp, err := client.Do(context.Background(), &hubhttp.Request{Method: "GET", Path: "api/persons"})
			require.NoError(t, err)
			assert.Equal(t, status, resp.StatusCode)
			assert.Equal(t, int32(1), attempts.Load())
		})
	}
}

func TestClient_ContextCancellation(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})

	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		select {
		case <-release:
		case <-request.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	client := hubhttp.NewClient(server.URL, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.Do(ctx, &hubhttp.Request{Method: "GET", Path: "api/persons"})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestClient_URL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		base     string
		path     string
		query    *hub.Query
		expected string
	}{
		{
			name:     "base without trailing slash",
			base:     "https://hub.example.com",
			path:     "auth",
			expected: "https://hub.example.com/auth",
		},
		{
			name:     "base with trailing slash and rooted path",
			base:     "https://hub.example.com/",
			path:     "/api/persons",
			expected: "https://hub.example.com/api/persons",
		},
		{
			name:     "with query",
			base:     "https://hub.example.com/",
			path:     "consume",
			query:    hub.NewQuery("lastProcessedID", "-1", "max", "10"),
			expected: "https://hub.example.com/consume?lastProcessedID=-1&max=10",
		},
		{
			name:     "absolute path",
			base:     "https://hub.example.com/",
			path:     "https://other.example.com/auth",
			expected: "https://other.example.com/auth",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			client := hubhttp.NewClient(tt.base, nil)
			assert.Equal(t, tt.expected, client.URL(tt.path, tt.query))
		})
	}
}
