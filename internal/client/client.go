package client

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/fivetwenty-io/hubclient/internal/auth"
	"github.com/fivetwenty-io/hubclient/internal/constants"
	"github.com/fivetwenty-io/hubclient/internal/http"
	"github.com/fivetwenty-io/hubclient/pkg/hub"
)

// Client implements the hub.Client interface.
type Client struct {
	httpClient       *http.Client
	tokenManager     auth.TokenManager
	logger           hub.Logger
	maxMessages      int
	totalCountPolicy hub.TotalCountPolicy
}

var _ hub.Client = (*Client)(nil)

// New creates a hub client with its own session. config must already carry
// a normalized BaseURI.
func New(config *hub.Config) (*Client, error) {
	err := validate(config)
	if err != nil {
		return nil, err
	}

	transport, session := newSession(config)

	return newClient(config, session, http.WithRetryableClient(transport)), nil
}

// NewPersisting creates a hub client that resumes from a saved token and
// hands every newly issued token to persister.
func NewPersisting(config *hub.Config, persister auth.TokenPersister, token string, expiresAt time.Time) (*Client, error) {
	err := validate(config)
	if err != nil {
		return nil, err
	}

	transport, session := newSession(config)
	tokenManager := auth.NewPersistingTokenManager(session, persister, http.NormalizeBaseURL(config.BaseURI), token, expiresAt)

	return newClient(config, tokenManager, http.WithRetryableClient(transport)), nil
}

// newSession creates the session manager and the transport it shares with
// the request executor.
func newSession(config *hub.Config) (*retryablehttp.Client, *auth.SessionManager) {
	timeout := config.HTTPTimeout
	if timeout <= 0 {
		timeout = constants.DefaultHTTPTimeout
	}

	transport := http.NewRetryableClient(timeout)

	session := auth.NewSessionManager(auth.Config{
		AuthURL:        http.NormalizeBaseURL(config.BaseURI) + constants.AuthPath,
		APIKey:         config.APIKey,
		Validity:       config.TokenValidity,
		UseTokenClaims: config.UseTokenClaims,
		HTTPClient:     transport.StandardClient(),
		Logger:         config.Logger,
	})

	return transport, session
}

// NewWithTokenManager creates a hub client that authenticates through tokenManager.
func NewWithTokenManager(config *hub.Config, tokenManager auth.TokenManager) (*Client, error) {
	if config == nil || strings.TrimSpace(config.BaseURI) == "" {
		return nil, constants.ErrBaseURIRequired
	}

	if tokenManager == nil {
		return nil, fmt.Errorf("%w: token manager cannot be nil", hub.ErrInvalidArgument)
	}

	return newClient(config, tokenManager), nil
}

func validate(config *hub.Config) error {
	if config == nil {
		return constants.ErrConfigRequired
	}

	if strings.TrimSpace(config.BaseURI) == "" {
		return constants.ErrBaseURIRequired
	}

	if config.APIKey == "" {
		return constants.ErrAPIKeyRequired
	}

	return nil
}

// createHTTPClientOptions builds HTTP client options from config.
func createHTTPClientOptions(config *hub.Config) []http.Option {
	var httpOpts []http.Option

	if config.Logger != nil {
		httpOpts = append(httpOpts, http.WithLogger(config.Logger))
	}

	if config.Debug {
		httpOpts = append(httpOpts, http.WithDebug(true))
	}

	if config.UserAgent != "" {
		httpOpts = append(httpOpts, http.WithUserAgent(config.UserAgent))
	}

	if config.HTTPTimeout > 0 {
		httpOpts = append(httpOpts, http.WithTimeout(config.HTTPTimeout))
	}

	return httpOpts
}

func newClient(config *hub.Config, tokenManager auth.TokenManager, extra ...http.Option) *Client {
	httpOpts := append(createHTTPClientOptions(config), extra...)

	maxMessages := config.MaxMessagesToConsume
	if maxMessages <= 0 {
		maxMessages = constants.DefaultMaxMessagesToConsume
	}

	return &Client{
		httpClient:       http.NewClient(config.BaseURI, tokenManager, httpOpts...),
		tokenManager:     tokenManager,
		logger:           config.Logger,
		maxMessages:      maxMessages,
		totalCountPolicy: config.TotalCountPolicy,
	}
}

// GetTokenManager returns the token manager for this client.
func (c *Client) GetTokenManager() auth.TokenManager {
	return c.tokenManager
}

// BaseURL returns the normalized hub base URI.
func (c *Client) BaseURL() string {
	return c.httpClient.BaseURL()
}

// Authenticate implements hub.SessionClient.Authenticate.
func (c *Client) Authenticate(ctx context.Context) bool {
	return c.tokenManager.EnsureAuthenticated(ctx)
}

// send executes req and turns a non-2xx answer into a *hub.RequestError.
func (c *Client) send(ctx context.Context, req *http.Request) (*http.Response, error) {
	resp, err := c.httpClient.Do(ctx, req)
	if err != nil {
		return nil, err
	}

	if !resp.IsSuccess() {
		return nil, &hub.RequestError{
			StatusCode: resp.StatusCode,
			Path:       req.Path,
			Body:       string(resp.Body),
		}
	}

	return resp, nil
}

// decode unmarshals body into out. A nil out discards the body; an empty
// body is accepted only when allowEmpty is set.
func decode(body []byte, out any, allowEmpty bool) error {
	if out == nil {
		return nil
	}

	if len(strings.TrimSpace(string(body))) == 0 {
		if allowEmpty {
			return nil
		}

		return fmt.Errorf("%w: empty response body", hub.ErrMalformedResponse)
	}

	err := json.Unmarshal(body, out)
	if err != nil {
		return fmt.Errorf("%w: %w", hub.ErrMalformedResponse, err)
	}

	return nil
}

// isNilModel reports whether model is nil, including a typed nil pointer,
// map, slice or interface.
func isNilModel(model any) bool {
	if model == nil {
		return true
	}

	value := reflect.ValueOf(model)

	switch value.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface:
		return value.IsNil()
	default:
		return false
	}
}

func (c *Client) logDebug(msg string, fields map[string]interface{}) {
	if c.logger != nil {
		c.logger.Debug(msg, fields)
	}
}
