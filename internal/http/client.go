// Package http executes single hub requests: it resolves paths against the
// base URI, applies the version negotiation and auth headers, and returns
// the response whatever its status.
package http

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/fivetwenty-io/hubclient/internal/constants"
	"github.com/fivetwenty-io/hubclient/pkg/hub"
)

// TokenManager supplies the bearer token attached to each request.
type TokenManager interface {
	GetToken(ctx context.Context) (string, error)
}

// Request describes one hub call.
type Request struct {
	Method string
	// Path is relative to the base URI ("api/persons"). Absolute URLs are used as-is.
	Path  string
	Query *hub.Query
	// Headers are applied before the negotiated headers, which always win.
	Headers map[string]string
	// Body is sent verbatim when it is a []byte or string and JSON-encoded otherwise.
	Body interface{}
	// ContentType of Body. Defaults to application/json when a body is present.
	ContentType string
	// Accept is the version media type to request. Defaults to application/json.
	Accept string
}

// Response is a fully read hub response.
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// IsSuccess reports a 2xx status.
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= http.StatusOK && r.StatusCode < http.StatusMultipleChoices
}

// Client performs exactly one round trip per Do call.
type Client struct {
	baseURL      string
	httpClient   *retryablehttp.Client
	tokenManager TokenManager
	logger       hub.Logger
	debug        bool
	userAgent    string
	timeout      time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger used for debug output.
func WithLogger(logger hub.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithDebug enables request/response logging.
func WithDebug(debug bool) Option {
	return func(c *Client) {
		c.debug = debug
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		c.userAgent = userAgent
	}
}

// WithTimeout sets the per-request transport timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.timeout = timeout
	}
}

// WithRetryableClient shares a transport, typically with the token manager.
func WithRetryableClient(rc *retryablehttp.Client) Option {
	return func(c *Client) {
		c.httpClient = rc
	}
}

// NewClient creates a request executor for baseURL. tokenManager may be nil
// for unauthenticated calls.
func NewClient(baseURL string, tokenManager TokenManager, opts ...Option) *Client {
	c := &Client{
		baseURL:      NormalizeBaseURL(baseURL),
		tokenManager: tokenManager,
		userAgent:    constants.DefaultUserAgent,
		timeout:      constants.DefaultHTTPTimeout,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.httpClient == nil {
		c.httpClient = NewRetryableClient(c.timeout)
	}

	if c.debug && c.logger != nil {
		installLogHooks(c.httpClient, c.logger)
	}

	return c
}

// NewRetryableClient returns a transport that never retries: every request
// is a single round trip and every response is handed back to the caller.
func NewRetryableClient(timeout time.Duration) *retryablehttp.Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 0
	rc.CheckRetry = noRetry
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	rc.Logger = nil

	if timeout > 0 {
		rc.HTTPClient.Timeout = timeout
	}

	return rc
}

func noRetry(ctx context.Context, _ *http.Response, _ error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}

	return false, nil
}

func installLogHooks(rc *retryablehttp.Client, logger hub.Logger) {
	rc.RequestLogHook = func(_ retryablehttp.Logger, req *http.Request, _ int) {
		logger.Debug("HTTP Request", map[string]interface{}{
			"method": req.Method,
			"url":    req.URL.Redacted(),
			"accept": req.Header.Get(constants.HeaderAccept),
		})
	}
	rc.ResponseLogHook = func(_ retryablehttp.Logger, resp *http.Response) {
		logger.Debug("HTTP Response", map[string]interface{}{
			"method":      resp.Request.Method,
			"url":         resp.Request.URL.Redacted(),
			"status_code": resp.StatusCode,
			"media_type":  resp.Header.Get(constants.HeaderMediaType),
		})
	}
}

// NormalizeBaseURL trims whitespace and ensures a single trailing slash.
func NormalizeBaseURL(baseURL string) string {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return ""
	}

	return strings.TrimRight(baseURL, "/") + "/"
}

// BaseURL returns the normalized base URI.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// StandardClient exposes the shared transport as a plain *http.Client.
func (c *Client) StandardClient() *http.Client {
	return c.httpClient.StandardClient()
}

// URL resolves path and query against the base URI.
func (c *Client) URL(path string, query *hub.Query) string {
	fullURL := path
	if !strings.HasPrefix(path, "http://") && !strings.HasPrefix(path, "https://") {
		fullURL = c.baseURL + strings.TrimPrefix(path, "/")
	}

	if encoded := query.Encode(); encoded != "" {
		fullURL += "?" + encoded
	}

	return fullURL
}

// Do sends req. A non-2xx status is not an error; only transport and
// request-building failures are.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	body, err := encodeBody(req.Body)
	if err != nil {
		return nil, err
	}

	var rawBody interface{}
	if body != nil {
		rawBody = body
	}

	httpReq, err := retryablehttp.NewRequestWithContext(ctx, req.Method, c.URL(req.Path, req.Query), rawBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	for key, value := range req.Headers {
		httpReq.Header.Set(key, value)
	}

	err = c.applyHeaders(ctx, httpReq, req, body != nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("executing %s %s: %w", req.Method, req.Path, err)
	}

	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       respBody,
	}, nil
}

func (c *Client) applyHeaders(ctx context.Context, httpReq *retryablehttp.Request, req *Request, hasBody bool) error {
	accept := req.Accept
	if accept == "" {
		accept = constants.DefaultJSONContentType
	}

	httpReq.Header.Set(constants.HeaderAccept, accept)
	httpReq.Header.Set(constants.HeaderAcceptCharset, constants.AcceptCharsetUTF8)

	if hasBody {
		contentType := req.ContentType
		if contentType == "" {
			contentType = constants.DefaultJSONContentType
		}

		httpReq.Header.Set(constants.HeaderContentType, contentType)
	}

	if c.userAgent != "" && httpReq.Header.Get(constants.HeaderUserAgent) == "" {
		httpReq.Header.Set(constants.HeaderUserAgent, c.userAgent)
	}

	if c.tokenManager == nil || httpReq.Header.Get(constants.HeaderAuthorization) != "" {
		return nil
	}

	token, err := c.tokenManager.GetToken(ctx)
	if err != nil {
		return fmt.Errorf("getting token: %w", err)
	}

	if token != "" {
		httpReq.Header.Set(constants.HeaderAuthorization, constants.BearerPrefix+token)
	}

	return nil
}

func encodeBody(body interface{}) ([]byte, error) {
	switch b := body.(type) {
	case nil:
		return nil, nil
	case []byte:
		return b, nil
	case string:
		return []byte(b), nil
	case json.RawMessage:
		return b, nil
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return nil, fmt.Errorf("marshaling request body: %w", err)
		}

		return data, nil
	}
}
