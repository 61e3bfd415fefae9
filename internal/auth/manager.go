package auth

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/fivetwenty-io/hubclient/internal/constants"
	hubhttp "github.com/fivetwenty-io/hubclient/internal/http"
	"github.com/fivetwenty-io/hubclient/pkg/hub"
)

const maxTokenSize = 64 << 10

// TokenManager is the contract the resource client relies on.
type TokenManager interface {
	// EnsureAuthenticated makes sure a fresh token is cached. Failure is a
	// return value, never an error.
	EnsureAuthenticated(ctx context.Context) bool
	GetToken(ctx context.Context) (string, error)
	RefreshToken(ctx context.Context) error
	SetToken(token string, expiresAt time.Time)
}

// Config configures a SessionManager.
type Config struct {
	// AuthURL is the absolute URL of the hub "auth" endpoint.
	AuthURL string
	// APIKey is sent as the bearer credential to AuthURL.
	APIKey string
	// Validity is how long a new token is reused. Defaults to 5 minutes.
	Validity time.Duration
	// UseTokenClaims caps Validity at the JWT "exp" claim when present.
	UseTokenClaims bool
	// HTTPClient performs the auth request. Defaults to a non-retrying client.
	HTTPClient *http.Client
	Logger     hub.Logger
}

// SessionManager owns the token of one hub session. Refreshes are
// serialized: at most one auth request is in flight, and callers that
// queued behind it observe its outcome instead of issuing their own.
type SessionManager struct {
	config Config
	store  *TokenStore
	now    func() time.Time

	// refreshSlot is held for the duration of a refresh. Waiting on it
	// honors the caller's context.
	refreshSlot chan struct{}
	attempts    atomic.Uint64
	lastOK      bool
}

// Option configures a SessionManager.
type Option func(*SessionManager)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *SessionManager) {
		m.now = now
	}
}

// WithTokenStore shares an existing store.
func WithTokenStore(store *TokenStore) Option {
	return func(m *SessionManager) {
		m.store = store
	}
}

// NewSessionManager creates a session manager with no cached token.
func NewSessionManager(config Config, opts ...Option) *SessionManager {
	if config.Validity <= 0 {
		config.Validity = constants.DefaultTokenValidity
	}

	if config.HTTPClient == nil {
		config.HTTPClient = hubhttp.NewRetryableClient(constants.DefaultHTTPTimeout).StandardClient()
	}

	m := &SessionManager{
		config:      config,
		store:       NewTokenStore(),
		now:         time.Now,
		refreshSlot: make(chan struct{}, 1),
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// EnsureAuthenticated implements TokenManager.
func (m *SessionManager) EnsureAuthenticated(ctx context.Context) bool {
	return m.ensure(ctx) != nil
}

// GetToken implements TokenManager. It returns the token ensure validated,
// not a second read of the store.
func (m *SessionManager) GetToken(ctx context.Context) (string, error) {
	token := m.ensure(ctx)
	if token == nil {
		return "", fmt.Errorf("%w: token refresh failed", hub.ErrUnauthenticated)
	}

	return token.AccessToken, nil
}

// ensure returns a token that is valid now, refreshing it if needed, or nil
// when no token could be established.
func (m *SessionManager) ensure(ctx context.Context) *Token {
	if token := m.store.Get(); token.ValidAt(m.now()) {
		return token
	}

	seen := m.attempts.Load()

	select {
	case m.refreshSlot <- struct{}{}:
	case <-ctx.Done():
		return nil
	}
	defer func() { <-m.refreshSlot }()

	if token := m.store.Get(); token.ValidAt(m.now()) {
		return token
	}

	// An attempt finished while we waited. Its failure is ours too.
	if m.attempts.Load() != seen && !m.lastOK {
		return nil
	}

	return m.refresh(ctx)
}

// RefreshToken forces a new auth request even if the cached token is fresh.
func (m *SessionManager) RefreshToken(ctx context.Context) error {
	select {
	case m.refreshSlot <- struct{}{}:
	case <-ctx.Done():
		return fmt.Errorf("waiting for token refresh: %w", ctx.Err())
	}
	defer func() { <-m.refreshSlot }()

	if m.refresh(ctx) == nil {
		return fmt.Errorf("%w: token refresh failed", hub.ErrUnauthenticated)
	}

	return nil
}

// SetToken manually sets the access token. It waits for a refresh in
// progress to finish.
func (m *SessionManager) SetToken(token string, expiresAt time.Time) {
	m.refreshSlot <- struct{}{}
	defer func() { <-m.refreshSlot }()

	m.store.Set(&Token{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresAt:   expiresAt,
	})
}

// Token returns a copy of the cached token, or nil.
func (m *SessionManager) Token() *Token {
	return m.store.Get()
}

// refresh must be called while holding refreshSlot. It returns the new
// token, or nil on failure.
func (m *SessionManager) refresh(ctx context.Context) *Token {
	m.store.Clear()

	token, err := m.requestToken(ctx)

	m.lastOK = err == nil
	m.attempts.Add(1)

	if err != nil {
		m.logWarn("hub authentication failed", map[string]interface{}{
			"url":   m.config.AuthURL,
			"error": err.Error(),
		})

		return nil
	}

	m.store.Set(token)
	m.logDebug("hub token refreshed", map[string]interface{}{
		"expires_at": token.ExpiresAt.Format(time.RFC3339),
	})

	return token
}

func (m *SessionManager) requestToken(ctx context.Context) (*Token, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.config.AuthURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating auth request: %w", err)
	}

	req.Header.Set(constants.HeaderAuthorization, constants.BearerPrefix+m.config.APIKey)
	req.Header.Set(constants.HeaderAccept, "text/plain, "+constants.DefaultJSONContentType)

	resp, err := m.config.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending auth request: %w", err)
	}

	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxTokenSize))
	if err != nil {
		return nil, fmt.Errorf("reading auth response: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("%w: status %d", constants.ErrAuthRequestFailed, resp.StatusCode)
	}

	raw := strings.Trim(strings.TrimSpace(string(body)), `"`)
	if raw == "" {
		return nil, constants.ErrEmptyToken
	}

	now := m.now()
	expiresAt := now.Add(m.config.Validity)

	if m.config.UseTokenClaims {
		exp, claimErr := tokenExpiry(raw)
		if claimErr == nil && exp.Before(expiresAt) {
			expiresAt = exp
		}
	}

	return &Token{
		AccessToken: raw,
		TokenType:   "bearer",
		ExpiresAt:   expiresAt,
	}, nil
}

// tokenExpiry reads the "exp" claim of a JWT without verifying its signature.
func tokenExpiry(raw string) (time.Time, error) {
	claims := &jwt.RegisteredClaims{}

	_, _, err := jwt.NewParser().ParseUnverified(raw, claims)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing token claims: %w", err)
	}

	if claims.ExpiresAt == nil {
		return time.Time{}, constants.ErrNoExpirationClaim
	}

	return claims.ExpiresAt.Time, nil
}

func (m *SessionManager) logDebug(msg string, fields map[string]interface{}) {
	if m.config.Logger != nil {
		m.config.Logger.Debug(msg, fields)
	}
}

func (m *SessionManager) logWarn(msg string, fields map[string]interface{}) {
	if m.config.Logger != nil {
		m.config.Logger.Warn(msg, fields)
	}
}
