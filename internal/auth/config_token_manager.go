package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fivetwenty-io/hubclient/pkg/hub"
)

// Static errors for err113 compliance.
var (
	ErrNoTokenPersister = errors.New("no token persister configured")
)

// TokenPersister saves issued tokens so a later process can reuse them.
type TokenPersister interface {
	SaveToken(baseURI, token string, expiresAt time.Time) error
}

// PersistingTokenManager wraps a SessionManager and hands every newly issued
// token to a TokenPersister.
type PersistingTokenManager struct {
	session   *SessionManager
	persister TokenPersister
	baseURI   string
	logger    hub.Logger

	mutex     sync.Mutex
	lastToken string
	lastExp   time.Time
}

// NewPersistingTokenManager creates a manager seeded with a previously saved
// token. An empty initialToken starts without a session.
func NewPersistingTokenManager(session *SessionManager, persister TokenPersister, baseURI, initialToken string, initialExpiry time.Time) *PersistingTokenManager {
	if initialToken != "" {
		session.SetToken(initialToken, initialExpiry)
	}

	return &PersistingTokenManager{
		session:   session,
		persister: persister,
		baseURI:   baseURI,
		logger:    session.config.Logger,
		lastToken: initialToken,
		lastExp:   initialExpiry,
	}
}

// EnsureAuthenticated implements TokenManager.
func (m *PersistingTokenManager) EnsureAuthenticated(ctx context.Context) bool {
	if !m.session.EnsureAuthenticated(ctx) {
		return false
	}

	m.persistIfChanged()

	return true
}

// GetToken implements TokenManager.
func (m *PersistingTokenManager) GetToken(ctx context.Context) (string, error) {
	token, err := m.session.GetToken(ctx)
	if err != nil {
		return "", err
	}

	m.persistIfChanged()

	return token, nil
}

// RefreshToken implements TokenManager.
func (m *PersistingTokenManager) RefreshToken(ctx context.Context) error {
	err := m.session.RefreshToken(ctx)
	if err != nil {
		return err
	}

	m.persistIfChanged()

	return nil
}

// SetToken implements TokenManager. Manually set tokens are not persisted.
func (m *PersistingTokenManager) SetToken(token string, expiresAt time.Time) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.session.SetToken(token, expiresAt)
	m.lastToken = token
	m.lastExp = expiresAt
}

// TokenExpiry returns the expiry of the cached token, or the zero time.
func (m *PersistingTokenManager) TokenExpiry() time.Time {
	token := m.session.Token()
	if token == nil {
		return time.Time{}
	}

	return token.ExpiresAt
}

func (m *PersistingTokenManager) persistIfChanged() {
	current := m.session.Token()
	if current == nil {
		return
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()

	if current.AccessToken == m.lastToken && current.ExpiresAt.Equal(m.lastExp) {
		return
	}

	m.lastToken = current.AccessToken
	m.lastExp = current.ExpiresAt

	err := m.persist(current)
	if err != nil && m.logger != nil {
		m.logger.Warn("failed to persist hub token", map[string]interface{}{
			"base_uri": m.baseURI,
			"error":    err.Error(),
		})
	}
}

func (m *PersistingTokenManager) persist(token *Token) error {
	if m.persister == nil {
		return ErrNoTokenPersister
	}

	err := m.persister.SaveToken(m.baseURI, token.AccessToken, token.ExpiresAt)
	if err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}

	return nil
}
