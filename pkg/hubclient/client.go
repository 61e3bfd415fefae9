// Package hubclient provides the main entry point for creating hub API clients
package hubclient

import (
	"fmt"
	"strings"
	"time"

	"github.com/fivetwenty-io/hubclient/internal/client"
	"github.com/fivetwenty-io/hubclient/internal/constants"
	"github.com/fivetwenty-io/hubclient/pkg/hub"
)

// TokenPersister saves issued tokens so a later process can resume the session.
type TokenPersister interface {
	SaveToken(baseURI, token string, expiresAt time.Time) error
}

// SavedToken is a previously issued token.
type SavedToken struct {
	AccessToken string
	ExpiresAt   time.Time
}

// New creates a new hub client. config is normalized in place.
func New(config *hub.Config) (hub.Client, error) {
	err := normalize(config)
	if err != nil {
		return nil, err
	}

	c, err := client.New(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create new client: %w", err)
	}

	return c, nil
}

// NewWithAPIKey creates a client with default settings.
func NewWithAPIKey(baseURI, apiKey string) (hub.Client, error) {
	return New(&hub.Config{
		BaseURI: baseURI,
		APIKey:  apiKey,
	})
}

// NewWithSavedToken creates a client that reuses saved while it is fresh and
// reports every newly issued token to persister.
func NewWithSavedToken(config *hub.Config, saved SavedToken, persister TokenPersister) (hub.Client, error) {
	err := normalize(config)
	if err != nil {
		return nil, err
	}

	c, err := client.NewPersisting(config, persister, saved.AccessToken, saved.ExpiresAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create new client: %w", err)
	}

	return c, nil
}

// NormalizeBaseURI adds "https://" when no scheme is given and ensures a
// single trailing slash.
func NormalizeBaseURI(baseURI string) string {
	baseURI = strings.TrimSpace(baseURI)
	if baseURI == "" {
		return ""
	}

	if !strings.HasPrefix(baseURI, "http://") && !strings.HasPrefix(baseURI, "https://") {
		baseURI = "https://" + baseURI
	}

	return strings.TrimRight(baseURI, "/") + "/"
}

func normalize(config *hub.Config) error {
	if config == nil {
		return constants.ErrConfigRequired
	}

	if strings.TrimSpace(config.BaseURI) == "" {
		return constants.ErrBaseURIRequired
	}

	if config.APIKey == "" {
		return constants.ErrAPIKeyRequired
	}

	config.BaseURI = NormalizeBaseURI(config.BaseURI)

	if config.TokenValidity <= 0 {
		config.TokenValidity = constants.DefaultTokenValidity
	}

	if config.HTTPTimeout <= 0 {
		config.HTTPTimeout = constants.DefaultHTTPTimeout
	}

	if config.MaxMessagesToConsume <= 0 {
		config.MaxMessagesToConsume = constants.DefaultMaxMessagesToConsume
	}

	return nil
}
