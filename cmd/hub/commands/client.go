package commands

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/fivetwenty-io/hubclient/internal/constants"
	"github.com/fivetwenty-io/hubclient/internal/logging"
	"github.com/fivetwenty-io/hubclient/pkg/hub"
	"github.com/fivetwenty-io/hubclient/pkg/hubclient"
)

// ConfigPersister saves tokens issued by the hub into the config file.
type ConfigPersister struct {
	mutex sync.Mutex
}

// NewConfigPersister creates a new config persister.
func NewConfigPersister() *ConfigPersister {
	return &ConfigPersister{}
}

// SaveToken implements hubclient.TokenPersister.
func (p *ConfigPersister) SaveToken(baseURI, token string, expiresAt time.Time) error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	config := loadConfig()
	config.Token = token
	config.TokenBaseURI = baseURI
	config.TokenExpiresAt = &expiresAt

	return saveConfigStruct(config)
}

// CreateClient builds a hub client from the effective configuration. A
// cached token for the same hub is reused until it expires.
func CreateClient() (hub.Client, error) {
	config := loadConfig()

	hubConfig, err := buildHubConfig(config)
	if err != nil {
		return nil, err
	}

	return hubclient.NewWithSavedToken(hubConfig, savedToken(config), NewConfigPersister())
}

func buildHubConfig(config *Config) (*hub.Config, error) {
	if strings.TrimSpace(config.BaseURI) == "" {
		return nil, constants.ErrBaseURIRequired
	}

	apiKey := config.APIKey
	if apiKey == "" {
		var err error

		apiKey, err = promptAPIKey()
		if err != nil {
			return nil, err
		}
	}

	policy, ok := hub.ParseTotalCountPolicy(config.TotalCountPolicy)
	if !ok {
		return nil, fmt.Errorf("%w: total count policy %q", hub.ErrInvalidArgument, config.TotalCountPolicy)
	}

	verbose := viper.GetBool(KeyVerbose)

	return &hub.Config{
		BaseURI:              config.BaseURI,
		APIKey:               apiKey,
		TokenValidity:        config.TokenValidity,
		UseTokenClaims:       config.UseTokenClaims,
		MaxMessagesToConsume: config.MaxMessages,
		TotalCountPolicy:     policy,
		HTTPTimeout:          config.Timeout,
		Debug:                verbose,
		Logger:               newLogger(config.LogLevel, verbose),
	}, nil
}

// savedToken returns the cached token when it was issued by the configured hub.
func savedToken(config *Config) hubclient.SavedToken {
	if config.Token == "" || config.TokenExpiresAt == nil {
		return hubclient.SavedToken{}
	}

	if config.TokenBaseURI != hubclient.NormalizeBaseURI(config.BaseURI) {
		return hubclient.SavedToken{}
	}

	return hubclient.SavedToken{AccessToken: config.Token, ExpiresAt: *config.TokenExpiresAt}
}

func newLogger(level string, verbose bool) hub.Logger {
	if verbose {
		level = "debug"
	}

	return logging.New(os.Stderr, level, logging.FormatConsole)
}

// promptAPIKey asks for the API key without echo when stdin is a terminal.
func promptAPIKey() (string, error) {
	fd := int(os.Stdin.Fd()) //nolint:gosec

	if !term.IsTerminal(fd) {
		return "", constants.ErrAPIKeyNotPrompted
	}

	_, _ = os.Stderr.WriteString("API key: ")

	keyBytes, err := term.ReadPassword(fd)

	_, _ = os.Stderr.WriteString("\n")

	if err != nil {
		return "", fmt.Errorf("failed to read API key: %w", err)
	}

	apiKey := strings.TrimSpace(string(keyBytes))
	if apiKey == "" {
		return "", constants.ErrAPIKeyRequired
	}

	return apiKey, nil
}
