package hub

import (
	"context"
	"time"
)

// SessionClient exposes the authentication state of a client.
type SessionClient interface {
	// Authenticate ensures a fresh token is cached and reports failure as false.
	Authenticate(ctx context.Context) bool
}

// ResourceClient reads and writes hub resources under the "api" prefix.
type ResourceClient interface {
	// Get fetches a single resource. An empty versionType requests the
	// default JSON representation.
	Get(ctx context.Context, id, resourceName, versionType string) (*Envelope, error)
	// GetAll fetches one page. offset is always sent; limit only when positive.
	GetAll(ctx context.Context, resourceName string, params *Query, offset, limit int, versionType string) (*Envelope, error)
	// Create posts model and decodes the response into out.
	Create(ctx context.Context, model Resource, out any) error
	// Update puts model to its id and decodes the response into out.
	Update(ctx context.Context, model Resource, id string, out any) error
	// Delete deletes id. model is optional and, when set, sent as the body.
	Delete(ctx context.Context, model any, id, resourceName, versionType string, out any) error
	// VersionSupported probes a version with a one-record GetAll. Any
	// successful answer, including an empty page, counts as supported. This
	// is a heuristic, not capability negotiation.
	VersionSupported(ctx context.Context, resourceName, version string) (bool, error)
}

// NotificationClient publishes and consumes change notifications.
type NotificationClient interface {
	Publish(ctx context.Context, notification *ChangeNotification) error
	// Consume acknowledges everything up to lastProcessedID and returns at
	// most max new notifications.
	Consume(ctx context.Context, lastProcessedID string, max int) ([]ChangeNotification, error)
}

// Client is the full hub client.
type Client interface {
	SessionClient
	ResourceClient
	NotificationClient
}

// Logger interface for logging.
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

// Config represents client configuration for building a hub.Client.
//
// Only BaseURI and APIKey are required. Each Client built from a Config
// owns its own session; two clients never share a cached token.
type Config struct {
	// BaseURI is the hub endpoint, e.g. "https://integrate.example.com/".
	// hubclient.New adds "https://" when no scheme is given and ensures a
	// trailing slash.
	BaseURI string
	// APIKey is the static application key exchanged for bearer tokens.
	APIKey string

	// TokenValidity is how long an issued token is reused. Defaults to 5 minutes.
	TokenValidity time.Duration
	// UseTokenClaims caps the validity window at the token's own "exp"
	// claim when the token is a JWT.
	UseTokenClaims bool

	// MaxMessagesToConsume is the default page size of Consume. Defaults to 10.
	MaxMessagesToConsume int
	// TotalCountPolicy controls GetAll when X-Total-Count is absent.
	TotalCountPolicy TotalCountPolicy

	// HTTPTimeout bounds each round trip when the context has no deadline.
	// Defaults to 30 seconds.
	HTTPTimeout time.Duration
	// UserAgent overrides the default User-Agent header.
	UserAgent string
	// Debug enables request/response logging when a Logger is provided.
	Debug bool
	// Logger is optional; nil disables logging.
	Logger Logger
}

// Create posts model and returns the hub's representation of it.
func Create[T Resource](ctx context.Context, c ResourceClient, model T) (T, error) {
	var out T

	err := c.Create(ctx, model, &out)
	if err != nil {
		var zero T

		return zero, err
	}

	return out, nil
}

// Update replaces the resource id with model and returns the hub's representation.
func Update[T Resource](ctx context.Context, c ResourceClient, model T, id string) (T, error) {
	var out T

	err := c.Update(ctx, model, id, &out)
	if err != nil {
		var zero T

		return zero, err
	}

	return out, nil
}

// Delete deletes the resource id and returns whatever the hub echoed back.
func Delete[T any](ctx context.Context, c ResourceClient, model T, id, resourceName, versionType string) (T, error) {
	var out T

	err := c.Delete(ctx, model, id, resourceName, versionType, &out)
	if err != nil {
		var zero T

		return zero, err
	}

	return out, nil
}
