package constants

import "errors"

// Configuration errors.
var (
	ErrBaseURIRequired = errors.New("hub base URI is required")
	ErrAPIKeyRequired  = errors.New("hub API key is required")
	ErrConfigRequired  = errors.New("config is required")
)

// Authentication errors.
var (
	ErrEmptyToken        = errors.New("authentication endpoint returned an empty token")
	ErrAuthRequestFailed = errors.New("authentication request failed")
	ErrNoExpirationClaim = errors.New("no expiration claim found")
)

// Notification errors.
var (
	ErrNATSConnectionRequired  = errors.New("NATS connection is required")
	ErrRedisClientRequired     = errors.New("redis client is required")
	ErrNotificationHandlerNil  = errors.New("notification handler is required")
	ErrConsumerClientRequired  = errors.New("consumer client is required")
	ErrCheckpointStoreRequired = errors.New("checkpoint store is required")
)

// CLI errors.
var (
	ErrUnknownOutputFormat = errors.New("unknown output format")
	ErrInvalidParam        = errors.New("invalid parameter, expected key=value")
	ErrUnknownBenchMode    = errors.New("unknown benchmark mode")
	ErrUnknownCheckpoint   = errors.New("unknown checkpoint backend")
	ErrUnknownOperation    = errors.New("unknown change operation, expected create, update or delete")
	ErrUnknownConfigKey    = errors.New("unknown configuration key")
	ErrNotAuthenticated    = errors.New("hub refused the API key")
	ErrAPIKeyNotPrompted   = errors.New("hub API key is required (use --api-key, HUB_API_KEY or a terminal)")
	ErrNoResourceIDs       = errors.New("no resource ids returned to look up")
)
