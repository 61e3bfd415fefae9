package constants

import "time"

// File and directory permissions.
const (
	// ConfigDirPerm is the permission for configuration directories.
	ConfigDirPerm = 0750

	// ConfigFilePerm is the permission for configuration files.
	ConfigFilePerm = 0600
)

// HTTP timeouts.
const (
	// DefaultHTTPTimeout is the default timeout for HTTP requests.
	DefaultHTTPTimeout = 30 * time.Second
)

// Authentication.
const (
	// DefaultTokenValidity is how long a hub token is trusted after it was issued.
	DefaultTokenValidity = 5 * time.Minute
)

// Endpoint paths, relative to the hub base URI.
const (
	AuthPath    = "auth"
	PublishPath = "publish"
	ConsumePath = "consume"

	// ResourcePrefix is the URL prefix for resource endpoints.
	ResourcePrefix = "api"
)

// Media types.
const (
	// DefaultJSONContentType is used when no version media type is requested.
	DefaultJSONContentType = "application/json"

	// DefaultEntityVersionType is the version media type declared by entities
	// that do not override it.
	DefaultEntityVersionType = "application/vnd.hedtech.integration.v2+json"

	// ChangeNotificationsContentType is the content type of published change notifications.
	ChangeNotificationsContentType = "application/vnd.hedtech.change-notifications.v2+json"
)

// Header names.
const (
	HeaderAuthorization      = "Authorization"
	HeaderAccept             = "Accept"
	HeaderAcceptCharset      = "Accept-Charset"
	HeaderContentType        = "Content-Type"
	HeaderUserAgent          = "User-Agent"
	HeaderMediaType          = "X-Media-Type"
	HeaderTotalCount         = "X-Total-Count"
	HeaderContentRestricted  = "X-Content-Restricted"
	AcceptCharsetUTF8        = "UTF-8"
	BearerPrefix             = "Bearer "
	DefaultUserAgent         = "hubclient/1.0"
	ContentRestrictedEnabled = "true"
)

// Query parameters.
const (
	OffsetParam          = "offset"
	LimitParam           = "limit"
	LastProcessedIDParam = "lastProcessedID"
	MaxParam             = "max"
)

// Change notification consumption.
const (
	// DefaultMaxMessagesToConsume is the default page size for consume requests.
	DefaultMaxMessagesToConsume = 10

	// NoProcessedID acknowledges nothing on a consume request.
	NoProcessedID = "-1"

	// DefaultPollInterval is used between empty consume batches.
	DefaultPollInterval = 5 * time.Second
)

// Checkpoint storage.
const (
	DefaultCheckpointBucket = "hub_checkpoints"
	DefaultCheckpointKey    = "last_processed_id"
	DefaultSubjectPrefix    = "hub.notifications"
)

// DefaultBenchIterations is the number of timed calls per benchmark step.
const DefaultBenchIterations = 10
