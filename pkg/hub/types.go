package hub

import (
	"time"

	"github.com/google/uuid"

	"github.com/fivetwenty-io/hubclient/internal/constants"
)

// Resource is implemented by any domain entity the hub can address.
// ResourceName is the pluralized resource name (e.g. "persons") and
// VersionType the media type of the schema version the entity models.
type Resource interface {
	ResourceName() string
	VersionType() string
}

// Identified is implemented by resources that know their own id.
type Identified interface {
	ResourceID() string
}

// Entity carries the attributes every hub entity shares. Embed it in a
// concrete type and implement ResourceName to satisfy Resource.
type Entity struct {
	Metadata *Metadata `json:"metadata,omitempty" yaml:"metadata,omitempty"`
	ID       uuid.UUID `json:"id"                 yaml:"id"`
}

// ResourceID implements Identified.
func (e Entity) ResourceID() string {
	return e.ID.String()
}

// VersionType returns the default integration schema media type. Entities
// modelling another version shadow this method.
func (e Entity) VersionType() string {
	return constants.DefaultEntityVersionType
}

// Metadata describes the origin of an entity instance.
type Metadata struct {
	CreatedBy  string     `json:"createdBy,omitempty"  yaml:"createdBy,omitempty"`
	CreatedOn  *time.Time `json:"createdOn,omitempty"  yaml:"createdOn,omitempty"`
	ModifiedBy string     `json:"modifiedBy,omitempty" yaml:"modifiedBy,omitempty"`
	ModifiedOn *time.Time `json:"modifiedOn,omitempty" yaml:"modifiedOn,omitempty"`
}

// Envelope is the raw result of a Get or GetAll call.
type Envelope struct {
	// Data is the undecoded response body.
	Data string `json:"data" yaml:"data"`
	// Version is the media type the hub answered with, if it reported one.
	Version string `json:"version,omitempty" yaml:"version,omitempty"`
	// TotalCount is 1 for Get and the X-Total-Count header for GetAll.
	TotalCount int `json:"total_count" yaml:"total_count"`
	// ContentRestricted is set when the hub filtered fields from the payload.
	ContentRestricted bool `json:"content_restricted,omitempty" yaml:"content_restricted,omitempty"`
}

// TotalCountPolicy decides what GetAll does when X-Total-Count is missing.
type TotalCountPolicy int

const (
	// MissingTotalCountZero reports a total count of 0. Some hub mocks never send the header.
	MissingTotalCountZero TotalCountPolicy = iota
	// MissingTotalCountError fails the call with ErrMalformedResponse.
	MissingTotalCountError
)

// String implements fmt.Stringer.
func (p TotalCountPolicy) String() string {
	switch p {
	case MissingTotalCountZero:
		return "zero"
	case MissingTotalCountError:
		return "error"
	default:
		return "unknown"
	}
}

// ParseTotalCountPolicy parses the String form of a policy.
func ParseTotalCountPolicy(s string) (TotalCountPolicy, bool) {
	switch s {
	case "", "zero":
		return MissingTotalCountZero, true
	case "error":
		return MissingTotalCountError, true
	default:
		return MissingTotalCountZero, false
	}
}
