package hub

import (
	"encoding/json"
	"fmt"
	"time"
)

// Change notification content types.
const (
	ContentTypeResourceRepresentation = "resource-representation"
	ContentTypeEmpty                  = "empty"
	ContentTypePatch                  = "patch"
	ContentTypePartial                = "partial"
	ContentTypeLimited                = "limited"
)

// Change notification operations.
const (
	OperationCreated  = "created"
	OperationReplaced = "replaced"
	OperationPatched  = "patched"
	OperationDeleted  = "deleted"
)

// ChangeOperation is a change made to a resource by the publishing system.
type ChangeOperation int

const (
	ChangeCreate ChangeOperation = iota
	ChangeUpdate
	ChangeDelete
)

// Operation returns the wire operation for op.
func (op ChangeOperation) Operation() string {
	switch op {
	case ChangeCreate:
		return OperationCreated
	case ChangeUpdate:
		return OperationReplaced
	case ChangeDelete:
		return OperationDeleted
	default:
		return ""
	}
}

// ChangeNotification describes a create, update or delete of a resource.
type ChangeNotification struct {
	ID          int             `json:"id"          yaml:"id"`
	Published   time.Time       `json:"published"   yaml:"published"`
	ContentType string          `json:"contentType" yaml:"contentType"`
	Operation   string          `json:"operation"   yaml:"operation"`
	Content     json.RawMessage `json:"content"     yaml:"-"`
	Resource    ResourceSummary `json:"resource"    yaml:"resource"`
}

// ResourceSummary identifies the resource a notification is about.
type ResourceSummary struct {
	Name    string `json:"name"    yaml:"name"`
	ID      string `json:"id"      yaml:"id"`
	Version string `json:"version" yaml:"version"`
}

// NewChangeNotification builds a notification for publishing. Deletes carry
// an empty object; creates and updates carry the full entity.
func NewChangeNotification(entity Resource, op ChangeOperation) (*ChangeNotification, error) {
	if entity == nil {
		return nil, fmt.Errorf("%w: entity cannot be nil", ErrInvalidArgument)
	}

	operation := op.Operation()
	if operation == "" {
		return nil, fmt.Errorf("%w: unknown change operation %d", ErrInvalidArgument, op)
	}

	notification := &ChangeNotification{
		ID:        -1,
		Operation: operation,
		Resource: ResourceSummary{
			Name:    entity.ResourceName(),
			Version: entity.VersionType(),
		},
	}

	if identified, ok := entity.(Identified); ok {
		notification.Resource.ID = identified.ResourceID()
	}

	if op == ChangeDelete {
		notification.ContentType = ContentTypeEmpty
		notification.Content = json.RawMessage("{}")

		return notification, nil
	}

	content, err := json.Marshal(entity)
	if err != nil {
		return nil, fmt.Errorf("serializing %s entity: %w", entity.ResourceName(), err)
	}

	notification.ContentType = ContentTypeResourceRepresentation
	notification.Content = content

	return notification, nil
}
