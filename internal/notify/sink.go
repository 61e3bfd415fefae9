package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fivetwenty-io/hubclient/internal/constants"
	"github.com/fivetwenty-io/hubclient/pkg/hub"
)

// Publisher is satisfied by *nats.Conn.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// NATSSink republishes hub notifications on NATS subjects of the form
// "<prefix>.<resource>.<operation>".
type NATSSink struct {
	publisher Publisher
	prefix    string
}

// NewNATSSink creates a sink. An empty prefix uses "hub.notifications".
func NewNATSSink(publisher Publisher, prefix string) (*NATSSink, error) {
	if publisher == nil {
		return nil, constants.ErrNATSConnectionRequired
	}

	if prefix == "" {
		prefix = constants.DefaultSubjectPrefix
	}

	return &NATSSink{publisher: publisher, prefix: strings.TrimSuffix(prefix, ".")}, nil
}

// Subject returns the subject a notification is published on.
func (s *NATSSink) Subject(n hub.ChangeNotification) string {
	return s.prefix + "." + subjectToken(n.Resource.Name) + "." + subjectToken(n.Operation)
}

// Handle is a Handler.
func (s *NATSSink) Handle(_ context.Context, n hub.ChangeNotification) error {
	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("encoding notification %d: %w", n.ID, err)
	}

	subject := s.Subject(n)

	err = s.publisher.Publish(subject, data)
	if err != nil {
		return fmt.Errorf("publishing notification %d to %s: %w", n.ID, subject, err)
	}

	return nil
}

// subjectToken keeps NATS subject tokens free of separators and wildcards.
func subjectToken(s string) string {
	if s == "" {
		return "unknown"
	}

	return strings.NewReplacer(".", "_", "*", "_", ">", "_", " ", "_").Replace(s)
}
