package client

import (
	"context"
	"fmt"
	nethttp "net/http"
	"strconv"

	"github.com/fivetwenty-io/hubclient/internal/constants"
	"github.com/fivetwenty-io/hubclient/internal/http"
	"github.com/fivetwenty-io/hubclient/pkg/hub"
)

// Publish implements hub.NotificationClient.Publish.
func (c *Client) Publish(ctx context.Context, notification *hub.ChangeNotification) error {
	if notification == nil {
		return fmt.Errorf("%w: notification cannot be nil", hub.ErrInvalidArgument)
	}

	_, err := c.send(ctx, &http.Request{
		Method:      nethttp.MethodPost,
		Path:        constants.PublishPath,
		Body:        notification,
		ContentType: constants.ChangeNotificationsContentType,
	})
	if err != nil {
		return fmt.Errorf("publishing %s %s notification: %w", notification.Resource.Name, notification.Operation, err)
	}

	return nil
}

// Consume implements hub.NotificationClient.Consume. An empty
// lastProcessedID acknowledges nothing; max <= 0 uses the configured page
// size.
func (c *Client) Consume(ctx context.Context, lastProcessedID string, max int) ([]hub.ChangeNotification, error) {
	if lastProcessedID == "" {
		lastProcessedID = constants.NoProcessedID
	}

	if max <= 0 {
		max = c.maxMessages
	}

	resp, err := c.send(ctx, &http.Request{
		Method: nethttp.MethodGet,
		Path:   constants.ConsumePath,
		Query: hub.NewQuery(
			constants.LastProcessedIDParam, lastProcessedID,
			constants.MaxParam, strconv.Itoa(max),
		),
	})
	if err != nil {
		return nil, fmt.Errorf("consuming change notifications: %w", err)
	}

	notifications := []hub.ChangeNotification{}

	err = decode(resp.Body, &notifications, true)
	if err != nil {
		return nil, fmt.Errorf("parsing change notifications: %w", err)
	}

	c.logDebug("consumed change notifications", map[string]interface{}{
		"last_processed_id": lastProcessedID,
		"count":             len(notifications),
	})

	return notifications, nil
}
