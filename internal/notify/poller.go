package notify

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/fivetwenty-io/hubclient/internal/constants"
	"github.com/fivetwenty-io/hubclient/pkg/hub"
)

// Consumer is the part of hub.Client the poller needs.
type Consumer interface {
	Consume(ctx context.Context, lastProcessedID string, max int) ([]hub.ChangeNotification, error)
}

// Handler processes one notification. A returned error stops the batch and
// leaves the checkpoint before the failed notification.
type Handler func(ctx context.Context, n hub.ChangeNotification) error

// Handlers runs each handler in order and stops at the first error.
func Handlers(handlers ...Handler) Handler {
	return func(ctx context.Context, n hub.ChangeNotification) error {
		for _, h := range handlers {
			err := h(ctx, n)
			if err != nil {
				return err
			}
		}

		return nil
	}
}

// Poller drains the change-notification queue.
type Poller struct {
	consumer Consumer
	store    CheckpointStore
	handler  Handler
	max      int
	interval time.Duration
	logger   hub.Logger
}

// Option configures a Poller.
type Option func(*Poller)

// WithMaxMessages sets the page size of each Consume. Zero uses the client default.
func WithMaxMessages(max int) Option {
	return func(p *Poller) {
		p.max = max
	}
}

// WithInterval sets the pause after an empty batch.
func WithInterval(interval time.Duration) Option {
	return func(p *Poller) {
		if interval > 0 {
			p.interval = interval
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger hub.Logger) Option {
	return func(p *Poller) {
		p.logger = logger
	}
}

// NewPoller creates a poller.
func NewPoller(consumer Consumer, store CheckpointStore, handler Handler, opts ...Option) (*Poller, error) {
	if consumer == nil {
		return nil, constants.ErrConsumerClientRequired
	}

	if store == nil {
		return nil, constants.ErrCheckpointStoreRequired
	}

	if handler == nil {
		return nil, constants.ErrNotificationHandlerNil
	}

	p := &Poller{
		consumer: consumer,
		store:    store,
		handler:  handler,
		interval: constants.DefaultPollInterval,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p, nil
}

// Poll consumes and handles one batch and returns how many notifications
// were handled. Consume acknowledges everything up to the saved checkpoint.
func (p *Poller) Poll(ctx context.Context) (int, error) {
	lastID, err := p.store.Load(ctx)
	if err != nil {
		return 0, err
	}

	notifications, err := p.consumer.Consume(ctx, lastID, p.max)
	if err != nil {
		return 0, err
	}

	for i, n := range notifications {
		err = p.handler(ctx, n)
		if err != nil {
			return i, fmt.Errorf("handling notification %d: %w", n.ID, err)
		}

		err = p.store.Save(ctx, strconv.Itoa(n.ID))
		if err != nil {
			return i + 1, err
		}
	}

	if len(notifications) > 0 {
		p.logDebug("handled change notifications", map[string]interface{}{
			"count":             len(notifications),
			"last_processed_id": notifications[len(notifications)-1].ID,
		})
	}

	return len(notifications), nil
}

// Run polls until ctx ends. It pauses only after an empty or failed batch,
// so a backlog is drained without delay.
func (p *Poller) Run(ctx context.Context) error {
	for {
		handled, err := p.Poll(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if err != nil {
			p.logWarn("change notification batch failed", map[string]interface{}{
				"handled": handled,
				"error":   err.Error(),
			})
		}

		if err == nil && handled > 0 {
			continue
		}

		timer := time.NewTimer(p.interval)

		select {
		case <-ctx.Done():
			timer.Stop()

			return ctx.Err()
		case <-timer.C:
		}
	}
}

func (p *Poller) logDebug(msg string, fields map[string]interface{}) {
	if p.logger != nil {
		p.logger.Debug(msg, fields)
	}
}

func (p *Poller) logWarn(msg string, fields map[string]interface{}) {
	if p.logger != nil {
		p.logger.Warn(msg, fields)
	}
}
