package notify_test

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fivetwenty-io/hubclient/internal/constants"
	"github.com/fivetwenty-io/hubclient/internal/notify"
	"github.com/fivetwenty-io/hubclient/pkg/hub"
)

// fakeQueue hands out notifications after the acknowledged id.
type fakeQueue struct {
	mu    sync.Mutex
	ids   []int
	calls []string
	err   error
}

func (q *fakeQueue) Consume(_ context.Context, lastProcessedID string, max int) ([]hub.ChangeNotification, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.calls = append(q.calls, lastProcessedID)

	if q.err != nil {
		return nil, q.err
	}

	last := -1
	if lastProcessedID != "" {
		last, _ = strconv.Atoi(lastProcessedID)
	}

	var batch []hub.ChangeNotification

	for _, id := range q.ids {
		if id > last && (max <= 0 || len(batch) < max) {
			batch = append(batch, hub.ChangeNotification{ID: id, Operation: hub.OperationCreated})
		}
	}

	return batch, nil
}

func (q *fakeQueue) consumed() []string {
	q.mu.Lock()
	defer q.mu.Unlock()

	return append([]string(nil), q.calls...)
}

func TestNewPoller(t *testing.T) {
	t.Parallel()

	handler := func(context.Context, hub.ChangeNotification) error { return nil }

	_, err := notify.NewPoller(nil, notify.NewMemoryStore(""), handler)
	require.ErrorIs(t, err, constants.ErrConsumerClientRequired)

	_, err = notify.NewPoller(&fakeQueue{}, nil, handler)
	require.ErrorIs(t, err, constants.ErrCheckpointStoreRequired)

	_, err = notify.NewPoller(&fakeQueue{}, notify.NewMemoryStore(""), nil)
	require.ErrorIs(t, err, constants.ErrNotificationHandlerNil)
}

//nolint:funlen
func TestPoller_Poll(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("advances the checkpoint", func(t *testing.T) {
		t.Parallel()

		queue := &fakeQueue{ids: []int{1, 2, 3, 4, 5}}
		store := notify.NewMemoryStore("")

		var handled []int

		poller, err := notify.NewPoller(queue, store, func(_ context.Context, n hub.ChangeNotification) error {
			handled = append(handled, n.ID)

			return nil
		}, notify.WithMaxMessages(2))
		require.NoError(t, err)

		count, err := poller.Poll(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, count)

		count, err = poller.Poll(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, count)

		id, _ := store.Load(ctx)
		assert.Equal(t, "4", id)
		assert.Equal(t, []int{1, 2, 3, 4}, handled)
		assert.Equal(t, []string{"", "2"}, queue.consumed())
	})

	t.Run("handler error keeps the last success", func(t *testing.T) {
		t.Parallel()

		queue := &fakeQueue{ids: []int{7, 8, 9}}
		store := notify.NewMemoryStore("6")

		poller, err := notify.NewPoller(queue, store, func(_ context.Context, n hub.ChangeNotification) error {
			if n.ID == 8 {
				return errStore
			}

			return nil
		})
		require.NoError(t, err)

		count, err := poller.Poll(ctx)
		require.ErrorIs(t, err, errStore)
		assert.Equal(t, 1, count)

		id, _ := store.Load(ctx)
		assert.Equal(t, "7", id)
	})

	t.Run("consume error", func(t *testing.T) {
		t.Parallel()

		poller, err := notify.NewPoller(&fakeQueue{err: errStore}, notify.NewMemoryStore(""),
			func(context.Context, hub.ChangeNotification) error { return nil })
		require.NoError(t, err)

		count, err := poller.Poll(ctx)
		require.ErrorIs(t, err, errStore)
		assert.Zero(t, count)
	})

	t.Run("handlers run in order", func(t *testing.T) {
		t.Parallel()

		var order []string

		first := func(context.Context, hub.ChangeNotification) error {
			order = append(order, "first")

			return nil
		}
		second := func(context.Context, hub.ChangeNotification) error {
			order = append(order, "second")

			return errStore
		}
		third := func(context.Context, hub.ChangeNotification) error {
			order = append(order, "third")

			return nil
		}

		err := notify.Handlers(first, second, third)(ctx, hub.ChangeNotification{ID: 1})
		require.ErrorIs(t, err, errStore)
		assert.Equal(t, []string{"first", "second"}, order)
	})
}

func TestPoller_Run(t *testing.T) {
	t.Parallel()

	queue := &fakeQueue{ids: []int{1, 2, 3}}
	store := notify.NewMemoryStore("")
	done := make(chan struct{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	poller, err := notify.NewPoller(queue, store, func(_ context.Context, n hub.ChangeNotification) error {
		if n.ID == 3 {
			close(done)
		}

		return nil
	}, notify.WithMaxMessages(1), notify.WithInterval(time.Hour))
	require.NoError(t, err)

	result := make(chan error, 1)

	go func() { result <- poller.Run(ctx) }()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("backlog was not drained without waiting")
	}

	cancel()

	select {
	case err = <-result:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}

	id, _ := store.Load(context.Background())
	assert.Equal(t, "3", id)
}
