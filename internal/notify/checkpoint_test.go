package notify_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fivetwenty-io/hubclient/internal/constants"
	"github.com/fivetwenty-io/hubclient/internal/notify"
)

var errStore = errors.New("store unavailable")

type fakeEntry struct {
	jetstream.KeyValueEntry

	value []byte
}

func (e fakeEntry) Value() []byte { return e.value }

type fakeKV struct {
	mu     sync.Mutex
	values map[string][]byte
	err    error
}

func (kv *fakeKV) Get(_ context.Context, key string) (jetstream.KeyValueEntry, error) {
	kv.mu.Lock()
	defer kv.mu.Unlock()

	if kv.err != nil {
		return nil, kv.err
	}

	value, ok := kv.values[key]
	if !ok {
		return nil, jetstream.ErrKeyNotFound
	}

	return fakeEntry{value: value}, nil
}

func (kv *fakeKV) Put(_ context.Context, key string, value []byte) (uint64, error) {
	kv.mu.Lock()
	defer kv.mu.Unlock()

	if kv.err != nil {
		return 0, kv.err
	}

	kv.values[key] = value

	return uint64(len(kv.values)), nil
}

type fakeRedis struct {
	mu     sync.Mutex
	values map[string]string
	ttl    map[string]time.Duration
	err    error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{values: map[string]string{}, ttl: map[string]time.Duration{}}
}

func (r *fakeRedis) Get(_ context.Context, key string) *redis.StringCmd {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.err != nil {
		return redis.NewStringResult("", r.err)
	}

	value, ok := r.values[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}

	return redis.NewStringResult(value, nil)
}

func (r *fakeRedis) Set(_ context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.err != nil {
		return redis.NewStatusResult("", r.err)
	}

	r.values[key], _ = value.(string)
	r.ttl[key] = expiration

	return redis.NewStatusResult("OK", nil)
}

func TestMemoryStore(t *testing.T) {
	t.Parallel()

	store := notify.NewMemoryStore("")
	ctx := context.Background()

	id, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, id)

	require.NoError(t, store.Save(ctx, "42"))

	id, err = store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "42", id)
}

//nolint:funlen
func TestNATSKVStore(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("missing key loads empty", func(t *testing.T) {
		t.Parallel()

		store := notify.NewNATSKVStoreFromKV(&fakeKV{values: map[string][]byte{}}, "")

		id, err := store.Load(ctx)
		require.NoError(t, err)
		assert.Empty(t, id)
	})

	t.Run("save then load", func(t *testing.T) {
		t.Parallel()

		kv := &fakeKV{values: map[string][]byte{}}
		store := notify.NewNATSKVStoreFromKV(kv, "")

		require.NoError(t, store.Save(ctx, "17"))
		assert.Equal(t, []byte("17"), kv.values[constants.DefaultCheckpointKey])

		id, err := store.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, "17", id)
	})

	t.Run("custom key", func(t *testing.T) {
		t.Parallel()

		kv := &fakeKV{values: map[string][]byte{}}
		store := notify.NewNATSKVStoreFromKV(kv, "worker-a")

		require.NoError(t, store.Save(ctx, "3"))
		assert.Contains(t, kv.values, "worker-a")
	})

	t.Run("bucket errors are wrapped", func(t *testing.T) {
		t.Parallel()

		store := notify.NewNATSKVStoreFromKV(&fakeKV{err: errStore}, "")

		_, err := store.Load(ctx)
		require.ErrorIs(t, err, errStore)
		require.ErrorIs(t, store.Save(ctx, "1"), errStore)
	})

	t.Run("connection required", func(t *testing.T) {
		t.Parallel()

		_, err := notify.NewNATSKVStore(ctx, nil, "", "")
		require.ErrorIs(t, err, constants.ErrNATSConnectionRequired)
	})
}

func TestRedisStore(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("missing key loads empty", func(t *testing.T) {
		t.Parallel()

		store, err := notify.NewRedisStore(newFakeRedis())
		require.NoError(t, err)

		id, err := store.Load(ctx)
		require.NoError(t, err)
		assert.Empty(t, id)
	})

	t.Run("save persists without expiry", func(t *testing.T) {
		t.Parallel()

		rdb := newFakeRedis()

		store, err := notify.NewRedisStore(rdb, notify.WithRedisKey("hub:test"))
		require.NoError(t, err)
		require.NoError(t, store.Save(ctx, "99"))

		assert.Equal(t, "99", rdb.values["hub:test"])
		assert.Equal(t, time.Duration(0), rdb.ttl["hub:test"])

		id, err := store.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, "99", id)
	})

	t.Run("client errors are wrapped", func(t *testing.T) {
		t.Parallel()

		rdb := newFakeRedis()
		rdb.err = errStore

		store, err := notify.NewRedisStore(rdb)
		require.NoError(t, err)

		_, err = store.Load(ctx)
		require.ErrorIs(t, err, errStore)
		require.ErrorIs(t, store.Save(ctx, "1"), errStore)
	})

	t.Run("client required", func(t *testing.T) {
		t.Parallel()

		_, err := notify.NewRedisStore(nil)
		require.ErrorIs(t, err, constants.ErrRedisClientRequired)
	})
}
