// Package notify drains the hub change-notification queue: it polls
// Consume, hands each notification to a Handler and records the last
// processed id in a CheckpointStore.
package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/redis/go-redis/v9"

	"github.com/fivetwenty-io/hubclient/internal/constants"
)

// CheckpointStore remembers the id of the last handled notification. Load
// returns "" when nothing was saved yet.
type CheckpointStore interface {
	Load(ctx context.Context) (string, error)
	Save(ctx context.Context, id string) error
}

// MemoryStore keeps the checkpoint for the lifetime of the process.
type MemoryStore struct {
	mu sync.RWMutex
	id string
}

// NewMemoryStore creates a store starting at id.
func NewMemoryStore(id string) *MemoryStore {
	return &MemoryStore{id: id}
}

// Load implements CheckpointStore.
func (s *MemoryStore) Load(context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.id, nil
}

// Save implements CheckpointStore.
func (s *MemoryStore) Save(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.id = id

	return nil
}

// KeyValue is the part of a JetStream key-value bucket NATSKVStore uses.
type KeyValue interface {
	Get(ctx context.Context, key string) (jetstream.KeyValueEntry, error)
	Put(ctx context.Context, key string, value []byte) (uint64, error)
}

// NATSKVStore keeps the checkpoint in a JetStream key-value bucket so
// several workers can resume from the same position.
type NATSKVStore struct {
	kv  KeyValue
	key string
}

// NewNATSKVStore opens, creating if needed, bucket on nc.
func NewNATSKVStore(ctx context.Context, nc *nats.Conn, bucket, key string) (*NATSKVStore, error) {
	if nc == nil {
		return nil, constants.ErrNATSConnectionRequired
	}

	if bucket == "" {
		bucket = constants.DefaultCheckpointBucket
	}

	js, err := jetstream.New(nc)
	if err != nil {
		return nil, fmt.Errorf("creating JetStream context: %w", err)
	}

	kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      bucket,
		Description: "hub change-notification checkpoints",
		History:     1,
	})
	if err != nil {
		return nil, fmt.Errorf("opening checkpoint bucket %s: %w", bucket, err)
	}

	return NewNATSKVStoreFromKV(kv, key), nil
}

// NewNATSKVStoreFromKV wraps an already opened bucket.
func NewNATSKVStoreFromKV(kv KeyValue, key string) *NATSKVStore {
	if key == "" {
		key = constants.DefaultCheckpointKey
	}

	return &NATSKVStore{kv: kv, key: key}
}

// Load implements CheckpointStore.
func (s *NATSKVStore) Load(ctx context.Context) (string, error) {
	entry, err := s.kv.Get(ctx, s.key)
	if errors.Is(err, jetstream.ErrKeyNotFound) {
		return "", nil
	}

	if err != nil {
		return "", fmt.Errorf("loading checkpoint %s: %w", s.key, err)
	}

	return string(entry.Value()), nil
}

// Save implements CheckpointStore.
func (s *NATSKVStore) Save(ctx context.Context, id string) error {
	_, err := s.kv.Put(ctx, s.key, []byte(id))
	if err != nil {
		return fmt.Errorf("saving checkpoint %s: %w", s.key, err)
	}

	return nil
}

// RedisClient is the part of a go-redis client RedisStore uses.
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// RedisStore keeps the checkpoint under a Redis key.
type RedisStore struct {
	rdb RedisClient
	key string
}

// RedisOption configures a RedisStore.
type RedisOption func(*RedisStore)

// WithRedisKey overrides the checkpoint key.
func WithRedisKey(key string) RedisOption {
	return func(s *RedisStore) {
		if key != "" {
			s.key = key
		}
	}
}

// NewRedisStore creates a store on rdb.
func NewRedisStore(rdb RedisClient, opts ...RedisOption) (*RedisStore, error) {
	if rdb == nil {
		return nil, constants.ErrRedisClientRequired
	}

	s := &RedisStore{
		rdb: rdb,
		key: "hub:checkpoint:" + constants.DefaultCheckpointKey,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// Load implements CheckpointStore.
func (s *RedisStore) Load(ctx context.Context) (string, error) {
	id, err := s.rdb.Get(ctx, s.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}

	if err != nil {
		return "", fmt.Errorf("loading checkpoint %s: %w", s.key, err)
	}

	return id, nil
}

// Save implements CheckpointStore. The checkpoint never expires.
func (s *RedisStore) Save(ctx context.Context, id string) error {
	err := s.rdb.Set(ctx, s.key, id, 0).Err()
	if err != nil {
		return fmt.Errorf("saving checkpoint %s: %w", s.key, err)
	}

	return nil
}
