package update

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	redisKeyPrefix = "tripmate:pending:"
	maxPutAttempts = 5
)

// RedisPendingStore keeps staged edits in Redis so they survive restarts and
// are shared between replicas.
type RedisPendingStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisPendingStore wraps a client. A zero ttl keeps entries until taken.
func NewRedisPendingStore(client *redis.Client, ttl time.Duration) *RedisPendingStore {
	return &RedisPendingStore{client: client, ttl: ttl}
}

// DialRedis connects to addr and checks the connection.
func DialRedis(ctx context.Context, addr string, ttl time.Duration) (*RedisPendingStore, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return NewRedisPendingStore(client, ttl), nil
}

// Close closes the client.
func (s *RedisPendingStore) Close() error {
	return s.client.Close()
}

func redisKey(userID string) string {
	return redisKeyPrefix + userID
}

// Put writes p under an optimistic WATCH so the version always increases
// by one, retrying when another writer got in between.
func (s *RedisPendingStore) Put(ctx context.Context, p Pending) (Pending, error) {
	key := redisKey(p.UserID)
	for attempt := 0; attempt < maxPutAttempts; attempt++ {
		var stored Pending
		err := s.client.Watch(ctx, func(tx *redis.Tx) error {
			var prev int64
			data, err := tx.Get(ctx, key).Bytes()
			switch {
			case errors.Is(err, redis.Nil):
			case err != nil:
				return err
			default:
				var cur Pending
				if err := json.Unmarshal(data, &cur); err == nil {
					prev = cur.Version
				}
			}
			stored = p
			stored.Version = prev + 1
			payload, err := json.Marshal(stored)
			if err != nil {
				return err
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, payload, s.ttl)
				return nil
			})
			return err
		}, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return Pending{}, fmt.Errorf("stage pending update: %w", err)
		}
		return stored, nil
	}
	return Pending{}, fmt.Errorf("stage pending update: %w", redis.TxFailedErr)
}

func (s *RedisPendingStore) Get(ctx context.Context, userID string) (*Pending, error) {
	data, err := s.client.Get(ctx, redisKey(userID)).Bytes()
	return decodePending(data, err)
}

func (s *RedisPendingStore) Take(ctx context.Context, userID string) (*Pending, error) {
	data, err := s.client.GetDel(ctx, redisKey(userID)).Bytes()
	return decodePending(data, err)
}

func decodePending(data []byte, err error) (*Pending, error) {
	if errors.Is(err, redis.Nil) {
		return nil, ErrNoPending
	}
	if err != nil {
		return nil, fmt.Errorf("load pending update: %w", err)
	}
	var p Pending
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decode pending update: %w", err)
	}
	return &p, nil
}
