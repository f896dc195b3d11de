package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "chatbot:conversation:"

// RedisStore keeps each state as a JSON string. A non-zero ttl also lets Redis
// drop abandoned sessions on its own.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	now    func() time.Time
}

// NewRedisStore parses a redis:// URL.
func NewRedisStore(url string, ttl time.Duration) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	return NewRedisStoreWithClient(redis.NewClient(opts), ttl), nil
}

func NewRedisStoreWithClient(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl, now: time.Now}
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Get(ctx context.Context, userID string) (State, error) {
	raw, err := s.client.Get(ctx, redisKeyPrefix+userID).Bytes()
	if errors.Is(err, redis.Nil) {
		return Initial(), nil
	}
	if err != nil {
		return State{}, fmt.Errorf("failed to load conversation state: %w", err)
	}

	var st State
	if err := json.Unmarshal(raw, &st); err != nil {
		return State{}, fmt.Errorf("corrupt conversation state for %s: %w", userID, err)
	}
	return st, nil
}

func (s *RedisStore) Set(ctx context.Context, userID string, state StateName, c Context) error {
	raw, err := json.Marshal(State{Current: state, Context: c, LastInteraction: s.now()})
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, redisKeyPrefix+userID, raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save conversation state: %w", err)
	}
	return nil
}

func (s *RedisStore) MergeContext(ctx context.Context, userID string, patch Context) (Context, error) {
	return mergeContext(ctx, s, userID, patch)
}

func (s *RedisStore) Clear(ctx context.Context, userID string) error {
	return s.Set(ctx, userID, StateInitial, Context{})
}

// ExpireInactive scans the key space; it is meant for the periodic sweeper, not the hot path.
func (s *RedisStore) ExpireInactive(ctx context.Context, timeout time.Duration) (int64, error) {
	cutoff := s.now().Add(-timeout)

	var expired int64
	iter := s.client.Scan(ctx, 0, redisKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		raw, err := s.client.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return expired, err
		}

		var st State
		if err := json.Unmarshal(raw, &st); err != nil || st.LastInteraction.Before(cutoff) {
			n, err := s.client.Del(ctx, key).Result()
			if err != nil {
				return expired, err
			}
			expired += n
		}
	}
	if err := iter.Err(); err != nil {
		return expired, fmt.Errorf("failed to scan sessions: %w", err)
	}
	return expired, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
