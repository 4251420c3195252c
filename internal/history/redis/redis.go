// Package redis stores each conversation as a Redis list of JSON-encoded turns.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"helperbot/internal/domain"
)

const keyPrefix = "helperbot:conversation:"

// Client is the subset of *redis.Client the store uses.
type Client interface {
	RPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	LRange(ctx context.Context, key string, start, stop int64) *redis.StringSliceCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
	Close() error
}

// Store is a Redis-backed domain.LogStore.
type Store struct {
	client Client
	ttl    time.Duration
}

var _ domain.LogStore = (*Store)(nil)

// Config configures the Redis connection.
type Config struct {
	Addr     string
	Password string
	DB       int
	// TTL expires idle conversations; zero keeps them forever.
	TTL time.Duration
}

// New connects to Redis.
func New(cfg Config) *Store {
	return NewWithClient(redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}), cfg.TTL)
}

// NewWithClient wraps an existing client.
func NewWithClient(client Client, ttl time.Duration) *Store {
	return &Store{client: client, ttl: ttl}
}

func key(id string) string { return keyPrefix + id }

// Append pushes turns with a single RPUSH, which Redis applies atomically.
func (s *Store) Append(ctx context.Context, id string, turns ...domain.Turn) error {
	values := make([]interface{}, len(turns))
	for i, t := range turns {
		data, err := json.Marshal(t)
		if err != nil {
			return fmt.Errorf("encode turn: %w", err)
		}
		values[i] = string(data)
	}
	k := key(id)
	if err := s.client.RPush(ctx, k, values...).Err(); err != nil {
		return err
	}
	if s.ttl > 0 {
		if err := s.client.Expire(ctx, k, s.ttl).Err(); err != nil {
			return err
		}
	}
	return nil
}

// Load replays the list in push order. An unknown conversation is an empty list.
func (s *Store) Load(ctx context.Context, id string) ([]domain.Turn, error) {
	vals, err := s.client.LRange(ctx, key(id), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	turns := make([]domain.Turn, 0, len(vals))
	for _, v := range vals {
		var t domain.Turn
		if err := json.Unmarshal([]byte(v), &t); err != nil {
			return nil, fmt.Errorf("decode turn: %w", err)
		}
		turns = append(turns, t)
	}
	return turns, nil
}

func (s *Store) Close() error { return s.client.Close() }
