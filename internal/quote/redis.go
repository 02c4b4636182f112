package quote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	quoteKeyPrefix = "quote:"
	quoteIndexKey  = "quotes"
)

// RedisStore keeps quotes in Redis, one JSON value per quote plus a set
// of known ids. Quotes never expire; they live until the user deletes
// them.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects a quote store to a Redis instance.
func NewRedisStore(addr, password string, db int) *RedisStore {
	return &RedisStore{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
			DB:       db,
		}),
	}
}

// Ping verifies connectivity.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close releases the underlying connection pool.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) Save(ctx context.Context, q Quote) (string, error) {
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	data, err := json.Marshal(q)
	if err != nil {
		return "", fmt.Errorf("marshal quote: %w", err)
	}

	if err := s.client.Set(ctx, quoteKeyPrefix+q.ID, data, 0).Err(); err != nil {
		return "", fmt.Errorf("set quote: %w", err)
	}
	if err := s.client.SAdd(ctx, quoteIndexKey, q.ID).Err(); err != nil {
		return "", fmt.Errorf("index quote: %w", err)
	}

	return q.ID, nil
}

func (s *RedisStore) List(ctx context.Context) ([]Quote, error) {
	ids, err := s.client.SMembers(ctx, quoteIndexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("list quote ids: %w", err)
	}

	quotes := make([]Quote, 0, len(ids))
	for _, id := range ids {
		q, err := s.Find(ctx, id)
		if errors.Is(err, ErrNotFound) {
			// Index entry without a value; skip rather than fail the listing.
			continue
		}
		if err != nil {
			return nil, err
		}
		quotes = append(quotes, q)
	}

	sort.SliceStable(quotes, func(i, j int) bool {
		return quotes[i].Timestamp.After(quotes[j].Timestamp)
	})

	return quotes, nil
}

func (s *RedisStore) Find(ctx context.Context, id string) (Quote, error) {
	data, err := s.client.Get(ctx, quoteKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return Quote{}, ErrNotFound
	}
	if err != nil {
		return Quote{}, fmt.Errorf("get quote: %w", err)
	}

	var q Quote
	if err := json.Unmarshal(data, &q); err != nil {
		return Quote{}, fmt.Errorf("unmarshal quote: %w", err)
	}
	return q, nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, quoteKeyPrefix+id).Err(); err != nil {
		return fmt.Errorf("delete quote: %w", err)
	}
	if err := s.client.SRem(ctx, quoteIndexKey, id).Err(); err != nil {
		return fmt.Errorf("unindex quote: %w", err)
	}
	return nil
}
