package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"grabit/internal/app/middleware"
)

const keyPrefix = "grabit:idemp:"

// IdempotencyStore keeps command results under SET ... EX ttl so Redis
// expires them on its own.
type IdempotencyStore struct {
	client redis.UniversalClient
	ttl    time.Duration
}

func NewIdempotencyStore(client redis.UniversalClient, ttl time.Duration) *IdempotencyStore {
	return &IdempotencyStore{client: client, ttl: ttl}
}

type record struct {
	Payload    []byte    `json:"payload"`
	OccurredAt time.Time `json:"occurred_at"`
}

func (s *IdempotencyStore) Get(ctx context.Context, key string) (middleware.IdempotencyRecord, bool, error) {
	raw, err := s.client.Get(ctx, keyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return middleware.IdempotencyRecord{}, false, nil
		}
		return middleware.IdempotencyRecord{}, false, err
	}
	var rec record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return middleware.IdempotencyRecord{}, false, err
	}
	return middleware.IdempotencyRecord{Key: key, Payload: rec.Payload, OccurredAt: rec.OccurredAt}, true, nil
}

func (s *IdempotencyStore) Save(ctx context.Context, rec middleware.IdempotencyRecord) error {
	raw, err := json.Marshal(record{Payload: rec.Payload, OccurredAt: rec.OccurredAt.UTC()})
	if err != nil {
		return err
	}
	return s.client.Set(ctx, keyPrefix+rec.Key, raw, s.ttl).Err()
}

// Ping is used as a readiness check.
func Ping(client redis.UniversalClient) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}
}

var _ middleware.IdempotencyStore = (*IdempotencyStore)(nil)
