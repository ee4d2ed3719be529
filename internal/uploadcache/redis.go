package uploadcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "uploadcache:"

// RedisStore keeps cache entries in Redis with a native TTL, so expiry needs
// no sweeper and is shared by every process instance.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) GetEntry(ctx context.Context, hash string) (*Entry, error) {
	raw, err := s.client.Get(ctx, keyPrefix+hash).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("uploadcache: redis get: %w", err)
	}
	var entry Entry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, fmt.Errorf("uploadcache: decode entry: %w", err)
	}
	return &entry, nil
}

func (s *RedisStore) PutEntry(ctx context.Context, entry *Entry, ttl time.Duration) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("uploadcache: encode entry: %w", err)
	}
	if err := s.client.Set(ctx, keyPrefix+entry.Hash, raw, ttl).Err(); err != nil {
		return fmt.Errorf("uploadcache: redis set: %w", err)
	}
	return nil
}

var _ Store = (*RedisStore)(nil)
