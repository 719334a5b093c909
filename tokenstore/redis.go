package tokenstore

import (
	"context"
	"time"

	"github.com/jrsteele09/go-inventory-client/internal/errors"
	"github.com/jrsteele09/go-inventory-client/token"
	"github.com/redis/go-redis/v9"
)

const defaultRedisPrefix = "inventory:"

// RedisStore keeps the pair under two keys, "<prefix>access" and "<prefix>refresh". Writes
// touching both keys go through a MULTI/EXEC pipeline.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore creates a Redis-based token store. ttl <= 0 keeps keys until cleared.
func NewRedisStore(client redis.UniversalClient, prefix string, ttl time.Duration) *RedisStore {
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	if ttl < 0 {
		ttl = 0
	}
	return &RedisStore{
		client: client,
		prefix: prefix,
		ttl:    ttl,
	}
}

func (s *RedisStore) accessKey() string  { return s.prefix + AccessKey }
func (s *RedisStore) refreshKey() string { return s.prefix + RefreshKey }

// Save implements Store.
func (s *RedisStore) Save(ctx context.Context, pair token.Pair) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.accessKey(), pair.Access, s.ttl)
		pipe.Set(ctx, s.refreshKey(), pair.Refresh, s.ttl)
		return nil
	})
	if err != nil {
		return errors.Wrapf(err, "[tokenstore RedisStore.Save] redis save credentials")
	}
	return nil
}

// Load implements Store.
func (s *RedisStore) Load(ctx context.Context) (token.Pair, bool, error) {
	vals, err := s.client.MGet(ctx, s.accessKey(), s.refreshKey()).Result()
	if err != nil {
		return token.Pair{}, false, errors.Wrapf(err, "[tokenstore RedisStore.Load] redis load credentials")
	}

	var pair token.Pair
	if len(vals) == 2 {
		pair.Access, _ = vals[0].(string)
		pair.Refresh, _ = vals[1].(string)
	}
	return pair, !pair.IsZero(), nil
}

// SetAccess implements Store.
func (s *RedisStore) SetAccess(ctx context.Context, access string) error {
	if err := s.client.Set(ctx, s.accessKey(), access, s.ttl).Err(); err != nil {
		return errors.Wrapf(err, "[tokenstore RedisStore.SetAccess] redis set access")
	}
	return nil
}

// Clear implements Store.
func (s *RedisStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.accessKey(), s.refreshKey()).Err(); err != nil {
		return errors.Wrapf(err, "[tokenstore RedisStore.Clear] redis clear credentials")
	}
	return nil
}

// Close implements Store.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
