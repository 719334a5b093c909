package tokenstore

import (
	"database/sql"
	"time"

	"github.com/redis/go-redis/v9"
)

// StoreOption is a functional option for configuring a token store.
type StoreOption func(*storeConfig)

// storeConfig holds configuration for token stores.
type storeConfig struct {
	filePath    string
	passphrase  string
	redisClient redis.UniversalClient
	redisPrefix string
	redisTTL    time.Duration
	db          *sql.DB
	postgresDSN string
	slot        string
}

// WithFilePath sets the credentials file used by the file store.
func WithFilePath(path string) StoreOption {
	return func(c *storeConfig) {
		c.filePath = path
	}
}

// WithPassphrase enables at-rest encryption for the file store.
func WithPassphrase(passphrase string) StoreOption {
	return func(c *storeConfig) {
		c.passphrase = passphrase
	}
}

// WithRedisClient sets the Redis client for the Redis store.
func WithRedisClient(client redis.UniversalClient) StoreOption {
	return func(c *storeConfig) {
		c.redisClient = client
	}
}

// WithRedisPrefix sets the prefix prepended to the access/refresh keys.
func WithRedisPrefix(prefix string) StoreOption {
	return func(c *storeConfig) {
		c.redisPrefix = prefix
	}
}

// WithRedisTTL sets the TTL for Redis keys. Zero keeps them until cleared.
func WithRedisTTL(ttl time.Duration) StoreOption {
	return func(c *storeConfig) {
		c.redisTTL = ttl
	}
}

// WithDB sets an open database handle for the Postgres store. The store does not close it.
func WithDB(db *sql.DB) StoreOption {
	return func(c *storeConfig) {
		c.db = db
	}
}

// WithPostgresDSN makes the Postgres store open (and later close) its own connection pool.
func WithPostgresDSN(dsn string) StoreOption {
	return func(c *storeConfig) {
		c.postgresDSN = dsn
	}
}

// WithSlot names the credential row used by the Postgres store.
func WithSlot(slot string) StoreOption {
	return func(c *storeConfig) {
		c.slot = slot
	}
}
