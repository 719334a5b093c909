package tokenstore

import (
	"database/sql"
	"fmt"

	"github.com/jrsteele09/go-inventory-client/internal/errors"
	_ "github.com/lib/pq"
)

// NewStore creates a Store for the given driver type.
// The file store requires WithFilePath, the redis store WithRedisClient, and the postgres store
// either WithDB or WithPostgresDSN.
func NewStore(storeType StoreType, opts ...StoreOption) (Store, error) {
	cfg := &storeConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	switch storeType {
	case StoreTypeMemory:
		return NewMemoryStore(), nil

	case StoreTypeFile:
		if cfg.filePath == "" {
			return nil, fmt.Errorf("[tokenstore NewStore] %w: file path is required", errors.ErrInvalidConfig)
		}
		return NewFileStore(cfg.filePath, cfg.passphrase)

	case StoreTypeRedis:
		if cfg.redisClient == nil {
			return nil, fmt.Errorf("[tokenstore NewStore] %w: redis client is required", errors.ErrInvalidConfig)
		}
		return NewRedisStore(cfg.redisClient, cfg.redisPrefix, cfg.redisTTL), nil

	case StoreTypePostgres:
		if cfg.db != nil {
			return NewPostgresStore(cfg.db, cfg.slot)
		}
		if cfg.postgresDSN == "" {
			return nil, fmt.Errorf("[tokenstore NewStore] %w: database or DSN is required", errors.ErrInvalidConfig)
		}
		db, err := sql.Open("postgres", cfg.postgresDSN)
		if err != nil {
			return nil, errors.Wrapf(err, "[tokenstore NewStore] open postgres")
		}
		store, err := NewPostgresStore(db, cfg.slot)
		if err != nil {
			db.Close()
			return nil, err
		}
		store.ownsDB = true
		return store, nil

	default:
		return nil, fmt.Errorf("[tokenstore NewStore] %w: %q", errors.ErrInvalidStoreType, storeType)
	}
}
