package config

import (
	"fmt"
	"time"

	"github.com/jrsteele09/go-inventory-client/internal/errors"
	"github.com/spf13/viper"
)

const (
	storeTypeKey       = "store"
	tokenFileKey       = "token_file"
	tokenPassphraseKey = "token_passphrase"
	redisAddrKey       = "redis_addr"
	redisPasswordKey   = "redis_password"
	redisDBKey         = "redis_db"
	redisPrefixKey     = "redis_prefix"
	redisTTLKey        = "redis_ttl"
	postgresDSNKey     = "postgres_dsn"
	credentialSlotKey  = "credential_slot"

	defaultStoreType = "file"
)

type StorageConfig interface {
	GetStoreType() string
	GetTokenFile() string
	GetTokenPassphrase() string
	GetRedisAddr() string
	GetRedisPassword() string
	GetRedisDB() int
	GetRedisKeyPrefix() string
	GetRedisTTL() time.Duration
	GetPostgresDSN() string
	GetCredentialSlot() string
}

type Storage struct {
	v *viper.Viper
}

var _ StorageConfig = Storage{}

func (s Storage) GetStoreType() string {
	return s.v.GetString(storeTypeKey)
}

func (s Storage) GetTokenFile() string {
	return s.v.GetString(tokenFileKey)
}

// GetTokenPassphrase enables at-rest encryption of the credentials file when non-empty.
func (s Storage) GetTokenPassphrase() string {
	return s.v.GetString(tokenPassphraseKey)
}

func (s Storage) GetRedisAddr() string {
	return s.v.GetString(redisAddrKey)
}

func (s Storage) GetRedisPassword() string {
	return s.v.GetString(redisPasswordKey)
}

func (s Storage) GetRedisDB() int {
	return s.v.GetInt(redisDBKey)
}

func (s Storage) GetRedisKeyPrefix() string {
	return s.v.GetString(redisPrefixKey)
}

// GetRedisTTL returns how long stored credentials live in redis; 0 keeps them until cleared.
func (s Storage) GetRedisTTL() time.Duration {
	return s.v.GetDuration(redisTTLKey)
}

func (s Storage) GetPostgresDSN() string {
	return s.v.GetString(postgresDSNKey)
}

// GetCredentialSlot names the row used by the postgres token store.
func (s Storage) GetCredentialSlot() string {
	return s.v.GetString(credentialSlotKey)
}

func (s Storage) validate() error {
	switch s.GetStoreType() {
	case "memory":
	case "file":
		if s.GetTokenFile() == "" {
			return fmt.Errorf("[config] %w: token file must be set for the file store", errors.ErrInvalidConfig)
		}
	case "redis":
		if s.GetRedisAddr() == "" {
			return fmt.Errorf("[config] %w: redis address must be set for the redis store", errors.ErrInvalidConfig)
		}
	case "postgres":
		if s.GetPostgresDSN() == "" {
			return fmt.Errorf("[config] %w: postgres DSN must be set for the postgres store", errors.ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("[config] %w: %q", errors.ErrInvalidStoreType, s.GetStoreType())
	}
	return nil
}
