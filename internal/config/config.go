// Package config loads client configuration from defaults, an optional .env file, an optional
// YAML/TOML/JSON config file, INVENTORY_* environment variables and command-line flags, in
// increasing order of precedence.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/jrsteele09/go-inventory-client/internal/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "INVENTORY"

type Config interface {
	EnvConfig
	APIConfig
	StorageConfig
	LogConfig
}

type EnvConfig interface {
	GetAppName() string
	GetEnv() string
	GetConfigFile() string
}

type mainConfig struct {
	EnvVars
	API
	Storage
	Logging
}

var _ Config = mainConfig{}

// flagKeys maps command-line flag names to configuration keys.
var flagKeys = map[string]string{
	"config":          configFileKey,
	"api-url":         apiURLKey,
	"timeout":         requestTimeoutKey,
	"store":           storeTypeKey,
	"token-file":      tokenFileKey,
	"token-key":       tokenPassphraseKey,
	"redis-addr":      redisAddrKey,
	"redis-db":        redisDBKey,
	"redis-prefix":    redisPrefixKey,
	"postgres-dsn":    postgresDSNKey,
	"log-level":       logLevelKey,
	"log-format":      logFormatKey,
	"credential-slot": credentialSlotKey,
}

// RegisterFlags adds the configuration flags to fs. Flags left unset do not override other sources.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "path to a YAML/TOML/JSON config file")
	fs.String("api-url", "", "inventory API base URL (default "+defaultAPIURL+")")
	fs.Duration("timeout", 0, "HTTP request timeout, 0 disables")
	fs.String("store", "", "token store driver: memory, file, redis, postgres")
	fs.String("token-file", "", "credentials file used by the file token store")
	fs.String("token-key", "", "passphrase used to encrypt the credentials file")
	fs.String("redis-addr", "", "redis address used by the redis token store")
	fs.Int("redis-db", 0, "redis database used by the redis token store")
	fs.String("redis-prefix", "", "key prefix used by the redis token store")
	fs.String("postgres-dsn", "", "postgres DSN used by the postgres token store")
	fs.String("credential-slot", "", "credential slot name for shared token stores")
	fs.String("log-level", "", "log level: debug, info, warn, error")
	fs.String("log-format", "", "log format: console or json")
}

// New builds the configuration. flags may be nil.
func New(flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // a missing .env is fine

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, errors.Wrapf(err, "[config New] bind flag %s", name)
				}
			}
		}
	}

	if path := v.GetString(configFileKey); path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("[config New] %w: config file %q: %v", errors.ErrInvalidConfig, path, err)
		}
		v.SetConfigFile(path)
		v.SetConfigType("")
		if err := v.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("[config New] %w: read %q: %v", errors.ErrInvalidConfig, path, err)
		}
	}

	cfg := mainConfig{
		EnvVars: EnvVars{v: v},
		API:     API{v: v},
		Storage: Storage{v: v},
		Logging: Logging{v: v},
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(appNameKey, defaultAppName)
	v.SetDefault(envKey, "DEV")
	v.SetDefault(configFileKey, "")
	v.SetDefault(apiURLKey, defaultAPIURL)
	v.SetDefault(requestTimeoutKey, defaultRequestTimeout)
	v.SetDefault(userAgentKey, defaultUserAgent)
	v.SetDefault(storeTypeKey, defaultStoreType)
	v.SetDefault(tokenFileKey, defaultTokenFile())
	v.SetDefault(tokenPassphraseKey, "")
	v.SetDefault(redisAddrKey, "localhost:6379")
	v.SetDefault(redisPasswordKey, "")
	v.SetDefault(redisDBKey, 0)
	v.SetDefault(redisPrefixKey, "inventory:")
	v.SetDefault(redisTTLKey, 0)
	v.SetDefault(postgresDSNKey, "")
	v.SetDefault(credentialSlotKey, "default")
	v.SetDefault(logLevelKey, "info")
	v.SetDefault(logFormatKey, LogFormatConsole)
}

func (c mainConfig) validate() error {
	if err := c.API.validate(); err != nil {
		return err
	}
	if err := c.Storage.validate(); err != nil {
		return err
	}
	return c.Logging.validate()
}
