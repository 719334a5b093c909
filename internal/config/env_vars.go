package config

import (
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

const (
	appNameKey    = "app_name"
	envKey        = "env"
	configFileKey = "config_file"

	defaultAppName = "Inventory"
)

type EnvVars struct {
	v *viper.Viper
}

var _ EnvConfig = EnvVars{}

func (e EnvVars) GetAppName() string {
	return e.v.GetString(appNameKey)
}

// GetEnv returns the environment name, DEV when unset.
func (e EnvVars) GetEnv() string {
	env := e.v.GetString(envKey)
	if env == "" {
		return "DEV"
	}
	return env
}

func (e EnvVars) GetConfigFile() string {
	return e.v.GetString(configFileKey)
}

// defaultTokenFile places the credentials file in the user's config directory, falling back to
// the working directory when the platform has none.
func defaultTokenFile() string {
	dir, err := os.UserConfigDir()
	if err != nil || dir == "" {
		return filepath.Join(".inventory", "credentials.json")
	}
	return filepath.Join(dir, "inventory", "credentials.json")
}
