package config

import (
	"fmt"

	"github.com/jrsteele09/go-inventory-client/internal/errors"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

const (
	logLevelKey  = "log_level"
	logFormatKey = "log_format"
)

// Supported log formats.
const (
	LogFormatConsole = "console"
	LogFormatJSON    = "json"
)

type LogConfig interface {
	GetLogLevel() zerolog.Level
	GetLogFormat() string
}

type Logging struct {
	v *viper.Viper
}

var _ LogConfig = Logging{}

// GetLogLevel falls back to info for an unparsable level; validate reports it first.
func (l Logging) GetLogLevel() zerolog.Level {
	level, err := zerolog.ParseLevel(l.v.GetString(logLevelKey))
	if err != nil || level == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return level
}

func (l Logging) GetLogFormat() string {
	return l.v.GetString(logFormatKey)
}

func (l Logging) validate() error {
	if _, err := zerolog.ParseLevel(l.v.GetString(logLevelKey)); err != nil {
		return fmt.Errorf("[config] %w: log level: %v", errors.ErrInvalidConfig, err)
	}
	switch l.GetLogFormat() {
	case LogFormatConsole, LogFormatJSON:
		return nil
	default:
		return fmt.Errorf("[config] %w: log format %q", errors.ErrInvalidConfig, l.GetLogFormat())
	}
}
