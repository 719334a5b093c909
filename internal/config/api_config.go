package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/jrsteele09/go-inventory-client/internal/errors"
	"github.com/spf13/viper"
)

const (
	apiURLKey         = "api_url"
	requestTimeoutKey = "request_timeout"
	userAgentKey      = "user_agent"

	defaultAPIURL         = "http://localhost:8000/api"
	defaultRequestTimeout = 30 * time.Second
	defaultUserAgent      = "go-inventory-client/1.0"
)

type APIConfig interface {
	GetBaseURL() string
	GetRequestTimeout() time.Duration
	GetUserAgent() string
}

type API struct {
	v *viper.Viper
}

var _ APIConfig = API{}

// GetBaseURL returns the API root without a trailing slash (e.g. "http://localhost:8000/api").
func (a API) GetBaseURL() string {
	return strings.TrimRight(a.v.GetString(apiURLKey), "/")
}

// GetRequestTimeout returns the per-request timeout; 0 means no timeout.
func (a API) GetRequestTimeout() time.Duration {
	return a.v.GetDuration(requestTimeoutKey)
}

func (a API) GetUserAgent() string {
	return a.v.GetString(userAgentKey)
}

func (a API) validate() error {
	raw := a.GetBaseURL()
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("[config] %w: api url %q must be an absolute http(s) URL", errors.ErrInvalidConfig, raw)
	}
	if a.GetRequestTimeout() < 0 {
		return fmt.Errorf("[config] %w: request timeout must be >= 0", errors.ErrInvalidConfig)
	}
	return nil
}
