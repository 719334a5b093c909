// Package app wires the client together once at startup. The App owns every component; nothing
// is kept in package-level state.
package app

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/jrsteele09/go-inventory-client/apiclient"
	"github.com/jrsteele09/go-inventory-client/internal/config"
	"github.com/jrsteele09/go-inventory-client/internal/errors"
	"github.com/jrsteele09/go-inventory-client/resource"
	"github.com/jrsteele09/go-inventory-client/session"
	"github.com/jrsteele09/go-inventory-client/tokenstore"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

type App struct {
	Config  config.Config
	Logger  zerolog.Logger
	Tokens  tokenstore.Store
	Client  *apiclient.Client
	Session *session.Manager
	Stores  *resource.Stores
}

type options struct {
	logger         *zerolog.Logger
	tokens         tokenstore.Store
	tracerProvider trace.TracerProvider
	onAuthFailure  []apiclient.AuthFailureHandler
	logOutput      io.Writer
}

// Option customises New.
type Option func(*options)

func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) {
		o.logger = &logger
	}
}

// WithTokenStore uses store instead of the one described by the configuration.
func WithTokenStore(store tokenstore.Store) Option {
	return func(o *options) {
		o.tokens = store
	}
}

func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) {
		o.tracerProvider = tp
	}
}

// WithAuthFailureHandler is called after the session has been invalidated by a failed refresh.
func WithAuthFailureHandler(h apiclient.AuthFailureHandler) Option {
	return func(o *options) {
		o.onAuthFailure = append(o.onAuthFailure, h)
	}
}

// WithLogOutput sets where the default logger writes. Defaults to stderr.
func WithLogOutput(w io.Writer) Option {
	return func(o *options) {
		o.logOutput = w
	}
}

// New builds every component from cfg.
func New(ctx context.Context, cfg config.Config, opts ...Option) (*App, error) {
	o := &options{logOutput: os.Stderr}
	for _, opt := range opts {
		opt(o)
	}

	logger := NewLogger(cfg, o.logOutput)
	if o.logger != nil {
		logger = *o.logger
	}

	tokens := o.tokens
	if tokens == nil {
		var err error
		if tokens, err = NewTokenStore(cfg); err != nil {
			return nil, errors.Wrapf(err, "[app New] token store")
		}
	}

	clientOpts := []apiclient.Option{
		apiclient.WithLogger(logger),
		apiclient.WithTimeout(cfg.GetRequestTimeout()),
		apiclient.WithUserAgent(cfg.GetUserAgent()),
		apiclient.WithColour(cfg.GetLogFormat() == config.LogFormatConsole),
	}
	if o.tracerProvider != nil {
		clientOpts = append(clientOpts, apiclient.WithTracerProvider(o.tracerProvider))
	}
	client := apiclient.New(cfg.GetBaseURL(), tokens, clientOpts...)

	manager := session.New(ctx, tokens, client, logger)
	client.OnAuthFailure(manager.Invalidate)
	for _, h := range o.onAuthFailure {
		client.OnAuthFailure(h)
	}

	return &App{
		Config:  cfg,
		Logger:  logger,
		Tokens:  tokens,
		Client:  client,
		Session: manager,
		Stores:  resource.NewStores(client, logger),
	}, nil
}

// Close releases the token store.
func (a *App) Close() error {
	return a.Tokens.Close()
}

// NewLogger builds a zerolog logger in the configured format and level.
func NewLogger(cfg config.LogConfig, w io.Writer) zerolog.Logger {
	var logger zerolog.Logger
	if cfg.GetLogFormat() == config.LogFormatJSON {
		logger = zerolog.New(w)
	} else {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen})
	}
	return logger.Level(cfg.GetLogLevel()).With().Timestamp().Logger()
}

// NewTokenStore opens the token store driver selected by cfg.
func NewTokenStore(cfg config.StorageConfig) (tokenstore.Store, error) {
	storeType := tokenstore.StoreType(cfg.GetStoreType())
	switch storeType {
	case tokenstore.StoreTypeMemory:
		return tokenstore.NewStore(storeType)
	case tokenstore.StoreTypeFile:
		return tokenstore.NewStore(storeType,
			tokenstore.WithFilePath(cfg.GetTokenFile()),
			tokenstore.WithPassphrase(cfg.GetTokenPassphrase()),
		)
	case tokenstore.StoreTypeRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.GetRedisAddr(),
			Password: cfg.GetRedisPassword(),
			DB:       cfg.GetRedisDB(),
		})
		return tokenstore.NewStore(storeType,
			tokenstore.WithRedisClient(client),
			tokenstore.WithRedisPrefix(cfg.GetRedisKeyPrefix()),
			tokenstore.WithRedisTTL(cfg.GetRedisTTL()),
		)
	case tokenstore.StoreTypePostgres:
		return tokenstore.NewStore(storeType,
			tokenstore.WithPostgresDSN(cfg.GetPostgresDSN()),
			tokenstore.WithSlot(cfg.GetCredentialSlot()),
		)
	default:
		return nil, errors.Wrapf(errors.ErrInvalidStoreType, "[app NewTokenStore] %q", storeType)
	}
}
