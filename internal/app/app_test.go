package app_test

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/jrsteele09/go-inventory-client/internal/app"
	"github.com/jrsteele09/go-inventory-client/internal/config"
	"github.com/jrsteele09/go-inventory-client/internal/errors"
	"github.com/jrsteele09/go-inventory-client/internal/fakeapi"
	"github.com/jrsteele09/go-inventory-client/inventory"
	"github.com/jrsteele09/go-inventory-client/session"
	"github.com/jrsteele09/go-inventory-client/token"
	"github.com/jrsteele09/go-inventory-client/tokenstore"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func newConfig(t *testing.T, env map[string]string) config.Config {
	t.Helper()
	for k, v := range env {
		t.Setenv(k, v)
	}
	cfg, err := config.New(nil)
	require.NoError(t, err)
	return cfg
}

func TestNew_EndToEnd(t *testing.T) {
	ctx := context.Background()
	backend := fakeapi.New(fakeapi.WithUser("a", "b"))
	server := backend.Start()
	defer server.Close()

	cfg := newConfig(t, map[string]string{
		"INVENTORY_API_URL": server.URL + "/api",
		"INVENTORY_STORE":   "memory",
	})

	var failures int
	a, err := app.New(ctx, cfg,
		app.WithLogger(zerolog.Nop()),
		app.WithAuthFailureHandler(func(context.Context, error) { failures++ }),
	)
	require.NoError(t, err)
	defer a.Close()

	require.Equal(t, session.StatusAnonymous, a.Session.Status())
	require.NoError(t, a.Session.Login(ctx, token.Credentials{Username: "a", Password: "b"}))

	_, err = a.Stores.Suppliers.Create(ctx, inventory.Supplier{Name: "Acme"})
	require.NoError(t, err)
	require.NoError(t, a.Stores.Suppliers.FetchAll(ctx, nil))
	require.Len(t, a.Stores.Suppliers.Items(), 1)

	backend.ExpireAccessTokens()
	backend.RevokeRefreshTokens()
	require.ErrorIs(t, a.Stores.Suppliers.FetchAll(ctx, nil), errors.ErrUnauthorized)
	require.Len(t, a.Stores.Suppliers.Items(), 1, "last good collection is kept")

	require.Equal(t, 1, failures)
	require.Equal(t, session.StatusAnonymous, a.Session.Status())
	_, ok, err := a.Tokens.Load(ctx)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestNew_StateSurvivesRestartWithFileStore(t *testing.T) {
	ctx := context.Background()
	backend := fakeapi.New(fakeapi.WithUser("a", "b"))
	server := backend.Start()
	defer server.Close()

	cfg := newConfig(t, map[string]string{
		"INVENTORY_API_URL":          server.URL + "/api",
		"INVENTORY_STORE":            "file",
		"INVENTORY_TOKEN_FILE":       filepath.Join(t.TempDir(), "credentials.json"),
		"INVENTORY_TOKEN_PASSPHRASE": "s3cret",
	})

	first, err := app.New(ctx, cfg, app.WithLogger(zerolog.Nop()))
	require.NoError(t, err)
	require.NoError(t, first.Session.Login(ctx, token.Credentials{Username: "a", Password: "b"}))
	require.NoError(t, first.Close())

	second, err := app.New(ctx, cfg, app.WithLogger(zerolog.Nop()))
	require.NoError(t, err)
	defer second.Close()
	require.Equal(t, session.StatusAuthenticated, second.Session.Status())
	require.NoError(t, second.Session.Verify(ctx))
}

func TestNewTokenStore(t *testing.T) {
	t.Run("memory", func(t *testing.T) {
		store, err := app.NewTokenStore(newConfig(t, map[string]string{"INVENTORY_STORE": "memory"}))
		require.NoError(t, err)
		require.IsType(t, &tokenstore.MemoryStore{}, store)
	})

	t.Run("redis", func(t *testing.T) {
		mr := miniredis.RunT(t)
		store, err := app.NewTokenStore(newConfig(t, map[string]string{
			"INVENTORY_STORE":        "redis",
			"INVENTORY_REDIS_ADDR":   mr.Addr(),
			"INVENTORY_REDIS_PREFIX": "app:",
		}))
		require.NoError(t, err)
		defer store.Close()

		require.NoError(t, store.Save(context.Background(), token.Pair{Access: "T1", Refresh: "R1"}))
		require.True(t, mr.Exists("app:access"))
	})

	t.Run("file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "creds.json")
		store, err := app.NewTokenStore(newConfig(t, map[string]string{
			"INVENTORY_STORE":      "file",
			"INVENTORY_TOKEN_FILE": path,
		}))
		require.NoError(t, err)
		require.Equal(t, path, store.(*tokenstore.FileStore).Path())
	})
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	cfg := newConfig(t, map[string]string{
		"INVENTORY_LOG_FORMAT": "json",
		"INVENTORY_LOG_LEVEL":  "warn",
	})
	logger := app.NewLogger(cfg, &buf)

	logger.Info().Msg("hidden")
	logger.Warn().Msg("shown")
	require.NotContains(t, buf.String(), "hidden")
	require.Contains(t, buf.String(), `"message":"shown"`)
}
