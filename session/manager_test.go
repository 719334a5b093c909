package session_test

import (
	"context"
	"net/http"
	"sync"
	"testing"

	"github.com/jrsteele09/go-inventory-client/apiclient"
	"github.com/jrsteele09/go-inventory-client/internal/errors"
	"github.com/jrsteele09/go-inventory-client/internal/fakeapi"
	"github.com/jrsteele09/go-inventory-client/session"
	"github.com/jrsteele09/go-inventory-client/token"
	"github.com/jrsteele09/go-inventory-client/tokenstore"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

// stubAPI issues T1/R1 for a/b and T2, T3, ... on each refresh.
type stubAPI struct {
	mu           sync.Mutex
	refreshes    int
	refreshErr   error
	verifyErr    error
	lastRefresh  string
	verifiedWith string
}

func (s *stubAPI) ObtainToken(_ context.Context, creds token.Credentials) (token.Pair, error) {
	if creds.Username != "a" || creds.Password != "b" {
		return token.Pair{}, errors.ClassifyHTTP(http.StatusUnauthorized, []byte(`{"detail":"No active account found with the given credentials"}`))
	}
	return token.Pair{Access: "T1", Refresh: "R1"}, nil
}

func (s *stubAPI) RefreshToken(_ context.Context, refresh string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastRefresh = refresh
	if s.refreshErr != nil {
		return "", s.refreshErr
	}
	s.refreshes++
	return "T" + string(rune('1'+s.refreshes)), nil
}

func (s *stubAPI) VerifyToken(_ context.Context, access string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.verifiedWith = access
	return s.verifyErr
}

func newManager(t *testing.T, pair token.Pair) (*session.Manager, *tokenstore.MemoryStore, *stubAPI) {
	t.Helper()
	store := tokenstore.NewMemoryStore()
	if !pair.IsZero() {
		require.NoError(t, store.Save(context.Background(), pair))
	}
	api := &stubAPI{}
	return session.New(context.Background(), store, api, zerolog.Nop()), store, api
}

func storedPair(t *testing.T, store tokenstore.Store) (token.Pair, bool) {
	t.Helper()
	pair, ok, err := store.Load(context.Background())
	require.NoError(t, err)
	return pair, ok
}

func TestNew_InitialState(t *testing.T) {
	m, _, _ := newManager(t, token.Pair{})
	require.Equal(t, session.StatusAnonymous, m.Status())

	m, _, _ = newManager(t, token.Pair{Access: "T1"})
	require.Equal(t, session.StatusAnonymous, m.Status(), "a pair missing either token is anonymous")

	m, _, _ = newManager(t, token.Pair{Access: "T1", Refresh: "R1"})
	require.Equal(t, session.StatusAuthenticated, m.Status())
	require.True(t, m.IsAuthenticated(context.Background()))
}

func TestManager_Login(t *testing.T) {
	ctx := context.Background()
	m, store, _ := newManager(t, token.Pair{})

	var seen []session.State
	m.Subscribe(func(s session.State) { seen = append(seen, s) })

	require.NoError(t, m.Login(ctx, token.Credentials{Username: "a", Password: "b"}))

	state := m.State(ctx)
	require.True(t, state.IsAuthenticated)
	require.Equal(t, session.StatusAuthenticated, state.Status)
	require.Equal(t, &token.Pair{Access: "T1", Refresh: "R1"}, state.Credentials)
	require.False(t, state.Loading)
	require.Nil(t, state.Error)

	pair, ok := storedPair(t, store)
	require.True(t, ok)
	require.Equal(t, token.Pair{Access: "T1", Refresh: "R1"}, pair)

	require.Len(t, seen, 2)
	require.Equal(t, session.StatusAuthenticating, seen[0].Status)
	require.True(t, seen[0].Loading)
	require.Equal(t, session.StatusAuthenticated, seen[1].Status)
}

func TestManager_LoginFailure(t *testing.T) {
	ctx := context.Background()
	m, store, _ := newManager(t, token.Pair{})

	err := m.Login(ctx, token.Credentials{Username: "a", Password: "nope"})
	var apiErr *errors.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusUnauthorized, apiErr.Status)

	state := m.State(ctx)
	require.Equal(t, session.StatusAnonymous, state.Status)
	require.False(t, state.IsAuthenticated)
	require.Nil(t, state.Credentials)
	require.Equal(t, "No active account found with the given credentials", state.Error.Message)

	_, ok := storedPair(t, store)
	require.False(t, ok, "nothing is stored on a failed login")

	m.ClearError(ctx)
	require.Nil(t, m.State(ctx).Error)
}

func TestManager_RefreshKeepsRefreshToken(t *testing.T) {
	ctx := context.Background()
	m, store, api := newManager(t, token.Pair{})
	require.NoError(t, m.Login(ctx, token.Credentials{Username: "a", Password: "b"}))

	for i, want := range []string{"T2", "T3", "T4"} {
		require.NoError(t, m.Refresh(ctx), "refresh %d", i)
		pair, ok := storedPair(t, store)
		require.True(t, ok)
		require.Equal(t, want, pair.Access)
		require.Equal(t, "R1", pair.Refresh)
		require.Equal(t, "R1", api.lastRefresh)
		require.Equal(t, session.StatusAuthenticated, m.Status())
	}
}

func TestManager_RefreshFailure(t *testing.T) {
	ctx := context.Background()
	m, store, api := newManager(t, token.Pair{Access: "T1", Refresh: "R1"})
	api.refreshErr = errors.ClassifyHTTP(http.StatusUnauthorized, []byte(`{"detail":"Token is invalid or expired"}`))

	err := m.Refresh(ctx)
	require.ErrorIs(t, err, errors.ErrUnauthorized)

	state := m.State(ctx)
	require.Equal(t, session.StatusAnonymous, state.Status)
	require.Equal(t, "Token is invalid or expired", state.Error.Message)
	_, ok := storedPair(t, store)
	require.False(t, ok)
}

func TestManager_RefreshWithoutRefreshToken(t *testing.T) {
	ctx := context.Background()
	store := tokenstore.NewMemoryStore()
	api := &stubAPI{}
	require.NoError(t, store.Save(ctx, token.Pair{Access: "T1", Refresh: "R1"}))
	m := session.New(ctx, store, api, zerolog.Nop())
	require.NoError(t, store.Save(ctx, token.Pair{Access: "T1"}))

	err := m.Refresh(ctx)
	require.ErrorIs(t, err, errors.ErrNoRefreshToken)
	require.Equal(t, session.StatusAnonymous, m.Status())
	require.Empty(t, api.lastRefresh, "no refresh call without a refresh token")
}

func TestManager_RefreshWhenAnonymous(t *testing.T) {
	m, _, api := newManager(t, token.Pair{})
	require.ErrorIs(t, m.Refresh(context.Background()), errors.ErrNotAuthenticated)
	require.Equal(t, session.StatusAnonymous, m.Status())
	require.Empty(t, api.lastRefresh)
}

func TestManager_Verify(t *testing.T) {
	ctx := context.Background()

	t.Run("accepted", func(t *testing.T) {
		m, store, api := newManager(t, token.Pair{Access: "T1", Refresh: "R1"})
		require.NoError(t, m.Verify(ctx))
		require.Equal(t, "T1", api.verifiedWith)
		require.Equal(t, session.StatusAuthenticated, m.Status())
		pair, ok := storedPair(t, store)
		require.True(t, ok)
		require.Equal(t, token.Pair{Access: "T1", Refresh: "R1"}, pair, "verify never mutates the token")
	})

	t.Run("rejected", func(t *testing.T) {
		m, store, api := newManager(t, token.Pair{Access: "T1", Refresh: "R1"})
		api.verifyErr = errors.ClassifyHTTP(http.StatusUnauthorized, []byte(`{"detail":"Token is invalid or expired"}`))
		require.ErrorIs(t, m.Verify(ctx), errors.ErrUnauthorized)
		require.Equal(t, session.StatusAnonymous, m.Status())
		_, ok := storedPair(t, store)
		require.False(t, ok)
	})

	t.Run("nothing stored", func(t *testing.T) {
		m, _, api := newManager(t, token.Pair{})
		require.ErrorIs(t, m.Verify(ctx), errors.ErrNotAuthenticated)
		require.Empty(t, api.verifiedWith)
	})
}

func TestManager_LogoutAlwaysAnonymous(t *testing.T) {
	ctx := context.Background()
	for name, pair := range map[string]token.Pair{
		"authenticated": {Access: "T1", Refresh: "R1"},
		"access only":   {Access: "T1"},
		"anonymous":     {},
	} {
		t.Run(name, func(t *testing.T) {
			m, store, _ := newManager(t, pair)
			m.Logout(ctx)

			state := m.State(ctx)
			require.Equal(t, session.StatusAnonymous, state.Status)
			require.False(t, state.IsAuthenticated)
			require.Nil(t, state.Error)
			require.Nil(t, state.Credentials)
			_, ok := storedPair(t, store)
			require.False(t, ok)
		})
	}
}

func TestManager_Invalidate(t *testing.T) {
	ctx := context.Background()
	cause := errors.ClassifyHTTP(http.StatusUnauthorized, []byte(`{"detail":"Token is invalid or expired"}`))

	t.Run("cleared store ends session", func(t *testing.T) {
		m, store, _ := newManager(t, token.Pair{Access: "T1", Refresh: "R1"})
		require.NoError(t, store.Clear(ctx))

		m.Invalidate(ctx, cause)
		state := m.State(ctx)
		require.Equal(t, session.StatusAnonymous, state.Status)
		require.NotNil(t, state.Error)
		require.Equal(t, "Token is invalid or expired", state.Error.Message)
	})

	t.Run("credentials saved after the clear are kept", func(t *testing.T) {
		m, store, _ := newManager(t, token.Pair{Access: "T1", Refresh: "R1"})
		require.NoError(t, store.Clear(ctx))
		require.NoError(t, store.Save(ctx, token.Pair{Access: "T9", Refresh: "R9"}))

		m.Invalidate(ctx, cause)
		pair, ok := storedPair(t, store)
		require.True(t, ok)
		require.Equal(t, token.Pair{Access: "T9", Refresh: "R9"}, pair)
		require.Equal(t, session.StatusAuthenticated, m.Status())
		require.True(t, m.IsAuthenticated(ctx))
	})
}

func TestManager_Claims(t *testing.T) {
	ctx := context.Background()
	m, _, _ := newManager(t, token.Pair{Access: "opaque", Refresh: "R1"})
	_, err := m.Claims(ctx)
	require.ErrorIs(t, err, token.ErrNotJWT)

	m, _, _ = newManager(t, token.Pair{})
	_, err = m.Claims(ctx)
	require.ErrorIs(t, err, errors.ErrNotAuthenticated)
}

func TestManager_Unsubscribe(t *testing.T) {
	m, _, _ := newManager(t, token.Pair{})
	calls := 0
	unsubscribe := m.Subscribe(func(session.State) { calls++ })
	m.Logout(context.Background())
	unsubscribe()
	m.Logout(context.Background())
	require.Equal(t, 1, calls)
}

// TestManager_ExpiredRefreshTokenEndsSession drives the full stack: a stale access token on a
// resource request, a refresh that is itself rejected, and the session falling back to login.
func TestManager_ExpiredRefreshTokenEndsSession(t *testing.T) {
	ctx := context.Background()
	backend := fakeapi.New(fakeapi.WithUser("a", "b"))
	server := backend.Start()
	defer server.Close()

	store := tokenstore.NewMemoryStore()
	client := apiclient.New(server.URL+"/api", store)
	m := session.New(ctx, store, client, zerolog.Nop())
	client.OnAuthFailure(m.Invalidate)

	var redirected []session.State
	m.Subscribe(func(s session.State) {
		if s.Status == session.StatusAnonymous && s.Error != nil {
			redirected = append(redirected, s)
		}
	})

	require.NoError(t, m.Login(ctx, token.Credentials{Username: "a", Password: "b"}))
	claims, err := m.Claims(ctx)
	require.NoError(t, err)
	require.Equal(t, "1", claims.UserID)
	require.Equal(t, "access", claims.TokenType)

	backend.ExpireAccessTokens()
	backend.RevokeRefreshTokens()

	err = client.Get(ctx, "products/", nil, nil)
	var apiErr *errors.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusUnauthorized, apiErr.Status)
	require.Equal(t, "Token is invalid or expired", apiErr.Message)
	require.Equal(t, 1, backend.RefreshCalls())

	state := m.State(ctx)
	require.Equal(t, session.StatusAnonymous, state.Status)
	require.False(t, state.IsAuthenticated)
	require.Nil(t, state.Credentials)
	require.Len(t, redirected, 1, "login redirect triggered once")
}

func TestManager_RefreshAgainstServer(t *testing.T) {
	ctx := context.Background()
	backend := fakeapi.New(fakeapi.WithUser("a", "b"))
	server := backend.Start()
	defer server.Close()

	store := tokenstore.NewMemoryStore()
	client := apiclient.New(server.URL+"/api", store)
	m := session.New(ctx, store, client, zerolog.Nop())

	require.NoError(t, m.Login(ctx, token.Credentials{Username: "a", Password: "b"}))
	before, _ := storedPair(t, store)

	require.NoError(t, m.Refresh(ctx))
	after, _ := storedPair(t, store)
	require.NotEqual(t, before.Access, after.Access)
	require.Equal(t, before.Refresh, after.Refresh)

	require.NoError(t, m.Verify(ctx))
	require.Equal(t, session.StatusAuthenticated, m.Status())
}
