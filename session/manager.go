// Package session owns the authentication state machine. It is the only writer of session
// state and, together with the API client's refresh path, the only writer of the token store.
package session

import (
	"context"
	"sync"

	"github.com/jrsteele09/go-inventory-client/internal/errors"
	"github.com/jrsteele09/go-inventory-client/token"
	"github.com/rs/zerolog"
)

// AuthAPI is the set of token endpoints the manager drives.
type AuthAPI interface {
	ObtainToken(ctx context.Context, creds token.Credentials) (token.Pair, error)
	RefreshToken(ctx context.Context, refresh string) (string, error)
	VerifyToken(ctx context.Context, access string) error
}

// TokenStore is the part of tokenstore.Store the manager uses.
type TokenStore interface {
	Save(ctx context.Context, pair token.Pair) error
	Load(ctx context.Context) (token.Pair, bool, error)
	SetAccess(ctx context.Context, access string) error
	Clear(ctx context.Context) error
}

type Manager struct {
	store  TokenStore
	api    AuthAPI
	logger zerolog.Logger

	// opMu serializes transitions; mu guards the fields below it.
	opMu      sync.Mutex
	mu        sync.RWMutex
	status    Status
	loading   bool
	err       *errors.APIError
	listeners map[int]Listener
	nextID    int
}

// New creates a manager. The session starts authenticated when the store already holds both
// tokens, and anonymous otherwise.
func New(ctx context.Context, store TokenStore, api AuthAPI, logger zerolog.Logger) *Manager {
	m := &Manager{
		store:     store,
		api:       api,
		logger:    logger,
		status:    StatusAnonymous,
		listeners: map[int]Listener{},
	}
	pair, ok, err := store.Load(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("loading stored credentials")
	}
	if ok && pair.Complete() {
		m.status = StatusAuthenticated
	}
	return m
}

// Login exchanges creds for a credential pair and stores it. On failure the store is left
// untouched and the classified error is both recorded and returned.
func (m *Manager) Login(ctx context.Context, creds token.Credentials) error {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	m.transition(ctx, StatusAuthenticating, true, nil)

	pair, err := m.api.ObtainToken(ctx, creds)
	if err != nil {
		apiErr := errors.Classify(err)
		m.transition(ctx, StatusAnonymous, false, apiErr)
		return apiErr
	}
	if err := m.store.Save(ctx, pair); err != nil {
		apiErr := errors.Classify(errors.Wrapf(err, "[session Login] save credentials"))
		m.transition(ctx, StatusAnonymous, false, apiErr)
		return apiErr
	}

	m.logger.Info().Str("username", creds.Username).Msg("logged in")
	m.transition(ctx, StatusAuthenticated, false, nil)
	return nil
}

// Refresh mints a new access token from the stored refresh token, which is kept. Any failure
// clears the store and ends the session.
func (m *Manager) Refresh(ctx context.Context) error {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	if m.Status() != StatusAuthenticated {
		return errors.Classify(errors.ErrNotAuthenticated)
	}
	m.transition(ctx, StatusRefreshing, true, nil)

	pair, ok, err := m.store.Load(ctx)
	if err != nil {
		return m.fail(ctx, errors.Wrapf(err, "[session Refresh] load credentials"))
	}
	if !ok || pair.Refresh == "" {
		return m.fail(ctx, errors.ErrNoRefreshToken)
	}

	access, err := m.api.RefreshToken(ctx, pair.Refresh)
	if err != nil {
		return m.fail(ctx, err)
	}
	if err := m.store.SetAccess(ctx, access); err != nil {
		return m.fail(ctx, errors.Wrapf(err, "[session Refresh] store access token"))
	}

	m.logger.Debug().Msg("access token refreshed")
	m.transition(ctx, StatusAuthenticated, false, nil)
	return nil
}

// Verify asks the server whether the stored access token is still accepted. The token is never
// modified; a rejected or missing token ends the session.
func (m *Manager) Verify(ctx context.Context) error {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	m.transition(ctx, m.Status(), true, nil)

	pair, ok, err := m.store.Load(ctx)
	if err != nil {
		return m.fail(ctx, errors.Wrapf(err, "[session Verify] load credentials"))
	}
	if !ok || !pair.HasAccess() {
		return m.fail(ctx, errors.ErrNotAuthenticated)
	}
	if err := m.api.VerifyToken(ctx, pair.Access); err != nil {
		return m.fail(ctx, err)
	}

	m.transition(ctx, StatusAuthenticated, false, nil)
	return nil
}

// Logout always ends in an anonymous session with an empty store. Store errors are logged.
func (m *Manager) Logout(ctx context.Context) {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	if err := m.store.Clear(ctx); err != nil {
		m.logger.Error().Err(err).Msg("clearing credentials on logout")
	}
	m.transition(ctx, StatusAnonymous, false, nil)
}

// Invalidate ends the session after the API client's refresh path failed and cleared the store.
// It does not wait for in-flight operations so it is safe to call from an
// apiclient.AuthFailureHandler. Credentials saved since the clear, by a concurrent Login, are kept.
func (m *Manager) Invalidate(ctx context.Context, cause error) {
	if pair, ok, err := m.store.Load(ctx); err == nil && ok && pair.Complete() {
		m.logger.Debug().Msg("credentials replaced after refresh failure, keeping session")
		return
	}
	m.transition(ctx, StatusAnonymous, false, errors.Classify(cause))
}

// ClearError drops the recorded error without changing state.
func (m *Manager) ClearError(ctx context.Context) {
	m.mu.Lock()
	m.err = nil
	m.mu.Unlock()
	m.notify(ctx)
}

func (m *Manager) fail(ctx context.Context, cause error) error {
	apiErr := errors.Classify(cause)
	if err := m.store.Clear(ctx); err != nil {
		m.logger.Error().Err(err).Msg("clearing credentials")
	}
	m.logger.Warn().Err(apiErr).Msg("session ended")
	m.transition(ctx, StatusAnonymous, false, apiErr)
	return apiErr
}

func (m *Manager) transition(ctx context.Context, status Status, loading bool, err *errors.APIError) {
	m.mu.Lock()
	m.status = status
	m.loading = loading
	m.err = err
	m.mu.Unlock()
	m.notify(ctx)
}

// Status returns the current state machine state.
func (m *Manager) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

// State returns a snapshot. IsAuthenticated additionally requires an access token to be stored
// at the time of the call.
func (m *Manager) State(ctx context.Context) State {
	m.mu.RLock()
	state := State{
		Status:  m.status,
		Loading: m.loading,
		Error:   m.err,
	}
	m.mu.RUnlock()

	pair, ok, err := m.store.Load(ctx)
	if err != nil {
		m.logger.Warn().Err(err).Msg("loading credentials for session state")
	}
	if ok {
		state.Credentials = &pair
	}
	authStatus := state.Status == StatusAuthenticated || state.Status == StatusRefreshing
	state.IsAuthenticated = authStatus && ok && pair.HasAccess()
	return state
}

// IsAuthenticated is shorthand for State(ctx).IsAuthenticated.
func (m *Manager) IsAuthenticated(ctx context.Context) bool {
	return m.State(ctx).IsAuthenticated
}

// Claims decodes the stored access token for display. The signature is not verified.
func (m *Manager) Claims(ctx context.Context) (*token.Claims, error) {
	pair, ok, err := m.store.Load(ctx)
	if err != nil {
		return nil, errors.Wrapf(err, "[session Claims] load credentials")
	}
	if !ok || !pair.HasAccess() {
		return nil, errors.ErrNotAuthenticated
	}
	return token.ParseClaims(pair.Access)
}

// Subscribe registers l for every transition and returns a function that removes it.
func (m *Manager) Subscribe(l Listener) (unsubscribe func()) {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.listeners[id] = l
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.listeners, id)
		m.mu.Unlock()
	}
}

func (m *Manager) notify(ctx context.Context) {
	m.mu.RLock()
	listeners := make([]Listener, 0, len(m.listeners))
	for _, l := range m.listeners {
		listeners = append(listeners, l)
	}
	m.mu.RUnlock()
	if len(listeners) == 0 {
		return
	}

	state := m.State(ctx)
	for _, l := range listeners {
		l(state)
	}
}
