package token

import (
	"context"

	"github.com/jrsteele09/go-inventory-client/internal/errors"
	"golang.org/x/oauth2"
)

// Loader reads the persisted credential pair. The bool is false when nothing is stored.
type Loader interface {
	Load(ctx context.Context) (Pair, bool, error)
}

// StoreSource is an oauth2.TokenSource that reads the current pair from a Loader on every call,
// so a token refreshed by another goroutine is picked up immediately.
type StoreSource struct {
	ctx    context.Context
	loader Loader
}

var _ oauth2.TokenSource = (*StoreSource)(nil)

func NewStoreSource(ctx context.Context, loader Loader) *StoreSource {
	return &StoreSource{ctx: ctx, loader: loader}
}

// Token returns the stored access token. It fails with ErrNotAuthenticated when no access token
// is stored. Expiry is filled from the JWT exp claim when available; it is informational only.
func (s *StoreSource) Token() (*oauth2.Token, error) {
	pair, ok, err := s.loader.Load(s.ctx)
	if err != nil {
		return nil, errors.Wrapf(err, "[token StoreSource] load")
	}
	if !ok || !pair.HasAccess() {
		return nil, errors.ErrNotAuthenticated
	}

	tok := &oauth2.Token{
		AccessToken:  pair.Access,
		RefreshToken: pair.Refresh,
		TokenType:    "Bearer",
	}
	if claims, err := ParseClaims(pair.Access); err == nil {
		tok.Expiry = claims.ExpiresAt
	}
	return tok, nil
}
