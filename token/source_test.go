package token_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	inverrors "github.com/jrsteele09/go-inventory-client/internal/errors"
	"github.com/jrsteele09/go-inventory-client/token"
	"github.com/stretchr/testify/require"
)

type stubLoader struct {
	pair token.Pair
	ok   bool
	err  error
}

func (s stubLoader) Load(context.Context) (token.Pair, bool, error) {
	return s.pair, s.ok, s.err
}

func TestStoreSource(t *testing.T) {
	ctx := context.Background()

	t.Run("attaches bearer header", func(t *testing.T) {
		src := token.NewStoreSource(ctx, stubLoader{pair: token.Pair{Access: "T1", Refresh: "R1"}, ok: true})
		tok, err := src.Token()
		require.NoError(t, err)
		require.Equal(t, "T1", tok.AccessToken)
		require.Equal(t, "R1", tok.RefreshToken)

		req, err := http.NewRequest(http.MethodGet, "http://example.com/products/", nil)
		require.NoError(t, err)
		tok.SetAuthHeader(req)
		require.Equal(t, "Bearer T1", req.Header.Get("Authorization"))
	})

	t.Run("nothing stored", func(t *testing.T) {
		_, err := token.NewStoreSource(ctx, stubLoader{}).Token()
		require.ErrorIs(t, err, inverrors.ErrNotAuthenticated)
	})

	t.Run("refresh only", func(t *testing.T) {
		_, err := token.NewStoreSource(ctx, stubLoader{pair: token.Pair{Refresh: "R1"}, ok: true}).Token()
		require.ErrorIs(t, err, inverrors.ErrNotAuthenticated)
	})

	t.Run("loader failure", func(t *testing.T) {
		boom := errors.New("disk on fire")
		_, err := token.NewStoreSource(ctx, stubLoader{err: boom}).Token()
		require.ErrorIs(t, err, boom)
	})
}
