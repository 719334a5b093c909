package apiclient

import (
	"context"
	"io"
	"net/http"

	"github.com/jrsteele09/go-inventory-client/internal/errors"
	"golang.org/x/oauth2"
)

// AuthFailureHandler is told when a refresh inside the retry path failed and the stored
// credentials were cleared. The CLI uses it to send the user back to login.
type AuthFailureHandler func(ctx context.Context, err error)

// refreshMiddleware retries a 401 once with a freshly minted access token. Token endpoint
// requests and requests that are already a retry are passed through. Without a stored refresh
// token the original 401 is returned and no refresh is attempted.
func (c *Client) refreshMiddleware(next Doer) Doer {
	return func(req *http.Request) (*http.Response, error) {
		resp, err := next(req)
		if err != nil || resp.StatusCode != http.StatusUnauthorized {
			return resp, err
		}
		ctx := req.Context()
		if isAuthRequest(ctx) || isRetried(ctx) {
			return resp, nil
		}

		pair, ok, loadErr := c.store.Load(ctx)
		if loadErr != nil {
			c.logger.Warn().Err(loadErr).Msg("loading refresh token")
			return resp, nil
		}
		if !ok || pair.Refresh == "" {
			return resp, nil
		}

		access, refreshErr := c.sharedRefresh(ctx, pair.Refresh)
		if refreshErr != nil {
			discard(resp)
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			c.authFailed(ctx, refreshErr)
			return nil, refreshErr
		}

		retry, replayErr := replay(req, access)
		if replayErr != nil {
			c.logger.Warn().Err(replayErr).Str("path", req.URL.Path).Msg("cannot retry request")
			return resp, nil
		}
		discard(resp)
		return next(retry)
	}
}

// sharedRefresh exchanges refresh for a new access token and stores it. Concurrent callers
// holding the same refresh token share one in-flight call. The shared call ignores the first
// caller's cancellation; each caller stops waiting when its own ctx is done.
func (c *Client) sharedRefresh(ctx context.Context, refresh string) (string, error) {
	ch := c.refreshGroup.DoChan(refresh, func() (any, error) {
		refreshCtx := context.WithoutCancel(ctx)
		access, err := c.RefreshToken(refreshCtx, refresh)
		if err != nil {
			return "", err
		}
		if err := c.store.SetAccess(refreshCtx, access); err != nil {
			return "", errors.Classify(errors.Wrapf(err, "[apiclient refresh] store access token"))
		}
		return access, nil
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Shared {
			c.logger.Debug().Msg("joined in-flight token refresh")
		}
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

// authFailed clears the stored credentials and notifies every handler.
func (c *Client) authFailed(ctx context.Context, cause error) {
	if err := c.store.Clear(ctx); err != nil {
		c.logger.Error().Err(err).Msg("clearing credentials after refresh failure")
	}

	c.mu.RLock()
	handlers := append([]AuthFailureHandler(nil), c.authFailureHandlers...)
	c.mu.RUnlock()
	for _, h := range handlers {
		h(ctx, cause)
	}
}

// replay rebuilds req for its single retry, carrying the new bearer token explicitly.
func replay(req *http.Request, access string) (*http.Request, error) {
	retry := req.Clone(withRetried(req.Context()))
	if req.Body != nil && req.Body != http.NoBody {
		if req.GetBody == nil {
			return nil, errors.New("request body cannot be replayed")
		}
		body, err := req.GetBody()
		if err != nil {
			return nil, errors.Wrapf(err, "[apiclient replay] get body")
		}
		retry.Body = body
	}
	(&oauth2.Token{AccessToken: access, TokenType: "Bearer"}).SetAuthHeader(retry)
	return retry, nil
}

func discard(resp *http.Response) {
	if resp == nil || resp.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}
