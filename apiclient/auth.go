package apiclient

import (
	"context"
	"net/http"

	"github.com/jrsteele09/go-inventory-client/internal/errors"
	"github.com/jrsteele09/go-inventory-client/token"
)

// Token endpoint paths, relative to the base URL.
const (
	TokenPath        = "token/"
	TokenRefreshPath = "token/refresh/"
	TokenVerifyPath  = "token/verify/"
)

// ObtainToken exchanges a username and password for a credential pair. It does not store it.
func (c *Client) ObtainToken(ctx context.Context, creds token.Credentials) (token.Pair, error) {
	var pair token.Pair
	if err := c.call(withAuthRequest(ctx), http.MethodPost, TokenPath, nil, creds, &pair); err != nil {
		return token.Pair{}, err
	}
	if !pair.Complete() {
		return token.Pair{}, errors.Classify(errors.Wrapf(errors.ErrInvalidCredential, "[apiclient ObtainToken] response missing access or refresh token"))
	}
	return pair, nil
}

// RefreshToken mints a new access token. The refresh token is not rotated.
func (c *Client) RefreshToken(ctx context.Context, refresh string) (string, error) {
	var resp token.RefreshResponse
	if err := c.call(withAuthRequest(ctx), http.MethodPost, TokenRefreshPath, nil, token.RefreshRequest{Refresh: refresh}, &resp); err != nil {
		return "", err
	}
	if resp.Access == "" {
		return "", errors.Classify(errors.Wrapf(errors.ErrInvalidCredential, "[apiclient RefreshToken] response missing access token"))
	}
	return resp.Access, nil
}

// VerifyToken asks the server whether access is still valid.
func (c *Client) VerifyToken(ctx context.Context, access string) error {
	return c.call(withAuthRequest(ctx), http.MethodPost, TokenVerifyPath, nil, token.VerifyRequest{Token: access}, nil)
}
