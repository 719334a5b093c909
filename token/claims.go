package token

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

var ErrNotJWT = errors.New("token is not a JWT")

// Claims are the fields of a SimpleJWT-style access or refresh token that are useful to show
// the user. They are decoded without verifying the signature; the server remains the only
// authority on whether a token is valid.
type Claims struct {
	UserID    string    `json:"user_id,omitempty"`
	TokenType string    `json:"token_type,omitempty"`
	JTI       string    `json:"jti,omitempty"`
	IssuedAt  time.Time `json:"iat,omitempty"`
	ExpiresAt time.Time `json:"exp,omitempty"`
}

// Expired reports whether the exp claim is in the past. Tokens without exp never expire.
func (c *Claims) Expired() bool {
	if c == nil || c.ExpiresAt.IsZero() {
		return false
	}
	return NowTimeFunc().After(c.ExpiresAt)
}

// Remaining returns the time left before exp, or 0 when expired or unknown.
func (c *Claims) Remaining() time.Duration {
	if c == nil || c.ExpiresAt.IsZero() {
		return 0
	}
	d := c.ExpiresAt.Sub(NowTimeFunc())
	if d < 0 {
		return 0
	}
	return d
}

// ParseClaims decodes rawToken's payload without signature verification.
func ParseClaims(rawToken string) (*Claims, error) {
	if strings.Count(rawToken, ".") != 2 {
		return nil, ErrNotJWT
	}

	unverified, _, err := jwtlib.NewParser().ParseUnverified(rawToken, jwtlib.MapClaims{})
	if err != nil {
		return nil, fmt.Errorf("[token ParseClaims] %w: %v", ErrNotJWT, err)
	}

	mapClaims, ok := unverified.Claims.(jwtlib.MapClaims)
	if !ok {
		return nil, errors.New("[token ParseClaims] error extracting claims")
	}

	claims := &Claims{}
	claims.TokenType, _ = mapClaims["token_type"].(string)
	claims.JTI, _ = mapClaims["jti"].(string)
	claims.UserID = stringClaim(mapClaims["user_id"])
	if claims.UserID == "" {
		claims.UserID, _ = mapClaims.GetSubject()
	}
	if exp, err := mapClaims.GetExpirationTime(); err == nil && exp != nil {
		claims.ExpiresAt = exp.Time
	}
	if iat, err := mapClaims.GetIssuedAt(); err == nil && iat != nil {
		claims.IssuedAt = iat.Time
	}
	return claims, nil
}

// stringClaim renders user ids that may be encoded as JSON numbers or strings.
func stringClaim(v any) string {
	switch id := v.(type) {
	case string:
		return id
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64)
	case nil:
		return ""
	default:
		return fmt.Sprint(id)
	}
}
