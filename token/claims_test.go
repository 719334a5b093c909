package token_test

import (
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/go-inventory-client/token"
	"github.com/stretchr/testify/require"
)

func signedToken(t *testing.T, claims jwtlib.MapClaims) string {
	t.Helper()
	raw, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return raw
}

func TestParseClaims(t *testing.T) {
	now := time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)
	token.NowTimeFunc = func() time.Time { return now }
	t.Cleanup(func() { token.NowTimeFunc = time.Now })

	t.Run("simplejwt access token", func(t *testing.T) {
		raw := signedToken(t, jwtlib.MapClaims{
			"token_type": "access",
			"user_id":    42,
			"jti":        "abc123",
			"iat":        now.Add(-time.Minute).Unix(),
			"exp":        now.Add(4 * time.Minute).Unix(),
		})

		claims, err := token.ParseClaims(raw)
		require.NoError(t, err)
		require.Equal(t, "42", claims.UserID)
		require.Equal(t, "access", claims.TokenType)
		require.Equal(t, "abc123", claims.JTI)
		require.False(t, claims.Expired())
		require.Equal(t, 4*time.Minute, claims.Remaining())
	})

	t.Run("subject fallback and expired", func(t *testing.T) {
		raw := signedToken(t, jwtlib.MapClaims{
			"sub": "user-7",
			"exp": now.Add(-time.Second).Unix(),
		})

		claims, err := token.ParseClaims(raw)
		require.NoError(t, err)
		require.Equal(t, "user-7", claims.UserID)
		require.True(t, claims.Expired())
		require.Zero(t, claims.Remaining())
	})

	t.Run("opaque token", func(t *testing.T) {
		_, err := token.ParseClaims("T1")
		require.ErrorIs(t, err, token.ErrNotJWT)
	})

	t.Run("garbage segments", func(t *testing.T) {
		_, err := token.ParseClaims("a.b.c")
		require.ErrorIs(t, err, token.ErrNotJWT)
	})
}

func TestPair(t *testing.T) {
	require.True(t, token.Pair{}.IsZero())
	require.True(t, token.Pair{Access: "T1"}.HasAccess())
	require.False(t, token.Pair{Access: "T1"}.Complete())
	require.True(t, token.Pair{Access: "T1", Refresh: "R1"}.Complete())

	creds := token.Credentials{Username: "a", Password: "b"}
	require.NotContains(t, creds.String(), "b}")
}
