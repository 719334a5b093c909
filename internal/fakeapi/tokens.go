package fakeapi

import (
	"net/http"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"

	invalidTokenDetail = "Token is invalid or expired"
)

// tokenClaims mirrors the SimpleJWT payload plus a generation used to revoke tokens.
type tokenClaims struct {
	TokenType  string `json:"token_type"`
	UserID     int64  `json:"user_id"`
	Generation int64  `json:"gen"`
	jwtlib.RegisteredClaims
}

func (s *Server) mint(u user, tokenType string, gen int64, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := tokenClaims{
		TokenType:  tokenType,
		UserID:     u.id,
		Generation: gen,
		RegisteredClaims: jwtlib.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   u.username,
			IssuedAt:  jwtlib.NewNumericDate(now),
			ExpiresAt: jwtlib.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(s.secret)
}

// parseLocked verifies signature, expiry, type and generation. Callers hold s.mu.
func (s *Server) parseLocked(raw, tokenType string) (*tokenClaims, bool) {
	claims := &tokenClaims{}
	_, err := jwtlib.ParseWithClaims(raw, claims, func(*jwtlib.Token) (any, error) {
		return s.secret, nil
	}, jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, false
	}
	if tokenType != "" && claims.TokenType != tokenType {
		return nil, false
	}
	switch claims.TokenType {
	case tokenTypeAccess:
		if claims.Generation != s.accessGen {
			return nil, false
		}
	case tokenTypeRefresh:
		if claims.Generation != s.refreshGen {
			return nil, false
		}
	default:
		return nil, false
	}
	return claims, true
}

func (s *Server) obtainToken(c *gin.Context) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Username == "" || req.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"username": []string{"This field is required."}, "password": []string{"This field is required."}})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.authenticate(req.Username, req.Password)
	if !ok {
		detail(c, http.StatusUnauthorized, "No active account found with the given credentials")
		return
	}
	access, err := s.mint(u, tokenTypeAccess, s.accessGen, s.accessTTL)
	if err != nil {
		detail(c, http.StatusInternalServerError, err.Error())
		return
	}
	refresh, err := s.mint(u, tokenTypeRefresh, s.refreshGen, s.refreshTTL)
	if err != nil {
		detail(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"access": access, "refresh": refresh})
}

// refreshToken mints a new access token. The refresh token is not rotated.
func (s *Server) refreshToken(c *gin.Context) {
	var req struct {
		Refresh string `json:"refresh"`
	}
	_ = c.ShouldBindJSON(&req)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshCalls++
	if req.Refresh == "" {
		c.JSON(http.StatusBadRequest, gin.H{"refresh": []string{"This field is required."}})
		return
	}
	claims, ok := s.parseLocked(req.Refresh, tokenTypeRefresh)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": invalidTokenDetail, "code": "token_not_valid"})
		return
	}
	u, ok := s.userByID(claims.UserID)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": invalidTokenDetail, "code": "token_not_valid"})
		return
	}
	access, err := s.mint(u, tokenTypeAccess, s.accessGen, s.accessTTL)
	if err != nil {
		detail(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"access": access})
}

func (s *Server) verifyToken(c *gin.Context) {
	var req struct {
		Token string `json:"token"`
	}
	_ = c.ShouldBindJSON(&req)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.parseLocked(req.Token, ""); !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": invalidTokenDetail, "code": "token_not_valid"})
		return
	}
	c.JSON(http.StatusOK, gin.H{})
}

func (s *Server) requireAccess(c *gin.Context) {
	raw, found := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
	if !found || raw == "" {
		detail(c, http.StatusUnauthorized, "Authentication credentials were not provided.")
		return
	}

	s.mu.Lock()
	claims, ok := s.parseLocked(raw, tokenTypeAccess)
	var u user
	if ok {
		u, ok = s.userByID(claims.UserID)
	}
	s.mu.Unlock()

	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"detail": "Given token not valid for any token type",
			"code":   "token_not_valid",
		})
		return
	}
	c.Set("user", u)
	c.Next()
}
