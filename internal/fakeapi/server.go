// Package fakeapi is an in-process stand-in for the inventory REST API. It issues real HS256
// JWTs, enforces bearer authentication and keeps every resource in memory, so tests can drive
// the client end to end.
package fakeapi

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// Resources served under /api/<name>/.
var Resources = []string{"categories", "suppliers", "products", "stock-movements", "sales"}

type Server struct {
	mu sync.Mutex

	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	users      map[string]user

	// Bumping a generation invalidates every token minted before it.
	accessGen  int64
	refreshGen int64

	records map[string]map[int64]record
	nextID  map[string]int64

	refreshCalls int
	requests     map[string]int

	engine *gin.Engine
}

// Option configures a Server.
type Option func(*Server)

// WithUser adds an account accepted by POST /token/.
func WithUser(username, password string) Option {
	return func(s *Server) {
		s.addUser(username, password)
	}
}

func WithSecret(secret string) Option {
	return func(s *Server) {
		s.secret = []byte(secret)
	}
}

func WithAccessTTL(ttl time.Duration) Option {
	return func(s *Server) {
		s.accessTTL = ttl
	}
}

func WithRefreshTTL(ttl time.Duration) Option {
	return func(s *Server) {
		s.refreshTTL = ttl
	}
}

// New creates a fake API. Without WithUser it accepts admin/admin.
func New(opts ...Option) *Server {
	s := &Server{
		secret:     []byte("fakeapi-secret"),
		accessTTL:  15 * time.Minute,
		refreshTTL: 24 * time.Hour,
		users:      map[string]user{},
		records:    map[string]map[int64]record{},
		nextID:     map[string]int64{},
		requests:   map[string]int{},
	}
	for _, r := range Resources {
		s.records[r] = map[int64]record{}
	}
	for _, opt := range opts {
		opt(s)
	}
	if len(s.users) == 0 {
		WithUser("admin", "admin")(s)
	}
	s.engine = s.routes()
	return s
}

// Handler returns the gin engine serving /api.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start serves the API on a local port until the returned server is closed. The base URL is
// server.URL + "/api".
func (s *Server) Start() *httptest.Server {
	return httptest.NewServer(s.engine)
}

func (s *Server) routes() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(gin.Recovery(), s.countRequests)

	api := r.Group("/api")
	api.POST("/token/", s.obtainToken)
	api.POST("/token/refresh/", s.refreshToken)
	api.POST("/token/verify/", s.verifyToken)

	authed := api.Group("", s.requireAccess)
	authed.GET("/dashboard/", s.dashboard)
	authed.GET("/dashboard/analytics/", s.analytics)
	authed.GET("/products/low_stock/", s.lowStock)
	for _, name := range Resources {
		authed.GET("/"+name+"/", s.list(name))
		authed.POST("/"+name+"/", s.create(name))
		authed.GET("/"+name+"/:id/", s.get(name))
		authed.PUT("/"+name+"/:id/", s.update(name, false))
		authed.PATCH("/"+name+"/:id/", s.update(name, true))
		authed.DELETE("/"+name+"/:id/", s.remove(name))
	}
	return r
}

func (s *Server) countRequests(c *gin.Context) {
	s.mu.Lock()
	s.requests[c.Request.Method+" "+c.Request.URL.Path]++
	s.mu.Unlock()
	c.Next()
}

// Requests returns how many times "METHOD /api/path/" was hit.
func (s *Server) Requests(methodAndPath string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[methodAndPath]
}

// RefreshCalls returns how many refresh requests were received.
func (s *Server) RefreshCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshCalls
}

// ExpireAccessTokens rejects every access token issued so far, forcing clients to refresh.
func (s *Server) ExpireAccessTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accessGen++
}

// RevokeRefreshTokens rejects every refresh token issued so far.
func (s *Server) RevokeRefreshTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshGen++
}

func detail(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"detail": msg})
}
