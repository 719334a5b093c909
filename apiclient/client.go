// Package apiclient is the single HTTP entry point to the inventory API. Every request runs
// through a fixed middleware pipeline: request id, tracing, logging, retry-once-on-401 and
// bearer token injection.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/jrsteele09/go-inventory-client/internal/errors"
	"github.com/jrsteele09/go-inventory-client/token"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"
)

const (
	tracerName       = "github.com/jrsteele09/go-inventory-client/apiclient"
	defaultUserAgent = "go-inventory-client/1.0"
	defaultTimeout   = 30 * time.Second
)

// CredentialStore is the part of the token store the client needs.
type CredentialStore interface {
	token.Loader
	SetAccess(ctx context.Context, access string) error
	Clear(ctx context.Context) error
}

type Client struct {
	baseURL   string
	http      *http.Client
	timeout   *time.Duration
	store     CredentialStore
	logger    zerolog.Logger
	tracer    trace.Tracer
	userAgent string
	colour    bool

	mu                  sync.RWMutex
	authFailureHandlers []AuthFailureHandler

	refreshGroup singleflight.Group
	pipeline     Doer
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithTimeout sets the per-request timeout. Zero disables it.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = &d
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithColour colours HTTP methods in request logs.
func WithColour(colour bool) Option {
	return func(c *Client) {
		c.colour = colour
	}
}

func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *Client) {
		c.tracer = tp.Tracer(tracerName)
	}
}

func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithAuthFailureHandler registers h to run after a failed refresh cleared the credentials.
func WithAuthFailureHandler(h AuthFailureHandler) Option {
	return func(c *Client) {
		c.authFailureHandlers = append(c.authFailureHandlers, h)
	}
}

// New creates a client for the API rooted at baseURL, e.g. http://localhost:8000/api.
func New(baseURL string, store CredentialStore, opts ...Option) *Client {
	c := &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		store:     store,
		logger:    zerolog.Nop(),
		tracer:    otel.GetTracerProvider().Tracer(tracerName),
		userAgent: defaultUserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.http == nil {
		c.http = &http.Client{
			Timeout: defaultTimeout,
			Transport: &http.Transport{
				Proxy:                 http.ProxyFromEnvironment,
				MaxIdleConnsPerHost:   10,
				IdleConnTimeout:       90 * time.Second,
				TLSHandshakeTimeout:   10 * time.Second,
				ExpectContinueTimeout: 1 * time.Second,
			},
		}
	}
	if c.timeout != nil {
		hc := *c.http
		hc.Timeout = *c.timeout
		c.http = &hc
	}

	c.pipeline = Chain(c.send,
		c.requestIDMiddleware,
		c.tracingMiddleware,
		c.loggingMiddleware,
		c.refreshMiddleware,
		c.bearerMiddleware,
	)
	return c
}

// BaseURL returns the API root without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// OnAuthFailure registers a handler after construction. Components built on top of the client,
// such as the session manager, use it to learn about failed refreshes.
func (c *Client) OnAuthFailure(h AuthFailureHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.authFailureHandlers = append(c.authFailureHandlers, h)
}

func (c *Client) send(req *http.Request) (*http.Response, error) {
	return c.http.Do(req)
}

// Do sends req through the pipeline. The response is returned as-is for any status; a request
// that received no response fails with a status-0 APIError, and a failed refresh fails with the
// refresh error.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	resp, err := c.pipeline(req)
	if err != nil {
		var apiErr *errors.APIError
		if errors.As(err, &apiErr) {
			return nil, apiErr
		}
		return nil, errors.ClassifyNetwork(err)
	}
	return resp, nil
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := c.baseURL + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body []byte, contentType string) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path, query), reader)
	if err != nil {
		return nil, errors.Classify(errors.Wrapf(err, "[apiclient newRequest] %s %s", method, path))
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	return req, nil
}

// call sends one request and decodes a 2xx JSON body into out. Every failure is returned as an
// *errors.APIError.
func (c *Client) call(ctx context.Context, method, path string, query url.Values, in any, out any) error {
	var body []byte
	contentType := ""
	if in != nil {
		var err error
		if body, err = json.Marshal(in); err != nil {
			return errors.Classify(errors.Wrapf(err, "[apiclient %s] encode request", method))
		}
		contentType = "application/json"
	}
	req, err := c.newRequest(ctx, method, path, query, body, contentType)
	if err != nil {
		return err
	}
	return c.roundTrip(req, out)
}

func (c *Client) roundTrip(req *http.Request, out any) error {
	resp, err := c.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.ClassifyNetwork(errors.Wrapf(err, "[apiclient] read response"))
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return errors.ClassifyHTTP(resp.StatusCode, b)
	}
	if out == nil || len(bytes.TrimSpace(b)) == 0 {
		return nil
	}
	if err := json.Unmarshal(b, out); err != nil {
		return errors.Classify(errors.Wrapf(err, "[apiclient] decode %s %s response", req.Method, req.URL.Path))
	}
	return nil
}
