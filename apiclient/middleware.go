package apiclient

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-inventory-client/internal/errors"
	"github.com/jrsteele09/go-inventory-client/token"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// RequestIDHeader carries a per-request correlation id.
const RequestIDHeader = "X-Request-ID"

// Doer sends a single request.
type Doer func(*http.Request) (*http.Response, error)

// Middleware wraps a Doer.
type Middleware func(Doer) Doer

// Chain wraps d so that mw[0] is the outermost middleware.
func Chain(d Doer, mw ...Middleware) Doer {
	chained := d
	// Apply middleware in reverse order
	for i := len(mw) - 1; i >= 0; i-- {
		chained = mw[i](chained)
	}
	return chained
}

func (c *Client) requestIDMiddleware(next Doer) Doer {
	return func(req *http.Request) (*http.Response, error) {
		if req.Header.Get(RequestIDHeader) != "" {
			return next(req)
		}
		req = req.Clone(req.Context())
		req.Header.Set(RequestIDHeader, uuid.NewString())
		return next(req)
	}
}

func (c *Client) tracingMiddleware(next Doer) Doer {
	return func(req *http.Request) (*http.Response, error) {
		ctx, span := c.tracer.Start(req.Context(), "HTTP "+req.Method,
			trace.WithSpanKind(trace.SpanKindClient),
			trace.WithAttributes(
				attribute.String("http.request.method", req.Method),
				attribute.String("url.path", req.URL.Path),
				attribute.String("http.request_id", req.Header.Get(RequestIDHeader)),
				attribute.Bool("inventory.auth_request", isAuthRequest(req.Context())),
			),
		)
		defer span.End()

		resp, err := next(req.WithContext(ctx))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return resp, err
		}
		span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))
		if resp.StatusCode >= http.StatusBadRequest {
			span.SetStatus(codes.Error, http.StatusText(resp.StatusCode))
		}
		return resp, nil
	}
}

func (c *Client) loggingMiddleware(next Doer) Doer {
	return func(req *http.Request) (*http.Response, error) {
		start := time.Now()
		resp, err := next(req)

		event := c.logger.Debug()
		if err != nil {
			event = event.Err(err)
		} else {
			event = event.Int("status", resp.StatusCode)
		}
		event.
			Str("method", displayMethod(req.Method, c.colour)).
			Str("path", req.URL.Path).
			Str("request_id", req.Header.Get(RequestIDHeader)).
			Dur("elapsed", time.Since(start)).
			Msg("api request")
		return resp, err
	}
}

// bearerMiddleware attaches the stored access token, read at send time. Requests that already
// carry an Authorization header and token endpoint requests pass through unchanged; a missing
// token sends the request anonymously.
func (c *Client) bearerMiddleware(next Doer) Doer {
	return func(req *http.Request) (*http.Response, error) {
		if isAuthRequest(req.Context()) || req.Header.Get("Authorization") != "" {
			return next(req)
		}

		tok, err := token.NewStoreSource(req.Context(), c.store).Token()
		if err != nil {
			if !errors.Is(err, errors.ErrNotAuthenticated) {
				c.logger.Warn().Err(err).Msg("reading access token")
			}
			return next(req)
		}
		req = req.Clone(req.Context())
		tok.SetAuthHeader(req)
		return next(req)
	}
}
