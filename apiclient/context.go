package apiclient

import "context"

type contextKey int

const (
	authRequestKey contextKey = iota
	retriedKey
)

// withAuthRequest marks requests to the token endpoints. They are sent without a bearer token
// and a 401 from them is never refreshed.
func withAuthRequest(ctx context.Context) context.Context {
	return context.WithValue(ctx, authRequestKey, true)
}

func isAuthRequest(ctx context.Context) bool {
	v, _ := ctx.Value(authRequestKey).(bool)
	return v
}

func withRetried(ctx context.Context) context.Context {
	return context.WithValue(ctx, retriedKey, true)
}

// isRetried reports whether the request is already the single retry of a 401.
func isRetried(ctx context.Context) bool {
	v, _ := ctx.Value(retriedKey).(bool)
	return v
}
