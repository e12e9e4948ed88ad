// Package requestcontext provides context accessors for values scoped to one
// mount/verification cycle.
//
// Values are set by whatever drives the cycle (the flow coordinator, a test)
// and consumed by services. Keeping this package free of transport
// dependencies lets every component import only what it needs.
//
// Usage in services (read values):
//
//	now := requestcontext.Now(ctx)
//	requestID := requestcontext.RequestID(ctx)
//
// Usage in tests (inject values):
//
//	ctx = requestcontext.WithTime(ctx, fixedTime)
package requestcontext

import (
	"context"
	"time"
)

// Context key types (unexported for encapsulation).
type (
	requestIDKey     struct{}
	requestTimeKey   struct{}
	walletAddressKey struct{}
	routePathKey     struct{}
)

// RequestID retrieves the correlation ID for the current cycle.
func RequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return ""
}

// WithRequestID injects a correlation ID into the context.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// Now retrieves the cycle-scoped time from context.
// Falls back to time.Now() if not set (workers, tests that don't care).
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(requestTimeKey{}).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime injects a specific time into a context. Useful for deterministic
// staleness checks in tests.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, requestTimeKey{}, t)
}

// WalletAddress retrieves the wallet address attached to the current cycle.
func WalletAddress(ctx context.Context) string {
	if addr, ok := ctx.Value(walletAddressKey{}).(string); ok {
		return addr
	}
	return ""
}

// WithWalletAddress injects a wallet address into the context.
func WithWalletAddress(ctx context.Context, addr string) context.Context {
	return context.WithValue(ctx, walletAddressKey{}, addr)
}

// RoutePath retrieves the route being evaluated in the current cycle.
func RoutePath(ctx context.Context) string {
	if p, ok := ctx.Value(routePathKey{}).(string); ok {
		return p
	}
	return ""
}

// WithRoutePath injects the evaluated route into the context.
func WithRoutePath(ctx context.Context, path string) context.Context {
	return context.WithValue(ctx, routePathKey{}, path)
}
