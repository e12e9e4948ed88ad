package session

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"authsync/internal/authstate"
	"authsync/pkg/platform/sentinel"
	"authsync/pkg/requestcontext"
)

// PersistedSession is the durable store record that survives restarts. It is
// written on successful verification, read once at startup to seed an
// optimistic AuthState, and erased on logout or expiry.
type PersistedSession struct {
	WalletAddress string         `json:"walletAddress"`
	Role          authstate.Role `json:"role,omitempty"`
	// SessionToken, when present, carries the expiry as a JWT exp claim. The
	// claim is decoded without signature verification: the client only needs
	// the timestamp, trust comes from the verification collaborator.
	SessionToken  string    `json:"sessionToken,omitempty"`
	TokenExpiry   time.Time `json:"tokenExpiry"`
	LastConnected time.Time `json:"lastConnected"`
}

// Bridge reconciles the durable store with verification results. Restoration
// never blocks verification; it only seeds a first-paint state that the
// verifier's result always overrides.
type Bridge struct {
	durable KV
	logger  *slog.Logger
	maxAge  time.Duration
}

// BridgeOption configures a Bridge.
type BridgeOption func(*Bridge)

// WithMaxAge overrides how long a persisted session stays restorable.
func WithMaxAge(d time.Duration) BridgeOption {
	return func(b *Bridge) {
		if d > 0 {
			b.maxAge = d
		}
	}
}

func NewBridge(durable KV, logger *slog.Logger, opts ...BridgeOption) *Bridge {
	b := &Bridge{
		durable: durable,
		logger:  logger,
		maxAge:  24 * time.Hour,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Restore reads the persisted session and validates its staleness. Returns
// nil when there is nothing restorable: missing record, unreadable store,
// undecodable record, expired token, or a last connection older than the max
// age. Stale records are erased on the way out.
func (b *Bridge) Restore(ctx context.Context) (*PersistedSession, error) {
	raw, err := b.durable.Get(ctx, KeySession)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, nil
		}
		// Storage read errors are recovered by treating the store as empty.
		b.logger.Warn("durable store read failed, treating session as absent", "error", err)
		return nil, nil
	}

	var persisted PersistedSession
	if err := json.Unmarshal([]byte(raw), &persisted); err != nil {
		b.logger.Warn("discarding undecodable persisted session", "error", err)
		return nil, b.erase(ctx)
	}

	now := requestcontext.Now(ctx)
	expiry := persisted.TokenExpiry
	if claim, ok := tokenExpiry(persisted.SessionToken); ok {
		expiry = claim
	}

	if !expiry.IsZero() && now.After(expiry) {
		b.logger.Info("persisted session token expired", "expiry", expiry)
		return nil, b.erase(ctx)
	}
	if persisted.LastConnected.IsZero() || now.Sub(persisted.LastConnected) > b.maxAge {
		b.logger.Info("persisted session too old", "last_connected", persisted.LastConnected)
		return nil, b.erase(ctx)
	}

	return &persisted, nil
}

// Persist writes the durable record for a verified state. Unauthenticated
// states persist nothing; there is nothing trustworthy to keep.
func (b *Bridge) Persist(ctx context.Context, state authstate.AuthState) error {
	if !state.IsAuthenticated {
		return nil
	}
	now := requestcontext.Now(ctx)
	record := PersistedSession{
		WalletAddress: state.WalletAddress,
		TokenExpiry:   now.Add(b.maxAge),
		LastConnected: now,
	}
	if state.HasRole() {
		record.Role = state.Role
	}
	raw, err := json.Marshal(record)
	if err != nil {
		return err
	}
	return b.durable.Set(ctx, KeySession, string(raw))
}

// Clear erases the persisted session.
func (b *Bridge) Clear(ctx context.Context) error {
	return b.erase(ctx)
}

func (b *Bridge) erase(ctx context.Context) error {
	if err := b.durable.Remove(ctx, KeySession); err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return err
	}
	return nil
}

// tokenExpiry extracts the exp claim from a JWT without verifying its
// signature. Returns false when the token is absent or carries no usable exp.
func tokenExpiry(token string) (time.Time, bool) {
	if token == "" {
		return time.Time{}, false
	}
	parser := jwt.NewParser()
	claims := jwt.RegisteredClaims{}
	if _, _, err := parser.ParseUnverified(token, &claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}
