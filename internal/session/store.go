// Package session owns the durable and ephemeral store surfaces and the
// bridge that reconciles the persisted session with verification results.
package session

import "context"

// Store keys. Every key this core writes lives here so logout can prove the
// stores are empty afterwards; scattering string keys across call sites is
// how the loop bugs this core guards against were born.
const (
	KeySession = "authsync:session"
	KeyFlags   = "authsync:flags"
)

// KV is the generic key-value surface of both the durable store (survives
// restarts) and the ephemeral store (scoped to the current session). No
// transactional guarantees. Missing keys return sentinel.ErrNotFound.
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}
