package verify

import "sync/atomic"

// Guard is the mutually exclusive in-flight flag for verification. TryAcquire
// is set before a verification call begins; Release is idempotent and must be
// called from every exit path, so callers defer it immediately on acquire.
type Guard struct {
	held atomic.Bool
}

func NewGuard() *Guard {
	return &Guard{}
}

// TryAcquire attempts to take the flag. Returns false if already held, in
// which case the caller treats verification as in progress and does not
// present an error.
func (g *Guard) TryAcquire() bool {
	return g.held.CompareAndSwap(false, true)
}

// Release clears the flag. Idempotent.
func (g *Guard) Release() {
	g.held.Store(false)
}

// Held reports whether a verification is in flight.
func (g *Guard) Held() bool {
	return g.held.Load()
}
