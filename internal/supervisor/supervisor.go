// Package supervisor holds the explicit shared state that coordinates the
// authentication core's components: the logout flag and the verification
// attempt counter. It replaces ambient module-level flags with one record
// passed by reference into each constructor.
package supervisor

import "sync/atomic"

// Context is the process-wide supervisor state. A single instance is created
// at wiring time and shared by every component.
//
// Lifecycle: Begin() opens a mount/verification sequence and End() closes it.
// BeginLogout()/EndLogout() bracket a logout sequence; while the logout flag
// is set every component short-circuits its own logic.
type Context struct {
	sequenceActive atomic.Bool
	logoutActive   atomic.Bool
	attempts       atomic.Int32
}

func New() *Context {
	return &Context{}
}

// Begin marks the start of a mount sequence. Returns false if one is already
// active.
func (c *Context) Begin() bool {
	return c.sequenceActive.CompareAndSwap(false, true)
}

// End closes the current mount sequence. Idempotent.
func (c *Context) End() {
	c.sequenceActive.Store(false)
}

// BeginLogout sets the logout flag. Returns false if a logout is already in
// progress, so overlapping triggers (user click + loop breaker) collapse into
// one teardown.
func (c *Context) BeginLogout() bool {
	return c.logoutActive.CompareAndSwap(false, true)
}

// EndLogout clears the logout flag. Idempotent; called only after the
// terminal navigation has been issued and the grace delay elapsed.
func (c *Context) EndLogout() {
	c.logoutActive.Store(false)
}

// LogoutActive reports whether a logout sequence is in progress.
func (c *Context) LogoutActive() bool {
	return c.logoutActive.Load()
}

// RecordFailure increments the consecutive verification failure counter and
// returns the new count.
func (c *Context) RecordFailure() int {
	return int(c.attempts.Add(1))
}

// ResetAttempts clears the failure counter after a successful verification.
func (c *Context) ResetAttempts() {
	c.attempts.Store(0)
}

// Attempts returns the current consecutive failure count.
func (c *Context) Attempts() int {
	return int(c.attempts.Load())
}
