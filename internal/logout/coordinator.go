// Package logout tears down every authentication trace in a fixed order:
// reactive projection, wallet link, durable store, ephemeral flags, then the
// terminal navigation to the login route. Each step is best-effort; a failed
// step is logged and counted but never blocks the steps after it, so a broken
// wallet extension cannot leave a half-authenticated session behind.
package logout

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"authsync/internal/navigation"
	"authsync/internal/platform/metrics"
	"authsync/internal/ports"
	"authsync/internal/session"
	"authsync/internal/supervisor"
	domainerrors "authsync/pkg/domain-errors"
	"authsync/pkg/platform/audit"
)

// cacheInvalidator drops the verifier's memoized result so a login after
// logout cannot be answered from a stale cache entry.
type cacheInvalidator interface {
	InvalidateCache()
}

// Deps are the coordinator's collaborators, injected at wiring time.
type Deps struct {
	Wallet     ports.WalletConnector
	Reactive   ports.ReactiveStore
	Navigator  ports.Navigator
	Bridge     *session.Bridge
	Flags      *session.Flags
	Supervisor *supervisor.Context
	Loops      *navigation.LoopDetector
	Verifier   cacheInvalidator
	Audit      *audit.Publisher
	Metrics    *metrics.Metrics
	Logger     *slog.Logger
}

// Coordinator runs the logout sequence. Overlapping triggers (user action,
// loop breaker, too-many-attempts escalation) collapse into one run through
// the supervisor's logout flag.
type Coordinator struct {
	deps       Deps
	grace      time.Duration
	navConfirm time.Duration
	sleep      func(time.Duration)
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithGrace overrides how long the logout flag stays set after the terminal
// navigation (default 1s). The delay absorbs route-change echoes that would
// otherwise re-trigger verification mid-teardown.
func WithGrace(d time.Duration) Option {
	return func(c *Coordinator) {
		if d >= 0 {
			c.grace = d
		}
	}
}

// WithNavConfirm overrides how long to wait before checking that the terminal
// navigation took effect (default 1s).
func WithNavConfirm(d time.Duration) Option {
	return func(c *Coordinator) {
		if d >= 0 {
			c.navConfirm = d
		}
	}
}

// WithSleep injects the wait primitive (tests pass a recorder).
func WithSleep(sleep func(time.Duration)) Option {
	return func(c *Coordinator) {
		if sleep != nil {
			c.sleep = sleep
		}
	}
}

func New(deps Deps, opts ...Option) *Coordinator {
	c := &Coordinator{
		deps:       deps,
		grace:      time.Second,
		navConfirm: time.Second,
		sleep:      time.Sleep,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run executes the teardown. Returns the joined errors of any failed steps;
// a non-nil error still means every step was attempted and the terminal
// navigation was issued. Returns nil immediately when a logout is already in
// progress.
func (c *Coordinator) Run(ctx context.Context) error {
	if !c.deps.Supervisor.BeginLogout() {
		c.deps.Logger.Info("logout already in progress, ignoring trigger")
		return nil
	}

	c.deps.Audit.Emit(ctx, audit.Event{Name: audit.EventLogoutStarted})
	c.deps.Logger.Info("logout sequence started")

	var failures []error
	step := func(name string, fn func() error) {
		if err := fn(); err != nil {
			c.deps.Metrics.LogoutStepFailures.Inc()
			c.deps.Logger.Warn("logout step failed, continuing", "step", name, "error", err)
			failures = append(failures, domainerrors.Wrap(err, domainerrors.CodeLogoutStep, name))
		}
	}

	// In-memory traces first: nothing observable may render an authenticated
	// state once the flag is up.
	c.deps.Reactive.Dispatch(ports.Action{Type: ports.ActionClearRole})
	c.deps.Reactive.Dispatch(ports.Action{Type: ports.ActionClearProfile})
	c.deps.Reactive.Dispatch(ports.Action{Type: ports.ActionClearWallet})
	if c.deps.Verifier != nil {
		c.deps.Verifier.InvalidateCache()
	}
	if c.deps.Loops != nil {
		c.deps.Loops.Reset()
	}

	step("wallet disconnect", func() error {
		return c.deps.Wallet.Disconnect(ctx)
	})
	step("durable session clear", func() error {
		return c.deps.Bridge.Clear(ctx)
	})
	step("ephemeral flags reset", func() error {
		return c.deps.Flags.ResetForLogout(ctx)
	})

	c.deps.Audit.Emit(ctx, audit.Event{
		Name:    audit.EventLogoutCompleted,
		Outcome: outcome(failures),
	})

	step("terminal navigation", func() error {
		return c.deps.Navigator.Go(navigation.PathLogin, true)
	})

	// Confirm the redirect landed; a navigation swallowed by the host gets the
	// hard reload fallback.
	c.sleep(c.navConfirm)
	if c.deps.Navigator.Location() != navigation.PathLogin {
		c.deps.Logger.Warn("terminal navigation did not take effect, reloading",
			"location", c.deps.Navigator.Location())
		c.deps.Navigator.Reload()
	}

	c.sleep(c.grace)
	c.deps.Supervisor.EndLogout()
	c.deps.Logger.Info("logout sequence finished", "failed_steps", len(failures))

	return errors.Join(failures...)
}

func outcome(failures []error) string {
	if len(failures) == 0 {
		return "clean"
	}
	return "partial"
}
