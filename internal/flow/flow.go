// Package flow runs the mount sequence: restore an optimistic session,
// verify identity, decide navigation, and execute the redirect. The whole
// sequence runs under the watchdog so a hung collaborator can never leave the
// caller without a terminal outcome.
package flow

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"authsync/internal/authstate"
	"authsync/internal/logout"
	"authsync/internal/navigation"
	"authsync/internal/ports"
	"authsync/internal/session"
	"authsync/internal/supervisor"
	"authsync/internal/verify"
	"authsync/internal/watchdog"
	domainerrors "authsync/pkg/domain-errors"
	"authsync/pkg/platform/audit"
	"authsync/pkg/requestcontext"
)

// Deps are the flow's collaborators, injected at wiring time.
type Deps struct {
	Verifier   *verify.Verifier
	Guard      *navigation.Guard
	Logout     *logout.Coordinator
	Watchdog   *watchdog.Watchdog
	Bridge     *session.Bridge
	Flags      *session.Flags
	Reactive   ports.ReactiveStore
	Navigator  ports.Navigator
	Notifier   ports.Notifier
	Supervisor *supervisor.Context
	Audit      *audit.Publisher
	Logger     *slog.Logger
}

// Outcome is what a completed mount hands back to the caller: the verified
// (possibly degraded) state and the navigation verdict that was executed.
type Outcome struct {
	Result   verify.Result
	Decision navigation.Decision
	// Watchdogged marks a mount that was force-terminated by the watchdog.
	Watchdogged bool
}

// Flow orchestrates one mount sequence at a time.
type Flow struct {
	deps            Deps
	watchdogTimeout time.Duration
	tracer          trace.Tracer
}

// Option configures a Flow.
type Option func(*Flow)

// WithWatchdogTimeout overrides the whole-sequence budget (default 7s). It
// must exceed the verifier's per-call budget or every mount degrades.
func WithWatchdogTimeout(d time.Duration) Option {
	return func(f *Flow) {
		if d > 0 {
			f.watchdogTimeout = d
		}
	}
}

func New(deps Deps, opts ...Option) *Flow {
	f := &Flow{
		deps:            deps,
		watchdogTimeout: 7 * time.Second,
		tracer:          otel.Tracer("authsync/flow"),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Mount runs the sequence for one route entry:
//
//  1. restore the persisted session into an optimistic first-paint state
//  2. verify identity (cached, single-flighted, raced against its budget)
//  3. decide and execute the navigation for the verified state
//
// The watchdog brackets steps 1-3; a trip cancels the in-flight verification
// and forces a degraded render. Overlapping mounts collapse: a second Mount
// while one is running returns a stay decision immediately.
func (f *Flow) Mount(ctx context.Context, route navigation.Route) Outcome {
	if !f.deps.Supervisor.Begin() {
		f.deps.Logger.Debug("mount already in progress, ignoring", "route", route.Path)
		return Outcome{Result: verify.Result{Status: verify.StatusPending}}
	}
	defer f.deps.Supervisor.End()

	// One correlation ID per cycle; every audit event downstream carries it.
	ctx = requestcontext.WithRequestID(ctx, uuid.NewString())
	ctx = requestcontext.WithRoutePath(ctx, route.Path)

	ctx, span := f.tracer.Start(ctx, "flow.mount",
		trace.WithAttributes(attribute.String("route", route.Path)))
	defer span.End()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var tripped atomic.Bool
	f.deps.Watchdog.Arm(f.watchdogTimeout, func() {
		tripped.Store(true)
		f.onWatchdogTrip(ctx, route)
		cancel()
	})
	defer f.deps.Watchdog.Disarm()

	if persisted := f.restore(ctx); persisted != nil {
		ctx = requestcontext.WithWalletAddress(ctx, persisted.WalletAddress)
	}

	result := f.deps.Verifier.Verify(ctx, verify.VerifyOptions{})
	f.deps.Watchdog.Disarm()

	if tripped.Load() {
		span.SetAttributes(attribute.Bool("watchdogged", true))
		result.State = authstate.Degraded(authstate.ErrorWatchdog)
		result.Status = verify.StatusFailed
	}

	if domainerrors.HasCode(result.Err, domainerrors.CodeTooManyAttempts) {
		f.deps.Notifier.Notify(ports.NotifyError, "we could not verify your session, signing you out")
		f.forceLogout(route)
		return Outcome{
			Result:      result,
			Decision:    navigation.Decision{Action: navigation.ActionRedirect, Target: navigation.PathLogin, ForceLogout: true},
			Watchdogged: tripped.Load(),
		}
	}

	decision := f.deps.Guard.Decide(ctx, result.State, route)
	if decision.ForceLogout {
		f.forceLogout(route)
		return Outcome{Result: result, Decision: decision, Watchdogged: tripped.Load()}
	}

	if decision.Action == navigation.ActionRedirect {
		if err := f.deps.Navigator.Go(decision.Target, true); err != nil {
			f.deps.Logger.Error("redirect failed", "target", decision.Target, "error", err)
		}
	}

	return Outcome{Result: result, Decision: decision, Watchdogged: tripped.Load()}
}

// restore seeds an optimistic first-paint state from the persisted session
// and returns it. Failures never block the mount; the verifier's answer
// overrides whatever is seeded here.
func (f *Flow) restore(ctx context.Context) *session.PersistedSession {
	persisted, err := f.deps.Bridge.Restore(ctx)
	if err != nil {
		f.deps.Logger.Warn("session restore failed", "error", err)
		return nil
	}
	if persisted == nil {
		return nil
	}

	state := authstate.Optimistic(persisted.WalletAddress, persisted.Role)
	f.deps.Reactive.Dispatch(ports.Action{
		Type: ports.ActionSetSeeded,
		Payload: map[string]any{
			"authenticated": state.IsAuthenticated,
			"role":          string(state.Role),
			"walletAddress": state.WalletAddress,
		},
	})
	f.deps.Audit.Emit(ctx, audit.Event{
		Name:          audit.EventSessionRestored,
		WalletAddress: persisted.WalletAddress,
		Outcome:       "seeded",
	})
	f.deps.Logger.Info("seeded optimistic state from persisted session",
		"wallet", persisted.WalletAddress)
	return persisted
}

// onWatchdogTrip runs on the timer goroutine. It projects the degraded state
// so the UI stops spinning, then the cancel in Arm's callback unwinds the
// in-flight verification.
func (f *Flow) onWatchdogTrip(ctx context.Context, route navigation.Route) {
	state := authstate.Degraded(authstate.ErrorWatchdog)
	f.deps.Reactive.Dispatch(ports.Action{
		Type: ports.ActionSetAuthState,
		Payload: map[string]any{
			"authenticated": false,
			"error":         string(state.Error),
		},
	})
	f.deps.Notifier.Notify(ports.NotifyWarning, "verification is taking longer than expected")
	f.deps.Audit.Emit(ctx, audit.Event{
		Name: audit.EventWatchdogTripped,
		Path: route.Path,
	})

	flags := f.deps.Flags.Load(ctx)
	flags.WatchdogTripped = true
	if err := f.deps.Flags.Store(ctx, flags); err != nil {
		f.deps.Logger.Warn("failed to record watchdog trip flag", "error", err)
	}
}

// forceLogout runs the teardown on a fresh context: the mount's context may
// already be cancelled, and teardown must not be interrupted by it.
func (f *Flow) forceLogout(route navigation.Route) {
	ctx := context.Background()
	if err := f.deps.Logout.Run(ctx); err != nil {
		f.deps.Logger.Warn("forced logout finished with failed steps",
			"route", route.Path, "error", err)
	}
}
