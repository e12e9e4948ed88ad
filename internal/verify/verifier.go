// Package verify owns the identity verification pipeline: the TTL cache, the
// single-flight guard, and the verifier that reconciles the external
// collaborator's answer into an AuthState.
package verify

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"authsync/internal/authstate"
	"authsync/internal/platform/metrics"
	"authsync/internal/ports"
	"authsync/internal/session"
	"authsync/internal/supervisor"
	domainerrors "authsync/pkg/domain-errors"
	"authsync/pkg/platform/audit"
)

const flightKey = "identity"

// Status is the three-state outcome of a Verify call. Pending is not an
// error: another verification is in flight and the caller should wait for the
// next cache refresh rather than show a banner.
type Status int

const (
	StatusReady Status = iota
	StatusPending
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusFailed:
		return "failed"
	}
	return "ready"
}

// Result carries the verification outcome. State is always a valid AuthState
// (possibly degraded); Err is set only when Status is StatusFailed.
type Result struct {
	Status Status
	State  authstate.AuthState
	Err    error
}

// VerifyOptions tunes a single Verify call.
type VerifyOptions struct {
	// Force bypasses the cache and joins (or starts) a flight even while one
	// is in progress, sharing its result.
	Force bool
}

// Deps are the verifier's collaborators, injected at wiring time.
type Deps struct {
	Strategy   Strategy
	Wallet     ports.WalletConnector
	Bridge     *session.Bridge
	Reactive   ports.ReactiveStore
	Supervisor *supervisor.Context
	Audit      *audit.Publisher
	Metrics    *metrics.Metrics
	Logger     *slog.Logger
}

// Verifier orchestrates verification: cache, guard, raced collaborator call,
// reconciliation into the session bridge and the reactive store. It is the
// sole owner of AuthState; everything else reads.
type Verifier struct {
	strategy    Strategy
	wallet      ports.WalletConnector
	bridge      *session.Bridge
	reactive    ports.ReactiveStore
	sup         *supervisor.Context
	audit       *audit.Publisher
	metrics     *metrics.Metrics
	logger      *slog.Logger
	tracer      trace.Tracer
	cache       *Cache
	guard       *Guard
	flights     singleflight.Group
	timeout     time.Duration
	maxAttempts int
}

// Option configures a Verifier.
type Option func(*Verifier)

// WithTimeout overrides the per-call budget for the collaborator (default 5s).
func WithTimeout(d time.Duration) Option {
	return func(v *Verifier) {
		if d > 0 {
			v.timeout = d
		}
	}
}

// WithCache replaces the internally constructed cache (tests inject clocks).
func WithCache(c *Cache) Option {
	return func(v *Verifier) {
		if c != nil {
			v.cache = c
		}
	}
}

// WithMaxAttempts overrides the consecutive-failure budget (default 3).
func WithMaxAttempts(n int) Option {
	return func(v *Verifier) {
		if n > 0 {
			v.maxAttempts = n
		}
	}
}

func New(deps Deps, opts ...Option) *Verifier {
	v := &Verifier{
		strategy:    deps.Strategy,
		wallet:      deps.Wallet,
		bridge:      deps.Bridge,
		reactive:    deps.Reactive,
		sup:         deps.Supervisor,
		audit:       deps.Audit,
		metrics:     deps.Metrics,
		logger:      deps.Logger,
		tracer:      otel.Tracer("authsync/verify"),
		cache:       NewCache(5 * time.Second),
		guard:       NewGuard(),
		timeout:     5 * time.Second,
		maxAttempts: 3,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// InvalidateCache drops the memoized result. Called by the logout coordinator
// and on forced re-verification after registration changes.
func (v *Verifier) InvalidateCache() {
	v.cache.Invalidate()
}

// Verify produces the current AuthState.
//
// Algorithm: (1) cache unless forced; (2) if a flight is already in progress
// and the call is not forced, report Pending without blocking; (3) otherwise
// run one flight under the guard, racing the collaborator against the timeout
// budget; (4) on success populate the cache, reconcile the durable store, and
// project into the reactive store; (5) on failure return a degraded state;
// (6) the guard is released on every exit path. Concurrent callers of one
// flight share its result.
func (v *Verifier) Verify(ctx context.Context, opts VerifyOptions) Result {
	if v.sup.LogoutActive() {
		// Teardown owns the stores; report the signed-out state untouched.
		return Result{Status: StatusReady, State: authstate.AuthState{}}
	}

	ctx, span := v.tracer.Start(ctx, "verify.identity",
		trace.WithAttributes(
			attribute.String("strategy", v.strategy.Kind().String()),
			attribute.Bool("force", opts.Force),
		))
	defer span.End()

	if !opts.Force {
		if state, ok := v.cache.Get(); ok {
			v.metrics.CacheHits.Inc()
			span.SetAttributes(attribute.Bool("cache_hit", true))
			return Result{Status: StatusReady, State: state}
		}
		v.metrics.CacheMisses.Inc()
		if v.guard.Held() {
			v.metrics.Verifications.WithLabelValues("pending").Inc()
			return Result{Status: StatusPending}
		}
	}

	value, _, shared := v.flights.Do(flightKey, func() (any, error) {
		if !v.guard.TryAcquire() {
			// A forced caller raced an existing flight that is not going
			// through singleflight anymore; treat as in progress.
			return Result{Status: StatusPending}, nil
		}
		defer v.guard.Release()
		return v.performVerification(ctx), nil
	})

	result := value.(Result)
	if shared {
		span.SetAttributes(attribute.Bool("shared_flight", true))
	}
	return result
}

func (v *Verifier) performVerification(ctx context.Context) Result {
	start := time.Now()
	defer func() {
		v.metrics.VerifyDuration.Observe(float64(time.Since(start).Milliseconds()))
	}()

	identity, err := race(ctx, v.timeout, v.strategy.Verify, v.logger)
	if err != nil {
		return v.degrade(ctx, err)
	}

	v.sup.ResetAttempts()

	state := authstate.AuthState{
		IsAuthenticated:        identity.IsAuthenticated,
		IsNewUser:              identity.IsNewUser,
		IsRegistrationComplete: identity.IsRegistrationComplete,
		Role:                   identity.Role,
	}
	if addr, connected := v.wallet.Connection(ctx); connected {
		state.WalletAddress = addr
	}

	v.cache.Put(state, 0)

	// The collaborator's answer always wins over the durable store; failing
	// to write it back degrades nothing.
	if err := v.bridge.Persist(ctx, state); err != nil {
		v.logger.Warn("failed to persist verified session", "error", err)
	}
	v.project(state)

	v.metrics.Verifications.WithLabelValues("ready").Inc()
	v.audit.Emit(ctx, audit.Event{
		Name:          audit.EventVerificationSucceeded,
		WalletAddress: state.WalletAddress,
		Outcome:       "ready",
	})
	return Result{Status: StatusReady, State: state}
}

// degrade maps a verification failure to a fail-safe result. After
// maxAttempts consecutive failures the result escalates to TooManyAttempts,
// which the caller must answer with a forced logout.
func (v *Verifier) degrade(ctx context.Context, cause error) Result {
	attempts := v.sup.RecordFailure()

	kind := authstate.ErrorFailed
	outcome := "failed"
	if domainerrors.HasCode(cause, domainerrors.CodeVerificationTimeout) {
		kind = authstate.ErrorTimeout
		outcome = "timeout"
	}
	v.metrics.Verifications.WithLabelValues(outcome).Inc()
	v.audit.Emit(ctx, audit.Event{
		Name:    audit.EventVerificationFailed,
		Outcome: outcome,
		Reason:  cause.Error(),
		Attempt: attempts,
	})

	if attempts >= v.maxAttempts {
		v.audit.Emit(ctx, audit.Event{
			Name:    audit.EventTooManyAttempts,
			Attempt: attempts,
		})
		state := authstate.Degraded(authstate.ErrorTooManyAttempts)
		v.project(state)
		return Result{
			Status: StatusFailed,
			State:  state,
			Err:    domainerrors.Wrap(cause, domainerrors.CodeTooManyAttempts, "verification failed repeatedly"),
		}
	}

	state := authstate.Degraded(kind)
	v.project(state)
	return Result{Status: StatusFailed, State: state, Err: cause}
}

// project pushes the AuthState into the reactive store for rendering.
func (v *Verifier) project(state authstate.AuthState) {
	v.reactive.Dispatch(ports.Action{
		Type: ports.ActionSetAuthState,
		Payload: map[string]any{
			"authenticated":        state.IsAuthenticated,
			"newUser":              state.IsNewUser,
			"registrationComplete": state.IsRegistrationComplete,
			"role":                 string(state.Role),
			"walletAddress":        state.WalletAddress,
			"error":                string(state.Error),
		},
	})
}
