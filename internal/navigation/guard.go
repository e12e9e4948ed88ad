// Package navigation computes the canonical redirect for the current
// AuthState and supervises redirect frequency through the loop detector.
package navigation

import (
	"context"
	"log/slog"

	"authsync/internal/authstate"
	"authsync/internal/platform/metrics"
	"authsync/internal/ports"
	"authsync/internal/supervisor"
	"authsync/pkg/platform/audit"
)

// Action tells the caller whether to render or redirect.
type Action int

const (
	ActionStay Action = iota
	ActionRedirect
)

// Decision is the guard's verdict for one route entry. ForceLogout marks the
// terminal breaker case: the caller must run the logout coordinator instead
// of retrying the redirect.
type Decision struct {
	Action      Action
	Target      string
	Reason      string
	ForceLogout bool
}

// Guard is the navigation state machine over AuthState.
type Guard struct {
	loops    *LoopDetector
	sup      *supervisor.Context
	notifier ports.Notifier
	audit    *audit.Publisher
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

func NewGuard(
	loops *LoopDetector,
	sup *supervisor.Context,
	notifier ports.Notifier,
	auditPub *audit.Publisher,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Guard {
	return &Guard{
		loops:    loops,
		sup:      sup,
		notifier: notifier,
		audit:    auditPub,
		metrics:  m,
		logger:   logger,
	}
}

// Decide evaluates the state machine for one route entry:
//
//	not authenticated                      -> /login
//	authenticated, new user               -> /register
//	registered, no role                   -> /select-role
//	role not in the route's allowed set   -> /dashboard (+ denial notice)
//	otherwise                             -> stay
//
// The logout flag overrides every branch. Every computed redirect is reported
// to the loop detector before being returned; a trip converts the decision
// into a forced logout.
func (g *Guard) Decide(ctx context.Context, state authstate.AuthState, route Route) Decision {
	if g.sup.LogoutActive() {
		return Decision{Action: ActionRedirect, Target: PathLogin, Reason: "logout in progress"}
	}

	g.loops.TrackNavigation(route.Path)

	target, reason, denied := g.target(state, route)
	if target == "" || target == route.Path {
		return Decision{Action: ActionStay}
	}

	if denied {
		g.notifier.Notify(ports.NotifyWarning, "you do not have access to that page")
		g.audit.Emit(ctx, audit.Event{
			Name:    audit.EventAccessDenied,
			Path:    route.Path,
			Reason:  reason,
			Outcome: "redirected",
		})
	}

	if g.loops.TrackAttempt(target) {
		g.metrics.LoopTrips.Inc()
		g.logger.Error("redirect loop suspected, forcing logout",
			"route", route.Path,
			"target", target,
		)
		g.notifier.Notify(ports.NotifyError, "something went wrong with your session, signing you out")
		g.audit.Emit(ctx, audit.Event{
			Name:   audit.EventLoopDetected,
			Path:   route.Path,
			Reason: "redirect threshold exceeded",
		})
		return Decision{
			Action:      ActionRedirect,
			Target:      PathLogin,
			Reason:      "redirect loop detected",
			ForceLogout: true,
		}
	}

	return Decision{Action: ActionRedirect, Target: target, Reason: reason}
}

// target returns the canonical destination, or "" to stay. denied marks a
// role mismatch, which carries a user-visible notification.
func (g *Guard) target(state authstate.AuthState, route Route) (target, reason string, denied bool) {
	if !route.RequiresAuth {
		return "", "", false
	}
	if !state.IsAuthenticated {
		return PathLogin, "not authenticated", false
	}
	if state.IsNewUser || !state.IsRegistrationComplete {
		return PathRegister, "registration incomplete", false
	}
	if !state.HasRole() {
		return PathSelectRole, "no role selected", false
	}
	if !route.allows(state.Role) {
		return PathDashboard, "role not permitted on route", true
	}
	return "", "", false
}
