package audit

import "time"

// EventName identifies what happened. Names are stable strings because the
// sink is an external collaborator that may index on them.
type EventName string

const (
	EventVerificationSucceeded EventName = "verification_succeeded"
	EventVerificationFailed    EventName = "verification_failed"
	EventTooManyAttempts       EventName = "verification_too_many_attempts"
	EventLoopDetected          EventName = "navigation_loop_detected"
	EventAccessDenied          EventName = "route_access_denied"
	EventWatchdogTripped       EventName = "watchdog_tripped"
	EventLogoutStarted         EventName = "logout_started"
	EventLogoutCompleted       EventName = "logout_completed"
	EventSessionRestored       EventName = "session_restored"
	EventSessionDiscarded      EventName = "session_discarded_stale"
)

// Event is emitted from the orchestration core to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	ID            string
	Name          EventName
	Timestamp     time.Time
	RequestID     string
	WalletAddress string
	Path          string
	Outcome       string
	Reason        string
	Attempt       int
}
