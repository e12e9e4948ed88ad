// Package ports declares the external collaborators of the authentication
// core. The core orchestrates when and how often these are called; it owns
// none of them.
package ports

import (
	"context"

	"authsync/internal/authstate"
)

// IdentityResult is the raw answer from the verification service before it is
// normalized into an AuthState.
type IdentityResult struct {
	IsAuthenticated        bool
	IsNewUser              bool
	IsRegistrationComplete bool
	Role                   authstate.Role
}

// VerificationService is the external ground truth for identity. Calls may
// hang; the core races every call against its timeout budget.
type VerificationService interface {
	VerifyIdentity(ctx context.Context) (IdentityResult, error)
}

// WalletConnector exposes the wallet connection status and teardown.
type WalletConnector interface {
	// Connection returns the connected wallet address, if any.
	Connection(ctx context.Context) (address string, connected bool)
	// Disconnect tears down the wallet link. Failures are non-fatal to logout.
	Disconnect(ctx context.Context) error
}

// ActionType identifies a reactive store mutation.
type ActionType string

const (
	ActionSetAuthState ActionType = "auth/set"
	ActionSetSeeded    ActionType = "auth/seed"
	ActionClearRole    ActionType = "role/clear"
	ActionClearProfile ActionType = "profile/clear"
	ActionClearWallet  ActionType = "wallet/clear"
)

// Action is a reactive store mutation. Payload keys are action-specific.
type Action struct {
	Type    ActionType
	Payload map[string]any
}

// ReactiveStore is the external in-memory projection the UI renders from.
// The core dispatches into it but never owns its contents.
type ReactiveStore interface {
	Dispatch(action Action)
	Select(key string) (any, bool)
}

// Navigator executes route changes. Location reports the current path so the
// logout coordinator can confirm its terminal navigation took effect; Reload
// is the hard escape hatch when it did not.
type Navigator interface {
	Go(path string, replace bool) error
	Location() string
	Reload()
}

// NotificationLevel grades user-visible notifications.
type NotificationLevel string

const (
	NotifyInfo    NotificationLevel = "info"
	NotifyWarning NotificationLevel = "warning"
	NotifyError   NotificationLevel = "error"
)

// Notifier surfaces the few user-visible messages this core emits: route
// denials, loop/too-many-attempts escalations, and the watchdog warning.
type Notifier interface {
	Notify(level NotificationLevel, message string)
}
