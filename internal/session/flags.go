package session

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"authsync/pkg/platform/sentinel"
)

// SessionFlags is the single typed record consolidating what used to be ad hoc
// string-keyed flags scattered across the ephemeral store. One read/write
// surface means key names cannot diverge between writers.
type SessionFlags struct {
	// ReconnectArmed survives logout so the next login attempt can offer
	// wallet reconnection.
	ReconnectArmed bool `json:"reconnectArmed"`
	// LastLoginPath is the route to return to after a successful login.
	LastLoginPath string `json:"lastLoginPath,omitempty"`
	// WatchdogTripped records that the last mount was force-terminated, so
	// the next one can surface a diagnostic.
	WatchdogTripped bool `json:"watchdogTripped,omitempty"`
}

// Flags reads and writes SessionFlags on the ephemeral store.
type Flags struct {
	ephemeral KV
	logger    *slog.Logger
}

func NewFlags(ephemeral KV, logger *slog.Logger) *Flags {
	return &Flags{ephemeral: ephemeral, logger: logger}
}

// Load returns the current flags. Any read or decode failure is treated as an
// empty record; flags are hints, never ground truth.
func (f *Flags) Load(ctx context.Context) SessionFlags {
	raw, err := f.ephemeral.Get(ctx, KeyFlags)
	if err != nil {
		if !errors.Is(err, sentinel.ErrNotFound) {
			f.logger.Warn("ephemeral store read failed, treating flags as empty", "error", err)
		}
		return SessionFlags{}
	}
	var flags SessionFlags
	if err := json.Unmarshal([]byte(raw), &flags); err != nil {
		f.logger.Warn("discarding undecodable session flags", "error", err)
		return SessionFlags{}
	}
	return flags
}

func (f *Flags) Store(ctx context.Context, flags SessionFlags) error {
	raw, err := json.Marshal(flags)
	if err != nil {
		return err
	}
	return f.ephemeral.Set(ctx, KeyFlags, string(raw))
}

// ResetForLogout clears the ephemeral store but re-arms the flags the next
// login attempt needs.
func (f *Flags) ResetForLogout(ctx context.Context) error {
	prev := f.Load(ctx)
	if err := f.ephemeral.Clear(ctx); err != nil {
		return err
	}
	if !prev.ReconnectArmed {
		return nil
	}
	return f.Store(ctx, SessionFlags{ReconnectArmed: true})
}
