// Package watchdog bounds the whole mount sequence with a global timer. If
// verification plus redirection has not reached a terminal state within the
// budget, the watchdog forces a degraded outcome and lets rendering proceed:
// a possibly-wrong screen beats a permanent spinner.
package watchdog

import (
	"log/slog"
	"sync"
	"time"

	"authsync/internal/platform/metrics"
)

type Watchdog struct {
	mu      sync.Mutex
	timer   *time.Timer
	armed   bool
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func New(m *metrics.Metrics, logger *slog.Logger) *Watchdog {
	return &Watchdog{metrics: m, logger: logger}
}

// Arm starts (or restarts) the timer. onTrip fires once if Disarm is not
// called within the timeout.
func (w *Watchdog) Arm(timeout time.Duration, onTrip func()) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.armed = true
	w.timer = time.AfterFunc(timeout, func() {
		w.mu.Lock()
		if !w.armed {
			w.mu.Unlock()
			return
		}
		w.armed = false
		w.mu.Unlock()

		w.metrics.WatchdogTrips.Inc()
		w.logger.Warn("watchdog tripped, forcing sequence termination", "timeout", timeout)
		onTrip()
	})
}

// Disarm cancels the timer. Idempotent; safe to call after a trip.
func (w *Watchdog) Disarm() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.armed = false
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
}

// Armed reports whether the watchdog is currently counting down.
func (w *Watchdog) Armed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.armed
}
