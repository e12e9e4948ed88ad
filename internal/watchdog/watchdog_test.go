package watchdog

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"

	"authsync/internal/platform/metrics"
)

func newTestWatchdog() *Watchdog {
	return New(
		metrics.New(prometheus.NewRegistry()),
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
}

func TestWatchdogTrips(t *testing.T) {
	w := newTestWatchdog()
	tripped := make(chan struct{})

	w.Arm(20*time.Millisecond, func() { close(tripped) })

	select {
	case <-tripped:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("watchdog did not trip within the budget")
	}
	assert.False(t, w.Armed())
}

func TestDisarmPreventsTrip(t *testing.T) {
	w := newTestWatchdog()
	tripped := make(chan struct{})

	w.Arm(30*time.Millisecond, func() { close(tripped) })
	w.Disarm()

	select {
	case <-tripped:
		t.Fatal("watchdog tripped after disarm")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestRearmRestartsTheTimer(t *testing.T) {
	w := newTestWatchdog()
	first := make(chan struct{})
	second := make(chan struct{})

	w.Arm(time.Hour, func() { close(first) })
	w.Arm(20*time.Millisecond, func() { close(second) })

	select {
	case <-first:
		t.Fatal("replaced timer must never fire")
	case <-second:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("re-armed watchdog did not trip")
	}
}

func TestDisarmIsIdempotent(t *testing.T) {
	w := newTestWatchdog()
	w.Disarm()
	w.Arm(time.Hour, func() {})
	w.Disarm()
	w.Disarm()
	assert.False(t, w.Armed())
}
