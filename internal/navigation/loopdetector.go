package navigation

import (
	"sync"
	"time"
)

// LoopDetector counts redirect attempts per path and alternations between
// path pairs inside a rolling window, and trips once either crosses the
// threshold. A trip is terminal for the session: the root causes (divergent
// persisted state) are not locally recoverable, so the caller must force a
// logout rather than retry.
type LoopDetector struct {
	mu        sync.Mutex
	window    time.Duration
	threshold int
	now       func() time.Time

	attempts map[string]*redirectTracker
	history  []visit
}

// redirectTracker counts attempts on one path inside the active window.
// The count only grows within a window; a new window starts it over.
type redirectTracker struct {
	count       int
	windowStart time.Time
}

type visit struct {
	path string
	at   time.Time
}

// DetectorOption configures a LoopDetector.
type DetectorOption func(*LoopDetector)

// WithDetectorClock injects a clock for deterministic window tests.
func WithDetectorClock(now func() time.Time) DetectorOption {
	return func(d *LoopDetector) {
		if now != nil {
			d.now = now
		}
	}
}

// NewLoopDetector creates a detector. Defaults: 10s window, threshold 3.
func NewLoopDetector(window time.Duration, threshold int, opts ...DetectorOption) *LoopDetector {
	if window <= 0 {
		window = 10 * time.Second
	}
	if threshold <= 0 {
		threshold = 3
	}
	d := &LoopDetector{
		window:    window,
		threshold: threshold,
		now:       time.Now,
		attempts:  make(map[string]*redirectTracker),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// TrackAttempt records a redirect attempt toward path and reports whether a
// loop is suspected, either by repeated attempts on one path or by a
// ping-pong alternation in the recent navigation history.
func (d *LoopDetector) TrackAttempt(path string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	tracker := d.attempts[path]
	if tracker == nil || now.Sub(tracker.windowStart) > d.window {
		tracker = &redirectTracker{windowStart: now}
		d.attempts[path] = tracker
	}
	tracker.count++

	if tracker.count >= d.threshold {
		return true
	}
	return d.pingPongLocked(now)
}

// TrackNavigation records an executed navigation for ping-pong detection.
func (d *LoopDetector) TrackNavigation(path string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	now := d.now()
	d.history = append(d.history, visit{path: path, at: now})
	d.pruneLocked(now)
}

// Reset clears all tracking state, typically after a successful terminal
// navigation or logout.
func (d *LoopDetector) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.attempts = make(map[string]*redirectTracker)
	d.history = nil
}

func (d *LoopDetector) pruneLocked(now time.Time) {
	cutoff := now.Add(-d.window)
	i := 0
	for ; i < len(d.history); i++ {
		if d.history[i].at.After(cutoff) {
			break
		}
	}
	d.history = d.history[i:]
}

// pingPongLocked reports whether the tail of the navigation history
// alternates between exactly two paths at least threshold times.
func (d *LoopDetector) pingPongLocked(now time.Time) bool {
	d.pruneLocked(now)
	if len(d.history) < 2 {
		return false
	}

	a := d.history[len(d.history)-1].path
	b := d.history[len(d.history)-2].path
	if a == b {
		return false
	}

	flips := 0
	for i := len(d.history) - 1; i > 0; i-- {
		cur, prev := d.history[i].path, d.history[i-1].path
		if cur == prev {
			break
		}
		if (cur != a && cur != b) || (prev != a && prev != b) {
			break
		}
		flips++
	}
	return flips >= d.threshold
}
