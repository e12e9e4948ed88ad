package navigation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newTestDetector(t *testing.T) (*LoopDetector, *time.Time) {
	t.Helper()
	now := time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)
	d := NewLoopDetector(10*time.Second, 3, WithDetectorClock(func() time.Time { return now }))
	return d, &now
}

func TestSamePathTripsOnThirdAttempt(t *testing.T) {
	d, _ := newTestDetector(t)
	assert.False(t, d.TrackAttempt(PathLogin))
	assert.False(t, d.TrackAttempt(PathLogin))
	assert.True(t, d.TrackAttempt(PathLogin))
}

func TestWindowExpiryResetsCount(t *testing.T) {
	d, now := newTestDetector(t)
	assert.False(t, d.TrackAttempt(PathLogin))
	assert.False(t, d.TrackAttempt(PathLogin))

	*now = now.Add(11 * time.Second)
	assert.False(t, d.TrackAttempt(PathLogin), "a fresh window starts the count over")
	assert.False(t, d.TrackAttempt(PathLogin))
	assert.True(t, d.TrackAttempt(PathLogin))
}

func TestDistinctPathsTrackedIndependently(t *testing.T) {
	d, _ := newTestDetector(t)
	assert.False(t, d.TrackAttempt(PathLogin))
	assert.False(t, d.TrackAttempt(PathRegister))
	assert.False(t, d.TrackAttempt(PathLogin))
	assert.False(t, d.TrackAttempt(PathRegister))
}

func TestPingPongNavigationTrips(t *testing.T) {
	d, _ := newTestDetector(t)

	// role-selection <-> dashboard alternating three times.
	d.TrackNavigation(PathSelectRole)
	d.TrackNavigation(PathDashboard)
	d.TrackNavigation(PathSelectRole)
	d.TrackNavigation(PathDashboard)

	assert.True(t, d.TrackAttempt(PathSelectRole))
}

func TestPingPongOutsideWindowDoesNotTrip(t *testing.T) {
	d, now := newTestDetector(t)
	d.TrackNavigation(PathSelectRole)
	d.TrackNavigation(PathDashboard)

	*now = now.Add(11 * time.Second)
	d.TrackNavigation(PathSelectRole)
	d.TrackNavigation(PathDashboard)

	assert.False(t, d.TrackAttempt(PathSelectRole))
}

func TestThreeDistinctPathsAreNotAPingPong(t *testing.T) {
	d, _ := newTestDetector(t)
	d.TrackNavigation(PathSelectRole)
	d.TrackNavigation(PathDashboard)
	d.TrackNavigation(PathRegister)
	d.TrackNavigation(PathDashboard)

	assert.False(t, d.TrackAttempt(PathSelectRole))
}

func TestReset(t *testing.T) {
	d, _ := newTestDetector(t)
	d.TrackAttempt(PathLogin)
	d.TrackAttempt(PathLogin)
	d.Reset()
	assert.False(t, d.TrackAttempt(PathLogin))
	assert.False(t, d.TrackAttempt(PathLogin))
}
