package config

import (
	"os"
	"strconv"
	"time"
)

// Config captures the timeout budgets and wiring knobs of the authentication
// core. All budgets have defaults matching the production behavior; env vars
// override them so the demo binary and soak tests can tighten or relax them.
type Config struct {
	// VerifyTimeout bounds a single call to the verification collaborator.
	VerifyTimeout time.Duration
	// WatchdogTimeout bounds the whole mount sequence (verify + redirect).
	WatchdogTimeout time.Duration
	// CacheTTL bounds staleness of the memoized verification result.
	CacheTTL time.Duration
	// LoopWindow is the rolling window for redirect loop detection.
	LoopWindow time.Duration
	// LoopThreshold is the attempt count within LoopWindow that trips the breaker.
	LoopThreshold int
	// MaxAttempts is the consecutive-failure count that forces /login.
	MaxAttempts int
	// SessionMaxAge is how long a persisted session stays restorable.
	SessionMaxAge time.Duration
	// LogoutGrace is how long the logout flag outlives the terminal navigation.
	LogoutGrace time.Duration
	// NavConfirm is how long to wait for the router before a hard reload.
	NavConfirm time.Duration

	// RedisURL selects the redis-backed durable store when non-empty.
	RedisURL string
	// MetricsAddr is where the demo binary serves /metrics.
	MetricsAddr string
}

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() Config {
	return Config{
		VerifyTimeout:   durationEnv("AUTHSYNC_VERIFY_TIMEOUT", 5*time.Second),
		WatchdogTimeout: durationEnv("AUTHSYNC_WATCHDOG_TIMEOUT", 7*time.Second),
		CacheTTL:        durationEnv("AUTHSYNC_CACHE_TTL", 5*time.Second),
		LoopWindow:      durationEnv("AUTHSYNC_LOOP_WINDOW", 10*time.Second),
		LoopThreshold:   intEnv("AUTHSYNC_LOOP_THRESHOLD", 3),
		MaxAttempts:     intEnv("AUTHSYNC_MAX_ATTEMPTS", 3),
		SessionMaxAge:   durationEnv("AUTHSYNC_SESSION_MAX_AGE", 24*time.Hour),
		LogoutGrace:     durationEnv("AUTHSYNC_LOGOUT_GRACE", time.Second),
		NavConfirm:      durationEnv("AUTHSYNC_NAV_CONFIRM", time.Second),
		RedisURL:        os.Getenv("AUTHSYNC_REDIS_URL"),
		MetricsAddr:     stringEnv("AUTHSYNC_METRICS_ADDR", ":9097"),
	}
}

func stringEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func intEnv(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
