// Command demo wires the authentication core against simulated collaborators
// and drives a mount/logout scenario while serving metrics, health, and the
// recorded audit trail over HTTP. It exists to exercise the full wiring the
// way a host application would.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"authsync/internal/authstate"
	"authsync/internal/flow"
	"authsync/internal/logout"
	"authsync/internal/navigation"
	"authsync/internal/platform/config"
	"authsync/internal/platform/logger"
	"authsync/internal/platform/metrics"
	redisplatform "authsync/internal/platform/redis"
	"authsync/internal/ports"
	"authsync/internal/session"
	"authsync/internal/supervisor"
	"authsync/internal/verify"
	"authsync/internal/watchdog"
	"authsync/pkg/platform/audit"
	auditmem "authsync/pkg/platform/audit/store/memory"
	auditworker "authsync/pkg/platform/audit/worker"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New()

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// Durable store: redis when configured, in-memory otherwise.
	var durable session.KV = session.NewMemoryStore()
	var redisClient *redisplatform.Client
	if cfg.RedisURL != "" {
		client, err := redisplatform.New(cfg.RedisURL)
		if err != nil {
			log.Error("redis unavailable", "error", err)
			os.Exit(1)
		}
		redisClient = client
		defer client.Close()
		durable = session.NewRedisStore(client.Client)
		log.Info("using redis durable store")
	}
	ephemeral := session.NewMemoryStore()

	// Audit pipeline: publisher -> channel -> worker -> queryable store.
	auditStore := auditmem.NewInMemoryStore()
	inbox := make(chan audit.Event, 64)
	go func() {
		if err := auditworker.NewWorker(auditStore, inbox, log).Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("audit worker stopped", "error", err)
		}
	}()
	pub := audit.NewPublisher(chanSink{inbox: inbox}, log)

	sup := supervisor.New()
	bridge := session.NewBridge(durable, log, session.WithMaxAge(cfg.SessionMaxAge))
	flags := session.NewFlags(ephemeral, log)
	loops := navigation.NewLoopDetector(cfg.LoopWindow, cfg.LoopThreshold)

	service := &simulatedService{}
	wallet := &simulatedWallet{address: "0xA11CE00000000000000000000000000000000001", connected: true}
	reactive := newSimulatedStore()
	navigator := &simulatedNavigator{path: "/", log: log}
	notifier := &logNotifier{log: log}

	verifier := verify.New(verify.Deps{
		Strategy:   verify.PrimaryStrategy(service),
		Wallet:     wallet,
		Bridge:     bridge,
		Reactive:   reactive,
		Supervisor: sup,
		Audit:      pub,
		Metrics:    m,
		Logger:     log,
	},
		verify.WithTimeout(cfg.VerifyTimeout),
		verify.WithCache(verify.NewCache(cfg.CacheTTL)),
		verify.WithMaxAttempts(cfg.MaxAttempts),
	)

	coordinator := logout.New(logout.Deps{
		Wallet:     wallet,
		Reactive:   reactive,
		Navigator:  navigator,
		Bridge:     bridge,
		Flags:      flags,
		Supervisor: sup,
		Loops:      loops,
		Verifier:   verifier,
		Audit:      pub,
		Metrics:    m,
		Logger:     log,
	},
		logout.WithGrace(cfg.LogoutGrace),
		logout.WithNavConfirm(cfg.NavConfirm),
	)

	guard := navigation.NewGuard(loops, sup, notifier, pub, m, log)

	mounter := flow.New(flow.Deps{
		Verifier:   verifier,
		Guard:      guard,
		Logout:     coordinator,
		Watchdog:   watchdog.New(m, log),
		Bridge:     bridge,
		Flags:      flags,
		Reactive:   reactive,
		Navigator:  navigator,
		Notifier:   notifier,
		Supervisor: sup,
		Audit:      pub,
		Logger:     log,
	}, flow.WithWatchdogTimeout(cfg.WatchdogTimeout))

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	router.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if redisClient != nil {
			if err := redisClient.Health(r.Context()); err != nil {
				http.Error(w, "redis unreachable", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	router.Get("/audit", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(auditStore.Events())
	})
	router.Get("/location", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(navigator.Location()))
	})

	srv := &http.Server{Addr: cfg.MetricsAddr, Handler: router}
	go func() {
		log.Info("serving metrics and audit trail", "addr", cfg.MetricsAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "error", err)
			stop()
		}
	}()

	go runScenario(ctx, mounter, coordinator, navigator, log)

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
}

// runScenario walks the routes a real host would: public landing, protected
// entry before and after the simulated backend warms up, then a logout.
func runScenario(ctx context.Context, mounter *flow.Flow, coordinator *logout.Coordinator, navigator *simulatedNavigator, log *slog.Logger) {
	routes := []navigation.Route{
		navigation.PublicRoute("/"),
		// First protected entry hits the simulated cold start and degrades.
		navigation.ProtectedRoute("/datasets"),
		navigation.ProtectedRoute("/datasets"),
		// Admin-only route: the patient role gets a denial redirect.
		navigation.ProtectedRoute("/admin", authstate.RoleAdmin),
	}
	for _, route := range routes {
		select {
		case <-ctx.Done():
			return
		case <-time.After(2 * time.Second):
		}
		navigator.Set(route.Path)
		outcome := mounter.Mount(ctx, route)
		log.Info("mount finished",
			"route", route.Path,
			"status", outcome.Result.Status.String(),
			"location", navigator.Location(),
		)
	}

	select {
	case <-ctx.Done():
		return
	case <-time.After(2 * time.Second):
	}
	if err := coordinator.Run(ctx); err != nil {
		log.Info("logout finished with failed steps", "error", err)
	} else {
		log.Info("logout finished clean", "location", navigator.Location())
	}
}

// chanSink bridges the publisher to the worker's inbox without blocking the
// caller. A full inbox drops the event; the publisher's breaker sees the
// failure.
type chanSink struct {
	inbox chan<- audit.Event
}

func (s chanSink) Record(_ context.Context, event audit.Event) error {
	select {
	case s.inbox <- event:
		return nil
	default:
		return errors.New("audit inbox full")
	}
}

// simulatedService answers identity checks with artificial latency. The first
// call fails so the demo shows a degraded mount before a clean one.
type simulatedService struct {
	mu    sync.Mutex
	calls int
}

func (s *simulatedService) VerifyIdentity(ctx context.Context) (ports.IdentityResult, error) {
	s.mu.Lock()
	s.calls++
	call := s.calls
	s.mu.Unlock()

	delay := time.Duration(100+rand.Intn(400)) * time.Millisecond
	select {
	case <-ctx.Done():
		return ports.IdentityResult{}, ctx.Err()
	case <-time.After(delay):
	}

	if call == 1 {
		return ports.IdentityResult{}, errors.New("simulated backend cold start")
	}
	return ports.IdentityResult{
		IsAuthenticated:        true,
		IsRegistrationComplete: true,
		Role:                   authstate.RolePatient,
	}, nil
}

type simulatedWallet struct {
	mu        sync.Mutex
	address   string
	connected bool
}

func (w *simulatedWallet) Connection(context.Context) (string, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.address, w.connected
}

func (w *simulatedWallet) Disconnect(context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.connected = false
	return nil
}

// simulatedStore is a minimal reactive store: last write wins per action type.
type simulatedStore struct {
	mu     sync.RWMutex
	values map[string]any
}

func newSimulatedStore() *simulatedStore {
	return &simulatedStore{values: make(map[string]any)}
}

func (s *simulatedStore) Dispatch(action ports.Action) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch action.Type {
	case ports.ActionClearRole:
		delete(s.values, "role")
	case ports.ActionClearProfile:
		delete(s.values, "profile")
	case ports.ActionClearWallet:
		delete(s.values, "walletAddress")
	default:
		for k, v := range action.Payload {
			s.values[k] = v
		}
	}
}

func (s *simulatedStore) Select(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

type simulatedNavigator struct {
	mu   sync.Mutex
	path string
	log  *slog.Logger
}

func (n *simulatedNavigator) Go(path string, replace bool) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.path = path
	n.log.Info("navigated", "path", path, "replace", replace)
	return nil
}

func (n *simulatedNavigator) Location() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.path
}

func (n *simulatedNavigator) Reload() {
	n.log.Info("hard reload requested")
}

// Set positions the navigator without going through Go, mimicking the host
// router entering a route on its own.
func (n *simulatedNavigator) Set(path string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.path = path
}

type logNotifier struct {
	log *slog.Logger
}

func (n *logNotifier) Notify(level ports.NotificationLevel, message string) {
	n.log.Warn("notification", "level", string(level), "message", message)
}
