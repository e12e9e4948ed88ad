package verify_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"authsync/internal/authstate"
	"authsync/internal/platform/metrics"
	"authsync/internal/ports"
	"authsync/internal/session"
	"authsync/internal/supervisor"
	"authsync/internal/verify"
	"authsync/mocks"
	domainerrors "authsync/pkg/domain-errors"
	"authsync/pkg/platform/audit"
	auditmem "authsync/pkg/platform/audit/store/memory"
)

type recordingStore struct {
	mu      sync.Mutex
	actions []ports.Action
}

func (r *recordingStore) Dispatch(action ports.Action) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actions = append(r.actions, action)
}

func (r *recordingStore) Select(string) (any, bool) { return nil, false }

func (r *recordingStore) last() (ports.Action, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.actions) == 0 {
		return ports.Action{}, false
	}
	return r.actions[len(r.actions)-1], true
}

type VerifierSuite struct {
	suite.Suite
	ctrl     *gomock.Controller
	service  *mocks.MockVerificationService
	wallet   *mocks.MockWalletConnector
	reactive *recordingStore
	durable  *session.MemoryStore
	sup      *supervisor.Context
	sink     *auditmem.InMemoryStore
	logger   *slog.Logger
}

func TestVerifierSuite(t *testing.T) {
	suite.Run(t, new(VerifierSuite))
}

func (s *VerifierSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.service = mocks.NewMockVerificationService(s.ctrl)
	s.wallet = mocks.NewMockWalletConnector(s.ctrl)
	s.reactive = &recordingStore{}
	s.durable = session.NewMemoryStore()
	s.sup = supervisor.New()
	s.sink = auditmem.NewInMemoryStore()
	s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
}

func (s *VerifierSuite) newVerifier(opts ...verify.Option) *verify.Verifier {
	deps := verify.Deps{
		Strategy:   verify.PrimaryStrategy(s.service),
		Wallet:     s.wallet,
		Bridge:     session.NewBridge(s.durable, s.logger),
		Reactive:   s.reactive,
		Supervisor: s.sup,
		Audit:      audit.NewPublisher(s.sink, s.logger),
		Metrics:    metrics.New(prometheus.NewRegistry()),
		Logger:     s.logger,
	}
	return verify.New(deps, opts...)
}

func (s *VerifierSuite) TestSuccessfulVerification() {
	s.service.EXPECT().VerifyIdentity(gomock.Any()).Return(ports.IdentityResult{
		IsAuthenticated:        true,
		IsRegistrationComplete: true,
		Role:                   authstate.RolePatient,
	}, nil)
	s.wallet.EXPECT().Connection(gomock.Any()).Return("0xabc", true)

	v := s.newVerifier()
	result := v.Verify(context.Background(), verify.VerifyOptions{})

	s.Equal(verify.StatusReady, result.Status)
	s.Require().NoError(result.Err)
	s.True(result.State.IsAuthenticated)
	s.Equal(authstate.RolePatient, result.State.Role)
	s.Equal("0xabc", result.State.WalletAddress)

	// Reconciled into the durable store.
	s.Equal(1, s.durable.Len())

	// Projected into the reactive store.
	action, ok := s.reactive.last()
	s.Require().True(ok)
	s.Equal(ports.ActionSetAuthState, action.Type)
	s.Equal(true, action.Payload["authenticated"])

	// Audited.
	s.Len(s.sink.ByName(audit.EventVerificationSucceeded), 1)
}

func (s *VerifierSuite) TestCacheCollapsesBurst() {
	// Two sequential calls within the TTL invoke the collaborator once.
	s.service.EXPECT().VerifyIdentity(gomock.Any()).Return(ports.IdentityResult{
		IsAuthenticated: true,
	}, nil).Times(1)
	s.wallet.EXPECT().Connection(gomock.Any()).Return("", false).Times(1)

	v := s.newVerifier()
	first := v.Verify(context.Background(), verify.VerifyOptions{})
	second := v.Verify(context.Background(), verify.VerifyOptions{})

	s.Equal(verify.StatusReady, first.Status)
	s.Equal(verify.StatusReady, second.Status)
	s.Equal(first.State, second.State)
}

func (s *VerifierSuite) TestForceBypassesCache() {
	s.service.EXPECT().VerifyIdentity(gomock.Any()).Return(ports.IdentityResult{
		IsAuthenticated: true,
	}, nil).Times(2)
	s.wallet.EXPECT().Connection(gomock.Any()).Return("", false).Times(2)

	v := s.newVerifier()
	v.Verify(context.Background(), verify.VerifyOptions{})
	v.Verify(context.Background(), verify.VerifyOptions{Force: true})
}

func (s *VerifierSuite) TestConcurrentCallersShareOneFlight() {
	started := make(chan struct{})
	release := make(chan struct{})
	s.service.EXPECT().VerifyIdentity(gomock.Any()).DoAndReturn(
		func(context.Context) (ports.IdentityResult, error) {
			close(started)
			<-release
			return ports.IdentityResult{IsAuthenticated: true}, nil
		}).Times(1)
	s.wallet.EXPECT().Connection(gomock.Any()).Return("0xabc", true).Times(1)

	v := s.newVerifier()

	var wg sync.WaitGroup
	wg.Add(1)
	var flightResult verify.Result
	go func() {
		defer wg.Done()
		flightResult = v.Verify(context.Background(), verify.VerifyOptions{})
	}()
	<-started

	// A non-forced caller sees the in-flight verification and reports
	// pending instead of an error.
	pending := v.Verify(context.Background(), verify.VerifyOptions{})
	s.Equal(verify.StatusPending, pending.Status)
	s.NoError(pending.Err)

	// A forced caller joins the flight and shares its result.
	wg.Add(1)
	var forcedResult verify.Result
	go func() {
		defer wg.Done()
		forcedResult = v.Verify(context.Background(), verify.VerifyOptions{Force: true})
	}()

	// Give the forced caller time to join the flight before it resolves.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	s.Equal(verify.StatusReady, flightResult.Status)
	s.Equal(verify.StatusReady, forcedResult.Status)
	s.Equal(flightResult.State, forcedResult.State)
}

func (s *VerifierSuite) TestTimeoutDegrades() {
	release := make(chan struct{})
	defer close(release)
	s.service.EXPECT().VerifyIdentity(gomock.Any()).DoAndReturn(
		func(context.Context) (ports.IdentityResult, error) {
			<-release // never answers within the budget
			return ports.IdentityResult{IsAuthenticated: true}, nil
		})

	v := s.newVerifier(verify.WithTimeout(20 * time.Millisecond))
	result := v.Verify(context.Background(), verify.VerifyOptions{})

	s.Equal(verify.StatusFailed, result.Status)
	s.True(domainerrors.HasCode(result.Err, domainerrors.CodeVerificationTimeout))
	s.False(result.State.IsAuthenticated)
	s.Equal(authstate.ErrorTimeout, result.State.Error)

	// The degraded state is still projected so the UI can react.
	action, ok := s.reactive.last()
	s.Require().True(ok)
	s.Equal(false, action.Payload["authenticated"])
}

func (s *VerifierSuite) TestThirdConsecutiveFailureEscalates() {
	s.service.EXPECT().VerifyIdentity(gomock.Any()).
		Return(ports.IdentityResult{}, errors.New("verification rejected")).Times(3)

	v := s.newVerifier()
	ctx := context.Background()

	first := v.Verify(ctx, verify.VerifyOptions{Force: true})
	second := v.Verify(ctx, verify.VerifyOptions{Force: true})
	third := v.Verify(ctx, verify.VerifyOptions{Force: true})

	s.True(domainerrors.HasCode(first.Err, domainerrors.CodeVerificationFailed))
	s.True(domainerrors.HasCode(second.Err, domainerrors.CodeVerificationFailed))
	s.True(domainerrors.HasCode(third.Err, domainerrors.CodeTooManyAttempts))
	s.Equal(authstate.ErrorTooManyAttempts, third.State.Error)

	s.Len(s.sink.ByName(audit.EventVerificationFailed), 3)
	s.Len(s.sink.ByName(audit.EventTooManyAttempts), 1)
}

func (s *VerifierSuite) TestSuccessResetsAttemptCounter() {
	gomock.InOrder(
		s.service.EXPECT().VerifyIdentity(gomock.Any()).
			Return(ports.IdentityResult{}, errors.New("flaky")).Times(2),
		s.service.EXPECT().VerifyIdentity(gomock.Any()).
			Return(ports.IdentityResult{IsAuthenticated: true}, nil),
	)
	s.wallet.EXPECT().Connection(gomock.Any()).Return("", false)

	v := s.newVerifier()
	ctx := context.Background()
	v.Verify(ctx, verify.VerifyOptions{Force: true})
	v.Verify(ctx, verify.VerifyOptions{Force: true})
	result := v.Verify(ctx, verify.VerifyOptions{Force: true})

	s.Equal(verify.StatusReady, result.Status)
	s.Equal(0, s.sup.Attempts())
}

func (s *VerifierSuite) TestAuditSinkFailureNeverAbortsVerification() {
	s.service.EXPECT().VerifyIdentity(gomock.Any()).Return(ports.IdentityResult{
		IsAuthenticated: true,
	}, nil)
	s.wallet.EXPECT().Connection(gomock.Any()).Return("0xabc", true)

	deps := verify.Deps{
		Strategy:   verify.PrimaryStrategy(s.service),
		Wallet:     s.wallet,
		Bridge:     session.NewBridge(s.durable, s.logger),
		Reactive:   s.reactive,
		Supervisor: s.sup,
		Audit:      audit.NewPublisher(failingSink{}, s.logger),
		Metrics:    metrics.New(prometheus.NewRegistry()),
		Logger:     s.logger,
	}
	v := verify.New(deps)

	result := v.Verify(context.Background(), verify.VerifyOptions{})
	s.Equal(verify.StatusReady, result.Status)
	s.True(result.State.IsAuthenticated)
}

func (s *VerifierSuite) TestLogoutShortCircuits() {
	// No collaborator expectations: nothing may be called during teardown.
	s.sup.BeginLogout()

	v := s.newVerifier()
	result := v.Verify(context.Background(), verify.VerifyOptions{Force: true})

	s.Equal(verify.StatusReady, result.Status)
	s.False(result.State.IsAuthenticated)
}

type failingSink struct{}

func (failingSink) Record(context.Context, audit.Event) error {
	return errors.New("audit sink offline")
}
