package logout_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"authsync/internal/logout"
	"authsync/internal/navigation"
	"authsync/internal/platform/metrics"
	"authsync/internal/ports"
	"authsync/internal/session"
	"authsync/internal/supervisor"
	"authsync/mocks"
	domainerrors "authsync/pkg/domain-errors"
	"authsync/pkg/platform/audit"
	auditmem "authsync/pkg/platform/audit/store/memory"
)

type fakeInvalidator struct{ calls int }

func (f *fakeInvalidator) InvalidateCache() { f.calls++ }

type CoordinatorSuite struct {
	suite.Suite
	ctrl      *gomock.Controller
	wallet    *mocks.MockWalletConnector
	reactive  *mocks.MockReactiveStore
	navigator *mocks.MockNavigator
	durable   *session.MemoryStore
	ephemeral *session.MemoryStore
	sup       *supervisor.Context
	sink      *auditmem.InMemoryStore
	inval     *fakeInvalidator
	slept     []time.Duration
}

func TestCoordinatorSuite(t *testing.T) {
	suite.Run(t, new(CoordinatorSuite))
}

func (s *CoordinatorSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.wallet = mocks.NewMockWalletConnector(s.ctrl)
	s.reactive = mocks.NewMockReactiveStore(s.ctrl)
	s.navigator = mocks.NewMockNavigator(s.ctrl)
	s.durable = session.NewMemoryStore()
	s.ephemeral = session.NewMemoryStore()
	s.sup = supervisor.New()
	s.sink = auditmem.NewInMemoryStore()
	s.inval = &fakeInvalidator{}
	s.slept = nil
}

func (s *CoordinatorSuite) newCoordinator() *logout.Coordinator {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return logout.New(logout.Deps{
		Wallet:     s.wallet,
		Reactive:   s.reactive,
		Navigator:  s.navigator,
		Bridge:     session.NewBridge(s.durable, logger),
		Flags:      session.NewFlags(s.ephemeral, logger),
		Supervisor: s.sup,
		Loops:      navigation.NewLoopDetector(10*time.Second, 3),
		Verifier:   s.inval,
		Audit:      audit.NewPublisher(s.sink, logger),
		Metrics:    metrics.New(prometheus.NewRegistry()),
		Logger:     logger,
	}, logout.WithSleep(func(d time.Duration) { s.slept = append(s.slept, d) }))
}

func (s *CoordinatorSuite) seedStores() {
	ctx := context.Background()
	s.Require().NoError(s.durable.Set(ctx, session.KeySession, `{"walletAddress":"0xabc"}`))
	s.Require().NoError(s.ephemeral.Set(ctx, session.KeyFlags, `{"lastLoginPath":"/datasets"}`))
}

func (s *CoordinatorSuite) expectReactiveClears() {
	gomock.InOrder(
		s.reactive.EXPECT().Dispatch(actionOfType(ports.ActionClearRole)),
		s.reactive.EXPECT().Dispatch(actionOfType(ports.ActionClearProfile)),
		s.reactive.EXPECT().Dispatch(actionOfType(ports.ActionClearWallet)),
	)
}

func (s *CoordinatorSuite) TestCleanRun() {
	s.seedStores()
	s.expectReactiveClears()
	s.wallet.EXPECT().Disconnect(gomock.Any()).Return(nil)
	s.navigator.EXPECT().Go(navigation.PathLogin, true).Return(nil)
	s.navigator.EXPECT().Location().Return(navigation.PathLogin)

	err := s.newCoordinator().Run(context.Background())
	s.NoError(err)

	s.Equal(0, s.durable.Len(), "durable session must be erased")
	s.Equal(0, s.ephemeral.Len(), "ephemeral flags must be erased")
	s.Equal(1, s.inval.calls, "verification cache must be invalidated")
	s.False(s.sup.LogoutActive(), "flag must clear after the grace delay")
	s.Len(s.slept, 2)

	s.Len(s.sink.ByName(audit.EventLogoutStarted), 1)
	completed := s.sink.ByName(audit.EventLogoutCompleted)
	s.Require().Len(completed, 1)
	s.Equal("clean", completed[0].Outcome)
}

func (s *CoordinatorSuite) TestWalletFailureDoesNotStopTeardown() {
	s.seedStores()
	s.expectReactiveClears()
	s.wallet.EXPECT().Disconnect(gomock.Any()).Return(errors.New("extension locked"))
	s.navigator.EXPECT().Go(navigation.PathLogin, true).Return(nil)
	s.navigator.EXPECT().Location().Return(navigation.PathLogin)

	err := s.newCoordinator().Run(context.Background())
	s.Error(err)
	s.True(domainerrors.HasCode(err, domainerrors.CodeLogoutStep))

	// Every store after the failed step is still cleared.
	s.Equal(0, s.durable.Len())
	s.Equal(0, s.ephemeral.Len())
	s.False(s.sup.LogoutActive())

	completed := s.sink.ByName(audit.EventLogoutCompleted)
	s.Require().Len(completed, 1)
	s.Equal("partial", completed[0].Outcome)
}

func (s *CoordinatorSuite) TestReloadFallbackWhenNavigationStalls() {
	s.expectReactiveClears()
	s.wallet.EXPECT().Disconnect(gomock.Any()).Return(nil)
	s.navigator.EXPECT().Go(navigation.PathLogin, true).Return(nil)
	s.navigator.EXPECT().Location().Return("/datasets").Times(2)
	s.navigator.EXPECT().Reload()

	s.NoError(s.newCoordinator().Run(context.Background()))
}

func (s *CoordinatorSuite) TestReconnectFlagSurvivesLogout() {
	ctx := context.Background()
	s.Require().NoError(s.ephemeral.Set(ctx, session.KeyFlags,
		`{"reconnectArmed":true,"lastLoginPath":"/datasets"}`))

	s.expectReactiveClears()
	s.wallet.EXPECT().Disconnect(gomock.Any()).Return(nil)
	s.navigator.EXPECT().Go(navigation.PathLogin, true).Return(nil)
	s.navigator.EXPECT().Location().Return(navigation.PathLogin)

	s.NoError(s.newCoordinator().Run(ctx))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	flags := session.NewFlags(s.ephemeral, logger).Load(ctx)
	s.True(flags.ReconnectArmed)
	s.Empty(flags.LastLoginPath)
}

func (s *CoordinatorSuite) TestOverlappingTriggersCollapse() {
	s.sup.BeginLogout() // a teardown is already running

	err := s.newCoordinator().Run(context.Background())
	s.NoError(err)
	s.Equal(0, s.inval.calls)
	s.Empty(s.sink.Events())
	s.True(s.sup.LogoutActive(), "the running teardown still owns the flag")
}

// actionOfType matches a dispatch by its action type only.
func actionOfType(t ports.ActionType) gomock.Matcher {
	return gomock.Cond(func(x any) bool {
		a, ok := x.(ports.Action)
		return ok && a.Type == t
	})
}
