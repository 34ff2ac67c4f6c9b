package kick

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/hostguard/internal/dependencies/mocks"
	"github.com/mcoot/hostguard/internal/model"
	"github.com/mcoot/hostguard/internal/services/softlock"
	"github.com/mcoot/hostguard/internal/testutil"
)

type droppedRoster struct {
	dropped []model.Identity
}

func (r *droppedRoster) Drop(identity model.Identity) {
	r.dropped = append(r.dropped, identity)
}

type panickingTransport struct {
	*mocks.MockTransport
}

func (p panickingTransport) Disconnect(model.Identity, model.Pathway) error {
	panic("socket closed")
}

type EnforcerSuite struct {
	suite.Suite
	clock       *mocks.MockClock
	transport   *mocks.MockTransport
	neutralizer *softlock.Neutralizer
	roster      *droppedRoster
	events      *testutil.EventRecorder
	enforcer    *Enforcer
}

func TestEnforcerSuite(t *testing.T) {
	suite.Run(t, new(EnforcerSuite))
}

func (s *EnforcerSuite) SetupTest() {
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.transport = mocks.NewMockTransport("host")
	s.transport.Add("100", "Mallory", "Novice")
	s.events = &testutil.EventRecorder{}
	s.roster = &droppedRoster{}
	logger := testutil.NopLogger()
	s.neutralizer = softlock.New(s.transport, s.clock, softlock.DefaultInterval, s.events, logger)
	s.enforcer = New(s.transport, s.neutralizer, s.clock, DefaultConfig(), s.events, logger)
	s.enforcer.SetRoster(s.roster)
}

// Attempt tests

func (s *EnforcerSuite) TestKickUsesEveryLobbyPathway() {
	s.enforcer.RequestKick("100", "Mallory", true)

	s.Equal([]mocks.DisconnectCall{
		{Identity: "100", Pathway: model.PathwayLobbyKick},
		{Identity: "100", Pathway: model.PathwayPeerClose},
	}, s.transport.Disconnects)
	s.Equal(1, s.enforcer.Attempts("100"))
	s.Equal(1, s.events.Count(model.EventKickAttempted))
}

func (s *EnforcerSuite) TestKickUsesMatchPathways() {
	s.transport.SetPhase(model.PhaseMatch)

	s.enforcer.RequestKick("100", "Mallory", true)

	s.Equal(model.PathwayMatchKick, s.transport.Disconnects[0].Pathway)
}

func (s *EnforcerSuite) TestCallsWithinCooldownCollapse() {
	s.enforcer.RequestKick("100", "Mallory", true)
	s.clock.Advance(time.Second)
	s.enforcer.RequestKick("100", "Mallory", true)

	s.Equal(1, s.enforcer.Attempts("100"))
	s.Equal(len(model.PathwaysFor(model.PhaseLobby)), s.transport.DisconnectCount("100"))
}

func (s *EnforcerSuite) TestRefusesAuthority() {
	s.enforcer.RequestKick("host", "Host", true)

	s.Empty(s.transport.Disconnects)
	s.Equal(0, s.enforcer.Attempts("host"))
}

func (s *EnforcerSuite) TestIgnoredWithoutAuthority() {
	s.transport.SetAuthority(false)

	s.enforcer.RequestKick("100", "Mallory", true)

	s.Empty(s.transport.Disconnects)
}

func (s *EnforcerSuite) TestIgnoredOutsideSessionPhases() {
	s.transport.SetPhase(model.PhaseNone)

	s.enforcer.RequestKick("100", "Mallory", true)

	s.Empty(s.transport.Disconnects)
	s.Equal(0, s.enforcer.Attempts("100"))
}

func (s *EnforcerSuite) TestFailedPathwayConsumesAttempt() {
	s.transport.DisconnectErr = errors.New("peer unreachable")

	s.enforcer.RequestKick("100", "Mallory", true)

	s.Equal(1, s.enforcer.Attempts("100"))
	evt := s.events.Events()[0]
	s.Equal(2, evt.Payload.(model.KickAttemptedPayload).Failures)
}

func (s *EnforcerSuite) TestPanickingPathwayConsumesAttempt() {
	enforcer := New(panickingTransport{s.transport}, s.neutralizer, s.clock, DefaultConfig(), nil, testutil.NopLogger())

	s.NotPanics(func() { enforcer.RequestKick("100", "Mallory", true) })
	s.Equal(1, enforcer.Attempts("100"))
}

// Re-check tests

func (s *EnforcerSuite) TestRecheckRetriesUntilExhaustedInLobby() {
	s.enforcer.RequestKick("100", "Mallory", true)

	s.clock.Advance(30 * time.Second)

	s.Equal(3, s.enforcer.Attempts("100"))
	s.Equal(6, s.transport.DisconnectCount("100"))
	s.False(s.neutralizer.Active("100"))
	s.Equal(0, s.clock.Pending())
}

func (s *EnforcerSuite) TestRecheckConfirmsRemoval() {
	s.transport.RemoveOnDisconnect = true

	s.enforcer.RequestKick("100", "Mallory", true)
	s.clock.Advance(DefaultConfig().Cooldown)

	s.Equal(0, s.enforcer.Attempts("100"))
	s.Equal(1, s.events.Count(model.EventKickConfirmed))
	s.Equal(0, s.clock.Pending())
}

func (s *EnforcerSuite) TestRecheckAbandonedWhenAuthorityLost() {
	s.enforcer.RequestKick("100", "Mallory", true)
	s.transport.SetAuthority(false)

	s.clock.Advance(DefaultConfig().Cooldown)

	s.Equal(1, s.enforcer.Attempts("100"))
	s.Equal(0, s.clock.Pending())
}

func (s *EnforcerSuite) TestExhaustionDuringMatchStartsSoftlock() {
	s.transport.SetPhase(model.PhaseMatch)
	cooldown := DefaultConfig().Cooldown

	for range 3 {
		s.enforcer.RequestKick("100", "Mallory", true)
		s.clock.Advance(cooldown)
	}
	s.Equal(3, s.enforcer.Attempts("100"))

	s.enforcer.RequestKick("100", "Mallory", true)

	s.True(s.neutralizer.Active("100"))
	s.Equal(1, s.events.Count(model.EventSoftlockStarted))
	s.Equal(6, s.transport.DisconnectCount("100"))
}

func (s *EnforcerSuite) TestRepeatedExhaustedRequestsKeepOneSoftlock() {
	s.transport.SetPhase(model.PhaseMatch)
	s.enforcer.RequestKick("100", "Mallory", true)
	s.clock.Advance(time.Minute)

	for range 5 {
		s.enforcer.RequestKick("100", "Mallory", true)
	}

	s.Equal(1, s.neutralizer.Count())
	s.Equal(1, s.events.Count(model.EventSoftlockStarted))
}

func (s *EnforcerSuite) TestExhaustionInLobbyDoesNotSoftlock() {
	s.enforcer.RequestKick("100", "Mallory", true)
	s.clock.Advance(time.Minute)

	s.enforcer.RequestKick("100", "Mallory", true)

	s.False(s.neutralizer.Active("100"))
}

// Grace window tests

func (s *EnforcerSuite) TestNonBannedTargetIsHidden() {
	s.enforcer.RequestKick("100", "Mallory", false)

	s.Equal([]model.Identity{"100"}, s.roster.dropped)
	s.True(s.enforcer.RecentlyRemoved("100"))

	s.transport.Remove("100")
	s.clock.Advance(DefaultConfig().RemovalGrace)

	s.False(s.enforcer.RecentlyRemoved("100"))
}

func (s *EnforcerSuite) TestBannedTargetIsNotHidden() {
	s.enforcer.RequestKick("100", "Mallory", true)

	s.Empty(s.roster.dropped)
	s.False(s.enforcer.RecentlyRemoved("100"))
}

// Release tests

func (s *EnforcerSuite) TestReleaseStopsEverything() {
	s.transport.SetPhase(model.PhaseMatch)
	s.enforcer.RequestKick("100", "Mallory", false)
	s.clock.Advance(time.Minute)
	s.enforcer.RequestKick("100", "Mallory", false)
	s.Require().True(s.neutralizer.Active("100"))

	s.enforcer.Release("100")
	s.enforcer.Release("100")

	s.False(s.neutralizer.Active("100"))
	s.False(s.enforcer.RecentlyRemoved("100"))
	s.Equal(0, s.enforcer.Attempts("100"))
	s.Equal(0, s.clock.Pending())
}

func (s *EnforcerSuite) TestClearTrackingAllowsFreshAttempts() {
	s.enforcer.RequestKick("100", "Mallory", true)
	s.enforcer.ClearTracking("100")
	s.enforcer.ClearTracking("100")

	s.enforcer.RequestKick("100", "Mallory", true)

	s.Equal(1, s.enforcer.Attempts("100"))
	s.Equal(1, s.clock.Pending())
}

func (s *EnforcerSuite) TestStatuses() {
	s.transport.Add("200", "Trudy", "Novice")
	s.enforcer.RequestKick("200", "Trudy", true)
	s.enforcer.RequestKick("100", "Mallory", true)

	statuses := s.enforcer.Statuses()

	s.Require().Len(statuses, 2)
	s.Equal(model.Identity("100"), statuses[0].Identity)
	s.Equal(1, statuses[0].Attempts)
	s.Equal(s.clock.Now(), statuses[0].LastAttempt)
	s.False(statuses[0].Softlocked)
}
