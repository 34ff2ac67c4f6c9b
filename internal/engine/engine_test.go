package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/hostguard/internal/dependencies/mocks"
	"github.com/mcoot/hostguard/internal/model"
	"github.com/mcoot/hostguard/internal/services/banstore"
	"github.com/mcoot/hostguard/internal/storage/memory"
	"github.com/mcoot/hostguard/internal/testutil"
)

type EngineSuite struct {
	suite.Suite
	clock     *mocks.MockClock
	transport *mocks.MockTransport
	storage   *memory.Storage
	events    *testutil.EventRecorder
	engine    *Engine
	ctx       context.Context
}

func TestEngineSuite(t *testing.T) {
	suite.Run(t, new(EngineSuite))
}

func (s *EngineSuite) SetupTest() {
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.transport = mocks.NewMockTransport("host")
	s.transport.Add("100", "Mallory", "Novice")
	s.transport.Add("200", "Alice", "Archmagus")
	s.storage = memory.New()
	s.events = &testutil.EventRecorder{}
	s.engine = New(DefaultConfig(), s.transport, s.storage, s.clock, testutil.NopLogger())
	s.engine.Subscribe(s.events)
	s.ctx = context.Background()
}

func (s *EngineSuite) enableHeuristics() {
	settings := model.DefaultSettings()
	settings.AutoBanInvalidRank = true
	settings.AutoBanOffensiveName = true
	settings.AutoBanFormattedName = true
	s.Require().NoError(s.engine.UpdateSettings(s.ctx, settings))
}

func (s *EngineSuite) identities(ps []model.Participant) []model.Identity {
	ids := make([]model.Identity, 0, len(ps))
	for _, p := range ps {
		ids = append(ids, p.Identity)
	}
	return ids
}

// Sweep tests

func (s *EngineSuite) TestFirstPollEmitsSessionEvents() {
	s.engine.Poll()

	s.Equal([]model.EventType{model.EventSessionEntered, model.EventAuthorityChanged}, s.events.Types())
	s.ElementsMatch([]model.Identity{"100", "200"}, s.identities(s.engine.Participants()))
}

func (s *EngineSuite) TestSweepKicksBannedParticipant() {
	s.transport.SetPhase(model.PhaseMatch)
	s.engine.Poll()
	s.True(s.engine.Ban("100", "Mallory", model.ReasonManual))
	s.Equal(0, s.transport.DisconnectCount("100"))

	s.engine.Poll()

	s.Equal(2, s.transport.DisconnectCount("100"))
	s.NotContains(s.identities(s.engine.Participants()), model.Identity("100"))
	s.Equal([]model.Identity{"100"}, s.identities(s.engine.BannedPresent()))
}

func (s *EngineSuite) TestSweepAutoBansOffensiveName() {
	s.enableHeuristics()
	s.transport.Add("300", "xXcheatXx", "Novice")

	s.engine.Poll()

	s.True(s.engine.IsBanned("300"))
	s.Equal(model.ReasonAutomatic, s.engine.Bans()[0].Reason)
	s.Equal(2, s.transport.DisconnectCount("300"))
	s.False(s.engine.IsBanned("200"))
}

func (s *EngineSuite) TestSweepAutoBansInvalidRank() {
	s.enableHeuristics()
	s.transport.Add("300", "Eve", "SuperHacker")

	s.engine.Poll()

	s.True(s.engine.IsBanned("300"))
}

func (s *EngineSuite) TestSweepWithoutAuthorityBansButDoesNotKick() {
	s.enableHeuristics()
	s.transport.SetAuthority(false)
	s.transport.Add("300", "xXcheatXx", "Novice")

	s.engine.Poll()

	s.True(s.engine.IsBanned("300"))
	s.Equal(model.ReasonAutomatic, s.engine.Bans()[0].Reason)
	s.Empty(s.transport.Disconnects)
	s.Empty(s.engine.KickStatuses())

	// The ban is enforced once authority arrives
	s.transport.SetAuthority(true)
	s.engine.Poll()

	s.Equal(2, s.transport.DisconnectCount("300"))
}

func (s *EngineSuite) TestNoAutoBanDuringMatch() {
	s.enableHeuristics()
	s.transport.SetPhase(model.PhaseMatch)
	s.transport.Add("300", "xXcheatXx", "Novice")

	s.engine.Poll()

	s.False(s.engine.IsBanned("300"))
}

// Join tests

func (s *EngineSuite) TestBannedJoinIsKickedImmediately() {
	s.transport.SetPhase(model.PhaseMatch)
	s.engine.Ban("300", "Trudy", model.ReasonManual)
	s.transport.Add("300", "Trudy", "Novice")

	s.engine.ParticipantJoined(model.Participant{Identity: "300", DisplayName: "Trudy"})

	s.Equal(2, s.transport.DisconnectCount("300"))
}

func (s *EngineSuite) TestJoinIsEvaluated() {
	s.enableHeuristics()
	s.transport.Add("300", "discord.gg/free", "Novice")

	s.engine.ParticipantJoined(model.Participant{Identity: "300", DisplayName: "discord.gg/free"})

	s.True(s.engine.IsBanned("300"))
}

// Kick tests

func (s *EngineSuite) TestKickHidesParticipantForGraceWindow() {
	s.engine.Poll()

	s.Require().NoError(s.engine.Kick("100", "Mallory"))
	s.engine.Poll()
	s.NotContains(s.identities(s.engine.Participants()), model.Identity("100"))

	// The participant ignored every kick, so it reappears once the grace
	// window after the last attempt has passed
	s.clock.Advance(time.Minute)
	s.engine.Poll()
	s.Contains(s.identities(s.engine.Participants()), model.Identity("100"))
	s.False(s.engine.IsBanned("100"))
}

func (s *EngineSuite) TestKickValidation() {
	s.ErrorIs(s.engine.Kick("host", "Host"), model.ErrAuthorityTarget)
	s.ErrorIs(s.engine.Kick("missing", "Ghost"), model.ErrParticipantNotFound)

	s.transport.SetAuthority(false)
	s.ErrorIs(s.engine.Kick("100", "Mallory"), model.ErrNotAuthority)
}

// Softlock tests

func (s *EngineSuite) exhaustInMatch() {
	s.transport.SetPhase(model.PhaseMatch)
	s.engine.Poll()
	s.engine.Ban("100", "Mallory", model.ReasonManual)
	s.engine.Poll()
	s.clock.Advance(10 * time.Second)
	s.Require().Equal([]model.Identity{"100"}, s.engine.Softlocked())
}

func (s *EngineSuite) TestSoftlockStopsWhenParticipantLeaves() {
	s.exhaustInMatch()
	s.transport.Remove("100")

	s.engine.Poll()
	neutralized := s.transport.NeutralizeCount("100")
	s.clock.Advance(time.Second)

	s.Empty(s.engine.Softlocked())
	s.Equal(neutralized, s.transport.NeutralizeCount("100"))
}

func (s *EngineSuite) TestUnbanStopsSoftlock() {
	s.exhaustInMatch()

	s.True(s.engine.Unban("100"))
	neutralized := s.transport.NeutralizeCount("100")
	s.clock.Advance(time.Second)

	s.Empty(s.engine.Softlocked())
	s.Equal(neutralized, s.transport.NeutralizeCount("100"))
	s.Contains(s.identities(s.engine.Participants()), model.Identity("100"))
}

func (s *EngineSuite) TestLeavingMatchStopsSoftlockButKeepsAttempts() {
	s.exhaustInMatch()

	s.transport.SetPhase(model.PhaseLobby)
	s.engine.Poll()
	neutralized := s.transport.NeutralizeCount("100")
	s.clock.Advance(time.Second)

	s.Empty(s.engine.Softlocked())
	s.Equal(neutralized, s.transport.NeutralizeCount("100"))
	statuses := s.engine.KickStatuses()
	s.Require().Len(statuses, 1)
	s.Equal(DefaultConfig().Kick.MaxAttempts, statuses[0].Attempts)
}

func (s *EngineSuite) TestExhaustedInLobbyEscalatesAtMatchStart() {
	s.engine.Poll()
	s.True(s.engine.Ban("100", "Mallory", model.ReasonManual))
	s.clock.Advance(10 * time.Second)
	disconnects := s.transport.DisconnectCount("100")
	s.Require().Equal(6, disconnects)
	s.Require().Empty(s.engine.Softlocked())

	s.transport.SetPhase(model.PhaseMatch)
	s.engine.Poll()

	s.Equal(disconnects, s.transport.DisconnectCount("100"))
	s.Equal([]model.Identity{"100"}, s.engine.Softlocked())
}

func (s *EngineSuite) TestLeavingSessionResetsEnforcement() {
	s.exhaustInMatch()

	s.transport.Session = false
	s.engine.Poll()

	s.Empty(s.engine.Softlocked())
	s.Empty(s.engine.KickStatuses())
	s.Empty(s.engine.Participants())
	s.Equal(1, s.events.Count(model.EventSessionLeft))
}

// Formatted name tests

func (s *EngineSuite) TestScanFormattedNames() {
	s.enableHeuristics()
	s.transport.SetPhase(model.PhaseMatch)
	s.transport.Add("300", "<color=red>Loud</color>", "Novice")

	findings := s.engine.ScanFormattedNames()

	s.Require().Len(findings, 1)
	record := s.engine.Bans()[0]
	s.Equal(model.Identity("300"), record.Identity)
	s.Equal(model.ReasonFormattedName, record.Reason)
}

// Persistence tests

func (s *EngineSuite) TestImportLegacyAndExport() {
	count, err := s.engine.ImportBans(s.ctx, "76561:Alice:2023-01-01 10:00:00:Manual|76562:Bob")
	s.Require().NoError(err)
	s.Equal(2, count)
	s.False(s.engine.Dirty())

	blob, err := s.storage.GetBanList(s.ctx)
	s.Require().NoError(err)
	s.Equal(blob, s.engine.ExportBans())
	s.Equal(banstore.FormatCurrent, banstore.DetectFormat(blob))
}

func (s *EngineSuite) TestUpdateSettingsPersists() {
	s.enableHeuristics()

	stored, err := s.storage.GetSettings(s.ctx)
	s.Require().NoError(err)
	s.True(stored.AutoBanInvalidRank)
	s.True(s.engine.Settings().AutoBanOffensiveName)
}

func (s *EngineSuite) TestFlushOnlyWhenDirty() {
	s.engine.Flush()
	s.Equal(0, s.storage.BanListSaves())

	s.engine.Ban("100", "Mallory", "")
	s.engine.Flush()
	s.engine.Flush()

	s.Equal(1, s.storage.BanListSaves())
}

// Run tests

func (s *EngineSuite) TestReadyWaitsForChunkedLoad() {
	s.Require().NoError(s.storage.SaveBanList(s.ctx, "1:A|2:B|3:C|4:D|5:E"))
	cfg := DefaultConfig()
	cfg.LoadChunkSize = 1
	e := New(cfg, s.transport, s.storage, s.clock, testutil.NopLogger())

	ctx, cancel := context.WithCancel(s.ctx)
	done := make(chan error, 1)
	go func() { done <- e.Run(ctx) }()
	defer func() {
		cancel()
		s.NoError(<-done)
	}()

	select {
	case <-e.Ready():
	case <-time.After(time.Second):
		s.FailNow("engine never became ready")
	}

	var bans []model.BanRecord
	s.Require().NoError(e.Do(s.ctx, func() { bans = e.Bans() }))
	s.Len(bans, 5)
}

func (s *EngineSuite) TestReadyWithoutRunAfterInlineLoad() {
	s.Require().NoError(s.engine.LoadBans(s.ctx))

	select {
	case <-s.engine.Ready():
	default:
		s.Fail("inline load should mark the engine ready")
	}
}

func (s *EngineSuite) TestRunLoadsSavesAndFlushesOnExit() {
	s.Require().NoError(s.storage.SaveBanList(s.ctx, "1:A|2:B"))
	settings := model.DefaultSettings()
	settings.ToggleKey = "F2"
	s.Require().NoError(s.storage.SaveSettings(s.ctx, &settings))

	ctx, cancel := context.WithCancel(s.ctx)
	done := make(chan error, 1)
	go func() { done <- s.engine.Run(ctx) }()

	var bans []model.BanRecord
	var toggleKey string
	s.Require().Eventually(func() bool {
		err := s.engine.Do(s.ctx, func() {
			bans = s.engine.Bans()
			toggleKey = s.engine.Settings().ToggleKey
		})
		return err == nil && len(bans) == 2
	}, time.Second, 10*time.Millisecond)
	s.Equal("F2", toggleKey)

	s.Require().NoError(s.engine.Do(s.ctx, func() { s.engine.Ban("300", "Carol", "") }))

	// Batched save runs on the save interval
	s.clock.Advance(DefaultConfig().SaveInterval)
	s.Require().Eventually(func() bool { return s.storage.BanListSaves() == 2 }, time.Second, 10*time.Millisecond)

	s.Require().NoError(s.engine.Do(s.ctx, func() { s.engine.Ban("400", "Dan", "") }))
	cancel()
	s.Require().NoError(<-done)

	blob, err := s.storage.GetBanList(s.ctx)
	s.Require().NoError(err)
	records, format := banstore.Decode(blob, s.clock.Now())
	s.Equal(banstore.FormatCurrent, format)
	s.Len(records, 4)

	s.ErrorIs(s.engine.Do(s.ctx, func() {}), model.ErrEngineStopped)
}

func (s *EngineSuite) TestRunTwiceFails() {
	ctx, cancel := context.WithCancel(s.ctx)
	done := make(chan error, 1)
	go func() { done <- s.engine.Run(ctx) }()
	s.Require().Eventually(func() bool { return s.engine.loop.current() == loopRunning }, time.Second, time.Millisecond)

	s.Error(s.engine.Run(ctx))

	cancel()
	s.NoError(<-done)
}

func (s *EngineSuite) TestPanickingTaskDoesNotStopLoop() {
	ctx, cancel := context.WithCancel(s.ctx)
	defer cancel()
	go func() { _ = s.engine.Run(ctx) }()
	s.Require().Eventually(func() bool { return s.engine.loop.current() == loopRunning }, time.Second, time.Millisecond)

	s.NoError(s.engine.Do(s.ctx, func() { panic("boom") }))
	s.NoError(s.engine.Do(s.ctx, func() {}))
}
