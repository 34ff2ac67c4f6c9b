package banstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/hostguard/internal/dependencies/mocks"
	"github.com/mcoot/hostguard/internal/model"
	"github.com/mcoot/hostguard/internal/storage/memory"
	"github.com/mcoot/hostguard/internal/testutil"
)

type kickCall struct {
	identity       model.Identity
	displayName    string
	isBannedTarget bool
}

type recordingEnforcer struct {
	kicks    []kickCall
	released []model.Identity
}

func (e *recordingEnforcer) RequestKick(identity model.Identity, displayName string, isBannedTarget bool) {
	e.kicks = append(e.kicks, kickCall{identity, displayName, isBannedTarget})
}

func (e *recordingEnforcer) Release(identity model.Identity) {
	e.released = append(e.released, identity)
}

type failingStorage struct {
	*memory.Storage
}

func (f failingStorage) SaveBanList(context.Context, string) error {
	return errors.New("disk full")
}

type StoreSuite struct {
	suite.Suite
	storage   *memory.Storage
	transport *mocks.MockTransport
	enforcer  *recordingEnforcer
	clock     *mocks.MockClock
	events    *testutil.EventRecorder
	store     *Store
	ctx       context.Context
}

func TestStoreSuite(t *testing.T) {
	suite.Run(t, new(StoreSuite))
}

func (s *StoreSuite) SetupTest() {
	s.storage = memory.New()
	s.transport = mocks.NewMockTransport("host")
	s.enforcer = &recordingEnforcer{}
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.Local))
	s.events = &testutil.EventRecorder{}
	s.store = New(s.storage, s.transport, s.enforcer, s.clock, s.events, testutil.NopLogger())
	s.ctx = context.Background()
}

// Ban tests

func (s *StoreSuite) TestBanRecordsEntry() {
	s.True(s.store.Ban("100", "Alice", model.ReasonOffensiveName))

	record, ok := s.store.Get("100")
	s.Require().True(ok)
	s.Equal("Alice", record.DisplayName)
	s.Equal(model.ReasonOffensiveName, record.Reason)
	s.Equal(s.clock.Now(), record.BannedAt)
	s.True(s.store.Dirty())
	s.Equal([]model.EventType{model.EventBanAdded}, s.events.Types())
}

func (s *StoreSuite) TestBanDefaultsReasonToManual() {
	s.store.Ban("100", "Alice", "")

	record, _ := s.store.Get("100")
	s.Equal(model.ReasonManual, record.Reason)
}

func (s *StoreSuite) TestBanKicksImmediatelyInLobby() {
	s.store.Ban("100", "Alice", model.ReasonManual)

	s.Equal([]kickCall{{"100", "Alice", true}}, s.enforcer.kicks)
}

func (s *StoreSuite) TestBanDuringMatchDoesNotKick() {
	s.transport.SetPhase(model.PhaseMatch)

	s.store.Ban("100", "Alice", model.ReasonManual)

	s.True(s.store.IsBanned("100"))
	s.Empty(s.enforcer.kicks)
}

func (s *StoreSuite) TestBanWithoutAuthorityDoesNotKick() {
	s.transport.SetAuthority(false)

	s.store.Ban("100", "Alice", model.ReasonManual)

	s.True(s.store.IsBanned("100"))
	s.Empty(s.enforcer.kicks)
}

func (s *StoreSuite) TestBanAuthorityIsNoOp() {
	s.False(s.store.Ban("host", "Host", model.ReasonManual))

	s.False(s.store.IsBanned("host"))
	s.False(s.store.Dirty())
	s.Empty(s.events.Events())
}

func (s *StoreSuite) TestBanEmptyIdentityIsNoOp() {
	s.False(s.store.Ban("", "Nobody", model.ReasonManual))
	s.Equal(0, s.store.Len())
}

func (s *StoreSuite) TestBanTwiceKeepsFirstRecord() {
	s.store.Ban("100", "Alice", model.ReasonOffensiveName)
	s.clock.Advance(time.Minute)

	s.False(s.store.Ban("100", "Alice2", model.ReasonManual))

	record, _ := s.store.Get("100")
	s.Equal("Alice", record.DisplayName)
	s.Equal(model.ReasonOffensiveName, record.Reason)
	s.Len(s.enforcer.kicks, 1)
}

// Unban tests

func (s *StoreSuite) TestUnbanReleasesEnforcement() {
	s.store.Ban("100", "Alice", model.ReasonManual)

	s.True(s.store.Unban("100"))

	s.False(s.store.IsBanned("100"))
	s.Equal([]model.Identity{"100"}, s.enforcer.released)
	s.Equal([]model.EventType{model.EventBanAdded, model.EventBanRemoved}, s.events.Types())
}

func (s *StoreSuite) TestUnbanUnknownIsNoOp() {
	s.False(s.store.Unban("missing"))
	s.Empty(s.enforcer.released)
	s.False(s.store.Dirty())
}

// Toggle tests

func (s *StoreSuite) TestToggle() {
	s.True(s.store.Toggle("100", "Alice"))
	s.True(s.store.IsBanned("100"))

	s.False(s.store.Toggle("100", "Alice"))
	s.False(s.store.IsBanned("100"))
}

func (s *StoreSuite) TestToggleAuthorityIsNoOp() {
	s.False(s.store.Toggle("host", "Host"))
	s.False(s.store.IsBanned("host"))
}

// Records tests

func (s *StoreSuite) TestRecordsOrderedByBanTime() {
	s.store.Ban("300", "Carol", "")
	s.clock.Advance(time.Second)
	s.store.Ban("100", "Alice", "")
	s.clock.Advance(time.Second)
	s.store.Ban("200", "Bob", "")

	records := s.store.Records()
	s.Require().Len(records, 3)
	s.Equal(model.Identity("300"), records[0].Identity)
	s.Equal(model.Identity("100"), records[1].Identity)
	s.Equal(model.Identity("200"), records[2].Identity)
}

// Load tests

func (s *StoreSuite) TestLoadMissingListIsEmpty() {
	s.store.Ban("100", "Alice", "")

	s.Require().NoError(s.store.Load(s.ctx))

	s.Equal(0, s.store.Len())
	s.False(s.store.Dirty())
}

func (s *StoreSuite) TestLoadLegacyMarksDirty() {
	s.Require().NoError(s.storage.SaveBanList(s.ctx, "76561:Alice:2023-01-01 10:00:00:Manual|76562:Bob"))

	s.Require().NoError(s.store.Load(s.ctx))

	s.Equal(2, s.store.Len())
	s.True(s.store.Dirty())

	s.Require().NoError(s.store.Save(s.ctx))
	blob, err := s.storage.GetBanList(s.ctx)
	s.Require().NoError(err)
	s.Equal(FormatCurrent, DetectFormat(blob))
	s.Contains(blob, EntrySeparator)
}

func (s *StoreSuite) TestLoadCanonicalIsClean() {
	s.store.Ban("100", "Alice", "")
	s.Require().NoError(s.store.Save(s.ctx))

	s.Require().NoError(s.store.Load(s.ctx))

	s.True(s.store.IsBanned("100"))
	s.False(s.store.Dirty())
}

func (s *StoreSuite) TestLoadIncrementalYieldsBetweenChunks() {
	blob := "1:A|2:B|3:C|4:D|5:E"
	var pending []func()
	loaded := -1

	s.store.LoadIncremental(blob, 2, func(next func()) { pending = append(pending, next) }, func(n int) { loaded = n })

	// First chunk is parsed synchronously
	s.Equal(2, s.store.Len())
	s.Equal(-1, loaded)

	// Work scheduled between chunks sees a consistent store
	s.store.Ban("99", "Zed", "")

	for len(pending) > 0 {
		next := pending[0]
		pending = pending[1:]
		next()
	}

	s.Equal(6, loaded)
	s.True(s.store.IsBanned("5"))
	s.True(s.store.IsBanned("99"))
}

func (s *StoreSuite) TestLaterLoadAbandonsEarlierOne() {
	var pending []func()
	s.store.LoadIncremental("1:A|2:B|3:C", 1, func(next func()) { pending = append(pending, next) }, nil)

	s.store.LoadString("9:Z|8:Y")

	for len(pending) > 0 {
		next := pending[0]
		pending = pending[1:]
		next()
	}

	s.Equal(2, s.store.Len())
	s.False(s.store.IsBanned("2"))
}

// Save tests

func (s *StoreSuite) TestSaveRoundTrip() {
	s.store.Ban("100", "Alice", model.ReasonInvalidRank)
	s.store.Ban("200", "Bob", model.ReasonManual)
	s.Require().NoError(s.store.Save(s.ctx))
	s.False(s.store.Dirty())

	reloaded := New(s.storage, s.transport, s.enforcer, s.clock, nil, testutil.NopLogger())
	s.Require().NoError(reloaded.Load(s.ctx))

	s.Equal(s.store.Records(), reloaded.Records())
}

func (s *StoreSuite) TestSaveFailureKeepsDirty() {
	store := New(failingStorage{s.storage}, s.transport, s.enforcer, s.clock, nil, testutil.NopLogger())
	store.Ban("100", "Alice", "")

	s.Error(store.Save(s.ctx))
	s.True(store.Dirty())
}
