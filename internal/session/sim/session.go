// Package sim is an in-process peer session used to drive the engine without
// a game client. It implements session.Transport and exposes the controls a
// real game would: hosting, joins, leaves, matches and authority handover.
package sim

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/mcoot/hostguard/internal/dependencies/clock"
	"github.com/mcoot/hostguard/internal/dependencies/random"
	"github.com/mcoot/hostguard/internal/model"
	"github.com/mcoot/hostguard/internal/session"
)

const (
	// CodeLength is the length of generated session codes
	CodeLength = 6
	// CodeAlphabet is the characters used in session codes (avoid confusing chars)
	CodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
)

// Member is a participant connected to the simulated session
type Member struct {
	model.Participant
	Rank         string
	IgnoresKicks bool // Kicks are acknowledged but never take effect
	JoinedAt     time.Time
	Freezes      int // Neutralize calls received during the current match
}

// Status is a point-in-time view of the session
type Status struct {
	Code          string
	InSession     bool
	IsAuthority   bool
	Phase         model.Phase
	LocalIdentity model.Identity
	Members       []Member
}

// JoinHook is told about every participant that joins
type JoinHook func(model.Participant)

// Session is a simulated peer session. It is safe for concurrent use.
type Session struct {
	mu sync.RWMutex

	clock       clock.Clock
	random      random.Random
	dropPercent int
	logger      *slog.Logger

	local     model.Participant
	code      string
	active    bool
	authority bool
	phase     model.Phase
	members   []*Member
	onJoin    JoinHook
}

// Ensure Session implements Transport
var _ session.Transport = (*Session)(nil)

// New creates a Session for the local participant. dropPercent of all
// Disconnect requests are silently lost.
func New(local model.Participant, clk clock.Clock, rnd random.Random, dropPercent int, logger *slog.Logger) *Session {
	return &Session{
		clock:       clk,
		random:      rnd,
		dropPercent: dropPercent,
		logger:      logger.With(slog.String("component", "sim")),
		local:       local,
		phase:       model.PhaseNone,
	}
}

// SetJoinHook sets the function called after each successful Join
func (s *Session) SetJoinHook(hook JoinHook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onJoin = hook
}

// Host opens a new session with the local participant as authority
func (s *Session) Host() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active {
		return "", model.ErrSessionExists
	}

	s.code = s.random.String(CodeLength, CodeAlphabet)
	s.active = true
	s.authority = true
	s.phase = model.PhaseLobby
	s.members = []*Member{{Participant: s.local, JoinedAt: s.clock.Now()}}

	s.logger.Info("session hosted", slog.String("code", s.code))
	return s.code, nil
}

// Close ends the session and disconnects everyone
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.active {
		return model.ErrNoSession
	}

	s.logger.Info("session closed", slog.String("code", s.code))
	s.code = ""
	s.active = false
	s.authority = false
	s.phase = model.PhaseNone
	s.members = nil
	return nil
}

// Join connects a remote participant
func (s *Session) Join(identity model.Identity, displayName, rank string, ignoresKicks bool) error {
	s.mu.Lock()

	if !s.active {
		s.mu.Unlock()
		return model.ErrNoSession
	}
	if identity == "" {
		s.mu.Unlock()
		return model.ErrInvalidIdentity
	}
	if s.memberLocked(identity) != nil {
		s.mu.Unlock()
		return model.ErrAlreadyInSession
	}

	p := model.Participant{DisplayName: displayName, Identity: identity}
	s.members = append(s.members, &Member{
		Participant:  p,
		Rank:         rank,
		IgnoresKicks: ignoresKicks,
		JoinedAt:     s.clock.Now(),
	})
	hook := s.onJoin
	s.mu.Unlock()

	s.logger.Info("participant joined",
		slog.String("identity", string(identity)),
		slog.String("display_name", displayName),
	)
	if hook != nil {
		hook(p)
	}
	return nil
}

// Leave disconnects a remote participant of their own accord
func (s *Session) Leave(identity model.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.active {
		return model.ErrNoSession
	}
	if identity == s.local.Identity {
		return model.ErrAuthorityTarget
	}
	if !s.removeLocked(identity) {
		return model.ErrNotInSession
	}
	return nil
}

// StartMatch moves the session from the lobby into a match
func (s *Session) StartMatch() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.active {
		return model.ErrNoSession
	}
	if s.phase == model.PhaseMatch {
		return model.ErrMatchInProgress
	}
	s.phase = model.PhaseMatch
	return nil
}

// EndMatch returns the session to the lobby
func (s *Session) EndMatch() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.active {
		return model.ErrNoSession
	}
	if s.phase != model.PhaseMatch {
		return model.ErrNoMatchInProgress
	}
	s.phase = model.PhaseLobby
	for _, m := range s.members {
		m.Freezes = 0
	}
	return nil
}

// SetAuthority hands the host role to or from the local participant
func (s *Session) SetAuthority(isAuthority bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.active {
		return model.ErrNoSession
	}
	s.authority = isAuthority
	return nil
}

// Status returns a copy of the session state
func (s *Session) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	status := Status{
		Code:          s.code,
		InSession:     s.active,
		IsAuthority:   s.active && s.authority,
		Phase:         s.phase,
		LocalIdentity: s.local.Identity,
		Members:       make([]Member, 0, len(s.members)),
	}
	for _, m := range s.members {
		status.Members = append(status.Members, *m)
	}
	return status
}

// Transport

func (s *Session) InSession() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

func (s *Session) IsAuthority() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active && s.authority
}

func (s *Session) LocalIdentity() model.Identity {
	return s.local.Identity
}

func (s *Session) Phase() model.Phase {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.phase
}

func (s *Session) Members() []model.Participant {
	s.mu.RLock()
	defer s.mu.RUnlock()
	members := make([]model.Participant, 0, len(s.members))
	for _, m := range s.members {
		members = append(members, m.Participant)
	}
	return members
}

// Disconnect drops identity through pathway. Requests may be lost, and
// members that ignore kicks stay connected; neither is reported as an error.
func (s *Session) Disconnect(identity model.Identity, pathway model.Pathway) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.active {
		return model.ErrNoSession
	}
	if !slices.Contains(model.PathwaysFor(s.phase), pathway) {
		return fmt.Errorf("pathway %s unavailable in phase %s", pathway, s.phase)
	}
	m := s.memberLocked(identity)
	if m == nil {
		return model.ErrParticipantNotFound
	}

	log := s.logger.With(
		slog.String("identity", string(identity)),
		slog.String("pathway", string(pathway)),
	)
	if random.Chance(s.random, s.dropPercent) {
		log.Debug("disconnect request lost")
		return nil
	}
	if m.IgnoresKicks {
		log.Debug("disconnect request ignored by participant")
		return nil
	}

	s.removeLocked(identity)
	log.Info("participant disconnected")
	return nil
}

// Neutralize freezes identity's avatar. Avatars only exist during a match.
func (s *Session) Neutralize(identity model.Identity, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.active || s.phase != model.PhaseMatch {
		return model.ErrParticipantNotFound
	}
	m := s.memberLocked(identity)
	if m == nil {
		return model.ErrParticipantNotFound
	}
	m.Freezes++
	return nil
}

func (s *Session) RankText(displayName string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, m := range s.members {
		if m.DisplayName == displayName {
			return m.Rank, true
		}
	}
	return "", false
}

func (s *Session) memberLocked(identity model.Identity) *Member {
	for _, m := range s.members {
		if m.Identity == identity {
			return m
		}
	}
	return nil
}

func (s *Session) removeLocked(identity model.Identity) bool {
	for i, m := range s.members {
		if m.Identity == identity {
			s.members = slices.Delete(s.members, i, i+1)
			return true
		}
	}
	return false
}
