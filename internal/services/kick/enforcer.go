// Package kick removes participants from a session whose transport has no
// acknowledged kick. Every request is retried a bounded number of times and
// escalates to a softlock when the target survives all attempts mid-match.
package kick

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/mcoot/hostguard/internal/dependencies/clock"
	"github.com/mcoot/hostguard/internal/model"
	"github.com/mcoot/hostguard/internal/session"
)

const tracerName = "github.com/mcoot/hostguard/internal/services/kick"

// Config bounds the retry behavior
type Config struct {
	MaxAttempts  int
	Cooldown     time.Duration // Minimum gap between attempts, and the re-check delay
	RemovalGrace time.Duration // How long a kicked non-banned identity stays hidden
}

// DefaultConfig returns the default retry bounds
func DefaultConfig() Config {
	return Config{
		MaxAttempts:  3,
		Cooldown:     3 * time.Second,
		RemovalGrace: 10 * time.Second,
	}
}

// Softlocker is the escalation target for participants that cannot be kicked
type Softlocker interface {
	Start(identity model.Identity, displayName string)
	Stop(identity model.Identity)
	Active(identity model.Identity) bool
}

// Roster is the live participant view shown to the operator
type Roster interface {
	Drop(identity model.Identity)
}

type tracking struct {
	attempts    int
	lastAttempt time.Time
	recheck     clock.Timer
	recheckSeq  int
}

// Enforcer tracks kick attempts per identity. It is not safe for concurrent
// use; timers it schedules must be delivered on the caller's loop.
type Enforcer struct {
	transport session.Transport
	softlock  Softlocker
	roster    Roster
	clock     clock.Clock
	cfg       Config
	observer  model.Observer
	logger    *slog.Logger
	tracer    trace.Tracer

	tracked map[model.Identity]*tracking
	removed map[model.Identity]time.Time
}

// New creates an Enforcer. observer may be nil.
func New(
	transport session.Transport,
	softlock Softlocker,
	clk clock.Clock,
	cfg Config,
	observer model.Observer,
	logger *slog.Logger,
) *Enforcer {
	return &Enforcer{
		transport: transport,
		softlock:  softlock,
		clock:     clk,
		cfg:       cfg,
		observer:  observer,
		logger:    logger.With(slog.String("component", "kick")),
		tracer:    otel.Tracer(tracerName),
		tracked:   make(map[model.Identity]*tracking),
		removed:   make(map[model.Identity]time.Time),
	}
}

// SetRoster sets the view that kicked non-banned identities are dropped from
func (e *Enforcer) SetRoster(r Roster) {
	e.roster = r
}

// RequestKick asks for identity to be removed from the session.
// isBannedTarget is false for one-off kicks of participants that are not
// banned; those are hidden from the roster for the grace window.
func (e *Enforcer) RequestKick(identity model.Identity, displayName string, isBannedTarget bool) {
	log := e.logger.With(
		slog.String("identity", string(identity)),
		slog.String("display_name", displayName),
	)

	if identity == e.transport.LocalIdentity() {
		log.Warn("refusing to kick the session authority")
		return
	}
	if !e.transport.IsAuthority() {
		log.Debug("not the session authority, ignoring kick request")
		return
	}

	phase := e.transport.Phase()
	t := e.tracked[identity]
	if t == nil {
		t = &tracking{}
		e.tracked[identity] = t
	}

	if t.attempts >= e.cfg.MaxAttempts {
		if phase == model.PhaseMatch && !e.softlock.Active(identity) {
			log.Info("kick attempts exhausted, escalating to softlock", slog.Int("attempts", t.attempts))
			e.softlock.Start(identity, displayName)
		}
		return
	}

	pathways := model.PathwaysFor(phase)
	if len(pathways) == 0 {
		log.Debug("no disconnect pathway in current phase", slog.String("phase", string(phase)))
		return
	}

	now := e.clock.Now()
	if t.attempts > 0 && now.Sub(t.lastAttempt) < e.cfg.Cooldown {
		return
	}

	t.attempts++
	t.lastAttempt = now
	failures := e.attempt(identity, phase, pathways, t.attempts, log)

	e.notify(model.Event{
		Type:        model.EventKickAttempted,
		Timestamp:   now,
		Identity:    identity,
		DisplayName: displayName,
		Payload:     model.KickAttemptedPayload{Attempt: t.attempts, Phase: phase, Failures: failures},
	})

	if !isBannedTarget {
		if e.roster != nil {
			e.roster.Drop(identity)
		}
		e.removed[identity] = now
	}

	if t.recheck != nil {
		t.recheck.Stop()
	}
	t.recheckSeq++
	seq := t.recheckSeq
	t.recheck = e.clock.AfterFunc(e.cfg.Cooldown, func() {
		e.recheck(identity, displayName, isBannedTarget, t, seq)
	})
}

// attempt fires every pathway and returns how many failed. A failed pathway
// still consumes the attempt.
func (e *Enforcer) attempt(identity model.Identity, phase model.Phase, pathways []model.Pathway, n int, log *slog.Logger) int {
	_, span := e.tracer.Start(context.Background(), "kick.attempt", trace.WithAttributes(
		attribute.String("hostguard.identity", string(identity)),
		attribute.String("hostguard.phase", string(phase)),
		attribute.Int("hostguard.attempt", n),
	))
	defer span.End()

	failures := 0
	for _, p := range pathways {
		if err := e.disconnect(identity, p); err != nil {
			failures++
			span.RecordError(err)
			log.Warn("disconnect pathway failed",
				slog.String("pathway", string(p)),
				slog.Int("attempt", n),
				slog.String("error", err.Error()),
			)
		}
	}
	if failures == len(pathways) {
		span.SetStatus(codes.Error, "all pathways failed")
	}

	log.Info("kick attempted",
		slog.Int("attempt", n),
		slog.Int("max_attempts", e.cfg.MaxAttempts),
		slog.String("phase", string(phase)),
	)
	return failures
}

func (e *Enforcer) disconnect(identity model.Identity, pathway model.Pathway) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("disconnect panicked: %v", r)
		}
	}()
	return e.transport.Disconnect(identity, pathway)
}

func (e *Enforcer) recheck(identity model.Identity, displayName string, isBannedTarget bool, t *tracking, seq int) {
	if e.tracked[identity] != t || t.recheckSeq != seq {
		// Cleared or superseded since this re-check was scheduled. A stopped
		// timer may still be delivered if it had already been queued.
		return
	}
	t.recheck = nil

	if !e.transport.IsAuthority() {
		return
	}

	switch e.transport.Phase() {
	case model.PhaseLobby, model.PhaseMatch:
		if e.present(identity) {
			e.RequestKick(identity, displayName, isBannedTarget)
			return
		}
		e.confirmRemoved(identity, displayName)
	}
}

func (e *Enforcer) present(identity model.Identity) bool {
	return slices.ContainsFunc(e.transport.Members(), func(p model.Participant) bool {
		return p.Identity == identity
	})
}

func (e *Enforcer) confirmRemoved(identity model.Identity, displayName string) {
	attempts := 0
	if t := e.tracked[identity]; t != nil {
		attempts = t.attempts
	}
	e.ClearTracking(identity)
	e.softlock.Stop(identity)

	e.logger.Info("kick confirmed",
		slog.String("identity", string(identity)),
		slog.String("display_name", displayName),
		slog.Int("attempts", attempts),
	)
	e.notify(model.Event{
		Type:        model.EventKickConfirmed,
		Timestamp:   e.clock.Now(),
		Identity:    identity,
		DisplayName: displayName,
	})
}

// ClearTracking forgets the attempts for identity and cancels its re-check
func (e *Enforcer) ClearTracking(identity model.Identity) {
	t, ok := e.tracked[identity]
	if !ok {
		return
	}
	if t.recheck != nil {
		t.recheck.Stop()
	}
	delete(e.tracked, identity)
}

// Release ends every enforcement process for identity: attempts, the grace
// marker and any softlock
func (e *Enforcer) Release(identity model.Identity) {
	e.ClearTracking(identity)
	delete(e.removed, identity)
	e.softlock.Stop(identity)
}

// Reset releases every identity
func (e *Enforcer) Reset() {
	for identity := range e.tracked {
		e.ClearTracking(identity)
	}
	clear(e.removed)
}

// RecentlyRemoved reports whether identity was kicked as a non-banned target
// within the grace window
func (e *Enforcer) RecentlyRemoved(identity model.Identity) bool {
	at, ok := e.removed[identity]
	if !ok {
		return false
	}
	if clock.Elapsed(e.clock, at) >= e.cfg.RemovalGrace {
		delete(e.removed, identity)
		return false
	}
	return true
}

// Status returns the enforcement state of identity
func (e *Enforcer) Status(identity model.Identity) model.KickStatus {
	status := model.KickStatus{
		Identity:   identity,
		Softlocked: e.softlock.Active(identity),
	}
	if t, ok := e.tracked[identity]; ok {
		status.Attempts = t.attempts
		status.LastAttempt = t.lastAttempt
	}
	return status
}

// Statuses returns the state of every tracked identity, ordered by identity
func (e *Enforcer) Statuses() []model.KickStatus {
	statuses := make([]model.KickStatus, 0, len(e.tracked))
	for identity := range e.tracked {
		statuses = append(statuses, e.Status(identity))
	}
	slices.SortFunc(statuses, func(a, b model.KickStatus) int {
		switch {
		case a.Identity < b.Identity:
			return -1
		case a.Identity > b.Identity:
			return 1
		}
		return 0
	})
	return statuses
}

// Attempts returns the attempt count for identity
func (e *Enforcer) Attempts(identity model.Identity) int {
	if t, ok := e.tracked[identity]; ok {
		return t.attempts
	}
	return 0
}

func (e *Enforcer) notify(evt model.Event) {
	if e.observer != nil {
		e.observer.Notify(evt)
	}
}
