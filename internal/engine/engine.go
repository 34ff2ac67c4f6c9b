// Package engine ties the moderation services together and runs them on a
// single logical thread. Every mutation, including timer callbacks, is
// serialized through the engine's loop, so the services need no locks.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/mcoot/hostguard/internal/dependencies/clock"
	"github.com/mcoot/hostguard/internal/model"
	"github.com/mcoot/hostguard/internal/services/autoban"
	"github.com/mcoot/hostguard/internal/services/banstore"
	"github.com/mcoot/hostguard/internal/services/kick"
	"github.com/mcoot/hostguard/internal/services/monitor"
	"github.com/mcoot/hostguard/internal/services/softlock"
	"github.com/mcoot/hostguard/internal/session"
	"github.com/mcoot/hostguard/internal/storage"
)

const tracerName = "github.com/mcoot/hostguard/internal/engine"

// Config holds the engine timings
type Config struct {
	Kick             kick.Config
	SoftlockInterval time.Duration
	PollInterval     time.Duration
	SaveInterval     time.Duration
	LoadChunkSize    int           // Ban entries parsed per loop step at startup
	StorageTimeout   time.Duration // Bound on each storage call
}

// DefaultConfig returns the default engine timings
func DefaultConfig() Config {
	return Config{
		Kick:             kick.DefaultConfig(),
		SoftlockInterval: softlock.DefaultInterval,
		PollInterval:     monitor.DefaultInterval,
		SaveInterval:     5 * time.Second,
		LoadChunkSize:    200,
		StorageTimeout:   5 * time.Second,
	}
}

// Engine owns the moderation state
type Engine struct {
	cfg       Config
	transport session.Transport
	storage   storage.Storage
	clock     clock.Clock
	loop      *loop
	logger    *slog.Logger
	tracer    trace.Tracer

	observers []model.Observer

	bans        *banstore.Store
	evaluator   *autoban.Evaluator
	enforcer    *kick.Enforcer
	neutralizer *softlock.Neutralizer
	monitor     *monitor.Monitor
	roster      *Roster

	settings  model.Settings
	lastPhase model.Phase
	saveTimer clock.Timer
	saveDone  chan struct{}

	ready     chan struct{}
	readyOnce sync.Once
}

// New creates an Engine. Until Run is called every operation executes
// inline on the caller.
func New(cfg Config, transport session.Transport, store storage.Storage, clk clock.Clock, logger *slog.Logger) *Engine {
	e := &Engine{
		cfg:       cfg,
		transport: transport,
		storage:   store,
		clock:     clk,
		logger:    logger.With(slog.String("component", "engine")),
		tracer:    otel.Tracer(tracerName),
		roster:    &Roster{},
		settings:  model.DefaultSettings(),
		ready:     make(chan struct{}),
	}
	e.loop = newLoop(e.logger)

	serial := serialClock{Clock: clk, loop: e.loop}
	events := model.ObserverFunc(e.emit)

	e.neutralizer = softlock.New(transport, serial, cfg.SoftlockInterval, events, logger)
	e.enforcer = kick.New(transport, e.neutralizer, serial, cfg.Kick, events, logger)
	e.enforcer.SetRoster(e.roster)
	e.bans = banstore.New(store, transport, e.enforcer, serial, events, logger)
	e.evaluator = autoban.New(e.bans, transport, logger)
	e.monitor = monitor.New(transport, serial, cfg.PollInterval, monitor.Callbacks{
		OnSessionEnter:     e.onSessionEnter,
		OnSessionLeave:     e.onSessionLeave,
		OnAuthorityChanged: e.onAuthorityChanged,
		OnTick:             e.onTick,
	}, logger)
	return e
}

// Subscribe registers an observer for every engine event. Observers are
// called on the engine loop and must not block. Subscribe before Run.
func (e *Engine) Subscribe(o model.Observer) {
	e.observers = append(e.observers, o)
}

func (e *Engine) emit(evt model.Event) {
	for _, o := range e.observers {
		o.Notify(evt)
	}
}

// Run loads persisted state, starts the monitor and the batched save, and
// processes work until ctx is cancelled. Pending changes are saved on exit.
func (e *Engine) Run(ctx context.Context) error {
	return e.loop.run(ctx, e.start, e.shutdown)
}

// Ready is closed once Run has finished loading the persisted ban list,
// including chunks parsed after start returns
func (e *Engine) Ready() <-chan struct{} {
	return e.ready
}

func (e *Engine) markReady() {
	e.readyOnce.Do(func() { close(e.ready) })
}

// Do runs fn on the engine loop and waits for it to finish
func (e *Engine) Do(ctx context.Context, fn func()) error {
	return e.loop.do(ctx, fn)
}

func (e *Engine) start() {
	ctx, cancel := e.storageContext()
	defer cancel()

	if err := e.loadSettings(ctx); err != nil {
		e.logger.Error("failed to load settings, using defaults", slog.String("error", err.Error()))
	}
	if err := e.LoadBans(ctx); err != nil {
		e.logger.Error("failed to load ban list", slog.String("error", err.Error()))
		e.markReady()
	}

	e.monitor.Start()
	e.startSaving()
	e.logger.Info("engine started")
}

func (e *Engine) shutdown() {
	e.monitor.Stop()
	e.stopSaving()
	e.neutralizer.StopAll()
	e.enforcer.Reset()
	e.Flush()
	e.logger.Info("engine stopped")
}

func (e *Engine) storageContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), e.cfg.StorageTimeout)
}

// Persistence

func (e *Engine) loadSettings(ctx context.Context) error {
	settings, err := e.storage.GetSettings(ctx)
	if errors.Is(err, model.ErrSettingsNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	e.settings = *settings
	return nil
}

// LoadBans reads the persisted ban list, parsing it a chunk at a time with
// other engine work interleaved between chunks
func (e *Engine) LoadBans(ctx context.Context) error {
	blob, err := e.storage.GetBanList(ctx)
	if err != nil && !errors.Is(err, model.ErrBanListNotFound) {
		return fmt.Errorf("get ban list: %w", err)
	}

	e.bans.LoadIncremental(blob, e.cfg.LoadChunkSize, e.loop.yield, func(int) {
		e.refreshRoster()
		e.markReady()
	})
	return nil
}

// Flush saves the ban list if it has unsaved changes
func (e *Engine) Flush() {
	if !e.bans.Dirty() {
		return
	}
	ctx, cancel := e.storageContext()
	defer cancel()
	// Save logs its own failure and stays dirty for the next flush
	_ = e.bans.Save(ctx)
}

func (e *Engine) startSaving() {
	e.saveDone = make(chan struct{})
	e.scheduleSave(e.saveDone)
}

func (e *Engine) scheduleSave(done chan struct{}) {
	serial := serialClock{Clock: e.clock, loop: e.loop}
	e.saveTimer = serial.AfterFunc(e.cfg.SaveInterval, func() {
		select {
		case <-done:
			return
		default:
		}
		e.Flush()
		e.scheduleSave(done)
	})
}

func (e *Engine) stopSaving() {
	if e.saveDone == nil {
		return
	}
	close(e.saveDone)
	e.saveDone = nil
	if e.saveTimer != nil {
		e.saveTimer.Stop()
	}
}

// Monitor callbacks

func (e *Engine) onSessionEnter() {
	e.lastPhase = e.transport.Phase()
	e.emit(model.Event{Type: model.EventSessionEntered, Timestamp: e.clock.Now()})
}

func (e *Engine) onSessionLeave() {
	e.neutralizer.StopAll()
	e.enforcer.Reset()
	e.roster.Clear()
	e.lastPhase = model.PhaseNone
	e.emit(model.Event{Type: model.EventSessionLeft, Timestamp: e.clock.Now()})
}

func (e *Engine) onAuthorityChanged(isAuthority bool) {
	if !isAuthority {
		e.neutralizer.StopAll()
		e.enforcer.Reset()
	}
	e.emit(model.Event{
		Type:      model.EventAuthorityChanged,
		Timestamp: e.clock.Now(),
		Payload:   model.AuthorityChangedPayload{IsAuthority: isAuthority},
	})
}

func (e *Engine) onTick() {
	phase := e.transport.Phase()
	if phase != e.lastPhase {
		e.logger.Info("session phase changed",
			slog.String("from", string(e.lastPhase)),
			slog.String("to", string(phase)),
		)
		// Neutralization only applies in a match. Attempt counts carry
		// over so an identity exhausted in the lobby escalates at once.
		if e.lastPhase == model.PhaseMatch {
			e.neutralizer.StopAll()
		}
		e.lastPhase = phase
	}

	e.refreshRoster()
	e.stopGoneSoftlocks()
	// Bans are recorded without authority too; the enforcer ignores the
	// kick until authority is held
	e.sweep(phase)
}

// refreshRoster rebuilds the live view from the transport
func (e *Engine) refreshRoster() {
	e.MembershipSnapshot(e.transport.Members())
}

// MembershipSnapshot replaces the roster with a fresh member list
func (e *Engine) MembershipSnapshot(members []model.Participant) {
	local := e.transport.LocalIdentity()
	e.roster.Replace(members, func(p model.Participant) bool {
		return p.Identity != local && !e.bans.IsBanned(p.Identity) && !e.enforcer.RecentlyRemoved(p.Identity)
	})
}

func (e *Engine) stopGoneSoftlocks() {
	for _, id := range e.neutralizer.Identities() {
		if !e.connected(id) {
			e.logger.Info("softlocked participant left", slog.String("identity", string(id)))
			e.enforcer.Release(id)
		}
	}
}

func (e *Engine) connected(identity model.Identity) bool {
	_, ok := e.Member(identity)
	return ok
}

// Member returns the connected participant with identity, banned or not
func (e *Engine) Member(identity model.Identity) (model.Participant, bool) {
	for _, p := range e.transport.Members() {
		if p.Identity == identity {
			return p, true
		}
	}
	return model.Participant{}, false
}

// sweep enforces bans and applies auto-ban heuristics to every connected
// participant except the local one
func (e *Engine) sweep(phase model.Phase) {
	_, span := e.tracer.Start(context.Background(), "monitor.sweep", trace.WithAttributes(
		attribute.String("hostguard.phase", string(phase)),
	))
	defer span.End()

	local := e.transport.LocalIdentity()
	members := e.transport.Members()
	span.SetAttributes(attribute.Int("hostguard.members", len(members)))

	for _, p := range members {
		if p.Identity == local || e.enforcer.RecentlyRemoved(p.Identity) {
			continue
		}
		e.sweepOne(p, phase)
	}
}

func (e *Engine) sweepOne(p model.Participant, phase model.Phase) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("sweep failed for participant",
				slog.String("identity", string(p.Identity)),
				slog.String("display_name", p.DisplayName),
				slog.String("panic", fmt.Sprint(r)),
			)
		}
	}()

	if e.bans.IsBanned(p.Identity) {
		e.enforcer.RequestKick(p.Identity, p.DisplayName, true)
		return
	}
	e.autoBan(p, phase)
}

func (e *Engine) autoBan(p model.Participant, phase model.Phase) {
	verdict := e.evaluator.Evaluate(p, phase, e.settings)
	if !verdict.Ban {
		return
	}
	e.logger.Info("auto-ban heuristic matched",
		slog.String("identity", string(p.Identity)),
		slog.String("display_name", p.DisplayName),
		slog.String("heuristic", verdict.Reason),
		slog.String("detail", verdict.Detail),
	)
	e.bans.Ban(p.Identity, p.DisplayName, model.ReasonAutomatic)
	e.roster.Drop(p.Identity)
}

// Inbound session events

// ParticipantJoined handles a join reported by the transport. Banned
// identities are kicked straight away when the local participant is host;
// everyone else is evaluated for auto-ban.
func (e *Engine) ParticipantJoined(p model.Participant) {
	if p.Identity == e.transport.LocalIdentity() {
		return
	}
	if e.bans.IsBanned(p.Identity) {
		if e.transport.IsAuthority() {
			e.enforcer.RequestKick(p.Identity, p.DisplayName, true)
		}
		return
	}
	if e.transport.IsAuthority() {
		e.autoBan(p, e.transport.Phase())
	}
	e.refreshRoster()
}

// Operator actions

// Ban bans identity. It reports whether a new record was created.
func (e *Engine) Ban(identity model.Identity, displayName, reason string) bool {
	ok := e.bans.Ban(identity, displayName, reason)
	if ok {
		e.roster.Drop(identity)
	}
	return ok
}

// Unban lifts the ban on identity. It reports whether a record was removed.
func (e *Engine) Unban(identity model.Identity) bool {
	ok := e.bans.Unban(identity)
	if ok {
		e.refreshRoster()
	}
	return ok
}

// Toggle flips the ban state of identity and reports whether it is now banned
func (e *Engine) Toggle(identity model.Identity, displayName string) bool {
	banned := e.bans.Toggle(identity, displayName)
	if banned {
		e.roster.Drop(identity)
	} else {
		e.refreshRoster()
	}
	return banned
}

// Kick removes a participant without banning it
func (e *Engine) Kick(identity model.Identity, displayName string) error {
	if identity == e.transport.LocalIdentity() {
		return model.ErrAuthorityTarget
	}
	if !e.transport.IsAuthority() {
		return model.ErrNotAuthority
	}
	if !e.connected(identity) {
		return model.ErrParticipantNotFound
	}
	e.enforcer.RequestKick(identity, displayName, e.bans.IsBanned(identity))
	return nil
}

// ScanFormattedNames bans every connected participant whose display name
// carries rich-text formatting, if that heuristic is enabled
func (e *Engine) ScanFormattedNames() []autoban.Finding {
	local := e.transport.LocalIdentity()
	var candidates []model.Participant
	for _, p := range e.transport.Members() {
		if p.Identity != local {
			candidates = append(candidates, p)
		}
	}

	findings := e.evaluator.ScanFormatted(candidates, e.settings)
	for _, f := range findings {
		e.bans.Ban(f.Participant.Identity, f.Participant.DisplayName, f.Verdict.Reason)
		e.roster.Drop(f.Participant.Identity)
	}
	return findings
}

// ImportBans replaces the ban list with blob, in either encoding, and saves
// it immediately
func (e *Engine) ImportBans(ctx context.Context, blob string) (int, error) {
	// An import replaces any load still in progress
	count := e.bans.LoadString(blob)
	e.markReady()
	if err := e.bans.Save(ctx); err != nil {
		return count, fmt.Errorf("save imported ban list: %w", err)
	}
	e.refreshRoster()
	return count, nil
}

// ExportBans returns the ban list in the canonical encoding
func (e *Engine) ExportBans() string {
	return e.bans.Encode()
}

// UpdateSettings replaces and persists the moderation settings
func (e *Engine) UpdateSettings(ctx context.Context, settings model.Settings) error {
	if err := e.storage.SaveSettings(ctx, &settings); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	e.settings = settings
	return nil
}

// Queries

// Settings returns the current moderation settings
func (e *Engine) Settings() model.Settings {
	return e.settings
}

// Bans returns every ban record ordered by ban time
func (e *Engine) Bans() []model.BanRecord {
	return e.bans.Records()
}

// IsBanned reports whether identity is banned
func (e *Engine) IsBanned(identity model.Identity) bool {
	return e.bans.IsBanned(identity)
}

// Participants returns the live roster
func (e *Engine) Participants() []model.Participant {
	return e.roster.Participants()
}

// BannedPresent returns banned identities that are still connected
func (e *Engine) BannedPresent() []model.Participant {
	var present []model.Participant
	for _, p := range e.transport.Members() {
		if e.bans.IsBanned(p.Identity) {
			present = append(present, p)
		}
	}
	return present
}

// KickStatuses returns the enforcement state of every tracked identity
func (e *Engine) KickStatuses() []model.KickStatus {
	return e.enforcer.Statuses()
}

// Softlocked returns every identity currently being neutralized
func (e *Engine) Softlocked() []model.Identity {
	return e.neutralizer.Identities()
}

// Dirty reports whether the ban list has unsaved changes
func (e *Engine) Dirty() bool {
	return e.bans.Dirty()
}

// Poll runs one monitor iteration immediately
func (e *Engine) Poll() {
	e.monitor.Poll()
}
