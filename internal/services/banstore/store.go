// Package banstore is the persistent registry of banned identities.
//
// A Store is not safe for concurrent use. The engine serializes every call
// through its loop, which also lets Ban trigger a kick synchronously.
package banstore

import (
	"context"
	"errors"
	"log/slog"

	"github.com/mcoot/hostguard/internal/dependencies/clock"
	"github.com/mcoot/hostguard/internal/model"
	"github.com/mcoot/hostguard/internal/session"
	"github.com/mcoot/hostguard/internal/storage"
)

// Enforcer is the part of the kick enforcer the store drives
type Enforcer interface {
	RequestKick(identity model.Identity, displayName string, isBannedTarget bool)
	Release(identity model.Identity)
}

// Store holds the ban records and tracks unsaved changes
type Store struct {
	storage  storage.BanListStore
	session  session.State
	enforcer Enforcer
	clock    clock.Clock
	observer model.Observer
	logger   *slog.Logger

	records map[model.Identity]model.BanRecord
	dirty   bool
	loadGen int
}

// New creates an empty Store. observer may be nil.
func New(
	store storage.BanListStore,
	state session.State,
	enforcer Enforcer,
	clk clock.Clock,
	observer model.Observer,
	logger *slog.Logger,
) *Store {
	return &Store{
		storage:  store,
		session:  state,
		enforcer: enforcer,
		clock:    clk,
		observer: observer,
		logger:   logger.With(slog.String("component", "banstore")),
		records:  make(map[model.Identity]model.BanRecord),
	}
}

// IsBanned reports whether identity has a ban record
func (s *Store) IsBanned(identity model.Identity) bool {
	_, ok := s.records[identity]
	return ok
}

// Get returns the ban record for identity, if any
func (s *Store) Get(identity model.Identity) (model.BanRecord, bool) {
	r, ok := s.records[identity]
	return r, ok
}

// Len returns the number of ban records
func (s *Store) Len() int {
	return len(s.records)
}

// Records returns all ban records ordered by ban time
func (s *Store) Records() []model.BanRecord {
	records := make([]model.BanRecord, 0, len(s.records))
	for _, r := range s.records {
		records = append(records, r)
	}
	sortRecords(records)
	return records
}

// Dirty reports whether there are changes not yet saved
func (s *Store) Dirty() bool {
	return s.dirty
}

// Ban records a ban. Banning the local authority, an empty identity, or an
// identity that is already banned does nothing. When the local participant
// hosts a lobby the target is kicked immediately.
func (s *Store) Ban(identity model.Identity, displayName, reason string) bool {
	if identity == "" {
		return false
	}
	if identity == s.session.LocalIdentity() {
		s.logger.Warn("refusing to ban the session authority",
			slog.String("identity", string(identity)),
			slog.String("display_name", displayName),
		)
		return false
	}
	if s.IsBanned(identity) {
		return false
	}
	if reason == "" {
		reason = model.ReasonManual
	}

	now := s.clock.Now()
	s.records[identity] = model.BanRecord{
		Identity:    identity,
		DisplayName: displayName,
		BannedAt:    now,
		Reason:      reason,
	}
	s.dirty = true

	s.logger.Info("identity banned",
		slog.String("identity", string(identity)),
		slog.String("display_name", displayName),
		slog.String("reason", reason),
	)
	s.notify(model.Event{
		Type:        model.EventBanAdded,
		Timestamp:   now,
		Identity:    identity,
		DisplayName: displayName,
		Payload:     model.BanAddedPayload{Reason: reason},
	})

	if s.session.IsAuthority() && s.session.Phase() == model.PhaseLobby {
		s.enforcer.RequestKick(identity, displayName, true)
	}
	return true
}

// Unban removes a ban and releases every enforcement process for the identity
func (s *Store) Unban(identity model.Identity) bool {
	record, ok := s.records[identity]
	if !ok {
		return false
	}
	delete(s.records, identity)
	s.dirty = true
	s.enforcer.Release(identity)

	s.logger.Info("identity unbanned",
		slog.String("identity", string(identity)),
		slog.String("display_name", record.DisplayName),
	)
	s.notify(model.Event{
		Type:        model.EventBanRemoved,
		Timestamp:   s.clock.Now(),
		Identity:    identity,
		DisplayName: record.DisplayName,
	})
	return true
}

// Toggle bans identity if it is not banned and unbans it otherwise.
// It reports whether the identity is banned afterwards.
func (s *Store) Toggle(identity model.Identity, displayName string) bool {
	if identity == s.session.LocalIdentity() {
		return false
	}
	if s.IsBanned(identity) {
		s.Unban(identity)
		return false
	}
	return s.Ban(identity, displayName, model.ReasonManual)
}

// Encode renders the registry in the canonical encoding
func (s *Store) Encode() string {
	return Encode(s.Records())
}

// Load replaces the registry with the persisted ban list. A missing list
// yields an empty registry.
func (s *Store) Load(ctx context.Context) error {
	blob, err := s.storage.GetBanList(ctx)
	if err != nil && !errors.Is(err, model.ErrBanListNotFound) {
		return err
	}
	s.LoadString(blob)
	return nil
}

// LoadString replaces the registry with the contents of blob in one step
func (s *Store) LoadString(blob string) int {
	var count int
	s.LoadIncremental(blob, 0, func(next func()) { next() }, func(n int) { count = n })
	return count
}

// LoadIncremental replaces the registry with the contents of blob, parsing
// chunkSize entries per step. Each continuation is handed to schedule so the
// caller can run other work in between. done receives the number of records
// loaded. A chunkSize of zero or less parses everything in one step.
//
// Records banned while a load is in progress are kept; a later Load
// abandons an earlier one.
func (s *Store) LoadIncremental(blob string, chunkSize int, schedule func(next func()), done func(count int)) {
	s.loadGen++
	gen := s.loadGen
	s.records = make(map[model.Identity]model.BanRecord)
	s.dirty = false

	format := DetectFormat(blob)
	entries := splitEntries(blob, format)
	if chunkSize <= 0 {
		chunkSize = len(entries) + 1
	}
	now := s.clock.Now()

	var step func(start int)
	step = func(start int) {
		if gen != s.loadGen {
			return
		}
		end := min(start+chunkSize, len(entries))
		for _, entry := range entries[start:end] {
			record, ok := decodeEntry(entry, format, now)
			if !ok {
				s.logger.Debug("skipping unparseable ban entry")
				continue
			}
			if _, exists := s.records[record.Identity]; exists {
				continue
			}
			s.records[record.Identity] = record
		}
		if end < len(entries) {
			schedule(func() { step(end) })
			return
		}
		s.finishLoad(format)
		if done != nil {
			done(len(s.records))
		}
	}
	step(0)
}

func (s *Store) finishLoad(format Format) {
	// Legacy lists are rewritten in the canonical encoding on the next save
	if format == FormatLegacy {
		s.dirty = true
	}
	s.logger.Info("ban list loaded",
		slog.Int("count", len(s.records)),
		slog.String("format", format.String()),
	)
	s.notify(model.Event{
		Type:      model.EventBansLoaded,
		Timestamp: s.clock.Now(),
		Payload:   model.BansLoadedPayload{Count: len(s.records), Legacy: format == FormatLegacy},
	})
}

// Save writes the registry through the storage backend. Failures are logged
// and leave the store dirty so a later save retries.
func (s *Store) Save(ctx context.Context) error {
	if err := s.storage.SaveBanList(ctx, s.Encode()); err != nil {
		s.logger.Error("failed to save ban list", slog.String("error", err.Error()))
		return err
	}
	s.dirty = false
	return nil
}

func (s *Store) notify(evt model.Event) {
	if s.observer != nil {
		s.observer.Notify(evt)
	}
}
