// Package softlock keeps an unkickable participant frozen for the rest of a
// match.
package softlock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/mcoot/hostguard/internal/dependencies/clock"
	"github.com/mcoot/hostguard/internal/model"
	"github.com/mcoot/hostguard/internal/session"
)

// DefaultInterval is how often a softlocked participant is neutralized
const DefaultInterval = 500 * time.Millisecond

type loop struct {
	displayName string
	done        chan struct{}
	timer       clock.Timer
	ticks       int
}

// Neutralizer runs one repeating neutralization loop per identity.
// It is not safe for concurrent use.
type Neutralizer struct {
	transport session.Transport
	clock     clock.Clock
	interval  time.Duration
	observer  model.Observer
	logger    *slog.Logger

	loops map[model.Identity]*loop
}

// New creates a Neutralizer. observer may be nil.
func New(transport session.Transport, clk clock.Clock, interval time.Duration, observer model.Observer, logger *slog.Logger) *Neutralizer {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Neutralizer{
		transport: transport,
		clock:     clk,
		interval:  interval,
		observer:  observer,
		logger:    logger.With(slog.String("component", "softlock")),
		loops:     make(map[model.Identity]*loop),
	}
}

// Start begins neutralizing identity every interval, replacing any loop
// already running for it. The local authority is never targeted.
func (n *Neutralizer) Start(identity model.Identity, displayName string) {
	if identity == n.transport.LocalIdentity() {
		n.logger.Warn("refusing to softlock the session authority",
			slog.String("identity", string(identity)),
		)
		return
	}
	n.stop(identity, false)

	l := &loop{displayName: displayName, done: make(chan struct{})}
	n.loops[identity] = l
	n.schedule(identity, l)

	n.logger.Info("softlock started",
		slog.String("identity", string(identity)),
		slog.String("display_name", displayName),
	)
	n.notify(model.EventSoftlockStarted, identity, displayName)
}

// Stop ends the loop for identity. Stopping an identity without a loop does
// nothing.
func (n *Neutralizer) Stop(identity model.Identity) {
	n.stop(identity, true)
}

// StopAll ends every loop
func (n *Neutralizer) StopAll() {
	for identity := range n.loops {
		n.stop(identity, true)
	}
}

// Active reports whether identity has a running loop
func (n *Neutralizer) Active(identity model.Identity) bool {
	_, ok := n.loops[identity]
	return ok
}

// Identities returns every identity with a running loop
func (n *Neutralizer) Identities() []model.Identity {
	ids := make([]model.Identity, 0, len(n.loops))
	for id := range n.loops {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Count returns the number of running loops
func (n *Neutralizer) Count() int {
	return len(n.loops)
}

func (n *Neutralizer) schedule(identity model.Identity, l *loop) {
	l.timer = n.clock.AfterFunc(n.interval, func() { n.tick(identity, l) })
}

func (n *Neutralizer) tick(identity model.Identity, l *loop) {
	select {
	case <-l.done:
		return
	default:
	}
	// The next tick is queued even if this one panics, unless the loop was
	// stopped meanwhile
	defer func() {
		select {
		case <-l.done:
		default:
			n.schedule(identity, l)
		}
	}()

	if !n.transport.IsAuthority() {
		n.logger.Info("authority lost, ending softlock", slog.String("identity", string(identity)))
		n.stop(identity, true)
		return
	}

	l.ticks++
	if err := n.neutralize(identity, l.displayName); err != nil {
		level := slog.LevelWarn
		if errors.Is(err, model.ErrParticipantNotFound) {
			level = slog.LevelDebug
		}
		n.logger.Log(context.Background(), level, "neutralize failed",
			slog.String("identity", string(identity)),
			slog.Int("tick", l.ticks),
			slog.String("error", err.Error()),
		)
	}
}

func (n *Neutralizer) neutralize(identity model.Identity, displayName string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("neutralize panicked: %v", r)
		}
	}()
	return n.transport.Neutralize(identity, displayName)
}

func (n *Neutralizer) stop(identity model.Identity, announce bool) {
	l, ok := n.loops[identity]
	if !ok {
		return
	}
	delete(n.loops, identity)
	close(l.done)
	if l.timer != nil {
		l.timer.Stop()
	}

	if announce {
		n.logger.Info("softlock stopped",
			slog.String("identity", string(identity)),
			slog.Int("ticks", l.ticks),
		)
		n.notify(model.EventSoftlockStopped, identity, l.displayName)
	}
}

func (n *Neutralizer) notify(t model.EventType, identity model.Identity, displayName string) {
	if n.observer == nil {
		return
	}
	n.observer.Notify(model.Event{
		Type:        t,
		Timestamp:   n.clock.Now(),
		Identity:    identity,
		DisplayName: displayName,
	})
}
