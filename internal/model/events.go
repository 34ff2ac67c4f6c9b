package model

import "time"

// EventType identifies the type of event
type EventType string

const (
	// Ban registry events
	EventBanAdded   EventType = "ban_added"
	EventBanRemoved EventType = "ban_removed"
	EventBansLoaded EventType = "bans_loaded"

	// Enforcement events
	EventKickAttempted   EventType = "kick_attempted"
	EventKickConfirmed   EventType = "kick_confirmed"
	EventSoftlockStarted EventType = "softlock_started"
	EventSoftlockStopped EventType = "softlock_stopped"

	// Session events
	EventSessionEntered   EventType = "session_entered"
	EventSessionLeft      EventType = "session_left"
	EventAuthorityChanged EventType = "authority_changed"
)

// Event is the base structure for all events
type Event struct {
	Type        EventType
	Timestamp   time.Time
	Identity    Identity // Empty for session-wide events
	DisplayName string
	Payload     any // Type-specific data
}

// Observer receives events. Implementations must not block.
type Observer interface {
	Notify(evt Event)
}

// ObserverFunc adapts a function to the Observer interface
type ObserverFunc func(evt Event)

// Notify calls f(evt)
func (f ObserverFunc) Notify(evt Event) { f(evt) }

// BanAddedPayload contains data for ban added events
type BanAddedPayload struct {
	Reason string
}

// BansLoadedPayload contains data for bans loaded events
type BansLoadedPayload struct {
	Count  int
	Legacy bool
}

// KickAttemptedPayload contains data for kick attempted events
type KickAttemptedPayload struct {
	Attempt  int
	Phase    Phase
	Failures int // Pathways that returned an error
}

// AuthorityChangedPayload contains data for authority changed events
type AuthorityChangedPayload struct {
	IsAuthority bool
}
