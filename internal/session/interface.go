// Package session defines the boundary between the moderation engine and the
// game's peer-to-peer transport.
package session

import "github.com/mcoot/hostguard/internal/model"

// State answers questions about the local participant's view of the session
type State interface {
	// InSession reports whether the local participant is in a session at all
	InSession() bool

	// IsAuthority reports whether the local participant is the session host
	IsAuthority() bool

	// LocalIdentity returns the identity of the local participant
	LocalIdentity() model.Identity

	// Phase returns the current session phase
	Phase() model.Phase

	// Members returns the currently connected participants, including the
	// local participant
	Members() []model.Participant
}

// Transport is everything the engine needs from the game's networking layer
type Transport interface {
	State

	// Disconnect asks the transport to drop a participant through one
	// pathway. A nil error does not mean the participant is gone.
	Disconnect(identity model.Identity, pathway model.Pathway) error

	// Neutralize freezes and teleports the participant's in-match avatar.
	// Returns model.ErrParticipantNotFound when no avatar can be resolved.
	Neutralize(identity model.Identity, displayName string) error

	// RankText returns the raw rank text shown next to a participant's
	// name, if the participant can be found.
	RankText(displayName string) (string, bool)
}
