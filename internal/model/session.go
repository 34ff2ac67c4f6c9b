package model

// Phase is the state of the session as seen by the local participant
type Phase string

const (
	PhaseNone  Phase = "none"  // Not in a session, or between states
	PhaseLobby Phase = "lobby" // Pre-match; participants can be kicked directly
	PhaseMatch Phase = "match" // Active match
)

// Pathway names one way of asking the transport to drop a participant.
// Pathways are unreliable: success is never acknowledged.
type Pathway string

const (
	PathwayLobbyKick Pathway = "lobby_kick"
	PathwayMatchKick Pathway = "match_kick"
	PathwayPeerClose Pathway = "peer_close"
)

// PathwaysFor returns every disconnect pathway available in the given phase
func PathwaysFor(phase Phase) []Pathway {
	switch phase {
	case PhaseLobby:
		return []Pathway{PathwayLobbyKick, PathwayPeerClose}
	case PhaseMatch:
		return []Pathway{PathwayMatchKick, PathwayPeerClose}
	default:
		return nil
	}
}
