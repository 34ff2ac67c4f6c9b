package model

import "time"

// Identity is the stable, opaque account token of a participant.
// Display names are not unique; identities are.
type Identity string

// Participant is a snapshot of one connected member of the session
type Participant struct {
	DisplayName string
	Identity    Identity
}

// Well-known ban reasons
const (
	ReasonManual    = "Manual"
	ReasonAutomatic = "Automatic"

	// Heuristic labels
	ReasonInvalidRank   = "Invalid Rank"
	ReasonOffensiveName = "Offensive Name"
	ReasonFormattedName = "Formatted Name"
)

// BanRecord is one entry of the persistent ban registry
type BanRecord struct {
	Identity    Identity
	DisplayName string
	BannedAt    time.Time
	Reason      string
}

// KickStatus is a read-only view of the enforcement state for one identity
type KickStatus struct {
	Identity    Identity
	Attempts    int
	LastAttempt time.Time
	Softlocked  bool
}
