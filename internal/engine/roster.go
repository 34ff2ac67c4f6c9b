package engine

import (
	"slices"

	"github.com/mcoot/hostguard/internal/model"
)

// Roster is the live view of connected, non-banned participants
type Roster struct {
	participants []model.Participant
}

// Replace sets the roster to members, skipping those rejected by keep
func (r *Roster) Replace(members []model.Participant, keep func(model.Participant) bool) {
	r.participants = r.participants[:0]
	for _, p := range members {
		if keep(p) {
			r.participants = append(r.participants, p)
		}
	}
}

// Drop removes identity from the roster immediately
func (r *Roster) Drop(identity model.Identity) {
	r.participants = slices.DeleteFunc(r.participants, func(p model.Participant) bool {
		return p.Identity == identity
	})
}

// Contains reports whether identity is on the roster
func (r *Roster) Contains(identity model.Identity) bool {
	return slices.ContainsFunc(r.participants, func(p model.Participant) bool {
		return p.Identity == identity
	})
}

// Participants returns a copy of the roster
func (r *Roster) Participants() []model.Participant {
	return slices.Clone(r.participants)
}

// Clear empties the roster
func (r *Roster) Clear() {
	r.participants = nil
}
