// Package autoban decides whether a participant should be banned
// automatically. It never changes state; the caller acts on the verdict.
package autoban

import (
	"log/slog"

	"github.com/mcoot/hostguard/internal/model"
)

// BanChecker reports existing bans
type BanChecker interface {
	IsBanned(identity model.Identity) bool
}

// RankLookup finds the rank text displayed for a participant
type RankLookup interface {
	RankText(displayName string) (string, bool)
}

// Verdict is the outcome of evaluating one participant
type Verdict struct {
	Ban    bool
	Reason string // Heuristic label, set when Ban is true
	Detail string // What matched: rank text, block list entry or name
}

// Finding pairs a participant with a positive verdict
type Finding struct {
	Participant model.Participant
	Verdict     Verdict
}

// Evaluator applies the auto-ban heuristics
type Evaluator struct {
	bans   BanChecker
	ranks  RankLookup
	logger *slog.Logger
}

// New creates an Evaluator
func New(bans BanChecker, ranks RankLookup, logger *slog.Logger) *Evaluator {
	return &Evaluator{
		bans:   bans,
		ranks:  ranks,
		logger: logger.With(slog.String("component", "autoban")),
	}
}

// Evaluate runs the enabled lobby heuristics against p. Banned participants
// and every phase other than the lobby yield no verdict.
func (e *Evaluator) Evaluate(p model.Participant, phase model.Phase, settings model.Settings) Verdict {
	if e.bans.IsBanned(p.Identity) || phase != model.PhaseLobby {
		return Verdict{}
	}

	if settings.AutoBanInvalidRank {
		if v := e.checkRank(p); v.Ban {
			return v
		}
	}

	if settings.AutoBanOffensiveName {
		if entry, ok := MatchBlockList(p.DisplayName, settings.OffensiveNames); ok {
			return Verdict{Ban: true, Reason: model.ReasonOffensiveName, Detail: entry}
		}
	}

	return Verdict{}
}

func (e *Evaluator) checkRank(p model.Participant) Verdict {
	raw, ok := e.ranks.RankText(p.DisplayName)
	if !ok {
		// Can't see the name plate; never ban on a lookup miss
		e.logger.Debug("rank lookup missed",
			slog.String("identity", string(p.Identity)),
			slog.String("display_name", p.DisplayName),
		)
		return Verdict{}
	}

	rank := NormalizeRank(raw)
	if rank == "" || IsValidRank(rank) {
		return Verdict{}
	}
	return Verdict{Ban: true, Reason: model.ReasonInvalidRank, Detail: rank}
}

// ScanFormatted checks every participant for rich-text formatting in the
// display name. It runs in any phase but only when enabled in settings.
func (e *Evaluator) ScanFormatted(participants []model.Participant, settings model.Settings) []Finding {
	if !settings.AutoBanFormattedName {
		return nil
	}

	var findings []Finding
	for _, p := range participants {
		if e.bans.IsBanned(p.Identity) || !HasFormatting(p.DisplayName) {
			continue
		}
		findings = append(findings, Finding{
			Participant: p,
			Verdict:     Verdict{Ban: true, Reason: model.ReasonFormattedName, Detail: p.DisplayName},
		})
	}
	return findings
}
