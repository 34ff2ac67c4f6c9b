package response

import (
	"time"

	"github.com/mcoot/hostguard/internal/model"
	"github.com/mcoot/hostguard/internal/services/autoban"
	"github.com/mcoot/hostguard/internal/session/sim"
)

// Health is the response for the health endpoint
type Health struct {
	Status      string `json:"status"`
	InSession   bool   `json:"in_session"`
	IsAuthority bool   `json:"is_authority"`
	Phase       string `json:"phase"`
}

// Ban represents a ban record in API responses
type Ban struct {
	Identity    string    `json:"identity"`
	DisplayName string    `json:"display_name"`
	BannedAt    time.Time `json:"banned_at"`
	Reason      string    `json:"reason"`
}

// BanFromModel converts a model.BanRecord to a response Ban
func BanFromModel(r model.BanRecord) Ban {
	return Ban{
		Identity:    string(r.Identity),
		DisplayName: r.DisplayName,
		BannedAt:    r.BannedAt,
		Reason:      r.Reason,
	}
}

// BanList is the response for listing bans
type BanList struct {
	Bans  []Ban `json:"bans"`
	Count int   `json:"count"`
}

// BanListFromModel converts ban records
func BanListFromModel(records []model.BanRecord) BanList {
	bans := make([]Ban, len(records))
	for i, r := range records {
		bans[i] = BanFromModel(r)
	}
	return BanList{Bans: bans, Count: len(bans)}
}

// Toggle is the response for toggling a ban
type Toggle struct {
	Identity string `json:"identity"`
	Banned   bool   `json:"banned"`
}

// Export is the ban list in its canonical encoding
type Export struct {
	Blob  string `json:"blob"`
	Count int    `json:"count"`
}

// Import is the response for importing a ban list
type Import struct {
	Count int `json:"count"`
}

// Finding is a participant banned by a heuristic scan
type Finding struct {
	Identity    string `json:"identity"`
	DisplayName string `json:"display_name"`
	Reason      string `json:"reason"`
	Detail      string `json:"detail,omitempty"`
}

// Scan is the response for the formatted-name scan
type Scan struct {
	Banned []Finding `json:"banned"`
}

// ScanFromModel converts autoban findings
func ScanFromModel(findings []autoban.Finding) Scan {
	banned := make([]Finding, len(findings))
	for i, f := range findings {
		banned[i] = Finding{
			Identity:    string(f.Participant.Identity),
			DisplayName: f.Participant.DisplayName,
			Reason:      f.Verdict.Reason,
			Detail:      f.Verdict.Detail,
		}
	}
	return Scan{Banned: banned}
}

// Participant represents a connected participant
type Participant struct {
	Identity    string `json:"identity"`
	DisplayName string `json:"display_name"`
}

// ParticipantsFromModel converts participants
func ParticipantsFromModel(ps []model.Participant) []Participant {
	result := make([]Participant, len(ps))
	for i, p := range ps {
		result[i] = Participant{Identity: string(p.Identity), DisplayName: p.DisplayName}
	}
	return result
}

// Participants is the response for the participant listing
type Participants struct {
	// Participants is the live roster, without banned or recently kicked
	// identities
	Participants []Participant `json:"participants"`
	// BannedPresent lists banned identities that are still connected
	BannedPresent []Participant `json:"banned_present"`
}

// KickStatus represents the enforcement state of one identity
type KickStatus struct {
	Identity    string     `json:"identity"`
	Attempts    int        `json:"attempts"`
	LastAttempt *time.Time `json:"last_attempt,omitempty"`
	Softlocked  bool       `json:"softlocked"`
}

// KickStatusFromModel converts a model.KickStatus
func KickStatusFromModel(s model.KickStatus) KickStatus {
	status := KickStatus{
		Identity:   string(s.Identity),
		Attempts:   s.Attempts,
		Softlocked: s.Softlocked,
	}
	if !s.LastAttempt.IsZero() {
		last := s.LastAttempt
		status.LastAttempt = &last
	}
	return status
}

// Kicks is the response for the kick listing
type Kicks struct {
	Kicks      []KickStatus `json:"kicks"`
	Softlocked []string     `json:"softlocked"`
}

// KicksFromModel converts enforcement state
func KicksFromModel(statuses []model.KickStatus, softlocked []model.Identity) Kicks {
	kicks := Kicks{
		Kicks:      make([]KickStatus, len(statuses)),
		Softlocked: make([]string, len(softlocked)),
	}
	for i, s := range statuses {
		kicks.Kicks[i] = KickStatusFromModel(s)
	}
	for i, id := range softlocked {
		kicks.Softlocked[i] = string(id)
	}
	return kicks
}

// Settings represents the moderation settings
type Settings struct {
	AutoBanInvalidRank   bool   `json:"auto_ban_invalid_rank"`
	AutoBanOffensiveName bool   `json:"auto_ban_offensive_name"`
	AutoBanFormattedName bool   `json:"auto_ban_formatted_name"`
	OffensiveNames       string `json:"offensive_names"`
	ToggleKey            string `json:"toggle_key"`
}

// SettingsFromModel converts model.Settings
func SettingsFromModel(s model.Settings) Settings {
	return Settings{
		AutoBanInvalidRank:   s.AutoBanInvalidRank,
		AutoBanOffensiveName: s.AutoBanOffensiveName,
		AutoBanFormattedName: s.AutoBanFormattedName,
		OffensiveNames:       s.OffensiveNames,
		ToggleKey:            s.ToggleKey,
	}
}

// Event represents an engine event on the SSE stream
type Event struct {
	Type        string    `json:"type"`
	Timestamp   time.Time `json:"timestamp"`
	Identity    string    `json:"identity,omitempty"`
	DisplayName string    `json:"display_name,omitempty"`
	Payload     any       `json:"payload,omitempty"`
}

// EventFromModel converts a model.Event
func EventFromModel(evt model.Event) Event {
	return Event{
		Type:        string(evt.Type),
		Timestamp:   evt.Timestamp,
		Identity:    string(evt.Identity),
		DisplayName: evt.DisplayName,
		Payload:     payloadFromModel(evt.Payload),
	}
}

func payloadFromModel(payload any) any {
	switch p := payload.(type) {
	case model.BanAddedPayload:
		return map[string]any{"reason": p.Reason}
	case model.BansLoadedPayload:
		return map[string]any{"count": p.Count, "legacy": p.Legacy}
	case model.KickAttemptedPayload:
		return map[string]any{"attempt": p.Attempt, "phase": string(p.Phase), "failures": p.Failures}
	case model.AuthorityChangedPayload:
		return map[string]any{"is_authority": p.IsAuthority}
	default:
		return nil
	}
}

// SessionMember represents a member of the simulated session
type SessionMember struct {
	Identity     string    `json:"identity"`
	DisplayName  string    `json:"display_name"`
	Rank         string    `json:"rank,omitempty"`
	IgnoresKicks bool      `json:"ignores_kicks,omitempty"`
	JoinedAt     time.Time `json:"joined_at"`
	Freezes      int       `json:"freezes,omitempty"`
}

// Session represents the simulated session
type Session struct {
	Code          string          `json:"code,omitempty"`
	InSession     bool            `json:"in_session"`
	IsAuthority   bool            `json:"is_authority"`
	Phase         string          `json:"phase"`
	LocalIdentity string          `json:"local_identity"`
	Members       []SessionMember `json:"members"`
}

// SessionFromStatus converts a sim.Status
func SessionFromStatus(s sim.Status) Session {
	session := Session{
		Code:          s.Code,
		InSession:     s.InSession,
		IsAuthority:   s.IsAuthority,
		Phase:         string(s.Phase),
		LocalIdentity: string(s.LocalIdentity),
		Members:       make([]SessionMember, len(s.Members)),
	}
	for i, m := range s.Members {
		session.Members[i] = SessionMember{
			Identity:     string(m.Identity),
			DisplayName:  m.DisplayName,
			Rank:         m.Rank,
			IgnoresKicks: m.IgnoresKicks,
			JoinedAt:     m.JoinedAt,
			Freezes:      m.Freezes,
		}
	}
	return session
}
