package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"

	"github.com/mcoot/hostguard/internal/api/response"
)

var (
	heading = color.New(color.Bold).SprintFunc()
	good    = color.New(color.FgGreen).SprintFunc()
	bad     = color.New(color.FgRed).SprintFunc()
	warn    = color.New(color.FgYellow).SprintFunc()
	faint   = color.New(color.Faint).SprintFunc()
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
	w      io.Writer
}

// NewOutput creates a new Output formatter writing to w
func NewOutput(format string, w io.Writer) *Output {
	return &Output{format: format, w: w}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == FormatJSON {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == FormatJSON {
		o.printJSON(map[string]string{"message": msg})
	} else {
		_, _ = fmt.Fprintln(o.w, msg)
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case response.Health:
		o.printHealth(v)
	case response.BanList:
		o.printBanList(v)
	case response.Ban:
		o.printBan(v)
	case response.Toggle:
		o.printToggle(v)
	case response.Import:
		_, _ = fmt.Fprintf(o.w, "Imported %d bans\n", v.Count)
	case response.Scan:
		o.printScan(v)
	case response.Participants:
		o.printParticipants(v)
	case response.Kicks:
		o.printKicks(v)
	case response.Settings:
		o.printSettings(v)
	case response.Session:
		o.printSession(v)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

func (o *Output) printHealth(h response.Health) {
	_, _ = fmt.Fprintf(o.w, "Status: %s\n", good(h.Status))
	_, _ = fmt.Fprintf(o.w, "In session: %s\n", yesNo(h.InSession))
	_, _ = fmt.Fprintf(o.w, "Authority: %s\n", yesNo(h.IsAuthority))
	_, _ = fmt.Fprintf(o.w, "Phase: %s\n", h.Phase)
}

func (o *Output) printBanList(l response.BanList) {
	_, _ = fmt.Fprintf(o.w, "%s (%d)\n", heading("Bans"), l.Count)
	if l.Count == 0 {
		return
	}
	tw := tabwriter.NewWriter(o.w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "IDENTITY\tNAME\tREASON\tBANNED AT")
	for _, b := range l.Bans {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", b.Identity, b.DisplayName, b.Reason, b.BannedAt.Format(time.DateTime))
	}
	_ = tw.Flush()
}

func (o *Output) printBan(b response.Ban) {
	_, _ = fmt.Fprintf(o.w, "%s %s (%s)\n", bad("Banned"), b.DisplayName, b.Identity)
	_, _ = fmt.Fprintf(o.w, "Reason: %s\n", b.Reason)
}

func (o *Output) printToggle(t response.Toggle) {
	if t.Banned {
		_, _ = fmt.Fprintf(o.w, "%s %s\n", bad("Banned"), t.Identity)
	} else {
		_, _ = fmt.Fprintf(o.w, "%s %s\n", good("Unbanned"), t.Identity)
	}
}

func (o *Output) printScan(s response.Scan) {
	if len(s.Banned) == 0 {
		_, _ = fmt.Fprintln(o.w, "No formatted names found")
		return
	}
	_, _ = fmt.Fprintf(o.w, "%s %d participants:\n", bad("Banned"), len(s.Banned))
	for _, f := range s.Banned {
		_, _ = fmt.Fprintf(o.w, "  - %s (%s) %s\n", f.DisplayName, f.Identity, faint(f.Reason))
	}
}

func (o *Output) printParticipants(p response.Participants) {
	_, _ = fmt.Fprintf(o.w, "%s (%d)\n", heading("Participants"), len(p.Participants))
	for _, m := range p.Participants {
		_, _ = fmt.Fprintf(o.w, "  - %s (%s)\n", m.DisplayName, m.Identity)
	}
	if len(p.BannedPresent) > 0 {
		_, _ = fmt.Fprintf(o.w, "%s (%d)\n", bad("Banned but connected"), len(p.BannedPresent))
		for _, m := range p.BannedPresent {
			_, _ = fmt.Fprintf(o.w, "  - %s (%s)\n", m.DisplayName, m.Identity)
		}
	}
}

func (o *Output) printKicks(k response.Kicks) {
	if len(k.Kicks) == 0 {
		_, _ = fmt.Fprintln(o.w, "No kicks in progress")
		return
	}
	tw := tabwriter.NewWriter(o.w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "IDENTITY\tATTEMPTS\tLAST ATTEMPT\tSOFTLOCKED")
	for _, s := range k.Kicks {
		last := "-"
		if s.LastAttempt != nil {
			last = s.LastAttempt.Format(time.TimeOnly)
		}
		softlocked := "no"
		if s.Softlocked {
			softlocked = warn("yes")
		}
		_, _ = fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", s.Identity, s.Attempts, last, softlocked)
	}
	_ = tw.Flush()
}

func (o *Output) printSettings(s response.Settings) {
	_, _ = fmt.Fprintf(o.w, "Auto-ban invalid rank:    %s\n", onOff(s.AutoBanInvalidRank))
	_, _ = fmt.Fprintf(o.w, "Auto-ban offensive name:  %s\n", onOff(s.AutoBanOffensiveName))
	_, _ = fmt.Fprintf(o.w, "Auto-ban formatted name:  %s\n", onOff(s.AutoBanFormattedName))
	_, _ = fmt.Fprintf(o.w, "Offensive names:          %s\n", s.OffensiveNames)
	_, _ = fmt.Fprintf(o.w, "Toggle key:               %s\n", s.ToggleKey)
}

func (o *Output) printSession(s response.Session) {
	if !s.InSession {
		_, _ = fmt.Fprintln(o.w, "Not in a session")
		return
	}
	_, _ = fmt.Fprintf(o.w, "Session: %s\n", heading(s.Code))
	_, _ = fmt.Fprintf(o.w, "Phase: %s\n", s.Phase)
	_, _ = fmt.Fprintf(o.w, "Authority: %s\n", yesNo(s.IsAuthority))
	_, _ = fmt.Fprintf(o.w, "Members (%d):\n", len(s.Members))
	for _, m := range s.Members {
		var tags []string
		if m.Identity == s.LocalIdentity {
			tags = append(tags, "local")
		}
		if m.Rank != "" {
			tags = append(tags, m.Rank)
		}
		if m.IgnoresKicks {
			tags = append(tags, warn("ignores kicks"))
		}
		if m.Freezes > 0 {
			tags = append(tags, fmt.Sprintf("frozen x%d", m.Freezes))
		}
		suffix := ""
		if len(tags) > 0 {
			suffix = " [" + strings.Join(tags, ", ") + "]"
		}
		_, _ = fmt.Fprintf(o.w, "  - %s (%s)%s\n", m.DisplayName, m.Identity, suffix)
	}
}

func yesNo(b bool) string {
	if b {
		return good("yes")
	}
	return "no"
}

func onOff(b bool) string {
	if b {
		return good("on")
	}
	return "off"
}
