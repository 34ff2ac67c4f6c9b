package cli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/mcoot/hostguard/internal/api/response"
)

func newEventsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Stream moderation events",
		Long: `Connect to the server's event stream and print events as they happen.

Events include:
  - ban_added, ban_removed, bans_loaded: Ban list changes
  - kick_attempted, kick_confirmed: Kick progress
  - softlock_started, softlock_stopped: Softlock changes
  - session_entered, session_left, authority_changed: Session edges

Press Ctrl+C to disconnect.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return streamEvents(cmd)
		},
	}

	return cmd
}

// SSEEvent is one parsed event from the stream
type SSEEvent struct {
	Event string
	Data  string
}

func streamEvents(cmd *cobra.Command) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	body, err := client.Stream(ctx, "/api/v1/events")
	if err != nil {
		return err
	}
	defer func() { _ = body.Close() }()

	w := cmd.OutOrStdout()
	jsonOutput := cfg.jsonOutput()
	if !jsonOutput {
		_, _ = fmt.Fprintln(w, "Connected to event stream")
	}

	err = readEvents(body, func(evt SSEEvent) {
		printEvent(w, evt, jsonOutput)
	})
	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("stream error: %w", err)
	}

	if !jsonOutput {
		_, _ = fmt.Fprintln(w, "Disconnected")
	}
	return nil
}

// readEvents parses an SSE stream and calls fn for every complete event
func readEvents(r io.Reader, fn func(SSEEvent)) error {
	scanner := bufio.NewScanner(r)
	var currentEvent string
	var dataLines []string

	for scanner.Scan() {
		line := scanner.Text()

		switch {
		case strings.HasPrefix(line, "event: "):
			currentEvent = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			dataLines = append(dataLines, strings.TrimPrefix(line, "data: "))
		case line == "":
			// End of event
			if currentEvent != "" {
				fn(SSEEvent{Event: currentEvent, Data: strings.Join(dataLines, "\n")})
			}
			currentEvent = ""
			dataLines = nil
		}
	}
	return scanner.Err()
}

func printEvent(w io.Writer, evt SSEEvent, jsonOutput bool) {
	if jsonOutput {
		// Event data is already JSON
		_, _ = fmt.Fprintln(w, evt.Data)
		return
	}

	var decoded response.Event
	if err := json.Unmarshal([]byte(evt.Data), &decoded); err != nil || decoded.Type == "" {
		_, _ = fmt.Fprintf(w, "%s\n", faint(evt.Event))
		return
	}

	line := fmt.Sprintf("[%s] %s", decoded.Timestamp.Local().Format(time.DateTime), eventColor(decoded.Type)(decoded.Type))
	if decoded.Identity != "" {
		line += fmt.Sprintf(" %s (%s)", decoded.DisplayName, decoded.Identity)
	}
	if decoded.Payload != nil {
		payload, _ := json.Marshal(decoded.Payload)
		line += " " + faint(string(payload))
	}
	_, _ = fmt.Fprintln(w, line)
}

func eventColor(eventType string) func(a ...any) string {
	switch eventType {
	case "ban_added", "softlock_started":
		return bad
	case "ban_removed", "kick_confirmed":
		return good
	case "kick_attempted":
		return warn
	default:
		return color.New(color.FgCyan).SprintFunc()
	}
}
