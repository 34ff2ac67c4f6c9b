package cli

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mcoot/hostguard/internal/api/request"
	"github.com/mcoot/hostguard/internal/api/response"
)

func newSessionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Simulated session commands",
	}

	cmd.AddCommand(newSessionStatusCmd())
	cmd.AddCommand(newSessionHostCmd())
	cmd.AddCommand(newSessionCloseCmd())
	cmd.AddCommand(newSessionJoinCmd())
	cmd.AddCommand(newSessionLeaveCmd())
	cmd.AddCommand(newSessionStartCmd())
	cmd.AddCommand(newSessionEndCmd())
	cmd.AddCommand(newSessionAuthorityCmd())

	return cmd
}

// sessionCall performs a request that answers with the session state and
// prints it
func sessionCall(cmd *cobra.Command, method, path string, body any) error {
	var result response.Session
	if err := client.Do(cmd.Context(), method, path, body, &result); err != nil {
		return err
	}
	output(cmd).Print(result)
	return nil
}

func newSessionStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return sessionCall(cmd, http.MethodGet, "/api/v1/session", nil)
		},
	}
}

func newSessionHostCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "host",
		Short: "Host a new session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return sessionCall(cmd, http.MethodPost, "/api/v1/session", nil)
		},
	}
}

func newSessionCloseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "close",
		Short: "Close the session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := client.Delete(cmd.Context(), "/api/v1/session", nil); err != nil {
				return err
			}
			output(cmd).PrintMessage("Session closed")
			return nil
		},
	}
}

func newSessionJoinCmd() *cobra.Command {
	var (
		rank         string
		ignoresKicks bool
	)

	cmd := &cobra.Command{
		Use:   "join <identity> <display-name>",
		Short: "Connect a remote participant",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := request.JoinRequest{
				Identity:     args[0],
				DisplayName:  args[1],
				Rank:         rank,
				IgnoresKicks: ignoresKicks,
			}
			return sessionCall(cmd, http.MethodPost, "/api/v1/session/members", req)
		},
	}

	cmd.Flags().StringVar(&rank, "rank", "", "Rank text shown next to the name")
	cmd.Flags().BoolVar(&ignoresKicks, "ignores-kicks", false, "Participant stays connected when kicked")

	return cmd
}

func newSessionLeaveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "leave <identity>",
		Short: "Disconnect a remote participant of their own accord",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := client.Delete(cmd.Context(), "/api/v1/session/members/"+url.PathEscape(args[0]), nil); err != nil {
				return err
			}
			output(cmd).PrintMessage(fmt.Sprintf("%s left the session", args[0]))
			return nil
		},
	}
}

func newSessionStartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start a match",
		RunE: func(cmd *cobra.Command, args []string) error {
			return sessionCall(cmd, http.MethodPost, "/api/v1/session/match", nil)
		},
	}
}

func newSessionEndCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "end",
		Short: "End the match and return to the lobby",
		RunE: func(cmd *cobra.Command, args []string) error {
			return sessionCall(cmd, http.MethodDelete, "/api/v1/session/match", nil)
		},
	}
}

func newSessionAuthorityCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "authority <true|false>",
		Short: "Hand authority away from or back to the local participant",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			isAuthority, err := strconv.ParseBool(args[0])
			if err != nil {
				return fmt.Errorf("invalid authority %q: %w", args[0], err)
			}
			req := request.AuthorityRequest{IsAuthority: isAuthority}
			return sessionCall(cmd, http.MethodPut, "/api/v1/session/authority", req)
		},
	}
}
