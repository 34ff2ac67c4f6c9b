package cli

import (
	"fmt"
	"net/url"

	"github.com/spf13/cobra"

	"github.com/mcoot/hostguard/internal/api/request"
	"github.com/mcoot/hostguard/internal/api/response"
)

func newParticipantsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "participants",
		Short: "List connected participants",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result response.Participants
			if err := client.Get(cmd.Context(), "/api/v1/participants", &result); err != nil {
				return err
			}
			output(cmd).Print(result)
			return nil
		},
	}
}

func newKickCmd() *cobra.Command {
	var displayName string

	cmd := &cobra.Command{
		Use:   "kick <identity>",
		Short: "Remove a participant from the session without banning it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := request.KickRequest{DisplayName: displayName}
			if err := client.Post(cmd.Context(), "/api/v1/participants/"+url.PathEscape(args[0])+"/kick", req, nil); err != nil {
				return err
			}
			output(cmd).PrintMessage(fmt.Sprintf("Kick requested for %s", args[0]))
			return nil
		},
	}

	cmd.Flags().StringVar(&displayName, "name", "", "Display name for logs (defaults to the connected name)")

	return cmd
}

func newKicksCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "kicks",
		Short: "Show kick attempts and softlocks in progress",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result response.Kicks
			if err := client.Get(cmd.Context(), "/api/v1/kicks", &result); err != nil {
				return err
			}
			output(cmd).Print(result)
			return nil
		},
	}
}
