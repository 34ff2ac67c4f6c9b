package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/mcoot/hostguard/internal/api/request"
	"github.com/mcoot/hostguard/internal/api/response"
)

func newSettingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Moderation settings commands",
	}

	cmd.AddCommand(newSettingsGetCmd())
	cmd.AddCommand(newSettingsSetCmd())

	return cmd
}

func newSettingsGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get",
		Short: "Show the moderation settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result response.Settings
			if err := client.Get(cmd.Context(), "/api/v1/settings", &result); err != nil {
				return err
			}
			output(cmd).Print(result)
			return nil
		},
	}
}

func newSettingsSetCmd() *cobra.Command {
	var (
		invalidRank    bool
		offensiveName  bool
		formattedName  bool
		offensiveNames string
		toggleKey      string
	)

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Change moderation settings",
		Long: `Change moderation settings. Only the flags given are changed.

Example:
  guardctl settings set --invalid-rank --offensive-names "discord.gg,cheat,spam"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()

			var req request.UpdateSettingsRequest
			if flags.Changed("invalid-rank") {
				req.AutoBanInvalidRank = &invalidRank
			}
			if flags.Changed("offensive-name") {
				req.AutoBanOffensiveName = &offensiveName
			}
			if flags.Changed("formatted-name") {
				req.AutoBanFormattedName = &formattedName
			}
			if flags.Changed("offensive-names") {
				req.OffensiveNames = &offensiveNames
			}
			if flags.Changed("toggle-key") {
				req.ToggleKey = &toggleKey
			}
			if req == (request.UpdateSettingsRequest{}) {
				return errors.New("no settings given")
			}

			var result response.Settings
			if err := client.Patch(cmd.Context(), "/api/v1/settings", req, &result); err != nil {
				return err
			}
			output(cmd).Print(result)
			return nil
		},
	}

	cmd.Flags().BoolVar(&invalidRank, "invalid-rank", false, "Auto-ban participants with an invalid rank")
	cmd.Flags().BoolVar(&offensiveName, "offensive-name", false, "Auto-ban names on the block list")
	cmd.Flags().BoolVar(&formattedName, "formatted-name", false, "Allow banning names with rich-text formatting")
	cmd.Flags().StringVar(&offensiveNames, "offensive-names", "", "Comma-separated block list")
	cmd.Flags().StringVar(&toggleKey, "toggle-key", "", "Key binding for the moderation panel")

	return cmd
}
