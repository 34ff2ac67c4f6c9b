package cli

import (
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mcoot/hostguard/internal/api/request"
	"github.com/mcoot/hostguard/internal/api/response"
)

func newBansCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bans",
		Short: "Ban list commands",
	}

	cmd.AddCommand(newBansListCmd())
	cmd.AddCommand(newBansAddCmd())
	cmd.AddCommand(newBansRemoveCmd())
	cmd.AddCommand(newBansToggleCmd())
	cmd.AddCommand(newBansExportCmd())
	cmd.AddCommand(newBansImportCmd())
	cmd.AddCommand(newBansScanCmd())

	return cmd
}

func newBansListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every ban",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result response.BanList
			if err := client.Get(cmd.Context(), "/api/v1/bans", &result); err != nil {
				return err
			}
			output(cmd).Print(result)
			return nil
		},
	}
}

func newBansAddCmd() *cobra.Command {
	var reason string

	cmd := &cobra.Command{
		Use:   "add <identity> <display-name>",
		Short: "Ban an identity",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := request.BanRequest{
				Identity:    args[0],
				DisplayName: args[1],
				Reason:      reason,
			}

			var result response.Ban
			if err := client.Post(cmd.Context(), "/api/v1/bans", req, &result); err != nil {
				return err
			}
			output(cmd).Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&reason, "reason", "", "Ban reason (default Manual)")

	return cmd
}

func newBansRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <identity>",
		Short: "Lift a ban",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := client.Delete(cmd.Context(), "/api/v1/bans/"+url.PathEscape(args[0]), nil); err != nil {
				return err
			}
			output(cmd).PrintMessage(fmt.Sprintf("Unbanned %s", args[0]))
			return nil
		},
	}
}

func newBansToggleCmd() *cobra.Command {
	var displayName string

	cmd := &cobra.Command{
		Use:   "toggle <identity>",
		Short: "Ban the identity if it isn't banned, otherwise unban it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := request.ToggleRequest{DisplayName: displayName}

			var result response.Toggle
			if err := client.Post(cmd.Context(), "/api/v1/bans/"+url.PathEscape(args[0])+"/toggle", req, &result); err != nil {
				return err
			}
			output(cmd).Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&displayName, "name", "", "Display name to record (defaults to the connected name)")

	return cmd
}

func newBansExportCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the ban list as a text blob",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result response.Export
			if err := client.Get(cmd.Context(), "/api/v1/bans/export", &result); err != nil {
				return err
			}

			if file != "" {
				if err := os.WriteFile(file, []byte(result.Blob), 0600); err != nil {
					return fmt.Errorf("write export: %w", err)
				}
				output(cmd).PrintMessage(fmt.Sprintf("Exported %d bans to %s", result.Count, file))
				return nil
			}

			if cfg.jsonOutput() {
				output(cmd).Print(result)
				return nil
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), result.Blob)
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Write the blob to a file instead of stdout")

	return cmd
}

func newBansImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file|->",
		Short: "Replace the ban list with an exported blob",
		Long: `Replace the ban list with an exported blob. Both the current and the
legacy export formats are accepted. Use - to read from stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var data []byte
			var err error
			if args[0] == "-" {
				data, err = io.ReadAll(cmd.InOrStdin())
			} else {
				data, err = os.ReadFile(args[0])
			}
			if err != nil {
				return fmt.Errorf("read import: %w", err)
			}

			req := request.ImportRequest{Blob: strings.TrimSpace(string(data))}

			var result response.Import
			if err := client.Post(cmd.Context(), "/api/v1/bans/import", req, &result); err != nil {
				return err
			}
			output(cmd).Print(result)
			return nil
		},
	}
}

func newBansScanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scan",
		Short: "Ban every connected participant with a formatted display name",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result response.Scan
			if err := client.Post(cmd.Context(), "/api/v1/bans/scan-formatted", nil, &result); err != nil {
				return err
			}
			output(cmd).Print(result)
			return nil
		},
	}
}
