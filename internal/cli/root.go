package cli

import (
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	cfg    *Config
	client *Client
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	var cfgErr error
	if cfg, cfgErr = LoadConfig(); cfgErr != nil {
		cfg = &Config{Output: FormatText}
	}

	rootCmd := &cobra.Command{
		Use:   "guardctl",
		Short: "Operator CLI for the hostguard API",
		Long: `guardctl drives a running hostguard server: the ban list, kicks,
moderation settings, the simulated session and the live event stream.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cfgErr != nil {
				return cfgErr
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			if cfg.NoColor {
				color.NoColor = true
			}

			if err := cfg.LoadToken(); err != nil {
				return err
			}

			client = NewClient(cfg.ServerURL, cfg.Token)
			return nil
		},
		SilenceUsage: true,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfg.ServerURL, "server", cfg.ServerURL, "Server URL (env: GUARDCTL_SERVER)")
	rootCmd.PersistentFlags().StringVar(&cfg.Token, "token", cfg.Token, "Operator token (env: GUARDCTL_TOKEN)")
	rootCmd.PersistentFlags().StringVar(&cfg.TokenFile, "token-file", cfg.TokenFile, "Token file path (env: GUARDCTL_TOKEN_FILE)")
	rootCmd.PersistentFlags().StringVarP(&cfg.Output, "output", "o", cfg.Output, "Output format: text, json (env: GUARDCTL_OUTPUT)")
	rootCmd.PersistentFlags().BoolVar(&cfg.NoColor, "no-color", cfg.NoColor, "Disable colored output (env: NO_COLOR)")

	// Add subcommands
	rootCmd.AddCommand(newHealthCmd())
	rootCmd.AddCommand(newBansCmd())
	rootCmd.AddCommand(newParticipantsCmd())
	rootCmd.AddCommand(newKickCmd())
	rootCmd.AddCommand(newKicksCmd())
	rootCmd.AddCommand(newSettingsCmd())
	rootCmd.AddCommand(newSessionCmd())
	rootCmd.AddCommand(newEventsCmd())

	return rootCmd
}

// output returns the formatter for cmd's stdout
func output(cmd *cobra.Command) *Output {
	return NewOutput(cfg.Output, cmd.OutOrStdout())
}

// Execute runs the root command
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
