package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mcoot/hostguard/internal/api/response"
)

const healthRetryInterval = 250 * time.Millisecond

func newHealthCmd() *cobra.Command {
	var wait time.Duration

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check server health",
		Long: `Report whether the server is up, in a session and holding authority.
With --wait, keep retrying until the server answers or the duration passes.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			health, err := fetchHealth(cmd.Context(), wait)
			if err != nil {
				return err
			}
			output(cmd).Print(health)
			return nil
		},
	}

	cmd.Flags().DurationVar(&wait, "wait", 0, "Retry until the server is reachable, up to this long")
	return cmd
}

func fetchHealth(ctx context.Context, wait time.Duration) (response.Health, error) {
	var health response.Health
	err := client.Get(ctx, "/api/v1/health", &health)
	if err == nil || wait <= 0 {
		return health, err
	}

	ctx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()

	ticker := time.NewTicker(healthRetryInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return health, fmt.Errorf("server not healthy after %s: %w", wait, err)
		case <-ticker.C:
			if err = client.Get(ctx, "/api/v1/health", &health); err == nil {
				return health, nil
			}
		}
	}
}
