package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"taskbridge/internal/config"
	"taskbridge/internal/infra/notion"
	"taskbridge/internal/infra/redistore"
)

func checkCmd() *cobra.Command {
	var timeout time.Duration
	var command = &cobra.Command{
		Use:   "check",
		Short: "Verify remote API and redis connectivity",
		RunE: func(cmd *cobra.Command, args []string) error {
			zerolog.SetGlobalLevel(zerolog.InfoLevel)
			cfg := config.Load()

			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()

			store := redistore.New(cfg.Redis)
			if err := store.Connect(ctx); err != nil {
				return err
			}

			remote := notion.New(cfg.Remote)
			if err := remote.Check(ctx); err != nil {
				return fmt.Errorf("remote API check failed: %w", err)
			}
			log.Info().Msg("remote API reachable")
			return nil
		},
	}

	command.Flags().DurationVar(&timeout, "timeout", 15*time.Second, "Overall check timeout")
	return command
}
