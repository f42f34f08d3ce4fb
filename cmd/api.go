package cmd

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"taskbridge/internal/api"
	"taskbridge/internal/config"
	"taskbridge/internal/infra/notion"
	"taskbridge/internal/infra/redistore"
	"taskbridge/internal/mapper"
	"taskbridge/internal/resolver"
	"taskbridge/internal/usecase"
)

func apiCmd() *cobra.Command {
	var port int
	var command = &cobra.Command{
		Use:   "api",
		Short: "Start API server",
		Run: func(cmd *cobra.Command, args []string) {
			zerolog.SetGlobalLevel(zerolog.InfoLevel)
			cfg := config.Load()

			store := redistore.New(cfg.Redis)
			if err := store.Connect(context.Background()); err != nil {
				log.Fatal().Err(err).Msg("redis unavailable")
			}

			remote := notion.New(cfg.Remote)
			orch := &usecase.Orchestrator{
				Remote:   remote,
				Resolver: resolver.New(remote),
				Mapper:   mapper.New(cfg.Remote.AllowedPriorities),
				Users:    store.Users(),
				MaxWalk:  cfg.Remote.MaxWalk,
			}

			server := api.NewServer(api.Deps{
				Tasks:       orch,
				Workspaces:  usecase.Workspaces{Store: store.Workspaces()},
				Users:       usecase.Users{Store: store.Users()},
				CheckRemote: remote.Check,
				CheckStore: func(ctx context.Context) error {
					return store.Rdb.Ping(ctx).Err()
				},
			})
			server.Run(port)
		},
	}

	command.Flags().IntVarP(&port, "port", "p", 8080, "Port to run the server on")
	return command
}
