// Package redistore persists the small mapping tables (workspace → remote
// database, platform user → remote user) as Redis hashes.
package redistore

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"taskbridge/internal/config"
	"taskbridge/internal/ports"
)

var (
	_ ports.WorkspaceStore = (*Workspaces)(nil)
	_ ports.UserStore      = (*Users)(nil)
)

type Store struct {
	Cfg config.Redis
	Rdb *redis.Client
}

func New(cfg config.Redis) *Store {
	log.Info().Msgf("connecting to redis at %s", cfg.Addr)
	c := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return &Store{Cfg: cfg, Rdb: c}
}

func (s *Store) Connect(ctx context.Context) error {
	if err := s.Rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis connection failed: %w", err)
	}
	log.Ctx(ctx).Info().Msg("connected to redis")
	return nil
}

// Workspaces is the workspace mapping table view of the store.
func (s *Store) Workspaces() *Workspaces { return &Workspaces{s: s} }

// Users is the user mapping table view of the store.
func (s *Store) Users() *Users { return &Users{s: s} }

type Workspaces struct {
	s *Store
}

type Users struct {
	s *Store
}

func workspaceKey(platform, platformID string) string {
	return fmt.Sprintf("workspace:%s:%s", platform, platformID)
}

func userKey(platform, platformUserID string) string {
	return fmt.Sprintf("usermap:%s:%s", platform, platformUserID)
}
