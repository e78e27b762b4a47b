package store

import (
	"context"
	"fmt"

	"mt5_gateway/internal/modules/config"
	"mt5_gateway/internal/modules/postgres"
	"mt5_gateway/internal/modules/store/service"
	"mt5_gateway/internal/modules/store/service/pg"
	"mt5_gateway/internal/modules/store/service/sqlite"
	"mt5_gateway/pkg/logger"

	"go.uber.org/fx"
)

// Open репозиторий по cfg.Database.Driver. Используется и сервисом, и admin CLI.
func Open(ctx context.Context, cfg *config.Config) (service.Repository, error) {
	switch cfg.Database.Driver {
	case config.DriverPostgres:
		tm, err := postgres.NewTxManager(ctx, cfg.Database.DSN)
		if err != nil {
			return nil, err
		}
		s := pg.New(tm)
		if err := s.Migrate(ctx); err != nil {
			tm.Close()
			return nil, err
		}
		return s, nil
	case config.DriverSQLite:
		return sqlite.New(cfg.Database.DSN)
	default:
		return nil, fmt.Errorf("store: unknown driver %q", cfg.Database.Driver)
	}
}

func Module() fx.Option {
	return fx.Module("store",
		fx.Provide(
			func(lc fx.Lifecycle, cfg *config.Config) (service.Repository, error) {
				repo, err := Open(context.Background(), cfg)
				if err != nil {
					return nil, err
				}
				logger.Info("[STORE] %s repository ready", cfg.Database.Driver)

				lc.Append(fx.Hook{
					OnStop: func(ctx context.Context) error {
						return repo.Close()
					},
				})
				return repo, nil
			},
		),
	)
}
