package terminal

import (
	"context"

	"mt5_gateway/internal/models"
	"mt5_gateway/internal/modules/config"
	"mt5_gateway/internal/modules/terminal/service"
	"mt5_gateway/pkg/logger"

	"go.uber.org/fx"
)

func credentials(cfg *config.Config) models.Credentials {
	return models.Credentials{
		Login:    cfg.Terminal.Login,
		Password: cfg.Terminal.Password,
		Server:   cfg.Terminal.Server,
	}
}

// Module поднимает мост к терминалу и сессию поверх него.
func Module() fx.Option {
	return fx.Module("terminal",
		fx.Provide(
			func(cfg *config.Config) service.Terminal {
				return service.NewBridge(service.BridgeConfig{
					URL:         cfg.Terminal.BridgeURL,
					CallTimeout: cfg.Terminal.CallTimeout,
					DialTimeout: cfg.Terminal.DialTimeout,
				})
			},
			func(cfg *config.Config, t service.Terminal) *service.Session {
				return service.NewSession(t, credentials(cfg))
			},
		),
		fx.Invoke(func(lc fx.Lifecycle, cfg *config.Config, s *service.Session) {
			lc.Append(fx.Hook{
				OnStart: func(ctx context.Context) error {
					// терминал может подняться позже: не валим старт, EnsureConnected догонит
					var err error
					if cfg.HasCredentials() {
						err = s.Initialize(ctx, credentials(cfg))
					} else {
						err = s.EnsureConnected(ctx)
					}
					if err != nil {
						logger.Warn("[TERMINAL] initial connect failed: %v", err)
					}
					return nil
				},
				OnStop: func(ctx context.Context) error {
					return s.Shutdown(ctx)
				},
			})
		}),
	)
}
