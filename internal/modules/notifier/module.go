package notifier

import (
	"context"

	"mt5_gateway/internal/modules/config"
	gateway "mt5_gateway/internal/modules/gateway/service"
	"mt5_gateway/internal/modules/notifier/service"
	"mt5_gateway/pkg/logger"

	"go.uber.org/fx"
)

func Module() fx.Option {
	return fx.Module("notifier",
		fx.Provide(
			func(lc fx.Lifecycle, cfg *config.Config, gw *gateway.Gateway) service.Notifier {
				if cfg.Telegram.Token == "" || cfg.Telegram.ChatID == 0 {
					logger.Info("[NOTIFY] telegram not configured, logging events")
					return service.NewStdout()
				}

				tg, err := service.NewTelegram(cfg.Telegram.Token, cfg.Telegram.ChatID, gw)
				if err != nil {
					// бот недоступен, сервис всё равно поднимаем
					logger.Warn("[NOTIFY] telegram init failed: %v", err)
					return service.NewStdout()
				}

				lc.Append(fx.Hook{
					OnStart: func(ctx context.Context) error {
						return tg.Start(context.Background())
					},
					OnStop: func(ctx context.Context) error {
						tg.Stop()
						return nil
					},
				})
				return tg
			},
		),
	)
}
