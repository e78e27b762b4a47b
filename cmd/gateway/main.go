package main

import (
	"context"
	"log"

	"mt5_gateway/internal/modules/config"
	"mt5_gateway/internal/modules/gateway"
	"mt5_gateway/internal/modules/health"
	"mt5_gateway/internal/modules/http_api"
	"mt5_gateway/internal/modules/notifier"
	"mt5_gateway/internal/modules/store"
	"mt5_gateway/internal/modules/terminal"
	"mt5_gateway/pkg/logger"
	"mt5_gateway/pkg/tracing"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
)

// newFxLogger заодно инициализирует логгер приложения: fx строит его первым.
func newFxLogger(cfg *config.Config) fxevent.Logger {
	if err := logger.Init(cfg.Logging.Level, cfg.Service.Name); err != nil {
		log.Printf("logger init: %v", err)
	}
	return &fxevent.ZapLogger{Logger: logger.L()}
}

func runTracer(lc fx.Lifecycle, cfg *config.Config) error {
	tracing.SetServiceName(cfg.Service.Name)
	_, closer, err := tracing.InitTracer(tracing.Config{Host: cfg.Tracing.Host, Port: cfg.Tracing.Port})
	if err != nil {
		return err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			closer()
			logger.Sync()
			return nil
		},
	})
	return nil
}

func main() {
	app := fx.New(
		fx.WithLogger(newFxLogger),
		config.Module(),
		fx.Invoke(runTracer),
		store.Module(),
		terminal.Module(),
		gateway.Module(),
		notifier.Module(),
		http_api.Module(),
		health.Module(),
	)
	if err := app.Err(); err != nil {
		log.Fatal(err)
	}
	app.Run()
}
