package http_api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"mt5_gateway/internal/modules/config"
	gateway "mt5_gateway/internal/modules/gateway/service"
	"mt5_gateway/internal/modules/http_api/service"
	notifier "mt5_gateway/internal/modules/notifier/service"
	store "mt5_gateway/internal/modules/store/service"
	"mt5_gateway/pkg/logger"

	"go.uber.org/fx"
)

func NewServer(gw *gateway.Gateway, repo store.Repository, notify notifier.Notifier) *service.Server {
	return service.NewServer(gw, repo, notify)
}

func RunHTTP(lc fx.Lifecycle, cfg *config.Config, s *service.Server) {
	srv := &http.Server{
		Addr:              cfg.PublicAddr(),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", srv.Addr)
			if err != nil {
				return err
			}
			logger.Info("[HTTP] public api on %s", srv.Addr)
			go func() {
				if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("[HTTP] serve: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}

func Module() fx.Option {
	return fx.Module("http_api",
		fx.Provide(NewServer),
		fx.Invoke(RunHTTP),
	)
}
