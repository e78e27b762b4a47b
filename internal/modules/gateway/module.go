package gateway

import (
	"mt5_gateway/internal/modules/config"
	"mt5_gateway/internal/modules/gateway/service"
	terminal "mt5_gateway/internal/modules/terminal/service"

	"go.uber.org/fx"
)

func Module() fx.Option {
	return fx.Module("gateway",
		fx.Provide(
			func(cfg *config.Config) *service.SymbolResolver {
				return service.NewSymbolResolver(cfg.Terminal.SymbolCacheTTL)
			},
			func(s *terminal.Session, r *service.SymbolResolver) *service.Gateway {
				// другой сервер = другой список символов
				s.OnConnect(r.Invalidate)
				return service.New(s, r)
			},
		),
	)
}
