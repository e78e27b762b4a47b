package health

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"mt5_gateway/internal/modules/config"
	"mt5_gateway/internal/modules/health/service"
	store "mt5_gateway/internal/modules/store/service"
	terminal "mt5_gateway/internal/modules/terminal/service"
	"mt5_gateway/pkg/logger"

	"github.com/bytedance/sonic"
	"go.uber.org/fx"
)

const storeProbeTimeout = 2 * time.Second

type Config struct {
	Addr string // например ":8081"
}

func NewConfig(cfg *config.Config) Config {
	return Config{Addr: cfg.AdminAddr()}
}

func NewState(session *terminal.Session, repo store.Repository) *service.State {
	return service.NewState(session.Connected, repo.Ping)
}

func NewMux(state *service.State) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /livez", func(w http.ResponseWriter, r *http.Request) {
		// liveness: процесс жив
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		// readiness: терминал на связи
		if !state.Ready() {
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), storeProbeTimeout)
		defer cancel()

		resp := map[string]any{
			"ready":             state.Ready(),
			"terminalConnected": state.TerminalConnected(),
			"storeOk":           true,
			"uptimeSec":         int64(state.Uptime().Seconds()),
		}
		if err := state.StoreErr(ctx); err != nil {
			resp["storeOk"] = false
			resp["storeError"] = err.Error()
		}

		body, _ := sonic.Marshal(resp)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(body)
	})

	return mux
}

func RunHTTP(lc fx.Lifecycle, cfg Config, mux *http.ServeMux) {
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", cfg.Addr)
			if err != nil {
				return err
			}
			logger.Info("[HEALTH] admin http on %s", cfg.Addr)
			go func() {
				if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("[HEALTH] serve: %v", err)
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
	return fx.Module("health",
		fx.Provide(
			NewState,
			NewConfig,
			NewMux,
		),
		fx.Invoke(RunHTTP),
	)
}
