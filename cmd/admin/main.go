package main

import (
	"context"
	"fmt"
	"os"

	"mt5_gateway/internal/modules/config"
	"mt5_gateway/internal/modules/store"
	"mt5_gateway/internal/modules/store/service"

	"github.com/spf13/cobra"
)

// rootConfig общие флаги для всех подкоманд.
type rootConfig struct {
	configPath string
	envFile    string
}

func (rc *rootConfig) load() (*config.Config, error) {
	if rc.configPath == "" {
		return config.NewConfig()
	}
	return config.Load(rc.configPath, rc.envFile)
}

func (rc *rootConfig) withRepo(ctx context.Context, fn func(repo service.Repository) error) error {
	cfg, err := rc.load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	repo, err := store.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer repo.Close()
	return fn(repo)
}

func newRootCmd() *cobra.Command {
	rc := &rootConfig{}

	cmd := &cobra.Command{
		Use:           "admin",
		Short:         "Administrative tools for the MT5 gateway (users, API tokens)",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&rc.configPath, "config", "", "path to YAML config (default: $CONFIG_DIR/$CONFIG_FILE)")
	cmd.PersistentFlags().StringVar(&rc.envFile, "env-file", ".env", "optional .env file with overrides")

	cmd.AddCommand(
		newUserCmd(rc),
		newTokenCmd(rc),
	)
	return cmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
