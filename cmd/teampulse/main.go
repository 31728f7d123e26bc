package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/dropDatabas3/teampulse/internal/app"
	"github.com/dropDatabas3/teampulse/internal/config"
	"github.com/dropDatabas3/teampulse/internal/observability/logger"
	"github.com/dropDatabas3/teampulse/internal/store/pg"
)

// version se inyecta en build time con -ldflags.
var version = "dev"

func main() {
	// .env solo existe en desarrollo; en prod las vars vienen del entorno.
	_ = godotenv.Load()

	var cfgPath string

	root := &cobra.Command{
		Use:           "teampulse",
		Short:         "TeamPulse sign-in service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to the YAML config file")

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			logger.Init(logger.Config{
				Env:         cfg.Env,
				Level:       cfg.LogLevel,
				ServiceName: "teampulse",
				Version:     version,
			})
			defer func() { _ = logger.Sync() }()
			return app.Run(cfg)
		},
	}

	migrate := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			logger.Init(logger.Config{Env: cfg.Env, Level: cfg.LogLevel, ServiceName: "teampulse"})
			defer func() { _ = logger.Sync() }()

			ctx := context.Background()
			store, err := pg.New(ctx, pg.Config{
				DSN:             cfg.Database.DSN,
				MaxOpenConns:    cfg.Database.MaxOpenConns,
				MinIdleConns:    cfg.Database.MinIdleConns,
				ConnMaxLifetime: cfg.Database.ConnMaxLifetime.Std(),
			})
			if err != nil {
				return err
			}
			defer store.Close()
			return store.Migrate(ctx)
		},
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the build version",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Println(version)
		},
	}

	root.AddCommand(serve, migrate, versionCmd)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
