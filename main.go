package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"treehole/app"
	"treehole/config"
	"treehole/db"
	"treehole/logger"
)

func setup(configFile string) (*config.Config, *zap.SugaredLogger, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	sugar, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return cfg, sugar.Named(cfg.Server.Name), nil
}

func serve(configFile string) error {
	cfg, logger, err := setup(configFile)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Errorw("failed to close database", "error", err)
		}
	}()

	return a.Run(ctx)
}

func migrate(configFile string) error {
	cfg, logger, err := setup(configFile)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if err := db.Migrate(context.Background(), app.DatabaseConfig(cfg)); err != nil {
		return err
	}
	logger.Infow("schema up to date", "type", cfg.Database.Type, "database", cfg.Database.Database)
	return nil
}

func newRootCommand() *cobra.Command {
	var configFile string

	root := &cobra.Command{
		Use:           "treehole",
		Short:         "Anonymous message board",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(configFile)
		},
	}
	root.PersistentFlags().StringVar(&configFile, "config", "", "config file path (default ./config.yaml or ./config/config.yaml)")

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(configFile)
		},
	})
	root.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			return migrate(configFile)
		},
	})

	return root
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		log.Fatal(err)
	}
}
