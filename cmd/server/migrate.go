package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ignatzorin/disaster-backend/internal/config"
	"github.com/ignatzorin/disaster-backend/internal/db"
	"github.com/ignatzorin/disaster-backend/internal/logger"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply embedded SQL migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			if cfg.DatabaseURL == "" {
				return fmt.Errorf("config: не заданы: DATABASE_URL")
			}
			initLogger(cfg)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runMigrate(ctx, cmd, cfg)
		},
	}
}

func runMigrate(ctx context.Context, cmd *cobra.Command, cfg *config.Config) error {
	conn, err := db.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer func() {
		if err := conn.Close(); err != nil {
			logger.Log.WithError(err).Warn("Ошибка закрытия базы")
		}
	}()

	applied, err := db.RunMigrations(ctx, conn, db.Migrations())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "applied %d migration(s)\n", applied)
	return nil
}
