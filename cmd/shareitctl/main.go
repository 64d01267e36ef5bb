package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"shareit/internal/config"
	"shareit/internal/database"
	"shareit/internal/export"
	"shareit/internal/logging"
	"shareit/internal/models"
	"shareit/internal/service"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

type app struct {
	configPath string
	cfg        *config.Config
	logger     zerolog.Logger
	closer     io.Closer
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:          "shareitctl",
		Short:        "Maintenance commands for the shareit server database",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load()
		},
		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if a.closer != nil {
				_ = a.closer.Close()
			}
		},
	}

	defaultConfig := os.Getenv("CONFIG_PATH")
	if defaultConfig == "" {
		defaultConfig = "configs/config.yaml"
	}
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", defaultConfig, "path to config.yaml")

	root.AddCommand(a.migrateCmd(), a.backupCmd(), a.pruneCmd(), a.exportCmd())
	return root
}

func (a *app) load() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.Database.Driver != config.DriverSQLite {
		return fmt.Errorf("shareitctl works with the sqlite driver only, got %q", cfg.Database.Driver)
	}

	logger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	a.cfg = cfg
	a.closer = closer
	a.logger = logger.With().Str("component", "shareitctl").Logger()
	return nil
}

func (a *app) openDB() (*database.DB, error) {
	return database.NewDB(a.cfg.Database.Path, &a.logger)
}

func (a *app) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create missing tables and indexes",
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := a.openDB()
			if err != nil {
				return err
			}
			defer db.Close()
			fmt.Fprintf(cmd.OutOrStdout(), "schema is up to date: %s\n", db.Path())
			return nil
		},
	}
}

func (a *app) backupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backup",
		Short: "Snapshot the database now and prune old snapshots",
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := a.openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			svc := database.NewBackupService(db, a.cfg.Backup, &a.logger)
			path, err := svc.PerformBackup(cmd.Context())
			if err != nil {
				return err
			}
			removed := svc.CleanupOldBackups()
			fmt.Fprintf(cmd.OutOrStdout(), "backup written to %s, %d old snapshot(s) removed\n", path, removed)
			return nil
		},
	}
}

func (a *app) pruneCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "prune",
		Short: "Remove snapshots older than backup.retention_days",
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc := database.NewBackupService(nil, a.cfg.Backup, &a.logger)
			fmt.Fprintf(cmd.OutOrStdout(), "%d old snapshot(s) removed\n", svc.CleanupOldBackups())
			return nil
		},
	}
}

func (a *app) exportCmd() *cobra.Command {
	var (
		ownerID int64
		state   string
		out     string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write an owner's bookings to an xlsx report",
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := models.ParseState(state)
			if err != nil {
				return err
			}

			db, err := a.openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			clock := service.SystemClock()
			bookings := service.NewBookingService(db, clock, nil, &a.logger)

			ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
			defer cancel()
			views, err := bookings.ListOwnerBookings(ctx, ownerID, st, models.Unpaged)
			if err != nil {
				return err
			}

			now := clock.Now()
			if out == "" {
				out = export.FileName(ownerID, st, now)
			}
			f, err := os.Create(out)
			if err != nil {
				return err
			}
			if err := export.WriteOwnerBookings(f, st, views, now); err != nil {
				_ = f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d booking(s) written to %s\n", len(views), out)
			return nil
		},
	}

	cmd.Flags().Int64Var(&ownerID, "owner", 0, "owner user id")
	cmd.Flags().StringVar(&state, "state", string(models.StateAll), "booking state filter")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default bookings_<owner>_<state>_<date>.xlsx)")
	_ = cmd.MarkFlagRequired("owner")
	return cmd
}
