package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pressly/goose/v3"
	"github.com/spf13/cobra"

	"github.com/angelmondragon/tradedesk-backend/pkg/config"
	"github.com/angelmondragon/tradedesk-backend/pkg/db"
	"github.com/angelmondragon/tradedesk-backend/pkg/logger"
	"github.com/angelmondragon/tradedesk-backend/pkg/migrate"
)

func main() {
	_ = godotenv.Load()
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var dir string

	root := &cobra.Command{
		Use:           "migrate",
		Short:         "Manage the TradeDesk postgres schema with goose",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&dir, "dir", migrate.DefaultDir, "goose migrations directory")

	root.AddCommand(
		&cobra.Command{
			Use:   "create <name>",
			Short: "Write a new timestamped SQL migration",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				path, err := migrate.CreateSQLMigration(dir, args[0])
				if err != nil {
					return fmt.Errorf("create migration: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "created migration:", path)
				return nil
			},
		},
		&cobra.Command{
			Use:   "validate",
			Short: "Check migration file names and goose annotations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				if err := migrate.ValidateDir(dir); err != nil {
					return fmt.Errorf("migration validation failed: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "migration validation passed")
				return nil
			},
		},
		dbCmd("up", "Apply every pending migration", cobra.NoArgs, &dir,
			func(ctx context.Context, m *migrate.Migrator, w io.Writer, _ []string) error {
				results, err := m.Up(ctx)
				printResults(w, results...)
				return err
			}),
		dbCmd("down", "Roll back the latest migration", cobra.NoArgs, &dir,
			func(ctx context.Context, m *migrate.Migrator, w io.Writer, _ []string) error {
				result, err := m.Down(ctx)
				printResults(w, result)
				return err
			}),
		dbCmd("status", "Print applied and pending migrations", cobra.NoArgs, &dir,
			func(ctx context.Context, m *migrate.Migrator, w io.Writer, _ []string) error {
				statuses, err := m.Status(ctx)
				if err != nil {
					return err
				}
				printStatus(w, statuses)
				return nil
			}),
		dbCmd("version <YYYYMMDDHHMMSS|0>", "Migrate up or down to an exact version", cobra.ExactArgs(1), &dir,
			func(ctx context.Context, m *migrate.Migrator, w io.Writer, args []string) error {
				results, err := m.To(ctx, args[0])
				printResults(w, results...)
				return err
			}),
	)
	return root
}

type migrateFunc func(ctx context.Context, m *migrate.Migrator, w io.Writer, args []string) error

func dbCmd(use, short string, args cobra.PositionalArgs, dir *string, run migrateFunc) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  args,
		RunE: func(cmd *cobra.Command, argv []string) error {
			name := strings.Fields(use)[0]
			if name == "version" {
				// Reject a bad stamp before touching the database.
				if _, err := migrate.ParseVersion(argv[0]); err != nil {
					return err
				}
			}
			return withDatabase(cmd.Context(), name, *dir, func(ctx context.Context, sqlDB *sql.DB) error {
				m, err := migrate.New(sqlDB, *dir)
				if err != nil {
					return err
				}
				return run(ctx, m, cmd.OutOrStdout(), argv)
			})
		},
	}
}

func printResults(w io.Writer, results ...*goose.MigrationResult) {
	for _, r := range results {
		if r == nil || r.Source == nil {
			continue
		}
		state := "OK"
		if r.Error != nil {
			state = "FAILED: " + r.Error.Error()
		}
		fmt.Fprintf(w, "%-4s %-48s %8s  %s\n",
			r.Direction, filepath.Base(r.Source.Path), r.Duration.Round(time.Millisecond), state)
	}
}

func printStatus(w io.Writer, statuses []*goose.MigrationStatus) {
	for _, s := range statuses {
		applied := "pending"
		if s.State == goose.StateApplied {
			applied = s.AppliedAt.UTC().Format(time.RFC3339)
		}
		fmt.Fprintf(w, "%-25s %s\n", applied, filepath.Base(s.Source.Path))
	}
}

// withDatabase loads config, opens postgres and hands the raw *sql.DB to fn.
func withDatabase(ctx context.Context, command, dir string, fn func(context.Context, *sql.DB) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logg := logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})
	ctx = logg.WithFields(ctx, map[string]any{
		"env": cfg.App.Env,
		"cmd": command,
		"dir": dir,
	})
	if cfg.FeatureFlags.UseSQLite {
		return fmt.Errorf("goose migrations target postgres; sqlite schemas are auto-migrated on boot")
	}

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer dbClient.Close()

	sqlDB, err := dbClient.DB().DB()
	if err != nil {
		return fmt.Errorf("sql database: %w", err)
	}

	logg.Info(ctx, "migrate ready")
	if err := fn(ctx, sqlDB); err != nil {
		logg.Error(ctx, "migration failed", err)
		return err
	}
	logg.Info(ctx, "migration finished")
	return nil
}
