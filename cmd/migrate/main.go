// Command migrate manages the postgres schema.
//
//	go run ./cmd/migrate up              # apply all pending migrations
//	go run ./cmd/migrate down            # revert all migrations
//	go run ./cmd/migrate steps -- -1     # revert one migration
//	go run ./cmd/migrate force 2         # mark version 2 as applied
//	go run ./cmd/migrate version         # print the current version
package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/celestiaorg/vidbatch/config"
	"github.com/celestiaorg/vidbatch/internal/db"
	"github.com/celestiaorg/vidbatch/internal/db/migrations"
	"github.com/celestiaorg/vidbatch/internal/logger"
)

var opts = migrations.Options{}

func main() {
	// A missing .env is fine, the environment may already be populated
	_ = godotenv.Load()
	logger.InitializeAndConfigure(logger.Options{Level: config.GetEnv("LOG_LEVEL", "info")})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		logger.Fatalf("Migration failed: %v", err)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "migrate",
		Short:         "Manage the vidbatch database schema",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.DatabaseURL, "db", "", "Database URL (defaults to the DB_* environment)")
	root.PersistentFlags().StringVar(&opts.Source, "path", migrations.DefaultSource, "Location of the migration files")
	root.PersistentFlags().IntVar(&opts.Attempts, "retries", migrations.DefaultAttempts, "Connection attempts before giving up")
	root.PersistentFlags().DurationVar(&opts.Backoff, "retry-wait", migrations.DefaultBackoff, "Wait between connection attempts")

	root.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			RunE: withMigrator(func(_ *cobra.Command, m *migrations.Migrator, _ []string) error {
				return m.Up()
			}),
		},
		&cobra.Command{
			Use:   "down",
			Short: "Revert all migrations",
			RunE: withMigrator(func(_ *cobra.Command, m *migrations.Migrator, _ []string) error {
				return m.Down()
			}),
		},
		&cobra.Command{
			Use:   "steps N",
			Short: "Apply N migrations, or revert them when N is negative",
			Args:  cobra.ExactArgs(1),
			RunE: withMigrator(func(_ *cobra.Command, m *migrations.Migrator, args []string) error {
				n, err := strconv.Atoi(args[0])
				if err != nil {
					return err
				}
				return m.Steps(n)
			}),
		},
		&cobra.Command{
			Use:   "force VERSION",
			Short: "Record VERSION as applied without running it",
			Args:  cobra.ExactArgs(1),
			RunE: withMigrator(func(_ *cobra.Command, m *migrations.Migrator, args []string) error {
				v, err := strconv.Atoi(args[0])
				if err != nil {
					return err
				}
				return m.Force(v)
			}),
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the current schema version",
			RunE: withMigrator(func(*cobra.Command, *migrations.Migrator, []string) error {
				return nil
			}),
		},
	)
	return root
}

// withMigrator opens the migrator, runs fn and prints the resulting schema state
func withMigrator(fn func(*cobra.Command, *migrations.Migrator, []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if opts.DatabaseURL == "" {
			cfg, err := config.Parse()
			if err != nil {
				return err
			}
			sslEnabled := cfg.DBSSLEnabled
			opts.DatabaseURL = db.URL(db.Options{
				Host:       cfg.DBHost,
				User:       cfg.DBUser,
				Password:   cfg.DBPassword,
				DBName:     cfg.DBName,
				Port:       cfg.DBPort,
				SSLEnabled: &sslEnabled,
			})
		}

		m, err := migrations.Open(cmd.Context(), opts)
		if err != nil {
			return err
		}
		defer func() {
			if err := m.Close(); err != nil {
				logger.Warnf("Failed to close migrator: %v", err)
			}
		}()

		if err := fn(cmd, m, args); err != nil {
			return err
		}
		state, err := m.State()
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(state)
	}
}
