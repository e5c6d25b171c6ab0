// Package migrations applies the versioned SQL schema under migrations/ with golang-migrate.
package migrations

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres" // postgres driver
	_ "github.com/golang-migrate/migrate/v4/source/file"       // file:// source

	"github.com/celestiaorg/vidbatch/internal/logger"
)

const (
	// DefaultSource is the schema directory relative to the repository root
	DefaultSource = "file://migrations"
	// DefaultAttempts bounds how often Open tries to reach the database
	DefaultAttempts = 5
	// DefaultBackoff is the pause between two Open attempts
	DefaultBackoff = 3 * time.Second
)

// Options locate the schema and the database to migrate
type Options struct {
	Source      string
	DatabaseURL string
	Attempts    int
	Backoff     time.Duration
}

func (o Options) withDefaults() Options {
	if o.Source == "" {
		o.Source = DefaultSource
	}
	if o.Attempts < 1 {
		o.Attempts = DefaultAttempts
	}
	if o.Backoff <= 0 {
		o.Backoff = DefaultBackoff
	}
	return o
}

// State is the schema version recorded by golang-migrate
type State struct {
	Version uint `json:"version"`
	Dirty   bool `json:"dirty"`
	// Empty is set while no migration has been applied
	Empty bool `json:"empty"`
}

// Migrator moves the projects, data files, templates and video jobs schema between versions
type Migrator struct {
	m *migrate.Migrate
}

// Open connects to the schema source and the database. Postgres may still be
// starting, so failures are retried until opts.Attempts is used up or ctx ends.
func Open(ctx context.Context, opts Options) (*Migrator, error) {
	opts = opts.withDefaults()

	var lastErr error
	for attempt := 1; attempt <= opts.Attempts; attempt++ {
		m, err := migrate.New(opts.Source, opts.DatabaseURL)
		if err == nil {
			m.Log = migrateLogger{}
			return &Migrator{m: m}, nil
		}
		lastErr = err
		if attempt == opts.Attempts {
			break
		}

		logger.Warnf("Database not ready for migrations (attempt %d/%d): %v", attempt, opts.Attempts, err)
		timer := time.NewTimer(opts.Backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, fmt.Errorf("opening migrations: %w", ctx.Err())
		case <-timer.C:
		}
	}
	return nil, fmt.Errorf("opening migrations after %d attempts: %w", opts.Attempts, lastErr)
}

// Up applies every pending migration
func (m *Migrator) Up() error {
	return m.run("apply migrations", m.m.Up)
}

// Down reverts every applied migration
func (m *Migrator) Down() error {
	return m.run("revert migrations", m.m.Down)
}

// Steps applies n migrations, or reverts -n when n is negative
func (m *Migrator) Steps(n int) error {
	return m.run(fmt.Sprintf("move %d steps", n), func() error { return m.m.Steps(n) })
}

// Force records version without running anything, clearing the dirty flag
func (m *Migrator) Force(version int) error {
	if err := m.m.Force(version); err != nil {
		return fmt.Errorf("force version %d: %w", version, err)
	}
	return nil
}

// State reports the current schema version
func (m *Migrator) State() (State, error) {
	version, dirty, err := m.m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return State{Empty: true}, nil
	}
	if err != nil {
		return State{}, fmt.Errorf("read schema version: %w", err)
	}
	return State{Version: version, Dirty: dirty}, nil
}

// Close releases the source and database handles
func (m *Migrator) Close() error {
	srcErr, dbErr := m.m.Close()
	return errors.Join(srcErr, dbErr)
}

func (m *Migrator) run(what string, fn func() error) error {
	err := fn()
	if errors.Is(err, migrate.ErrNoChange) {
		logger.Info("Schema is already at the requested version")
		return nil
	}
	if err != nil {
		return fmt.Errorf("%s: %w", what, err)
	}
	return nil
}

// migrateLogger routes golang-migrate output through the service logger
type migrateLogger struct{}

func (migrateLogger) Printf(format string, v ...interface{}) {
	logger.Debugf(format, v...)
}

func (migrateLogger) Verbose() bool {
	return false
}
