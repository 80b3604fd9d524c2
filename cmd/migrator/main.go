package main

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/fastprodman/progression/internal/config"
	"github.com/fastprodman/progression/internal/infra/logging"
	"github.com/fastprodman/progression/internal/infra/pgutils"
	"github.com/fastprodman/progression/pkg/envconf"
)

//go:embed migrations/*.sql
var schemaFS embed.FS

//go:embed test_data/*.sql
var seedFS embed.FS

const seedTable = "seed_migrations"

type migratorConfig struct {
	LogLevel slog.Level `env:"APP_LOG_LEVEL" envDefault:"INFO"`
	AppEnv   string     `env:"APP_ENV" envDefault:"dev"`
	// Steps rolls the schema back by that many migrations when negative.
	// Zero migrates all the way up.
	Steps int `env:"MIGRATE_STEPS" envDefault:"0"`

	Postgres config.PostgresConfig
}

func main() {
	err := migrateAll()
	if err != nil {
		slog.Error("migration run failed", "error", err)
		os.Exit(1)
	}

	slog.Info("migration run finished successfully")
}

func migrateAll() error {
	cfg := new(migratorConfig)

	err := envconf.Load(cfg)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.Postgres.DSN == "" {
		return errors.New("PG_DSN is required")
	}

	logging.SetupJSON(cfg.LogLevel)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := pgutils.OpenDB(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	//nolint:errcheck
	defer db.Close()

	schema, err := newMigrate(db, schemaFS, "migrations", postgres.DefaultMigrationsTable)
	if err != nil {
		return fmt.Errorf("schema: %w", err)
	}

	if cfg.Steps < 0 {
		err = schema.Steps(cfg.Steps)
		if err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("roll back %d: %w", -cfg.Steps, err)
		}
		logVersion(schema, "schema rolled back")

		return nil
	}

	err = up(schema)
	if err != nil {
		return fmt.Errorf("schema migrations failed: %w", err)
	}
	logVersion(schema, "schema migrations applied")

	if strings.EqualFold(cfg.AppEnv, "dev") {
		// Seed data is versioned in its own table so its numbering never
		// collides with the schema history.
		seed, err := newMigrate(db, seedFS, "test_data", seedTable)
		if err != nil {
			return fmt.Errorf("seed: %w", err)
		}

		err = up(seed)
		if err != nil {
			return fmt.Errorf("dev seed migrations failed: %w", err)
		}
		logVersion(seed, "dev seed migrations applied")
	}

	return nil
}

func newMigrate(db *sql.DB, fsys embed.FS, dir, table string) (*migrate.Migrate, error) {
	driver, err := postgres.WithInstance(db, &postgres.Config{MigrationsTable: table})
	if err != nil {
		return nil, fmt.Errorf("init postgres driver: %w", err)
	}

	src, err := iofs.New(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("iofs source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return nil, fmt.Errorf("migrate instance: %w", err)
	}

	return m, nil
}

func up(m *migrate.Migrate) error {
	err := m.Up()
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("m.Up: %w", err)
	}

	return nil
}

func logVersion(m *migrate.Migrate, msg string) {
	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		slog.Warn(msg, "version_error", err)
		return
	}

	slog.Info(msg, "version", version, "dirty", dirty)
}
