package main

import (
	"log/slog"
	"time"

	"github.com/fastprodman/progression/internal/config"
)

type apiConfig struct {
	Port            uint16        `env:"APP_PORT" envDefault:"8080"`
	LogLevel        slog.Level    `env:"APP_LOG_LEVEL" envDefault:"INFO"`
	LogFormat       string        `env:"APP_LOG_FORMAT" envDefault:"json"`
	ShutdownTimeout time.Duration `env:"APP_SHUTDOWN_TIMEOUT" envDefault:"10s"`
	Env             string        `env:"APP_ENV" envDefault:"dev"`
	CatalogPath     string        `env:"CATALOG_PATH"`

	Postgres config.PostgresConfig
	Ledger   config.LedgerConfig
	Rewards  config.RewardsConfig
	Jobs     config.JobsConfig
}
