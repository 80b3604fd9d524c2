package config

import "time"

type PostgresConfig struct {
	DSN             string        `env:"PG_DSN"`
	MaxOpenConns    int           `env:"PG_MAX_OPEN_CONNS" envDefault:"20"`
	MaxIdleConns    int           `env:"PG_MAX_IDLE_CONNS" envDefault:"10"`
	ConnMaxIdleTime time.Duration `env:"PG_CONN_MAX_IDLE_TIME" envDefault:"5m"`
	ConnMaxLifetime time.Duration `env:"PG_CONN_MAX_LIFETIME" envDefault:"30m"`
}

type LedgerConfig struct {
	// Backend is "postgres" or "memory".
	Backend     string        `env:"LEDGER_BACKEND" envDefault:"postgres"`
	MaxRetries  int           `env:"LEDGER_MAX_RETRIES" envDefault:"3"`
	CallTimeout time.Duration `env:"LEDGER_CALL_TIMEOUT" envDefault:"3s"`
}

type RewardsConfig struct {
	// TestMode enables a deterministic RNG seeded with Seed. Never set in production.
	TestMode bool   `env:"REWARDS_TEST_MODE" envDefault:"false"`
	Seed     uint64 `env:"REWARDS_SEED" envDefault:"1"`
}

type JobsConfig struct {
	ReconcileInterval time.Duration `env:"RANKING_RECONCILE_INTERVAL" envDefault:"5m"`
	ReceiptsTTL       time.Duration `env:"RECEIPTS_TTL" envDefault:"72h"`
	PurgeInterval     time.Duration `env:"RECEIPTS_PURGE_INTERVAL" envDefault:"1h"`
}
