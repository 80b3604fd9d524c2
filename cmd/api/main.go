package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/fastprodman/progression/internal/api"
	"github.com/fastprodman/progression/internal/catalog"
	"github.com/fastprodman/progression/internal/config"
	"github.com/fastprodman/progression/internal/infra/logging"
	"github.com/fastprodman/progression/internal/infra/pgutils"
	"github.com/fastprodman/progression/internal/infra/scheduler"
	"github.com/fastprodman/progression/internal/repos/ledger"
	"github.com/fastprodman/progression/internal/repos/ledger/memory"
	"github.com/fastprodman/progression/internal/repos/ledger/postgres"
	ledgersvc "github.com/fastprodman/progression/internal/services/ledger"
	"github.com/fastprodman/progression/internal/services/ranking"
	"github.com/fastprodman/progression/internal/services/rewards"
	"github.com/fastprodman/progression/pkg/envconf"
	"github.com/fastprodman/progression/pkg/shutdownqueue"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := run(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error running api: %v\n", err)
		//nolint:gocritic
		os.Exit(1)
	}
}

type backend interface {
	ledger.Store
	ledger.IdentityResolver
}

func run(ctx context.Context) error {
	cfg := new(apiConfig)

	err := envconf.Load(cfg)
	if err != nil {
		return fmt.Errorf("init config: %w", err)
	}

	logger := logging.Setup(cfg.LogLevel, cfg.LogFormat)
	queue := shutdownqueue.New().WithLogger(logger)

	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}

	// --- Infra ---
	store, err := openBackend(ctx, cfg, queue)
	if err != nil {
		_ = queue.Shutdown(context.Background())
		return err
	}

	engine, err := newRewards(cat, cfg.Rewards, logger)
	if err != nil {
		_ = queue.Shutdown(context.Background())
		return err
	}

	index := ranking.New(logger)

	n, err := index.Rebuild(ctx, store)
	if err != nil {
		_ = queue.Shutdown(context.Background())
		return fmt.Errorf("rebuild ranking: %w", err)
	}
	logger.Info("ranking loaded", "players", n)

	svc := ledgersvc.New(ledgersvc.Deps{
		Store:      store,
		Identities: store,
		Catalog:    cat,
		Rewards:    engine,
		Ranker:     index,
		Config:     cfg.Ledger,
		Logger:     logger,
	})

	// --- Jobs ---
	sched, err := scheduler.New(logger)
	if err != nil {
		_ = queue.Shutdown(context.Background())
		return err
	}

	for _, job := range []scheduler.Job{
		sched.ReconcileRanking(index, store, cfg.Jobs.ReconcileInterval),
		sched.PurgeReceipts(store, cfg.Jobs.ReceiptsTTL, cfg.Jobs.PurgeInterval, nil),
	} {
		err = sched.Add(job)
		if err != nil {
			_ = queue.Shutdown(context.Background())
			return err
		}
	}

	sched.Start()
	queue.Add("scheduler", sched.Shutdown)

	// --- HTTP server ---
	srv := api.NewServer(cfg.Port, api.NewRouter(svc, index, logger))
	queue.Add("http server", srv.Shutdown)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		serr := srv.ListenAndServe()
		// http.ErrServerClosed is the normal path during Shutdown
		if serr != nil && !errors.Is(serr, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", serr)
		}

		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		return queue.Shutdown(shutdownCtx)
	})

	logger.Info("API started", "port", cfg.Port, "backend", cfg.Ledger.Backend, "env", cfg.Env)

	return g.Wait()
}

func openBackend(ctx context.Context, cfg *apiConfig, queue *shutdownqueue.Queue) (backend, error) {
	switch cfg.Ledger.Backend {
	case "memory":
		return memory.New(), nil
	case "postgres":
		db, err := pgutils.OpenDB(ctx, cfg.Postgres)
		if err != nil {
			return nil, fmt.Errorf("open db: %w", err)
		}
		queue.Add("postgres", func(context.Context) error { return db.Close() })

		return postgres.New(db), nil
	default:
		return nil, fmt.Errorf("unknown ledger backend %q", cfg.Ledger.Backend)
	}
}

func newRewards(cat *catalog.Catalog, cfg config.RewardsConfig, logger *slog.Logger) (*rewards.Engine, error) {
	if cfg.TestMode {
		logger.Warn("rewards running with a seeded RNG", "seed", cfg.Seed)
		return rewards.NewSeeded(cat, cfg.Seed), nil
	}

	engine, err := rewards.New(cat)
	if err != nil {
		return nil, fmt.Errorf("rewards engine: %w", err)
	}

	return engine, nil
}
