package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"github.com/giatinhuynh/thereadingroom/internal/adapter/handler"
	"github.com/giatinhuynh/thereadingroom/internal/adapter/storage"
	"github.com/giatinhuynh/thereadingroom/internal/core/domain"
	"github.com/giatinhuynh/thereadingroom/internal/core/service"
	"github.com/giatinhuynh/thereadingroom/internal/port"
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout})

	cfg := LoadConfig()
	log.Info().
		Str("addr", cfg.HTTPAddr).
		Str("backend", cfg.Backend).
		Dur("reservation_ttl", cfg.ReservationTTL).
		Msg("starting reservation engine")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ledger, orders, bestSellers, cleanup := buildStores(ctx, cfg)
	defer cleanup()

	if cfg.SeedOnStart {
		seedCatalog(ctx, ledger)
	}

	manager := service.NewReservationManager(ledger, log.Logger)
	orchestrator := service.NewCheckoutOrchestrator(manager, ledger, orders, log.Logger)

	sweeper := service.NewSweeper(manager, cfg.SweepInterval, cfg.ReservationTTL, log.Logger)
	go sweeper.Run(ctx)
	log.Info().Dur("interval", cfg.SweepInterval).Msg("reservation sweeper started")

	httpHandler := handler.NewHTTPHandler(orchestrator, ledger, bestSellers)
	mux := http.NewServeMux()
	httpHandler.Register(mux)

	httpServer := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: mux,
	}

	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("HTTP server listening")
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			log.Error().Err(err).Msg("HTTP server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Warn().Msg("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	httpServer.Shutdown(shutdownCtx)
	log.Info().Msg("HTTP server stopped")

	cancel()
	log.Info().Msg("sweeper stopped")
}

// buildStores wires the ledger, order store, and reporting source for the
// configured backend.
func buildStores(ctx context.Context, cfg Config) (port.StockLedger, port.OrderStore, port.BestSellerLister, func()) {
	switch cfg.Backend {
	case "memory":
		ledger := storage.NewMemoryLedger()
		return ledger, storage.NewMemoryOrderStore(), ledger, func() {}

	case "sqlite":
		dsn := cfg.SQLitePath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout=5000"
		db, err := sql.Open("sqlite", dsn)
		must(err)
		db.SetMaxOpenConns(1)
		db.SetConnMaxIdleTime(2 * time.Minute)

		adapter := storage.NewSQLAdapter(db)
		must(adapter.Migrate(ctx))
		return adapter, adapter, adapter, func() { db.Close() }

	case "mysql":
		db, err := sql.Open("mysql", cfg.MySQLDSN)
		must(err)
		db.SetMaxOpenConns(50)
		db.SetMaxIdleConns(25)
		db.SetConnMaxLifetime(5 * time.Minute)
		must(db.PingContext(ctx))
		log.Info().Msg("connected to mysql")

		adapter := storage.NewSQLAdapter(db)
		return adapter, adapter, adapter, func() { db.Close() }

	case "redis":
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			PoolSize: 100,
		})
		must(rdb.Ping(ctx).Err())
		log.Info().Msg("connected to redis")

		db, err := sql.Open("mysql", cfg.MySQLDSN)
		must(err)
		must(db.PingContext(ctx))
		log.Info().Msg("connected to mysql")

		mysqlAdapter := storage.NewSQLAdapter(db)
		return storage.NewRedisAdapter(rdb), mysqlAdapter, mysqlAdapter, func() {
			rdb.Close()
			db.Close()
		}

	default:
		log.Fatal().Str("backend", cfg.Backend).Msg("unknown stock backend")
		return nil, nil, nil, nil
	}
}

func seedCatalog(ctx context.Context, ledger port.StockLedger) {
	books := []domain.BookStock{
		{BookID: 1, Title: "The Great Gatsby", Author: "F. Scott Fitzgerald", Price: 15.99, PhysicalCopies: 10},
		{BookID: 2, Title: "To Kill a Mockingbird", Author: "Harper Lee", Price: 12.50, PhysicalCopies: 5},
		{BookID: 3, Title: "Brave New World", Author: "Aldous Huxley", Price: 11.25, PhysicalCopies: 20},
		{BookID: 4, Title: "Moby Dick", Author: "Herman Melville", Price: 18.00, PhysicalCopies: 1},
	}
	for _, b := range books {
		if err := ledger.AddBook(ctx, b); err != nil {
			// Already present from a previous run.
			continue
		}
	}
	log.Info().Int("books", len(books)).Msg("catalog seeded")
}

func must(err error) {
	if err != nil {
		log.Fatal().Err(err).Msg("fatal")
	}
}
