// Package cli builds the wagebook command tree and the start-up steps its
// commands share.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"wagebook/internal/backend"
	"wagebook/internal/cache"
	"wagebook/internal/config"
	"wagebook/internal/core"
	"wagebook/internal/log"
	"wagebook/internal/services"
	"wagebook/internal/store"
)

const (
	shutdownTimeout    = 30 * time.Second
	cacheSweepInterval = time.Minute
)

// LoadEnvFile loads path into the environment without overriding variables
// that are already set. With no path, a missing ./.env is not an error.
func LoadEnvFile(path string) error {
	if path != "" {
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("load env file %s: %w", path, err)
		}
		return nil
	}
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

// SetupLogger builds the process logger and makes it the slog default.
func SetupLogger(level string, out io.Writer) (*log.Logger, error) {
	lvl, ok := config.ParseLevel(level)
	if !ok {
		return nil, fmt.Errorf("invalid log level %q", level)
	}
	logger := log.New(log.Config{Level: lvl, Component: log.ComponentApp, Output: out})
	log.SetDefault(logger)
	return logger, nil
}

func openBackend(ctx context.Context, cfg *config.Config, logger *log.Logger) (*backend.BackendResult, error) {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	return backend.NewFactory(logger).CreateBackend(ctx, bcfg)
}

// app is the service layer over one store.
type app struct {
	ledger  *services.LedgerService
	reports *services.ReportService
	caches  *cache.Manager
}

// newApp wires cached listings and both services. events may be nil.
func newApp(s store.RecordStore, cfg *config.Config, events services.EventPublisher, logger *log.Logger) *app {
	records := cache.NewLRUCache[[]core.WageRecord](cfg.CacheSize, cfg.CacheTTL)
	workers := cache.NewLRUCache[[]core.Worker](cfg.CacheSize, cfg.CacheTTL)

	caches := cache.NewManager()
	caches.Register(records)
	caches.Register(workers)

	listings := services.NewListings(s, records, workers)
	return &app{
		ledger:  services.NewLedgerService(s, listings, events, logger),
		reports: services.NewReportService(listings),
		caches:  caches,
	}
}

// signalContext is cancelled on SIGINT or SIGTERM, or when cancel is called.
func signalContext(parent context.Context, logger *log.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}
