package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"wagebook/internal/amqp"
	"wagebook/internal/auth"
	apphttp "wagebook/internal/http"
	"wagebook/internal/log"
	"wagebook/internal/services"
)

func newServeCmd(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Serve the JSON API and the CSV/XLSX downloads until SIGINT or SIGTERM.

When AMQP_URL is set, every committed write is announced on the exchange so
a mirror worker can follow it. Publishing is best effort.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), st)
		},
	}
}

func runServe(ctx context.Context, st *state) error {
	cfg, logger := st.cfg, st.logger
	if err := cfg.Validate(); err != nil {
		return err
	}

	res, err := openBackend(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := res.Close(); err != nil {
			logger.Warn("Backend cleanup failed", log.FieldError, err)
		}
	}()

	var events services.EventPublisher
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without change events", log.FieldError, err)
		} else {
			defer client.Close()
			events = client
			logger.Info("Initialized AMQP client", "exchange", cfg.AMQPExchange)
		}
	}

	authn, err := auth.New(cfg.AdminPassword, cfg.ViewerPassword, cfg.SessionSecret, cfg.SessionTTL)
	if err != nil {
		return fmt.Errorf("configure sessions: %w", err)
	}

	a := newApp(res.Store, cfg, events, logger)
	srv := apphttp.NewServer(
		apphttp.Options{Addr: ":" + cfg.Port, RateLimit: cfg.RateLimit, SecureCookies: cfg.SecureCookies},
		apphttp.Deps{Ledger: a.ledger, Reports: a.reports, Auth: authn, Ready: res.Ping, Logger: logger},
	)

	ctx, stop := signalContext(ctx, logger)
	defer stop()
	go a.caches.Run(ctx, cacheSweepInterval)

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Starting wagebook server",
			log.FieldOperation, log.OpStartup, "port", cfg.Port, log.FieldBackend, cfg.DataBackend)
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		stop()
		<-a.caches.Done()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", log.FieldOperation, log.OpShutdown, log.FieldError, err)
		return err
	}
	<-a.caches.Done()

	logger.Info("Server stopped gracefully", log.FieldOperation, log.OpShutdown)
	return nil
}
