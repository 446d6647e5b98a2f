package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"wagebook/internal/amqp"
	"wagebook/internal/backend"
	"wagebook/internal/log"
	"wagebook/internal/store/sheets"
	"wagebook/internal/worker"
)

func newMirrorCmd(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "mirror",
		Short: "Keep a Google Sheets copy of the primary store",
		Long: `Copy the primary store into the configured spreadsheet, then repeat after
every change event on AMQP_QUEUE and every MIRROR_INTERVAL.

Each pass rewrites both tabs, so a missed event is repaired by the next one.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMirror(cmd.Context(), st)
		},
	}
}

func runMirror(ctx context.Context, st *state) error {
	cfg, logger := st.cfg, st.logger
	if err := cfg.ValidateMirror(); err != nil {
		return err
	}
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}

	res, err := backend.NewFactory(logger).CreateBackend(ctx, bcfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := res.Close(); err != nil {
			logger.Warn("Backend cleanup failed", log.FieldError, err)
		}
	}()

	target, err := sheets.New(ctx, bcfg.SheetsConfig())
	if err != nil {
		return fmt.Errorf("open mirror spreadsheet: %w", err)
	}

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		return fmt.Errorf("connect to AMQP: %w", err)
	}
	defer client.Close()

	ctx, stop := signalContext(ctx, logger)
	defer stop()

	logger.Info("Starting mirror worker",
		log.FieldOperation, log.OpMirror, log.FieldBackend, cfg.DataBackend,
		"queue", cfg.AMQPQueue, "interval", cfg.MirrorInterval)

	w := worker.NewMirrorWorker(res.Store, target, client, cfg.MirrorInterval, logger)
	if err := w.Run(ctx); err != nil {
		return err
	}

	last, passes := w.Stats()
	logger.Info("Mirror worker stopped", "passes", passes, "last_sync", last)
	return nil
}
