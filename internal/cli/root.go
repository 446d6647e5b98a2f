package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"wagebook/internal/config"
	"wagebook/internal/log"
)

// state is filled in before any subcommand runs.
type state struct {
	cfg    *config.Config
	logger *log.Logger
}

// NewRootCmd returns the wagebook command with every subcommand attached.
func NewRootCmd() *cobra.Command {
	var (
		envFile  string
		logLevel string
	)
	st := &state{}

	root := &cobra.Command{
		Use:   "wagebook",
		Short: "Daily wage ledger for contract workers",
		Long: `wagebook records what each contract worker was paid per day and answers
questions over any date range: per-worker totals, daily and monthly rollups,
and CSV or XLSX exports.

Settings come from the environment (and a .env file when present):
DATA_BACKEND selects memory, sqlite, postgres, sheets or csv storage.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := LoadEnvFile(envFile); err != nil {
				return err
			}
			st.cfg = config.Load()
			if logLevel != "" {
				st.cfg.LogLevel = logLevel
			}
			logger, err := SetupLogger(st.cfg.LogLevel, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			st.logger = logger
			return nil
		},
	}

	root.PersistentFlags().StringVar(&envFile, "env-file", "", "Env file to load (default: ./.env when present)")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override LOG_LEVEL (debug, info, warn, error)")

	root.AddCommand(
		newServeCmd(st),
		newMirrorCmd(st),
		newExportCmd(st),
		newSummaryCmd(st),
	)
	return root
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
