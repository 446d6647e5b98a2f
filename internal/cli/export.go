package cli

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"wagebook/internal/core"
	"wagebook/internal/log"
	"wagebook/internal/report"
	"wagebook/internal/services"
)

type filterFlags struct {
	from, to, worker string
}

func (f *filterFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.from, "from", "", "First work date, YYYY-MM-DD (default: earliest record)")
	cmd.Flags().StringVar(&f.to, "to", "", "Last work date, YYYY-MM-DD (default: latest record)")
	cmd.Flags().StringVar(&f.worker, "worker", "", "Only this worker (exact name)")
}

func (f *filterFlags) filter() (core.Filter, error) {
	return services.NewFilter(f.from, f.to, f.worker)
}

// reports opens the configured store read-only, without a cache.
func (st *state) reports(ctx context.Context) (*services.ReportService, func(), error) {
	res, err := openBackend(ctx, st.cfg, st.logger)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {
		if err := res.Close(); err != nil {
			st.logger.Warn("Backend cleanup failed", log.FieldError, err)
		}
	}
	return services.NewReportService(services.NewListings(res.Store, nil, nil)), closeFn, nil
}

func newExportCmd(st *state) *cobra.Command {
	var (
		filters filterFlags
		format  string
		totals  bool
		out     string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the filtered records as CSV or XLSX",
		Long: `Export the records matching the filter, newest first.

Examples:
  wagebook export --from 2024-01-01 --to 2024-01-31 --out january.csv
  wagebook export --worker Ram --format xlsx --out ram.xlsx
  wagebook export --totals > totals.csv`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := filters.filter()
			if err != nil {
				return err
			}
			if format != "csv" && format != "xlsx" {
				return fmt.Errorf("unknown format %q: must be csv or xlsx", format)
			}

			svc, closeFn, err := st.reports(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			var buf bytes.Buffer
			rows, err := renderExport(cmd.Context(), svc, f, format, totals, &buf)
			if err != nil {
				return err
			}

			if out == "" || out == "-" {
				_, err = cmd.OutOrStdout().Write(buf.Bytes())
				return err
			}
			if err := os.WriteFile(out, buf.Bytes(), 0o644); err != nil {
				return fmt.Errorf("write %s: %w", out, err)
			}
			st.logger.Info("Export written", log.FieldOperation, log.OpExport, "file", out, "rows", rows)
			return nil
		},
	}

	filters.register(cmd)
	cmd.Flags().StringVar(&format, "format", "csv", "Output format: csv or xlsx")
	cmd.Flags().BoolVar(&totals, "totals", false, "Write per-worker totals instead of records (csv only)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file (default: stdout)")
	return cmd
}

// renderExport writes the export to w and returns the number of data rows.
func renderExport(ctx context.Context, svc *services.ReportService, f core.Filter, format string, totals bool, w io.Writer) (int, error) {
	view, err := svc.View(ctx, f)
	if err != nil {
		return 0, err
	}

	switch {
	case format == "xlsx":
		if totals {
			return 0, fmt.Errorf("--totals is only supported with csv")
		}
		return len(view), report.WriteXLSX(w, view, core.Summarize(view))
	case totals:
		sum := core.Summarize(view)
		return len(sum.ByWorker), report.WriteCSV(w, report.TotalRows(sum, false))
	default:
		return len(view), report.WriteCSV(w, report.RecordRows(view))
	}
}
