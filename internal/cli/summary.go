package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"wagebook/internal/core"
	"wagebook/internal/report"
)

func newSummaryCmd(st *state) *cobra.Command {
	var (
		filters    filterFlags
		jsonOutput bool
	)
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Print totals for the filtered records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := filters.filter()
			if err != nil {
				return err
			}

			svc, closeFn, err := st.reports(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			sum, err := svc.Summary(cmd.Context(), f)
			if err != nil {
				return err
			}
			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(sum)
			}
			return printSummary(cmd.OutOrStdout(), sum)
		},
	}

	filters.register(cmd)
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	return cmd
}

func printSummary(w io.Writer, sum core.Summary) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintf(tw, "records\t%d\n", sum.Metrics.Count)
	fmt.Fprintf(tw, "workers\t%d\n", sum.Metrics.DistinctWorkers)
	if sum.Metrics.Min.Valid {
		fmt.Fprintf(tw, "smallest\t%s\n", core.FormatAmount(sum.Metrics.Min.Decimal))
		fmt.Fprintf(tw, "largest\t%s\n", core.FormatAmount(sum.Metrics.Max.Decimal))
	}
	fmt.Fprintln(tw)

	rows := report.TotalRows(sum, true)
	fmt.Fprintln(tw, strings.Join(rows.Header, "\t"))
	for _, cells := range rows.Cells {
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	return tw.Flush()
}
