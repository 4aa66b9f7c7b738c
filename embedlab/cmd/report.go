package cmd

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/sarchlab/embedlab/datarecording"
	"github.com/spf13/cobra"
)

var reportCmd = &cobra.Command{
	Use:   "report <trace>",
	Short: "Summarize a recorded trace.",
	Long: "`report` reads a trace written by `run --record` or " +
		"`serve --record` and prints the ISR latencies and the deadline " +
		"results it holds.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reader, err := datarecording.NewReader(args[0])
		if err != nil {
			return err
		}
		defer reader.Close()

		return writeReport(cmd.Context(), cmd.OutOrStdout(), reader)
	},
}

func init() {
	rootCmd.AddCommand(reportCmd)
}

func writeReport(
	ctx context.Context,
	w io.Writer,
	reader datarecording.DataReader,
) error {
	tables, err := reader.ListTables(ctx)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintln(tw, "TABLE\tROWS")
	for _, table := range tables {
		n, err := countRows(ctx, reader, table)
		if err != nil {
			return err
		}

		fmt.Fprintf(tw, "%s\t%d\n", table, n)
	}

	reader.MapTable(datarecording.ISRTable, datarecording.ISREntry{})
	reader.MapTable(datarecording.DeadlineTable, datarecording.DeadlineEntry{})
	reader.MapTable(datarecording.OverflowTable, datarecording.OverflowEntry{})

	if err := reportDispatches(ctx, tw, reader); err != nil {
		return err
	}

	if err := reportDeadlines(ctx, tw, reader); err != nil {
		return err
	}

	if err := reportOverflows(ctx, tw, reader); err != nil {
		return err
	}

	return tw.Flush()
}

func countRows(
	ctx context.Context,
	reader datarecording.DataReader,
	table string,
) (int, error) {
	// Counting scans no columns.
	reader.MapTable(table, struct{}{})
	_, n, err := reader.Query(ctx, table, datarecording.QueryParams{Limit: 1})

	return n, err
}

func reportDispatches(
	ctx context.Context,
	w io.Writer,
	reader datarecording.DataReader,
) error {
	rows, _, err := reader.Query(ctx, datarecording.ISRTable,
		datarecording.QueryParams{
			Where:   "What = ?",
			Args:    []any{"dispatch"},
			OrderBy: "Frame",
		})
	if err != nil {
		return err
	}

	type stat struct {
		count, total, worst int
	}

	stats := map[string]*stat{}
	modes := []string{}

	for _, row := range rows {
		e := row.(*datarecording.ISREntry)

		s, ok := stats[e.Mode]
		if !ok {
			s = &stat{}
			stats[e.Mode] = s
			modes = append(modes, e.Mode)
		}

		s.count++
		s.total += e.Latency
		s.worst = max(s.worst, e.Latency)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "MODE\tDISPATCHES\tMEAN LATENCY (px)\tWORST (px)")

	for _, mode := range modes {
		s := stats[mode]
		fmt.Fprintf(w, "%s\t%d\t%.1f\t%d\n",
			mode, s.count, float64(s.total)/float64(s.count), s.worst)
	}

	return nil
}

func reportDeadlines(
	ctx context.Context,
	w io.Writer,
	reader datarecording.DataReader,
) error {
	rows, _, err := reader.Query(ctx, datarecording.DeadlineTable,
		datarecording.QueryParams{
			Where:   "What = ?",
			Args:    []any{"resolve"},
			OrderBy: "Frame",
		})
	if err != nil {
		return err
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "FRAME\tLOAD (ms)\tELAPSED (ms)\tSTATUS")

	for _, row := range rows {
		e := row.(*datarecording.DeadlineEntry)
		fmt.Fprintf(w, "%d\t%d\t%d\t%s\n", e.Frame, e.Load, e.Elapsed, e.Status)
	}

	return nil
}

func reportOverflows(
	ctx context.Context,
	w io.Writer,
	reader datarecording.DataReader,
) error {
	rows, _, err := reader.Query(ctx, datarecording.OverflowTable,
		datarecording.QueryParams{OrderBy: "Frame"})
	if err != nil {
		return err
	}

	if len(rows) == 0 {
		return nil
	}

	fmt.Fprintln(w)
	for _, row := range rows {
		e := row.(*datarecording.OverflowEntry)
		fmt.Fprintf(w, "overflow at frame %d\tstack %.0f px, heap %.0f px\n",
			e.Frame, e.StackPixels, e.HeapPixels)
	}

	return nil
}
