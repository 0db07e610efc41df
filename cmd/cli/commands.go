package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gapfill/adapters/excel"
	"gapfill/adapters/stats/temporal"
	"gapfill/domain/imputation"
	"gapfill/domain/series"
	"gapfill/internal/config"
	"gapfill/internal/container"
	"gapfill/internal/gapreport"
	"gapfill/internal/testkit"

	"github.com/spf13/cobra"
)

type imputeOptions struct {
	input      string
	output     string
	report     string
	workers    int
	rules      string
	regularize bool
}

func newImputeCmd() *cobra.Command {
	var opts imputeOptions

	cmd := &cobra.Command{
		Use:   "impute",
		Short: "Impute gaps in a CSV or XLSX file",
		Long: `Read a table, fill every numeric column and write the result.

The time column is the one headed DateTime, or else the first column.
--report writes a gap report; a .html extension renders HTML, anything
else Markdown.

Example: gapfill impute --input plant.xlsx --output plant_imputed.csv --report gaps.md`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImpute(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.input, "input", "", "Input file (.csv or .xlsx); defaults to INPUT_FILE")
	cmd.Flags().StringVar(&opts.output, "output", "", "Output file (.csv or .xlsx); defaults to OUTPUT_FILE")
	cmd.Flags().StringVar(&opts.report, "report", "", "Optional gap report file (.md or .html)")
	cmd.Flags().IntVar(&opts.workers, "workers", 0, "Columns imputed concurrently; defaults to IMPUTE_WORKERS")
	cmd.Flags().StringVar(&opts.rules, "rules", "", `Sentinel rules such as "Flow<3.7;Rainfall (in)>12"; defaults to SENTINEL_RULES`)
	cmd.Flags().BoolVar(&opts.regularize, "regularize", false, "Insert missing hours before imputing; also REGULARIZE_HOURLY")
	return cmd
}

func runImpute(ctx context.Context, out io.Writer, opts imputeOptions) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if opts.input == "" {
		opts.input = cfg.Data.InputFile
	}
	if opts.input == "" {
		return fmt.Errorf("--input is required")
	}
	if opts.output == "" {
		opts.output = cfg.Data.OutputFile
	}
	if opts.workers > 0 {
		cfg.Imputation.Workers = opts.workers
	}
	if opts.rules != "" {
		cfg.Data.SentinelRules = opts.rules
	}

	c, err := container.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer c.Close()

	table, err := loadTable(out, opts.input, opts.regularize || cfg.Data.RegularizeHourly)
	if err != nil {
		return err
	}
	// The report compares against the readings left after the sentinel rules.
	if table, err = c.Imputation.Prepare(table); err != nil {
		return err
	}

	imputed, ds, err := c.Imputation.ImputeTable(ctx, filepath.Base(opts.input), table)
	if err != nil {
		return err
	}
	if err := excel.NewDataWriter(opts.output).WriteTable(imputed); err != nil {
		return err
	}

	fmt.Fprintf(out, "Imputed %s -> %s (job %s)\n", opts.input, opts.output, ds.JobID)
	fmt.Fprintf(out, "%-32s %8s %8s %8s %8s\n", "COLUMN", "MISSING", "IMPUTED", "LEFT", "SKIPPED")
	for _, cr := range ds.Columns {
		fmt.Fprintf(out, "%-32s %8d %8d %8d %8d\n", cr.Column, cr.Missing, cr.Imputed, cr.Remaining, cr.SkippedRuns())
	}
	fmt.Fprintf(out, "Total: %d imputed, %d still missing in %v\n",
		ds.TotalImputed(), ds.TotalRemaining(), ds.Duration.Round(time.Millisecond))

	if opts.report == "" {
		return nil
	}
	report, err := gapreport.Build(table, imputed, ds, c.Imputation.Engine().Policy())
	if err != nil {
		return err
	}
	body := gapreport.RenderMarkdown(report)
	if strings.EqualFold(filepath.Ext(opts.report), ".html") {
		body = gapreport.RenderHTML(report)
	}
	if err := os.WriteFile(opts.report, body, 0o644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	fmt.Fprintf(out, "Report written to %s\n", opts.report)
	return nil
}

// loadTable reads a CSV or XLSX file, optionally placing its rows on an hourly grid
func loadTable(out io.Writer, path string, regularize bool) (*series.Table, error) {
	table, err := excel.NewDataReader(path).ReadTable()
	if err != nil || !regularize {
		return table, err
	}
	regular, summary, err := temporal.Regularize(table, temporal.DefaultGridConfig())
	if err != nil {
		return nil, err
	}
	fmt.Fprintf(out, "Regularized %d rows to %d hourly rows (%d inserted, %d merged)\n",
		summary.InputRows, summary.GridRows, summary.InsertedRows, summary.MergedRows)
	return regular, nil
}

func newGapsCmd() *cobra.Command {
	var input, column, rules string
	var regularize bool

	cmd := &cobra.Command{
		Use:   "gaps",
		Short: "List the runs of missing readings and how each would be handled",
		Long: `List every run of missing readings with its time span, class and the
outcome imputation would have. Nothing is written.

Example: gapfill gaps --input plant.csv --column "Gauge Height (ft)"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGaps(cmd.Context(), cmd.OutOrStdout(), input, column, rules, regularize)
		},
	}

	cmd.Flags().StringVar(&input, "input", "", "Input file (.csv or .xlsx)")
	cmd.Flags().StringVar(&column, "column", "", "Only this column (default: all numeric columns)")
	cmd.Flags().StringVar(&rules, "rules", "", "Sentinel rules applied before scanning; defaults to SENTINEL_RULES")
	cmd.Flags().BoolVar(&regularize, "regularize", false, "Insert missing hours before scanning; also REGULARIZE_HOURLY")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func runGaps(ctx context.Context, out io.Writer, input, column, rules string, regularize bool) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	cfg.Database.URL = ""
	if rules != "" {
		cfg.Data.SentinelRules = rules
	}

	c, err := container.New(ctx, cfg)
	if err != nil {
		return err
	}

	table, err := loadTable(out, input, regularize || cfg.Data.RegularizeHourly)
	if err != nil {
		return err
	}
	if table, err = c.Imputation.Prepare(table); err != nil {
		return err
	}

	columns := table.NumericColumns()
	if column != "" {
		if _, err := table.Column(column); err != nil {
			return err
		}
		columns = []string{column}
	}

	engine := c.Imputation.Engine()
	for _, name := range columns {
		s, err := table.Series(name)
		if err != nil {
			return err
		}
		_, cr, err := engine.Impute(s)
		if err != nil {
			return err
		}
		printSpans(out, name, gapreport.Spans(table.Timestamps, cr.Outcomes))
	}
	return nil
}

func printSpans(out io.Writer, name string, spans []gapreport.Span) {
	fmt.Fprintf(out, "%s: %d runs\n", name, len(spans))
	for _, sp := range spans {
		outcome := string(sp.Status)
		if sp.Status == imputation.StatusSkipped {
			outcome += " (" + string(sp.Reason) + ")"
		}
		fmt.Fprintf(out, "  %s .. %s  %3dh  %-6s  %-12s  %s\n",
			sp.From.Format(excel.TimestampLayout), sp.To.Format(excel.TimestampLayout),
			sp.Hours(), sp.Class, sp.Method, outcome)
	}
}

func newGenerateCmd() *cobra.Command {
	var output string
	var rows int
	var seed int64

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Write a synthetic hourly dataset with injected gaps",
		Long: `Generate influent flow, rainfall, groundwater depth and gauge height readings
with short, medium and long gaps for trying out the imputer.

Example: gapfill generate --output sample.xlsx --rows 2160 --seed 7`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := testkit.DefaultConfig()
			cfg.Seed = seed
			if rows > 0 {
				cfg.Rows = rows
			}
			gen := testkit.NewHourlyDataGenerator(cfg)
			table := gen.Table()
			if err := excel.NewDataWriter(output).WriteTable(table); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d rows with %d injected gaps to %s\n",
				table.Rows(), len(gen.InjectedGaps()), output)
			return nil
		},
	}

	cmd.Flags().StringVar(&output, "output", "sample.csv", "Output file (.csv or .xlsx)")
	cmd.Flags().IntVar(&rows, "rows", 0, "Number of hourly rows (default: 30 days)")
	cmd.Flags().Int64Var(&seed, "seed", 42, "Random seed for deterministic output")
	return cmd
}
