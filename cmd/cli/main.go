package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"jtpadensity/app"
	"jtpadensity/internal/config"
	"jtpadensity/internal/container"
	"jtpadensity/internal/testkit"
	"jtpadensity/ui"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// overrides are command-line values that take precedence over the environment
type overrides struct {
	input     string
	output    string
	seed      int64
	bwselect  string
	format    string
	pointwise bool
	logLevel  string
}

func main() {
	_ = godotenv.Load()

	var o overrides
	rootCmd := &cobra.Command{
		Use:           "jtpa",
		Short:         "JTPA summary statistics and local-polynomial income densities",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&o.input, "input", "", "Input file, CSV or .xlsx (default $INPUT_FILE or jtpa.csv)")
	pf.StringVar(&o.output, "output", "", "Output directory; \"-\" disables file export (default $OUTPUT_DIR or output)")
	pf.Int64Var(&o.seed, "seed", 0, "Seed for the uniform confidence band simulation (default $SEED or 42)")
	pf.StringVar(&o.bwselect, "bwselect", "", "Bandwidth rule: imse-dpi, imse-rot, mse-dpi or mse-rot")
	pf.StringVar(&o.format, "format", "", "Plot format: png or svg")
	pf.BoolVar(&o.pointwise, "pointwise", false, "Use pointwise instead of uniform confidence bands")
	pf.StringVar(&o.logLevel, "log-level", "", "ERROR, WARN, INFO, DEBUG or TRACE")

	rootCmd.AddCommand(
		newRunCmd(&o, "run", "Build the summary table and the density plot", app.AllSteps),
		newRunCmd(&o, "summary", "Build and print the stratified summary table", app.Steps{Summary: true}),
		newRunCmd(&o, "density", "Estimate the three densities and render the overlay plot", app.Steps{Density: true}),
		newServeCmd(&o),
		newGenerateCmd(),
		newRunsCmd(&o),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// load reads the environment, applies the flags and builds a connected container
func load(ctx context.Context, cmd *cobra.Command, o *overrides) (*container.Container, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if o.input != "" {
		cfg.Data.InputFile = o.input
	}
	if o.output == "-" {
		cfg.Output.Dir = ""
	} else if o.output != "" {
		cfg.Output.Dir = o.output
	}
	if flags.Changed("seed") {
		cfg.Analysis.Seed = o.seed
	}
	if o.bwselect != "" {
		cfg.Analysis.BWSelect = strings.ToLower(o.bwselect)
	}
	if o.format != "" {
		cfg.Output.PlotFormat = strings.ToLower(o.format)
	}
	if o.pointwise {
		cfg.Analysis.Uniform = false
	}
	if o.logLevel != "" {
		cfg.LogLevel = o.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c, err := container.New(cfg, cmd.OutOrStdout())
	if err != nil {
		return nil, err
	}
	if err := c.Connect(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

func newRunCmd(o *overrides, use, short string, steps app.Steps) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			c, err := load(ctx, cmd, o)
			if err != nil {
				return err
			}
			defer c.Shutdown(context.Background())

			res, err := c.Replication.Run(ctx, c.Request(steps))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, path := range res.Files {
				fmt.Fprintf(out, "wrote %s\n", path)
			}
			fmt.Fprintf(out, "run %s (fingerprint %s) finished in %dms\n",
				res.Manifest.RunID, res.Manifest.Fingerprint.Short(), res.RuntimeMs)
			return nil
		},
	}
}

func newServeCmd(o *overrides) *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the replication once and serve the report, plot and JSON API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			c, err := load(ctx, cmd, o)
			if err != nil {
				return err
			}
			defer c.Shutdown(context.Background())

			res, err := c.Replication.Run(ctx, c.Request(app.AllSteps))
			if err != nil {
				return err
			}

			if port != "" {
				c.Config.Server.Port = port
			}
			server := ui.NewApp(ui.Config{Port: c.Config.Server.Port, GinMode: c.Config.Server.GinMode},
				ui.ContentFromRun(res, c.Replication.PlotFormat()), c.Repo, c.Logger)
			return server.Start(ctx)
		},
	}
	cmd.Flags().StringVar(&port, "port", "", "Listen port (default $PORT or 8080)")
	return cmd
}

func newGenerateCmd() *cobra.Command {
	var n int
	var seed int64
	var out string

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Write a synthetic JTPA-shaped CSV for trying the pipeline",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := testkit.DefaultJTPAConfig()
			cfg.N, cfg.Seed = n, seed
			ds := testkit.GenerateJTPA(cfg)

			f, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", out, err)
			}
			defer f.Close()
			if err := ds.WriteCSV(f); err != nil {
				return fmt.Errorf("failed to write %s: %w", out, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d rows to %s\n", ds.Nrow(), out)
			return nil
		},
	}

	cmd.Flags().IntVar(&n, "n", 2000, "Number of rows")
	cmd.Flags().Int64Var(&seed, "seed", 42, "Random seed")
	cmd.Flags().StringVar(&out, "out", "jtpa.csv", "Destination file")
	return cmd
}

func newRunsCmd(o *overrides) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List persisted runs (requires DATABASE_URL)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			c, err := load(ctx, cmd, o)
			if err != nil {
				return err
			}
			defer c.Shutdown(context.Background())
			if c.Repo == nil {
				return fmt.Errorf("DATABASE_URL is not set")
			}

			runs, err := c.Repo.ListRuns(ctx, limit)
			if err != nil {
				return err
			}
			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.AppendHeader(table.Row{"Run", "Created", "Input", "Rule", "Seed", "Fingerprint"})
			for _, m := range runs {
				t.AppendRow(table.Row{m.RunID, m.CreatedAt.Format("2006-01-02 15:04:05"), m.InputFile, m.BWSelect, m.Seed, m.Fingerprint.Short()})
			}
			t.Render()
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of runs")
	return cmd
}
