package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/me/gosweep/internal/analyzer"
	"github.com/me/gosweep/internal/batch"
	"github.com/me/gosweep/internal/config"
	"github.com/me/gosweep/internal/logging"
)

// batchFlags are the per-batch overrides shared by run and expand.
type batchFlags struct {
	workspace   string
	template    string
	params      string
	report      string
	analyzer    string
	parallelism int
	interval    time.Duration
	timeout     time.Duration
	ledger      string
	statusAddr  string
	command     []string
}

func (f *batchFlags) register(fs *pflag.FlagSet, def config.RunnerConfig) {
	fs.StringVarP(&f.workspace, "workspace", "w", def.Workspace, "Simulator workspace directory")
	fs.StringVar(&f.template, "template", "", "Template properties (default <workspace>/"+config.DefaultTemplateName+")")
	fs.StringVar(&f.params, "params", def.Params, "Parameter YAML file")
	fs.StringVar(&f.report, "report", def.Report, "CSV report path")
	fs.StringVar(&f.analyzer, "analyzer", def.Analyzer, "Result analyzer name")
	fs.IntVarP(&f.parallelism, "parallelism", "p", def.Parallelism, "Maximum simultaneous simulator processes")
	fs.DurationVar(&f.interval, "interval", def.MinLaunchInterval, "Minimum spacing between launches")
	fs.DurationVar(&f.timeout, "timeout", def.RunTimeout, "Per-run time limit (0 = none)")
	fs.StringVar(&f.ledger, "ledger", def.Ledger, "SQLite run ledger (empty disables)")
	fs.StringVar(&f.statusAddr, "status-addr", def.StatusAddr, "Status API listen address (empty disables)")
	fs.StringSliceVar(&f.command, "command", def.Command, "Simulator command; the run config path is appended")
}

// apply copies every explicitly set flag onto c.
func (f *batchFlags) apply(fs *pflag.FlagSet, c *config.RunnerConfig) {
	set := map[string]func(){
		"workspace":   func() { c.Workspace = f.workspace },
		"template":    func() { c.Template = f.template },
		"params":      func() { c.Params = f.params },
		"report":      func() { c.Report = f.report },
		"analyzer":    func() { c.Analyzer = f.analyzer },
		"parallelism": func() { c.Parallelism = f.parallelism },
		"interval":    func() { c.MinLaunchInterval = f.interval },
		"timeout":     func() { c.RunTimeout = f.timeout },
		"ledger":      func() { c.Ledger = f.ledger },
		"status-addr": func() { c.StatusAddr = f.statusAddr },
		"command":     func() { c.Command = f.command },
	}
	for name, fn := range set {
		if fs.Changed(name) {
			fn()
		}
	}
}

func newRunCmd() *cobra.Command {
	var flags batchFlags

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a parameter sweep",
		Long: `Runs the simulator once for every combination of parameter values and
appends each successful run's summary to the report. Failed runs are
counted and logged; they never stop the batch.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			flags.apply(cmd.Flags(), &cfg)

			batchLogger, closer, err := logging.NewBatchLogger(
				logging.ParseLevel(cfg.LogLevel), cfg.LogFormat, cmd.ErrOrStderr(),
				logging.ResolveLogPath(cfg.LogPath))
			if err != nil {
				return err
			}
			defer closer.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			runner := batch.NewRunner(cfg, analyzer.DefaultRegistry(batchLogger), batchLogger)
			sum, err := runner.Run(ctx)
			if err != nil {
				batchLogger.Error("batch setup failed", "error", err)
				return err
			}

			w := out(cmd)
			fmt.Fprintf(w, "Batch:    %s\n", sum.ID)
			fmt.Fprintf(w, "Dir:      %s\n", sum.Dir)
			fmt.Fprintf(w, "Report:   %s\n", sum.ReportPath)
			fmt.Fprintf(w, "Total:    %d\n", sum.Total)
			fmt.Fprintf(w, "Failed:   %d\n", sum.Failed)
			fmt.Fprintf(w, "Elapsed:  %.2f minutes\n", sum.Elapsed.Minutes())
			if sum.HasBest {
				fmt.Fprintf(w, "Best:     %s (%s)\n", sum.Best.Output, sum.Best.ModifiedString())
			} else {
				fmt.Fprintln(w, "Best:     no result")
			}
			if ctx.Err() != nil {
				return fmt.Errorf("batch interrupted: %w", ctx.Err())
			}
			return nil
		},
	}

	flags.register(cmd.Flags(), config.DefaultRunnerConfig())
	return cmd
}
