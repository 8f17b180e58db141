package cli

import (
	"fmt"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/me/gosweep/internal/analyzer"
	"github.com/me/gosweep/internal/batch"
	"github.com/me/gosweep/internal/config"
	"github.com/me/gosweep/pkg/model"
)

func newExpandCmd() *cobra.Command {
	var flags batchFlags

	cmd := &cobra.Command{
		Use:   "expand",
		Short: "Print the run set without executing it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			flags.apply(cmd.Flags(), &cfg)

			dir := filepath.Join(cfg.Workspace, batch.ExecutorDir, "<batch>")
			plan, err := batch.NewRunner(cfg, analyzer.DefaultRegistry(logger), logger).Plan(dir)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(out(cmd), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "RUN\tCONFIG\tMODIFIED")
			for _, s := range plan.Specs {
				fmt.Fprintf(w, "%d\t%s\t%s\n", s.Index, s.ConfigPath, model.FormatModified(s.Modified))
			}
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(out(cmd), "\n%d runs from %d params\n", len(plan.Specs), len(plan.Params))
			return nil
		},
	}

	flags.register(cmd.Flags(), config.DefaultRunnerConfig())
	return cmd
}
