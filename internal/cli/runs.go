package cli

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/me/gosweep/internal/store"
	"github.com/me/gosweep/pkg/model"
)

func newRunsCmd() *cobra.Command {
	var ledger string
	var state string
	var limit int

	cmd := &cobra.Command{
		Use:   "runs [batch-id]",
		Short: "List batches, or the runs of one batch, from the ledger",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("ledger") {
				cfg.Ledger = ledger
			}
			if cfg.Ledger == "" {
				return errors.New("no ledger configured (set ledger in the config or pass --ledger)")
			}

			st, err := store.NewSQLiteStore(cfg.Ledger, logger)
			if err != nil {
				return err
			}
			defer st.Close()
			ctx := cmd.Context()
			if err := st.Migrate(ctx); err != nil {
				return err
			}

			tw := tabwriter.NewWriter(out(cmd), 0, 4, 2, ' ', 0)
			defer tw.Flush()

			if len(args) == 0 {
				opts := model.ListOptions{Limit: limit, State: state}
				batches, total, err := st.ListBatches(ctx, opts)
				if err != nil {
					return fmt.Errorf("list batches: %w", err)
				}
				if len(batches) == 0 {
					fmt.Fprintln(tw, "No batches found.")
					return nil
				}
				fmt.Fprintln(tw, "ID\tSTATE\tTOTAL\tFAILED\tCREATED\tDIR")
				for _, b := range batches {
					fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\t%s\n",
						b.ID, b.State, b.Total, b.Failed, b.CreatedAt.Local().Format(time.DateTime), b.Dir)
				}
				if total > len(batches) {
					fmt.Fprintf(tw, "\n(%d of %d shown)\n", len(batches), total)
				}
				return nil
			}

			b, err := st.GetBatch(ctx, args[0])
			if err != nil {
				return err
			}
			if b == nil {
				return fmt.Errorf("batch %s not found", args[0])
			}
			runs, err := st.ListRuns(ctx, b.ID)
			if err != nil {
				return fmt.Errorf("list runs: %w", err)
			}
			fmt.Fprintln(tw, "RUN\tRESULT\tEXIT\tDURATION\tOUTPUT\tMODIFIED")
			for _, r := range runs {
				result := "ok"
				if !r.Succeeded {
					result = string(r.Reason)
				}
				dur := "-"
				if r.StartedAt != nil && r.FinishedAt != nil {
					dur = r.FinishedAt.Sub(*r.StartedAt).Round(time.Millisecond).String()
				}
				fmt.Fprintf(tw, "%d\t%s\t%d\t%s\t%s\t%s\n",
					r.Index, result, r.ExitStatus, dur, r.Output, model.FormatModified(r.Modified))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&ledger, "ledger", "", "SQLite run ledger (overrides config)")
	cmd.Flags().StringVar(&state, "state", "", "Filter batches by state (RUNNING, COMPLETED, CANCELLED)")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum batches to list")
	return cmd
}
