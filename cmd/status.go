package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/quantella/bondsync/internal/catalog"
	"github.com/quantella/bondsync/internal/runlog"
	"github.com/quantella/bondsync/internal/snapshot"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show catalog coverage and recent runs",
	Long:  "Displays how many catalog records still lack static fields, plus the recent run history.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		records := snapshot.Load(cfg.Snapshot.Path)
		missingBondID := 0
		missingPrice := 0
		for _, rec := range records {
			if !rec.HasValid(catalog.FieldBondID) {
				missingBondID++
			}
			if !rec.HasValid(catalog.FieldIssuePrice) {
				missingPrice++
			}
		}

		fmt.Printf("Snapshot: %s\n", cfg.Snapshot.Path)
		fmt.Printf("  records:            %d\n", len(records))
		fmt.Printf("  missing bondID:     %d\n", missingBondID)
		fmt.Printf("  missing issueprice: %d\n", missingPrice)

		rl, err := runlog.Open(cfg.RunLog.Path)
		if err != nil {
			return eris.Wrap(err, "status: open run log")
		}
		defer rl.Close() //nolint:errcheck

		if err := rl.Migrate(ctx); err != nil {
			return eris.Wrap(err, "status")
		}
		runs, err := rl.Recent(ctx, 10)
		if err != nil {
			return eris.Wrap(err, "status")
		}
		if len(runs) == 0 {
			fmt.Println("\nNo runs recorded yet; run 'bondsync sync' first.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "\nSTARTED\tDURATION\tRECORDS\tPLANNED\tFOUND\tMISSING\tUNRESOLVED\tSTATUS")
		for _, r := range runs {
			fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%d\t%d\t%s\n",
				r.StartedAt.Format("2006-01-02 15:04:05"),
				r.FinishedAt.Sub(r.StartedAt).Round(time.Second),
				r.Records, r.Planned, r.PricesFound, r.PricesMissing, r.Unresolved, r.Status,
			)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
