package main

import (
	"context"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/quantella/bondsync/internal/catalog"
	"github.com/quantella/bondsync/internal/config"
	"github.com/quantella/bondsync/internal/enrich"
	"github.com/quantella/bondsync/internal/fetcher"
	"github.com/quantella/bondsync/internal/runlog"
	"github.com/quantella/bondsync/internal/snapshot"
	"github.com/quantella/bondsync/internal/stfi"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Refresh the catalog and enrich missing issue prices",
	Long: `Download the current EOD yield table, merge it with the persisted
catalog (keeping known bondIDs and issue prices), look up issue prices for
records that still lack them, and atomically replace the snapshot.

Lookups back off and retry indefinitely when the site rate-limits; only
cancellation (Ctrl-C) aborts a throttled run.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		snapPath, _ := cmd.Flags().GetString("snapshot")
		isinCol, _ := cmd.Flags().GetString("isin-column")
		dryRun, _ := cmd.Flags().GetBool("dry-run")

		opts := syncOptions{
			SnapshotPath: snapPath,
			ISINColumn:   isinCol,
			DryRun:       dryRun,
		}
		if opts.SnapshotPath == "" {
			opts.SnapshotPath = cfg.Snapshot.Path
		}
		if opts.ISINColumn == "" {
			opts.ISINColumn = cfg.Source.ISINColumn
		}

		return runSync(cmd.Context(), cfg, opts)
	},
}

func init() {
	syncCmd.Flags().String("snapshot", "", "snapshot file path (default from config)")
	syncCmd.Flags().String("isin-column", "", "identifier column name (default: scan for a column containing ISIN)")
	syncCmd.Flags().Bool("dry-run", false, "run the pipeline but do not persist the snapshot or run log")
	rootCmd.AddCommand(syncCmd)
}

// syncOptions are the per-invocation knobs of the sync pipeline.
type syncOptions struct {
	SnapshotPath string
	ISINColumn   string
	DryRun       bool
}

// runSync executes the full pipeline: resolve and download the yield table,
// reconcile with the previous snapshot, plan the minimal enrichment
// worklist, run lookups, persist. Structural failures (table unobtainable,
// no key column, snapshot unwritable) abort with an error; per-record lookup
// failures only end up in the stats.
func runSync(ctx context.Context, cfg *config.Config, opts syncOptions) error {
	log := zap.L().With(zap.String("command", "sync"))
	started := time.Now().UTC()

	f := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
		UserAgent:  cfg.HTTP.UserAgent,
		Timeout:    cfg.HTTP.Timeout,
		MaxRetries: cfg.HTTP.MaxRetries,
		RatePerSec: cfg.HTTP.RatePerSec,
		RateBurst:  cfg.HTTP.RateBurst,
	})
	client := stfi.NewClient(f, cfg.Source)

	csvURL, err := client.ResolveCSVLink(ctx)
	if err != nil {
		return eris.Wrap(err, "sync")
	}
	body, err := client.DownloadTable(ctx, csvURL)
	if err != nil {
		return eris.Wrap(err, "sync")
	}
	incoming, err := stfi.ParseTable(ctx, body)
	_ = body.Close()
	if err != nil {
		return eris.Wrap(err, "sync")
	}
	if len(incoming) == 0 {
		return eris.New("sync: yield table has no records")
	}

	keyField, err := catalog.FindKeyColumn(incoming[0], opts.ISINColumn)
	if err != nil {
		return eris.Wrap(err, "sync")
	}
	log.Info("using key column", zap.String("column", keyField))

	previous := snapshot.Load(opts.SnapshotPath)
	if len(previous) > 0 {
		log.Info("loaded previous snapshot", zap.Int("records", len(previous)))
	}

	cat, err := catalog.Reconcile(previous, incoming, keyField)
	if err != nil {
		return eris.Wrap(err, "sync")
	}

	work := catalog.Plan(cat)
	var stats enrich.Stats
	if len(work) == 0 {
		log.Info("all records already enriched, no lookups needed")
	} else {
		log.Info("records need enrichment", zap.Int("count", len(work)))

		var mapping map[string]string
		rows, dirErr := client.FetchDirectory(ctx)
		if dirErr != nil {
			// Not fatal: affected records stay unresolved and are retried
			// on the next run.
			log.Warn("directory page unavailable, continuing without mapping", zap.Error(dirErr))
		} else {
			mapping = stfi.BuildMapping(rows)
			log.Info("built ISIN to bondID mapping", zap.Int("entries", len(mapping)))
		}

		session := enrich.NewSession(client, cfg.Enrich.InitialBackoff, cfg.Enrich.MaxBackoff)
		stats, err = enrich.Enrich(ctx, cat, work, mapping, session)
		if err != nil {
			return eris.Wrap(err, "sync: enrich")
		}
	}

	if opts.DryRun {
		log.Info("dry run, skipping persist")
	} else {
		if err := snapshot.Save(opts.SnapshotPath, cat.Records); err != nil {
			return eris.Wrap(err, "sync")
		}
		log.Info("snapshot saved",
			zap.String("path", opts.SnapshotPath),
			zap.Int("records", len(cat.Records)),
		)
		recordRun(ctx, cfg.RunLog.Path, runlog.RunRecord{
			StartedAt:     started,
			FinishedAt:    time.Now().UTC(),
			Records:       len(cat.Records),
			Planned:       len(work),
			Resolved:      stats.Resolved,
			PricesFound:   stats.PricesFound,
			PricesMissing: stats.PricesMissing,
			Unresolved:    stats.Unresolved,
			Status:        "ok",
		})
	}

	fmt.Printf("Sync complete: %d records, %d planned, %d prices found, %d missing, %d unresolved\n",
		len(cat.Records), len(work), stats.PricesFound, stats.PricesMissing, stats.Unresolved)
	return nil
}

// recordRun appends the run to the sqlite history. Run history is
// diagnostics only, so failures are logged and swallowed.
func recordRun(ctx context.Context, path string, r runlog.RunRecord) {
	rl, err := runlog.Open(path)
	if err != nil {
		zap.L().Warn("run log unavailable", zap.Error(err))
		return
	}
	defer rl.Close() //nolint:errcheck

	if err := rl.Migrate(ctx); err != nil {
		zap.L().Warn("run log migrate failed", zap.Error(err))
		return
	}
	if err := rl.Record(ctx, r); err != nil {
		zap.L().Warn("run log write failed", zap.Error(err))
	}
}
