package enrich

import (
	"context"

	"go.uber.org/zap"

	"github.com/quantella/bondsync/internal/catalog"
)

// PriceFetcher is the lookup side of a Session.
type PriceFetcher interface {
	FetchIssuePrice(ctx context.Context, bondID string) (*float64, error)
}

// Stats counts enrichment outcomes for one run.
// Invariants: Resolved + Unresolved == Processed == len(worklist), and
// PricesFound + PricesMissing == Resolved.
type Stats struct {
	Processed     int // worklist entries visited
	Resolved      int // bondID known (from mapping or already present)
	PricesFound   int // issue price set to a value
	PricesMissing int // lookup ran or was skipped, no price
	Unresolved    int // identifier absent from the mapping, no lookup made
}

// Enrich drives the worklist through the fetch session, mutating catalog
// records in place. Records outside the worklist are never touched. Entries
// missing from the mapping get explicit nil static fields and no remote
// call; a nil lookup result also leaves an explicit nil issue price so the
// record stays a retry candidate next run.
func Enrich(ctx context.Context, cat catalog.Catalog, worklist []string, mapping map[string]string, fetch PriceFetcher) (Stats, error) {
	var st Stats

	index := make(map[string]catalog.Record, len(cat.Records))
	for _, rec := range cat.Records {
		if key, ok := rec.Key(cat.KeyField); ok {
			index[key] = rec
		}
	}

	total := len(worklist)
	for i, id := range worklist {
		rec, ok := index[id]
		if !ok {
			zap.L().Warn("worklist entry not in catalog", zap.String("isin", id))
			continue
		}
		st.Processed++

		// The worklist can include a bond only because its bondID was
		// missing while a price was already present; nothing to fetch.
		if rec.HasValid(catalog.FieldIssuePrice) {
			st.Resolved++
			st.PricesFound++
			continue
		}

		bondID, ok := mapping[id]
		if !ok {
			rec[catalog.FieldBondID] = nil
			rec[catalog.FieldIssuePrice] = nil
			st.Unresolved++
			zap.L().Warn("no bondID mapping for ISIN",
				zap.String("isin", id),
				zap.Int("record", i+1),
				zap.Int("total", total),
			)
			continue
		}

		rec[catalog.FieldBondID] = bondID
		st.Resolved++

		zap.L().Info("fetching issue price",
			zap.String("isin", id),
			zap.String("bond_id", bondID),
			zap.Int("record", i+1),
			zap.Int("total", total),
		)

		price, err := fetch.FetchIssuePrice(ctx, bondID)
		if err != nil {
			return st, err
		}
		if price != nil {
			rec[catalog.FieldIssuePrice] = *price
			st.PricesFound++
		} else {
			rec[catalog.FieldIssuePrice] = nil
			st.PricesMissing++
		}
	}

	zap.L().Info("enrichment complete",
		zap.Int("processed", st.Processed),
		zap.Int("resolved", st.Resolved),
		zap.Int("prices_found", st.PricesFound),
		zap.Int("prices_missing", st.PricesMissing),
		zap.Int("unresolved", st.Unresolved),
	)
	return st, nil
}
