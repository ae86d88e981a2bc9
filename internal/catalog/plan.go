package catalog

// Plan returns the identifiers that still need a remote lookup: those whose
// bondid or issueprice is absent or nil. A bond with both fields valid is
// never re-fetched, so repeated runs get cheaper as the catalog fills.
// Order follows catalog order for reproducible diagnostics.
func Plan(cat Catalog) []string {
	var work []string
	for _, rec := range cat.Records {
		if rec.HasValid(FieldBondID) && rec.HasValid(FieldIssuePrice) {
			continue
		}
		if key, ok := rec.Key(cat.KeyField); ok {
			work = append(work, key)
		}
	}
	return work
}
