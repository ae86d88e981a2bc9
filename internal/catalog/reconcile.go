package catalog

import (
	"github.com/rotisserie/eris"
)

// Catalog is an ordered collection of records keyed by KeyField, one record
// per identifier.
type Catalog struct {
	KeyField string
	Records  []Record
}

// ErrMissingKey means an incoming record carries no value for the key field.
// Merge keys would be undefined downstream, so the run must abort.
var ErrMissingKey = eris.New("catalog: record missing key field")

// Reconcile merges a freshly fetched record set with the previous snapshot.
//
// Volatile fields (prices, yields, durations) always come from incoming.
// Static fields present and non-nil in the previous record are copied onto
// the incoming one, overwriting whatever it carries: a previously confirmed
// value always wins. Output order is incoming order, and identifiers absent
// from incoming are dropped — the catalog reflects the current snapshot's
// membership. An empty previous set returns incoming unchanged.
func Reconcile(previous, incoming []Record, keyField string) (Catalog, error) {
	out := Catalog{KeyField: keyField, Records: incoming}

	for i, rec := range incoming {
		if _, ok := rec.Key(keyField); !ok {
			return Catalog{}, eris.Wrapf(ErrMissingKey, "record %d has no %q value", i, keyField)
		}
	}

	if len(previous) == 0 {
		return out, nil
	}

	index := make(map[string]Record, len(previous))
	for _, rec := range previous {
		key, ok := rec.Key(keyField)
		if !ok {
			// A prior record without a key cannot match anything.
			continue
		}
		index[key] = rec
	}

	for _, rec := range incoming {
		key, _ := rec.Key(keyField)
		prior, ok := index[key]
		if !ok {
			continue
		}
		for _, field := range StaticFields {
			if prior.HasValid(field) {
				rec[field] = prior[field]
			}
		}
	}

	return out, nil
}
