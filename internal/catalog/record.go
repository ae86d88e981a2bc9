// Package catalog holds the bond catalog data model, the snapshot merge, and
// the enrichment planner.
package catalog

import (
	"sort"
	"strings"

	"github.com/rotisserie/eris"
)

// Static field names. These are computed once per bond, are expensive to
// recompute, and must survive snapshot refreshes.
const (
	FieldBondID     = "bondid"
	FieldIssuePrice = "issueprice"
)

// StaticFields are carried over from the previous snapshot during Reconcile.
var StaticFields = []string{FieldBondID, FieldIssuePrice}

// Record is one bond's data row: column name to value, nulls explicit.
// A static field is in one of three states: absent (never attempted),
// present-but-nil (attempted and failed), present with a value.
type Record map[string]any

// HasValid reports whether the field is present with a non-nil value.
func (r Record) HasValid(field string) bool {
	v, ok := r[field]
	return ok && v != nil
}

// Key returns the record's identifier under the given key field.
func (r Record) Key(keyField string) (string, bool) {
	v, ok := r[keyField]
	if !ok || v == nil {
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

// ErrNoKeyColumn means no identifier-like column could be located.
var ErrNoKeyColumn = eris.New("catalog: no ISIN-like column found")

// FindKeyColumn locates the identifier column. A non-empty override names
// the column directly and must exist in the record. Otherwise the record's
// column names are scanned (in sorted order, for determinism) for the first
// one containing "ISIN" case-insensitively.
func FindKeyColumn(first Record, override string) (string, error) {
	if override != "" {
		if _, ok := first[override]; !ok {
			return "", eris.Errorf("catalog: configured key column %q not present in data", override)
		}
		return override, nil
	}

	keys := make([]string, 0, len(first))
	for k := range first {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if strings.Contains(strings.ToUpper(k), "ISIN") {
			return k, nil
		}
	}
	return "", ErrNoKeyColumn
}
