package snapshot

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantella/bondsync/internal/catalog"
)

func TestLoad_MissingFile(t *testing.T) {
	records := Load(filepath.Join(t.TempDir(), "nope.json"))
	assert.Nil(t, records)
}

func TestLoad_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snap.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	records := Load(path)
	assert.Nil(t, records)
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snap.json")
	records := []catalog.Record{
		{"isin": "A", "price": 101.0, "bondid": "7", "issueprice": 99.5},
		{"isin": "B", "price": 50.0, "bondid": nil, "issueprice": nil},
	}

	require.NoError(t, Save(path, records))
	got := Load(path)

	require.Len(t, got, 2)
	assert.Equal(t, records, got)

	// Explicit nulls survive the round trip.
	price, present := got[1]["issueprice"]
	assert.True(t, present)
	assert.Nil(t, price)
}

func TestSave_CreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "docs", "nested", "snap.json")

	require.NoError(t, Save(path, []catalog.Record{{"isin": "A"}}))
	assert.FileExists(t, path)
}

func TestSave_ReplacesExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snap.json")

	require.NoError(t, Save(path, []catalog.Record{{"isin": "A"}}))
	require.NoError(t, Save(path, []catalog.Record{{"isin": "B"}, {"isin": "C"}}))

	got := Load(path)
	require.Len(t, got, 2)
	key, _ := got[0].Key("isin")
	assert.Equal(t, "B", key)

	// No temp files left behind.
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestSave_PreservesOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snap.json")
	records := []catalog.Record{
		{"isin": "Z"}, {"isin": "A"}, {"isin": "M"},
	}

	require.NoError(t, Save(path, records))
	got := Load(path)

	var keys []string
	for _, rec := range got {
		key, _ := rec.Key("isin")
		keys = append(keys, key)
	}
	assert.Equal(t, []string{"Z", "A", "M"}, keys)
}
