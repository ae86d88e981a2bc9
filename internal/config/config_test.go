package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://www.simpletoolsforinvestors.eu/documentivari.php", cfg.Source.DocumentsURL)
	assert.Equal(t, "Rendimenti e durate calcolati End of Day", cfg.Source.CSVMarker)
	assert.Equal(t, "docs/output_enriched.json", cfg.Snapshot.Path)
	assert.Equal(t, 60*time.Second, cfg.Enrich.InitialBackoff)
	assert.Equal(t, 600*time.Second, cfg.Enrich.MaxBackoff)
	assert.Equal(t, 3, cfg.HTTP.MaxRetries)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Empty(t, cfg.Source.ISINColumn)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("BONDSYNC_LOG_LEVEL", "debug")
	t.Setenv("BONDSYNC_SNAPSHOT_PATH", "/tmp/snap.json")
	t.Setenv("BONDSYNC_SOURCE_ISIN_COLUMN", "Codice ISIN")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "/tmp/snap.json", cfg.Snapshot.Path)
	assert.Equal(t, "Codice ISIN", cfg.Source.ISINColumn)
}

func TestInitLogger(t *testing.T) {
	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	require.NoError(t, InitLogger(LogConfig{Level: "info", Format: "json"}))
	assert.Error(t, InitLogger(LogConfig{Level: "notalevel"}))
}
