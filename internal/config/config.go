// Package config loads application configuration from config.yaml and
// BONDSYNC_* environment variables, and initializes the global logger.
package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Source   SourceConfig   `yaml:"source" mapstructure:"source"`
	Snapshot SnapshotConfig `yaml:"snapshot" mapstructure:"snapshot"`
	HTTP     HTTPConfig     `yaml:"http" mapstructure:"http"`
	Enrich   EnrichConfig   `yaml:"enrich" mapstructure:"enrich"`
	RunLog   RunLogConfig   `yaml:"runlog" mapstructure:"runlog"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// SourceConfig points at the remote data site.
type SourceConfig struct {
	// DocumentsURL is the page listing downloadable documents; the EOD
	// yield CSV link is resolved from it.
	DocumentsURL string `yaml:"documents_url" mapstructure:"documents_url"`

	// CSVMarker is the row label identifying the EOD yield CSV link on the
	// documents page.
	CSVMarker string `yaml:"csv_marker" mapstructure:"csv_marker"`

	// DirectoryURL is the yield-table page used to build the ISIN to bondID
	// mapping.
	DirectoryURL string `yaml:"directory_url" mapstructure:"directory_url"`

	// DefinitionURL is the bond definition document URL; %s is replaced
	// with the bondID.
	DefinitionURL string `yaml:"definition_url" mapstructure:"definition_url"`

	// ISINColumn overrides key-column detection. Empty means scan the
	// first record for a column name containing "ISIN".
	ISINColumn string `yaml:"isin_column" mapstructure:"isin_column"`
}

// SnapshotConfig configures catalog persistence.
type SnapshotConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// HTTPConfig configures the HTTP fetcher.
type HTTPConfig struct {
	UserAgent  string        `yaml:"user_agent" mapstructure:"user_agent"`
	Timeout    time.Duration `yaml:"timeout" mapstructure:"timeout"`
	MaxRetries int           `yaml:"max_retries" mapstructure:"max_retries"`
	RatePerSec float64       `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
	RateBurst  int           `yaml:"rate_burst" mapstructure:"rate_burst"`
}

// EnrichConfig configures the issue-price enrichment session.
type EnrichConfig struct {
	// InitialBackoff is the first wait after a 429. It doubles on every
	// subsequent 429 within the run, capped at MaxBackoff, and is not
	// reset between lookups.
	InitialBackoff time.Duration `yaml:"initial_backoff" mapstructure:"initial_backoff"`
	MaxBackoff     time.Duration `yaml:"max_backoff" mapstructure:"max_backoff"`
}

// RunLogConfig configures the sqlite run history.
type RunLogConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from config.yaml (optional) and environment
// variables prefixed BONDSYNC_.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("BONDSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("source.documents_url", "https://www.simpletoolsforinvestors.eu/documentivari.php")
	v.SetDefault("source.csv_marker", "Rendimenti e durate calcolati End of Day")
	v.SetDefault("source.directory_url", "https://www.simpletoolsforinvestors.eu/yieldtable.php?datatype=EOD")
	v.SetDefault("source.definition_url", "https://www.simpletoolsforinvestors.eu/data/definitions/%s.xml")
	// Registered with an empty default so env overrides are visible to Unmarshal.
	v.SetDefault("source.isin_column", "")
	v.SetDefault("snapshot.path", "docs/output_enriched.json")
	v.SetDefault("http.user_agent", "bondsync/1.0")
	v.SetDefault("http.timeout", 30*time.Second)
	v.SetDefault("http.max_retries", 3)
	v.SetDefault("http.rate_per_sec", 2.0)
	v.SetDefault("http.rate_burst", 2)
	v.SetDefault("enrich.initial_backoff", 60*time.Second)
	v.SetDefault("enrich.max_backoff", 600*time.Second)
	v.SetDefault("runlog.path", "bondsync.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger builds a zap logger from LogConfig and installs it globally.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
