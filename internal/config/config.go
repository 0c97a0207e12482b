// Package config loads chart-etl settings from config.yaml and CHARTETL_
// environment variables and initializes the global logger.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Warehouse WarehouseConfig `yaml:"warehouse" mapstructure:"warehouse"`
	Sources   SourcesConfig   `yaml:"sources" mapstructure:"sources"`
	Spotify   SpotifyConfig   `yaml:"spotify" mapstructure:"spotify"`
	Reconcile ReconcileConfig `yaml:"reconcile" mapstructure:"reconcile"`
	Share     ShareConfig     `yaml:"share" mapstructure:"share"`
	Retry     RetryConfig     `yaml:"retry" mapstructure:"retry"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the run log and artist cache backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
}

// WarehouseConfig configures the Postgres warehouse holding the raw awards
// table and the merged output.
type WarehouseConfig struct {
	DatabaseURL    string   `yaml:"database_url" mapstructure:"database_url"`
	Schema         string   `yaml:"schema" mapstructure:"schema"`
	Table          string   `yaml:"table" mapstructure:"table"`
	Mode           string   `yaml:"mode" mapstructure:"mode"`
	RawSchema      string   `yaml:"raw_schema" mapstructure:"raw_schema"`
	AwardsTable    string   `yaml:"awards_table" mapstructure:"awards_table"`
	StagingSchemas []string `yaml:"staging_schemas" mapstructure:"staging_schemas"`
	MaxConns       int32    `yaml:"max_conns" mapstructure:"max_conns"`
}

// SourcesConfig locates the input datasets. Locations are local paths or
// http(s)/ftp URLs.
type SourcesConfig struct {
	TracksCSV             string `yaml:"tracks_csv" mapstructure:"tracks_csv"`
	AwardsCSV             string `yaml:"awards_csv" mapstructure:"awards_csv"`
	EnrichmentFallbackCSV string `yaml:"enrichment_fallback_csv" mapstructure:"enrichment_fallback_csv"`
}

// SpotifyConfig holds Web API credentials and request pacing.
type SpotifyConfig struct {
	ClientID      string  `yaml:"client_id" mapstructure:"client_id"`
	ClientSecret  string  `yaml:"client_secret" mapstructure:"client_secret"`
	BaseURL       string  `yaml:"base_url" mapstructure:"base_url"`
	AuthURL       string  `yaml:"auth_url" mapstructure:"auth_url"`
	BatchSize     int     `yaml:"batch_size" mapstructure:"batch_size"`
	RateLimitRPS  float64 `yaml:"rate_limit_rps" mapstructure:"rate_limit_rps"`
	TimeoutSecs   int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	CacheTTLHours int     `yaml:"cache_ttl_hours" mapstructure:"cache_ttl_hours"`
}

// Enabled reports whether API credentials are configured.
func (c SpotifyConfig) Enabled() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

// ReconcileConfig selects the merge strategy.
type ReconcileConfig struct {
	Strategy       string   `yaml:"strategy" mapstructure:"strategy"`
	ExactKeys      []string `yaml:"exact_keys" mapstructure:"exact_keys"`
	FuzzyThreshold int      `yaml:"fuzzy_threshold" mapstructure:"fuzzy_threshold"`
	Workers        int      `yaml:"workers" mapstructure:"workers"`
	Enrich         bool     `yaml:"enrich" mapstructure:"enrich"`
}

// ShareConfig configures publishing of the merged table.
type ShareConfig struct {
	Backend string      `yaml:"backend" mapstructure:"backend"`
	Format  string      `yaml:"format" mapstructure:"format"`
	Title   string      `yaml:"title" mapstructure:"title"`
	Drive   DriveConfig `yaml:"drive" mapstructure:"drive"`
	FTP     FTPConfig   `yaml:"ftp" mapstructure:"ftp"`
	Local   LocalConfig `yaml:"local" mapstructure:"local"`
}

// DriveConfig holds Google Drive OAuth credentials and the target folder.
type DriveConfig struct {
	ClientID        string `yaml:"client_id" mapstructure:"client_id"`
	ClientSecret    string `yaml:"client_secret" mapstructure:"client_secret"`
	RefreshToken    string `yaml:"refresh_token" mapstructure:"refresh_token"`
	CredentialsFile string `yaml:"credentials_file" mapstructure:"credentials_file"`
	FolderID        string `yaml:"folder_id" mapstructure:"folder_id"`
}

// FTPConfig holds the FTP share target.
type FTPConfig struct {
	Host        string `yaml:"host" mapstructure:"host"`
	User        string `yaml:"user" mapstructure:"user"`
	Password    string `yaml:"password" mapstructure:"password"`
	Dir         string `yaml:"dir" mapstructure:"dir"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// LocalConfig holds the local share directory.
type LocalConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
}

// RetryConfig configures retries of remote calls.
type RetryConfig struct {
	MaxAttempts      int `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMs int `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	MaxBackoffMs     int `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("CHARTETL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "chart-etl.db")
	v.SetDefault("warehouse.database_url", "")
	v.SetDefault("warehouse.schema", "merged")
	v.SetDefault("warehouse.table", "merged_data")
	v.SetDefault("warehouse.mode", "replace")
	v.SetDefault("warehouse.raw_schema", "raw")
	v.SetDefault("warehouse.awards_table", "grammy_awards")
	v.SetDefault("warehouse.staging_schemas", []string{"raw", "staging", "processed"})
	v.SetDefault("sources.tracks_csv", "data/spotify_tracks.csv")
	v.SetDefault("sources.awards_csv", "")
	v.SetDefault("sources.enrichment_fallback_csv", "data/spotify_enrichment.csv")
	v.SetDefault("spotify.client_id", "")
	v.SetDefault("spotify.client_secret", "")
	v.SetDefault("spotify.base_url", "https://api.spotify.com/v1")
	v.SetDefault("spotify.auth_url", "https://accounts.spotify.com/api/token")
	v.SetDefault("spotify.batch_size", 50)
	v.SetDefault("spotify.rate_limit_rps", 2.0)
	v.SetDefault("spotify.timeout_secs", 15)
	v.SetDefault("spotify.cache_ttl_hours", 168)
	v.SetDefault("reconcile.strategy", "exact")
	v.SetDefault("reconcile.exact_keys", []string{"title", "artist"})
	v.SetDefault("reconcile.fuzzy_threshold", 85)
	v.SetDefault("reconcile.workers", 0)
	v.SetDefault("reconcile.enrich", true)
	v.SetDefault("share.backend", "none")
	v.SetDefault("share.format", "csv")
	v.SetDefault("share.title", "merged_data")
	v.SetDefault("share.drive.client_id", "")
	v.SetDefault("share.drive.client_secret", "")
	v.SetDefault("share.drive.refresh_token", "")
	v.SetDefault("share.drive.credentials_file", "")
	v.SetDefault("share.drive.folder_id", "")
	v.SetDefault("share.ftp.host", "")
	v.SetDefault("share.ftp.user", "")
	v.SetDefault("share.ftp.password", "")
	v.SetDefault("share.ftp.dir", "")
	v.SetDefault("share.ftp.timeout_secs", 30)
	v.SetDefault("share.local.dir", "out")
	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.initial_backoff_ms", 500)
	v.SetDefault("retry.max_backoff_ms", 30000)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

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

	if problems := cfg.enumProblems(); len(problems) > 0 {
		return nil, eris.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return &cfg, nil
}

// Validate checks that the settings a command needs are present. mode is
// the command name: "run", "seed-awards" or "runs". Other modes only check
// enumerated values.
func (c *Config) Validate(mode string) error {
	problems := c.enumProblems()
	require := func(ok bool, key string) {
		if !ok {
			problems = append(problems, key+" is required")
		}
	}

	switch mode {
	case "run":
		require(c.Warehouse.DatabaseURL != "", "warehouse.database_url")
		require(c.Sources.TracksCSV != "", "sources.tracks_csv")
		if c.Reconcile.Enrich && !c.Spotify.Enabled() {
			require(c.Sources.EnrichmentFallbackCSV != "", "spotify credentials or sources.enrichment_fallback_csv")
		}
		switch c.Share.Backend {
		case "drive":
			require(c.Share.Drive.CredentialsFile != "" || c.Share.Drive.RefreshToken != "", "share.drive.refresh_token")
		case "ftp":
			require(c.Share.FTP.Host != "", "share.ftp.host")
		case "local":
			require(c.Share.Local.Dir != "", "share.local.dir")
		}
	case "seed-awards":
		require(c.Warehouse.DatabaseURL != "", "warehouse.database_url")
		require(c.Sources.AwardsCSV != "", "sources.awards_csv")
	case "runs":
		require(c.Store.DatabaseURL != "", "store.database_url")
	}

	if len(problems) > 0 {
		return eris.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
}

func (c *Config) enumProblems() []string {
	var problems []string
	oneOf := func(key, val string, allowed ...string) {
		for _, a := range allowed {
			if val == a {
				return
			}
		}
		problems = append(problems, key+" must be one of "+strings.Join(allowed, ", ")+", got \""+val+"\"")
	}
	oneOf("store.driver", c.Store.Driver, "postgres", "sqlite")
	oneOf("warehouse.mode", c.Warehouse.Mode, "replace", "append")
	oneOf("reconcile.strategy", c.Reconcile.Strategy, "exact", "fuzzy")
	oneOf("share.backend", c.Share.Backend, "drive", "ftp", "local", "none")
	oneOf("share.format", c.Share.Format, "csv", "xlsx")
	if c.Reconcile.FuzzyThreshold < 0 || c.Reconcile.FuzzyThreshold > 100 {
		problems = append(problems, "reconcile.fuzzy_threshold must be within 0-100")
	}
	return problems
}

// InitLogger initializes the global zap logger.
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
