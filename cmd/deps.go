package main

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/chart-etl/internal/config"
	"github.com/sells-group/chart-etl/internal/extract"
	"github.com/sells-group/chart-etl/internal/fetcher"
	"github.com/sells-group/chart-etl/internal/reconcile"
	"github.com/sells-group/chart-etl/internal/resilience"
	"github.com/sells-group/chart-etl/internal/share"
	"github.com/sells-group/chart-etl/internal/store"
	"github.com/sells-group/chart-etl/internal/warehouse"
	"github.com/sells-group/chart-etl/pkg/spotify"
)

func initStore(ctx context.Context) (store.Store, error) {
	st, err := store.Open(ctx, store.Config{
		Driver:      cfg.Store.Driver,
		DatabaseURL: cfg.Store.DatabaseURL,
		MaxConns:    cfg.Store.MaxConns,
	})
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, err
	}
	return st, nil
}

func warehousePool(ctx context.Context) (*pgxpool.Pool, error) {
	if cfg.Warehouse.DatabaseURL == "" {
		return nil, eris.New("warehouse: no database_url configured (set warehouse.database_url or CHARTETL_WAREHOUSE_DATABASE_URL)")
	}
	return store.NewPool(ctx, cfg.Warehouse.DatabaseURL, &store.PoolConfig{MaxConns: cfg.Warehouse.MaxConns})
}

func warehouseConfig(c *config.Config) warehouse.Config {
	return warehouse.Config{
		DatabaseURL:    c.Warehouse.DatabaseURL,
		Schema:         c.Warehouse.Schema,
		Table:          c.Warehouse.Table,
		Mode:           c.Warehouse.Mode,
		RawSchema:      c.Warehouse.RawSchema,
		AwardsTable:    c.Warehouse.AwardsTable,
		StagingSchemas: c.Warehouse.StagingSchemas,
	}
}

func retryConfig(c *config.Config) resilience.RetryConfig {
	return resilience.FromSettings(c.Retry.MaxAttempts, c.Retry.InitialBackoffMs, c.Retry.MaxBackoffMs)
}

func newEngine(c *config.Config, strategy string) (*reconcile.Engine, error) {
	if strategy == "" {
		strategy = c.Reconcile.Strategy
	}
	return reconcile.New(reconcile.Config{
		Strategy:       reconcile.Strategy(strategy),
		ExactKeys:      c.Reconcile.ExactKeys,
		FuzzyThreshold: c.Reconcile.FuzzyThreshold,
		Workers:        c.Reconcile.Workers,
	})
}

func newFetcher(c *config.Config) *fetcher.Router {
	return &fetcher.Router{
		HTTP: fetcher.NewHTTPFetcher(fetcher.HTTPOptions{Retry: retryConfig(c)}),
		FTP:  fetcher.NewFTPFetcher(fetcher.FTPOptions{}),
	}
}

// newEnricher returns the artist enricher. Without API credentials it
// reads only the fallback file.
func newEnricher(c *config.Config, cache extract.ArtistCache, f fetcher.Fetcher) *extract.Enricher {
	var client spotify.Client
	if c.Spotify.Enabled() {
		opts := []spotify.Option{
			spotify.WithRateLimit(c.Spotify.RateLimitRPS),
			spotify.WithRetry(retryConfig(c)),
		}
		if c.Spotify.BaseURL != "" {
			opts = append(opts, spotify.WithBaseURL(c.Spotify.BaseURL))
		}
		if c.Spotify.AuthURL != "" {
			opts = append(opts, spotify.WithAuthURL(c.Spotify.AuthURL))
		}
		if c.Spotify.TimeoutSecs > 0 {
			opts = append(opts, spotify.WithHTTPClient(&http.Client{Timeout: time.Duration(c.Spotify.TimeoutSecs) * time.Second}))
		}
		client = spotify.NewClient(c.Spotify.ClientID, c.Spotify.ClientSecret, opts...)
	}
	return extract.NewEnricher(client, cache, f, extract.EnricherConfig{
		FallbackCSV: c.Sources.EnrichmentFallbackCSV,
		BatchSize:   c.Spotify.BatchSize,
		CacheTTL:    time.Duration(c.Spotify.CacheTTLHours) * time.Hour,
	})
}

func newUploader(c *config.Config) (share.Uploader, error) {
	return share.New(shareConfig(c))
}

func shareConfig(c *config.Config) share.Config {
	format, _ := share.ParseFormat(c.Share.Format)
	return share.Config{
		Backend: share.Backend(c.Share.Backend),
		Format:  format,
		Title:   c.Share.Title,
		Drive: share.DriveConfig{
			ClientID:        c.Share.Drive.ClientID,
			ClientSecret:    c.Share.Drive.ClientSecret,
			RefreshToken:    c.Share.Drive.RefreshToken,
			CredentialsFile: c.Share.Drive.CredentialsFile,
			FolderID:        c.Share.Drive.FolderID,
			Retry:           retryConfig(c),
		},
		FTP: share.FTPConfig{
			Host:     c.Share.FTP.Host,
			User:     c.Share.FTP.User,
			Password: c.Share.FTP.Password,
			Dir:      c.Share.FTP.Dir,
			Timeout:  time.Duration(c.Share.FTP.TimeoutSecs) * time.Second,
		},
		Local: share.LocalConfig{Dir: c.Share.Local.Dir},
	}
}
