// Package store persists the run log and the artist lookup cache in
// Postgres or SQLite.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/chart-etl/internal/model"
)

// ErrNotFound is returned when a run does not exist.
var ErrNotFound = errors.New("store: not found")

// Store defines the persistence interface for pipeline bookkeeping.
type Store interface {
	// Runs
	CreateRun(ctx context.Context, strategy string) (*model.Run, error)
	FinishRun(ctx context.Context, run *model.Run) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter model.RunFilter) ([]model.Run, error)

	// Artist cache
	GetArtists(ctx context.Context, artistIDs []string, maxAge time.Duration) (map[string]model.CachedArtist, error)
	PutArtists(ctx context.Context, artists []model.CachedArtist) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Config selects and configures the store backend.
type Config struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
}

// Open opens the configured backend. SQLite is the default.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Driver {
	case "postgres":
		if cfg.DatabaseURL == "" {
			return nil, eris.New("store: postgres requires database_url")
		}
		return NewPostgres(ctx, cfg.DatabaseURL, &PoolConfig{MaxConns: cfg.MaxConns})
	case "", "sqlite":
		dsn := cfg.DatabaseURL
		if dsn == "" {
			dsn = "chart-etl.db"
		}
		return NewSQLite(dsn)
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
}

func finishedStatus(run *model.Run) model.RunStatus {
	if run.Status == "" || run.Status == model.RunStatusRunning {
		if run.Error != "" {
			return model.RunStatusFailed
		}
		return model.RunStatusComplete
	}
	return run.Status
}

func listLimit(filter model.RunFilter) int {
	if filter.Limit <= 0 {
		return 50
	}
	return filter.Limit
}
