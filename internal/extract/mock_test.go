package extract

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/chart-etl/internal/db"
	"github.com/sells-group/chart-etl/internal/model"
	"github.com/sells-group/chart-etl/internal/warehouse"
	"github.com/sells-group/chart-etl/pkg/spotify"
)

// --- Spotify Mock ---

type mockSpotify struct {
	mock.Mock
}

func (m *mockSpotify) Tracks(ctx context.Context, ids []string) ([]*spotify.Track, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*spotify.Track), args.Error(1)
}

func (m *mockSpotify) Artists(ctx context.Context, ids []string) ([]*spotify.Artist, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*spotify.Artist), args.Error(1)
}

// --- Artist Cache Fake ---

type fakeCache struct {
	mu      sync.Mutex
	artists map[string]model.CachedArtist
	puts    []model.CachedArtist
	getErr  error
}

func (c *fakeCache) GetArtists(_ context.Context, ids []string, _ time.Duration) (map[string]model.CachedArtist, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return nil, c.getErr
	}
	out := make(map[string]model.CachedArtist)
	for _, id := range ids {
		if a, ok := c.artists[id]; ok {
			out[id] = a
		}
	}
	return out, nil
}

func (c *fakeCache) PutArtists(_ context.Context, artists []model.CachedArtist) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.puts = append(c.puts, artists...)
	return nil
}

// --- Table Loader Fake ---

type fakeLoader struct {
	table db.Table
	frame model.Frame
	mode  warehouse.Mode
	err   error
}

func (l *fakeLoader) Load(_ context.Context, table db.Table, f model.Frame, mode warehouse.Mode) (int64, error) {
	l.table, l.frame, l.mode = table, f, mode
	if l.err != nil {
		return 0, l.err
	}
	return int64(f.Len()), nil
}
