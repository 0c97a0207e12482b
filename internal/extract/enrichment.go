package extract

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/chart-etl/internal/fetcher"
	"github.com/sells-group/chart-etl/internal/model"
	"github.com/sells-group/chart-etl/internal/transform"
	"github.com/sells-group/chart-etl/pkg/spotify"
)

// Source tells where an enrichment dataset came from.
type Source string

const (
	SourceAPI      Source = "api"
	SourceFallback Source = "fallback"
)

// ArtistCache keeps artist lookups between runs.
type ArtistCache interface {
	GetArtists(ctx context.Context, artistIDs []string, maxAge time.Duration) (map[string]model.CachedArtist, error)
	PutArtists(ctx context.Context, artists []model.CachedArtist) error
}

// EnricherConfig configures artist enrichment.
type EnricherConfig struct {
	// FallbackCSV is read when the API is unavailable or rate limited and
	// rewritten after a successful API extraction.
	FallbackCSV string
	BatchSize   int
	CacheTTL    time.Duration
}

// Enricher resolves each track's primary artist and follower count.
type Enricher struct {
	client  spotify.Client
	cache   ArtistCache
	fetcher fetcher.Fetcher
	cfg     EnricherConfig
}

// NewEnricher creates an Enricher. client and cache may be nil: without a
// client the fallback file is used, without a cache every artist is fetched.
func NewEnricher(client spotify.Client, cache ArtistCache, f fetcher.Fetcher, cfg EnricherConfig) *Enricher {
	if cfg.BatchSize <= 0 || cfg.BatchSize > spotify.MaxBatch {
		cfg.BatchSize = spotify.MaxBatch
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 7 * 24 * time.Hour
	}
	return &Enricher{client: client, cache: cache, fetcher: f, cfg: cfg}
}

type artistRef struct {
	id   string
	name string
}

// Extract returns one enrichment row per distinct track id, in input order,
// with columns track_id, artist_id, artist_name and followers. Tracks whose
// artist could not be resolved carry null artist fields. A 429 from the API
// switches the whole extraction to the fallback file.
func (e *Enricher) Extract(ctx context.Context, trackIDs []string) (model.Frame, Source, error) {
	log := zap.L().With(zap.String("component", "extract.enrichment"))
	ids := distinct(trackIDs)

	if e.client == nil {
		log.Warn("extract: no api client configured, using fallback file")
		return e.fallback(ctx, ids)
	}

	frame, err := e.fromAPI(ctx, ids)
	if errors.Is(err, spotify.ErrRateLimited) {
		log.Warn("extract: rate limited, falling back to file", zap.String("path", e.cfg.FallbackCSV))
		return e.fallback(ctx, ids)
	}
	if err != nil {
		return model.Frame{}, "", err
	}

	if err := e.writeFallback(frame); err != nil {
		log.Error("extract: failed to save fallback file", zap.Error(err))
	}
	return frame, SourceAPI, nil
}

func (e *Enricher) fromAPI(ctx context.Context, ids []string) (model.Frame, error) {
	log := zap.L().With(zap.String("component", "extract.enrichment"))

	artistOf := make(map[string]artistRef, len(ids))
	for start := 0; start < len(ids); start += e.cfg.BatchSize {
		batch := ids[start:min(start+e.cfg.BatchSize, len(ids))]
		tracks, err := e.client.Tracks(ctx, batch)
		if errors.Is(err, spotify.ErrRateLimited) {
			return model.Frame{}, err
		}
		if ctx.Err() != nil {
			return model.Frame{}, eris.Wrap(ctx.Err(), "extract: track lookup")
		}
		if err != nil {
			log.Warn("extract: skipping track batch", zap.Int("batch", start/e.cfg.BatchSize+1), zap.Error(err))
			continue
		}
		for _, t := range tracks {
			if t == nil || t.ID == "" {
				continue
			}
			if a := t.PrimaryArtist(); a != nil {
				artistOf[t.ID] = artistRef{id: a.ID, name: a.Name}
			}
		}
	}

	var artistIDs []string
	seen := make(map[string]bool)
	for _, id := range ids {
		if a, ok := artistOf[id]; ok && !seen[a.id] {
			seen[a.id] = true
			artistIDs = append(artistIDs, a.id)
		}
	}

	followers, err := e.followers(ctx, artistIDs)
	if err != nil {
		return model.Frame{}, err
	}

	frame := model.NewFrame(model.EnrichmentColumns...)
	var unresolved int
	for _, id := range ids {
		row := model.Row{model.ColTrackID: id, model.ColArtistID: nil, model.ColArtistName: nil, model.ColFollowers: nil}
		if a, ok := artistOf[id]; ok {
			row[model.ColArtistID] = a.id
			row[model.ColArtistName] = a.name
			if n := followers[a.id]; n != nil {
				row[model.ColFollowers] = *n
			}
		} else {
			unresolved++
		}
		frame.Rows = append(frame.Rows, row)
	}

	log.Info("extract: enrichment fetched from api",
		zap.Int("tracks", len(ids)),
		zap.Int("artists", len(artistIDs)),
		zap.Int("unresolved", unresolved),
	)
	return frame, nil
}

// followers resolves follower totals, serving fresh cache entries first.
func (e *Enricher) followers(ctx context.Context, artistIDs []string) (map[string]*int64, error) {
	log := zap.L().With(zap.String("component", "extract.enrichment"))
	out := make(map[string]*int64, len(artistIDs))

	pending := artistIDs
	if e.cache != nil {
		cached, err := e.cache.GetArtists(ctx, artistIDs, e.cfg.CacheTTL)
		if err != nil {
			log.Warn("extract: artist cache unavailable", zap.Error(err))
		} else {
			pending = nil
			for _, id := range artistIDs {
				if a, ok := cached[id]; ok {
					out[id] = a.Followers
					continue
				}
				pending = append(pending, id)
			}
			log.Debug("extract: artist cache", zap.Int("hits", len(cached)), zap.Int("misses", len(pending)))
		}
	}

	var fetched []model.CachedArtist
	for start := 0; start < len(pending); start += e.cfg.BatchSize {
		batch := pending[start:min(start+e.cfg.BatchSize, len(pending))]
		artists, err := e.client.Artists(ctx, batch)
		if errors.Is(err, spotify.ErrRateLimited) {
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, eris.Wrap(ctx.Err(), "extract: artist lookup")
		}
		if err != nil {
			log.Warn("extract: skipping artist batch", zap.Int("batch", start/e.cfg.BatchSize+1), zap.Error(err))
			continue
		}
		now := time.Now().UTC()
		for _, a := range artists {
			if a == nil || a.ID == "" {
				continue
			}
			out[a.ID] = a.Followers.Total
			fetched = append(fetched, model.CachedArtist{ArtistID: a.ID, ArtistName: a.Name, Followers: a.Followers.Total, FetchedAt: now})
		}
	}

	if e.cache != nil && len(fetched) > 0 {
		if err := e.cache.PutArtists(ctx, fetched); err != nil {
			log.Warn("extract: failed to cache artists", zap.Error(err))
		}
	}
	return out, nil
}

// fallback reads the fallback file and aligns it to ids: the first row per
// track id wins and tracks absent from the file get null artist fields.
func (e *Enricher) fallback(ctx context.Context, ids []string) (model.Frame, Source, error) {
	if e.cfg.FallbackCSV == "" {
		return model.Frame{}, "", eris.New("extract: no enrichment fallback file configured")
	}
	raw, err := fetcher.ReadFrame(ctx, e.fetcher, e.cfg.FallbackCSV)
	if err != nil {
		return model.Frame{}, "", eris.Wrap(err, "extract: read enrichment fallback")
	}
	records, err := transform.BindEnrichment(raw)
	if err != nil {
		return model.Frame{}, "", err
	}

	byTrack := make(map[string]model.RawEnrichment, len(records))
	for _, r := range records {
		if r.TrackID == nil {
			continue
		}
		if _, dup := byTrack[*r.TrackID]; !dup {
			byTrack[*r.TrackID] = r
		}
	}

	frame := model.NewFrame(model.EnrichmentColumns...)
	var missing int
	for _, id := range ids {
		row := model.Row{model.ColTrackID: id, model.ColArtistID: nil, model.ColArtistName: nil, model.ColFollowers: nil}
		if r, ok := byTrack[id]; ok {
			row[model.ColArtistID] = cell(r.ArtistID)
			row[model.ColArtistName] = cell(r.ArtistName)
			row[model.ColFollowers] = cell(r.Followers)
		} else {
			missing++
		}
		frame.Rows = append(frame.Rows, row)
	}

	zap.L().Info("extract: enrichment loaded from fallback",
		zap.String("path", e.cfg.FallbackCSV),
		zap.Int("file_rows", len(records)),
		zap.Int("tracks", len(ids)),
		zap.Int("missing", missing),
	)
	return frame, SourceFallback, nil
}

// writeFallback atomically replaces the fallback file with frame. Remote
// locations are left alone.
func (e *Enricher) writeFallback(frame model.Frame) error {
	path, ok := fetcher.LocalPath(e.cfg.FallbackCSV)
	if e.cfg.FallbackCSV == "" || !ok {
		return nil
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".enrichment-*.csv")
	if err != nil {
		return eris.Wrap(err, "extract: create temp fallback")
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck

	if err := fetcher.WriteCSVFrame(tmp, frame, nil); err != nil {
		tmp.Close() //nolint:errcheck
		return err
	}
	if err := tmp.Close(); err != nil {
		return eris.Wrap(err, "extract: close temp fallback")
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return eris.Wrap(err, "extract: replace fallback")
	}
	zap.L().Info("extract: fallback file refreshed", zap.String("path", path), zap.Int("rows", frame.Len()))
	return nil
}

func cell[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}

func distinct(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
