package transform

import (
	"go.uber.org/zap"

	"github.com/sells-group/chart-etl/internal/model"
)

// trackValues is a complete raw track with nulls resolved. It is comparable
// so it doubles as a full-row dedup key.
type trackValues struct {
	TrackID          string
	Artists          string
	AlbumName        string
	TrackName        string
	Popularity       int64
	DurationMs       int64
	Explicit         bool
	Danceability     float64
	Energy           float64
	Key              int64
	Loudness         float64
	Mode             int64
	Speechiness      float64
	Acousticness     float64
	Instrumentalness float64
	Liveness         float64
	Valence          float64
	Tempo            float64
	TimeSignature    int64
	Genre            string
	HasGenre         bool
}

func valuesOf(r model.RawTrack) trackValues {
	return trackValues{
		TrackID:          *r.TrackID,
		Artists:          *r.Artists,
		AlbumName:        *r.AlbumName,
		TrackName:        *r.TrackName,
		Popularity:       *r.Popularity,
		DurationMs:       *r.DurationMs,
		Explicit:         *r.Explicit,
		Danceability:     *r.Danceability,
		Energy:           *r.Energy,
		Key:              *r.Key,
		Loudness:         *r.Loudness,
		Mode:             *r.Mode,
		Speechiness:      *r.Speechiness,
		Acousticness:     *r.Acousticness,
		Instrumentalness: *r.Instrumentalness,
		Liveness:         *r.Liveness,
		Valence:          *r.Valence,
		Tempo:            *r.Tempo,
		TimeSignature:    *r.TimeSignature,
		Genre:            *r.TrackGenre,
		HasGenre:         true,
	}
}

type trackGroup struct {
	TrackName string
	Artists   string
}

// CleanTracks cleans raw chart rows: drops rows with any null, removes
// exact and track id duplicates, resolves the primary artist, maps genres,
// removes cross-album duplicates, keeps the most popular release per
// (track, artist) and derives the categorical features.
func (r *Rules) CleanTracks(raws []model.RawTrack) ([]model.Track, error) {
	if len(raws) == 0 {
		return nil, &EmptyInputError{Stage: StageTracks}
	}

	rows := make([]trackValues, 0, len(raws))
	for _, raw := range raws {
		if raw.Complete() {
			rows = append(rows, valuesOf(raw))
		}
	}
	nullDropped := len(raws) - len(rows)

	rows = uniqueBy(rows, func(v trackValues) trackValues { return v })
	rows = uniqueBy(rows, func(v trackValues) string { return v.TrackID })

	for i := range rows {
		artist := rows[i].Artists
		rows[i].Artists = *ExtractPrimaryArtist(&artist)
		genre := rows[i].Genre
		if mapped := r.MapGenre(&genre); mapped != nil {
			rows[i].Genre = *mapped
		} else {
			rows[i].Genre, rows[i].HasGenre = "", false
		}
	}

	rows = uniqueBy(rows, func(v trackValues) trackValues {
		v.TrackID, v.AlbumName = "", ""
		return v
	})
	rows = mostPopularBy(rows,
		func(v trackValues) trackGroup { return trackGroup{v.TrackName, v.Artists} },
		func(v trackValues) int64 { return v.Popularity },
	)

	out := make([]model.Track, 0, len(rows))
	for _, v := range rows {
		out = append(out, deriveTrack(v))
	}

	zap.L().Info("transform: tracks cleaned",
		zap.Int("rows_in", len(raws)),
		zap.Int("null_rows_dropped", nullDropped),
		zap.Int("rows_out", len(out)),
		zap.Int("columns", len(model.TrackColumns)),
	)
	return out, nil
}

func deriveTrack(v trackValues) model.Track {
	t := model.Track{
		TrackID:            v.TrackID,
		Artists:            v.Artists,
		AlbumName:          v.AlbumName,
		TrackName:          v.TrackName,
		Popularity:         v.Popularity,
		Explicit:           v.Explicit,
		Danceability:       v.Danceability,
		Energy:             v.Energy,
		DurationMin:        v.DurationMs / 60000,
		DurationCategory:   CategorizeDuration(v.DurationMs),
		PopularityCategory: CategorizePopularity(v.Popularity),
		TrackMood:          DetermineMood(v.Valence),
		LivePerformance:    v.Liveness > 0.8,
	}
	if v.HasGenre {
		g := v.Genre
		t.TrackGenre = &g
	}
	return t
}

// trackKey is a comparable view of a cleaned track.
type trackKey struct {
	model.Track
	Genre    string
	HasGenre bool
}

func keyOf(t model.Track) trackKey {
	k := trackKey{Track: t}
	k.Track.TrackGenre = nil
	if t.TrackGenre != nil {
		k.Genre, k.HasGenre = *t.TrackGenre, true
	}
	return k
}

// RefineTracks reapplies the set-level cleaning steps to tracks that are
// already clean. The derived columns are kept as they are because the raw
// audio features are gone. On cleaned input this is a no-op.
func (r *Rules) RefineTracks(tracks []model.Track) ([]model.Track, error) {
	if len(tracks) == 0 {
		return nil, &EmptyInputError{Stage: StageTracks}
	}

	rows := make([]model.Track, len(tracks))
	copy(rows, tracks)

	rows = uniqueBy(rows, keyOf)
	rows = uniqueBy(rows, func(t model.Track) string { return t.TrackID })
	// Artists is already the primary artist. Extraction is not idempotent
	// ("Earth, Wind & Fire" -> "Earth, Wind" -> "Earth"), so it is not rerun.
	for i := range rows {
		rows[i].TrackGenre = r.MapGenre(rows[i].TrackGenre)
	}
	rows = uniqueBy(rows, func(t model.Track) trackKey {
		k := keyOf(t)
		k.TrackID, k.AlbumName = "", ""
		return k
	})
	rows = mostPopularBy(rows,
		func(t model.Track) trackGroup { return trackGroup{t.TrackName, t.Artists} },
		func(t model.Track) int64 { return t.Popularity },
	)

	zap.L().Info("transform: tracks refined",
		zap.Int("rows_in", len(tracks)),
		zap.Int("rows_out", len(rows)),
	)
	return rows, nil
}

// CleanTrackFrame binds and cleans a chart frame. Frames already in the
// cleaned shape are refined instead, so cleaning is idempotent.
func (r *Rules) CleanTrackFrame(f model.Frame) ([]model.Track, error) {
	if f.Len() == 0 {
		return nil, &EmptyInputError{Stage: StageTracks}
	}
	zap.L().Info("transform: cleaning tracks",
		zap.Int("rows", f.Len()),
		zap.Int("columns", len(f.Columns)),
	)
	if IsCleanedTrackFrame(f) {
		tracks, err := BindCleanedTracks(f)
		if err != nil {
			return nil, err
		}
		return r.RefineTracks(tracks)
	}
	raws, err := BindTracks(f)
	if err != nil {
		return nil, err
	}
	return r.CleanTracks(raws)
}
