package model

// DurationCategory buckets a track length.
type DurationCategory string

// Duration categories.
const (
	DurationShort   DurationCategory = "Short"
	DurationAverage DurationCategory = "Average"
	DurationLong    DurationCategory = "Long"
)

// PopularityCategory buckets a 0-100 popularity score.
type PopularityCategory string

// Popularity categories.
const (
	PopularityLow     PopularityCategory = "Low"
	PopularityAverage PopularityCategory = "Average"
	PopularityHigh    PopularityCategory = "High"
)

// Mood buckets a 0.0-1.0 valence score.
type Mood string

// Moods.
const (
	MoodSad     Mood = "Sad"
	MoodNeutral Mood = "Neutral"
	MoodHappy   Mood = "Happy"
)

// Track dataset column names.
const (
	ColTrackID          = "track_id"
	ColArtists          = "artists"
	ColAlbumName        = "album_name"
	ColTrackName        = "track_name"
	ColPopularity       = "popularity"
	ColDurationMs       = "duration_ms"
	ColExplicit         = "explicit"
	ColDanceability     = "danceability"
	ColEnergy           = "energy"
	ColKey              = "key"
	ColLoudness         = "loudness"
	ColMode             = "mode"
	ColSpeechiness      = "speechiness"
	ColAcousticness     = "acousticness"
	ColInstrumentalness = "instrumentalness"
	ColLiveness         = "liveness"
	ColValence          = "valence"
	ColTempo            = "tempo"
	ColTimeSignature    = "time_signature"
	ColTrackGenre       = "track_genre"

	ColDurationMin        = "duration_min"
	ColDurationCategory   = "duration_category"
	ColPopularityCategory = "popularity_category"
	ColTrackMood          = "track_mood"
	ColLivePerformance    = "live_performance"
)

// RawTrackColumns lists the columns a raw chart dataset must carry.
var RawTrackColumns = []string{
	ColTrackID, ColArtists, ColAlbumName, ColTrackName, ColPopularity,
	ColDurationMs, ColExplicit, ColDanceability, ColEnergy, ColKey,
	ColLoudness, ColMode, ColSpeechiness, ColAcousticness,
	ColInstrumentalness, ColLiveness, ColValence, ColTempo,
	ColTimeSignature, ColTrackGenre,
}

// TrackColumns is the column order of a cleaned track.
var TrackColumns = []string{
	ColTrackID, ColArtists, ColAlbumName, ColTrackName, ColPopularity,
	ColExplicit, ColDanceability, ColEnergy, ColTrackGenre, ColDurationMin,
	ColDurationCategory, ColPopularityCategory, ColTrackMood,
	ColLivePerformance,
}

// RawTrack is one row of the chart dataset before cleaning. Every field is
// nullable.
type RawTrack struct {
	TrackID          *string
	Artists          *string
	AlbumName        *string
	TrackName        *string
	Popularity       *int64
	DurationMs       *int64
	Explicit         *bool
	Danceability     *float64
	Energy           *float64
	Key              *int64
	Loudness         *float64
	Mode             *int64
	Speechiness      *float64
	Acousticness     *float64
	Instrumentalness *float64
	Liveness         *float64
	Valence          *float64
	Tempo            *float64
	TimeSignature    *int64
	TrackGenre       *string
}

// Complete reports whether no field is null.
func (r RawTrack) Complete() bool {
	return r.TrackID != nil && r.Artists != nil && r.AlbumName != nil &&
		r.TrackName != nil && r.Popularity != nil && r.DurationMs != nil &&
		r.Explicit != nil && r.Danceability != nil && r.Energy != nil &&
		r.Key != nil && r.Loudness != nil && r.Mode != nil &&
		r.Speechiness != nil && r.Acousticness != nil &&
		r.Instrumentalness != nil && r.Liveness != nil && r.Valence != nil &&
		r.Tempo != nil && r.TimeSignature != nil && r.TrackGenre != nil
}

// Track is a cleaned chart record. TrackGenre is null when the raw tag has
// no genre category.
type Track struct {
	TrackID            string             `json:"track_id"`
	Artists            string             `json:"artists"`
	AlbumName          string             `json:"album_name"`
	TrackName          string             `json:"track_name"`
	Popularity         int64              `json:"popularity"`
	Explicit           bool               `json:"explicit"`
	Danceability       float64            `json:"danceability"`
	Energy             float64            `json:"energy"`
	TrackGenre         *string            `json:"track_genre"`
	DurationMin        int64              `json:"duration_min"`
	DurationCategory   DurationCategory   `json:"duration_category"`
	PopularityCategory PopularityCategory `json:"popularity_category"`
	TrackMood          Mood               `json:"track_mood"`
	LivePerformance    bool               `json:"live_performance"`
}

// Row renders the track as a frame row keyed by TrackColumns.
func (t Track) Row() Row {
	var genre any
	if t.TrackGenre != nil {
		genre = *t.TrackGenre
	}
	return Row{
		ColTrackID:            t.TrackID,
		ColArtists:            t.Artists,
		ColAlbumName:          t.AlbumName,
		ColTrackName:          t.TrackName,
		ColPopularity:         t.Popularity,
		ColExplicit:           t.Explicit,
		ColDanceability:       t.Danceability,
		ColEnergy:             t.Energy,
		ColTrackGenre:         genre,
		ColDurationMin:        t.DurationMin,
		ColDurationCategory:   string(t.DurationCategory),
		ColPopularityCategory: string(t.PopularityCategory),
		ColTrackMood:          string(t.TrackMood),
		ColLivePerformance:    t.LivePerformance,
	}
}
