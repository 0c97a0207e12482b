package transform

import (
	"strings"

	"github.com/sells-group/chart-etl/internal/model"
)

// binder decodes typed cells from frame rows, keeping the first failure.
type binder struct {
	stage string
	row   int
	err   error
}

func (b *binder) fail(col string, err error) {
	if b.err == nil {
		b.err = &DecodeError{Stage: b.stage, Row: b.row, Column: col, Err: err}
	}
}

func (b *binder) text(r model.Row, col string) *string {
	v, err := model.CellString(r[col])
	if err != nil {
		b.fail(col, err)
	}
	return v
}

func (b *binder) integer(r model.Row, col string) *int64 {
	v, err := model.CellInt(r[col])
	if err != nil {
		b.fail(col, err)
	}
	return v
}

func (b *binder) number(r model.Row, col string) *float64 {
	v, err := model.CellFloat(r[col])
	if err != nil {
		b.fail(col, err)
	}
	return v
}

func (b *binder) flag(r model.Row, col string) *bool {
	v, err := model.CellBool(r[col])
	if err != nil {
		b.fail(col, err)
	}
	return v
}

// BindTracks validates a raw chart frame and decodes its rows. Artifact
// index columns are ignored. Columns outside RawTrackColumns are not bound,
// so a null in one of them never causes a row to be dropped.
func BindTracks(f model.Frame) ([]model.RawTrack, error) {
	f = f.DropArtifacts()
	if missing := f.Missing(model.RawTrackColumns...); len(missing) > 0 {
		return nil, &SchemaError{Stage: StageTracks, Missing: missing}
	}
	out := make([]model.RawTrack, 0, f.Len())
	b := &binder{stage: StageTracks}
	for i, r := range f.Rows {
		b.row = i
		t := model.RawTrack{
			TrackID:          b.text(r, model.ColTrackID),
			Artists:          b.text(r, model.ColArtists),
			AlbumName:        b.text(r, model.ColAlbumName),
			TrackName:        b.text(r, model.ColTrackName),
			Popularity:       b.integer(r, model.ColPopularity),
			DurationMs:       b.integer(r, model.ColDurationMs),
			Explicit:         b.flag(r, model.ColExplicit),
			Danceability:     b.number(r, model.ColDanceability),
			Energy:           b.number(r, model.ColEnergy),
			Key:              b.integer(r, model.ColKey),
			Loudness:         b.number(r, model.ColLoudness),
			Mode:             b.integer(r, model.ColMode),
			Speechiness:      b.number(r, model.ColSpeechiness),
			Acousticness:     b.number(r, model.ColAcousticness),
			Instrumentalness: b.number(r, model.ColInstrumentalness),
			Liveness:         b.number(r, model.ColLiveness),
			Valence:          b.number(r, model.ColValence),
			Tempo:            b.number(r, model.ColTempo),
			TimeSignature:    b.integer(r, model.ColTimeSignature),
			TrackGenre:       b.text(r, model.ColTrackGenre),
		}
		if b.err != nil {
			return nil, b.err
		}
		out = append(out, t)
	}
	return out, nil
}

// IsCleanedTrackFrame reports whether a frame already has the cleaned track
// shape (derived columns present, raw audio features gone).
func IsCleanedTrackFrame(f model.Frame) bool {
	return f.Has(model.ColDurationCategory) && !f.Has(model.ColDurationMs)
}

// BindCleanedTracks decodes a frame in the cleaned track shape.
func BindCleanedTracks(f model.Frame) ([]model.Track, error) {
	f = f.DropArtifacts()
	if missing := f.Missing(model.TrackColumns...); len(missing) > 0 {
		return nil, &SchemaError{Stage: StageTracks, Missing: missing}
	}
	out := make([]model.Track, 0, f.Len())
	b := &binder{stage: StageTracks}
	for i, r := range f.Rows {
		b.row = i
		t := model.Track{
			TrackID:            deref(b.text(r, model.ColTrackID)),
			Artists:            deref(b.text(r, model.ColArtists)),
			AlbumName:          deref(b.text(r, model.ColAlbumName)),
			TrackName:          deref(b.text(r, model.ColTrackName)),
			Popularity:         deref(b.integer(r, model.ColPopularity)),
			Explicit:           deref(b.flag(r, model.ColExplicit)),
			Danceability:       deref(b.number(r, model.ColDanceability)),
			Energy:             deref(b.number(r, model.ColEnergy)),
			TrackGenre:         b.text(r, model.ColTrackGenre),
			DurationMin:        deref(b.integer(r, model.ColDurationMin)),
			DurationCategory:   model.DurationCategory(deref(b.text(r, model.ColDurationCategory))),
			PopularityCategory: model.PopularityCategory(deref(b.text(r, model.ColPopularityCategory))),
			TrackMood:          model.Mood(deref(b.text(r, model.ColTrackMood))),
			LivePerformance:    deref(b.flag(r, model.ColLivePerformance)),
		}
		if b.err != nil {
			return nil, b.err
		}
		out = append(out, t)
	}
	return out, nil
}

// BindAwards validates a raw awards frame and decodes its rows. Metadata
// columns and any ceremony "title" column are not read. A frame in the
// cleaned shape (title, is_winner) is accepted with empty credits.
func BindAwards(f model.Frame) ([]model.RawAward, error) {
	f = f.DropArtifacts()
	nominee, winner := model.ColNominee, model.ColWinner
	if isCleanedAwardFrame(f) {
		nominee, winner = model.ColTitle, model.ColIsWinner
		if missing := f.Missing(model.AwardColumns...); len(missing) > 0 {
			return nil, &SchemaError{Stage: StageAwards, Missing: missing}
		}
	} else if missing := f.Missing(model.RawAwardColumns...); len(missing) > 0 {
		return nil, &SchemaError{Stage: StageAwards, Missing: missing}
	}

	out := make([]model.RawAward, 0, f.Len())
	b := &binder{stage: StageAwards}
	for i, r := range f.Rows {
		b.row = i
		a := model.RawAward{
			Year:     b.integer(r, model.ColYear),
			Category: b.text(r, model.ColCategory),
			Nominee:  b.text(r, nominee),
			Artist:   b.text(r, model.ColArtist),
			Winner:   b.flag(r, winner),
		}
		if nominee == model.ColNominee {
			a.Workers = b.text(r, model.ColWorkers)
		}
		if b.err != nil {
			return nil, b.err
		}
		out = append(out, a)
	}
	return out, nil
}

// isCleanedAwardFrame reports whether f is in the cleaned award shape.
func isCleanedAwardFrame(f model.Frame) bool {
	return !f.Has(model.ColNominee) && !f.Has(model.ColWorkers) &&
		f.Has(model.ColTitle) && f.Has(model.ColIsWinner)
}

// NormalizeColumnName lowercases a column name and replaces spaces with
// underscores.
func NormalizeColumnName(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "_")
}

// BindEnrichment normalizes column names of an enrichment frame and decodes
// its rows. The frame must carry track_id or artist_id; artist_name and
// followers may be absent. An artist_followers column stands in for
// followers.
func BindEnrichment(f model.Frame) ([]model.RawEnrichment, error) {
	f = f.DropArtifacts()
	mapping := make(map[string]string, len(f.Columns))
	for _, c := range f.Columns {
		if n := NormalizeColumnName(c); n != c {
			mapping[c] = n
		}
	}
	if len(mapping) > 0 {
		f = f.Rename(mapping)
	}
	if !f.Has(model.ColFollowers) && f.Has(model.ColArtistFollowers) {
		f = f.Rename(map[string]string{model.ColArtistFollowers: model.ColFollowers})
	}
	if !f.Has(model.ColTrackID) && !f.Has(model.ColArtistID) {
		return nil, &SchemaError{Stage: StageEnrichment, Missing: []string{model.ColTrackID + " or " + model.ColArtistID}}
	}

	out := make([]model.RawEnrichment, 0, f.Len())
	b := &binder{stage: StageEnrichment}
	for i, r := range f.Rows {
		b.row = i
		e := model.RawEnrichment{
			TrackID:    b.text(r, model.ColTrackID),
			ArtistID:   b.text(r, model.ColArtistID),
			ArtistName: b.text(r, model.ColArtistName),
			Followers:  b.integer(r, model.ColFollowers),
		}
		if b.err != nil {
			return nil, b.err
		}
		out = append(out, e)
	}
	return out, nil
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
