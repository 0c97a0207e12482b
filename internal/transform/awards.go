package transform

import (
	"go.uber.org/zap"

	"github.com/sells-group/chart-etl/internal/model"
)

const (
	variousArtistsRaw = "(Various Artists)"
	variousArtists    = "Various Artists"
	unknown           = "Unknown"
)

// awardMetadataColumns are raw award columns irrelevant to matching.
var awardMetadataColumns = []string{model.ColPublishedAt, model.ColUpdatedAt, model.ColImg}

// AwardStats counts why award rows were dropped and which heuristic
// recovered each missing artist.
type AwardStats struct {
	In            int
	Out           int
	NullTitle     int
	NoAttribution int
	Unresolved    int
	Exempt        int
	Recovered     map[CascadeStep]int
}

// CleanAwards resolves an artist for every nomination and drops the rows
// that cannot be attributed. Artists are reduced to the primary artist the
// same way track credits are.
func (r *Rules) CleanAwards(raws []model.RawAward) ([]model.Award, error) {
	return logAwards(r.cleanAwards(raws, false))
}

// refineAwards cleans awards that are already in the cleaned shape. Their
// artist names are kept as they are.
func (r *Rules) refineAwards(raws []model.RawAward) ([]model.Award, error) {
	return logAwards(r.cleanAwards(raws, true))
}

func logAwards(out []model.Award, stats AwardStats, err error) ([]model.Award, error) {
	if err != nil {
		return nil, err
	}
	fields := []zap.Field{
		zap.Int("rows_in", stats.In),
		zap.Int("rows_out", stats.Out),
		zap.Int("null_title_dropped", stats.NullTitle),
		zap.Int("unattributed_dropped", stats.NoAttribution),
		zap.Int("unresolved_dropped", stats.Unresolved),
		zap.Int("exempt_title_as_artist", stats.Exempt),
		zap.Int("columns", len(model.AwardColumns)),
	}
	for step, n := range stats.Recovered {
		fields = append(fields, zap.Int("recovered_"+step.String(), n))
	}
	zap.L().Info("transform: awards cleaned", fields...)
	return out, nil
}

func (r *Rules) cleanAwards(raws []model.RawAward, cleaned bool) ([]model.Award, AwardStats, error) {
	stats := AwardStats{In: len(raws), Recovered: make(map[CascadeStep]int)}
	if len(raws) == 0 {
		return nil, stats, &EmptyInputError{Stage: StageAwards}
	}

	out := make([]model.Award, 0, len(raws))
	for _, raw := range raws {
		if raw.Nominee == nil {
			stats.NullTitle++
			continue
		}
		category := deref(raw.Category)

		artist := raw.Artist
		if artist == nil {
			switch {
			case raw.Workers == nil && r.IsExemptCategory(category):
				stats.Exempt++
				artist = raw.Nominee
			case raw.Workers == nil:
				stats.NoAttribution++
				continue
			default:
				var step CascadeStep
				artist, step = r.ResolveAwardArtist(raw.Workers)
				if artist == nil {
					stats.Unresolved++
					continue
				}
				stats.Recovered[step]++
			}
		}

		name := *artist
		if !cleaned {
			if name == variousArtistsRaw {
				name = variousArtists
			}
			name = *ExtractPrimaryArtist(&name)
		}
		if name == "" {
			name = unknown
		}

		a := model.Award{
			Year:     deref(raw.Year),
			Category: category,
			Title:    *raw.Nominee,
			Artist:   name,
			IsWinner: deref(raw.Winner),
		}
		if raw.Category == nil {
			a.Category = unknown
		}
		out = append(out, a)
	}
	stats.Out = len(out)
	return out, stats, nil
}

// CleanAwardFrame drops metadata columns, binds and cleans an awards frame.
func (r *Rules) CleanAwardFrame(f model.Frame) ([]model.Award, error) {
	if f.Len() == 0 {
		return nil, &EmptyInputError{Stage: StageAwards}
	}
	zap.L().Info("transform: cleaning awards",
		zap.Int("rows", f.Len()),
		zap.Int("columns", len(f.Columns)),
		zap.Strings("column_names", f.Columns),
	)
	if f.Has(model.ColNominee) && f.Has(model.ColTitle) {
		zap.L().Warn("transform: raw awards carry a ceremony title column; dropping it")
		f = f.Drop(model.ColTitle)
	}
	f = f.Drop(awardMetadataColumns...)
	raws, err := BindAwards(f)
	if err != nil {
		return nil, err
	}
	if isCleanedAwardFrame(f) {
		return r.refineAwards(raws)
	}
	return r.CleanAwards(raws)
}
