package transform

import (
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/chart-etl/internal/model"
)

// CleanEnrichment normalizes artist lookups. Missing names become
// "Unknown" and missing or negative follower counts become 0. Rows with
// neither a track id nor an artist id cannot be joined and are dropped.
func CleanEnrichment(raws []model.RawEnrichment) ([]model.Enrichment, error) {
	if len(raws) == 0 {
		return nil, &EmptyInputError{Stage: StageEnrichment}
	}

	var unkeyed, defaultedName, defaultedFollowers int
	out := make([]model.Enrichment, 0, len(raws))
	for _, raw := range raws {
		e := model.Enrichment{
			TrackID:  strings.TrimSpace(deref(raw.TrackID)),
			ArtistID: strings.TrimSpace(deref(raw.ArtistID)),
		}
		if e.TrackID == "" && e.ArtistID == "" {
			unkeyed++
			continue
		}
		if raw.ArtistName == nil || strings.TrimSpace(*raw.ArtistName) == "" {
			e.ArtistName = unknown
			defaultedName++
		} else {
			e.ArtistName = *raw.ArtistName
		}
		if raw.Followers == nil || *raw.Followers < 0 {
			defaultedFollowers++
		} else {
			e.Followers = *raw.Followers
		}
		out = append(out, e)
	}

	zap.L().Info("transform: enrichment cleaned",
		zap.Int("rows_in", len(raws)),
		zap.Int("rows_out", len(out)),
		zap.Int("unkeyed_dropped", unkeyed),
		zap.Int("name_defaulted", defaultedName),
		zap.Int("followers_defaulted", defaultedFollowers),
	)
	return out, nil
}

// CleanEnrichmentFrame binds and cleans an enrichment frame.
func CleanEnrichmentFrame(f model.Frame) ([]model.Enrichment, error) {
	if f.Len() == 0 {
		return nil, &EmptyInputError{Stage: StageEnrichment}
	}
	raws, err := BindEnrichment(f)
	if err != nil {
		return nil, err
	}
	return CleanEnrichment(raws)
}
