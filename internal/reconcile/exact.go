package reconcile

import "github.com/sells-group/chart-etl/internal/model"

// matchExact pairs each track with the first award sharing its normalized
// key.
func (e *Engine) matchExact(tracks []model.Track, awards []model.Award) []match {
	idx := e.keys.indexAwards(awards)
	out := make([]match, len(tracks))
	for i, t := range tracks {
		j, ok := idx[e.keys.track(t)]
		if !ok {
			j = -1
		}
		out[i] = match{Award: j}
	}
	return out
}
