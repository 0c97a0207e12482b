package reconcile

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/sells-group/chart-etl/internal/model"
)

// fuzzyCandidate is an award title reduced to sorted tokens.
type fuzzyCandidate struct {
	award  int
	tokens string
}

// fuzzyCandidates reduces award titles once. Repeated reduced titles keep
// only their first award, which is the one a tie would pick anyway.
func fuzzyCandidates(awards []model.Award) []fuzzyCandidate {
	seen := make(map[string]bool, len(awards))
	out := make([]fuzzyCandidate, 0, len(awards))
	for i, a := range awards {
		tokens := SortedTokens(a.Title)
		if tokens == "" || seen[tokens] {
			continue
		}
		seen[tokens] = true
		out = append(out, fuzzyCandidate{award: i, tokens: tokens})
	}
	return out
}

// matchFuzzy pairs each track with an exact title+artist match if there is
// one, else with the highest scoring award title at or above the threshold.
// Tracks are split into contiguous partitions scanned concurrently; results
// land at the track's own index so order does not depend on scheduling.
func (e *Engine) matchFuzzy(ctx context.Context, tracks []model.Track, awards []model.Award) ([]match, error) {
	both := keySpec{title: true, artist: true}
	exactIdx := both.indexAwards(awards)
	cands := fuzzyCandidates(awards)
	threshold := e.cfg.FuzzyThreshold

	out := make([]match, len(tracks))
	size := (len(tracks) + e.cfg.Workers - 1) / e.cfg.Workers

	g, gctx := errgroup.WithContext(ctx)
	for lo := 0; lo < len(tracks); lo += size {
		hi := min(lo+size, len(tracks))
		g.Go(func() error {
			for i := lo; i < hi; i++ {
				if i%256 == 0 {
					if err := gctx.Err(); err != nil {
						return err
					}
				}
				t := tracks[i]
				if j, ok := exactIdx[both.track(t)]; ok {
					out[i] = match{Award: j}
					continue
				}
				j := bestFuzzy(SortedTokens(t.TrackName), cands, threshold)
				out[i] = match{Award: j, Fuzzy: j >= 0}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// bestFuzzy returns the first award with the highest score at or above
// threshold, or -1. Candidates whose length alone caps the score below
// the current best are skipped without computing a distance.
func bestFuzzy(query string, cands []fuzzyCandidate, threshold int) int {
	if query == "" {
		return -1
	}
	best, bestScore := -1, 0
	for _, c := range cands {
		ceil := ratioCeiling(len(query), len(c.tokens))
		if ceil < threshold || ceil <= bestScore {
			continue
		}
		if s := sortedRatio(query, c.tokens); s > bestScore && s >= threshold {
			best, bestScore = c.award, s
			if s == 100 {
				break
			}
		}
	}
	return best
}
