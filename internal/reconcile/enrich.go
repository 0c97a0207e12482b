package reconcile

import (
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/chart-etl/internal/model"
)

// artistInfo is what enrichment resolves for one track.
type artistInfo struct {
	ArtistID   string
	ArtistName string
	Followers  int64
}

// enrichmentIndex maps a track id to its resolved artist.
type enrichmentIndex map[string]artistInfo

// indexByTrack keys enrichment rows by their own track id. The first row
// for a track wins. Rows without an artist id are unresolved lookups and
// are skipped, as in indexByPosition.
func indexByTrack(rows []model.Enrichment) enrichmentIndex {
	idx := make(enrichmentIndex, len(rows))
	for _, e := range rows {
		if e.TrackID == "" || e.ArtistID == "" {
			continue
		}
		if _, ok := idx[e.TrackID]; ok {
			continue
		}
		idx[e.TrackID] = artistInfo{ArtistID: e.ArtistID, ArtistName: e.ArtistName, Followers: e.Followers}
	}
	return idx
}

// indexByPosition builds track→artist→followers from enrichment rows and
// a list of track ids aligned with them. It reports false when the lengths
// differ and enrichment must be skipped.
func indexByPosition(rows []model.Enrichment, trackIDs []string) (enrichmentIndex, bool) {
	if len(trackIDs) != len(rows) {
		zap.L().Warn("reconcile: track ids and enrichment rows differ in length; skipping enrichment",
			zap.Int("track_ids", len(trackIDs)),
			zap.Int("enrichment_rows", len(rows)),
		)
		return nil, false
	}

	trackToArtist := make(map[string]string, len(rows))
	byArtist := make(map[string]model.Enrichment, len(rows))
	for i, e := range rows {
		tid := trackIDs[i]
		if tid == "" {
			tid = e.TrackID
		}
		if tid == "" || e.ArtistID == "" {
			continue
		}
		trackToArtist[tid] = e.ArtistID
		byArtist[e.ArtistID] = e
	}

	idx := make(enrichmentIndex, len(trackToArtist))
	for tid, aid := range trackToArtist {
		e := byArtist[aid]
		idx[tid] = artistInfo{ArtistID: aid, ArtistName: e.ArtistName, Followers: e.Followers}
	}
	return idx, true
}

// apply fills the enrichment columns of every record. Records whose track
// has no resolved artist get 0 followers and a null artist id. It returns
// the API artist name per record for the agreement metric.
func (idx enrichmentIndex) apply(records []model.Merged) []string {
	names := make([]string, len(records))
	for i := range records {
		info, ok := idx[records[i].TrackID]
		followers := info.Followers
		records[i].Followers = &followers
		if !ok {
			continue
		}
		aid := info.ArtistID
		if aid != "" {
			records[i].ArtistID = &aid
		}
		names[i] = info.ArtistName
	}
	return names
}

// artistAgreement is the share of records whose chart artist equals the
// API artist name, case-insensitively.
func artistAgreement(records []model.Merged, apiNames []string) float64 {
	if len(records) == 0 {
		return 0
	}
	agree := 0
	for i, m := range records {
		if apiNames[i] != "" && strings.EqualFold(m.Artists, apiNames[i]) {
			agree++
		}
	}
	return float64(agree) / float64(len(records))
}
