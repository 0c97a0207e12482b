package model

// Enrichment dataset column names.
const (
	ColArtistID        = "artist_id"
	ColArtistName      = "artist_name"
	ColFollowers       = "followers"
	ColArtistFollowers = "artist_followers"
)

// EnrichmentColumns is the column order of the enrichment dataset and its
// fallback CSV.
var EnrichmentColumns = []string{ColTrackID, ColArtistID, ColArtistName, ColFollowers}

// RawEnrichment is one artist lookup result from the API or its fallback
// file. Lookups that failed leave fields null.
type RawEnrichment struct {
	TrackID    *string
	ArtistID   *string
	ArtistName *string
	Followers  *int64
}

// Enrichment is a normalized artist lookup keyed by track or artist id.
type Enrichment struct {
	TrackID    string `json:"track_id,omitempty"`
	ArtistID   string `json:"artist_id,omitempty"`
	ArtistName string `json:"artist_name"`
	Followers  int64  `json:"followers"`
}

// Row renders the enrichment as a frame row keyed by EnrichmentColumns.
func (e Enrichment) Row() Row {
	return Row{
		ColTrackID:    e.TrackID,
		ColArtistID:   e.ArtistID,
		ColArtistName: e.ArtistName,
		ColFollowers:  e.Followers,
	}
}
