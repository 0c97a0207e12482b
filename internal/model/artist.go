package model

import "time"

// CachedArtist is an artist lookup kept in the store so repeated runs do not
// re-fetch it. Followers is nil when the API omitted the total.
type CachedArtist struct {
	ArtistID   string    `json:"artist_id"`
	ArtistName string    `json:"artist_name"`
	Followers  *int64    `json:"followers"`
	FetchedAt  time.Time `json:"fetched_at"`
}
