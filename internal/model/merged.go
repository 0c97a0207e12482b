package model

// NotApplicable fills award fields of tracks without a matching nomination.
const NotApplicable = "Not applicable"

// Merged output column names.
const (
	ColID = "id"
)

// Merged is one track reconciled with at most one award and at most one
// enrichment record. ID is the row position in the merged result.
type Merged struct {
	ID int `json:"id"`
	Track
	Year      *int64  `json:"year"`
	Title     string  `json:"title"`
	Category  string  `json:"category"`
	IsWinner  bool    `json:"is_winner"`
	ArtistID  *string `json:"artist_id,omitempty"`
	Followers *int64  `json:"followers,omitempty"`
}

// Matched reports whether the track was paired with a nomination.
func (m Merged) Matched() bool {
	return m.Category != NotApplicable
}

// MergedColumns returns the merged column order. Enrichment columns are
// included only when enrichment was applied.
func MergedColumns(enriched bool) []string {
	cols := append([]string{ColID}, TrackColumns...)
	cols = append(cols, ColYear, ColTitle, ColCategory, ColIsWinner)
	if enriched {
		cols = append(cols, ColArtistID, ColFollowers)
	}
	return cols
}

// Row renders the record keyed by MergedColumns. A null year stays nil.
func (m Merged) Row() Row {
	r := m.Track.Row()
	r[ColID] = int64(m.ID)
	r[ColYear] = nil
	if m.Year != nil {
		r[ColYear] = *m.Year
	}
	r[ColTitle] = m.Title
	r[ColCategory] = m.Category
	r[ColIsWinner] = m.IsWinner
	r[ColArtistID] = nil
	if m.ArtistID != nil {
		r[ColArtistID] = *m.ArtistID
	}
	r[ColFollowers] = nil
	if m.Followers != nil {
		r[ColFollowers] = *m.Followers
	}
	return r
}

// MergedFrame renders merged records as a frame.
func MergedFrame(records []Merged, enriched bool) Frame {
	return FrameOf(MergedColumns(enriched), records)
}
