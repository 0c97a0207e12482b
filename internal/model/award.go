package model

// Award dataset column names.
const (
	ColYear     = "year"
	ColCategory = "category"
	ColNominee  = "nominee"
	ColArtist   = "artist"
	ColWorkers  = "workers"
	ColWinner   = "winner"
	ColTitle    = "title"
	ColIsWinner = "is_winner"

	ColPublishedAt = "published_at"
	ColUpdatedAt   = "updated_at"
	ColImg         = "img"
)

// RawAwardColumns lists the columns a raw awards dataset must carry.
var RawAwardColumns = []string{ColYear, ColCategory, ColNominee, ColArtist, ColWorkers, ColWinner}

// AwardColumns is the column order of a cleaned award.
var AwardColumns = []string{ColYear, ColCategory, ColTitle, ColArtist, ColIsWinner}

// RawAward is one nomination before cleaning. Workers is the free-text
// credits field used to recover a missing artist.
type RawAward struct {
	Year     *int64
	Category *string
	Nominee  *string
	Artist   *string
	Workers  *string
	Winner   *bool
}

// Award is a cleaned nomination with a resolved artist and title.
type Award struct {
	Year     int64  `json:"year"`
	Category string `json:"category"`
	Title    string `json:"title"`
	Artist   string `json:"artist"`
	IsWinner bool   `json:"is_winner"`
}

// Raw converts a cleaned award back into its raw shape, with the credits
// already consumed.
func (a Award) Raw() RawAward {
	year, category, title, artist, winner := a.Year, a.Category, a.Title, a.Artist, a.IsWinner
	return RawAward{
		Year:     &year,
		Category: &category,
		Nominee:  &title,
		Artist:   &artist,
		Winner:   &winner,
	}
}

// Row renders the award as a frame row keyed by AwardColumns.
func (a Award) Row() Row {
	return Row{
		ColYear:     a.Year,
		ColCategory: a.Category,
		ColTitle:    a.Title,
		ColArtist:   a.Artist,
		ColIsWinner: a.IsWinner,
	}
}
