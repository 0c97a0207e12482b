package reconcile

import (
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/sells-group/chart-etl/internal/model"
)

// Join key fields.
const (
	KeyTitle  = "title"
	KeyArtist = "artist"
)

// NormalizeKey lowercases and trims a join key. Unicode is composed first
// so differently encoded accents compare equal.
func NormalizeKey(s string) string {
	return strings.ToLower(strings.TrimSpace(norm.NFC.String(s)))
}

// joinKey is a composite of normalized key fields; unused fields are empty.
type joinKey struct {
	Title  string
	Artist string
}

type keySpec struct {
	title  bool
	artist bool
}

func (k keySpec) track(t model.Track) joinKey {
	var jk joinKey
	if k.title {
		jk.Title = NormalizeKey(t.TrackName)
	}
	if k.artist {
		jk.Artist = NormalizeKey(t.Artists)
	}
	return jk
}

func (k keySpec) award(a model.Award) joinKey {
	var jk joinKey
	if k.title {
		jk.Title = NormalizeKey(a.Title)
	}
	if k.artist {
		jk.Artist = NormalizeKey(a.Artist)
	}
	return jk
}

// indexAwards maps each key to the first award carrying it.
func (k keySpec) indexAwards(awards []model.Award) map[joinKey]int {
	idx := make(map[joinKey]int, len(awards))
	for i, a := range awards {
		jk := k.award(a)
		if _, ok := idx[jk]; !ok {
			idx[jk] = i
		}
	}
	return idx
}
