package transform

import (
	"regexp"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/chart-etl/internal/model"
)

// Rules holds the immutable lookup tables used by the cleaners. Build one
// with NewRules or use DefaultRules; a Rules value is safe for concurrent use.
type Rules struct {
	genreByTag map[string]string
	categories map[string]bool
	roles      []string
	rolePairs  *regexp.Regexp
	exempt     map[string]bool
}

var defaultRules = mustRules(genreCategories, roleKeywords, exemptCategories)

// DefaultRules returns the built-in genre dictionary, role keywords and
// exempt award categories.
func DefaultRules() *Rules {
	return defaultRules
}

// NewRules builds Rules from a category→tags genre dictionary, a role
// keyword list and a list of award categories exempt from artist recovery.
func NewRules(genres map[string][]string, roles, exempt []string) (*Rules, error) {
	r := &Rules{
		genreByTag: make(map[string]string),
		categories: make(map[string]bool, len(genres)),
		exempt:     make(map[string]bool, len(exempt)),
	}
	for category, tags := range genres {
		r.categories[category] = true
		for _, tag := range tags {
			tag = strings.ToLower(strings.TrimSpace(tag))
			if prev, ok := r.genreByTag[tag]; ok && prev != category {
				return nil, eris.Errorf("transform: genre tag %q mapped to both %q and %q", tag, prev, category)
			}
			r.genreByTag[tag] = category
		}
	}
	if len(roles) == 0 {
		return nil, eris.New("transform: role keyword list is empty")
	}
	quoted := make([]string, len(roles))
	for i, role := range roles {
		r.roles = append(r.roles, strings.ToLower(role))
		quoted[i] = regexp.QuoteMeta(role)
	}
	re, err := regexp.Compile(`(?i)([^;]+)\s*,\s*(?:` + strings.Join(quoted, "|") + `)`)
	if err != nil {
		return nil, eris.Wrap(err, "transform: compile role pattern")
	}
	r.rolePairs = re
	for _, c := range exempt {
		r.exempt[c] = true
	}
	return r, nil
}

func mustRules(genres map[string][]string, roles, exempt []string) *Rules {
	r, err := NewRules(genres, roles, exempt)
	if err != nil {
		panic(err)
	}
	return r
}

// CategorizeDuration buckets a length in milliseconds. Both 150000 and
// 300000 are Average.
func CategorizeDuration(ms int64) model.DurationCategory {
	switch {
	case ms < 150000:
		return model.DurationShort
	case ms <= 300000:
		return model.DurationAverage
	default:
		return model.DurationLong
	}
}

// CategorizePopularity buckets a 0-100 popularity score.
func CategorizePopularity(score int64) model.PopularityCategory {
	switch {
	case score <= 30:
		return model.PopularityLow
	case score <= 70:
		return model.PopularityAverage
	default:
		return model.PopularityHigh
	}
}

// DetermineMood buckets a 0.0-1.0 valence score.
func DetermineMood(valence float64) model.Mood {
	switch {
	case valence <= 0.3:
		return model.MoodSad
	case valence <= 0.6:
		return model.MoodNeutral
	default:
		return model.MoodHappy
	}
}

// MapGenre returns the category for a raw genre tag, or nil when the tag is
// unknown. A category name maps to itself.
func (r *Rules) MapGenre(tag *string) *string {
	if tag == nil {
		return nil
	}
	if r.categories[*tag] {
		c := *tag
		return &c
	}
	c, ok := r.genreByTag[strings.ToLower(strings.TrimSpace(*tag))]
	if !ok {
		return nil
	}
	return &c
}

// IsExemptCategory reports whether an award category names ensembles as
// its nominee.
func (r *Rules) IsExemptCategory(category string) bool {
	return r.exempt[category]
}

var featureMarker = regexp.MustCompile(`(?i)\s+(?:featuring|feat\.|ft\.)\s+|;`)

// ExtractPrimaryArtist resolves the lead artist of a credit string such as
// "The Beatles feat. Someone" or "A & B".
func ExtractPrimaryArtist(credit *string) *string {
	if credit == nil {
		return nil
	}
	s := primarySegment(*credit)
	s = CleanArtistName(s)
	return &s
}

func primarySegment(s string) string {
	if loc := featureMarker.FindStringIndex(s); loc != nil {
		return strings.TrimSpace(s[:loc[0]])
	}
	if i := strings.Index(s, " & "); i >= 0 {
		return strings.TrimSpace(s[:i])
	}
	if i := strings.Index(s, ","); i >= 0 {
		return strings.TrimSpace(s[:i])
	}
	return s
}

var artistNoise = strings.NewReplacer("'", "", "!", "", "(", "", ")", "")

// CleanArtistName strips a leading "The ", apostrophes, exclamation marks
// and parentheses.
func CleanArtistName(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 4 && strings.EqualFold(s[:4], "the ") {
		s = strings.TrimSpace(s[4:])
	}
	return strings.TrimSpace(artistNoise.Replace(s))
}
