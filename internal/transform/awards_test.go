package transform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/chart-etl/internal/model"
)

func rawAward(year int64, category string, nominee, artist, workers *string, winner bool) model.RawAward {
	return model.RawAward{
		Year:     &year,
		Category: &category,
		Nominee:  nominee,
		Artist:   artist,
		Workers:  workers,
		Winner:   &winner,
	}
}

func TestCleanAwards(t *testing.T) {
	t.Parallel()

	raws := []model.RawAward{
		// direct artist is cleaned
		rawAward(2020, "Record Of The Year", strPtr("Bad Guy"), strPtr("Billie Eilish"), nil, true),
		// null nominee dropped
		rawAward(2020, "Song Of The Year", nil, strPtr("Someone"), nil, false),
		// exempt category: title becomes artist
		rawAward(1961, "Best Classical Vocal Soloist Performance", strPtr("The Vienna Choir"), nil, nil, false),
		// not exempt with no artist and no credits: dropped
		rawAward(1961, "Album Of The Year", strPtr("Orphan"), nil, nil, false),
		// recovered from credits
		rawAward(2001, "Best Orchestral Performance", strPtr("Symphony No. 5"), nil, strPtr("Jane Doe (Conductor)"), true),
		// unresolvable credits dropped
		rawAward(2001, "Best Engineered Album", strPtr("Quiet"), nil, strPtr("X, engineer; Y, mastering engineer"), false),
		// various artists canonicalized
		rawAward(1999, "Best Compilation", strPtr("Hits"), strPtr("(Various Artists)"), nil, false),
	}

	got, stats, err := DefaultRules().cleanAwards(raws, false)
	require.NoError(t, err)

	want := []model.Award{
		{Year: 2020, Category: "Record Of The Year", Title: "Bad Guy", Artist: "Billie Eilish", IsWinner: true},
		{Year: 1961, Category: "Best Classical Vocal Soloist Performance", Title: "The Vienna Choir", Artist: "Vienna Choir"},
		{Year: 2001, Category: "Best Orchestral Performance", Title: "Symphony No. 5", Artist: "Conductor", IsWinner: true},
		{Year: 1999, Category: "Best Compilation", Title: "Hits", Artist: "Various Artists"},
	}
	assert.Equal(t, want, got)

	assert.Equal(t, 7, stats.In)
	assert.Equal(t, 4, stats.Out)
	assert.Equal(t, 1, stats.NullTitle)
	assert.Equal(t, 1, stats.NoAttribution)
	assert.Equal(t, 1, stats.Unresolved)
	assert.Equal(t, 1, stats.Exempt)
	assert.Equal(t, 1, stats.Recovered[StepParenthesized])
}

func TestCleanAwards_Defaults(t *testing.T) {
	t.Parallel()

	raws := []model.RawAward{{Nominee: strPtr("Song"), Artist: strPtr("Band")}}

	got, err := DefaultRules().CleanAwards(raws)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, model.Award{Year: 0, Category: "Unknown", Title: "Song", Artist: "Band", IsWinner: false}, got[0])
}

func TestCleanAwards_Empty(t *testing.T) {
	t.Parallel()

	_, err := DefaultRules().CleanAwards(nil)
	var ee *EmptyInputError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, StageAwards, ee.Stage)
}

func TestCleanAwards_FixedPoint(t *testing.T) {
	t.Parallel()

	r := DefaultRules()
	once, err := r.CleanAwards([]model.RawAward{
		rawAward(2020, "Record Of The Year", strPtr("Bad Guy"), strPtr("Billie Eilish"), nil, true),
		rawAward(2001, "Best Choral Performance", strPtr("Requiem"), nil, strPtr("John Williams, conductor; Boston Pops, ensembles"), false),
		rawAward(1967, "Best Group", strPtr("Winchester Cathedral"), strPtr("The New Vaudeville Band"), nil, true),
		rawAward(1979, "Best R&B Vocal Performance", strPtr("September"), strPtr("Earth, Wind & Fire"), nil, true),
	})
	require.NoError(t, err)
	assert.Equal(t, "Earth, Wind", once[3].Artist)

	f := model.NewFrame(model.AwardColumns...)
	for _, a := range once {
		f.Rows = append(f.Rows, a.Row())
	}
	twice, err := r.CleanAwardFrame(f)
	require.NoError(t, err)
	assert.Equal(t, once, twice)
}

func TestCleanAwards_EmptyCreditGroups(t *testing.T) {
	t.Parallel()

	got, stats, err := DefaultRules().cleanAwards([]model.RawAward{
		// an empty group falls through to the whole credits, which clean to ""
		rawAward(2005, "Best Polka Album", strPtr("Polka"), nil, strPtr("()"), false),
		// blank credits cannot be attributed
		rawAward(2005, "Best Polka Album", strPtr("Blank"), nil, strPtr("   "), false),
	}, false)
	require.NoError(t, err)

	require.Len(t, got, 1)
	assert.Equal(t, "Polka", got[0].Title)
	assert.Equal(t, "Unknown", got[0].Artist)
	assert.Equal(t, 1, stats.Recovered[StepWholeCredits])
	assert.Equal(t, 1, stats.Unresolved)
}

func TestCleanAwards_PrimaryArtist(t *testing.T) {
	t.Parallel()

	got, err := DefaultRules().CleanAwards([]model.RawAward{
		rawAward(2010, "Best Rap/Sung Collaboration", strPtr("Crazy In Love"), strPtr("Jay-Z & Beyoncé"), nil, true),
		rawAward(2011, "Best Pop Collaboration", strPtr("Telephone"), strPtr("Lady Gaga Featuring Beyoncé"), nil, false),
		rawAward(2001, "Best Choral Performance", strPtr("Requiem"), nil, strPtr("John Williams, conductor; Boston Pops, ensembles"), false),
		rawAward(1990, "Best Group", strPtr("Hits"), strPtr("The Doobie Brothers"), nil, false),
	})
	require.NoError(t, err)

	artists := make([]string, len(got))
	for i, a := range got {
		artists[i] = a.Artist
	}
	assert.Equal(t, []string{"Jay-Z", "Lady Gaga", "John Williams", "Doobie Brothers"}, artists)
}

func TestCleanAwardFrame(t *testing.T) {
	t.Parallel()

	header := []string{"year", "title", "published_at", "updated_at", "category", "nominee", "artist", "workers", "img", "winner"}
	records := [][]string{
		{"2019", "62nd Annual GRAMMY Awards (2019)", "2020-05-19T05:10:28-07:00", "2020-05-19T05:10:28-07:00", "Record Of The Year", "Bad Guy", "Billie Eilish", "Finneas O'Connell, producer", "https://x/img.png", "True"},
		{"2019", "62nd Annual GRAMMY Awards (2019)", "", "", "Best Chamber Music/Small Ensemble Performance", "Shaw: Orange", "", "Attacca Quartet", "", "True"},
		{"2019", "62nd Annual GRAMMY Awards (2019)", "", "", "Song Of The Year", "", "Lizzo", "", "", "False"},
	}
	f, renamed := model.FrameFromStrings(header, records)
	assert.Empty(t, renamed)

	got, err := DefaultRules().CleanAwardFrame(f)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, model.Award{Year: 2019, Category: "Record Of The Year", Title: "Bad Guy", Artist: "Billie Eilish", IsWinner: true}, got[0])
	assert.Equal(t, "Attacca Quartet", got[1].Artist)
	assert.Equal(t, "Shaw: Orange", got[1].Title)
}

func TestCleanAwardFrame_CleanedShapeIsFixedPoint(t *testing.T) {
	t.Parallel()

	r := DefaultRules()
	f := model.NewFrame(model.AwardColumns...)
	cleaned := []model.Award{
		{Year: 2020, Category: "Record Of The Year", Title: "Bad Guy", Artist: "Billie Eilish", IsWinner: true},
		{Year: 2015, Category: "Best Rap Album", Title: "To Pimp A Butterfly", Artist: "Kendrick Lamar"},
	}
	for _, a := range cleaned {
		f.Rows = append(f.Rows, a.Row())
	}

	got, err := r.CleanAwardFrame(f)
	require.NoError(t, err)
	assert.Equal(t, cleaned, got)
}

func TestCleanAwardFrame_MissingColumns(t *testing.T) {
	t.Parallel()

	f, _ := model.FrameFromStrings([]string{"year", "category", "nominee"}, [][]string{{"2020", "X", "Y"}})

	_, err := DefaultRules().CleanAwardFrame(f)
	var se *SchemaError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, StageAwards, se.Stage)
	assert.Equal(t, []string{"artist", "workers", "winner"}, se.Missing)
}
