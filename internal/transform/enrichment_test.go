package transform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/chart-etl/internal/model"
)

func TestCleanEnrichmentFrame(t *testing.T) {
	t.Parallel()

	f, _ := model.FrameFromStrings(
		[]string{"Track ID", "Artist ID", "Artist Name", "Followers"},
		[][]string{
			{"t1", "a1", "Gen Hoshino", "4000000"},
			{"t2", "", "", ""},
			{"", "", "Ghost", "5"},
			{"t3", "a3", "Negative", "-3"},
		},
	)

	got, err := CleanEnrichmentFrame(f)
	require.NoError(t, err)
	assert.Equal(t, []model.Enrichment{
		{TrackID: "t1", ArtistID: "a1", ArtistName: "Gen Hoshino", Followers: 4000000},
		{TrackID: "t2", ArtistName: "Unknown"},
		{TrackID: "t3", ArtistID: "a3", ArtistName: "Negative"},
	}, got)
}

func TestCleanEnrichmentFrame_ArtistFollowersVariant(t *testing.T) {
	t.Parallel()

	f, _ := model.FrameFromStrings(
		[]string{"track_id", "artist_id", "artist_followers"},
		[][]string{{"t1", "a1", "12"}},
	)

	got, err := CleanEnrichmentFrame(f)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(12), got[0].Followers)
	assert.Equal(t, "Unknown", got[0].ArtistName)
}

func TestCleanEnrichmentFrame_Errors(t *testing.T) {
	t.Parallel()

	_, err := CleanEnrichmentFrame(model.NewFrame("track_id"))
	var ee *EmptyInputError
	require.ErrorAs(t, err, &ee)

	f, _ := model.FrameFromStrings([]string{"artist_name"}, [][]string{{"x"}})
	_, err = CleanEnrichmentFrame(f)
	var se *SchemaError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, StageEnrichment, se.Stage)

	f, _ = model.FrameFromStrings([]string{"track_id", "followers"}, [][]string{{"t1", "lots"}})
	_, err = CleanEnrichmentFrame(f)
	var de *DecodeError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "followers", de.Column)
}

func TestCleanEnrichment_FixedPoint(t *testing.T) {
	t.Parallel()

	once, err := CleanEnrichment([]model.RawEnrichment{
		{TrackID: strPtr("t1"), ArtistID: strPtr("a1")},
		{TrackID: strPtr("t2"), ArtistID: strPtr("a2"), ArtistName: strPtr("Drake")},
	})
	require.NoError(t, err)

	f := model.NewFrame(model.EnrichmentColumns...)
	for _, e := range once {
		f.Rows = append(f.Rows, e.Row())
	}
	twice, err := CleanEnrichmentFrame(f)
	require.NoError(t, err)
	assert.Equal(t, once, twice)
}

func TestNormalizeColumnName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "artist_name", NormalizeColumnName(" Artist Name "))
	assert.Equal(t, "followers", NormalizeColumnName("followers"))
}

func TestErrorMessages(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "tracks: missing required columns: a, b", (&SchemaError{Stage: "tracks", Missing: []string{"a", "b"}}).Error())
	assert.Equal(t, "awards: input is empty", (&EmptyInputError{Stage: "awards"}).Error())
	de := &DecodeError{Stage: "merge", Row: -1, Err: assert.AnError}
	assert.Contains(t, de.Error(), "merge: decode:")
	assert.ErrorIs(t, de, assert.AnError)
}
