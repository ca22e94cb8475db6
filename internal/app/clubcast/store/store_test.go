package store

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clubcast/internal/app/clubcast/content"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "var", "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func day(n int) time.Time {
	return time.Date(2021, time.June, n, 12, 0, 0, 0, time.UTC)
}

func episode(n int) content.Episode {
	return content.Episode{
		Title:       "Episode " + string(rune('A'+n)),
		Description: "Bonus content number " + string(rune('A'+n)),
		Date:        day(n + 1),
		URL:         "https://members.example.com/episodes/ep-" + string(rune('a'+n)),
		Image:       "https://members.example.com/img/ep.jpg",
		Audio:       "https://cdn.example.com/audio/ep.m4a",
	}
}

func TestInsertAndFindEpisode(t *testing.T) {
	s := newTestStore(t)

	ep := episode(0)
	require.NoError(t, s.InsertEpisodes([]content.Episode{ep}))

	found, err := s.FindEpisode(ep.Title, ep.URL)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, ep.Title, found.Title)
	assert.Equal(t, ep.Description, found.Description)
	assert.True(t, found.Date.Equal(ep.Date))
	assert.NotZero(t, found.ID)

	missing, err := s.FindEpisode("Unknown", ep.URL)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestDedupKeyUnique(t *testing.T) {
	s := newTestStore(t)

	ep := episode(0)
	require.NoError(t, s.InsertEpisodes([]content.Episode{ep}))

	err := s.InsertEpisodes([]content.Episode{ep})
	assert.Error(t, err)

	rows, err := s.ListEpisodes(ListQuery{})
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestInsertBatchAllOrNothing(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.InsertEpisodes([]content.Episode{episode(0)}))

	// second batch carries a duplicate in last position; the fresh
	// item before it must not survive the rollback
	err := s.InsertEpisodes([]content.Episode{episode(1), episode(0)})
	require.Error(t, err)

	rows, err := s.ListEpisodes(ListQuery{})
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestListEpisodesOrderAndLimit(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.InsertEpisodes([]content.Episode{episode(0), episode(1), episode(2)}))

	newest, err := s.ListEpisodes(ListQuery{})
	require.NoError(t, err)
	require.Len(t, newest, 3)
	assert.True(t, newest[0].Date.After(newest[1].Date))
	assert.True(t, newest[1].Date.After(newest[2].Date))

	oldest, err := s.ListEpisodes(ListQuery{Oldest: true})
	require.NoError(t, err)
	assert.True(t, oldest[0].Date.Before(oldest[1].Date))

	limited, err := s.ListEpisodes(ListQuery{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, limited, 2)
	assert.Equal(t, newest[0].Title, limited[0].Title)

	all, err := s.ListEpisodes(ListQuery{Limit: -3})
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestListEpisodesSearch(t *testing.T) {
	s := newTestStore(t)
	eps := []content.Episode{episode(0), episode(1)}
	eps[0].Title = "Live from the road"
	eps[1].Description = "A roadside chat"
	require.NoError(t, s.InsertEpisodes(eps))

	rows, err := s.ListEpisodes(ListQuery{Search: "road"})
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	rows, err = s.ListEpisodes(ListQuery{Search: "Live"})
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestEpisodeByIDNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.EpisodeByID(42)
	var nfe *content.NotFoundError
	require.True(t, errors.As(err, &nfe))
	assert.Equal(t, content.Episodes, nfe.Kind)
	assert.Equal(t, int64(42), nfe.ID)
}

func TestVideosFilterAndOrder(t *testing.T) {
	s := newTestStore(t)
	vids := []content.Video{
		{Title: "Tour Diary Part 1", Category: "Behind the Scenes", Date: day(1),
			URL: "https://members.example.com/news/1", Image: "i1", VideoImage: "p1",
			VideoURL: "https://vimeo.com/1001"},
		{Title: "Q&A Session", Category: "Live", Date: day(2),
			URL: "https://members.example.com/news/2", Image: "i2", VideoImage: "p2",
			VideoURL: "https://vimeo.com/1002"},
	}
	require.NoError(t, s.InsertVideos(vids))

	rows, err := s.ListVideos(ListQuery{})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Q&A Session", rows[0].Title)

	rows, err = s.ListVideos(ListQuery{Category: "Scenes"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Tour Diary Part 1", rows[0].Title)

	rows, err = s.ListVideos(ListQuery{Search: "Q&A"})
	require.NoError(t, err)
	assert.Len(t, rows, 1)

	v, err := s.VideoByID(rows[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "https://vimeo.com/1002", v.VideoURL)
}

func TestParseStamp(t *testing.T) {
	ts := parseStamp("2021-06-01T12:00:00Z")
	assert.True(t, ts.Equal(day(1)))

	assert.True(t, parseStamp("not a time").IsZero())
	assert.True(t, parseStamp("").IsZero())
}

func TestAccountRoundTrip(t *testing.T) {
	s := newTestStore(t)

	accounts, err := s.Accounts()
	require.NoError(t, err)
	assert.Empty(t, accounts)

	acc := &content.Account{Username: "fan@example.com", Password: []byte{1, 2, 3}, DownloadDir: "/tmp/dl"}
	require.NoError(t, s.SaveAccount(acc))

	found, err := s.FindAccount("fan@example.com")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, []byte{1, 2, 3}, found.Password)
	assert.Equal(t, "/tmp/dl", found.DownloadDir)

	// upsert keeps a single row
	acc.Password = []byte{4, 5, 6}
	require.NoError(t, s.SaveAccount(acc))
	accounts, err = s.Accounts()
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, []byte{4, 5, 6}, accounts[0].Password)

	missing, err := s.FindAccount("nobody@example.com")
	require.NoError(t, err)
	assert.Nil(t, missing)
}
