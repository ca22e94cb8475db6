package feed

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clubcast/internal/app/clubcast/content"
	"clubcast/internal/app/clubcast/web"
)

func testInfo() Info {
	return Info{
		Title:       "My Club",
		Subtitle:    "Members only",
		AuthorName:  "The Hosts",
		AuthorEmail: "hosts@example.com",
		Logo:        "https://example.com/logo.png",
		SiteLink:    "https://example.com",
		Language:    "en-US",
	}
}

func newSynthesizer(t *testing.T) (*Synthesizer, *httptest.Server) {
	t.Helper()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "missing") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "audio/x-m4a")
		w.Header().Set("Content-Length", "123456")
	}))
	t.Cleanup(ts.Close)

	session, err := web.NewSession(ts.URL, "test-agent")
	require.NoError(t, err)
	return &Synthesizer{Session: session, Info: testInfo()}, ts
}

func TestEpisodesFeed(t *testing.T) {
	s, ts := newSynthesizer(t)

	episodes := []content.Episode{
		{
			ID:          1,
			Title:       "First Show",
			Description: "The one that started it",
			Date:        time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC),
			URL:         "https://example.com/episodes/first-show",
			Image:       "https://example.com/img/first.jpg",
			Audio:       ts.URL + "/first.m4a",
		},
		{
			ID:          2,
			Title:       "Second Show",
			Description: "The follow-up",
			Date:        time.Date(2023, 1, 9, 0, 0, 0, 0, time.UTC),
			URL:         "https://example.com/episodes/second-show",
			Image:       "https://example.com/img/second.jpg",
			Audio:       ts.URL + "/second.m4a",
		},
	}

	data, err := s.Episodes(episodes)
	require.NoError(t, err)
	doc := string(data)

	assert.Contains(t, doc, `<?xml`)
	assert.Contains(t, doc, `xmlns:itunes="http://www.itunes.com/dtds/podcast-1.0.dtd"`)
	assert.Contains(t, doc, `<title>My Club Episodes</title>`)
	assert.Contains(t, doc, `<itunes:author>The Hosts</itunes:author>`)
	assert.Contains(t, doc, `<guid isPermaLink="false">1</guid>`)
	assert.Contains(t, doc, `<pubDate>Mon, 02 Jan 2023 00:00:00 +0000</pubDate>`)
	assert.Contains(t, doc, `<enclosure url="`+ts.URL+`/first.m4a" length="123456" type="audio/x-m4a">`)

	// feed items keep the order they were given in
	assert.Less(t, strings.Index(doc, "First Show"), strings.Index(doc, "Second Show"))
}

func TestEpisodesFeedProbeFailure(t *testing.T) {
	s, ts := newSynthesizer(t)

	data, err := s.Episodes([]content.Episode{{
		ID:    1,
		Title: "Gone Show",
		Date:  time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC),
		URL:   "https://example.com/episodes/gone",
		Audio: ts.URL + "/missing.m4a",
	}})
	require.NoError(t, err, "a dead enclosure never fails the feed")
	assert.Contains(t, string(data), `<enclosure url="`+ts.URL+`/missing.m4a" length="" type="">`)
}

func TestVideosFeed(t *testing.T) {
	s, _ := newSynthesizer(t)

	videos := []content.Video{
		{
			ID:         7,
			Title:      "Backstage Tour",
			Category:   "Bonus",
			Date:       time.Date(2023, 2, 1, 0, 0, 0, 0, time.UTC),
			URL:        "https://example.com/news/backstage-tour",
			Image:      "https://example.com/img/tour.jpg",
			VideoImage: "https://example.com/img/tour-play.jpg",
			VideoURL:   "https://vimeo.com/100001",
		},
	}

	data, err := s.Videos(videos)
	require.NoError(t, err)
	doc := string(data)

	assert.Contains(t, doc, `xmlns:media="http://search.yahoo.com/mrss/"`)
	assert.Contains(t, doc, `xmlns:content="http://purl.org/rss/1.0/modules/content/"`)
	assert.Contains(t, doc, `<title>My Club Videos</title>`)
	assert.Contains(t, doc, `<guid isPermaLink="false">7</guid>`)
	assert.Contains(t, doc, `<media:thumbnail url="https://example.com/img/tour.jpg">`)
	assert.Contains(t, doc, `<media:content url="https://vimeo.com/100001">`)
	assert.Contains(t, doc, `<![CDATA[<p>Bonus</p>`)
	assert.NotContains(t, doc, "itunes:owner", "video feed carries no podcast extension")
}

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()

	path, err := WriteFile(dir, content.Episodes, []byte("<rss/>"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "episodes.xml"), path)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("<rss/>"), got)

	path, err = WriteFile(dir, content.Videos, []byte("<rss/>"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "videos.xml"), path)
}
