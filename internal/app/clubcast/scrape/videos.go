package scrape

import (
	"errors"
	"io"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	log "github.com/go-pkgz/lgr"

	"clubcast/internal/app/clubcast/content"
	"clubcast/internal/app/clubcast/store"
	"clubcast/internal/app/clubcast/vimeo"
	"clubcast/internal/app/clubcast/web"
)

// DefaultVideoPageSize matches the portal's archive page size.
const DefaultVideoPageSize = 100

// Videos ingests the members-only video posts from the portal's news
// surface.
type Videos struct {
	Session  *web.Session
	Store    *store.Store
	Vimeo    *vimeo.Client
	NewsURL  string
	Progress io.Writer
}

// Update fetches one listing page of up to limit video posts and
// stores the ones not in the catalog yet. It returns the inserted
// videos in discovery order and the count of candidates skipped over
// parse faults.
func (p *Videos) Update(limit int) ([]content.Video, int, error) {
	if limit <= 0 {
		limit = DefaultVideoPageSize
	}

	doc, err := p.Session.PostQueryDocument(p.NewsURL, url.Values{
		"page":        {"0"},
		"pagesize":    {strconv.Itoa(limit)},
		"articletype": {"1"},
		"onlyfancult": {"false"},
	})
	if err != nil {
		return nil, 0, err
	}

	grid := doc.Find(newsGridSelector)
	if grid.Length() == 0 {
		return nil, 0, &content.ParseError{Kind: content.Videos, Element: "news grid"}
	}

	cards := grid.ChildrenFiltered("div")
	bar := scanBar(cards.Length(), "videos", p.Progress)

	var staged []content.Video
	var skipped int
	var fetchErr error
	seen := map[string]bool{}

	cards.EachWithBreak(func(_ int, card *goquery.Selection) bool {
		_ = bar.Add(1)

		v, err := p.buildVideo(card, seen)
		if err != nil {
			var perr *content.ParseError
			if errors.As(err, &perr) {
				log.Printf("[WARN] skipping video candidate: %v", perr)
				skipped++
				return true
			}
			fetchErr = err
			return false
		}
		if v != nil {
			staged = append(staged, *v)
		}
		return true
	})
	_ = bar.Finish()

	if fetchErr != nil {
		return nil, skipped, fetchErr
	}
	if err := p.Store.InsertVideos(staged); err != nil {
		return nil, skipped, err
	}
	return staged, skipped, nil
}

// buildVideo turns one news tile into a complete video, or nil for
// known videos, repeated tiles and non-video filler tiles.
func (p *Videos) buildVideo(card *goquery.Selection, seen map[string]bool) (*content.Video, error) {
	// tiles without a heading are ads or spacers, not videos
	title := strings.TrimSpace(card.Find("h1").First().Text())
	if title == "" {
		return nil, nil
	}

	href, ok := card.Find("a").First().Attr("href")
	if !ok {
		return nil, &content.ParseError{Kind: content.Videos, Element: "video link"}
	}
	pageURL := p.Session.AbsURL(href)

	key := dedupKey(title, pageURL)
	if seen[key] {
		return nil, nil
	}
	seen[key] = true

	known, err := p.Store.FindVideo(title, pageURL)
	if err != nil {
		return nil, err
	}
	if known != nil {
		return nil, nil
	}

	date, category, err := videoByline(card)
	if err != nil {
		return nil, err
	}

	locator, ok := card.Find(locatorSelector).First().Attr(locatorAttr)
	if !ok {
		return nil, &content.ParseError{Kind: content.Videos, Element: "video locator"}
	}
	locator = strings.TrimSpace(locator)

	meta, err := p.Vimeo.Metadata(locator)
	if err != nil {
		return nil, err
	}

	return &content.Video{
		Title:      title,
		Category:   category,
		Date:       date,
		URL:        pageURL,
		Image:      meta.ThumbnailURL,
		VideoImage: meta.ThumbnailURLWithPlayButton,
		VideoURL:   locator,
	}, nil
}

// videoByline splits the "date - category." line under a tile title.
func videoByline(card *goquery.Selection) (date time.Time, category string, err error) {
	line := strings.TrimSpace(card.Find("h6").First().Text())
	line = strings.TrimSuffix(line, ".")

	parts := strings.SplitN(line, " - ", 2)
	if len(parts) != 2 {
		return time.Time{}, "", &content.ParseError{Kind: content.Videos, Element: "video byline"}
	}

	date, ok := parseDate(parts[0])
	if !ok {
		return time.Time{}, "", &content.ParseError{Kind: content.Videos, Element: "video date"}
	}
	return date, strings.TrimSpace(parts[1]), nil
}
