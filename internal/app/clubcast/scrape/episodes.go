package scrape

import (
	"errors"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	log "github.com/go-pkgz/lgr"

	"clubcast/internal/app/clubcast/content"
	"clubcast/internal/app/clubcast/store"
	"clubcast/internal/app/clubcast/web"
)

var m4aExpr = regexp.MustCompile(`m4a: "(.+?)"`)

// Episodes ingests the members-only audio episodes.
type Episodes struct {
	Session  *web.Session
	Store    *store.Store
	ListURL  string
	Progress io.Writer
}

// Update scans the episode listing and stores the episodes that are
// not in the catalog yet. It returns the inserted episodes in
// discovery order and the count of candidates skipped over parse
// faults.
func (p *Episodes) Update() ([]content.Episode, int, error) {
	doc, err := p.Session.Document(p.ListURL)
	if err != nil {
		return nil, 0, err
	}

	list := doc.Find(episodeListSelector)
	if list.Length() == 0 {
		return nil, 0, &content.ParseError{Kind: content.Episodes, Element: "episode list"}
	}

	// member-exclusive episodes carry the club tag; the card itself
	// is the tag's grandparent
	tags := list.Find(memberTagSelector)
	bar := scanBar(tags.Length(), "episodes", p.Progress)

	var staged []content.Episode
	var skipped int
	var fetchErr error
	seen := map[string]bool{}

	tags.EachWithBreak(func(_ int, tag *goquery.Selection) bool {
		_ = bar.Add(1)

		ep, err := p.buildEpisode(tag.Parent().Parent(), seen)
		if err != nil {
			var perr *content.ParseError
			if errors.As(err, &perr) {
				log.Printf("[WARN] skipping episode candidate: %v", perr)
				skipped++
				return true
			}
			fetchErr = err
			return false
		}
		if ep != nil {
			staged = append(staged, *ep)
		}
		return true
	})
	_ = bar.Finish()

	if fetchErr != nil {
		return nil, skipped, fetchErr
	}
	if err := p.Store.InsertEpisodes(staged); err != nil {
		return nil, skipped, err
	}
	return staged, skipped, nil
}

// buildEpisode turns one listing card into a complete episode, or nil
// when the episode is already stored or already staged in this scan.
func (p *Episodes) buildEpisode(card *goquery.Selection, seen map[string]bool) (*content.Episode, error) {
	title := strings.TrimSpace(card.Find("h1").First().Text())
	if title == "" {
		return nil, &content.ParseError{Kind: content.Episodes, Element: "episode title"}
	}

	href, ok := card.Find("a").First().Attr("href")
	if !ok {
		return nil, &content.ParseError{Kind: content.Episodes, Element: "episode link"}
	}
	pageURL := p.Session.AbsURL(href)

	key := dedupKey(title, pageURL)
	if seen[key] {
		return nil, nil
	}
	seen[key] = true

	date, err := cardDate(card)
	if err != nil {
		return nil, err
	}

	known, err := p.Store.FindEpisode(title, pageURL)
	if err != nil {
		return nil, err
	}
	if known != nil {
		return nil, nil
	}

	description, image, audio, err := p.episodeDetail(pageURL)
	if err != nil {
		return nil, err
	}

	return &content.Episode{
		Title:       title,
		Description: description,
		Date:        date,
		URL:         pageURL,
		Image:       image,
		Audio:       audio,
	}, nil
}

// episodeDetail fetches the episode page for the fields the listing
// does not carry: descriptive text, thumbnail and the direct audio
// URL buried in the inline player script.
func (p *Episodes) episodeDetail(pageURL string) (description, image, audio string, err error) {
	doc, err := p.Session.Document(pageURL)
	if err != nil {
		return "", "", "", err
	}

	about := doc.Find(aboutSelector).First()
	description = strings.TrimSpace(about.Find("p").First().Text())
	if description == "" {
		return "", "", "", &content.ParseError{Kind: content.Episodes, Element: "episode description"}
	}

	image, ok := about.Find("img").First().Attr("src")
	if !ok {
		return "", "", "", &content.ParseError{Kind: content.Episodes, Element: "episode thumbnail"}
	}
	image = strings.TrimSpace(image)

	doc.Find("script").EachWithBreak(func(_ int, script *goquery.Selection) bool {
		if _, external := script.Attr("src"); external {
			return true
		}
		if m := m4aExpr.FindStringSubmatch(script.Text()); m != nil {
			audio = strings.TrimSpace(m[1])
			return false
		}
		return true
	})
	if audio == "" {
		return "", "", "", &content.ParseError{Kind: content.Episodes, Element: "audio url"}
	}
	return description, image, audio, nil
}

// cardDate reads the split day / month-year date block on a card.
func cardDate(card *goquery.Selection) (t time.Time, err error) {
	block := card.Find(dateSelector).First()
	day := strings.TrimSpace(block.Find("h3").First().Text())
	monthYear := strings.TrimSpace(block.Find("h4").First().Text())

	t, ok := parseDate(day + " " + monthYear)
	if !ok {
		return time.Time{}, &content.ParseError{Kind: content.Episodes, Element: "episode date"}
	}
	return t, nil
}
