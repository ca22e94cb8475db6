// Package vimeo talks to the metadata service that hosts the portal's
// video files. The portal only stores an opaque video locator; this
// client resolves it into thumbnails, an embeddable player and a
// downloadable stream.
package vimeo

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"clubcast/internal/app/clubcast/content"
	"clubcast/internal/app/clubcast/web"
)

// Client queries the oembed endpoint and the embedded player.
type Client struct {
	session   *web.Session
	oembedURL string
}

// Metadata is the subset of the oembed response the tool uses.
type Metadata struct {
	Title                      string `json:"title"`
	ThumbnailURL               string `json:"thumbnail_url"`
	ThumbnailURLWithPlayButton string `json:"thumbnail_url_with_play_button"`
	HTML                       string `json:"html"`
}

// Stream is one downloadable rendition of a video.
type Stream struct {
	Title  string
	URL    string
	Width  int
	Height int
}

// New builds a client on top of the shared session.
func New(session *web.Session, oembedURL string) *Client {
	return &Client{session: session, oembedURL: oembedURL}
}

// Metadata fetches oembed data for an opaque video locator.
func (c *Client) Metadata(videoURL string) (*Metadata, error) {
	m := &Metadata{}
	reqURL := c.oembedURL + "?url=" + url.QueryEscape(videoURL)
	if err := c.session.JSON(reqURL, "", m); err != nil {
		return nil, err
	}
	return m, nil
}

// PlayerURL extracts the embedded player address from the oembed HTML
// fragment, query string stripped.
func (c *Client) PlayerURL(m *Metadata) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(m.HTML))
	if err != nil {
		return "", fmt.Errorf("parse player fragment: %w", err)
	}
	src, ok := doc.Find("iframe").First().Attr("src")
	if !ok {
		return "", &content.ParseError{Kind: content.Videos, Element: "player iframe"}
	}
	if i := strings.IndexByte(src, '?'); i >= 0 {
		src = src[:i]
	}
	return strings.TrimSpace(src), nil
}

// playerConfig mirrors the player configuration document.
type playerConfig struct {
	Video struct {
		Title string `json:"title"`
	} `json:"video"`
	Request struct {
		Files struct {
			Progressive []struct {
				URL    string `json:"url"`
				Width  int    `json:"width"`
				Height int    `json:"height"`
			} `json:"progressive"`
		} `json:"files"`
	} `json:"request"`
}

// BestStream resolves the highest-resolution progressive rendition of
// the video behind playerURL. embeddedOn is the portal page embedding
// the player; the service checks it.
func (c *Client) BestStream(playerURL, embeddedOn string) (*Stream, error) {
	cfg := &playerConfig{}
	cfgURL := strings.TrimRight(playerURL, "/") + "/config"
	if err := c.session.JSON(cfgURL, embeddedOn, cfg); err != nil {
		return nil, err
	}

	best := &Stream{Title: cfg.Video.Title}
	for _, f := range cfg.Request.Files.Progressive {
		if f.Height > best.Height {
			best.URL = f.URL
			best.Width = f.Width
			best.Height = f.Height
		}
	}
	if best.URL == "" {
		return nil, fmt.Errorf("no downloadable streams for %s", playerURL)
	}
	return best, nil
}
