// Package feed projects stored catalog rows into RSS documents. The
// episode feed is a podcast feed with itunes extension fields; the
// video feed uses the media extension with a thumbnail plus content
// reference per entry.
package feed

import (
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"time"

	log "github.com/go-pkgz/lgr"

	"clubcast/internal/app/clubcast/content"
	"clubcast/internal/app/clubcast/web"
)

// Info is the channel-level metadata shared by both feeds.
type Info struct {
	Title       string
	Subtitle    string
	AuthorName  string
	AuthorEmail string
	Logo        string
	SiteLink    string
	Language    string
}

// Synthesizer builds feed documents. The session is only used for
// lightweight HEAD probes of enclosure resources.
type Synthesizer struct {
	Session *web.Session
	Info    Info
}

type rss struct {
	XMLName   xml.Name `xml:"rss"`
	Version   string   `xml:"version,attr"`
	ItunesNS  string   `xml:"xmlns:itunes,attr,omitempty"`
	MediaNS   string   `xml:"xmlns:media,attr,omitempty"`
	ContentNS string   `xml:"xmlns:content,attr,omitempty"`
	Channel   *channel `xml:"channel"`
}

type channel struct {
	Title          string       `xml:"title"`
	Link           string       `xml:"link"`
	Description    string       `xml:"description"`
	Copyright      string       `xml:"copyright"`
	ManagingEditor string       `xml:"managingEditor"`
	Language       string       `xml:"language"`
	Image          *feedImage   `xml:"image,omitempty"`
	ItunesAuthor   string       `xml:"itunes:author,omitempty"`
	ItunesOwner    *itunesOwner `xml:"itunes:owner,omitempty"`
	ItunesImage    *itunesImage `xml:"itunes:image,omitempty"`
	Items          []item       `xml:"item"`
}

type feedImage struct {
	URL   string `xml:"url"`
	Title string `xml:"title"`
	Link  string `xml:"link"`
}

type itunesOwner struct {
	Name  string `xml:"itunes:name"`
	Email string `xml:"itunes:email"`
}

type itunesImage struct {
	Href string `xml:"href,attr"`
}

type item struct {
	GUID           guid         `xml:"guid"`
	Title          string       `xml:"title"`
	Description    string       `xml:"description,omitempty"`
	Content        *cdata       `xml:"content:encoded,omitempty"`
	PubDate        string       `xml:"pubDate"`
	Link           string       `xml:"link"`
	Author         string       `xml:"author,omitempty"`
	ItunesAuthor   string       `xml:"itunes:author,omitempty"`
	ItunesImage    *itunesImage `xml:"itunes:image,omitempty"`
	Enclosure      *enclosure   `xml:"enclosure,omitempty"`
	MediaThumbnail *mediaRef    `xml:"media:thumbnail,omitempty"`
	MediaContent   *mediaRef    `xml:"media:content,omitempty"`
}

type guid struct {
	Value       string `xml:",chardata"`
	IsPermaLink string `xml:"isPermaLink,attr"`
}

type enclosure struct {
	URL    string `xml:"url,attr"`
	Length string `xml:"length,attr"`
	Type   string `xml:"type,attr"`
}

type mediaRef struct {
	URL string `xml:"url,attr"`
}

type cdata struct {
	Text string `xml:",cdata"`
}

// Episodes renders the podcast feed document for the given episodes,
// in the order given. Each enclosure is completed with a HEAD probe
// of the audio resource.
func (s *Synthesizer) Episodes(items []content.Episode) ([]byte, error) {
	ch := s.channel("Episodes")
	ch.ItunesAuthor = s.Info.AuthorName
	ch.ItunesOwner = &itunesOwner{Name: s.Info.AuthorName, Email: s.Info.AuthorEmail}
	ch.ItunesImage = &itunesImage{Href: s.Info.Logo}

	for _, ep := range items {
		length, ctype := s.probe(ep.Audio)
		ch.Items = append(ch.Items, item{
			GUID:         guid{Value: fmt.Sprintf("%d", ep.ID), IsPermaLink: "false"},
			Title:        ep.Title,
			Description:  ep.Description,
			PubDate:      pubDate(ep.Date),
			Link:         ep.URL,
			ItunesAuthor: s.Info.AuthorName,
			ItunesImage:  &itunesImage{Href: ep.Image},
			Enclosure:    &enclosure{URL: ep.Audio, Length: length, Type: ctype},
		})
	}

	doc := &rss{
		Version:  "2.0",
		ItunesNS: "http://www.itunes.com/dtds/podcast-1.0.dtd",
		Channel:  ch,
	}
	return render(doc)
}

// Videos renders the media feed document for the given videos, in the
// order given.
func (s *Synthesizer) Videos(items []content.Video) ([]byte, error) {
	ch := s.channel("Videos")

	for _, v := range items {
		body := fmt.Sprintf(`<p>%s</p><p><a href=%q><img src=%q/></a></p>`,
			v.Category, v.URL, v.VideoImage)
		ch.Items = append(ch.Items, item{
			GUID:           guid{Value: fmt.Sprintf("%d", v.ID), IsPermaLink: "false"},
			Title:          v.Title,
			Description:    v.Category,
			Content:        &cdata{Text: body},
			PubDate:        pubDate(v.Date),
			Link:           v.URL,
			Author:         fmt.Sprintf("%s (%s)", s.Info.AuthorEmail, s.Info.AuthorName),
			MediaThumbnail: &mediaRef{URL: v.Image},
			MediaContent:   &mediaRef{URL: v.VideoURL},
		})
	}

	doc := &rss{
		Version:   "2.0",
		MediaNS:   "http://search.yahoo.com/mrss/",
		ContentNS: "http://purl.org/rss/1.0/modules/content/",
		Channel:   ch,
	}
	return render(doc)
}

// WriteFile stores a rendered document under its fixed per-kind name.
func WriteFile(dir string, kind content.Kind, data []byte) (string, error) {
	path := filepath.Join(dir, kind.FeedFile())
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write feed file: %w", err)
	}
	return path, nil
}

func (s *Synthesizer) channel(kindLabel string) *channel {
	return &channel{
		Title:          fmt.Sprintf("%s %s", s.Info.Title, kindLabel),
		Link:           s.Info.SiteLink,
		Description:    s.Info.Subtitle,
		Copyright:      fmt.Sprintf("%d %s", time.Now().Year(), s.Info.AuthorName),
		ManagingEditor: fmt.Sprintf("%s (%s)", s.Info.AuthorEmail, s.Info.AuthorName),
		Language:       s.Info.Language,
		Image:          &feedImage{URL: s.Info.Logo, Title: s.Info.Title, Link: s.Info.SiteLink},
	}
}

// probe asks the media host for enclosure size and type. A failed
// probe degrades to empty attributes instead of failing the feed.
func (s *Synthesizer) probe(rawURL string) (length, ctype string) {
	headers, err := s.Session.Head(rawURL)
	if err != nil {
		log.Printf("[WARN] can't probe enclosure %s, %v", rawURL, err)
		return "", ""
	}
	return headers.Get("Content-Length"), headers.Get("Content-Type")
}

func pubDate(t time.Time) string {
	return t.UTC().Format(time.RFC1123Z)
}

func render(doc *rss) ([]byte, error) {
	body, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("render feed: %w", err)
	}
	return append([]byte(xml.Header), append(body, '\n')...), nil
}
