// Package scrape holds the per-kind ingestion pipelines. A pipeline
// walks the portal listing in discovery order, skips known items by
// their (title, url) dedup key, completes new candidates from detail
// pages and metadata lookups, and commits the staged batch in one
// transaction.
//
// A candidate with a missing structural element is skipped with a
// warning and counted; it never discards the rest of the batch. A
// transport fault aborts the whole scan.
package scrape

import (
	"io"
	"strings"
	"time"

	"github.com/schollz/progressbar/v3"
)

const (
	episodeListSelector = "div.eps"
	memberTagSelector   = "div.club-tag"
	aboutSelector       = "div.home-about"
	dateSelector        = "div.ep-date"
	newsGridSelector    = "div.news-grid"
	locatorSelector     = "div.bg-image"
	locatorAttr         = "data-vimeo"
)

// The portal renders dates for humans, in a couple of variants.
var dateLayouts = []string{
	"2 January 2006",
	"2 Jan 2006",
	"January 2, 2006",
	"Jan 2, 2006",
}

// dedupKey is the (title, url) identity of a candidate. Listings
// occasionally render the same card twice; the key keeps one staged
// row per identity so the batch insert never trips its own UNIQUE
// constraint.
func dedupKey(title, url string) string {
	return title + "\n" + url
}

func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func scanBar(n int, unit string, w io.Writer) *progressbar.ProgressBar {
	if w == nil {
		w = io.Discard
	}
	return progressbar.NewOptions(n,
		progressbar.OptionSetDescription("Scanning for new "+unit),
		progressbar.OptionSetWriter(w),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
}
