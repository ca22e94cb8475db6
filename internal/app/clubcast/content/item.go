// Package content holds the record types stored in the catalog.
package content

import "time"

// Kind selects one of the two exclusive content categories.
type Kind string

const (
	// Episodes are the members-only bonus audio episodes.
	Episodes Kind = "episodes"
	// Videos are the members-only video posts.
	Videos Kind = "videos"
)

// Folder is the per-kind subdirectory under the download root.
func (k Kind) Folder() string {
	if k == Videos {
		return "Videos"
	}
	return "Episodes"
}

// FeedFile is the fixed feed file name for the kind.
func (k Kind) FeedFile() string {
	return string(k) + ".xml"
}

// Account is the single subscriber the tool acts as. Password holds
// the vault ciphertext, never the plain credential.
type Account struct {
	Username    string
	Password    []byte
	DownloadDir string
	LastUpdated time.Time
}

// Episode is one bonus audio episode. (Title, URL) is the dedup key.
type Episode struct {
	ID          int64
	Title       string
	Description string
	Date        time.Time
	URL         string
	Image       string
	Audio       string
	LastUpdated time.Time
}

// Video is one video post. VideoURL is an indirect locator that needs
// a metadata-service lookup before it is playable or downloadable.
type Video struct {
	ID          int64
	Title       string
	Category    string
	Date        time.Time
	URL         string
	Image       string
	VideoImage  string
	VideoURL    string
	LastUpdated time.Time
}
