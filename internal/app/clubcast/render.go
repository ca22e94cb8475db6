package clubcast

import (
	"fmt"
	"io"
	"os/exec"
	"runtime"
	"strconv"

	"github.com/olekukonko/tablewriter"

	"clubcast/internal/app/clubcast/content"
)

const detailForm = "%15s: %s\n"

func renderEpisodeList(out io.Writer, episodes []content.Episode) {
	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"ID", "Date", "Title", "Description", "URL"})
	for _, ep := range episodes {
		table.Append([]string{
			strconv.FormatInt(ep.ID, 10),
			ep.Date.Format("02 January 2006"),
			shorten(ep.Title, 50),
			shorten(ep.Description, 50),
			shorten(ep.URL, 50),
		})
	}
	table.Render()
}

func renderVideoList(out io.Writer, videos []content.Video) {
	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"ID", "Date", "Title", "Category", "URL"})
	for _, v := range videos {
		table.Append([]string{
			strconv.FormatInt(v.ID, 10),
			v.Date.Format("02 January 2006"),
			shorten(v.Title, 50),
			v.Category,
			shorten(v.URL, 50),
		})
	}
	table.Render()
}

func renderEpisodeDetail(out io.Writer, ep *content.Episode) {
	fmt.Fprintf(out, detailForm, "ID", strconv.FormatInt(ep.ID, 10))
	fmt.Fprintf(out, detailForm, "Date", ep.Date.Format("02 January 2006"))
	fmt.Fprintf(out, detailForm, "Title", ep.Title)
	fmt.Fprintf(out, detailForm, "Description", ep.Description)
	fmt.Fprintf(out, detailForm, "Thumbnail", ep.Image)
	fmt.Fprintf(out, detailForm, "Audio", ep.Audio)
	fmt.Fprintf(out, detailForm, "URL", ep.URL)
}

func renderVideoDetail(out io.Writer, v *content.Video) {
	fmt.Fprintf(out, detailForm, "ID", strconv.FormatInt(v.ID, 10))
	fmt.Fprintf(out, detailForm, "Date", v.Date.Format("02 January 2006"))
	fmt.Fprintf(out, detailForm, "Title", v.Title)
	fmt.Fprintf(out, detailForm, "Category", v.Category)
	fmt.Fprintf(out, detailForm, "Thumbnail", v.Image)
	fmt.Fprintf(out, detailForm, "Video", v.VideoURL)
	fmt.Fprintf(out, detailForm, "URL", v.URL)
}

// shorten truncates to width runes; titles carry curly quotes and
// other multibyte characters that must not be cut mid-rune.
func shorten(s string, width int) string {
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	if width <= 3 {
		return string(r[:width])
	}
	return string(r[:width-3]) + "..."
}

// launch opens rawURL in the system browser.
func launch(rawURL string) error {
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("open", rawURL).Start()
	case "windows":
		return exec.Command("cmd", "/c", "start", rawURL).Start()
	default:
		return exec.Command("xdg-open", rawURL).Start()
	}
}
