// Package clubcast wires the catalog store, the authenticated portal
// session and the content pipelines behind the CLI commands. One
// command runs per invocation, synchronously.
package clubcast

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	log "github.com/go-pkgz/lgr"

	"clubcast/internal/app/clubcast/auth"
	"clubcast/internal/app/clubcast/content"
	"clubcast/internal/app/clubcast/feed"
	"clubcast/internal/app/clubcast/fetch"
	"clubcast/internal/app/clubcast/scrape"
	"clubcast/internal/app/clubcast/store"
	"clubcast/internal/app/clubcast/vault"
	"clubcast/internal/app/clubcast/vimeo"
	"clubcast/internal/app/clubcast/web"
	"clubcast/internal/configs"
)

// App carries the per-invocation state shared by all commands.
type App struct {
	conf    *configs.Conf
	store   *store.Store
	session *web.Session
	gateway *auth.Gateway
	vimeo   *vimeo.Client
	manager *fetch.Manager
	term    *Terminal
	out     io.Writer
	prog    io.Writer

	account *content.Account // resolved once per invocation
}

// NewApplication builds the app on an open store and vault.
func NewApplication(conf *configs.Conf, st *store.Store, vlt *vault.Vault, term *Terminal) (*App, error) {
	session, err := web.NewSession(conf.Portal.BaseURL, conf.Portal.UserAgent)
	if err != nil {
		return nil, err
	}

	app := &App{
		conf:    conf,
		store:   st,
		session: session,
		term:    term,
		out:     term.Out,
		prog:    os.Stderr,
		vimeo:   vimeo.New(session, conf.Vimeo.OembedURL),
	}
	app.gateway = &auth.Gateway{
		Store:    st,
		Vault:    vlt,
		Session:  session,
		Prompt:   term,
		LoginURL: session.AbsURL(conf.Portal.LoginPath),
	}
	app.manager = &fetch.Manager{
		Session:   session,
		ChunkSize: conf.Download.ChunkSize,
		Progress:  app.prog,
		Confirm:   term.Confirm,
	}
	return app, nil
}

// login authenticates once and caches the account for the invocation.
func (a *App) login(username string) (*content.Account, error) {
	if a.account != nil {
		return a.account, nil
	}
	acc, err := a.gateway.Login(username)
	if err != nil {
		return nil, err
	}
	a.account = acc
	return acc, nil
}

// Login handles the login command: authenticate with an explicit
// credential pair and keep the account table in step.
func (a *App) Login(username, password string) error {
	var err error
	if username == "" {
		if username, err = a.term.Input("Username"); err != nil {
			return err
		}
	}
	if password == "" {
		if password, err = a.term.Secret("Password"); err != nil {
			return err
		}
	}

	created, updated, err := a.gateway.LoginWith(username, password, defaultDownloadDir())
	if err != nil {
		return err
	}
	switch {
	case created:
		log.Printf("[INFO] successfully logged in!")
	case updated:
		log.Printf("[INFO] successfully updated password!")
	default:
		log.Printf("[INFO] credentials verified")
	}
	return nil
}

// ShowAccount prints the stored account with the credential masked.
func (a *App) ShowAccount(username string) error {
	acc, err := a.gateway.Resolve(username)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, detailForm, "Username", acc.Username)
	fmt.Fprintf(a.out, detailForm, "Password", "*********** [hidden for security]")
	fmt.Fprintf(a.out, detailForm, "Download Path", acc.DownloadDir)
	return nil
}

// SetDownloadDir updates the account's download root.
func (a *App) SetDownloadDir(username, dir string) error {
	if _, err := os.Stat(dir); err != nil {
		return fmt.Errorf("download path %s: %w", dir, err)
	}
	acc, err := a.gateway.Resolve(username)
	if err != nil {
		return err
	}
	acc.DownloadDir = dir
	if err := a.store.SaveAccount(acc); err != nil {
		return err
	}
	log.Printf("[INFO] download path set to: %s", dir)
	return nil
}

// UpdateEpisodes scans the portal for new episodes.
func (a *App) UpdateEpisodes(username string, list bool) error {
	if _, err := a.login(username); err != nil {
		return err
	}

	pipeline := &scrape.Episodes{
		Session:  a.session,
		Store:    a.store,
		ListURL:  a.session.AbsURL(a.conf.Portal.EpisodesPath),
		Progress: a.prog,
	}
	added, skipped, err := pipeline.Update()
	if err != nil {
		return err
	}
	a.reportScan(len(added), skipped, "episode")
	if list && len(added) > 0 {
		renderEpisodeList(a.out, added)
	}
	return nil
}

// UpdateVideos scans the portal's news surface for new videos.
func (a *App) UpdateVideos(username string, limit int, list bool) error {
	if _, err := a.login(username); err != nil {
		return err
	}

	pipeline := &scrape.Videos{
		Session:  a.session,
		Store:    a.store,
		Vimeo:    a.vimeo,
		NewsURL:  a.session.AbsURL(a.conf.Portal.NewsPath),
		Progress: a.prog,
	}
	added, skipped, err := pipeline.Update(limit)
	if err != nil {
		return err
	}
	a.reportScan(len(added), skipped, "video")
	if list && len(added) > 0 {
		renderVideoList(a.out, added)
	}
	return nil
}

func (a *App) reportScan(added, skipped int, unit string) {
	if skipped > 0 {
		log.Printf("[WARN] skipped %d malformed %s candidate(s)", skipped, unit)
	}
	if added == 0 {
		log.Printf("[INFO] no new %ss found", unit)
		return
	}
	log.Printf("[INFO] added %d new %s(s)!", added, unit)
}

// ListEpisodes prints stored episodes, newest first.
func (a *App) ListEpisodes(username string, q store.ListQuery, refresh bool) error {
	if refresh {
		if err := a.UpdateEpisodes(username, false); err != nil {
			return err
		}
	}
	episodes, err := a.store.ListEpisodes(q)
	if err != nil {
		return err
	}
	if len(episodes) == 0 {
		log.Printf("[WARN] no episodes found")
		return nil
	}
	renderEpisodeList(a.out, episodes)
	return nil
}

// ListVideos prints stored videos, newest first.
func (a *App) ListVideos(username string, q store.ListQuery, refresh bool) error {
	if refresh {
		if err := a.UpdateVideos(username, 0, false); err != nil {
			return err
		}
	}
	videos, err := a.store.ListVideos(q)
	if err != nil {
		return err
	}
	if len(videos) == 0 {
		log.Printf("[WARN] no videos found")
		return nil
	}
	renderVideoList(a.out, videos)
	return nil
}

// ShowEpisode prints one episode's detail block.
func (a *App) ShowEpisode(id int64) error {
	ep, err := a.store.EpisodeByID(id)
	if err != nil {
		return err
	}
	renderEpisodeDetail(a.out, ep)
	return nil
}

// ShowVideo prints one video's detail block.
func (a *App) ShowVideo(id int64) error {
	v, err := a.store.VideoByID(id)
	if err != nil {
		return err
	}
	renderVideoDetail(a.out, v)
	return nil
}

// OpenEpisode opens the episode's portal page in the browser.
func (a *App) OpenEpisode(id int64) error {
	ep, err := a.store.EpisodeByID(id)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Opening %s\n", ep.URL)
	return launch(ep.URL)
}

// OpenVideo opens the video's portal page in the browser.
func (a *App) OpenVideo(id int64) error {
	v, err := a.store.VideoByID(id)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Opening %s\n", v.URL)
	return launch(v.URL)
}

// DownloadEpisode streams one episode's audio into the download dir.
func (a *App) DownloadEpisode(username string, id int64, dest string, yes bool) error {
	acc, err := a.login(username)
	if err != nil {
		return err
	}
	ep, err := a.store.EpisodeByID(id)
	if err != nil {
		return err
	}

	dir, err := a.manager.DestDir(downloadRoot(dest, acc), content.Episodes)
	if err != nil {
		return err
	}
	path, err := a.manager.Fetch(ep.Audio, "", dir, fetch.AudioFileName(ep.Audio), yes)
	return a.reportDownload(path, err)
}

// DownloadVideo resolves one video's stream and downloads it.
func (a *App) DownloadVideo(username string, id int64, dest string, yes bool) error {
	acc, err := a.login(username)
	if err != nil {
		return err
	}
	v, err := a.store.VideoByID(id)
	if err != nil {
		return err
	}

	meta, err := a.vimeo.Metadata(v.VideoURL)
	if err != nil {
		return err
	}
	playerURL, err := a.vimeo.PlayerURL(meta)
	if err != nil {
		return err
	}
	stream, err := a.vimeo.BestStream(playerURL, v.URL)
	if err != nil {
		return err
	}

	dir, err := a.manager.DestDir(downloadRoot(dest, acc), content.Videos)
	if err != nil {
		return err
	}
	path, err := a.manager.Fetch(stream.URL, v.URL, dir, fetch.VideoFileName(stream.Title), yes)
	return a.reportDownload(path, err)
}

// reportDownload maps download outcomes onto the error policy: a
// conflict aborts just this download, a failed postcondition is
// reported without failing the command.
func (a *App) reportDownload(path string, err error) error {
	var conflict *content.FileConflictError
	if errors.As(err, &conflict) {
		log.Printf("[WARN] %v", conflict)
		return nil
	}
	var post *content.PostconditionError
	if errors.As(err, &post) {
		log.Printf("[ERROR] problem downloading file: %s", post.Path)
		return nil
	}
	if err != nil {
		return err
	}
	if path != "" {
		log.Printf("[INFO] downloaded %s", path)
	}
	return nil
}

// EpisodeFeed synthesizes the podcast feed, chronological order.
func (a *App) EpisodeFeed(username, dest string, print bool, limit int, refresh bool) error {
	acc, err := a.login(username)
	if err != nil {
		return err
	}
	if refresh {
		if err := a.UpdateEpisodes(username, false); err != nil {
			return err
		}
	}

	episodes, err := a.store.ListEpisodes(store.ListQuery{Oldest: true, Limit: limit})
	if err != nil {
		return err
	}
	data, err := a.synthesizer().Episodes(episodes)
	if err != nil {
		return err
	}
	return a.emitFeed(acc, dest, print, content.Episodes, data)
}

// VideoFeed synthesizes the video feed, newest first.
func (a *App) VideoFeed(username, dest string, print bool, limit int, refresh bool) error {
	acc, err := a.login(username)
	if err != nil {
		return err
	}
	if refresh {
		if err := a.UpdateVideos(username, limit, false); err != nil {
			return err
		}
	}

	videos, err := a.store.ListVideos(store.ListQuery{Limit: limit})
	if err != nil {
		return err
	}
	data, err := a.synthesizer().Videos(videos)
	if err != nil {
		return err
	}
	return a.emitFeed(acc, dest, print, content.Videos, data)
}

func (a *App) synthesizer() *feed.Synthesizer {
	return &feed.Synthesizer{
		Session: a.session,
		Info: feed.Info{
			Title:       a.conf.Feed.Title,
			Subtitle:    a.conf.Feed.Subtitle,
			AuthorName:  a.conf.Feed.Author,
			AuthorEmail: a.conf.Feed.Email,
			Logo:        a.conf.Feed.Logo,
			SiteLink:    a.session.BaseURL(),
			Language:    a.conf.Feed.Language,
		},
	}
}

// emitFeed writes the document to the destination dir, or to the
// console in print mode. Never both.
func (a *App) emitFeed(acc *content.Account, dest string, print bool, kind content.Kind, data []byte) error {
	if print {
		_, err := a.out.Write(data)
		return err
	}

	dir := downloadRoot(dest, acc)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create feed dir: %w", err)
	}
	path, err := feed.WriteFile(dir, kind, data)
	if err != nil {
		return err
	}
	log.Printf("[INFO] RSS file created: %s", path)
	return nil
}

func downloadRoot(dest string, acc *content.Account) string {
	if dest != "" {
		return dest
	}
	return acc.DownloadDir
}

func defaultDownloadDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "Downloads"
	}
	return filepath.Join(home, "Downloads")
}
