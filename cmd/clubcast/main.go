package main

import (
	"errors"
	"fmt"
	"os"

	log "github.com/go-pkgz/lgr"
	"github.com/jessevdk/go-flags"

	"clubcast/internal/app/clubcast"
	"clubcast/internal/app/clubcast/store"
	"clubcast/internal/app/clubcast/vault"
	"clubcast/internal/configs"
)

var opts struct {
	Conf string `short:"c" long:"conf" env:"CLUBCAST_CONF" default:"clubcast.yml" description:"config file (yml)"`
	User string `short:"u" long:"user" env:"CLUBCAST_USER" description:"account username"`
	Dbg  bool   `long:"dbg" env:"DEBUG" description:"show debug info"`
}

func checkFileExists(filepath string) bool {
	if _, err := os.Stat(filepath); errors.Is(err, os.ErrNotExist) {
		return false
	}

	return true
}

// buildApp loads the config and opens the store and vault. The caller
// runs the returned cleanup when done.
func buildApp() (*clubcast.App, func(), error) {
	if opts.Dbg {
		log.Setup(log.Debug)
	}

	configFile := opts.Conf
	if !checkFileExists(configFile) {
		configFile = "configs/clubcast.yaml"

		if !checkFileExists(configFile) {
			return nil, nil, fmt.Errorf("config file not found")
		}
	}

	conf, err := configs.Load(configFile)
	if err != nil {
		return nil, nil, fmt.Errorf("can't load config %s, %w", configFile, err)
	}

	db, err := store.New(conf.DB)
	if err != nil {
		return nil, nil, fmt.Errorf("can't open catalog store, %w", err)
	}

	vlt, err := vault.Open(conf.Key)
	if err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("can't open credential vault, %w", err)
	}

	app, err := clubcast.NewApplication(conf, db, vlt, clubcast.NewTerminal())
	if err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("can't create app, %w", err)
	}
	return app, func() { _ = db.Close() }, nil
}

func withApp(fn func(app *clubcast.App) error) error {
	app, cleanup, err := buildApp()
	if err != nil {
		return err
	}
	defer cleanup()
	return fn(app)
}

type loginCmd struct {
	Username string `long:"username" description:"portal username"`
	Password string `short:"p" long:"password" description:"portal password"`
}

func (c *loginCmd) Execute(_ []string) error {
	return withApp(func(app *clubcast.App) error {
		return app.Login(c.Username, c.Password)
	})
}

type accountShowCmd struct{}

func (c *accountShowCmd) Execute(_ []string) error {
	return withApp(func(app *clubcast.App) error {
		return app.ShowAccount(opts.User)
	})
}

type accountUpdateCmd struct {
	DownloadDir string `long:"download-dir" required:"yes" description:"path where files will be downloaded"`
}

func (c *accountUpdateCmd) Execute(_ []string) error {
	return withApp(func(app *clubcast.App) error {
		return app.SetDownloadDir(opts.User, c.DownloadDir)
	})
}

type idArgs struct {
	ID int64 `positional-arg-name:"ID" required:"yes" description:"catalog row id"`
}

type episodesUpdateCmd struct {
	List bool `short:"l" long:"list" description:"list any newly added episodes"`
}

func (c *episodesUpdateCmd) Execute(_ []string) error {
	return withApp(func(app *clubcast.App) error {
		return app.UpdateEpisodes(opts.User, c.List)
	})
}

type episodesListCmd struct {
	Number  int    `short:"n" long:"number" default:"10" description:"number of episodes to get"`
	Refresh bool   `short:"r" long:"refresh" description:"update the list of episodes first"`
	Search  string `short:"s" long:"search" description:"search episodes by title and description"`
}

func (c *episodesListCmd) Execute(_ []string) error {
	return withApp(func(app *clubcast.App) error {
		q := store.ListQuery{Search: c.Search, Limit: c.Number}
		return app.ListEpisodes(opts.User, q, c.Refresh)
	})
}

type episodesShowCmd struct {
	Args idArgs `positional-args:"yes"`
}

func (c *episodesShowCmd) Execute(_ []string) error {
	return withApp(func(app *clubcast.App) error {
		return app.ShowEpisode(c.Args.ID)
	})
}

type episodesOpenCmd struct {
	Args idArgs `positional-args:"yes"`
}

func (c *episodesOpenCmd) Execute(_ []string) error {
	return withApp(func(app *clubcast.App) error {
		return app.OpenEpisode(c.Args.ID)
	})
}

type episodesDownloadCmd struct {
	Yes  bool   `short:"y" long:"yes" description:"download without confirmation"`
	Dest string `short:"d" long:"dest" description:"folder to download file to"`
	Args idArgs `positional-args:"yes"`
}

func (c *episodesDownloadCmd) Execute(_ []string) error {
	return withApp(func(app *clubcast.App) error {
		return app.DownloadEpisode(opts.User, c.Args.ID, c.Dest, c.Yes)
	})
}

type episodesFeedCmd struct {
	Print   bool   `short:"p" long:"print" description:"print XML without saving to file"`
	Dest    string `short:"d" long:"dest" description:"folder to write the feed to"`
	Number  int    `short:"n" long:"number" description:"number of episodes to include"`
	Refresh bool   `short:"r" long:"refresh" description:"update the list of episodes first"`
}

func (c *episodesFeedCmd) Execute(_ []string) error {
	return withApp(func(app *clubcast.App) error {
		return app.EpisodeFeed(opts.User, c.Dest, c.Print, c.Number, c.Refresh)
	})
}

type videosUpdateCmd struct {
	List   bool `short:"l" long:"list" description:"list any newly added videos"`
	Number int  `short:"n" long:"number" default:"100" description:"number of videos to retrieve from archive"`
}

func (c *videosUpdateCmd) Execute(_ []string) error {
	return withApp(func(app *clubcast.App) error {
		return app.UpdateVideos(opts.User, c.Number, c.List)
	})
}

type videosListCmd struct {
	Number  int    `short:"n" long:"number" default:"10" description:"number of videos to get"`
	Refresh bool   `short:"r" long:"refresh" description:"update the list of videos first"`
	Type    string `short:"t" long:"type" description:"filter the list by video category"`
	Search  string `short:"s" long:"search" description:"search videos by title"`
}

func (c *videosListCmd) Execute(_ []string) error {
	return withApp(func(app *clubcast.App) error {
		q := store.ListQuery{Search: c.Search, Category: c.Type, Limit: c.Number}
		return app.ListVideos(opts.User, q, c.Refresh)
	})
}

type videosShowCmd struct {
	Args idArgs `positional-args:"yes"`
}

func (c *videosShowCmd) Execute(_ []string) error {
	return withApp(func(app *clubcast.App) error {
		return app.ShowVideo(c.Args.ID)
	})
}

type videosOpenCmd struct {
	Args idArgs `positional-args:"yes"`
}

func (c *videosOpenCmd) Execute(_ []string) error {
	return withApp(func(app *clubcast.App) error {
		return app.OpenVideo(c.Args.ID)
	})
}

type videosDownloadCmd struct {
	Yes  bool   `short:"y" long:"yes" description:"download without confirmation"`
	Dest string `short:"d" long:"dest" description:"folder to download file to"`
	Args idArgs `positional-args:"yes"`
}

func (c *videosDownloadCmd) Execute(_ []string) error {
	return withApp(func(app *clubcast.App) error {
		return app.DownloadVideo(opts.User, c.Args.ID, c.Dest, c.Yes)
	})
}

type videosFeedCmd struct {
	Print   bool   `short:"p" long:"print" description:"print XML without saving to file"`
	Dest    string `short:"d" long:"dest" description:"folder to write the feed to"`
	Number  int    `short:"n" long:"number" default:"25" description:"number of videos to include"`
	Refresh bool   `short:"r" long:"refresh" description:"update the list of videos first"`
}

func (c *videosFeedCmd) Execute(_ []string) error {
	return withApp(func(app *clubcast.App) error {
		return app.VideoFeed(opts.User, c.Dest, c.Print, c.Number, c.Refresh)
	})
}

// registerCommands is the static command registry: every command name
// maps to its handler struct here, nothing is assembled at runtime.
func registerCommands(p *flags.Parser) error {
	if _, err := p.AddCommand("login", "Login with your club credentials", "", &loginCmd{}); err != nil {
		return err
	}

	account, err := p.AddCommand("account", "Manage your club account", "", &struct{}{})
	if err != nil {
		return err
	}
	if _, err := account.AddCommand("show", "Display account information", "", &accountShowCmd{}); err != nil {
		return err
	}
	if _, err := account.AddCommand("update", "Update account information", "", &accountUpdateCmd{}); err != nil {
		return err
	}

	episodes, err := p.AddCommand("episodes", "Manage exclusive episodes", "", &struct{}{})
	if err != nil {
		return err
	}
	if _, err := episodes.AddCommand("update", "Update the list of episodes", "", &episodesUpdateCmd{}); err != nil {
		return err
	}
	if _, err := episodes.AddCommand("list", "Show all available episodes", "", &episodesListCmd{}); err != nil {
		return err
	}
	if _, err := episodes.AddCommand("show", "Show episode details by ID", "", &episodesShowCmd{}); err != nil {
		return err
	}
	if _, err := episodes.AddCommand("open", "Open web page for episode", "", &episodesOpenCmd{}); err != nil {
		return err
	}
	if _, err := episodes.AddCommand("download", "Download an episode by ID", "", &episodesDownloadCmd{}); err != nil {
		return err
	}
	if _, err := episodes.AddCommand("feed", "Generate a RSS feed of available episodes", "", &episodesFeedCmd{}); err != nil {
		return err
	}

	videos, err := p.AddCommand("videos", "Manage exclusive videos", "", &struct{}{})
	if err != nil {
		return err
	}
	if _, err := videos.AddCommand("update", "Update the list of videos", "", &videosUpdateCmd{}); err != nil {
		return err
	}
	if _, err := videos.AddCommand("list", "Show all available videos", "", &videosListCmd{}); err != nil {
		return err
	}
	if _, err := videos.AddCommand("show", "Show video details by ID", "", &videosShowCmd{}); err != nil {
		return err
	}
	if _, err := videos.AddCommand("open", "Open web page for video", "", &videosOpenCmd{}); err != nil {
		return err
	}
	if _, err := videos.AddCommand("download", "Download a video by ID", "", &videosDownloadCmd{}); err != nil {
		return err
	}
	if _, err := videos.AddCommand("feed", "Generate a RSS feed of available videos", "", &videosFeedCmd{}); err != nil {
		return err
	}
	return nil
}

func main() {
	p := flags.NewParser(&opts, flags.PassDoubleDash|flags.HelpFlag)
	if err := registerCommands(p); err != nil {
		log.Fatalf("[ERROR] can't register commands, %v", err)
	}

	if _, err := p.Parse(); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) {
			if flagsErr.Type == flags.ErrHelp {
				p.WriteHelp(os.Stderr)
				os.Exit(2)
			}
			fmt.Printf("%v\n", err)
			os.Exit(1)
		}
		log.Printf("[ERROR] %v", err)
		os.Exit(1)
	}
}
