// Package configs for work with configurations
package configs

import (
	"os"

	"gopkg.in/yaml.v3"
)

// Conf for config yaml
type Conf struct {
	DB     string `yaml:"db"`
	Key    string `yaml:"key"`
	Portal struct {
		BaseURL      string `yaml:"base_url"`
		LoginPath    string `yaml:"login_path"`
		EpisodesPath string `yaml:"episodes_path"`
		NewsPath     string `yaml:"news_path"`
		UserAgent    string `yaml:"user_agent"`
	} `yaml:"portal"`
	Vimeo struct {
		OembedURL string `yaml:"oembed_url"`
	} `yaml:"vimeo"`
	Feed struct {
		Title    string `yaml:"title"`
		Subtitle string `yaml:"subtitle"`
		Author   string `yaml:"author"`
		Email    string `yaml:"email"`
		Logo     string `yaml:"logo"`
		Language string `yaml:"language"`
	} `yaml:"feed"`
	Download struct {
		ChunkSize int `yaml:"chunk_size"`
	} `yaml:"download"`
}

// Load config from file
func Load(fileName string) (res *Conf, err error) {
	res = &Conf{}
	data, err := os.ReadFile(fileName) // nolint
	if err != nil {
		return nil, err
	}

	if err := yaml.Unmarshal(data, res); err != nil {
		return nil, err
	}
	res.applyDefaults()
	return res, nil
}

func (c *Conf) applyDefaults() {
	if c.DB == "" {
		c.DB = "var/clubcast.db"
	}
	if c.Key == "" {
		c.Key = "var/clubcast.key"
	}
	if c.Portal.LoginPath == "" {
		c.Portal.LoginPath = "/login"
	}
	if c.Portal.EpisodesPath == "" {
		c.Portal.EpisodesPath = "/episodes"
	}
	if c.Portal.NewsPath == "" {
		c.Portal.NewsPath = "/umbraco/Surface/NewsSurface/GetNews"
	}
	if c.Portal.UserAgent == "" {
		c.Portal.UserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10.15; rv:89.0) " +
			"Gecko/20100101 Firefox/89.0"
	}
	if c.Vimeo.OembedURL == "" {
		c.Vimeo.OembedURL = "https://vimeo.com/api/oembed.json"
	}
	if c.Feed.Language == "" {
		c.Feed.Language = "en"
	}
	if c.Download.ChunkSize <= 0 {
		c.Download.ChunkSize = 1024
	}
}
