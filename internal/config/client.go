package config

import (
	"errors"
	"net/url"
	"strings"
	"time"
)

var DefaultFacultyIDs = []string{"FAC001", "FAC002", "FAC003", "FAC004", "FAC005"}

type Client struct {
	Hub struct {
		URL string `mapstructure:"url"`
	} `mapstructure:"hub"`
	Analyzer struct {
		URL string `mapstructure:"url"`
		// Zero means no client-side timeout.
		Timeout time.Duration `mapstructure:"timeout"`
	} `mapstructure:"analyzer"`
	Faculty struct {
		AllowedIDs []string `mapstructure:"allowed_ids"`
	} `mapstructure:"faculty"`
	Feed struct {
		DateLayout string `mapstructure:"date_layout"`
		Location   string `mapstructure:"location"`
	} `mapstructure:"feed"`
	Log LogConfig `mapstructure:"log"`
}

// LoadClient reads the terminal client configuration (NOTICEBOARD_CLIENT_
// prefix).
func LoadClient(path string) (Client, error) {
	v := newViper("NOTICEBOARD_CLIENT", path)

	v.SetDefault("hub.url", "http://localhost:8080")
	v.SetDefault("analyzer.url", "http://localhost:5000")
	v.SetDefault("analyzer.timeout", "0s")
	v.SetDefault("faculty.allowed_ids", DefaultFacultyIDs)
	v.SetDefault("feed.date_layout", "Jan 2, 2006")
	v.SetDefault("feed.location", "Local")
	v.SetDefault("log.level", "warn")
	v.SetDefault("log.encoding", "console")

	var cfg Client
	if err := readAndDecode(v, &cfg); err != nil {
		return Client{}, err
	}
	cfg.Faculty.AllowedIDs = trimAll(cfg.Faculty.AllowedIDs)

	for key, raw := range map[string]string{"hub.url": cfg.Hub.URL, "analyzer.url": cfg.Analyzer.URL} {
		parsed, err := url.Parse(strings.TrimSpace(raw))
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return Client{}, errors.New(key + " must be an absolute URL")
		}
	}
	if cfg.Analyzer.Timeout < 0 {
		return Client{}, errors.New("analyzer.timeout must not be negative")
	}
	if _, err := time.LoadLocation(cfg.Feed.Location); err != nil {
		return Client{}, errors.New("feed.location is not a known time zone")
	}
	return cfg, nil
}
