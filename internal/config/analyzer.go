package config

import (
	"errors"
	"fmt"

	"noticeboard/internal/analyzer"
)

type Analyzer struct {
	App struct {
		Env string `mapstructure:"env"`
	} `mapstructure:"app"`
	Server struct {
		Host string `mapstructure:"host"`
		Port int    `mapstructure:"port"`
	} `mapstructure:"server"`
	Log   LogConfig      `mapstructure:"log"`
	Rules analyzer.Rules `mapstructure:"rules"`
	CORS  struct {
		AllowOrigins []string `mapstructure:"allow_origins"`
	} `mapstructure:"cors"`
}

func (c Analyzer) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// LoadAnalyzer reads the analyzer configuration (ANALYZER_ prefix; PORT is
// honoured for platform deployments). Rules missing from the file fall back
// to analyzer.DefaultRules.
func LoadAnalyzer(path string) (Analyzer, error) {
	v := newViper("ANALYZER", path)
	_ = v.BindEnv("server.port", "ANALYZER_SERVER_PORT", "PORT")

	v.SetDefault("app.env", "development")
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 5000)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "json")
	v.SetDefault("cors.allow_origins", []string{"*"})

	var cfg Analyzer
	if err := readAndDecode(v, &cfg); err != nil {
		return Analyzer{}, err
	}

	defaults := analyzer.DefaultRules()
	if len(cfg.Rules.Categories) == 0 {
		cfg.Rules.Categories = defaults.Categories
	}
	if len(cfg.Rules.HighImportance) == 0 {
		cfg.Rules.HighImportance = defaults.HighImportance
	}
	if len(cfg.Rules.MediumImportance) == 0 {
		cfg.Rules.MediumImportance = defaults.MediumImportance
	}
	if len(cfg.Rules.Tags) == 0 {
		cfg.Rules.Tags = defaults.Tags
	}
	cfg.CORS.AllowOrigins = trimAll(cfg.CORS.AllowOrigins)

	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return Analyzer{}, errors.New("server.port must be between 1 and 65535")
	}
	return cfg, nil
}
