package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	StorageDriverPostgres = "postgres"
	StorageDriverMemory   = "memory"
)

type Server struct {
	App struct {
		Env string `mapstructure:"env"`
	} `mapstructure:"app"`
	Server struct {
		Host            string        `mapstructure:"host"`
		Port            int           `mapstructure:"port"`
		ReadTimeout     time.Duration `mapstructure:"read_timeout"`
		ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
		SecureCookies   bool          `mapstructure:"secure_cookies"`
	} `mapstructure:"server"`
	Storage struct {
		Driver string `mapstructure:"driver"`
	} `mapstructure:"storage"`
	Database struct {
		URL         string        `mapstructure:"url"`
		MaxConns    int           `mapstructure:"max_conns"`
		PingTimeout time.Duration `mapstructure:"ping_timeout"`
	} `mapstructure:"database"`
	Redis struct {
		URL     string `mapstructure:"url"`
		Channel string `mapstructure:"channel"`
	} `mapstructure:"redis"`
	Log      LogConfig `mapstructure:"log"`
	Security struct {
		JWTPrivateKey     string `mapstructure:"jwt_private_key"`
		JWTPrivateKeyFile string `mapstructure:"jwt_private_key_file"`
		InternalToken     string `mapstructure:"internal_token"`
		InternalTokenFile string `mapstructure:"internal_token_file"`
		InternalLoopback  bool   `mapstructure:"internal_loopback"`
		AuthRateLimit     int    `mapstructure:"auth_rate_limit"`
	} `mapstructure:"security"`
	Session struct {
		TTL time.Duration `mapstructure:"ttl"`
	} `mapstructure:"session"`
	Identity struct {
		MinPasswordLength int `mapstructure:"min_password_length"`
		BcryptCost        int `mapstructure:"bcrypt_cost"`
	} `mapstructure:"identity"`
	Notices struct {
		EnforceFacultyRole bool `mapstructure:"enforce_faculty_role"`
	} `mapstructure:"notices"`
	Scheduler struct {
		GaugeSpec        string `mapstructure:"gauge_spec"`
		SessionPurgeSpec string `mapstructure:"session_purge_spec"`
	} `mapstructure:"scheduler"`
	CORS struct {
		AllowOrigins []string `mapstructure:"allow_origins"`
	} `mapstructure:"cors"`
	Debug struct {
		PprofEnabled bool `mapstructure:"pprof_enabled"`
	} `mapstructure:"debug"`
}

func (c Server) IsDevelopment() bool {
	return strings.EqualFold(strings.TrimSpace(c.App.Env), "development")
}

func (c Server) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// LoadServer reads the hub configuration. Environment variables use the
// NOTICEBOARD_ prefix; DATABASE_URL and REDIS_URL are accepted as well.
func LoadServer(path string) (Server, error) {
	v := newViper("NOTICEBOARD", path)
	_ = v.BindEnv("database.url", "NOTICEBOARD_DATABASE_URL", "DATABASE_URL")
	_ = v.BindEnv("redis.url", "NOTICEBOARD_REDIS_URL", "REDIS_URL")

	v.SetDefault("app.env", "development")
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "10s")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.secure_cookies", false)
	v.SetDefault("storage.driver", StorageDriverPostgres)
	v.SetDefault("database.url", "")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.ping_timeout", "3s")
	v.SetDefault("redis.url", "")
	v.SetDefault("redis.channel", "noticeboard:notices")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "json")
	v.SetDefault("security.jwt_private_key", "")
	v.SetDefault("security.jwt_private_key_file", "")
	v.SetDefault("security.internal_token", "")
	v.SetDefault("security.internal_token_file", "")
	v.SetDefault("security.internal_loopback", true)
	v.SetDefault("security.auth_rate_limit", 10)
	v.SetDefault("session.ttl", "168h")
	v.SetDefault("identity.min_password_length", 6)
	v.SetDefault("identity.bcrypt_cost", 12)
	v.SetDefault("notices.enforce_faculty_role", false)
	v.SetDefault("scheduler.gauge_spec", "0 */1 * * * *")
	v.SetDefault("scheduler.session_purge_spec", "0 0 3 * * *")
	v.SetDefault("cors.allow_origins", []string{"http://localhost:5173"})
	v.SetDefault("debug.pprof_enabled", false)

	var cfg Server
	if err := readAndDecode(v, &cfg); err != nil {
		return Server{}, err
	}

	var err error
	if cfg.Security.InternalToken, err = secretFromFile(cfg.Security.InternalToken, cfg.Security.InternalTokenFile, "security.internal_token_file"); err != nil {
		return Server{}, err
	}
	if cfg.Security.JWTPrivateKey, err = secretFromFile(cfg.Security.JWTPrivateKey, cfg.Security.JWTPrivateKeyFile, "security.jwt_private_key_file"); err != nil {
		return Server{}, err
	}
	cfg.CORS.AllowOrigins = trimAll(cfg.CORS.AllowOrigins)
	cfg.Storage.Driver = strings.ToLower(strings.TrimSpace(cfg.Storage.Driver))

	if err := cfg.validate(); err != nil {
		return Server{}, err
	}
	return cfg, nil
}

func (c Server) validate() error {
	switch c.Storage.Driver {
	case StorageDriverPostgres:
		if strings.TrimSpace(c.Database.URL) == "" {
			return errors.New("database.url is required")
		}
		if c.Database.MaxConns <= 0 {
			return errors.New("database.max_conns must be greater than 0")
		}
		if c.Database.PingTimeout <= 0 {
			return errors.New("database.ping_timeout must be greater than 0")
		}
	case StorageDriverMemory:
		if !c.IsDevelopment() {
			return errors.New("storage.driver memory is only allowed in development")
		}
	default:
		return fmt.Errorf("unsupported storage.driver %q", c.Storage.Driver)
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return errors.New("server.port must be between 1 and 65535")
	}
	if c.Session.TTL <= 0 {
		return errors.New("session.ttl must be greater than 0")
	}
	if c.Identity.MinPasswordLength <= 0 {
		return errors.New("identity.min_password_length must be greater than 0")
	}
	if !c.IsDevelopment() && c.Security.JWTPrivateKey == "" {
		return errors.New("security.jwt_private_key is required outside development")
	}

	if len(c.CORS.AllowOrigins) == 0 {
		return errors.New("cors.allow_origins must not be empty")
	}
	for _, origin := range c.CORS.AllowOrigins {
		if origin == "*" {
			return errors.New("cors.allow_origins must not contain wildcard *")
		}
	}
	return nil
}
