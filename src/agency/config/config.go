package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

const EnvConfigFile = "CATAGENCY_CONFIG"

type Config struct {
	MySQLDSN      string   `toml:"mysql_dsn"`
	RedisURL      string   `toml:"redis_url"`
	Port          string   `toml:"port"`
	CatAPIURL     string   `toml:"catapi_url"`
	CatAPIKey     string   `toml:"catapi_key"`
	BreedTimeout  int      `toml:"breed_timeout"`   // seconds
	BreedAttempts int      `toml:"breed_attempts"`
	BreedCacheTTL int      `toml:"breed_cache_ttl"` // seconds, 0 disables
	EventStream   string   `toml:"event_stream"`
	RateLimit     int      `toml:"rate_limit"`
	RateWindow    int      `toml:"rate_window"` // seconds
	AllowOrigins  []string `toml:"allow_origins"`
	LogLevel      string   `toml:"log_level"`
	LogFormat     string   `toml:"log_format"` // console|json
}

func Default() Config {
	return Config{
		MySQLDSN:      "catagency:catagency@tcp(127.0.0.1:3306)/catagency",
		Port:          "8080",
		CatAPIURL:     "https://api.thecatapi.com",
		BreedTimeout:  5,
		BreedAttempts: 2,
		BreedCacheTTL: 3600,
		EventStream:   "catagency.missions",
		RateLimit:     120,
		RateWindow:    60,
		AllowOrigins:  []string{"http://localhost:3000"},
		LogLevel:      "info",
		LogFormat:     "console",
	}
}

// Load builds the config from defaults, the optional TOML file named by
// CATAGENCY_CONFIG, then environment overrides.
func Load() (Config, error) {
	cfg := Default()
	if path := os.Getenv(EnvConfigFile); path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return cfg, fmt.Errorf("config %s: %w", path, err)
		}
	}

	cfg.MySQLDSN = getenv("MYSQL_DSN", cfg.MySQLDSN)
	cfg.RedisURL = getenv("REDIS_URL", cfg.RedisURL)
	cfg.Port = getenv("PORT", cfg.Port)
	cfg.CatAPIURL = getenv("CATAPI_URL", cfg.CatAPIURL)
	cfg.CatAPIKey = getenv("CATAPI_KEY", cfg.CatAPIKey)
	cfg.EventStream = getenv("EVENT_STREAM", cfg.EventStream)
	cfg.LogLevel = getenv("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = getenv("LOG_FORMAT", cfg.LogFormat)
	if v := os.Getenv("ALLOW_ORIGINS"); v != "" {
		cfg.AllowOrigins = splitList(v)
	}

	var err error
	if cfg.BreedTimeout, err = getint("BREED_TIMEOUT", cfg.BreedTimeout); err != nil {
		return cfg, err
	}
	if cfg.BreedAttempts, err = getint("BREED_ATTEMPTS", cfg.BreedAttempts); err != nil {
		return cfg, err
	}
	if cfg.BreedCacheTTL, err = getint("BREED_CACHE_TTL", cfg.BreedCacheTTL); err != nil {
		return cfg, err
	}
	if cfg.RateLimit, err = getint("RATE_LIMIT", cfg.RateLimit); err != nil {
		return cfg, err
	}
	if cfg.RateWindow, err = getint("RATE_WINDOW", cfg.RateWindow); err != nil {
		return cfg, err
	}

	return cfg, cfg.validate()
}

func (c Config) validate() error {
	if strings.TrimSpace(c.MySQLDSN) == "" {
		return fmt.Errorf("MYSQL_DSN is not set")
	}
	if c.BreedTimeout <= 0 {
		return fmt.Errorf("breed_timeout must be positive")
	}
	if c.LogFormat != "console" && c.LogFormat != "json" {
		return fmt.Errorf("log_format must be console or json, got %q", c.LogFormat)
	}
	return nil
}

func (c Config) BreedTimeoutDuration() time.Duration {
	return time.Duration(c.BreedTimeout) * time.Second
}

func (c Config) BreedCacheDuration() time.Duration {
	return time.Duration(c.BreedCacheTTL) * time.Second
}

func (c Config) RateWindowDuration() time.Duration {
	return time.Duration(c.RateWindow) * time.Second
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getint(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def, fmt.Errorf("env %s: %w", key, err)
	}
	return n, nil
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
