package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port              int           `envconfig:"PORT" default:"8080"`
	JWTSecret         string        `envconfig:"JWT_SECRET" default:"dev-secret-change-in-production"`
	APIKeyHash        string        `envconfig:"API_KEY_HASH"`
	AssetDir          string        `envconfig:"ASSET_DIR" default:"./data/assets"`
	AllowedOrigins    []string      `envconfig:"ALLOWED_ORIGINS" default:"http://localhost:5173,http://localhost:3000"`
	CanvasWidth       int           `envconfig:"CANVAS_WIDTH" default:"1280"`
	CanvasHeight      int           `envconfig:"CANVAS_HEIGHT" default:"720"`
	DefaultsFile      string        `envconfig:"DEFAULTS_FILE"`
	FontsDir          string        `envconfig:"FONTS_DIR"`
	AssetFetchTimeout time.Duration `envconfig:"ASSET_FETCH_TIMEOUT" default:"10s"`
	LogLevel          string        `envconfig:"LOG_LEVEL" default:"info"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if cfg.CanvasWidth <= 0 || cfg.CanvasHeight <= 0 {
		return nil, fmt.Errorf("canvas size must be positive, got %dx%d", cfg.CanvasWidth, cfg.CanvasHeight)
	}
	return &cfg, nil
}

// Level parses LogLevel, falling back to info for unknown names.
func (c *Config) Level() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// OriginHosts returns the host part of every allowed origin, the form the
// websocket origin check expects.
func (c *Config) OriginHosts() []string {
	hosts := make([]string, 0, len(c.AllowedOrigins))
	for _, o := range c.AllowedOrigins {
		if u, err := url.Parse(o); err == nil && u.Host != "" {
			hosts = append(hosts, u.Host)
			continue
		}
		hosts = append(hosts, o)
	}
	return hosts
}
