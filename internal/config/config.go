package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const DefaultPath = "configs/config.yaml"

type Config struct {
	Studio struct {
		Name              string `yaml:"name"`
		Timezone          string `yaml:"timezone"`
		OpeningHoursPath  string `yaml:"opening_hours_path"`
		WatchIntervalSecs int    `yaml:"watch_interval_seconds"`
	} `yaml:"studio"`

	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`

	Redis struct {
		Address  string `yaml:"address"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	Cache struct {
		TTLSeconds int `yaml:"ttl_seconds"`
	} `yaml:"cache"`

	HTTP struct {
		Port           int     `yaml:"port"`
		WriteRateLimit float64 `yaml:"write_rate_limit"` // requests per second
		WriteBurst     int     `yaml:"write_burst"`
	} `yaml:"http"`

	Monitoring struct {
		HealthCheckPort   int  `yaml:"health_check_port"`
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
		PrometheusPort    int  `yaml:"prometheus_port"`
	} `yaml:"monitoring"`

	Backup struct {
		Enabled       bool   `yaml:"enabled"`
		IntervalHours int    `yaml:"interval_hours"`
		Path          string `yaml:"path"`
		RetentionDays int    `yaml:"retention_days"`
	} `yaml:"backup"`

	Telegram struct {
		BotToken string  `yaml:"bot_token"`
		ChatIDs  []int64 `yaml:"chat_ids"`
	} `yaml:"telegram"`

	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"` // console or json
	} `yaml:"log"`

	location *time.Location
}

// Load reads path (DefaultPath when empty). A .env file next to the working
// directory is loaded first; ${VAR} placeholders are expanded.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Support ${ENV_VAR} placeholders in YAML config.
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() error {
	if c.Studio.Timezone == "" {
		return errors.New("studio.timezone is required")
	}
	loc, err := time.LoadLocation(c.Studio.Timezone)
	if err != nil {
		return fmt.Errorf("studio.timezone: %w", err)
	}
	c.location = loc

	if c.Studio.OpeningHoursPath == "" {
		c.Studio.OpeningHoursPath = "configs/opening_hours.yaml"
	}
	if c.Database.Path == "" {
		c.Database.Path = "data/studio.db"
	}
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 8080
	}
	if c.HTTP.WriteRateLimit <= 0 {
		c.HTTP.WriteRateLimit = 2
	}
	if c.HTTP.WriteBurst <= 0 {
		c.HTTP.WriteBurst = 5
	}
	if c.Monitoring.HealthCheckPort == 0 {
		c.Monitoring.HealthCheckPort = 8090
	}
	if c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
	if c.Backup.Path == "" {
		c.Backup.Path = "backups"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	return os.MkdirAll(filepath.Dir(c.Database.Path), 0o755)
}

// Location is the studio time zone.
func (c *Config) Location() *time.Location {
	if c.location == nil {
		return time.UTC
	}
	return c.location
}

func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLSeconds) * time.Second
}

func (c *Config) BackupInterval() time.Duration {
	if c.Backup.IntervalHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(c.Backup.IntervalHours) * time.Hour
}

func (c *Config) WatchInterval() time.Duration {
	if c.Studio.WatchIntervalSecs <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.Studio.WatchIntervalSecs) * time.Second
}

// TelegramEnabled reports whether staff notifications are configured.
func (c *Config) TelegramEnabled() bool {
	return c.Telegram.BotToken != "" && c.Telegram.BotToken != "YOUR_BOT_TOKEN_HERE" && len(c.Telegram.ChatIDs) > 0
}
