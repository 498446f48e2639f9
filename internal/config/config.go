package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type CORS struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type Config struct {
	Listen  string  `yaml:"listen"`
	Logger  Logger  `yaml:"logger"`
	Storage Storage `yaml:"storage"`
	Judge   Judge   `yaml:"judge"`
	Engine  Engine  `yaml:"engine"`
	Auth    Auth    `yaml:"auth"`
	Janitor Janitor `yaml:"janitor"`
	CORS    CORS    `yaml:"cors"`
}

type Logger struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

type Storage struct {
	Database string `yaml:"database"`
}

// Judge configures the external judge API client. Intervals are expressed in
// the unit named by the field, matching how they appear in config.yaml.
type Judge struct {
	BaseURL        string `yaml:"base_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	RateLimitMs    int    `yaml:"rate_limit_ms"`
}

// Engine configures timer cadence for running matches.
type Engine struct {
	TickSeconds   int `yaml:"tick_seconds"`
	PollSeconds   int `yaml:"poll_seconds"`
	PlayerPauseMs int `yaml:"player_pause_ms"`
	OutageCycles  int `yaml:"outage_cycles"`
}

type Auth struct {
	JWT JWT `yaml:"jwt"`
}

type JWT struct {
	Secret      string `yaml:"secret"`
	ExpireHours int    `yaml:"expire_hours"`
}

type Janitor struct {
	IntervalSeconds  int `yaml:"interval_seconds"`
	KeepEndedMinutes int `yaml:"keep_ended_minutes"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	if cfg.Auth.JWT.Secret == "" {
		return nil, fmt.Errorf("auth.jwt.secret must be set")
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Listen == "" {
		c.Listen = ":8080"
	}
	if c.Storage.Database == "" {
		c.Storage.Database = "data/cpduel.db"
	}
	if c.Judge.BaseURL == "" {
		c.Judge.BaseURL = "https://codeforces.com/api"
	}
	if c.Judge.TimeoutSeconds <= 0 {
		c.Judge.TimeoutSeconds = 10
	}
	if c.Judge.RateLimitMs <= 0 {
		c.Judge.RateLimitMs = 2000
	}
	if c.Engine.TickSeconds <= 0 {
		c.Engine.TickSeconds = 1
	}
	if c.Engine.PollSeconds <= 0 {
		c.Engine.PollSeconds = 5
	}
	if c.Engine.PlayerPauseMs <= 0 {
		c.Engine.PlayerPauseMs = 500
	}
	if c.Engine.OutageCycles <= 0 {
		c.Engine.OutageCycles = 5
	}
	if c.Auth.JWT.ExpireHours <= 0 {
		c.Auth.JWT.ExpireHours = 24
	}
	if c.Janitor.IntervalSeconds <= 0 {
		c.Janitor.IntervalSeconds = 60
	}
	if c.Janitor.KeepEndedMinutes <= 0 {
		c.Janitor.KeepEndedMinutes = 60
	}
}
