// Package config loads and watches the bot configuration file.
//
// The file is YAML. Two values may come from the environment instead
// (a .env file is honored via godotenv): TABELBOT_TOKEN and
// TABELBOT_MAIN_ADMIN. Both are required; the process refuses to start
// without them.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	yaml "go.yaml.in/yaml/v3"
)

const (
	EnvToken     = "TABELBOT_TOKEN"
	EnvMainAdmin = "TABELBOT_MAIN_ADMIN"
)

type Config struct {
	Telegram      TelegramConfig      `yaml:"telegram"`
	MainAdminID   int64               `yaml:"main_admin_id"`
	Timezone      string              `yaml:"timezone"`
	Logging       LoggingConfig       `yaml:"logging"`
	Storage       StorageConfig       `yaml:"storage"`
	Notifications NotificationsConfig `yaml:"notifications"`
	Journal       JournalConfig       `yaml:"journal"`
}

type TelegramConfig struct {
	Token       string   `yaml:"token"`
	PollTimeout Duration `yaml:"poll_timeout"`
}

type LoggingConfig struct {
	Level   string      `yaml:"level"`
	Console bool        `yaml:"console"`
	File    LoggingFile `yaml:"file"`
}

type LoggingFile struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

type StorageConfig struct {
	Path        string   `yaml:"path"`
	BusyTimeout Duration `yaml:"busy_timeout"`
}

type NotificationsConfig struct {
	SettingsPath string `yaml:"settings_path"`
	RatePerSec   int    `yaml:"rate_per_sec"`
	// RetentionDays bounds how long records are kept; 0 disables cleanup.
	RetentionDays int    `yaml:"retention_days"`
	CleanupAt     string `yaml:"cleanup_at"`
}

// JournalConfig holds the journal UI knobs: the canned location buttons
// (emoji prefixes welcome) and the nominal home location used for
// arrivals.
type JournalConfig struct {
	Locations    []string `yaml:"locations"`
	HomeLocation string   `yaml:"home_location"`
}

func Default() Config {
	return Config{
		Timezone: "Europe/Moscow",
		Logging:  LoggingConfig{Level: "info", Console: true},
		Storage:  StorageConfig{Path: "./data/tabel.db"},
		Notifications: NotificationsConfig{
			SettingsPath:  "./data/notifications.yaml",
			RatePerSec:    20,
			RetentionDays: 365,
			CleanupAt:     "03:30",
		},
		Journal: JournalConfig{
			Locations: []string{
				"🏪 Магазин",
				"🏥 Госпиталь",
				"🏛 Штаб",
				"🚿 Баня",
				"⛪ Храм",
			},
			HomeLocation: "Казарма",
		},
	}
}

// Load reads the YAML file (missing file yields defaults), applies
// environment overrides and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()

	b, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		// defaults + env only
	case err != nil:
		return Config{}, err
	default:
		dec := yaml.NewDecoder(strings.NewReader(string(b)))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv(EnvToken)); v != "" {
		cfg.Telegram.Token = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvMainAdmin)); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.MainAdminID = id
		}
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Telegram.Token) == "" {
		return fmt.Errorf("telegram token is required (config telegram.token or %s)", EnvToken)
	}
	if c.MainAdminID == 0 {
		return fmt.Errorf("main admin id is required (config main_admin_id or %s)", EnvMainAdmin)
	}
	if strings.TrimSpace(c.Storage.Path) == "" {
		return errors.New("storage.path is required")
	}
	if c.Notifications.RetentionDays < 0 {
		return fmt.Errorf("retention_days must not be negative, got %d", c.Notifications.RetentionDays)
	}
	if len(c.Journal.Locations) == 0 {
		return errors.New("journal.locations must not be empty")
	}
	if strings.TrimSpace(c.Journal.HomeLocation) == "" {
		return errors.New("journal.home_location is required")
	}
	return nil
}
