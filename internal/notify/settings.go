package notify

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	yaml "go.yaml.in/yaml/v3"

	"tabelbot/internal/schedule"
)

// Settings is the flat notification settings document. It is read once at
// scheduler setup and rewritten whenever an admin flips a toggle.
type Settings struct {
	Morning Toggle       `yaml:"morning"`
	Evening Toggle       `yaml:"evening"`
	Weekly  WeeklyToggle `yaml:"weekly"`
	Quiet   QuietHours   `yaml:"quiet_hours"`
}

type Toggle struct {
	Enabled bool   `yaml:"enabled"`
	At      string `yaml:"at"` // HH:MM
}

type WeeklyToggle struct {
	Enabled bool   `yaml:"enabled"`
	Weekday int    `yaml:"weekday"` // 0=Sunday .. 6=Saturday, cron convention
	At      string `yaml:"at"`
}

// QuietHours is a window during which scheduled notifications are
// suppressed entirely. The window may wrap midnight (e.g. 22:00–07:00).
type QuietHours struct {
	Enabled bool   `yaml:"enabled"`
	From    string `yaml:"from"`
	To      string `yaml:"to"`
}

func DefaultSettings() Settings {
	return Settings{
		Morning: Toggle{Enabled: true, At: "07:30"},
		Evening: Toggle{Enabled: true, At: "20:30"},
		Weekly:  WeeklyToggle{Enabled: true, Weekday: 1, At: "09:00"},
		Quiet:   QuietHours{Enabled: false, From: "22:00", To: "07:00"},
	}
}

func (s Settings) Validate() error {
	for _, tg := range []struct {
		name string
		at   string
		on   bool
	}{
		{"morning", s.Morning.At, s.Morning.Enabled},
		{"evening", s.Evening.At, s.Evening.Enabled},
		{"weekly", s.Weekly.At, s.Weekly.Enabled},
	} {
		if !tg.on {
			continue
		}
		if _, _, err := schedule.ParseHHMM(tg.at); err != nil {
			return fmt.Errorf("%s time: %w", tg.name, err)
		}
	}
	if s.Weekly.Enabled && (s.Weekly.Weekday < 0 || s.Weekly.Weekday > 6) {
		return fmt.Errorf("weekly weekday %d out of range", s.Weekly.Weekday)
	}
	if s.Quiet.Enabled {
		if _, _, err := schedule.ParseHHMM(s.Quiet.From); err != nil {
			return fmt.Errorf("quiet from: %w", err)
		}
		if _, _, err := schedule.ParseHHMM(s.Quiet.To); err != nil {
			return fmt.Errorf("quiet to: %w", err)
		}
	}
	return nil
}

// Suppressed reports whether t falls inside the quiet-hours window.
func (q QuietHours) Suppressed(t time.Time) bool {
	if !q.Enabled {
		return false
	}
	fh, fm, err := schedule.ParseHHMM(q.From)
	if err != nil {
		return false
	}
	th, tm, err := schedule.ParseHHMM(q.To)
	if err != nil {
		return false
	}
	cur := t.Hour()*60 + t.Minute()
	from := fh*60 + fm
	to := th*60 + tm
	if from == to {
		return false
	}
	if from < to {
		return cur >= from && cur < to
	}
	// Window wraps midnight.
	return cur >= from || cur < to
}

// LoadSettings reads the settings file; a missing file yields defaults.
func LoadSettings(path string) (Settings, error) {
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return DefaultSettings(), nil
	}
	if err != nil {
		return Settings{}, err
	}
	s := DefaultSettings()
	if err := yaml.Unmarshal(b, &s); err != nil {
		return Settings{}, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Save rewrites the settings file atomically (temp file + rename).
func (s Settings) Save(path string) error {
	if err := s.Validate(); err != nil {
		return err
	}
	b, err := yaml.Marshal(s)
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".settings-*.yaml")
	if err != nil {
		return err
	}
	name := tmp.Name()
	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		_ = os.Remove(name)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(name)
		return err
	}
	return os.Rename(name, path)
}
