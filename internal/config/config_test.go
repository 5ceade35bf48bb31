package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadFullConfig(t *testing.T) {
	path := writeConfig(t, `
telegram:
  token: "123:abc"
  poll_timeout: 15s
main_admin_id: 42
timezone: "Europe/Moscow"
storage:
  path: ./tabel.db
  busy_timeout: 2s
notifications:
  settings_path: ./notif.yaml
  rate_per_sec: 10
  retention_days: 90
  cleanup_at: "04:00"
journal:
  locations: ["🏪 Магазин", "Штаб"]
  home_location: "Казарма"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Telegram.Token != "123:abc" || cfg.MainAdminID != 42 {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.Telegram.PollTimeout.Std() != 15*time.Second {
		t.Fatalf("poll_timeout = %v", cfg.Telegram.PollTimeout.Std())
	}
	if cfg.Notifications.RetentionDays != 90 {
		t.Fatalf("retention_days = %d", cfg.Notifications.RetentionDays)
	}
	if len(cfg.Journal.Locations) != 2 {
		t.Fatalf("locations = %v", cfg.Journal.Locations)
	}
}

func TestLoadRequiresTokenAndAdmin(t *testing.T) {
	t.Setenv(EnvToken, "")
	t.Setenv(EnvMainAdmin, "")

	path := writeConfig(t, "main_admin_id: 42\n")
	if _, err := Load(path); err == nil {
		t.Fatal("missing token accepted")
	}

	path = writeConfig(t, "telegram:\n  token: \"123:abc\"\n")
	if _, err := Load(path); err == nil {
		t.Fatal("missing main admin accepted")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv(EnvToken, "999:zzz")
	t.Setenv(EnvMainAdmin, "77")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Telegram.Token != "999:zzz" || cfg.MainAdminID != 77 {
		t.Fatalf("env overrides not applied: %+v", cfg)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	t.Setenv(EnvToken, "123:abc")
	t.Setenv(EnvMainAdmin, "42")

	path := writeConfig(t, "bogus_key: true\n")
	if _, err := Load(path); err == nil {
		t.Fatal("unknown key accepted")
	}
}
