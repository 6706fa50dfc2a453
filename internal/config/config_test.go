package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadNonExistentFile(t *testing.T) {
	tmpDir := t.TempDir()

	cfg, err := LoadFrom(filepath.Join(tmpDir, "missing.yaml"))
	if err != nil {
		t.Fatalf("LoadFrom returned error: %v", err)
	}
	if cfg.CheckInLeadMinutes != 60 {
		t.Errorf("Default CheckInLeadMinutes = %d, want 60", cfg.CheckInLeadMinutes)
	}
	if cfg.StreakLookbackDays != 180 {
		t.Errorf("Default StreakLookbackDays = %d, want 180", cfg.StreakLookbackDays)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate, got %v", err)
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "readiness.yaml")
	content := "DatabasePath: /tmp/r.db\nTimeZone: Europe/Vienna\nCheckInLagMinutes: 45\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom returned error: %v", err)
	}
	if cfg.DatabasePath != "/tmp/r.db" {
		t.Errorf("DatabasePath = %s", cfg.DatabasePath)
	}
	if cfg.CheckInLagMinutes != 45 {
		t.Errorf("CheckInLagMinutes = %d, want 45", cfg.CheckInLagMinutes)
	}
	if cfg.CheckInLeadMinutes != 60 {
		t.Errorf("CheckInLeadMinutes = %d, want default 60", cfg.CheckInLeadMinutes)
	}
	if cfg.ServerPort != 8087 {
		t.Errorf("ServerPort = %d, want default 8087", cfg.ServerPort)
	}
	if cfg.CheckInLag() != 45*time.Minute {
		t.Errorf("CheckInLag() = %v", cfg.CheckInLag())
	}
}

func TestLoadMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("ServerPort: [not a number"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFrom(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "readiness.yaml")
	cfg := getDefaultConfig()
	cfg.TimeZone = "America/New_York"
	cfg.StreakLookbackDays = 90

	if err := SaveTo(path, cfg); err != nil {
		t.Fatalf("SaveTo: %v", err)
	}
	loaded, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if loaded.TimeZone != "America/New_York" || loaded.StreakLookbackDays != 90 {
		t.Errorf("round trip lost values: %+v", loaded)
	}
}

func TestEnvConfigPath(t *testing.T) {
	t.Setenv(EnvConfigPath, "/etc/readiness/custom.yaml")
	if got := getConfigPath(); got != "/etc/readiness/custom.yaml" {
		t.Errorf("getConfigPath() = %s", got)
	}
}

func TestNowUsesLocation(t *testing.T) {
	cfg := &Config{TimeZone: "UTC"}
	fixed := time.Date(2024, 3, 1, 12, 0, 0, 0, time.FixedZone("X", 3600))
	cfg.SetClock(func() time.Time { return fixed })

	now := cfg.Now()
	if !now.Equal(fixed) {
		t.Errorf("Now() = %v, want %v", now, fixed)
	}
	if now.Location().String() != "UTC" {
		t.Errorf("Now() location = %s, want UTC", now.Location())
	}
}

func TestGetLocationFallback(t *testing.T) {
	cfg := &Config{TimeZone: "Not/AZone"}
	if cfg.GetLocation() != time.Local {
		t.Error("unknown zone should fall back to Local")
	}
}

func TestConfigValidation(t *testing.T) {
	valid := func() *Config {
		return &Config{
			DatabasePath:       "/tmp/r.db",
			ServerPort:         8087,
			CheckInLeadMinutes: 60,
			CheckInLagMinutes:  30,
			StreakLookbackDays: 180,
		}
	}

	tests := []struct {
		name  string
		edit  func(*Config)
		field string
	}{
		{"valid", func(*Config) {}, ""},
		{"missing database", func(c *Config) { c.DatabasePath = "" }, "DatabasePath"},
		{"bad zone", func(c *Config) { c.TimeZone = "Mars/Olympus" }, "TimeZone"},
		{"bad port", func(c *Config) { c.ServerPort = 70000 }, "ServerPort"},
		{"negative lead", func(c *Config) { c.CheckInLeadMinutes = -5 }, "CheckInLeadMinutes"},
		{"zero lag", func(c *Config) { c.CheckInLagMinutes = 0 }, "CheckInLagMinutes"},
		{"zero lookback", func(c *Config) { c.StreakLookbackDays = 0 }, "StreakLookbackDays"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.edit(cfg)
			err := cfg.Validate()
			if tt.field == "" {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			verr, ok := err.(*ValidationError)
			if !ok {
				t.Fatalf("Validate() = %v, want *ValidationError", err)
			}
			if verr.Field != tt.field {
				t.Errorf("Validate() field = %s, want %s", verr.Field, tt.field)
			}
		})
	}
}
