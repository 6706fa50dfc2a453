package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/readiness/internal/work"
)

// EnvConfigPath overrides the config file location.
const EnvConfigPath = "READINESS_CONFIG"

type Config struct {
	DatabasePath string `yaml:"DatabasePath"`
	LogPath      string `yaml:"LogPath"`
	TimeZone     string `yaml:"TimeZone"`
	ServerPort   int    `yaml:"ServerPort"`

	// Check-in window around shift start
	CheckInLeadMinutes int `yaml:"CheckInLeadMinutes"`
	CheckInLagMinutes  int `yaml:"CheckInLagMinutes"`

	// How far back streaks look
	StreakLookbackDays int `yaml:"StreakLookbackDays"`

	// now is swapped in tests
	now func() time.Time `yaml:"-"`
}

func Load() (*Config, error) {
	return LoadFrom(getConfigPath())
}

// LoadFrom reads the config at path, falling back to defaults when the file
// does not exist.
func LoadFrom(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return getDefaultConfig(), nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", configPath, err)
	}

	// Apply defaults for missing values
	def := getDefaultConfig()
	if cfg.DatabasePath == "" {
		cfg.DatabasePath = def.DatabasePath
	}
	if cfg.LogPath == "" {
		cfg.LogPath = def.LogPath
	}
	if cfg.ServerPort == 0 {
		cfg.ServerPort = def.ServerPort
	}
	if cfg.CheckInLeadMinutes == 0 {
		cfg.CheckInLeadMinutes = def.CheckInLeadMinutes
	}
	if cfg.CheckInLagMinutes == 0 {
		cfg.CheckInLagMinutes = def.CheckInLagMinutes
	}
	if cfg.StreakLookbackDays == 0 {
		cfg.StreakLookbackDays = def.StreakLookbackDays
	}

	// Expand ~ in paths
	cfg.DatabasePath = expandHome(cfg.DatabasePath)
	cfg.LogPath = expandHome(cfg.LogPath)

	return &cfg, nil
}

func Save(cfg *Config) error {
	return SaveTo(getConfigPath(), cfg)
}

func SaveTo(configPath string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(configPath, data, 0644)
}

func getConfigPath() string {
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".readiness.yaml")
}

func getDefaultConfig() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		DatabasePath:       filepath.Join(home, ".readiness", "data.db"),
		LogPath:            filepath.Join(home, ".readiness", "readiness.log"),
		ServerPort:         8087,
		CheckInLeadMinutes: work.CheckInLeadMinutes,
		CheckInLagMinutes:  work.CheckInLagMinutes,
		StreakLookbackDays: work.DefaultStreakLookbackDays,
	}
}

func expandHome(p string) string {
	if strings.HasPrefix(p, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, p[2:])
	}
	return p
}

// GetLocation returns the configured time zone, or the local zone when unset
// or unknown.
func (c *Config) GetLocation() *time.Location {
	if c.TimeZone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return time.Local
	}
	return loc
}

// Now returns the current time in the configured zone.
func (c *Config) Now() time.Time {
	now := time.Now
	if c.now != nil {
		now = c.now
	}
	return now().In(c.GetLocation())
}

// SetClock replaces the clock used by Now.
func (c *Config) SetClock(now func() time.Time) {
	c.now = now
}

// CheckInLead returns the configured window lead as a duration.
func (c *Config) CheckInLead() time.Duration {
	return time.Duration(c.CheckInLeadMinutes) * time.Minute
}

// CheckInLag returns the configured window lag as a duration.
func (c *Config) CheckInLag() time.Duration {
	return time.Duration(c.CheckInLagMinutes) * time.Minute
}

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation error: %s - %s", e.Field, e.Message)
}

// Validate checks the configuration for common issues
func (c *Config) Validate() error {
	if c.DatabasePath == "" {
		return &ValidationError{Field: "DatabasePath", Message: "Database path is required"}
	}
	if c.TimeZone != "" {
		if _, err := time.LoadLocation(c.TimeZone); err != nil {
			return &ValidationError{Field: "TimeZone", Message: fmt.Sprintf("unknown time zone %q", c.TimeZone)}
		}
	}
	if c.ServerPort <= 0 || c.ServerPort > 65535 {
		return &ValidationError{Field: "ServerPort", Message: "Server port must be between 1 and 65535"}
	}
	if c.CheckInLeadMinutes <= 0 {
		return &ValidationError{Field: "CheckInLeadMinutes", Message: "Check-in lead must be positive"}
	}
	if c.CheckInLagMinutes <= 0 {
		return &ValidationError{Field: "CheckInLagMinutes", Message: "Check-in lag must be positive"}
	}
	if c.StreakLookbackDays <= 0 {
		return &ValidationError{Field: "StreakLookbackDays", Message: "Streak lookback must be positive"}
	}
	return nil
}
