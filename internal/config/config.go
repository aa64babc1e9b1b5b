package config

import (
	stderrors "errors"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"wtt/internal/model"
	"wtt/internal/timetable"
)

// NOTE: YAML-based load/save with first-run config creation and 0600
// permissions, plus WTT_* environment overrides.

// PresetConfig describes one toolbar preset.
type PresetConfig struct {
	ID       string   `yaml:"id" json:"id" validate:"required"`
	Label    string   `yaml:"label" json:"label" validate:"required"`
	Days     []string `yaml:"days" json:"days" validate:"required,min=1,dive,oneof=MON TUE WED THU FRI SAT SUN"`
	FromHour int      `yaml:"from_hour" json:"from_hour" validate:"min=0,max=24,ltfield=ToHour"`
	ToHour   int      `yaml:"to_hour" json:"to_hour" validate:"min=0,max=24"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the Web UI/API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// CaptureConfig controls headless Chromium previews of the grid.
type CaptureConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled"`
	// BaseURL is how Chromium reaches this server, e.g. "http://127.0.0.1:8080".
	// Empty means "http://" + Listen.
	BaseURL    string `yaml:"base_url" json:"base_url"`
	Width      int    `yaml:"width" json:"width" validate:"min=0"`
	Height     int    `yaml:"height" json:"height" validate:"min=0"`
	TimeoutSec int    `yaml:"timeout_sec" json:"timeout_sec" validate:"min=0"`
}

// ImportConfig gates server-side fetching of remote calendar feeds.
type ImportConfig struct {
	// RemoteEnabled allows {"url": ...} imports. Off by default.
	RemoteEnabled bool `yaml:"remote_enabled" json:"remote_enabled"`
	// AllowedHosts restricts remote imports to these host names. Required
	// when RemoteEnabled is set.
	AllowedHosts []string `yaml:"allowed_hosts" json:"allowed_hosts" validate:"dive,hostname_rfc1123"`
}

// AllowsHost reports whether a remote feed on host may be fetched.
func (c ImportConfig) AllowsHost(host string) bool {
	if !c.RemoteEnabled {
		return false
	}
	host = strings.ToLower(host)
	for _, h := range c.AllowedHosts {
		if strings.ToLower(h) == host {
			return true
		}
	}
	return false
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the Web UI and API.
	Listen string `yaml:"listen" json:"listen" validate:"required"`

	LogLevel  string `yaml:"log_level" json:"log_level" validate:"oneof=debug info warn error"`
	LogFormat string `yaml:"log_format" json:"log_format" validate:"oneof=console json"`

	// Policy is the commit policy for new editing sessions:
	//   - "immediate" (default): every mutation is handed to the host
	//   - "draft": edits stay in a draft until Save
	Policy string `yaml:"policy" json:"policy" validate:"oneof=immediate draft"`

	// SessionTTLMinutes is how long an untouched editing session is kept.
	SessionTTLMinutes int `yaml:"session_ttl_minutes" json:"session_ttl_minutes" validate:"min=1"`

	// SweepCron is a cron-style schedule for evicting idle sessions.
	SweepCron string `yaml:"sweep" json:"sweep" validate:"required"`

	// RateLimit is the per-IP request budget per second on /api.
	RateLimit int `yaml:"rate_limit" json:"rate_limit" validate:"min=1"`

	// PointerRateLimit is the separate per-IP budget for pointer events, which
	// arrive once per cell crossed during a drag.
	PointerRateLimit int `yaml:"pointer_rate_limit" json:"pointer_rate_limit" validate:"min=1"`

	// CORSOrigins lists host pages allowed to embed the widget API.
	CORSOrigins []string `yaml:"cors_origins" json:"cors_origins"`

	Presets []PresetConfig `yaml:"presets" json:"presets" validate:"dive"`

	Capture CaptureConfig `yaml:"capture" json:"capture"`

	Import ImportConfig `yaml:"import" json:"import"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all endpoints
	// except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

func defaultPresets() []PresetConfig {
	builtin := timetable.DefaultPresets()
	out := make([]PresetConfig, 0, len(builtin))
	for _, p := range builtin {
		days := make([]string, 0, len(p.Days))
		for _, d := range p.Days {
			days = append(days, string(d))
		}
		out = append(out, PresetConfig{ID: p.ID, Label: p.Label, Days: days, FromHour: p.FromHour, ToHour: p.ToHour})
	}
	return out
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:            "127.0.0.1:8080",
		LogLevel:          "info",
		LogFormat:         "console",
		Policy:            "immediate",
		SessionTTLMinutes: 120,
		SweepCron:         "*/5 * * * *",
		RateLimit:         50,
		PointerRateLimit:  500,
		CORSOrigins:       []string{},
		Presets:           defaultPresets(),
		Capture: CaptureConfig{
			Width:      1100,
			Height:     1500,
			TimeoutSec: 30,
		},
		Import:    ImportConfig{AllowedHosts: []string{}},
		BasicAuth: nil,
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs (e.g., older versions) still behave correctly.
func (c *Config) Normalize() {
	d := DefaultConfig()
	if c.Listen == "" {
		c.Listen = d.Listen
	}
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	if c.LogLevel == "" {
		c.LogLevel = d.LogLevel
	}
	if c.LogFormat == "" {
		c.LogFormat = d.LogFormat
	}
	// Unknown policy; fall back to immediate to avoid silently dropping edits.
	switch c.Policy {
	case "immediate", "draft":
	default:
		c.Policy = d.Policy
	}
	if c.SessionTTLMinutes <= 0 {
		c.SessionTTLMinutes = d.SessionTTLMinutes
	}
	if c.SweepCron == "" {
		c.SweepCron = d.SweepCron
	}
	if c.RateLimit <= 0 {
		c.RateLimit = d.RateLimit
	}
	if c.PointerRateLimit <= 0 {
		c.PointerRateLimit = d.PointerRateLimit
	}
	if c.Import.AllowedHosts == nil {
		c.Import.AllowedHosts = []string{}
	}
	if c.CORSOrigins == nil {
		c.CORSOrigins = []string{}
	}
	// nil means "not configured"; an explicit empty list hides the toolbar presets.
	if c.Presets == nil {
		c.Presets = d.Presets
	}
	for i := range c.Presets {
		for j, day := range c.Presets[i].Days {
			c.Presets[i].Days[j] = strings.ToUpper(strings.TrimSpace(day))
		}
	}
	if c.Capture.Width <= 0 {
		c.Capture.Width = d.Capture.Width
	}
	if c.Capture.Height <= 0 {
		c.Capture.Height = d.Capture.Height
	}
	if c.Capture.TimeoutSec <= 0 {
		c.Capture.TimeoutSec = d.Capture.TimeoutSec
	}
}

var validate = validator.New()

// Validate checks struct tags after Normalize.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "invalid config")
	}
	if c.Import.RemoteEnabled && len(c.Import.AllowedHosts) == 0 {
		return errors.New("invalid config: import.allowed_hosts is empty but remote_enabled is set")
	}
	seen := make(map[string]bool, len(c.Presets))
	for _, p := range c.Presets {
		if seen[p.ID] {
			return errors.Errorf("invalid config: duplicate preset id %q", p.ID)
		}
		seen[p.ID] = true
	}
	return nil
}

// TimetablePresets converts the configured presets for the widget toolbar.
func (c *Config) TimetablePresets() []timetable.Preset {
	out := make([]timetable.Preset, 0, len(c.Presets))
	for _, p := range c.Presets {
		days := make([]model.Day, 0, len(p.Days))
		for _, s := range p.Days {
			if d, ok := model.ParseDay(s); ok {
				days = append(days, d)
			}
		}
		out = append(out, timetable.Preset{ID: p.ID, Label: p.Label, Days: days, FromHour: p.FromHour, ToHour: p.ToHour})
	}
	return out
}

// ApplyEnv overrides selected fields from WTT_* environment variables.
// A .env file in the working directory is loaded first when present.
func (c *Config) ApplyEnv() {
	_ = godotenv.Load()

	if v := os.Getenv("WTT_LISTEN"); v != "" {
		c.Listen = v
	}
	if v := os.Getenv("WTT_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("WTT_LOG_FORMAT"); v != "" {
		c.LogFormat = v
	}
	if v := os.Getenv("WTT_POLICY"); v != "" {
		c.Policy = v
	}
	if v := os.Getenv("WTT_SESSION_TTL_MINUTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.SessionTTLMinutes = n
		}
	}
	u, p := os.Getenv("WTT_BASIC_AUTH_USER"), os.Getenv("WTT_BASIC_AUTH_PASSWORD")
	if u != "" && p != "" {
		c.BasicAuth = &BasicAuthConfig{Username: u, Password: p}
	}
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist:
//   - create parent directory if needed
//   - write a default config with 0600 perms
//   - return the default config
//   - If the file exists:
//   - read YAML and unmarshal into Config
//   - normalize defaults and validate
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, stderrors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, errors.Wrapf(err, "read config %s", path)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrapf(err, "parse config %s", path)
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes the given configuration to the specified path.
//
// Implementation details:
//   - Ensures parent directory exists (0700).
//   - Marshals cfg to YAML.
//   - Writes atomically via a temp file + rename.
//   - Ensures final file permissions are 0600.
func Save(path string, cfg *Config) error {
	if path == "" {
		return stderrors.New("config path is empty")
	}
	if cfg == nil {
		return stderrors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return errors.Wrap(err, "create config dir")
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return errors.Wrap(err, "marshal config")
	}

	// Atomic write: write to temp file in same directory then rename.
	tmp, err := os.CreateTemp(dir, ".wtt-config-*.tmp")
	if err != nil {
		return errors.Wrap(err, "create temp config")
	}
	tmpName := tmp.Name()

	// Ensure we clean up temp file on error.
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Wrap(err, "write temp config")
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return errors.Wrap(err, "sync temp config")
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}

	return errors.Wrap(os.Rename(tmpName, path), "replace config")
}

// Save is a convenience method on Config that delegates to the package-level
// Save function.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
