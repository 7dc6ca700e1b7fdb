package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"acctconsole/internal/logger"
)

// EnvPrefix prefixes environment overrides, e.g. ACCT_CONSOLE_API_DEFAULT_URL.
const EnvPrefix = "ACCT_CONSOLE"

const dirName = "acct-console"

// Store manages the runtime configuration for the console.
type Store struct {
	path   string
	Config Data
}

// Data represents persisted user preferences.
type Data struct {
	API     APIConfig     `mapstructure:"api" yaml:"api"`
	UI      UIConfig      `mapstructure:"ui" yaml:"ui"`
	Log     logger.Config `mapstructure:"log" yaml:"log"`
	Storage StorageConfig `mapstructure:"storage" yaml:"storage"`
}

// APIConfig configures the control API client.
type APIConfig struct {
	DefaultURL string        `mapstructure:"default_url" yaml:"default_url"`
	Timeout    time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// UIConfig configures the terminal console.
type UIConfig struct {
	RefreshInterval      time.Duration `mapstructure:"refresh_interval" yaml:"refresh_interval"`
	NotificationDuration time.Duration `mapstructure:"notification_duration" yaml:"notification_duration"`
	Timezone             string        `mapstructure:"timezone" yaml:"timezone"`
}

// StorageConfig locates the local SQLite database.
type StorageConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// Load reads the config from the default location, creating it with
// defaults when missing.
func Load() (*Store, error) {
	return LoadFrom("")
}

// LoadFrom reads the config at path. Priority is env, then file, then
// defaults. An empty path resolves to the user config directory.
func LoadFrom(path string) (*Store, error) {
	if path == "" {
		resolved, err := resolvePath()
		if err != nil {
			return nil, err
		}
		path = resolved
	}
	dir := filepath.Dir(path)

	v := viper.New()
	setDefaults(v, dir)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if _, err := os.Stat(path); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("stat config: %w", err)
		}
		if err := writeConfig(path, defaultConfig(dir)); err != nil {
			return nil, err
		}
	}

	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	var cfg Data
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.fill(dir)

	return &Store{path: path, Config: cfg}, nil
}

// Save writes the current config values to disk.
func (s *Store) Save() error {
	if s == nil {
		return errors.New("nil config store")
	}
	return writeConfig(s.path, s.Config)
}

// Path returns the config file location.
func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

func resolvePath() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil || base == "" {
		base = os.Getenv("HOME")
		if base == "" {
			return "", fmt.Errorf("cannot resolve config directory: %w", err)
		}
	}
	return filepath.Join(base, dirName, "config.yaml"), nil
}

func writeConfig(path string, cfg Data) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	bytes, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, bytes, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper, dir string) {
	d := defaultConfig(dir)
	v.SetDefault("api.default_url", d.API.DefaultURL)
	v.SetDefault("api.timeout", d.API.Timeout)
	v.SetDefault("ui.refresh_interval", d.UI.RefreshInterval)
	v.SetDefault("ui.notification_duration", d.UI.NotificationDuration)
	v.SetDefault("ui.timezone", d.UI.Timezone)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("log.file", d.Log.File)
	v.SetDefault("storage.path", d.Storage.Path)
}

func defaultConfig(dir string) Data {
	return Data{
		API: APIConfig{
			DefaultURL: "http://localhost:8000",
			Timeout:    15 * time.Second,
		},
		UI: UIConfig{
			RefreshInterval:      30 * time.Second,
			NotificationDuration: 3 * time.Second,
			Timezone:             defaultTimezone(),
		},
		Log: logger.Config{
			Level:  "info",
			Format: "json",
			File:   filepath.Join(dir, "acct-console.log"),
		},
		Storage: StorageConfig{
			Path: filepath.Join(dir, "acct-console.db"),
		},
	}
}

// fill replaces zero values that a hand-edited file may have introduced.
func (d *Data) fill(dir string) {
	def := defaultConfig(dir)
	if strings.TrimSpace(d.API.DefaultURL) == "" {
		d.API.DefaultURL = def.API.DefaultURL
	}
	if d.API.Timeout <= 0 {
		d.API.Timeout = def.API.Timeout
	}
	if d.UI.RefreshInterval <= 0 {
		d.UI.RefreshInterval = def.UI.RefreshInterval
	}
	if d.UI.NotificationDuration <= 0 {
		d.UI.NotificationDuration = def.UI.NotificationDuration
	}
	if d.UI.Timezone == "" {
		d.UI.Timezone = def.UI.Timezone
	}
	if d.Storage.Path == "" {
		d.Storage.Path = def.Storage.Path
	}
}

func defaultTimezone() string {
	if locName := time.Now().Location().String(); locName != "Local" && locName != "" {
		return locName
	}
	return "UTC"
}

// Location returns the configured timezone Location, defaulting to UTC on error.
func (s *Store) Location() *time.Location {
	if s == nil {
		return time.UTC
	}
	if loc, err := time.LoadLocation(s.Config.UI.Timezone); err == nil {
		return loc
	}
	return time.UTC
}
