// Package config provides configuration loading from YAML files.
package config

import (
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Environment variables that override file values.
const (
	EnvConfigPath   = "ZOTU_CONFIG"
	EnvMusicDir     = "ZOTU_MUSIC_DIR"
	EnvDBPath       = "ZOTU_DB_PATH"
	EnvAudioBackend = "ZOTU_AUDIO_BACKEND"
)

// DefaultVolume is the volume used before one is saved.
const DefaultVolume = 0.8

// Config represents the application configuration.
type Config struct {
	MediaFile MediaFileConfig `yaml:"media_file"`
	PlayInfo  PlayInfoConfig  `yaml:"play_info"`
	Storage   StorageConfig   `yaml:"storage"`
	Catalog   CatalogConfig   `yaml:"catalog"`
	Playback  PlaybackConfig  `yaml:"playback"`
	Audio     AudioConfig     `yaml:"audio"`
	Log       LogConfig       `yaml:"log"`
	CoversDir string          `yaml:"covers_dir" default:"covers"`
}

// MediaFileConfig represents where music is imported from.
type MediaFileConfig struct {
	MusicDirectory string `yaml:"music_directory"`
}

// PlayInfoConfig represents the playback state restored at startup.
type PlayInfoConfig struct {
	LoopMode string   `yaml:"loop_mode" default:"list" validate:"oneof=list single random"`
	Volume   *float64 `yaml:"volume" default:"0.8" validate:"required,gte=0,lte=1"`
	View     string   `yaml:"view" default:"library" validate:"oneof=library favorites history search"`
}

// VolumeLevel returns the saved volume or DefaultVolume.
func (p PlayInfoConfig) VolumeLevel() float64 {
	if p.Volume == nil {
		return DefaultVolume
	}
	return *p.Volume
}

// SetVolume stores v.
func (p *PlayInfoConfig) SetVolume(v float64) {
	p.Volume = &v
}

// StorageConfig represents catalog storage configuration.
// Settings are backend specific and decoded by the backend.
type StorageConfig struct {
	Backend  string         `yaml:"backend" default:"sqlite" validate:"oneof=sqlite memory"`
	Settings map[string]any `yaml:"settings,omitempty"`
}

// CatalogConfig represents catalog behaviour.
type CatalogConfig struct {
	StaleEntries string `yaml:"stale_entries" default:"purge" validate:"oneof=purge keep"`
}

// PlaybackConfig represents playback control configuration.
type PlaybackConfig struct {
	AutoNextInterval time.Duration `yaml:"auto_next_interval" default:"500ms" validate:"gte=0"`
}

// AudioConfig represents sound output configuration.
type AudioConfig struct {
	Backend    string        `yaml:"backend" default:"beep" validate:"oneof=beep mock"`
	SampleRate int           `yaml:"sample_rate" default:"44100" validate:"gte=8000,lte=192000"`
	Buffer     time.Duration `yaml:"buffer" default:"100ms" validate:"gt=0"`
}

// LogConfig represents logging configuration.
type LogConfig struct {
	Level  string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" default:"text" validate:"oneof=text json"`
}

// DefaultPath returns $ZOTU_CONFIG, or config.yaml under the user config dir.
func DefaultPath() string {
	if v := os.Getenv(EnvConfigPath); v != "" {
		return v
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "zotu.yaml"
	}
	return filepath.Join(dir, "zotu", "config.yaml")
}

// Default returns a configuration with every default applied.
func Default() *Config {
	var cfg Config
	// defaults.Set only fails on malformed tags
	if err := cfg.applyDefaults(); err != nil {
		panic(err)
	}
	return &cfg
}

// Load loads configuration from a YAML file.
// Environment variables take precedence over file values.
func Load(path string) (*Config, error) {
	cfg, err := read(path)
	if err != nil {
		return nil, err
	}

	// Override with environment variables
	cfg.overrideFromEnv()

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}
	return cfg, nil
}

// LoadOrCreate loads path, writing a default file first if none exists.
func LoadOrCreate(path string) (*Config, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		if err := Save(path, Default()); err != nil {
			return nil, err
		}
	}
	return Load(path)
}

// read parses the file and applies defaults, without env overrides.
func read(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config file")
	}

	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() error {
	// Set defaults using creasty/defaults
	if err := defaults.Set(c); err != nil {
		return errors.Wrap(err, "failed to set defaults")
	}
	if c.Storage.Backend == "sqlite" {
		if c.Storage.Settings == nil {
			c.Storage.Settings = map[string]any{}
		}
		if _, ok := c.Storage.Settings["path"]; !ok {
			c.Storage.Settings["path"] = "zotu.db"
		}
	}
	return nil
}

// overrideFromEnv overrides config values with environment variables.
func (c *Config) overrideFromEnv() {
	if v := os.Getenv(EnvMusicDir); v != "" {
		c.MediaFile.MusicDirectory = v
	}
	if v := os.Getenv(EnvDBPath); v != "" {
		if c.Storage.Settings == nil {
			c.Storage.Settings = map[string]any{}
		}
		c.Storage.Settings["path"] = v
	}
	if v := os.Getenv(EnvAudioBackend); v != "" {
		c.Audio.Backend = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "struct validation failed")
	}
	return nil
}

// ResolvePath makes a relative path relative to the directory of the config file.
func ResolvePath(configPath, p string) string {
	if p == "" || p == ":memory:" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(filepath.Dir(configPath), p)
}

// Save writes cfg to path, replacing the file atomically.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return errors.Wrap(err, "failed to encode config")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "failed to create config dir")
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".config-*.yaml")
	if err != nil {
		return errors.Wrap(err, "failed to create temp file")
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return errors.Wrap(err, "failed to write config")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "failed to write config")
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return errors.Wrap(err, "failed to replace config")
	}
	return nil
}

var updateMu sync.Mutex

// Update reads path (or the defaults when it does not exist), applies fn and
// writes the result back. Environment overrides are never written.
// Updates within the process are serialized.
func Update(path string, fn func(*Config)) error {
	updateMu.Lock()
	defer updateMu.Unlock()

	cfg, err := read(path)
	if errors.Is(err, fs.ErrNotExist) {
		cfg, err = Default(), nil
	}
	if err != nil {
		return err
	}

	fn(cfg)

	if err := cfg.Validate(); err != nil {
		return errors.Wrap(err, "config validation failed")
	}
	return Save(path, cfg)
}

// Read returns the file configuration without environment overrides, or the
// defaults when the file does not exist.
func Read(path string) (*Config, error) {
	cfg, err := read(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}
