package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the top-level application configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Extract ExtractConfig `yaml:"extract"`
	Convert ConvertConfig `yaml:"convert"`
	Janitor JanitorConfig `yaml:"janitor"`
	Log     LogConfig     `yaml:"log"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host          string `yaml:"host"`
	Port          int    `yaml:"port"`
	MaxUploadSize int64  `yaml:"max_upload_size"` // bytes per upload request (default: 200 MiB)
}

// ExtractConfig holds pipeline settings.
type ExtractConfig struct {
	MaxFileSize int64 `yaml:"max_file_size"` // bytes (default: 50 MiB)
	Workers     int   `yaml:"workers"`       // concurrent documents per batch (default: 4)
}

// ConvertConfig holds settings for the external document tools.
type ConvertConfig struct {
	ScratchDir        string        `yaml:"scratch_dir"`
	SofficePath       string        `yaml:"soffice_path"`
	CatpptPath        string        `yaml:"catppt_path"`
	ConversionTimeout time.Duration `yaml:"conversion_timeout"`
	ExtractorTimeout  time.Duration `yaml:"extractor_timeout"`
}

// JanitorConfig controls the sweep of abandoned scratch workspaces.
type JanitorConfig struct {
	Schedule string        `yaml:"schedule"` // cron expression; empty disables the janitor
	MaxAge   time.Duration `yaml:"max_age"`
}

// LogConfig selects the log level and handler format ("text" or "json").
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// defaults returns a Config populated with sensible default values.
func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Host:          "0.0.0.0",
			Port:          8080,
			MaxUploadSize: 200 << 20,
		},
		Extract: ExtractConfig{
			MaxFileSize: 50 << 20,
			Workers:     4,
		},
		Convert: ConvertConfig{
			ScratchDir:        os.TempDir(),
			SofficePath:       "soffice",
			CatpptPath:        "catppt",
			ConversionTimeout: 2 * time.Minute,
			ExtractorTimeout:  30 * time.Second,
		},
		Janitor: JanitorConfig{
			Schedule: "@every 10m",
			MaxAge:   time.Hour,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads a YAML configuration file at path and returns a Config.
// Environment overrides are applied on top of the file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	cfg.applyEnv()
	return cfg, nil
}

// LoadDefault tries to load "config.yaml" from the current directory.
// If the file does not exist, it returns defaults with environment overrides.
// Any other error (e.g. permission denied, malformed YAML) is returned.
func LoadDefault() (*Config, error) {
	cfg, err := Load("config.yaml")
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg = defaults()
			cfg.applyEnv()
			return cfg, nil
		}
		return nil, err
	}
	return cfg, nil
}

// applyEnv overrides tool locations and the log level from the environment.
func (c *Config) applyEnv() {
	for env, dst := range map[string]*string{
		"DOCSUM_SOFFICE_PATH": &c.Convert.SofficePath,
		"DOCSUM_CATPPT_PATH":  &c.Convert.CatpptPath,
		"DOCSUM_SCRATCH_DIR":  &c.Convert.ScratchDir,
		"DOCSUM_LOG_LEVEL":    &c.Log.Level,
	} {
		if v := os.Getenv(env); v != "" {
			*dst = v
		}
	}
}
