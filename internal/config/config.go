// Package config provides configuration management for pdf-blackout.
// It loads .env files, an optional YAML config file and environment variable
// overrides, in that order.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/spherical/pdf-blackout/internal/domain"
	"github.com/spherical/pdf-blackout/internal/pdf"
)

// Config holds all configuration for a blackout run.
type Config struct {
	Render   RenderConfig   `yaml:"render"`
	Output   OutputConfig   `yaml:"output"`
	Log      LogConfig      `yaml:"log"`
	Progress ProgressConfig `yaml:"progress"`

	// Password is only read from the environment, never from the YAML file.
	Password string `yaml:"-"`
}

// RenderConfig holds page rasterization settings.
type RenderConfig struct {
	TargetWidth     int  `yaml:"target_width"`
	MaxHeight       int  `yaml:"max_height"`
	RotateLandscape bool `yaml:"rotate_landscape"`
}

// OutputConfig holds output artifact settings.
type OutputConfig struct {
	PageSize    string `yaml:"page_size"`
	JPEGQuality int    `yaml:"jpeg_quality"`

	// SourceDateEpoch is recorded as the creation date of output documents,
	// in seconds since the Unix epoch, so reruns write identical files.
	SourceDateEpoch int64 `yaml:"source_date_epoch"`
}

// CreationDate returns the document date derived from SourceDateEpoch.
func (o OutputConfig) CreationDate() time.Time {
	return time.Unix(o.SourceDateEpoch, 0).UTC()
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ProgressConfig holds progress reporting settings.
type ProgressConfig struct {
	Enabled bool `yaml:"enabled"`
}

// SupportedPageSizes lists the output page formats.
var SupportedPageSizes = []string{"A3", "A4", "A5", "Letter", "Legal"}

// DefaultConfig returns a configuration with the standard A4/300dpi settings.
func DefaultConfig() *Config {
	return &Config{
		Render: RenderConfig{
			TargetWidth:     2480,
			MaxHeight:       3508,
			RotateLandscape: true,
		},
		Output: OutputConfig{
			PageSize:    "A4",
			JPEGQuality: 90,
		},
		Log: LogConfig{
			Level:  "warn",
			Format: "console",
		},
		Progress: ProgressConfig{
			Enabled: true,
		},
	}
}

// Load reads configuration from .env files, the optional YAML file at path
// and environment variables.
func Load(path string) (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, domain.ConfigError(fmt.Sprintf("read config file %s", path), err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, domain.ConfigError(fmt.Sprintf("parse config file %s", path), err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyEnvOverrides applies BLACKOUT_* environment variables.
func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("BLACKOUT_PASSWORD"); v != "" {
		cfg.Password = v
	}
	if v := os.Getenv("BLACKOUT_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("BLACKOUT_PAGE_SIZE"); v != "" {
		cfg.Output.PageSize = v
	}
	if v := os.Getenv("BLACKOUT_NO_PROGRESS"); v != "" {
		disabled, err := strconv.ParseBool(v)
		if err != nil {
			return domain.ConfigError("BLACKOUT_NO_PROGRESS must be a boolean", err)
		}
		cfg.Progress.Enabled = !disabled
	}
	if v := os.Getenv("SOURCE_DATE_EPOCH"); v != "" {
		epoch, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return domain.ConfigError("SOURCE_DATE_EPOCH must be an integer", err)
		}
		cfg.Output.SourceDateEpoch = epoch
	}

	ints := []struct {
		name string
		dst  *int
	}{
		{"BLACKOUT_JPEG_QUALITY", &cfg.Output.JPEGQuality},
		{"BLACKOUT_TARGET_WIDTH", &cfg.Render.TargetWidth},
		{"BLACKOUT_MAX_HEIGHT", &cfg.Render.MaxHeight},
	}
	for _, iv := range ints {
		v := os.Getenv(iv.name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return domain.ConfigError(fmt.Sprintf("%s must be an integer", iv.name), err)
		}
		*iv.dst = n
	}

	return nil
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if c.Render.TargetWidth <= 0 {
		return domain.ConfigError(fmt.Sprintf("render.target_width must be positive, got %d", c.Render.TargetWidth), nil)
	}
	if c.Render.MaxHeight <= 0 {
		return domain.ConfigError(fmt.Sprintf("render.max_height must be positive, got %d", c.Render.MaxHeight), nil)
	}
	if err := pdf.NewValidator().ValidateQuality(c.Output.JPEGQuality); err != nil {
		return domain.ConfigError("invalid output.jpeg_quality", err)
	}
	if c.Output.SourceDateEpoch < 0 {
		return domain.ConfigError(fmt.Sprintf("output.source_date_epoch must not be negative, got %d", c.Output.SourceDateEpoch), nil)
	}
	if NormalizePageSize(c.Output.PageSize) == "" {
		return domain.ConfigError(fmt.Sprintf("unsupported output.page_size %q (supported: %s)",
			c.Output.PageSize, strings.Join(SupportedPageSizes, ", ")), nil)
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		return domain.ConfigError(fmt.Sprintf("log.format must be console or json, got %q", c.Log.Format), nil)
	}
	return nil
}

// NormalizePageSize returns the canonical spelling of a page size name, or ""
// if the size is not supported.
func NormalizePageSize(size string) string {
	size = strings.TrimSpace(size)
	for _, s := range SupportedPageSizes {
		if strings.EqualFold(s, size) {
			return s
		}
	}
	return ""
}
