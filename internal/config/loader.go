// Package config resolves the service configuration once at startup: an
// optional config file, then environment variables, then flag overrides in
// main. Nothing reads the environment after boot.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Defaults for every tunable. Numeric env values that fail to parse fall
// back here rather than aborting startup.
const (
	DefaultAddr          = ":8000"
	DefaultModelID       = "runwayml/stable-diffusion-inpainting"
	DefaultCacheDir      = "~/.cache/inpaintd"
	DefaultSteps         = 25
	DefaultGuidanceScale = 7.5
	DefaultMaxBodyBytes  = 24 << 20 // uploads are raster images, not JSON
)

// Config holds runtime parameters for the service. Zero values mean
// "unspecified" and are replaced by defaults in ApplyDefaults.
type Config struct {
	Addr           string  `json:"addr" yaml:"addr" toml:"addr"`
	ModelID        string  `json:"model_id" yaml:"model_id" toml:"model_id"`
	CacheDir       string  `json:"cache_dir" yaml:"cache_dir" toml:"cache_dir"`
	Steps          int     `json:"inference_steps" yaml:"inference_steps" toml:"inference_steps"`
	GuidanceScale  float64 `json:"guidance_scale" yaml:"guidance_scale" toml:"guidance_scale"`
	LocalFilesOnly bool    `json:"use_local_files" yaml:"use_local_files" toml:"use_local_files"`
	BackendURL     string  `json:"backend_url" yaml:"backend_url" toml:"backend_url"`
	Stub           bool    `json:"stub" yaml:"stub" toml:"stub"`
	LogLevel       string  `json:"log_level" yaml:"log_level" toml:"log_level"`
	DebugRoutes    bool    `json:"debug_routes" yaml:"debug_routes" toml:"debug_routes"`
	MaxBodyBytes   int64   `json:"max_body_bytes" yaml:"max_body_bytes" toml:"max_body_bytes"`
	CORSEnabled    bool    `json:"cors_enabled" yaml:"cors_enabled" toml:"cors_enabled"`
	CORSOrigins    string  `json:"cors_origins" yaml:"cors_origins" toml:"cors_origins"`
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}

// OverlayEnv fills unset fields from the environment. Model-facing names
// follow the documented surface (HF_CACHE_DIR, MODEL_ID, INFERENCE_STEPS,
// GUIDANCE_SCALE, USE_LOCAL_FILES); service-level knobs use INPAINTD_*.
func (c *Config) OverlayEnv() {
	if c.Addr == "" {
		c.Addr = os.Getenv("INPAINTD_ADDR")
	}
	if c.ModelID == "" {
		c.ModelID = os.Getenv("MODEL_ID")
	}
	if c.CacheDir == "" {
		c.CacheDir = os.Getenv("HF_CACHE_DIR")
	}
	if c.Steps == 0 {
		c.Steps = envInt("INFERENCE_STEPS", 0)
	}
	if c.GuidanceScale == 0 {
		c.GuidanceScale = envFloat("GUIDANCE_SCALE", 0)
	}
	if !c.LocalFilesOnly {
		c.LocalFilesOnly = envBool("USE_LOCAL_FILES")
	}
	if c.BackendURL == "" {
		c.BackendURL = os.Getenv("INPAINTD_BACKEND_URL")
	}
	if !c.Stub {
		c.Stub = envBool("INPAINTD_STUB")
	}
	if c.LogLevel == "" {
		c.LogLevel = os.Getenv("INPAINTD_LOG_LEVEL")
	}
	if !c.DebugRoutes {
		c.DebugRoutes = envBool("INPAINTD_DEBUG_ROUTES")
	}
}

// ApplyDefaults replaces unset or invalid fields with documented defaults.
func (c *Config) ApplyDefaults() {
	if c.Addr == "" {
		c.Addr = DefaultAddr
	}
	if c.ModelID == "" {
		c.ModelID = DefaultModelID
	}
	if c.CacheDir == "" {
		c.CacheDir = DefaultCacheDir
	}
	if c.Steps <= 0 {
		c.Steps = DefaultSteps
	}
	if c.GuidanceScale <= 0 {
		c.GuidanceScale = DefaultGuidanceScale
	}
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func envFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil || f <= 0 {
		return fallback
	}
	return f
}

func envBool(key string) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
