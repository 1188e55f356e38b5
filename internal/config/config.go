// Package config loads tool settings from ~/.traceback/config.yaml and
// the API credential from its well-known location.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	dirName        = ".traceback"
	configFileName = "config.yaml"
	apiKeyFileName = "api_key"
)

// Config holds every tunable of the analysis engine. Zero values are
// replaced by defaults on load.
type Config struct {
	Provider      string        `yaml:"provider"`
	Model         string        `yaml:"model"`
	BaseURL       string        `yaml:"base_url"`
	PageSize      int           `yaml:"page_size"`
	OverlapSize   int           `yaml:"overlap_size"`
	MaxIterations int           `yaml:"max_iterations"`
	ContextLines  int           `yaml:"context_lines"`
	StackDepth    int           `yaml:"stack_depth"`
	Spacing       time.Duration `yaml:"spacing"`
	CoolDown      time.Duration `yaml:"cool_down"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Provider:      "anthropic",
		Model:         "claude-3-7-sonnet-latest",
		PageSize:      50000,
		OverlapSize:   5000,
		MaxIterations: 50,
		ContextLines:  20,
		StackDepth:    10,
		Spacing:       200 * time.Millisecond,
		CoolDown:      5 * time.Second,
	}
}

// Dir returns the per-user settings directory, creating it if needed.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	dir := filepath.Join(home, dirName)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", dir, err)
	}
	return dir, nil
}

// Load reads the config file at path, merging it over the defaults. A
// missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	var file Config
	if err := yaml.Unmarshal(data, &file); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	cfg.merge(file)
	return cfg, nil
}

// LoadDefault reads the config from the per-user directory.
func LoadDefault() (Config, error) {
	dir, err := Dir()
	if err != nil {
		return Default(), err
	}
	return Load(filepath.Join(dir, configFileName))
}

func (c *Config) merge(other Config) {
	if other.Provider != "" {
		c.Provider = other.Provider
	}
	if other.Model != "" {
		c.Model = other.Model
	}
	if other.BaseURL != "" {
		c.BaseURL = other.BaseURL
	}
	if other.PageSize > 0 {
		c.PageSize = other.PageSize
	}
	if other.OverlapSize > 0 {
		c.OverlapSize = other.OverlapSize
	}
	if other.MaxIterations > 0 {
		c.MaxIterations = other.MaxIterations
	}
	if other.ContextLines > 0 {
		c.ContextLines = other.ContextLines
	}
	if other.StackDepth > 0 {
		c.StackDepth = other.StackDepth
	}
	if other.Spacing > 0 {
		c.Spacing = other.Spacing
	}
	if other.CoolDown > 0 {
		c.CoolDown = other.CoolDown
	}
}

// LoadAPIKey reads the credential from ~/.traceback/api_key, falling
// back to the provider's conventional environment variable. An empty
// result is not an error; the oracle is simply unavailable until a key
// is supplied.
func LoadAPIKey(provider string) string {
	if dir, err := Dir(); err == nil {
		if data, err := os.ReadFile(filepath.Join(dir, apiKeyFileName)); err == nil {
			if key := strings.TrimSpace(string(data)); key != "" {
				return key
			}
		}
	}

	switch provider {
	case "openai":
		return strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))
	default:
		return strings.TrimSpace(os.Getenv("ANTHROPIC_API_KEY"))
	}
}
