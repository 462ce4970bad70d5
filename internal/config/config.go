package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Defaults applied when incgraph.yml omits a field.
const (
	DefaultRequestDelayMs = 500
	DefaultConcurrency    = 4
	DefaultOutput         = "incgraph.json"
	DefaultServeAddr      = ":8080"
	DefaultCacheEntries   = 1024
)

// ServeConfig holds HTTP server settings.
type ServeConfig struct {
	Addr string `yaml:"addr,omitempty"`
}

// CacheConfig holds listing-cache settings. Entries 0 disables the cache.
type CacheConfig struct {
	Entries int `yaml:"entries,omitempty"`
}

// Config holds project-level settings loaded from incgraph.yml.
type Config struct {
	Repo           string      `yaml:"repo,omitempty"` // owner/name
	Ref            string      `yaml:"ref,omitempty"`
	Roots          []string    `yaml:"roots,omitempty"`
	Extensions     []string    `yaml:"extensions,omitempty"`
	RequestDelayMs int         `yaml:"requestDelayMs,omitempty"`
	Concurrency    int         `yaml:"concurrency,omitempty"`
	MaxDirs        int         `yaml:"maxDirs,omitempty"`
	Output         string      `yaml:"output,omitempty"`
	Serve          ServeConfig `yaml:"serve,omitempty"`
	Cache          CacheConfig `yaml:"cache,omitempty"`
}

// Default returns a config with every field at its default.
func Default() *Config {
	return &Config{
		Roots:          []string{""},
		RequestDelayMs: DefaultRequestDelayMs,
		Concurrency:    DefaultConcurrency,
		Output:         DefaultOutput,
		Serve:          ServeConfig{Addr: DefaultServeAddr},
		Cache:          CacheConfig{Entries: DefaultCacheEntries},
	}
}

// Load attempts to read incgraph.yml or incgraph.yaml from the given
// directory. Fields absent from the file keep their defaults; a missing
// file is not an error.
func Load(dir string) (*Config, error) {
	cfg := Default()
	for _, name := range []string{"incgraph.yml", "incgraph.yaml"} {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
		break
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field ranges and formats.
func (c *Config) Validate() error {
	if c.Repo != "" {
		if _, _, err := c.SplitRepo(); err != nil {
			return err
		}
	}
	if c.RequestDelayMs < 0 {
		return fmt.Errorf("config: requestDelayMs must be >= 0, got %d", c.RequestDelayMs)
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("config: concurrency must be >= 1, got %d", c.Concurrency)
	}
	if c.MaxDirs < 0 {
		return fmt.Errorf("config: maxDirs must be >= 0, got %d", c.MaxDirs)
	}
	if c.Cache.Entries < 0 {
		return fmt.Errorf("config: cache.entries must be >= 0, got %d", c.Cache.Entries)
	}
	for i, ext := range c.Extensions {
		if !strings.HasPrefix(ext, ".") {
			return fmt.Errorf("config: extensions[%d]: %q must start with a dot", i, ext)
		}
	}
	return nil
}

// SplitRepo returns the owner and name halves of Repo.
func (c *Config) SplitRepo() (owner, name string, err error) {
	owner, name, ok := strings.Cut(c.Repo, "/")
	if !ok || owner == "" || name == "" {
		return "", "", fmt.Errorf("config: repo must be owner/name, got %q", c.Repo)
	}
	return owner, name, nil
}

// Delay converts requestDelayMs to the duration the API client paces with.
func (c *Config) Delay() time.Duration {
	return time.Duration(c.RequestDelayMs) * time.Millisecond
}

// Token resolves the repository API token from the environment. A .env file
// in the working directory is honored when present but never overrides
// variables already set; INCGRAPH_TOKEN wins over GITHUB_TOKEN.
func Token() string {
	_ = godotenv.Load()
	return firstNonEmpty(os.Getenv("INCGRAPH_TOKEN"), os.Getenv("GITHUB_TOKEN"))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
