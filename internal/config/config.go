// Package config loads the process configuration: server and collaborator
// addresses plus every empirically calibrated threshold and weight table the
// resolution components consume. Keeping the numbers here rather than as
// package constants lets a labeled test set retune them without code changes.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/brew-resolution-kernel/internal/matcher"
	"github.com/brew-resolution-kernel/internal/pipeline"
	"github.com/brew-resolution-kernel/internal/quality"
	"github.com/brew-resolution-kernel/internal/store"
	"github.com/brew-resolution-kernel/internal/textmatch"
)

// ServerConfig holds the HTTP surface settings.
type ServerConfig struct {
	Addr           string        `yaml:"addr"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	MaxBodyBytes   int64         `yaml:"max_body_bytes"`
	ReplayCacheTTL time.Duration `yaml:"replay_cache_ttl"`
	ReplayCacheLen int           `yaml:"replay_cache_len"`
}

// Config is the full process configuration.
type Config struct {
	Server   ServerConfig      `yaml:"server"`
	RedisURL string            `yaml:"redis_url"`
	NATSURL  string            `yaml:"nats_url"`
	SeedPath string            `yaml:"seed_path"`
	Keywords []string          `yaml:"keywords"`
	Matcher  matcher.Config    `yaml:"matcher"`
	Quality  quality.Weights   `yaml:"quality"`
	Pipeline pipeline.Config   `yaml:"pipeline"`
	Snapshot store.Config      `yaml:"snapshot"`
	Index    store.IndexConfig `yaml:"index"`
}

// Default returns the full default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:           ":9100",
			ReadTimeout:    30 * time.Second,
			WriteTimeout:   30 * time.Second,
			MaxBodyBytes:   1 << 20,
			ReplayCacheTTL: 10 * time.Minute,
			ReplayCacheLen: 1024,
		},
		Keywords: textmatch.DefaultKeywords(),
		Matcher:  matcher.DefaultConfig(),
		Quality:  quality.DefaultWeights(),
		Pipeline: pipeline.DefaultConfig(),
		Snapshot: store.DefaultConfig(),
		Index:    store.DefaultIndexConfig(),
	}
}

// Load reads a YAML config file over the defaults. An empty path returns the
// defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return cfg, nil
}
