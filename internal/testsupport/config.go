// Package testsupport provides shared helpers for package tests: seeded
// configs, scratch files, and a scriptable media toolchain fake.
package testsupport

import (
	"path/filepath"
	"testing"

	"remake/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfg := &cfgVal
	cfg.Paths.WorkRoot = filepath.Join(base, "work")
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.LLM.APIKey = "test"

	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// WithLLMKey sets the LLM API key on the test config.
func WithLLMKey(key string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.LLM.APIKey = key
	}
}

// WithGeneration enables the generation service on the test config.
func WithGeneration(baseURL string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Generation.Enabled = true
		cfg.Generation.APIKey = "test"
		cfg.Generation.BaseURL = baseURL
		cfg.Generation.ImageModel = "img"
		cfg.Generation.VideoModel = "vid"
	}
}
