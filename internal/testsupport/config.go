package testsupport

import (
	"path/filepath"
	"testing"

	"spool/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DownloadDir = filepath.Join(base, "downloads")
	cfg.Paths.LibraryDir = filepath.Join(base, "library")
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")

	for _, opt := range opts {
		opt(&cfg)
	}

	return &cfg
}

// WithMaxConcurrent overrides the concurrency limit on the test config.
func WithMaxConcurrent(limit int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Downloader.MaxConcurrent = limit
	}
}

// WithResolutionFloor overrides the quality gate floor on the test config.
func WithResolutionFloor(floor int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Downloader.ResolutionFloor = floor
	}
}

// WithClientChain overrides the fallback chain on the test config.
func WithClientChain(clients ...string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Downloader.ClientChain = clients
	}
}
