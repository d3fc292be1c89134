package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"spool/internal/config"
)

func TestDefaultValidates(t *testing.T) {
	cfg := config.Default()
	base := t.TempDir()
	cfg.Paths.DownloadDir = filepath.Join(base, "downloads")
	cfg.Paths.DataDir = filepath.Join(base, "data")
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if cfg.Downloader.MaxConcurrent != 3 {
		t.Fatalf("expected default max_concurrent 3, got %d", cfg.Downloader.MaxConcurrent)
	}
	if cfg.Downloader.ResolutionFloor != 720 {
		t.Fatalf("expected default resolution_floor 720, got %d", cfg.Downloader.ResolutionFloor)
	}
}

func TestLoadParsesAndNormalizes(t *testing.T) {
	base := t.TempDir()
	path := filepath.Join(base, "config.toml")
	content := strings.Join([]string{
		"[paths]",
		`download_dir = "` + filepath.Join(base, "dl") + `"`,
		`data_dir = "` + filepath.Join(base, "data") + `"`,
		"[downloader]",
		"max_concurrent = 0",
		`client_chain = ["Android", "", "android"]`,
		"[logging]",
		`format = "fancy"`,
	}, "\n")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !exists {
		t.Fatalf("expected config at %s to exist", resolved)
	}
	if cfg.Downloader.MaxConcurrent != 3 {
		t.Fatalf("zero max_concurrent should fall back to default, got %d", cfg.Downloader.MaxConcurrent)
	}
	if len(cfg.Downloader.ClientChain) != 1 || cfg.Downloader.ClientChain[0] != "android" {
		t.Fatalf("client chain not deduplicated: %v", cfg.Downloader.ClientChain)
	}
	if cfg.Logging.Format != "console" {
		t.Fatalf("unknown log format should normalize to console, got %q", cfg.Logging.Format)
	}
}

func TestValidateRejectsConflictingCookies(t *testing.T) {
	cfg := config.Default()
	base := t.TempDir()
	cfg.Paths.DownloadDir = filepath.Join(base, "downloads")
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Downloader.CookiesPath = filepath.Join(base, "cookies.txt")
	cfg.Downloader.CookiesBrowser = "firefox"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for conflicting cookie sources")
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(data), "max_concurrent") {
		t.Fatal("sample config missing downloader section")
	}
}
