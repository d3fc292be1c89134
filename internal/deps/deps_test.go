package deps

import (
	"os"
	"path/filepath"
	"testing"

	"spool/internal/config"
)

func TestCheckBinaries(t *testing.T) {
	binDir := t.TempDir()
	present := filepath.Join(binDir, "present")
	script := []byte("#!/bin/sh\nexit 0\n")
	if err := os.WriteFile(present, script, 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	reqs := []Requirement{
		{Name: "Present", Command: present},
		{Name: "Missing", Command: "clearly-not-present-binary"},
	}

	results := CheckBinaries(reqs)
	if len(results) != len(reqs) {
		t.Fatalf("expected %d results, got %d", len(reqs), len(results))
	}

	if !results[0].Available {
		t.Fatalf("expected first requirement to be available, got %#v", results[0])
	}
	if results[0].Detail != "" {
		t.Fatalf("unexpected detail for available dependency: %s", results[0].Detail)
	}

	if results[1].Available {
		t.Fatalf("expected missing binary to be unavailable")
	}
	if results[1].Detail == "" {
		t.Fatalf("expected detail message for missing binary")
	}
	if results[1].Command != "clearly-not-present-binary" {
		t.Fatalf("unexpected command recorded: %s", results[1].Command)
	}
}

func TestCheckBinariesUnconfiguredCommand(t *testing.T) {
	results := CheckBinaries([]Requirement{{Name: "Blank", Command: "  "}})
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].Available {
		t.Fatal("expected unconfigured command to be unavailable")
	}
	if results[0].Detail != "command not configured" {
		t.Fatalf("unexpected detail: %s", results[0].Detail)
	}
}

func TestDefaultsUsesConfiguredExtractor(t *testing.T) {
	cfg := config.Default()
	cfg.Downloader.Binary = "yt-dlp-nightly"

	reqs := Defaults(&cfg)
	if len(reqs) != 2 {
		t.Fatalf("expected 2 requirements, got %d", len(reqs))
	}
	if reqs[0].Command != "yt-dlp-nightly" {
		t.Fatalf("expected configured extractor, got %s", reqs[0].Command)
	}
	if reqs[0].Optional {
		t.Fatal("extractor requirement must not be optional")
	}
	if !reqs[1].Optional {
		t.Fatal("ffmpeg requirement should be optional")
	}
}

func TestDefaultsNilConfig(t *testing.T) {
	reqs := Defaults(nil)
	if reqs[0].Command != "yt-dlp" {
		t.Fatalf("expected yt-dlp default, got %s", reqs[0].Command)
	}
}
