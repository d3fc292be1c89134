package ytdlp

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"testing"
)

func TestNewCLIWithBinary(t *testing.T) {
	cli := NewCLI(WithBinary("/opt/yt-dlp"))
	if cli.binary != "/opt/yt-dlp" {
		t.Fatalf("expected binary override to be applied, got %q", cli.binary)
	}
}

func TestCLIDownloadRequiresURL(t *testing.T) {
	cli := NewCLI()
	if _, err := cli.Download(context.Background(), DownloadRequest{OutputTemplate: "/tmp/%(title)s.%(ext)s"}, nil); err == nil {
		t.Fatal("expected error when url is empty")
	}
}

func TestCLIDownloadRequiresTemplate(t *testing.T) {
	cli := NewCLI()
	if _, err := cli.Download(context.Background(), DownloadRequest{URL: "https://example.com/v"}, nil); err == nil {
		t.Fatal("expected error when output template is empty")
	}
}

func TestCLIDownloadArgs(t *testing.T) {
	var capturedArgs []string
	original := commandContext
	commandContext = func(ctx context.Context, name string, args ...string) *exec.Cmd {
		capturedArgs = append([]string(nil), args...)
		cmd := exec.CommandContext(ctx, os.Args[0], "-test.run=TestHelperProcess")
		cmd.Env = append(os.Environ(), "GO_WANT_HELPER_PROCESS=1", "YTDLP_HELPER_MODE=success")
		return cmd
	}
	t.Cleanup(func() {
		commandContext = original
	})

	cli := NewCLI(WithCookiesFile("/etc/spool/cookies.txt"), WithSocketTimeout(30))
	req := DownloadRequest{
		URL:            "https://www.youtube.com/watch?v=abc",
		OutputTemplate: "/downloads/%(title)s.%(ext)s",
		Variant:        ChainFromNames([]string{"android"})[0],
	}
	if _, err := cli.Download(context.Background(), req, nil); err != nil {
		t.Fatalf("Download returned error: %v", err)
	}

	if idx := findArg(capturedArgs, "-f"); idx == -1 || capturedArgs[idx+1] == "best" {
		t.Fatalf("empty format spec for youtube should use the compatibility chain, args %v", capturedArgs)
	}
	idx := findArg(capturedArgs, "--cookies")
	if idx == -1 || capturedArgs[idx+1] != "/etc/spool/cookies.txt" {
		t.Fatalf("cookies flag missing, args %v", capturedArgs)
	}
	idx = findArg(capturedArgs, "--socket-timeout")
	if idx == -1 || capturedArgs[idx+1] != "30" {
		t.Fatalf("socket timeout flag missing, args %v", capturedArgs)
	}
	idx = findArg(capturedArgs, "--extractor-args")
	if idx == -1 || capturedArgs[idx+1] != "youtube:player_client=android" {
		t.Fatalf("player client flag missing, args %v", capturedArgs)
	}
}

func TestCLIDownloadSuccess(t *testing.T) {
	setHelperCommand(t, "success")

	cli := NewCLI()
	var samples []ProgressSample
	result, err := cli.Download(context.Background(), DownloadRequest{
		URL:            "https://example.com/v",
		FormatSpec:     "137+bestaudio/best",
		OutputTemplate: "/downloads/%(title)s.%(ext)s",
	}, func(sample ProgressSample) {
		samples = append(samples, sample)
	})
	if err != nil {
		t.Fatalf("Download returned error: %v", err)
	}
	if result.FilePath != "/downloads/Clip.mp4" {
		t.Fatalf("file path mismatch: %q", result.FilePath)
	}
	if result.DurationDisplay != "3:15" || result.UploadDate != "20260814" {
		t.Fatalf("metadata mismatch: %+v", result)
	}
	if len(samples) != 2 {
		t.Fatalf("expected 2 progress samples, got %d", len(samples))
	}
	if !samples[1].Finished {
		t.Fatal("final sample should be flagged finished")
	}
}

func TestCLIDownloadFallsBackToScrapedPath(t *testing.T) {
	setHelperCommand(t, "nopayload")

	cli := NewCLI()
	result, err := cli.Download(context.Background(), DownloadRequest{
		URL:            "https://example.com/v",
		FormatSpec:     "best",
		OutputTemplate: "/downloads/%(title)s.%(ext)s",
	}, nil)
	if err != nil {
		t.Fatalf("Download returned error: %v", err)
	}
	if result.FilePath != "/downloads/Clip.mp4" {
		t.Fatalf("expected merged path from output scrape, got %q", result.FilePath)
	}
}

func TestCLIDownloadFailureSurfacesErrorLine(t *testing.T) {
	setHelperCommand(t, "failure")

	cli := NewCLI()
	_, err := cli.Download(context.Background(), DownloadRequest{
		URL:            "https://example.com/v",
		FormatSpec:     "best",
		OutputTemplate: "/downloads/%(title)s.%(ext)s",
	}, nil)
	if err == nil {
		t.Fatal("expected download failure error")
	}
	if got := err.Error(); got != "download: Sign in to confirm you're not a bot. Use --cookies." {
		t.Fatalf("unexpected error text: %q", got)
	}
}

func TestCLIProbeSuccess(t *testing.T) {
	setHelperCommand(t, "probe")

	cli := NewCLI()
	result, err := cli.Probe(context.Background(), "https://example.com/v", Variant{})
	if err != nil {
		t.Fatalf("Probe returned error: %v", err)
	}
	if result.Title != "Clip" || result.DurationSeconds != 195 {
		t.Fatalf("probe metadata mismatch: %+v", result)
	}
	if len(result.Streams) != 2 {
		t.Fatalf("expected 2 streams, got %d", len(result.Streams))
	}
	if result.Streams[0].HasAudio {
		t.Fatal("acodec none should map to no audio")
	}
	if result.Streams[1].SizeBytes != 1024 {
		t.Fatalf("filesize_approx fallback failed: %+v", result.Streams[1])
	}
}

func TestCLIProbeFailure(t *testing.T) {
	setHelperCommand(t, "probefail")

	cli := NewCLI()
	_, err := cli.Probe(context.Background(), "https://example.com/v", Variant{})
	if err == nil {
		t.Fatal("expected probe failure error")
	}
}

func setHelperCommand(t *testing.T, mode string) {
	t.Helper()
	original := commandContext
	commandContext = func(ctx context.Context, name string, args ...string) *exec.Cmd {
		cmd := exec.CommandContext(ctx, os.Args[0], "-test.run=TestHelperProcess")
		cmd.Env = append(os.Environ(), "GO_WANT_HELPER_PROCESS=1", fmt.Sprintf("YTDLP_HELPER_MODE=%s", mode))
		return cmd
	}
	t.Cleanup(func() {
		commandContext = original
	})
}

func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}

	switch os.Getenv("YTDLP_HELPER_MODE") {
	case "success":
		fmt.Println("[download] Destination: /downloads/Clip.f137.mp4")
		fmt.Println("[download]  50.0% of 10.00MiB at 1.00MiB/s ETA 00:05")
		fmt.Println("[download] 100% of 10.00MiB in 00:00:10 at 1.00MiB/s")
		fmt.Println(`[Merger] Merging formats into "/downloads/Clip.f.mp4"`)
		fmt.Println(`{"filepath": "/downloads/Clip.mp4", "description": "a clip", "duration_string": "3:15", "upload_date": "20260814"}`)
		os.Exit(0)
	case "nopayload":
		fmt.Println("[download] Destination: /downloads/Clip.f137.mp4")
		fmt.Println(`[Merger] Merging formats into "/downloads/Clip.mp4"`)
		os.Exit(0)
	case "failure":
		fmt.Println("[youtube] abc: Downloading android player API JSON")
		fmt.Println("ERROR: Sign in to confirm you're not a bot. Use --cookies.")
		os.Exit(1)
	case "probe":
		fmt.Println(`{"title": "Clip", "thumbnail": "https://example.com/t.jpg", "duration": 195, "formats": [` +
			`{"format_id": "137", "ext": "mp4", "height": 1080, "width": 1920, "vcodec": "avc1.640028", "acodec": "none", "filesize": 2048},` +
			`{"format_id": "18", "ext": "mp4", "height": 360, "width": 640, "vcodec": "avc1.42001E", "acodec": "mp4a.40.2", "filesize_approx": 1024}]}`)
		os.Exit(0)
	case "probefail":
		fmt.Fprintln(os.Stderr, "ERROR: [youtube] abc: Video unavailable")
		os.Exit(1)
	default:
		os.Exit(0)
	}
}

func findArg(args []string, target string) int {
	for i, arg := range args {
		if arg == target {
			return i
		}
	}
	return -1
}
