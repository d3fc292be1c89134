package ytdlp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"spool/internal/config"
)

var commandContext = exec.CommandContext

// Client is the extraction capability consumed by the download orchestrator.
type Client interface {
	Probe(ctx context.Context, url string, variant Variant) (*ProbeResult, error)
	Download(ctx context.Context, req DownloadRequest, onProgress func(ProgressSample)) (*DownloadResult, error)
}

// Option configures the CLI client.
type Option func(*CLI)

// WithBinary overrides the default binary name.
func WithBinary(binary string) Option {
	return func(c *CLI) {
		if binary != "" {
			c.binary = binary
		}
	}
}

// WithCookiesFile points attempts at an exported cookies file.
func WithCookiesFile(path string) Option {
	return func(c *CLI) {
		c.cookiesPath = path
	}
}

// WithCookiesBrowser loads cookies from an installed browser profile.
func WithCookiesBrowser(browser string) Option {
	return func(c *CLI) {
		c.cookiesBrowser = browser
	}
}

// WithSocketTimeout bounds each network read in seconds.
func WithSocketTimeout(seconds int) Option {
	return func(c *CLI) {
		if seconds > 0 {
			c.socketTimeout = seconds
		}
	}
}

// WithMergeContainer sets the container used when video and audio tracks are
// downloaded separately and merged.
func WithMergeContainer(container string) Option {
	return func(c *CLI) {
		if container != "" {
			c.mergeContainer = container
		}
	}
}

// CLI drives the yt-dlp command-line tool.
type CLI struct {
	binary         string
	cookiesPath    string
	cookiesBrowser string
	socketTimeout  int
	mergeContainer string
}

// NewCLI constructs a CLI client using defaults.
func NewCLI(opts ...Option) *CLI {
	cli := &CLI{binary: "yt-dlp", socketTimeout: 15, mergeContainer: "mp4"}
	for _, opt := range opts {
		opt(cli)
	}
	return cli
}

// NewConfiguredCLI builds a client from the downloader configuration.
func NewConfiguredCLI(cfg *config.Config) *CLI {
	return NewCLI(
		WithBinary(cfg.ExtractorBinary()),
		WithCookiesFile(cfg.Downloader.CookiesPath),
		WithCookiesBrowser(cfg.Downloader.CookiesBrowser),
		WithSocketTimeout(cfg.Downloader.SocketTimeout),
		WithMergeContainer(cfg.Downloader.MergeContainer),
	)
}

func (c *CLI) commonArgs(variant Variant) []string {
	args := []string{"--socket-timeout", strconv.Itoa(c.socketTimeout), "--force-ipv4"}
	if variant.PlayerClient != "" {
		args = append(args, "--extractor-args", "youtube:player_client="+variant.PlayerClient)
	}
	if variant.UserAgent != "" {
		args = append(args, "--user-agent", variant.UserAgent)
	}
	if c.cookiesPath != "" {
		args = append(args, "--cookies", c.cookiesPath)
	} else if c.cookiesBrowser != "" {
		args = append(args, "--cookies-from-browser", c.cookiesBrowser)
	}
	return args
}

type probePayload struct {
	Title     string  `json:"title"`
	Thumbnail string  `json:"thumbnail"`
	Duration  float64 `json:"duration"`
	Formats   []struct {
		FormatID       string  `json:"format_id"`
		Ext            string  `json:"ext"`
		Height         int     `json:"height"`
		Width          int     `json:"width"`
		VCodec         string  `json:"vcodec"`
		ACodec         string  `json:"acodec"`
		Filesize       float64 `json:"filesize"`
		FilesizeApprox float64 `json:"filesize_approx"`
		FormatNote     string  `json:"format_note"`
	} `json:"formats"`
}

// Probe runs a metadata-only extraction, no data transfer.
func (c *CLI) Probe(ctx context.Context, url string, variant Variant) (*ProbeResult, error) {
	if strings.TrimSpace(url) == "" {
		return nil, errors.New("url required")
	}

	args := []string{"-J", "--no-warnings"}
	args = append(args, c.commonArgs(variant)...)
	args = append(args, url)

	cmd := commandContext(ctx, c.binary, args...) //nolint:gosec
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if message := firstErrorLine(stderr.String()); message != "" {
			return nil, fmt.Errorf("probe: %s", message)
		}
		return nil, fmt.Errorf("probe: %w", err)
	}

	var payload probePayload
	if err := json.Unmarshal(stdout.Bytes(), &payload); err != nil {
		return nil, fmt.Errorf("decode probe output: %w", err)
	}

	result := &ProbeResult{
		Title:           payload.Title,
		Thumbnail:       payload.Thumbnail,
		DurationSeconds: int(payload.Duration),
	}
	for _, f := range payload.Formats {
		size := int64(f.Filesize)
		if size == 0 {
			size = int64(f.FilesizeApprox)
		}
		result.Streams = append(result.Streams, StreamFormat{
			ID:         f.FormatID,
			Ext:        f.Ext,
			Height:     f.Height,
			Width:      f.Width,
			VideoCodec: f.VCodec,
			HasAudio:   f.ACodec != "" && f.ACodec != "none",
			SizeBytes:  size,
			Note:       f.FormatNote,
		})
	}
	return result, nil
}

type resultPayload struct {
	Filepath       string `json:"filepath"`
	Description    string `json:"description"`
	DurationString string `json:"duration_string"`
	UploadDate     string `json:"upload_date"`
}

const resultPrintTemplate = `after_move:%(.{filepath,description,duration_string,upload_date})j`

// Download launches the actual retrieval and scans tool output for progress
// lines until the process exits. The context cancels the subprocess.
func (c *CLI) Download(ctx context.Context, req DownloadRequest, onProgress func(ProgressSample)) (*DownloadResult, error) {
	if strings.TrimSpace(req.URL) == "" {
		return nil, errors.New("url required")
	}
	if strings.TrimSpace(req.OutputTemplate) == "" {
		return nil, errors.New("output template required")
	}
	formatSpec := strings.TrimSpace(req.FormatSpec)
	if formatSpec == "" {
		formatSpec = DefaultFormatSpec(req.URL)
	}

	args := []string{
		"-f", formatSpec,
		"-o", req.OutputTemplate,
		"--newline",
		"--merge-output-format", c.mergeContainer,
		"--no-simulate",
		"--print", resultPrintTemplate,
	}
	args = append(args, c.commonArgs(req.Variant)...)
	args = append(args, req.URL)

	cmd := commandContext(ctx, c.binary, args...) //nolint:gosec
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	cmd.Stderr = cmd.Stdout
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", c.binary, err)
	}

	var (
		result        resultPayload
		haveResult    bool
		lastPath      string
		lastErrorLine string
	)
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "{") {
			var payload resultPayload
			if err := json.Unmarshal([]byte(line), &payload); err == nil && payload.Filepath != "" {
				result = payload
				haveResult = true
			}
			continue
		}
		if path, _ := parseOutputPath(line); path != "" {
			lastPath = path
			continue
		}
		if sample, ok := parseProgressLine(line); ok {
			if onProgress != nil {
				onProgress(sample)
			}
			continue
		}
		if message := errorLineText(line); message != "" {
			lastErrorLine = message
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read %s output: %w", c.binary, err)
	}

	if err := cmd.Wait(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if lastErrorLine != "" {
			return nil, fmt.Errorf("download: %s", lastErrorLine)
		}
		return nil, fmt.Errorf("download: %w", err)
	}

	if !haveResult {
		if lastPath == "" {
			return nil, errors.New("download produced no output file")
		}
		result.Filepath = lastPath
	}
	return &DownloadResult{
		FilePath:        result.Filepath,
		Description:     result.Description,
		DurationDisplay: result.DurationString,
		UploadDate:      result.UploadDate,
	}, nil
}

func errorLineText(line string) string {
	line = StripANSI(strings.TrimSpace(line))
	if rest, ok := strings.CutPrefix(line, "ERROR:"); ok {
		return strings.TrimSpace(rest)
	}
	return ""
}

func firstErrorLine(output string) string {
	fallback := ""
	for _, line := range strings.Split(output, "\n") {
		if message := errorLineText(line); message != "" {
			return message
		}
		if fallback == "" {
			fallback = strings.TrimSpace(line)
		}
	}
	return fallback
}

var _ Client = (*CLI)(nil)
