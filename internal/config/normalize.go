package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeDownloader()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.DownloadDir, err = expandPath(c.Paths.DownloadDir); err != nil {
		return fmt.Errorf("paths.download_dir: %w", err)
	}
	if c.Paths.LibraryDir, err = expandPath(c.Paths.LibraryDir); err != nil {
		return fmt.Errorf("paths.library_dir: %w", err)
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeDownloader() {
	if c.Downloader.MaxConcurrent <= 0 {
		c.Downloader.MaxConcurrent = defaultMaxConcurrent
	}
	if c.Downloader.ResolutionFloor <= 0 {
		c.Downloader.ResolutionFloor = defaultResolutionFloor
	}
	chain := make([]string, 0, len(c.Downloader.ClientChain))
	seen := make(map[string]struct{}, len(c.Downloader.ClientChain))
	for _, client := range c.Downloader.ClientChain {
		normalized := strings.ToLower(strings.TrimSpace(client))
		if normalized == "" {
			continue
		}
		if _, ok := seen[normalized]; ok {
			continue
		}
		seen[normalized] = struct{}{}
		chain = append(chain, normalized)
	}
	if len(chain) == 0 {
		chain = defaultClientChain()
	}
	c.Downloader.ClientChain = chain
	if strings.TrimSpace(c.Downloader.FilenameTemplate) == "" {
		c.Downloader.FilenameTemplate = defaultFilenameTemplate
	}
	if strings.TrimSpace(c.Downloader.MergeContainer) == "" {
		c.Downloader.MergeContainer = defaultMergeContainer
	}
	if c.Downloader.SocketTimeout <= 0 {
		c.Downloader.SocketTimeout = defaultSocketTimeout
	}
	c.Downloader.CookiesPath = strings.TrimSpace(c.Downloader.CookiesPath)
	if c.Downloader.CookiesPath == "" {
		if value, ok := os.LookupEnv("SPOOL_COOKIES_PATH"); ok {
			c.Downloader.CookiesPath = strings.TrimSpace(value)
		}
	}
	c.Downloader.CookiesBrowser = strings.TrimSpace(c.Downloader.CookiesBrowser)
	c.Downloader.Binary = strings.TrimSpace(c.Downloader.Binary)
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyTimeout
	}
	if c.Notifications.EventBuffer <= 0 {
		c.Notifications.EventBuffer = defaultEventBuffer
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
