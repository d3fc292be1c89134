package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateDownloader(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.DownloadDir) == "" {
		return errors.New("paths.download_dir must be set")
	}
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		return errors.New("paths.data_dir must be set")
	}
	return nil
}

func (c *Config) validateDownloader() error {
	if c.Downloader.MaxConcurrent < 1 {
		return errors.New("downloader.max_concurrent must be at least 1")
	}
	if c.Downloader.ResolutionFloor < 0 {
		return errors.New("downloader.resolution_floor must not be negative")
	}
	if len(c.Downloader.ClientChain) == 0 {
		return errors.New("downloader.client_chain must name at least one client")
	}
	if c.Downloader.CookiesPath != "" && c.Downloader.CookiesBrowser != "" {
		return errors.New("downloader.cookies_path and downloader.cookies_browser are mutually exclusive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	return nil
}
