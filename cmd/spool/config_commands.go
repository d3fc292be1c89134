package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"spool/internal/config"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}

	configCmd.AddCommand(newConfigInitCommand())
	configCmd.AddCommand(newConfigShowCommand(ctx))

	return configCmd
}

func newConfigInitCommand() *cobra.Command {
	var targetPath string
	var overwrite bool

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Create a sample configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target := strings.TrimSpace(targetPath)
			if target == "" {
				defaultPath, err := config.DefaultConfigPath()
				if err != nil {
					return fmt.Errorf("determine default config path: %w", err)
				}
				target = defaultPath
			} else {
				expanded, err := config.ExpandPath(target)
				if err != nil {
					return fmt.Errorf("resolve config path: %w", err)
				}
				target = expanded
			}

			dir := filepath.Dir(target)
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create config directory %q: %w", dir, err)
			}

			if !overwrite {
				if _, err := os.Stat(target); err == nil {
					return fmt.Errorf("config file already exists at %s (use --overwrite to replace it)", target)
				} else if err != nil && !os.IsNotExist(err) {
					return fmt.Errorf("check config path: %w", err)
				}
			}

			if err := config.CreateSample(target); err != nil {
				return fmt.Errorf("create sample config: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Wrote sample configuration to %s\n", target)
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the configuration file")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite existing configuration if present")
	return cmd
}

func newConfigShowCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:         "show",
		Short:       "Show the effective configuration",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			var configPath string
			if ctx.configFlag != nil {
				configPath = strings.TrimSpace(*ctx.configFlag)
			}
			cfg, path, exists, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			out := cmd.OutOrStdout()
			if exists {
				fmt.Fprintf(out, "Config file: %s\n", path)
			} else {
				fmt.Fprintf(out, "Config file: %s (not found, defaults in effect)\n", path)
			}
			fmt.Fprintf(out, "Download dir:     %s\n", cfg.Paths.DownloadDir)
			fmt.Fprintf(out, "Library dir:      %s\n", cfg.Paths.LibraryDir)
			fmt.Fprintf(out, "Data dir:         %s\n", cfg.Paths.DataDir)
			fmt.Fprintf(out, "Log dir:          %s\n", cfg.Paths.LogDir)
			fmt.Fprintf(out, "Extractor binary: %s\n", cfg.ExtractorBinary())
			fmt.Fprintf(out, "Max concurrent:   %d\n", cfg.Downloader.MaxConcurrent)
			fmt.Fprintf(out, "Resolution floor: %dp\n", cfg.Downloader.ResolutionFloor)
			fmt.Fprintf(out, "Client chain:     %s\n", strings.Join(cfg.Downloader.ClientChain, ", "))
			fmt.Fprintf(out, "Auto-start queue: %s\n", yesNo(cfg.Downloader.AutoStartQueue))
			if cfg.Notifications.NtfyTopic != "" {
				fmt.Fprintf(out, "Ntfy topic:       %s\n", cfg.Notifications.NtfyTopic)
			}
			fmt.Fprintf(out, "Log level:        %s\n", cfg.Logging.Level)
			fmt.Fprintf(out, "Log format:       %s\n", cfg.Logging.Format)
			return nil
		},
	}
	return cmd
}
