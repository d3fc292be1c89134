package config

const (
	defaultDownloadDir      = "~/.local/share/spool/downloads"
	defaultLibraryDir       = "~/.local/share/spool/library"
	defaultDataDir          = "~/.local/share/spool/data"
	defaultLogDir           = "~/.local/share/spool/logs"
	defaultMaxConcurrent    = 3
	defaultResolutionFloor  = 720
	defaultFilenameTemplate = "%(title)s.%(ext)s"
	defaultMergeContainer   = "mp4"
	defaultSocketTimeout    = 15
	defaultNotifyTimeout    = 10
	defaultEventBuffer      = 64
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
)

func defaultClientChain() []string {
	return []string{"android_creator", "android"}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DownloadDir: defaultDownloadDir,
			LibraryDir:  defaultLibraryDir,
			DataDir:     defaultDataDir,
			LogDir:      defaultLogDir,
		},
		Downloader: Downloader{
			MaxConcurrent:    defaultMaxConcurrent,
			ResolutionFloor:  defaultResolutionFloor,
			ClientChain:      defaultClientChain(),
			FilenameTemplate: defaultFilenameTemplate,
			MergeContainer:   defaultMergeContainer,
			SocketTimeout:    defaultSocketTimeout,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
			EventBuffer:    defaultEventBuffer,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
