package ytdlp

// StreamFormat describes one raw stream variant reported by a probe.
type StreamFormat struct {
	ID         string
	Ext        string
	Height     int
	Width      int
	VideoCodec string
	HasAudio   bool
	SizeBytes  int64
	Note       string
}

// ProbeResult is the metadata returned by a probe, no data transfer involved.
type ProbeResult struct {
	Title           string
	Thumbnail       string
	DurationSeconds int
	Streams         []StreamFormat
}

// FormatOption is the per-resolution representative offered to callers after
// bucketing. Spec is the format selector handed back to a download.
type FormatOption struct {
	Spec       string
	Ext        string
	Resolution string
	Size       string
	Note       string
}

// DownloadRequest carries everything one retrieval attempt needs.
type DownloadRequest struct {
	URL            string
	FormatSpec     string
	OutputTemplate string
	Variant        Variant
}

// DownloadResult is returned on a successful retrieval.
type DownloadResult struct {
	FilePath        string
	Description     string
	DurationDisplay string
	UploadDate      string
}

// ProgressSample is one raw progress signal scraped from tool output. Fields
// that the tool omitted stay at their zero value; HasPercent distinguishes a
// genuine 0% from an absent figure.
type ProgressSample struct {
	HasPercent      bool
	Percent         float64
	DownloadedBytes int64
	TotalBytes      int64
	SpeedText       string
	BytesPerSecond  float64
	ETAText         string
	ETASeconds      int
	Finished        bool
}
