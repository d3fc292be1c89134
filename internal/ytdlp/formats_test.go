package ytdlp

import "testing"

func TestSelectRepresentativesBucketsByLongEdge(t *testing.T) {
	streams := []StreamFormat{
		{ID: "hd", Ext: "mp4", Width: 1920, Height: 1080, VideoCodec: "avc1.64001f", HasAudio: true, SizeBytes: 90 << 20},
		{ID: "portrait", Ext: "mp4", Width: 1080, Height: 1920, VideoCodec: "avc1.64001f", HasAudio: true, SizeBytes: 80 << 20},
		{ID: "sd", Ext: "mp4", Width: 854, Height: 480, VideoCodec: "avc1.4d401e", HasAudio: true, SizeBytes: 30 << 20},
		{ID: "audio", Ext: "m4a", VideoCodec: "none", HasAudio: true, SizeBytes: 5 << 20},
	}

	options := SelectRepresentatives(streams)
	if len(options) != 2 {
		t.Fatalf("expected 2 buckets, got %d: %+v", len(options), options)
	}
	if options[0].Resolution != "1080p" || options[1].Resolution != "480p" {
		t.Fatalf("wrong bucket order: %+v", options)
	}
	if options[0].Spec != "hd" {
		t.Fatalf("larger file should win the 1080p bucket, got %q", options[0].Spec)
	}
}

func TestSelectRepresentativesTieBreak(t *testing.T) {
	streams := []StreamFormat{
		{ID: "vp9", Ext: "webm", Width: 1920, Height: 1080, VideoCodec: "vp9", HasAudio: true, SizeBytes: 200 << 20},
		{ID: "h264", Ext: "mp4", Width: 1920, Height: 1080, VideoCodec: "avc1.64001f", HasAudio: true, SizeBytes: 100 << 20},
	}

	options := SelectRepresentatives(streams)
	if len(options) != 1 {
		t.Fatalf("expected a single bucket, got %d", len(options))
	}
	if options[0].Spec != "h264" {
		t.Fatalf("compatible codec should beat larger size, got %q", options[0].Spec)
	}
}

func TestSelectRepresentativesUpgradesAudioless(t *testing.T) {
	streams := []StreamFormat{
		{ID: "137", Ext: "mp4", Width: 1920, Height: 1080, VideoCodec: "avc1.640028", HasAudio: false, SizeBytes: 150 << 20},
	}

	options := SelectRepresentatives(streams)
	if len(options) != 1 {
		t.Fatalf("expected a single bucket, got %d", len(options))
	}
	if options[0].Spec != "137+bestaudio/best" {
		t.Fatalf("audio-less representative not upgraded: %q", options[0].Spec)
	}
}

func TestSelectRepresentativesSkipsUnsized(t *testing.T) {
	streams := []StreamFormat{
		{ID: "storyboard", Ext: "mhtml", VideoCodec: "none"},
		{ID: "nodims", Ext: "mp4", VideoCodec: "avc1"},
	}
	if options := SelectRepresentatives(streams); len(options) != 0 {
		t.Fatalf("expected no options, got %+v", options)
	}
}

func TestMaxHeight(t *testing.T) {
	streams := []StreamFormat{
		{Height: 480},
		{Height: 1080},
		{Height: 720},
	}
	if got := MaxHeight(streams); got != 1080 {
		t.Fatalf("MaxHeight = %d", got)
	}
	if got := MaxHeight(nil); got != 0 {
		t.Fatalf("MaxHeight(nil) = %d", got)
	}
}

func TestDefaultFormatSpec(t *testing.T) {
	youtube := DefaultFormatSpec("https://www.youtube.com/watch?v=abc")
	if youtube == "best" {
		t.Fatal("youtube hosts should get the compatibility chain")
	}
	short := DefaultFormatSpec("https://youtu.be/abc")
	if short != youtube {
		t.Fatal("short youtube urls should match the long form")
	}
	if got := DefaultFormatSpec("https://vimeo.com/123"); got != "best" {
		t.Fatalf("generic hosts should get best, got %q", got)
	}
}

func TestChainFromNames(t *testing.T) {
	chain := ChainFromNames(nil)
	if len(chain) != 2 || chain[0].Name != "android_creator" || chain[1].Name != "android" {
		t.Fatalf("default chain mismatch: %+v", chain)
	}

	chain = ChainFromNames([]string{" Android ", "custom_client", ""})
	if len(chain) != 2 {
		t.Fatalf("expected 2 variants, got %d", len(chain))
	}
	if chain[0].Name != "android" || chain[0].UserAgent == "" {
		t.Fatalf("builtin variant not resolved: %+v", chain[0])
	}
	if chain[1].PlayerClient != "custom_client" {
		t.Fatalf("unknown name should pass through as player client: %+v", chain[1])
	}
}
