package ytdlp

import (
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
)

// resolutionBucket maps the longer edge of a stream to a display bucket.
// Boundaries follow the common 16:9 ladder so portrait and anamorphic
// streams land in the bucket a viewer would expect.
func resolutionBucket(width, height int) string {
	longEdge := width
	if height > longEdge {
		longEdge = height
	}
	switch {
	case longEdge >= 3840:
		return "2160p"
	case longEdge >= 2560:
		return "1440p"
	case longEdge >= 1920:
		return "1080p"
	case longEdge >= 1280:
		return "720p"
	case longEdge >= 854:
		return "480p"
	case longEdge >= 640:
		return "360p"
	case longEdge >= 426:
		return "240p"
	default:
		return "144p"
	}
}

func bucketRank(bucket string) int {
	switch bucket {
	case "2160p":
		return 8
	case "1440p":
		return 7
	case "1080p":
		return 6
	case "720p":
		return 5
	case "480p":
		return 4
	case "360p":
		return 3
	case "240p":
		return 2
	default:
		return 1
	}
}

// preferStream reports whether a should be chosen over b within one bucket.
// Tie-break order: broadly compatible codec family first, then mp4
// container, then an embedded audio track, then larger size.
func preferStream(a, b StreamFormat) bool {
	aCodec := strings.HasPrefix(a.VideoCodec, "avc")
	bCodec := strings.HasPrefix(b.VideoCodec, "avc")
	if aCodec != bCodec {
		return aCodec
	}
	aMP4 := a.Ext == "mp4"
	bMP4 := b.Ext == "mp4"
	if aMP4 != bMP4 {
		return aMP4
	}
	if a.HasAudio != b.HasAudio {
		return a.HasAudio
	}
	return a.SizeBytes > b.SizeBytes
}

// SelectRepresentatives groups streams into resolution buckets and keeps the
// single best representative per bucket, highest resolution first. A
// representative without an embedded audio track is upgraded to a merged
// video-plus-best-audio selection because audio-less tracks are unusable on
// their own.
func SelectRepresentatives(streams []StreamFormat) []FormatOption {
	best := make(map[string]StreamFormat)
	for _, stream := range streams {
		if stream.VideoCodec == "" || stream.VideoCodec == "none" {
			continue
		}
		if stream.Height <= 0 || stream.Width <= 0 {
			continue
		}
		bucket := resolutionBucket(stream.Width, stream.Height)
		current, ok := best[bucket]
		if !ok || preferStream(stream, current) {
			best[bucket] = stream
		}
	}

	options := make([]FormatOption, 0, len(best))
	for bucket, stream := range best {
		spec := stream.ID
		if !stream.HasAudio {
			spec = stream.ID + "+bestaudio/best"
		}
		size := "Unknown"
		if stream.SizeBytes > 0 {
			size = humanize.IBytes(uint64(stream.SizeBytes))
		}
		options = append(options, FormatOption{
			Spec:       spec,
			Ext:        stream.Ext,
			Resolution: bucket,
			Size:       size,
			Note:       stream.Note,
		})
	}
	sort.Slice(options, func(i, j int) bool {
		return bucketRank(options[i].Resolution) > bucketRank(options[j].Resolution)
	})
	return options
}

// MaxHeight returns the largest vertical resolution among the streams, the
// figure the quality gate compares against its floor.
func MaxHeight(streams []StreamFormat) int {
	max := 0
	for _, stream := range streams {
		if stream.Height > max {
			max = stream.Height
		}
	}
	return max
}

// DefaultFormatSpec picks the selector used when a job names no format.
// YouTube hosts get a chain preferring a broadly compatible single file and
// falling back to merged best-video-plus-best-audio; other hosts take the
// extractor's own best.
func DefaultFormatSpec(url string) string {
	if strings.Contains(url, "youtube.com") || strings.Contains(url, "youtu.be") {
		return "bestvideo[vcodec^=avc1]+bestaudio[ext=m4a]/bestvideo[ext=mp4]+bestaudio[ext=m4a]/best[ext=mp4]/best"
	}
	return "best"
}
