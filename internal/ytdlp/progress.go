package ytdlp

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	ansiPattern        = regexp.MustCompile(`\x1b(?:[@-Z\\-_]|\[[0-?]*[ -/]*[@-~])`)
	percentPattern     = regexp.MustCompile(`(\d+(?:\.\d+)?)%`)
	speedPattern       = regexp.MustCompile(`at\s+([0-9.]+[KMGT]?iB/s)`)
	etaPattern         = regexp.MustCompile(`ETA\s+([\d:]+)`)
	destinationPattern = regexp.MustCompile(`^\[download\] Destination: (.+)$`)
	mergerPattern      = regexp.MustCompile(`^\[Merger\] Merging formats into "(.+)"$`)
	movePattern        = regexp.MustCompile(`^\[MoveFiles\] Moving file ".+" to "(.+)"$`)
)

// StripANSI removes terminal escape sequences the tool embeds in progress
// output when it believes it is writing to a TTY.
func StripANSI(text string) string {
	return ansiPattern.ReplaceAllString(text, "")
}

// parseProgressLine scrapes one "[download]" status line into a sample.
// Returns false for lines that carry no progress information.
func parseProgressLine(line string) (ProgressSample, bool) {
	line = StripANSI(strings.TrimSpace(line))
	if !strings.HasPrefix(line, "[download]") {
		return ProgressSample{}, false
	}

	var sample ProgressSample
	matched := false
	if m := percentPattern.FindStringSubmatch(line); m != nil {
		if value, err := strconv.ParseFloat(m[1], 64); err == nil {
			sample.HasPercent = true
			sample.Percent = value
			matched = true
		}
	}
	if m := speedPattern.FindStringSubmatch(line); m != nil {
		sample.SpeedText = m[1]
		matched = true
	}
	if m := etaPattern.FindStringSubmatch(line); m != nil {
		sample.ETAText = m[1]
		matched = true
	}
	if !matched {
		return ProgressSample{}, false
	}
	if sample.HasPercent && sample.Percent >= 100 {
		sample.Finished = true
	}
	return sample, true
}

// parseOutputPath recognizes the lines that reveal where the tool is writing.
// A merge or move line supersedes earlier destination lines: intermediate
// video-only and audio-only tracks each print their own destination before
// being combined.
func parseOutputPath(line string) (path string, final bool) {
	line = StripANSI(strings.TrimSpace(line))
	if m := mergerPattern.FindStringSubmatch(line); m != nil {
		return m[1], true
	}
	if m := movePattern.FindStringSubmatch(line); m != nil {
		return m[1], true
	}
	if m := destinationPattern.FindStringSubmatch(line); m != nil {
		return m[1], false
	}
	return "", false
}
