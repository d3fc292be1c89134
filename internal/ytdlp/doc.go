// Package ytdlp wraps the external yt-dlp binary behind a small client
// interface. A probe returns the stream variants available for a URL, a
// download retrieves one and streams progress samples back to the caller.
// Named client variants carry the negotiation identity (player client and
// user agent) used for both calls.
package ytdlp
