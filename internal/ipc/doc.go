// Package ipc exposes the download manager over JSON-RPC Unix sockets and
// ships the matching client used by the CLI.
//
// It owns socket lifecycle management, request/response DTOs, and conversions
// between queue models and lightweight wire representations. The server embeds
// the manager while the client dials with a short timeout so CLI commands fail
// fast when the daemon is offline.
package ipc
