// Package downloader orchestrates retrieval jobs: it owns the in-memory
// registry, admits queued jobs through a bounded permit pool, drives the
// client fallback chain with its quality gate, normalizes progress samples,
// and reconciles the registry against the durable store.
package downloader
