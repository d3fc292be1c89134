// Package queue defines the retrieval job model, its lifecycle state
// machine, and the SQLite-backed store the orchestrator persists through.
//
// The store is the durable source of truth: the in-memory registry is
// rebuilt from it on startup and resynchronized by reconciliation passes.
package queue
