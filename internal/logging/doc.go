// Package logging wires log/slog into the console and JSON formats spool
// emits, and carries the standardized field keys shared by every component.
package logging
