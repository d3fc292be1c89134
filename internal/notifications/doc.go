// Package notifications distributes progress events to in-process consumers
// and pushes terminal download outcomes to an ntfy topic when one is
// configured.
package notifications
