// Package logs tails the daemon's log file for the `spool logs` command.
//
// A Request with a negative cursor asks for the last N complete lines;
// subsequent requests pass the returned cursor back to read forward from
// where the previous page stopped. A positive wait makes Tail poll for new
// lines, which backs `spool logs --follow`. Callers supply context
// deadlines so polling shuts down cleanly when the CLI exits.
package logs
