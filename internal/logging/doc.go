// Package logging provides slog-based structured logging helpers shared by
// the daemon and CLI. It standardizes field names, offers console and JSON
// handlers, and exposes small constructors so components receive loggers by
// reference instead of reaching for a global.
package logging
