// Package config loads and validates the replayrig TOML configuration.
// Loading expands ~ in path fields, applies defaults for anything the file
// omits, and rejects configurations the daemon cannot run with.
package config
