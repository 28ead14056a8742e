// Package daemon ties the pieces of replayrigd together: the pending queue
// store, the recorder client, and the playback orchestrator. It enforces
// single-instance execution with a file lock and exposes the operations the
// IPC surface calls into.
package daemon
