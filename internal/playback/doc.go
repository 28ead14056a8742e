// Package playback launches the external playback engine and demultiplexes
// its stdout log into an ordered stream of lifecycle events. The orchestrator
// consumes the stream; it never touches the process directly beyond LoadQueue
// and Kill.
package playback
