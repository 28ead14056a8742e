// Command replayrig is the CLI companion to replayrigd. It talks to the
// daemon over its Unix socket to load playback queues, manage the pending
// queue, and inspect daemon state.
package main
