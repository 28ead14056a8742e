// Package queuefile materializes playback queues into the JSON descriptor
// format the playback engine consumes, and exports the process-wide pending
// queue for later reuse. Materialized descriptors live in uniquely named
// temporary files; the engine owns their lifecycle after hand-off.
package queuefile
