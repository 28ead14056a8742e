// Package queue persists the pending replay queue across daemon restarts.
//
// The pending queue is a staging area: replays collected here are not playing
// yet. Loading them into a session or exporting them to a descriptor file
// consumes the list in position order.
package queue
