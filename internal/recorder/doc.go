// Package recorder maintains the connection to the remote recording device
// and exposes the small control surface the orchestrator needs: synchronous
// state queries and an asynchronous, idempotent state-transition command.
//
// The device speaks an OBS-WebSocket-style JSON protocol: a Hello/Identify
// handshake with optional challenge authentication, request/response pairs
// correlated by request id, and unsolicited record-state events that keep the
// cached state current.
package recorder
