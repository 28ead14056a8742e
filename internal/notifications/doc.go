// Package notifications sends one-shot ntfy push messages about session
// lifecycle and failures. When no topic is configured a noop service is
// returned so callers never branch on configuration.
package notifications
