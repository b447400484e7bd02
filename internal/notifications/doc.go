// Package notifications delivers pipeline events to ntfy.
//
// NewService returns a no-op implementation when no topic is configured, so
// the pipeline can notify unconditionally. Per-event toggles in the
// [notifications] config section silence published or failure messages.
package notifications
