// Package services defines shared utilities consumed by the pipeline and its
// external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, stage names, and canonical episode
//     IDs for logging.
//   - Structured error markers plus the Wrap helper that let the orchestrator
//     decide between retrying, aborting cleanly, and failing loudly.
//
// Integrations (GitHub, the LLM analysis client, whisper) live in
// subpackages and report failures through these markers so retry policy stays
// in one place.
package services
