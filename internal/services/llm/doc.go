// Package llm provides an OpenRouter chat client that turns an episode
// transcript into a structured summary.
//
// # Analysis
//
// Client.Analyze sends the episode metadata and a bounded transcript excerpt
// with a prompt requesting JSON of the shape
// {shortSummary, detailedSummary, keyTakeaways, actionItems}. Bullet limits and
// formatting are enforced later by the artifact builder, not here.
//
// # Configuration
//
// Requires api_key, model, and optionally base_url, referer, title, timeout.
// When the client is disabled the pipeline simply skips analysis and the
// artifact falls back to transcript excerpts or metadata.
//
// # Retry Behaviour
//
// The client retries on HTTP 408/429/5xx errors, empty completions, and
// network timeouts with exponential backoff (base 1s, max 10s, up to 5
// attempts by default). Retry-After is honoured. Context cancellation aborts
// retries immediately.
package llm
