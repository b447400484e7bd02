// Package config loads, normalizes, and validates podsum configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// GITHUB_TOKEN and RSS_URL. The Config type centralizes every knob the CLI,
// the webhook listener, and the pipeline need, so the remote repository,
// ledger backend, and external service credentials are discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
