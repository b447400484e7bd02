// Package app assembles the pipeline and its collaborators from configuration.
//
// It is the only place that chooses concrete implementations: the GitHub or
// in-memory remote, the ledger backend, the transcript chain, the analysis
// client, and notifications. Commands build an App, use it, and Close it.
package app
