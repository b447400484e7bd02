// Package preflight provides readiness checks for the repository, ledger,
// filesystem paths, and optional collaborators podsum depends on.
//
// The "podsum check" command runs RunAll and prints one row per check.
// Optional collaborators (feed, whisper, LLM) are only checked when the
// configuration turns them on.
package preflight
