// Package episode models inbound podcast episode events and derives the
// canonical identity (date key plus slug) that names every downstream artifact:
// the summary file, the branch, and the ledger key.
//
// Identity derivation is deterministic. Two events with the same title and
// publication date resolve to the same canonical ID, which is how duplicate
// announcements of one episode collapse into a single summary.
package episode
