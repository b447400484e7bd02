// Package feed polls an RSS or Atom feed for new episodes.
//
// A small JSON cursor file remembers the newest processed item so repeated
// polls only hand new episodes to the pipeline. The cursor is a convenience;
// the processing ledger stays authoritative, so a lost cursor only costs
// redundant, idempotent runs. The cursor file is guarded by an advisory file
// lock so two pollers on one host never interleave updates.
package feed
