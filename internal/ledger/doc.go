// Package ledger records which canonical episode IDs have been processed.
//
// Entries move pending -> published on a confirmed pull request and
// pending -> failed on an unrecoverable publish error. Failed entries may be
// reserved again by a later run; published entries never are. Entries are
// never deleted.
//
// Every transition is a compare-and-swap against a Store, so two independent
// runs racing to reserve the same episode cannot both win. Stores include the
// repository itself (one JSON file per entry on a dedicated branch) and SQL
// databases (SQLite or Postgres).
package ledger
