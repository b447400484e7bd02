// Package publisher proposes a summary artifact to the repository: one branch,
// one commit, one pull request per canonical episode ID.
//
// Publishing is idempotent. An existing pull request for the episode branch,
// in any state, is returned as success. A branch left behind by a partially
// failed run is completed rather than recreated. Writes rejected because a
// concurrent run got there first are re-checked before being reported as
// conflicts.
package publisher
