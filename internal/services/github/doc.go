// Package github implements the repository remote on top of the GitHub REST
// API via go-github.
//
// File versions are blob SHAs and branch heads are commit SHAs. HTTP failures
// are mapped onto the remote sentinel errors (not found, already exists,
// conflict) and the services markers (authentication, network, remote state)
// so the publisher can tell retryable failures from fatal ones.
package github
