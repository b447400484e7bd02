// Package remote abstracts the version-controlled repository that summaries
// and ledger entries are written to.
//
// Every mutating call is conditional: branch creation fails when the branch
// exists and file writes carry the version they expect to replace. A rejected
// write is reported as ErrConflict or ErrAlreadyExists so callers re-read state
// instead of overwriting another run's work.
package remote

import (
	"context"
	"errors"
)

var (
	// ErrNotFound reports a missing branch, file, or pull request.
	ErrNotFound = errors.New("remote: not found")
	// ErrAlreadyExists reports a branch or pull request that another run created first.
	ErrAlreadyExists = errors.New("remote: already exists")
	// ErrConflict reports a file write whose expected version did not match.
	ErrConflict = errors.New("remote: version conflict")
)

// PullRequest states.
const (
	StateOpen   = "open"
	StateClosed = "closed"
	StateMerged = "merged"
)

// PullRequest is a reference to a proposed change.
type PullRequest struct {
	Number int    `json:"number"`
	URL    string `json:"url"`
	State  string `json:"state"`
	Head   string `json:"head"`
	Base   string `json:"base"`
	Title  string `json:"title"`
}

// File is the content of a path on a branch together with its version token.
type File struct {
	Path    string
	Content []byte
	Version string
}

// Signature names the commit author.
type Signature struct {
	Name  string
	Email string
}

// FileWrite describes a conditional single-file commit. An empty
// ExpectedVersion means the path must not exist yet.
type FileWrite struct {
	Branch          string
	Path            string
	Content         []byte
	Message         string
	ExpectedVersion string
	Author          Signature
}

// NewPullRequest describes a pull request to open.
type NewPullRequest struct {
	Head  string
	Base  string
	Title string
	Body  string
}

// Remote is the repository surface the publisher and the remote ledger need.
type Remote interface {
	// DefaultBranch returns the branch pull requests target.
	DefaultBranch(ctx context.Context) (string, error)
	// BranchHead returns the commit the branch points at, or ErrNotFound.
	BranchHead(ctx context.Context, branch string) (string, error)
	// CreateBranch points a new branch at commit. Returns ErrAlreadyExists when taken.
	CreateBranch(ctx context.Context, branch, commit string) error
	// ReadFile returns ErrNotFound when the branch or path is missing.
	ReadFile(ctx context.Context, branch, path string) (File, error)
	// WriteFile commits one file conditionally and returns the new version.
	WriteFile(ctx context.Context, write FileWrite) (File, error)
	// ListFiles returns the file paths directly under dir, sorted.
	ListFiles(ctx context.Context, branch, dir string) ([]string, error)
	// FindPullRequest returns the most recent pull request from head in any state, or ErrNotFound.
	FindPullRequest(ctx context.Context, head string) (PullRequest, error)
	// CreatePullRequest returns ErrAlreadyExists when one is already open for head.
	CreatePullRequest(ctx context.Context, pr NewPullRequest) (PullRequest, error)
}
