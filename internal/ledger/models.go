package ledger

import "time"

// Status is the lifecycle state of a ledger entry.
type Status string

const (
	StatusPending   Status = "pending"
	StatusPublished Status = "published"
	StatusFailed    Status = "failed"
)

// PullRequestRef identifies the pull request that published an entry.
type PullRequestRef struct {
	Number int    `json:"number"`
	URL    string `json:"url"`
}

// Entry is the persisted processing record for one canonical ID.
type Entry struct {
	CanonicalID string          `json:"canonical_id"`
	Status      Status          `json:"status"`
	Branch      string          `json:"branch"`
	PullRequest *PullRequestRef `json:"pull_request,omitempty"`
	RunID       string          `json:"run_id,omitempty"`
	Reason      string          `json:"reason,omitempty"`
	Attempts    int             `json:"attempts"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Publication is the confirmed outcome recorded by Commit.
type Publication struct {
	Branch      string
	PullRequest PullRequestRef
}

// Reservation is the token a run holds between Reserve and Commit or Fail.
type Reservation struct {
	CanonicalID string
	Branch      string
	RunID       string
	// Reclaimed is true when the reservation took over a failed or stale pending entry.
	Reclaimed bool

	entry   Entry
	version string
}

// Entry returns the entry as recorded when the reservation was taken.
func (r *Reservation) Entry() Entry {
	return r.entry
}
