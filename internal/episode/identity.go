package episode

import "path"

const (
	DefaultSummariesDir = "summaries"
	DefaultBranchPrefix = "ai/podcast-"
)

// Identity is derived from an Episode and never stored on it.
type Identity struct {
	DateKey     string `json:"date_key"`
	Slug        string `json:"slug"`
	CanonicalID string `json:"canonical_id"`
}

// ArtifactPath returns summaries/<canonical id>.md.
func (id Identity) ArtifactPath() string {
	return DefaultLayout().ArtifactPath(id)
}

// BranchName returns ai/podcast-<canonical id>.
func (id Identity) BranchName() string {
	return DefaultLayout().BranchName(id)
}

// Layout controls where summaries live in the repository and how their
// branches are named. Both values must stay stable across runs because the
// publisher's idempotence checks look artifacts and branches up by name.
type Layout struct {
	SummariesDir string
	BranchPrefix string
}

// DefaultLayout returns the summaries/ directory and ai/podcast- prefix.
func DefaultLayout() Layout {
	return Layout{SummariesDir: DefaultSummariesDir, BranchPrefix: DefaultBranchPrefix}
}

func (l Layout) ArtifactPath(id Identity) string {
	dir := l.SummariesDir
	if dir == "" {
		dir = DefaultSummariesDir
	}
	return path.Join(dir, id.CanonicalID+".md")
}

func (l Layout) BranchName(id Identity) string {
	prefix := l.BranchPrefix
	if prefix == "" {
		prefix = DefaultBranchPrefix
	}
	return prefix + id.CanonicalID
}
