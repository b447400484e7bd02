package artifact

// Analysis is the structured summary produced by an external generation step.
// Any list may be empty.
type Analysis struct {
	ShortSummary    []string `json:"shortSummary"`
	DetailedSummary []string `json:"detailedSummary"`
	KeyTakeaways    []string `json:"keyTakeaways"`
	ActionItems     []string `json:"actionItems"`
}

// Empty reports whether the analysis carries no bullets at all.
func (a *Analysis) Empty() bool {
	if a == nil {
		return true
	}
	return len(a.ShortSummary) == 0 && len(a.DetailedSummary) == 0 && len(a.KeyTakeaways) == 0 && len(a.ActionItems) == 0
}

// ContentSource records which input populated the summary sections.
type ContentSource string

const (
	SourceAnalysis   ContentSource = "analysis"
	SourceTranscript ContentSource = "transcript"
	SourceMetadata   ContentSource = "metadata"
)

// Artifact is an immutable rendered summary. Callers must not modify Content.
type Artifact struct {
	Path       string
	Content    []byte
	Title      string
	Published  string
	EpisodeURL string
	// ShortSummary holds the rendered short-summary bullets, reused in the pull request body.
	ShortSummary []string
	// Degraded is true when no transcript was available.
	Degraded bool
	Source   ContentSource
}

// FileName returns the base name of the artifact path.
func (a Artifact) FileName() string {
	for i := len(a.Path) - 1; i >= 0; i-- {
		if a.Path[i] == '/' {
			return a.Path[i+1:]
		}
	}
	return a.Path
}
