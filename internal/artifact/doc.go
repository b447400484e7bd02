// Package artifact renders the markdown summary document for an episode.
//
// Output is a pure function of the episode metadata, the optional transcript,
// and the optional structured analysis: no clocks, no map iteration, and a
// single trailing newline. When no transcript is available the document still
// renders, with placeholder bullets and a visible note.
package artifact
