// Package textutil provides text processing helpers shared by the identity
// resolver and the artifact builder.
//
// The primary use cases are:
//   - Deriving ASCII slugs from episode titles (Unicode folded via x/text)
//   - Collapsing whitespace and bounding bullet length
//   - Splitting transcript text into sentences for extractive summaries
package textutil
