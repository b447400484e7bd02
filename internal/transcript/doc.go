// Package transcript locates episode transcripts. Every source is optional:
// a missing transcript degrades the summary but never fails a run.
//
// Sources:
//   - PageSource follows a transcript link (PDF, TXT, HTML) found on the
//     episode page.
//   - AudioSource downloads the enclosure and runs it through whisper.
//
// Chain tries sources in order and returns the first non-empty transcript.
package transcript
