// Package whisper runs the openai-whisper CLI against a downloaded audio file
// and returns the plain-text transcript.
//
// The binary is optional: Available reports services.ErrUnavailable when it is
// not on PATH, and callers treat that as "no transcript" rather than a failure.
package whisper
