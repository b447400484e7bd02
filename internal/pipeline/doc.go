// Package pipeline drives one episode from an inbound event to a recorded pull
// request.
//
// A run moves through start, resolved, reserved, built, published, and done.
// It ends early as aborted when the ledger shows the episode is already
// handled, as failed_retryable when retryable publish failures exhaust their
// budget, or as failed on a fatal error. Only the pipeline mutates ledger
// status or decides retries; the publisher and ledger report classified
// errors and leave policy here.
//
// Transcript and analysis sources are optional. Their failures are logged and
// degrade the artifact but never fail a run.
package pipeline
