package ledger

import "errors"

var (
	// ErrNotFound reports a canonical ID with no entry.
	ErrNotFound = errors.New("ledger entry not found")
	// ErrAlreadyExists reports an entry already published or held by another run.
	ErrAlreadyExists = errors.New("ledger entry already exists")
	// ErrVersionMismatch is returned by a Store when a compare-and-swap loses.
	ErrVersionMismatch = errors.New("ledger version mismatch")
	// ErrReservationLost reports that another run replaced this run's pending entry.
	ErrReservationLost = errors.New("ledger reservation lost")

	// errContended reports a rejected write whose re-read found no entry
	// blocking the caller.
	errContended = errors.New("ledger write contended")
)
