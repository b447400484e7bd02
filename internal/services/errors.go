package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidInput rejects a malformed episode payload. No retry, no ledger mutation.
	ErrInvalidInput = errors.New("invalid input")
	// ErrAlreadyProcessed reports an episode the ledger already records as published.
	ErrAlreadyProcessed = errors.New("already processed")
	// ErrConflict reports a rejected write caused by a concurrent run.
	ErrConflict = errors.New("publish conflict")
	// ErrNetwork reports a transient transport failure or timeout.
	ErrNetwork = errors.New("network error")
	// ErrAuthentication reports rejected credentials.
	ErrAuthentication = errors.New("authentication error")
	// ErrRemoteState reports a remote repository in an unusable state, such as a missing default branch.
	ErrRemoteState = errors.New("remote state error")

	ErrConfiguration = errors.New("configuration error")
	ErrExternalTool  = errors.New("external tool error")
	// ErrUnavailable marks an optional collaborator that is not installed or not configured.
	ErrUnavailable = errors.New("capability unavailable")
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrNetwork
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Retryable reports whether the orchestrator may retry the failed operation.
// Context deadlines count as network failures; cancellation does not.
func Retryable(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, ErrAuthentication), errors.Is(err, ErrRemoteState), errors.Is(err, ErrInvalidInput):
		return false
	case errors.Is(err, ErrNetwork), errors.Is(err, ErrConflict):
		return true
	case errors.Is(err, context.DeadlineExceeded):
		return true
	default:
		return false
	}
}

// Kind returns a short stable label for the error's marker, used in logs,
// ledger reasons, and notifications.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrAlreadyProcessed):
		return "already_processed"
	case errors.Is(err, ErrAuthentication):
		return "authentication"
	case errors.Is(err, ErrRemoteState):
		return "remote_state"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrNetwork), errors.Is(err, context.DeadlineExceeded):
		return "network"
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	case errors.Is(err, ErrExternalTool):
		return "external_tool"
	case errors.Is(err, ErrUnavailable):
		return "unavailable"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "unknown"
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
