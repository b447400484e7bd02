package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	gogithub "github.com/google/go-github/v68/github"

	"podsum/internal/logging"
	"podsum/internal/remote"
	"podsum/internal/services"
)

// classify maps a go-github error. rejected is the remote sentinel reported
// for 409/422 responses; when nil those are treated as unexpected remote state.
func (c *Client) classify(ctx context.Context, operation string, err error, rejected error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%s: %w", operation, ctxErr)
	}

	var rateErr *gogithub.RateLimitError
	var abuseErr *gogithub.AbuseRateLimitError
	if errors.As(err, &rateErr) || errors.As(err, &abuseErr) {
		return services.Wrap(services.ErrNetwork, stageName, operation, "rate limited", err)
	}

	var resp *gogithub.ErrorResponse
	if !errors.As(err, &resp) {
		logging.WithContext(ctx, c.logger).Debug("github transport failure",
			logging.String("operation", operation),
			logging.Error(err),
		)
		return services.Wrap(services.ErrNetwork, stageName, operation, "request failed", err)
	}

	status := statusCode(resp.Response)
	switch {
	case status == http.StatusNotFound:
		return fmt.Errorf("%s: %w", operation, errors.Join(remote.ErrNotFound, err))
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return services.Wrap(services.ErrAuthentication, stageName, operation, fmt.Sprintf("http %d", status), err)
	case status == http.StatusConflict || status == http.StatusUnprocessableEntity:
		if rejected != nil {
			return fmt.Errorf("%s: %w", operation, errors.Join(rejected, err))
		}
		return services.Wrap(services.ErrRemoteState, stageName, operation, fmt.Sprintf("http %d", status), err)
	case status == http.StatusTooManyRequests || status >= http.StatusInternalServerError:
		return services.Wrap(services.ErrNetwork, stageName, operation, fmt.Sprintf("http %d", status), err)
	default:
		return services.Wrap(services.ErrRemoteState, stageName, operation, fmt.Sprintf("http %d", status), err)
	}
}

func statusCode(resp *http.Response) int {
	if resp == nil {
		return 0
	}
	return resp.StatusCode
}
