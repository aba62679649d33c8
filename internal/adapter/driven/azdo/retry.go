package azdo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const maxRetries = 3

// retryBaseDelay is the initial backoff interval. Package-level so tests can
// shrink it.
var retryBaseDelay = 2 * time.Second

// apiError is a non-2xx response from the Azure DevOps REST API.
type apiError struct {
	StatusCode int
	URL        string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("azure devops api: HTTP %d for %s", e.StatusCode, e.URL)
}

// executeWithRetry runs op, retrying transient failures up to maxRetries
// additional attempts with exponential backoff and jitter. Any other failure
// class, or exhaustion, propagates to the caller.
func executeWithRetry(ctx context.Context, op func() error) error {
	// BackOff implementations are stateful; always build a fresh instance.
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = retryBaseDelay
	bo.Multiplier = 2
	bo.MaxElapsedTime = 0 // bounded by the retry count, not wall time

	return backoff.Retry(func() error {
		err := op()
		if err == nil {
			return nil
		}
		if isTransient(err) {
			slog.Debug("transient api failure, retrying", "error", err)
			return err
		}
		return backoff.Permanent(err)
	}, backoff.WithContext(backoff.WithMaxRetries(bo, maxRetries), ctx))
}

// isTransient reports whether the error is worth retrying: rate limiting,
// server-side errors, and transport-level timeouts or connection failures.
func isTransient(err error) bool {
	var apiErr *apiError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= 500
	}

	// http.Client wraps every transport failure in *url.Error.
	var urlErr *url.Error
	return errors.As(err, &urlErr)
}
