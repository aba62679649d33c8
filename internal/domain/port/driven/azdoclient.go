// Package driven defines the outbound ports the application layer depends on.
package driven

import (
	"context"
	"time"

	"github.com/jamesbondev/pr-stats/internal/domain/model"
)

// AzureDevOpsClient fetches pull request records and per-record detail.
type AzureDevOpsClient interface {
	// FetchPullRequestsByStatus retrieves all pull requests in the given
	// status, paging until exhausted. When minClosedTime is non-nil the query
	// is restricted to pull requests closed at or after that instant.
	FetchPullRequestsByStatus(ctx context.Context, status model.PRStatus, minClosedTime *time.Time) ([]model.PullRequest, error)

	// FetchThreads retrieves the comment threads of one pull request.
	FetchThreads(ctx context.Context, repositoryID string, pullRequestID int) ([]model.Thread, error)

	// FetchIterations retrieves the iterations of one pull request together
	// with the raw (possibly duplicated) commit ids nested in them.
	FetchIterations(ctx context.Context, repositoryID string, pullRequestID int) ([]model.Iteration, []string, error)

	// FetchIterationChangeCount returns the number of files changed in the
	// given iteration diffed against the merge base.
	FetchIterationChangeCount(ctx context.Context, repositoryID string, pullRequestID, iterationID int) (int, error)
}
