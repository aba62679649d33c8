package driven

import (
	"context"

	"github.com/jamesbondev/pr-stats/internal/domain/model"
)

// BuildClient fetches CI build runs associated with pull requests.
type BuildClient interface {
	// FetchBuildsForPullRequest returns the build runs queued against the
	// pull request's merge ref, possibly none.
	FetchBuildsForPullRequest(ctx context.Context, pullRequestID int) ([]model.BuildRun, error)
}
