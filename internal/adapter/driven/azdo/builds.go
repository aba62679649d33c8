package azdo

import (
	"context"
	"fmt"
	"net/url"

	"github.com/jamesbondev/pr-stats/internal/domain/model"
)

// FetchBuildsForPullRequest retrieves the build runs queued against the pull
// request's merge ref. Pull requests without builds return an empty slice.
func (c *Client) FetchBuildsForPullRequest(ctx context.Context, pullRequestID int) ([]model.BuildRun, error) {
	branch := fmt.Sprintf("refs/pull/%d/merge", pullRequestID)

	q := url.Values{}
	q.Set("api-version", apiVersion)
	q.Set("branchName", branch)

	u := fmt.Sprintf("%s/%s/_apis/build/builds?%s", c.baseURL, url.PathEscape(c.project), q.Encode())

	var resp listResponse[wireBuild]
	if err := c.getJSON(ctx, u, &resp); err != nil {
		return nil, fmt.Errorf("listing builds for PR %d: %w", pullRequestID, err)
	}

	builds := make([]model.BuildRun, 0, len(resp.Value))
	for _, b := range resp.Value {
		builds = append(builds, mapBuild(b))
	}

	return builds, nil
}
