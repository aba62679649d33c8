package application

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/jamesbondev/pr-stats/internal/domain/model"
	"github.com/jamesbondev/pr-stats/internal/domain/port/driven"
)

// BuildService fetches CI build runs for pull requests with bounded
// concurrency.
type BuildService struct {
	client      driven.BuildClient
	concurrency int
	progress    ProgressFunc
}

// NewBuildService creates a BuildService. progress may be nil.
func NewBuildService(client driven.BuildClient, concurrency int, progress ProgressFunc) *BuildService {
	if concurrency <= 0 {
		concurrency = 5
	}
	return &BuildService{client: client, concurrency: concurrency, progress: progress}
}

// FetchAll retrieves builds for every pull request, keyed by pull request id.
// Pull requests without builds get no entry.
func (s *BuildService) FetchAll(ctx context.Context, prs []model.PullRequest) (map[int][]model.BuildRun, error) {
	var (
		mu      sync.Mutex
		results = make(map[int][]model.BuildRun, len(prs))
		done    int
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for _, pr := range prs {
		g.Go(func() error {
			builds, err := s.client.FetchBuildsForPullRequest(ctx, pr.ID)
			if err != nil {
				return fmt.Errorf("fetching builds for PR %d: %w", pr.ID, err)
			}

			mu.Lock()
			if len(builds) > 0 {
				results[pr.ID] = builds
			}
			done++
			n := done
			mu.Unlock()

			if s.progress != nil {
				s.progress(ProgressEvent{Stage: "fetching builds", Done: n, Total: len(prs)})
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return results, nil
}
