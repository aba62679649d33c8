package driven

import "github.com/jamesbondev/pr-stats/internal/domain/model"

// PRCache persists enriched pull requests between runs. The cache is
// advisory: Load degrades to an empty result on any corruption or version
// drift and never blocks a run.
type PRCache interface {
	Load(organization, project string) (map[int]model.PullRequest, error)
	Save(organization, project string, pullRequests map[int]model.PullRequest) error
	Delete(organization, project string) error
}
