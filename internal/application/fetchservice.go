package application

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jamesbondev/pr-stats/internal/domain/model"
	"github.com/jamesbondev/pr-stats/internal/domain/port/driven"
)

// ProgressEvent reports pipeline progress for presentation layers. Stage is a
// short human-readable label.
type ProgressEvent struct {
	Stage string
	Done  int
	Total int
}

// ProgressFunc receives progress events. May be nil.
type ProgressFunc func(ProgressEvent)

// FetchOptions configures a fetch run.
type FetchOptions struct {
	Organization string
	Project      string

	// Days is the lookback window for closed pull requests. Active pull
	// requests are always fetched regardless of window.
	Days int

	// Repositories narrows results to the named repositories (case-insensitive).
	// Empty means all.
	Repositories []string

	// Authors and AuthorIDs narrow results by author display name (case-
	// insensitive) or identity id. Empty means all.
	Authors   []string
	AuthorIDs []string

	// MaxPRs caps the candidate set after filtering, keeping the first N in
	// fetch order. Zero means no cap.
	MaxPRs int

	// NoCache bypasses cache reads; the cache is still written afterwards.
	NoCache bool

	// Concurrency bounds simultaneously enriched pull requests.
	Concurrency int
}

// FetchService runs the fetch and enrichment pipeline: list pull requests in
// three status passes, partition against the cache, enrich misses with bounded
// concurrency, stamp bot classification, and write the cache back.
type FetchService struct {
	client   driven.AzureDevOpsClient
	cache    driven.PRCache
	bots     *BotFilter
	opts     FetchOptions
	progress ProgressFunc
	now      func() time.Time
}

// NewFetchService creates a FetchService. progress may be nil.
func NewFetchService(client driven.AzureDevOpsClient, cache driven.PRCache, bots *BotFilter, opts FetchOptions, progress ProgressFunc) *FetchService {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 5
	}
	return &FetchService{
		client:   client,
		cache:    cache,
		bots:     bots,
		opts:     opts,
		progress: progress,
		now:      time.Now,
	}
}

// Fetch runs the pipeline and returns the fully enriched pull requests. One
// pull request's unrecovered enrichment failure fails the whole call; the
// cache write-back is skipped in that case, so a later run retries cleanly.
func (s *FetchService) Fetch(ctx context.Context) ([]model.PullRequest, error) {
	candidates, err := s.listCandidates(ctx)
	if err != nil {
		return nil, err
	}

	candidates = s.applyFilters(candidates)

	if s.opts.MaxPRs > 0 && len(candidates) > s.opts.MaxPRs {
		slog.Info("truncating candidate set", "from", len(candidates), "to", s.opts.MaxPRs)
		candidates = candidates[:s.opts.MaxPRs]
	}

	cached := map[int]model.PullRequest{}
	if !s.opts.NoCache {
		cached, err = s.cache.Load(s.opts.Organization, s.opts.Project)
		if err != nil {
			return nil, fmt.Errorf("loading cache: %w", err)
		}
	}

	// A candidate is served from cache only when terminal and present.
	// Active detail can still change, so active candidates always re-enrich.
	var hits, misses []model.PullRequest
	for _, pr := range candidates {
		if entry, ok := cached[pr.ID]; ok && pr.IsTerminal() {
			hits = append(hits, entry)
			continue
		}
		misses = append(misses, pr)
	}

	slog.Info("fetch partitioned",
		"candidates", len(candidates),
		"cache_hits", len(hits),
		"to_enrich", len(misses),
	)

	enriched, err := s.enrichAll(ctx, misses)
	if err != nil {
		return nil, err
	}

	results := append(hits, enriched...)
	sortByID(results)
	for i := range results {
		s.stampBots(&results[i])
	}

	// Overlay the run's results onto the full previous cache so entries
	// outside this run's window survive until they age out.
	for _, pr := range results {
		cached[pr.ID] = pr
	}
	if err := s.cache.Save(s.opts.Organization, s.opts.Project, cached); err != nil {
		slog.Warn("cache write-back failed, run continues", "error", err)
	}

	return results, nil
}

// listCandidates runs the three status passes: completed and abandoned within
// the lookback window, active regardless of window.
func (s *FetchService) listCandidates(ctx context.Context) ([]model.PullRequest, error) {
	minClosed := s.now().UTC().AddDate(0, 0, -s.opts.Days)

	var all []model.PullRequest
	passes := []struct {
		status model.PRStatus
		cutoff *time.Time
	}{
		{model.PRStatusCompleted, &minClosed},
		{model.PRStatusAbandoned, &minClosed},
		{model.PRStatusActive, nil},
	}

	for i, pass := range passes {
		s.emit(ProgressEvent{Stage: fmt.Sprintf("listing %s pull requests", pass.status), Done: i, Total: len(passes)})

		prs, err := s.client.FetchPullRequestsByStatus(ctx, pass.status, pass.cutoff)
		if err != nil {
			return nil, fmt.Errorf("fetching %s pull requests: %w", pass.status, err)
		}
		all = append(all, prs...)
	}

	return all, nil
}

func (s *FetchService) applyFilters(prs []model.PullRequest) []model.PullRequest {
	if len(s.opts.Repositories) > 0 {
		wanted := lowerSet(s.opts.Repositories)
		seen := map[string]struct{}{}

		filtered := prs[:0]
		for _, pr := range prs {
			name := strings.ToLower(pr.RepositoryName)
			if _, ok := wanted[name]; ok {
				seen[name] = struct{}{}
				filtered = append(filtered, pr)
			}
		}
		prs = filtered

		for name := range wanted {
			if _, ok := seen[name]; !ok {
				slog.Warn("requested repository not found in results", "repository", name)
			}
		}
	}

	if len(s.opts.Authors) > 0 || len(s.opts.AuthorIDs) > 0 {
		names := lowerSet(s.opts.Authors)
		ids := lowerSet(s.opts.AuthorIDs)

		filtered := prs[:0]
		for _, pr := range prs {
			if _, ok := names[strings.ToLower(pr.AuthorDisplayName)]; ok {
				filtered = append(filtered, pr)
				continue
			}
			if _, ok := ids[strings.ToLower(pr.AuthorID)]; ok {
				filtered = append(filtered, pr)
			}
		}
		prs = filtered
	}

	return prs
}

// enrichAll fetches per-PR detail for all misses, bounded by the configured
// concurrency. Result order is nondeterministic.
func (s *FetchService) enrichAll(ctx context.Context, prs []model.PullRequest) ([]model.PullRequest, error) {
	if len(prs) == 0 {
		return nil, nil
	}

	var (
		mu      sync.Mutex
		results = make([]model.PullRequest, 0, len(prs))
		done    int
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Concurrency)

	for _, pr := range prs {
		g.Go(func() error {
			enriched, err := s.enrichOne(ctx, pr)
			if err != nil {
				return fmt.Errorf("enriching PR %d: %w", pr.ID, err)
			}

			mu.Lock()
			results = append(results, enriched)
			done++
			n := done
			mu.Unlock()

			s.emit(ProgressEvent{Stage: "enriching pull requests", Done: n, Total: len(prs)})
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return results, nil
}

// enrichOne fans out the thread and iteration fetches, then issues the
// dependent diff fetch for the last iteration. A failed diff fetch degrades
// to zero files changed; that endpoint is unavailable for some PR states.
func (s *FetchService) enrichOne(ctx context.Context, pr model.PullRequest) (model.PullRequest, error) {
	var (
		threads    []model.Thread
		iterations []model.Iteration
		commitIDs  []string
	)

	g, subctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		threads, err = s.client.FetchThreads(subctx, pr.RepositoryID, pr.ID)
		return err
	})
	g.Go(func() error {
		var err error
		iterations, commitIDs, err = s.client.FetchIterations(subctx, pr.RepositoryID, pr.ID)
		return err
	})
	if err := g.Wait(); err != nil {
		return model.PullRequest{}, err
	}

	pr.Threads = threads
	pr.Iterations = iterations
	pr.CommitCount = countUniqueCommits(commitIDs)

	if len(iterations) > 0 {
		last := iterations[len(iterations)-1]
		files, err := s.client.FetchIterationChangeCount(ctx, pr.RepositoryID, pr.ID, last.ID)
		if err != nil {
			slog.Debug("iteration diff unavailable, defaulting file count to zero",
				"pr", pr.ID, "iteration", last.ID, "error", err)
			files = 0
		}
		pr.FilesChanged = files
	}

	return pr, nil
}

// stampBots classifies the author and every thread author against the filter.
// Classification happens here, not in the adapter, so cached entries pick up
// configuration changes on the next run.
func (s *FetchService) stampBots(pr *model.PullRequest) {
	pr.IsAuthorBot = s.bots.IsBot(pr.AuthorDisplayName, false, pr.AuthorID)
	for i := range pr.Threads {
		t := &pr.Threads[i]
		t.IsAuthorBot = s.bots.IsBot(t.AuthorDisplayName, false, t.AuthorID)
	}
}

func (s *FetchService) emit(ev ProgressEvent) {
	if s.progress != nil {
		s.progress(ev)
	}
}

func countUniqueCommits(ids []string) int {
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		seen[strings.ToLower(id)] = struct{}{}
	}
	return len(seen)
}

func lowerSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			set[strings.ToLower(v)] = struct{}{}
		}
	}
	return set
}

// sortByID gives deterministic ordering for presentation after the
// nondeterministic enrichment fan-in.
func sortByID(prs []model.PullRequest) {
	slices.SortFunc(prs, func(a, b model.PullRequest) int { return a.ID - b.ID })
}
