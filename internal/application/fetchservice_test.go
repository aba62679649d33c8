package application_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesbondev/pr-stats/internal/application"
	"github.com/jamesbondev/pr-stats/internal/domain/model"
)

// --- Mock implementations ---

type mockAzDoClient struct {
	mu sync.Mutex

	byStatus map[model.PRStatus][]model.PullRequest

	threads      map[int][]model.Thread
	iterations   map[int][]model.Iteration
	commits      map[int][]string
	changeCounts map[int]int

	threadErr error
	changeErr error

	enrichedIDs []int
}

func (m *mockAzDoClient) FetchPullRequestsByStatus(_ context.Context, status model.PRStatus, _ *time.Time) ([]model.PullRequest, error) {
	return m.byStatus[status], nil
}

func (m *mockAzDoClient) FetchThreads(_ context.Context, _ string, pullRequestID int) ([]model.Thread, error) {
	if m.threadErr != nil {
		return nil, m.threadErr
	}
	m.mu.Lock()
	m.enrichedIDs = append(m.enrichedIDs, pullRequestID)
	m.mu.Unlock()
	return m.threads[pullRequestID], nil
}

func (m *mockAzDoClient) FetchIterations(_ context.Context, _ string, pullRequestID int) ([]model.Iteration, []string, error) {
	return m.iterations[pullRequestID], m.commits[pullRequestID], nil
}

func (m *mockAzDoClient) FetchIterationChangeCount(_ context.Context, _ string, pullRequestID, _ int) (int, error) {
	if m.changeErr != nil {
		return 0, m.changeErr
	}
	return m.changeCounts[pullRequestID], nil
}

type mockCache struct {
	entries map[int]model.PullRequest
	saved   map[int]model.PullRequest
	loads   int
}

func (m *mockCache) Load(_, _ string) (map[int]model.PullRequest, error) {
	m.loads++
	if m.entries == nil {
		return map[int]model.PullRequest{}, nil
	}
	out := make(map[int]model.PullRequest, len(m.entries))
	for k, v := range m.entries {
		out[k] = v
	}
	return out, nil
}

func (m *mockCache) Save(_, _ string, prs map[int]model.PullRequest) error {
	m.saved = prs
	return nil
}

func (m *mockCache) Delete(_, _ string) error { return nil }

// --- Tests ---

func terminalPR(id int, repo string) model.PullRequest {
	closed := baseTime.Add(time.Duration(id) * time.Hour)
	return model.PullRequest{
		ID:                id,
		RepositoryName:    repo,
		RepositoryID:      "repo-" + repo,
		Status:            model.PRStatusCompleted,
		CreationDate:      baseTime,
		ClosedDate:        &closed,
		AuthorDisplayName: "Author",
		AuthorID:          "author-1",
	}
}

func defaultOpts() application.FetchOptions {
	return application.FetchOptions{
		Organization: "https://dev.azure.com/acme",
		Project:      "platform",
		Days:         30,
		Concurrency:  3,
	}
}

func newService(client *mockAzDoClient, cache *mockCache, opts application.FetchOptions) *application.FetchService {
	return application.NewFetchService(client, cache, application.NewBotFilter(nil, nil), opts, nil)
}

func TestFetch_CachedTerminalPRsSkipEnrichment(t *testing.T) {
	pr1 := terminalPR(1, "api")
	pr2 := terminalPR(2, "api")

	cachedPR1 := pr1
	cachedPR1.FilesChanged = 7 // enrichment detail from a previous run

	client := &mockAzDoClient{
		byStatus: map[model.PRStatus][]model.PullRequest{
			model.PRStatusCompleted: {pr1, pr2},
		},
	}
	cache := &mockCache{entries: map[int]model.PullRequest{1: cachedPR1}}

	results, err := newService(client, cache, defaultOpts()).Fetch(context.Background())
	require.NoError(t, err)

	require.Len(t, results, 2)
	assert.Equal(t, 7, results[0].FilesChanged, "cached entry served as-is")
	assert.Equal(t, []int{2}, client.enrichedIDs, "only the miss was enriched")
}

func TestFetch_ActivePRsAlwaysEnrichedEvenWhenCached(t *testing.T) {
	active := terminalPR(1, "api")
	active.Status = model.PRStatusActive
	active.ClosedDate = nil

	client := &mockAzDoClient{
		byStatus: map[model.PRStatus][]model.PullRequest{
			model.PRStatusActive: {active},
		},
	}
	cache := &mockCache{entries: map[int]model.PullRequest{1: active}}

	_, err := newService(client, cache, defaultOpts()).Fetch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []int{1}, client.enrichedIDs)
}

func TestFetch_NoCacheBypassesReads(t *testing.T) {
	pr := terminalPR(1, "api")
	client := &mockAzDoClient{
		byStatus: map[model.PRStatus][]model.PullRequest{
			model.PRStatusCompleted: {pr},
		},
	}
	cache := &mockCache{entries: map[int]model.PullRequest{1: pr}}

	opts := defaultOpts()
	opts.NoCache = true

	_, err := newService(client, cache, opts).Fetch(context.Background())
	require.NoError(t, err)

	assert.Zero(t, cache.loads)
	assert.Equal(t, []int{1}, client.enrichedIDs)
	assert.NotNil(t, cache.saved, "cache is still written back")
}

func TestFetch_WriteBackPreservesOutOfWindowEntries(t *testing.T) {
	inWindow := terminalPR(1, "api")
	outOfWindow := terminalPR(99, "api")

	client := &mockAzDoClient{
		byStatus: map[model.PRStatus][]model.PullRequest{
			model.PRStatusCompleted: {inWindow},
		},
	}
	cache := &mockCache{entries: map[int]model.PullRequest{99: outOfWindow}}

	_, err := newService(client, cache, defaultOpts()).Fetch(context.Background())
	require.NoError(t, err)

	require.NotNil(t, cache.saved)
	assert.Contains(t, cache.saved, 1)
	assert.Contains(t, cache.saved, 99, "entries outside the window survive until eviction")
}

func TestFetch_RepositoryAndAuthorFilters(t *testing.T) {
	api := terminalPR(1, "api")
	web := terminalPR(2, "web")
	other := terminalPR(3, "api")
	other.AuthorDisplayName = "Somebody Else"
	other.AuthorID = "author-2"

	client := &mockAzDoClient{
		byStatus: map[model.PRStatus][]model.PullRequest{
			model.PRStatusCompleted: {api, web, other},
		},
	}

	opts := defaultOpts()
	opts.Repositories = []string{"API"} // case-insensitive
	opts.Authors = []string{"author"}

	results, err := newService(client, &mockCache{}, opts).Fetch(context.Background())
	require.NoError(t, err)

	require.Len(t, results, 1)
	assert.Equal(t, 1, results[0].ID)
}

func TestFetch_MaxPRsTruncatesInFetchOrder(t *testing.T) {
	client := &mockAzDoClient{
		byStatus: map[model.PRStatus][]model.PullRequest{
			model.PRStatusCompleted: {terminalPR(1, "api"), terminalPR(2, "api"), terminalPR(3, "api")},
		},
	}

	opts := defaultOpts()
	opts.MaxPRs = 2

	results, err := newService(client, &mockCache{}, opts).Fetch(context.Background())
	require.NoError(t, err)

	require.Len(t, results, 2)
	assert.Equal(t, 1, results[0].ID)
	assert.Equal(t, 2, results[1].ID)
}

func TestFetch_EnrichmentPopulatesDetail(t *testing.T) {
	pr := terminalPR(1, "api")

	client := &mockAzDoClient{
		byStatus: map[model.PRStatus][]model.PullRequest{
			model.PRStatusCompleted: {pr},
		},
		threads: map[int][]model.Thread{
			1: {textThread(10, baseTime.Add(time.Hour), "reviewer-1")},
		},
		iterations: map[int][]model.Iteration{
			1: {
				{ID: 1, CreatedDate: baseTime, Reason: model.IterationReasonCreate},
				pushIteration(2, baseTime.Add(time.Hour)),
			},
		},
		commits:      map[int][]string{1: {"abc123", "ABC123", "def456"}},
		changeCounts: map[int]int{1: 9},
	}

	results, err := newService(client, &mockCache{}, defaultOpts()).Fetch(context.Background())
	require.NoError(t, err)

	require.Len(t, results, 1)
	got := results[0]
	assert.Len(t, got.Threads, 1)
	assert.Len(t, got.Iterations, 2)
	assert.Equal(t, 2, got.CommitCount, "commit ids deduplicated case-insensitively")
	assert.Equal(t, 9, got.FilesChanged)
}

func TestFetch_DiffFailureDefaultsFileCountToZero(t *testing.T) {
	pr := terminalPR(1, "api")

	client := &mockAzDoClient{
		byStatus: map[model.PRStatus][]model.PullRequest{
			model.PRStatusCompleted: {pr},
		},
		iterations: map[int][]model.Iteration{
			1: {{ID: 1, CreatedDate: baseTime, Reason: model.IterationReasonCreate}},
		},
		changeErr: errors.New("iteration diff unavailable"),
	}

	results, err := newService(client, &mockCache{}, defaultOpts()).Fetch(context.Background())
	require.NoError(t, err)

	require.Len(t, results, 1)
	assert.Zero(t, results[0].FilesChanged)
}

func TestFetch_ThreadFailureAbortsTheBatch(t *testing.T) {
	client := &mockAzDoClient{
		byStatus: map[model.PRStatus][]model.PullRequest{
			model.PRStatusCompleted: {terminalPR(1, "api"), terminalPR(2, "api")},
		},
		threadErr: errors.New("boom"),
	}
	cache := &mockCache{}

	_, err := newService(client, cache, defaultOpts()).Fetch(context.Background())

	require.Error(t, err)
	assert.Nil(t, cache.saved, "failed runs do not write the cache back")
}

func TestFetch_StampsBotClassification(t *testing.T) {
	pr := terminalPR(1, "api")
	pr.AuthorDisplayName = "Renovate Bot"

	client := &mockAzDoClient{
		byStatus: map[model.PRStatus][]model.PullRequest{
			model.PRStatusCompleted: {pr},
		},
		threads: map[int][]model.Thread{
			1: {textThread(10, baseTime, "bot-guid")},
		},
	}

	svc := application.NewFetchService(client, &mockCache{},
		application.NewBotFilter([]string{"Renovate Bot"}, []string{"bot-guid"}),
		defaultOpts(), nil)

	results, err := svc.Fetch(context.Background())
	require.NoError(t, err)

	require.Len(t, results, 1)
	assert.True(t, results[0].IsAuthorBot)
	require.Len(t, results[0].Threads, 1)
	assert.True(t, results[0].Threads[0].IsAuthorBot)
}
