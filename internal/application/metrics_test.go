package application_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesbondev/pr-stats/internal/application"
	"github.com/jamesbondev/pr-stats/internal/domain/model"
)

var baseTime = time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)

func timePtr(t time.Time) *time.Time { return &t }
func intPtr(n int) *int              { return &n }

func approvalThread(id int, at time.Time, vote int) model.Thread {
	return model.Thread{
		ID:                id,
		Kind:              model.ThreadKindSystem,
		PublishedDate:     at,
		AuthorDisplayName: "Reviewer",
		AuthorID:          "reviewer-1",
		IsVoteUpdate:      true,
		VoteValue:         intPtr(vote),
	}
}

func textThread(id int, at time.Time, authorID string) model.Thread {
	return model.Thread{
		ID:                id,
		Kind:              model.ThreadKindText,
		PublishedDate:     at,
		AuthorDisplayName: "Reviewer",
		AuthorID:          authorID,
		Status:            model.ThreadStatusActive,
		CommentCount:      1,
	}
}

func pushIteration(id int, at time.Time) model.Iteration {
	return model.Iteration{ID: id, CreatedDate: at, Reason: model.IterationReasonPush}
}

func completedPR(threads []model.Thread, iterations []model.Iteration) model.PullRequest {
	return model.PullRequest{
		ID:                1,
		Title:             "Add widget endpoint",
		RepositoryName:    "widgets",
		Status:            model.PRStatusCompleted,
		CreationDate:      baseTime,
		ClosedDate:        timePtr(baseTime.Add(48 * time.Hour)),
		AuthorDisplayName: "Author",
		AuthorID:          "author-1",
		Threads:           threads,
		Iterations:        iterations,
	}
}

func TestCalculatePRMetrics_CycleTimes(t *testing.T) {
	// Created 2025-01-01T10:00Z, no publish timestamp, closed +48h, one
	// approval (vote 10) at +6h.
	pr := completedPR(
		[]model.Thread{approvalThread(1, baseTime.Add(6*time.Hour), 10)},
		[]model.Iteration{{ID: 1, CreatedDate: baseTime, Reason: model.IterationReasonCreate}},
	)

	m := application.CalculatePRMetrics(pr, nil)

	require.NotNil(t, m.TotalCycleTime)
	assert.Equal(t, 48*time.Hour, *m.TotalCycleTime)

	require.NotNil(t, m.TimeToFirstApproval)
	assert.Equal(t, 6*time.Hour, *m.TimeToFirstApproval)

	require.NotNil(t, m.TimeFromApprovalToMerge)
	assert.Equal(t, 42*time.Hour, *m.TimeFromApprovalToMerge)

	assert.Nil(t, m.TimeToFirstHumanComment)
	assert.Nil(t, m.ActiveAge)
}

func TestCalculatePRMetrics_PublishedDateStartsTheCycle(t *testing.T) {
	pr := completedPR(nil, nil)
	pr.PublishedDate = timePtr(baseTime.Add(12 * time.Hour))

	m := application.CalculatePRMetrics(pr, nil)

	require.NotNil(t, m.TotalCycleTime)
	assert.Equal(t, 36*time.Hour, *m.TotalCycleTime)
}

func TestCalculatePRMetrics_NoCycleTimesForDraftsOrActive(t *testing.T) {
	draft := completedPR(nil, nil)
	draft.IsDraft = true
	assert.Nil(t, application.CalculatePRMetrics(draft, nil).TotalCycleTime)

	active := completedPR(nil, nil)
	active.Status = model.PRStatusActive
	active.ClosedDate = nil
	m := application.CalculatePRMetrics(active, nil)
	assert.Nil(t, m.TotalCycleTime)
	require.NotNil(t, m.ActiveAge)
	assert.Positive(t, *m.ActiveAge)
}

func TestCalculatePRMetrics_FirstHumanComment(t *testing.T) {
	botComment := textThread(1, baseTime.Add(1*time.Hour), "bot-1")
	botComment.IsAuthorBot = true
	selfComment := textThread(2, baseTime.Add(2*time.Hour), "author-1")
	humanComment := textThread(3, baseTime.Add(5*time.Hour), "reviewer-1")

	pr := completedPR([]model.Thread{botComment, selfComment, humanComment}, nil)

	m := application.CalculatePRMetrics(pr, nil)

	require.NotNil(t, m.TimeToFirstHumanComment)
	assert.Equal(t, 5*time.Hour, *m.TimeToFirstHumanComment)
	// Bot and self-authored threads do not count as human comments either.
	assert.Equal(t, 1, m.HumanCommentCount)
}

func TestCalculatePRMetrics_ApprovalResetCount(t *testing.T) {
	tests := []struct {
		name       string
		threads    []model.Thread
		iterations []model.Iteration
		want       int
	}{
		{
			name:       "approve then push resets once",
			threads:    []model.Thread{approvalThread(1, baseTime.Add(1*time.Hour), 10)},
			iterations: []model.Iteration{pushIteration(2, baseTime.Add(2*time.Hour))},
			want:       1,
		},
		{
			name: "approve push approve push resets twice",
			threads: []model.Thread{
				approvalThread(1, baseTime.Add(1*time.Hour), 10),
				approvalThread(2, baseTime.Add(3*time.Hour), 5),
			},
			iterations: []model.Iteration{
				pushIteration(2, baseTime.Add(2*time.Hour)),
				pushIteration(3, baseTime.Add(4*time.Hour)),
			},
			want: 2,
		},
		{
			name:       "push before approval is a no-op",
			threads:    []model.Thread{approvalThread(1, baseTime.Add(2*time.Hour), 10)},
			iterations: []model.Iteration{pushIteration(2, baseTime.Add(1*time.Hour))},
			want:       0,
		},
		{
			name:       "same instant approval sorts before the push",
			threads:    []model.Thread{approvalThread(1, baseTime.Add(1*time.Hour), 10)},
			iterations: []model.Iteration{pushIteration(2, baseTime.Add(1*time.Hour))},
			want:       1,
		},
		{
			name:       "rejection vote never arms the flag",
			threads:    []model.Thread{approvalThread(1, baseTime.Add(1*time.Hour), -10)},
			iterations: []model.Iteration{pushIteration(2, baseTime.Add(2*time.Hour))},
			want:       0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pr := completedPR(tt.threads, tt.iterations)
			m := application.CalculatePRMetrics(pr, nil)
			assert.Equal(t, tt.want, m.ApprovalResetCount)
		})
	}
}

func TestCalculatePRMetrics_FirstTimeApproval(t *testing.T) {
	t.Run("single iteration", func(t *testing.T) {
		pr := completedPR(
			[]model.Thread{approvalThread(1, baseTime.Add(1*time.Hour), 10)},
			[]model.Iteration{{ID: 1, CreatedDate: baseTime, Reason: model.IterationReasonCreate}},
		)
		assert.True(t, application.CalculatePRMetrics(pr, nil).IsFirstTimeApproval)
	})

	t.Run("approval before second iteration", func(t *testing.T) {
		pr := completedPR(
			[]model.Thread{approvalThread(1, baseTime.Add(1*time.Hour), 10)},
			[]model.Iteration{
				{ID: 1, CreatedDate: baseTime, Reason: model.IterationReasonCreate},
				pushIteration(2, baseTime.Add(2*time.Hour)),
			},
		)
		assert.True(t, application.CalculatePRMetrics(pr, nil).IsFirstTimeApproval)
	})

	t.Run("approval after second iteration", func(t *testing.T) {
		pr := completedPR(
			[]model.Thread{approvalThread(1, baseTime.Add(3*time.Hour), 10)},
			[]model.Iteration{
				{ID: 1, CreatedDate: baseTime, Reason: model.IterationReasonCreate},
				pushIteration(2, baseTime.Add(2*time.Hour)),
			},
		)
		assert.False(t, application.CalculatePRMetrics(pr, nil).IsFirstTimeApproval)
	})

	t.Run("no approval", func(t *testing.T) {
		pr := completedPR(nil, nil)
		assert.False(t, application.CalculatePRMetrics(pr, nil).IsFirstTimeApproval)
	})

	t.Run("not computed for active pull requests", func(t *testing.T) {
		pr := completedPR(
			[]model.Thread{approvalThread(1, baseTime.Add(1*time.Hour), 10)},
			nil,
		)
		pr.Status = model.PRStatusActive
		pr.ClosedDate = nil
		m := application.CalculatePRMetrics(pr, nil)
		assert.False(t, m.IsFirstTimeApproval)
		assert.Zero(t, m.ApprovalResetCount)
	})
}

func TestCalculatePRMetrics_ThreadResolution(t *testing.T) {
	fixed := textThread(1, baseTime, "reviewer-1")
	fixed.Status = model.ThreadStatusFixed
	open := textThread(2, baseTime, "reviewer-2")
	bot := textThread(3, baseTime, "bot-1")
	bot.IsAuthorBot = true
	bot.Status = model.ThreadStatusFixed

	pr := completedPR([]model.Thread{fixed, open, bot}, nil)
	m := application.CalculatePRMetrics(pr, nil)

	assert.Equal(t, 2, m.ResolvableThreadCount)
	assert.Equal(t, 1, m.ResolvedThreadCount)
}

func TestCalculatePRMetrics_ActiveReviewers(t *testing.T) {
	pr := completedPR(nil, nil)
	pr.Reviewers = []model.Reviewer{
		{DisplayName: "Bea", ID: "r1", Vote: 10},
		{DisplayName: "Abe", ID: "r2", Vote: -5},
		{DisplayName: "No Vote", ID: "r3", Vote: 0},
		{DisplayName: "Team Group", ID: "g1", Vote: 10, IsContainer: true},
	}

	m := application.CalculatePRMetrics(pr, nil)

	assert.Equal(t, 2, m.ActiveReviewerCount)
	assert.Equal(t, []string{"Abe", "Bea"}, m.ActiveReviewers)
}

func TestAggregateTeam_Rates(t *testing.T) {
	hour := func(n int) *time.Duration {
		d := time.Duration(n) * time.Hour
		return &d
	}

	metrics := []model.PRMetrics{
		{PullRequestID: 1, Status: model.PRStatusCompleted, AuthorDisplayName: "Abe",
			TotalCycleTime: hour(10), IsFirstTimeApproval: true,
			ResolvableThreadCount: 4, ResolvedThreadCount: 1, FilesChanged: 4, CommitCount: 2},
		{PullRequestID: 2, Status: model.PRStatusCompleted, AuthorDisplayName: "Bea",
			TotalCycleTime: hour(20), ApprovalResetCount: 2,
			ResolvableThreadCount: 0, ResolvedThreadCount: 0, FilesChanged: 8, CommitCount: 4},
		{PullRequestID: 3, Status: model.PRStatusAbandoned, AuthorDisplayName: "Abe",
			ResolvableThreadCount: 2, ResolvedThreadCount: 2},
		{PullRequestID: 4, Status: model.PRStatusActive, AuthorDisplayName: "Cal"},
	}

	team := application.AggregateTeam(metrics, nil)

	assert.Equal(t, 4, team.TotalPRCount)
	assert.Equal(t, 2, team.CompletedPRCount)
	assert.Equal(t, 1, team.AbandonedPRCount)
	assert.Equal(t, 1, team.ActivePRCount)

	require.NotNil(t, team.AvgCycleTime)
	assert.Equal(t, 15*time.Hour, *team.AvgCycleTime)
	require.NotNil(t, team.MedianCycleTime)
	assert.Equal(t, 15*time.Hour, *team.MedianCycleTime)

	assert.InDelta(t, 0.25, team.AbandonedRate, 1e-9)
	assert.InDelta(t, 0.5, team.FirstTimeApprovalRate, 1e-9)
	assert.InDelta(t, 0.5, team.ApprovalResetRate, 1e-9)

	// Ratio of totals: (1+0+2)/(4+0+2), not the mean of per-PR ratios.
	assert.InDelta(t, 0.5, team.ThreadResolutionRate, 1e-9)

	assert.Equal(t, 2, team.PRsPerAuthor["Abe"])
	assert.InDelta(t, 3.0, team.AvgFilesChanged, 1e-9)
	assert.InDelta(t, 1.5, team.AvgCommitsPerPR, 1e-9)
}

func TestAggregateTeam_ZeroResolvableMeansZeroRate(t *testing.T) {
	metrics := []model.PRMetrics{
		{PullRequestID: 1, Status: model.PRStatusCompleted, AuthorDisplayName: "Abe"},
	}

	team := application.AggregateTeam(metrics, nil)
	assert.Zero(t, team.ThreadResolutionRate)
}

func TestAggregateTeam_WeeklyThroughputBucketsByISOWeek(t *testing.T) {
	// Wed 2025-01-01 and Thu 2025-01-02 share the week of Mon 2024-12-30;
	// Mon 2025-01-06 starts the next week.
	closeDates := []time.Time{
		time.Date(2025, 1, 1, 15, 0, 0, 0, time.UTC),
		time.Date(2025, 1, 2, 9, 0, 0, 0, time.UTC),
		time.Date(2025, 1, 6, 0, 30, 0, 0, time.UTC),
	}

	var prs []model.PullRequest
	for i, closed := range closeDates {
		prs = append(prs, model.PullRequest{
			ID:                i + 1,
			Status:            model.PRStatusCompleted,
			AuthorDisplayName: "Abe",
			AuthorID:          "author-1",
			CreationDate:      closed.Add(-24 * time.Hour),
			ClosedDate:        timePtr(closed),
		})
	}

	team := application.AggregateTeam(nil, prs)

	counts := team.ThroughputByAuthor["Abe"]
	require.Len(t, counts, 2)
	assert.Equal(t, time.Date(2024, 12, 30, 0, 0, 0, 0, time.UTC), counts[0].WeekStart)
	assert.Equal(t, 2, counts[0].Count)
	assert.Equal(t, time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC), counts[1].WeekStart)
	assert.Equal(t, 1, counts[1].Count)
}

func TestAggregateTeam_PairingAndReviewCounts(t *testing.T) {
	pr := model.PullRequest{
		ID:                1,
		Status:            model.PRStatusCompleted,
		AuthorDisplayName: "Abe",
		AuthorID:          "author-1",
		CreationDate:      baseTime,
		ClosedDate:        timePtr(baseTime.Add(time.Hour)),
		Reviewers: []model.Reviewer{
			{DisplayName: "Bea", ID: "r1", Vote: 10},
			{DisplayName: "Abe", ID: "author-1", Vote: 10}, // self-review excluded
			{DisplayName: "Group", ID: "g1", Vote: 10, IsContainer: true},
			{DisplayName: "Cal", ID: "r2", Vote: 0}, // no vote
		},
		Threads: []model.Thread{
			textThread(1, baseTime, "r1"),
			textThread(2, baseTime, "author-1"), // self-comment excluded
		},
	}

	team := application.AggregateTeam(nil, []model.PullRequest{pr})

	assert.Equal(t, map[string]int{"Bea": 1}, team.ReviewsPerPerson)
	assert.Equal(t, 1, team.CommentsPerPerson["Reviewer"])
	require.Len(t, team.PairingMatrix, 1)
	assert.Equal(t, model.PairingEntry{Author: "Abe", Reviewer: "Bea", Count: 1}, team.PairingMatrix[0])
}

func TestAggregateTeam_PerRepositoryBreakdown(t *testing.T) {
	hour := func(n int) *time.Duration {
		d := time.Duration(n) * time.Hour
		return &d
	}

	metrics := []model.PRMetrics{
		{PullRequestID: 1, RepositoryName: "api", Status: model.PRStatusCompleted, TotalCycleTime: hour(10), FilesChanged: 2},
		{PullRequestID: 2, RepositoryName: "api", Status: model.PRStatusAbandoned, FilesChanged: 6},
		{PullRequestID: 3, RepositoryName: "web", Status: model.PRStatusActive},
	}

	team := application.AggregateTeam(metrics, nil)

	require.Contains(t, team.PerRepository, "api")
	api := team.PerRepository["api"]
	assert.Equal(t, 2, api.TotalPRCount)
	assert.InDelta(t, 0.5, api.AbandonedRate, 1e-9)
	require.NotNil(t, api.AvgCycleTime)
	assert.Equal(t, 10*time.Hour, *api.AvgCycleTime)
	assert.InDelta(t, 4.0, api.AvgFilesChanged, 1e-9)

	require.Contains(t, team.PerRepository, "web")
	assert.Equal(t, 1, team.PerRepository["web"].ActivePRCount)
}
