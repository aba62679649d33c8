package application

import (
	"slices"
	"strings"
	"time"

	"github.com/jamesbondev/pr-stats/internal/domain/model"
)

// CalculatePRMetrics derives the immutable per-PR metrics view from one
// enriched pull request and its (possibly nil) build runs.
func CalculatePRMetrics(pr model.PullRequest, builds []model.BuildRun) model.PRMetrics {
	return calculatePRMetricsAt(pr, builds, time.Now().UTC())
}

// calculatePRMetricsAt is the clock-injected core of CalculatePRMetrics.
func calculatePRMetricsAt(pr model.PullRequest, builds []model.BuildRun, now time.Time) model.PRMetrics {
	m := model.PRMetrics{
		PullRequestID:     pr.ID,
		Title:             pr.Title,
		RepositoryName:    pr.RepositoryName,
		Status:            pr.Status,
		IsDraft:           pr.IsDraft,
		AuthorDisplayName: pr.AuthorDisplayName,
		AuthorID:          pr.AuthorID,
		IsAuthorBot:       pr.IsAuthorBot,
		CreationDate:      pr.CreationDate,
		PublishedDate:     pr.PublishedDate,
		ClosedDate:        pr.ClosedDate,
		FilesChanged:      pr.FilesChanged,
		CommitCount:       pr.CommitCount,
		IterationCount:    len(pr.Iterations),
		CreationDayOfWeek: pr.CreationDate.UTC().Weekday(),
		CreationHourOfDay: pr.CreationDate.UTC().Hour(),
	}

	cycleStart := pr.CycleStart()

	// Cycle latencies only make sense for completed non-draft PRs that
	// actually closed.
	if pr.Status == model.PRStatusCompleted && !pr.IsDraft && pr.ClosedDate != nil {
		total := pr.ClosedDate.Sub(cycleStart)
		m.TotalCycleTime = &total

		if t := firstHumanCommentTime(pr); t != nil {
			d := t.Sub(cycleStart)
			m.TimeToFirstHumanComment = &d
		}

		if t := firstApprovalTime(pr); t != nil {
			d := t.Sub(cycleStart)
			m.TimeToFirstApproval = &d

			toMerge := pr.ClosedDate.Sub(*t)
			m.TimeFromApprovalToMerge = &toMerge
		}
	}

	m.HumanCommentCount = humanCommentCount(pr)
	m.ResolvableThreadCount, m.ResolvedThreadCount = threadResolution(pr)
	m.ActiveReviewerCount, m.ActiveReviewers = activeReviewers(pr)

	if pr.IsTerminal() {
		m.IsFirstTimeApproval = isFirstTimeApproval(pr)
		m.ApprovalResetCount = approvalResetCount(pr)
	}

	if pr.Status == model.PRStatusActive {
		age := now.Sub(cycleStart)
		m.ActiveAge = &age
	}

	if builds != nil {
		m.Builds = SummarizeBuilds(builds)
	}

	return m
}

// firstHumanCommentTime finds the earliest text thread authored by a human
// other than the PR author, excluding vote-update threads.
func firstHumanCommentTime(pr model.PullRequest) *time.Time {
	var earliest *time.Time
	for _, t := range pr.Threads {
		if t.Kind != model.ThreadKindText || t.IsAuthorBot || t.IsVoteUpdate {
			continue
		}
		if strings.EqualFold(t.AuthorID, pr.AuthorID) {
			continue
		}
		if earliest == nil || t.PublishedDate.Before(*earliest) {
			ts := t.PublishedDate
			earliest = &ts
		}
	}
	return earliest
}

// firstApprovalTime finds the earliest vote-update thread recording an
// approval.
func firstApprovalTime(pr model.PullRequest) *time.Time {
	var earliest *time.Time
	for _, t := range pr.Threads {
		if !t.IsApproval() {
			continue
		}
		if earliest == nil || t.PublishedDate.Before(*earliest) {
			ts := t.PublishedDate
			earliest = &ts
		}
	}
	return earliest
}

// humanCommentCount counts text threads from non-bot, non-self authors.
// Unlike the first-comment rule, vote-update text threads are counted as-is.
func humanCommentCount(pr model.PullRequest) int {
	count := 0
	for _, t := range pr.Threads {
		if t.Kind != model.ThreadKindText || t.IsAuthorBot {
			continue
		}
		if strings.EqualFold(t.AuthorID, pr.AuthorID) {
			continue
		}
		count++
	}
	return count
}

func threadResolution(pr model.PullRequest) (resolvable, resolved int) {
	for _, t := range pr.Threads {
		if t.Kind != model.ThreadKindText || t.IsAuthorBot {
			continue
		}
		resolvable++
		if t.IsResolved() {
			resolved++
		}
	}
	return resolvable, resolved
}

func activeReviewers(pr model.PullRequest) (int, []string) {
	var names []string
	for _, r := range pr.Reviewers {
		if r.IsContainer || r.Vote == 0 {
			continue
		}
		names = append(names, r.DisplayName)
	}
	slices.Sort(names)
	return len(names), names
}

// isFirstTimeApproval reports whether the PR was approved before any second
// iteration landed: either there was at most one iteration in total, or the
// earliest approval precedes the second iteration's creation.
func isFirstTimeApproval(pr model.PullRequest) bool {
	approval := firstApprovalTime(pr)
	if approval == nil {
		return false
	}
	if len(pr.Iterations) <= 1 {
		return true
	}

	iterations := slices.Clone(pr.Iterations)
	slices.SortFunc(iterations, func(a, b model.Iteration) int {
		return a.CreatedDate.Compare(b.CreatedDate)
	})

	return approval.Before(iterations[1].CreatedDate)
}

// approvalResetCount walks the merged chronology of approval events and push
// events. A push while an approval is pending invalidates it and counts one
// reset; at equal timestamps the approval sorts first, so a same-instant push
// still resets it.
func approvalResetCount(pr model.PullRequest) int {
	type event struct {
		at     time.Time
		isPush bool
	}

	var events []event
	for _, t := range pr.Threads {
		if t.IsApproval() {
			events = append(events, event{at: t.PublishedDate})
		}
	}
	for _, it := range pr.Iterations {
		if it.IsPush() {
			events = append(events, event{at: it.CreatedDate, isPush: true})
		}
	}

	slices.SortFunc(events, func(a, b event) int {
		if c := a.at.Compare(b.at); c != 0 {
			return c
		}
		if a.isPush == b.isPush {
			return 0
		}
		if a.isPush {
			return 1
		}
		return -1
	})

	resets := 0
	approved := false
	for _, ev := range events {
		if ev.isPush {
			if approved {
				resets++
				approved = false
			}
			continue
		}
		approved = true
	}
	return resets
}

// AggregateTeam rolls all per-PR metrics of a run into the team summary.
// Input order is irrelevant; everything sorts or groups explicitly.
func AggregateTeam(metrics []model.PRMetrics, prs []model.PullRequest) model.TeamSummary {
	summary := model.TeamSummary{
		TotalPRCount:       len(metrics),
		ThroughputByAuthor: map[string][]model.WeeklyCount{},
		ReviewsPerPerson:   map[string]int{},
		CommentsPerPerson:  map[string]int{},
		PRsPerAuthor:       map[string]int{},
		PerRepository:      map[string]model.RepositoryBreakdown{},
	}

	var (
		cycleTimes      []time.Duration
		firstComments   []time.Duration
		firstApprovals  []time.Duration
		totalFiles      int
		totalCommits    int
		completed       int
		firstTime       int
		withResets      int
		totalResolvable int
		totalResolved   int
	)

	for _, m := range metrics {
		switch m.Status {
		case model.PRStatusCompleted:
			summary.CompletedPRCount++
		case model.PRStatusAbandoned:
			summary.AbandonedPRCount++
		case model.PRStatusActive:
			summary.ActivePRCount++
		}

		totalFiles += m.FilesChanged
		totalCommits += m.CommitCount
		totalResolvable += m.ResolvableThreadCount
		totalResolved += m.ResolvedThreadCount

		if m.Status == model.PRStatusCompleted && !m.IsDraft {
			if m.TotalCycleTime != nil {
				cycleTimes = append(cycleTimes, *m.TotalCycleTime)
			}
			if m.TimeToFirstHumanComment != nil {
				firstComments = append(firstComments, *m.TimeToFirstHumanComment)
			}
			if m.TimeToFirstApproval != nil {
				firstApprovals = append(firstApprovals, *m.TimeToFirstApproval)
			}
		}

		if m.Status == model.PRStatusCompleted {
			completed++
			if m.IsFirstTimeApproval {
				firstTime++
			}
			if m.ApprovalResetCount > 0 {
				withResets++
			}
		}

		summary.PRsPerAuthor[m.AuthorDisplayName]++
	}

	summary.AvgCycleTime = avgDuration(cycleTimes)
	summary.MedianCycleTime = medianDuration(cycleTimes)
	summary.AvgTimeToFirstComment = avgDuration(firstComments)
	summary.MedianTimeToFirstComment = medianDuration(firstComments)
	summary.AvgTimeToFirstApproval = avgDuration(firstApprovals)
	summary.MedianTimeToFirstApproval = medianDuration(firstApprovals)

	if len(metrics) > 0 {
		summary.AvgFilesChanged = float64(totalFiles) / float64(len(metrics))
		summary.AvgCommitsPerPR = float64(totalCommits) / float64(len(metrics))
		summary.AbandonedRate = float64(summary.AbandonedPRCount) / float64(len(metrics))
	}
	if completed > 0 {
		summary.FirstTimeApprovalRate = float64(firstTime) / float64(completed)
		summary.ApprovalResetRate = float64(withResets) / float64(completed)
	}
	if totalResolvable > 0 {
		summary.ThreadResolutionRate = float64(totalResolved) / float64(totalResolvable)
	}

	aggregateActivity(&summary, prs)
	aggregatePerRepository(&summary, metrics)

	return summary
}

// aggregateActivity fills throughput, review, comment, and pairing tallies
// from the raw pull requests.
func aggregateActivity(summary *model.TeamSummary, prs []model.PullRequest) {
	weekly := map[string]map[time.Time]int{}
	pairs := map[model.PairingEntry]int{}

	for _, pr := range prs {
		if pr.Status == model.PRStatusCompleted && pr.ClosedDate != nil {
			week := startOfISOWeek(pr.ClosedDate.UTC())
			byWeek, ok := weekly[pr.AuthorDisplayName]
			if !ok {
				byWeek = map[time.Time]int{}
				weekly[pr.AuthorDisplayName] = byWeek
			}
			byWeek[week]++
		}

		for _, r := range pr.Reviewers {
			if r.IsContainer || r.Vote == 0 {
				continue
			}
			if strings.EqualFold(r.ID, pr.AuthorID) {
				continue
			}
			summary.ReviewsPerPerson[r.DisplayName]++
			pairs[model.PairingEntry{Author: pr.AuthorDisplayName, Reviewer: r.DisplayName}]++
		}

		for _, t := range pr.Threads {
			if t.Kind != model.ThreadKindText || t.IsAuthorBot {
				continue
			}
			if strings.EqualFold(t.AuthorID, pr.AuthorID) {
				continue
			}
			summary.CommentsPerPerson[t.AuthorDisplayName]++
		}
	}

	for author, byWeek := range weekly {
		counts := make([]model.WeeklyCount, 0, len(byWeek))
		for week, n := range byWeek {
			counts = append(counts, model.WeeklyCount{WeekStart: week, Count: n})
		}
		slices.SortFunc(counts, func(a, b model.WeeklyCount) int {
			return a.WeekStart.Compare(b.WeekStart)
		})
		summary.ThroughputByAuthor[author] = counts
	}

	matrix := make([]model.PairingEntry, 0, len(pairs))
	for pair, n := range pairs {
		pair.Count = n
		matrix = append(matrix, pair)
	}
	slices.SortFunc(matrix, func(a, b model.PairingEntry) int {
		if c := strings.Compare(a.Author, b.Author); c != 0 {
			return c
		}
		return strings.Compare(a.Reviewer, b.Reviewer)
	})
	summary.PairingMatrix = matrix
}

func aggregatePerRepository(summary *model.TeamSummary, metrics []model.PRMetrics) {
	byRepo := map[string][]model.PRMetrics{}
	for _, m := range metrics {
		byRepo[m.RepositoryName] = append(byRepo[m.RepositoryName], m)
	}

	for repo, group := range byRepo {
		breakdown := model.RepositoryBreakdown{TotalPRCount: len(group)}

		var (
			cycleTimes []time.Duration
			files      int
			firstTime  int
		)
		for _, m := range group {
			switch m.Status {
			case model.PRStatusCompleted:
				breakdown.CompletedPRCount++
				if m.IsFirstTimeApproval {
					firstTime++
				}
			case model.PRStatusAbandoned:
				breakdown.AbandonedPRCount++
			case model.PRStatusActive:
				breakdown.ActivePRCount++
			}
			if m.Status == model.PRStatusCompleted && !m.IsDraft && m.TotalCycleTime != nil {
				cycleTimes = append(cycleTimes, *m.TotalCycleTime)
			}
			files += m.FilesChanged
		}

		breakdown.AbandonedRate = float64(breakdown.AbandonedPRCount) / float64(len(group))
		breakdown.AvgCycleTime = avgDuration(cycleTimes)
		breakdown.MedianCycleTime = medianDuration(cycleTimes)
		breakdown.AvgFilesChanged = float64(files) / float64(len(group))
		if breakdown.CompletedPRCount > 0 {
			breakdown.FirstTimeApprovalRate = float64(firstTime) / float64(breakdown.CompletedPRCount)
		}

		summary.PerRepository[repo] = breakdown
	}
}

// startOfISOWeek truncates a timestamp to the Monday 00:00 UTC starting its
// ISO week.
func startOfISOWeek(t time.Time) time.Time {
	t = t.UTC()
	diff := (int(t.Weekday()) + 6) % 7
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return day.AddDate(0, 0, -diff)
}

func avgDuration(values []time.Duration) *time.Duration {
	if len(values) == 0 {
		return nil
	}
	var total time.Duration
	for _, v := range values {
		total += v
	}
	avg := total / time.Duration(len(values))
	return &avg
}

func medianDuration(values []time.Duration) *time.Duration {
	if len(values) == 0 {
		return nil
	}
	sorted := slices.Clone(values)
	slices.Sort(sorted)

	mid := len(sorted) / 2
	var median time.Duration
	if len(sorted)%2 == 1 {
		median = sorted[mid]
	} else {
		median = (sorted[mid-1] + sorted[mid]) / 2
	}
	return &median
}
