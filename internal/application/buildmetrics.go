package application

import (
	"slices"
	"strings"
	"time"

	"github.com/jamesbondev/pr-stats/internal/domain/model"
)

// SummarizeBuilds aggregates one pull request's build runs. The success rate
// counts only terminal outcomes; canceled runs are excluded from its
// denominator.
func SummarizeBuilds(runs []model.BuildRun) *model.BuildSummary {
	summary := &model.BuildSummary{TotalBuildCount: len(runs)}

	var (
		queueTimes []time.Duration
		runTimes   []time.Duration
		totalRun   time.Duration
		elapsed    time.Duration
		hasElapsed bool
	)

	for _, run := range runs {
		switch run.Result {
		case model.BuildResultSucceeded:
			summary.SucceededCount++
		case model.BuildResultFailed:
			summary.FailedCount++
		case model.BuildResultCanceled:
			summary.CanceledCount++
		case model.BuildResultPartiallySucceeded:
			summary.PartiallySucceededCount++
		}

		if run.StartTime != nil && !run.QueueTime.IsZero() {
			queueTimes = append(queueTimes, run.StartTime.Sub(run.QueueTime))
		}
		if run.StartTime != nil && run.FinishTime != nil {
			d := run.FinishTime.Sub(*run.StartTime)
			runTimes = append(runTimes, d)
			totalRun += d
		}
		if run.FinishTime != nil && !run.QueueTime.IsZero() {
			elapsed += run.FinishTime.Sub(run.QueueTime)
			hasElapsed = true
		}
	}

	decided := summary.SucceededCount + summary.FailedCount + summary.PartiallySucceededCount
	if decided > 0 {
		summary.BuildSuccessRate = float64(summary.SucceededCount) / float64(decided)
	}

	summary.AvgQueueTime = avgDuration(queueTimes)
	summary.AvgRunTime = avgDuration(runTimes)
	if len(runTimes) > 0 {
		summary.TotalRunTime = &totalRun
	}
	if hasElapsed {
		summary.TotalElapsedTime = &elapsed
	}

	summary.PerPipeline = summarizePipelines(runs)
	return summary
}

func summarizePipelines(runs []model.BuildRun) []model.PipelineSummary {
	byPipeline := map[string][]model.BuildRun{}
	for _, run := range runs {
		byPipeline[run.PipelineName] = append(byPipeline[run.PipelineName], run)
	}

	summaries := make([]model.PipelineSummary, 0, len(byPipeline))
	for name, group := range byPipeline {
		ps := model.PipelineSummary{PipelineName: name, RunCount: len(group)}

		var durations []time.Duration
		for _, run := range group {
			switch run.Result {
			case model.BuildResultSucceeded:
				ps.SucceededCount++
			case model.BuildResultFailed:
				ps.FailedCount++
			}
			if run.StartTime != nil && run.FinishTime != nil {
				durations = append(durations, run.FinishTime.Sub(*run.StartTime))
			}
		}
		ps.AvgDuration = avgDuration(durations)

		summaries = append(summaries, ps)
	}

	slices.SortFunc(summaries, func(a, b model.PipelineSummary) int {
		return strings.Compare(a.PipelineName, b.PipelineName)
	})
	return summaries
}
