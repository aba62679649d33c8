package model

import "time"

// BuildRun is one CI build associated with a pull request's merge ref.
type BuildRun struct {
	ID            int         `json:"buildId"`
	PipelineName  string      `json:"pipelineName"`
	PipelineID    int         `json:"pipelineId"`
	Status        string      `json:"status"`
	Result        BuildResult `json:"result,omitempty"`
	QueueTime     time.Time   `json:"queueTime"`
	StartTime     *time.Time  `json:"startTime,omitempty"`
	FinishTime    *time.Time  `json:"finishTime,omitempty"`
	SourceVersion string      `json:"sourceVersion,omitempty"`
}

// BuildSummary aggregates the build runs of a single pull request. The
// success rate excludes canceled runs from its denominator.
type BuildSummary struct {
	TotalBuildCount         int     `json:"totalBuildCount"`
	SucceededCount          int     `json:"succeededCount"`
	FailedCount             int     `json:"failedCount"`
	CanceledCount           int     `json:"canceledCount"`
	PartiallySucceededCount int     `json:"partiallySucceededCount"`
	BuildSuccessRate        float64 `json:"buildSuccessRate"`

	AvgQueueTime     *time.Duration `json:"avgQueueTime,omitempty"`
	AvgRunTime       *time.Duration `json:"avgRunTime,omitempty"`
	TotalRunTime     *time.Duration `json:"totalRunTime,omitempty"`
	TotalElapsedTime *time.Duration `json:"totalElapsedTime,omitempty"`

	PerPipeline []PipelineSummary `json:"perPipeline"`
}

// PipelineSummary mirrors the per-PR build counts for one pipeline.
type PipelineSummary struct {
	PipelineName   string         `json:"pipelineName"`
	RunCount       int            `json:"runCount"`
	SucceededCount int            `json:"succeededCount"`
	FailedCount    int            `json:"failedCount"`
	AvgDuration    *time.Duration `json:"avgDuration,omitempty"`
}
