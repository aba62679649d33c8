package model

import "time"

// TeamSummary aggregates a run's per-PR metrics into team-level counts,
// rates, and latency aggregates. It is rebuilt fully on every run and has no
// identity of its own.
type TeamSummary struct {
	TotalPRCount     int `json:"totalPrCount"`
	CompletedPRCount int `json:"completedPrCount"`
	AbandonedPRCount int `json:"abandonedPrCount"`
	ActivePRCount    int `json:"activePrCount"`

	// Latency aggregates over completed, non-draft pull requests with a value.
	AvgCycleTime              *time.Duration `json:"avgCycleTime,omitempty"`
	MedianCycleTime           *time.Duration `json:"medianCycleTime,omitempty"`
	AvgTimeToFirstComment     *time.Duration `json:"avgTimeToFirstComment,omitempty"`
	MedianTimeToFirstComment  *time.Duration `json:"medianTimeToFirstComment,omitempty"`
	AvgTimeToFirstApproval    *time.Duration `json:"avgTimeToFirstApproval,omitempty"`
	MedianTimeToFirstApproval *time.Duration `json:"medianTimeToFirstApproval,omitempty"`

	AvgFilesChanged float64 `json:"avgFilesChanged"`
	AvgCommitsPerPR float64 `json:"avgCommitsPerPr"`

	AbandonedRate         float64 `json:"abandonedRate"`
	FirstTimeApprovalRate float64 `json:"firstTimeApprovalRate"`
	ApprovalResetRate     float64 `json:"approvalResetRate"`

	// ThreadResolutionRate is a ratio of totals across the population, not an
	// average of per-PR ratios.
	ThreadResolutionRate float64 `json:"threadResolutionRate"`

	ThroughputByAuthor map[string][]WeeklyCount `json:"throughputByAuthor"`
	ReviewsPerPerson   map[string]int           `json:"reviewsPerPerson"`
	CommentsPerPerson  map[string]int           `json:"commentsPerPerson"`
	PRsPerAuthor       map[string]int           `json:"prsPerAuthor"`

	PairingMatrix []PairingEntry `json:"pairingMatrix"`

	PerRepository map[string]RepositoryBreakdown `json:"perRepositoryBreakdown"`
}

// WeeklyCount is the number of pull requests an author closed in the ISO week
// starting at WeekStart (Monday, UTC).
type WeeklyCount struct {
	WeekStart time.Time `json:"weekStart"`
	Count     int       `json:"count"`
}

// PairingEntry is one reviewer-author cell of the pairing matrix.
type PairingEntry struct {
	Author   string `json:"author"`
	Reviewer string `json:"reviewer"`
	Count    int    `json:"count"`
}

// RepositoryBreakdown is the per-repository slice of the team summary,
// computed independently per repository group.
type RepositoryBreakdown struct {
	TotalPRCount          int            `json:"totalPrCount"`
	CompletedPRCount      int            `json:"completedPrCount"`
	AbandonedPRCount      int            `json:"abandonedPrCount"`
	ActivePRCount         int            `json:"activePrCount"`
	AbandonedRate         float64        `json:"abandonedRate"`
	AvgCycleTime          *time.Duration `json:"avgCycleTime,omitempty"`
	MedianCycleTime       *time.Duration `json:"medianCycleTime,omitempty"`
	AvgFilesChanged       float64        `json:"avgFilesChanged"`
	FirstTimeApprovalRate float64        `json:"firstTimeApprovalRate"`
}
