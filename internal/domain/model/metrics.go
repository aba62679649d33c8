package model

import "time"

// PRMetrics is the derived, immutable view of one pull request. Created once
// by the metrics calculator; recomputation replaces the whole value.
type PRMetrics struct {
	PullRequestID     int        `json:"pullRequestId"`
	Title             string     `json:"title"`
	RepositoryName    string     `json:"repositoryName"`
	Status            PRStatus   `json:"status"`
	IsDraft           bool       `json:"isDraft"`
	AuthorDisplayName string     `json:"authorDisplayName"`
	AuthorID          string     `json:"authorId"`
	IsAuthorBot       bool       `json:"isAuthorBot"`
	CreationDate      time.Time  `json:"creationDate"`
	PublishedDate     *time.Time `json:"publishedDate,omitempty"`
	ClosedDate        *time.Time `json:"closedDate,omitempty"`

	// Cycle latencies. Populated only for completed, non-draft pull requests
	// with a close timestamp; nil otherwise.
	TotalCycleTime          *time.Duration `json:"totalCycleTime,omitempty"`
	TimeToFirstHumanComment *time.Duration `json:"timeToFirstHumanComment,omitempty"`
	TimeToFirstApproval     *time.Duration `json:"timeToFirstApproval,omitempty"`
	TimeFromApprovalToMerge *time.Duration `json:"timeFromApprovalToMerge,omitempty"`

	FilesChanged   int `json:"filesChanged"`
	CommitCount    int `json:"commitCount"`
	IterationCount int `json:"iterationCount"`

	HumanCommentCount int `json:"humanCommentCount"`

	// Populated only for terminal (completed or abandoned) pull requests.
	IsFirstTimeApproval bool `json:"isFirstTimeApproval"`
	ApprovalResetCount  int  `json:"approvalResetCount"`

	ResolvableThreadCount int `json:"resolvableThreadCount"`
	ResolvedThreadCount   int `json:"resolvedThreadCount"`

	ActiveReviewerCount int      `json:"activeReviewerCount"`
	ActiveReviewers     []string `json:"activeReviewers"`

	CreationDayOfWeek time.Weekday `json:"creationDayOfWeek"`
	CreationHourOfDay int          `json:"creationHourOfDay"`

	// ActiveAge is set only for currently-active pull requests.
	ActiveAge *time.Duration `json:"activeAge,omitempty"`

	// Builds is set only when build data was supplied for this pull request.
	Builds *BuildSummary `json:"builds,omitempty"`
}
