// Package model holds the domain types shared by the fetch pipeline, the
// metrics calculator, and the report surface.
package model

import "time"

// ApprovalVoteThreshold is the minimum reviewer vote that counts as an
// approval (approve-with-suggestions = 5, approve = 10).
const ApprovalVoteThreshold = 5

// PullRequest is a single pull request with its enrichment detail. The fetch
// pipeline owns it until enrichment completes; afterwards it is immutable and
// handed to the metrics calculator and the cache.
type PullRequest struct {
	ID             int       `json:"pullRequestId"`
	Title          string    `json:"title"`
	RepositoryName string    `json:"repositoryName"`
	RepositoryID   string    `json:"repositoryId,omitempty"`
	Status         PRStatus  `json:"status"`
	IsDraft        bool      `json:"isDraft"`
	CreationDate   time.Time `json:"creationDate"`

	// PublishedDate is set only when the platform reports when a draft was
	// published; the effective cycle start falls back to CreationDate.
	PublishedDate *time.Time `json:"publishedDate,omitempty"`
	ClosedDate    *time.Time `json:"closedDate,omitempty"`

	AuthorDisplayName string `json:"authorDisplayName"`
	AuthorID          string `json:"authorId"`
	IsAuthorBot       bool   `json:"isAuthorBot"`

	ClosedByDisplayName string `json:"closedByDisplayName,omitempty"`
	ClosedByID          string `json:"closedById,omitempty"`

	Reviewers  []Reviewer  `json:"reviewers"`
	Threads    []Thread    `json:"threads"`
	Iterations []Iteration `json:"iterations"`

	FilesChanged int `json:"filesChanged"`
	CommitCount  int `json:"commitCount"`
}

// IsTerminal reports whether the pull request has reached a final state.
// Terminal detail is assumed immutable, which is what makes it cacheable.
func (pr PullRequest) IsTerminal() bool {
	return pr.Status == PRStatusCompleted || pr.Status == PRStatusAbandoned
}

// CycleStart is the effective start of the review cycle: the publish
// timestamp when present, else the creation timestamp.
func (pr PullRequest) CycleStart() time.Time {
	if pr.PublishedDate != nil {
		return *pr.PublishedDate
	}
	return pr.CreationDate
}

// RelevantDate is the later of the creation and close timestamps. It drives
// cache eviction.
func (pr PullRequest) RelevantDate() time.Time {
	if pr.ClosedDate != nil && pr.ClosedDate.After(pr.CreationDate) {
		return *pr.ClosedDate
	}
	return pr.CreationDate
}

// Reviewer is one entry on a pull request's reviewer list.
type Reviewer struct {
	DisplayName string `json:"displayName"`
	ID          string `json:"id"`
	Vote        int    `json:"vote"` // -10..10, 0 = no vote
	IsContainer bool   `json:"isContainer"`
	IsRequired  bool   `json:"isRequired"`
}

// Thread is a review comment conversation attached to a pull request.
type Thread struct {
	ID                int          `json:"threadId"`
	Kind              ThreadKind   `json:"commentType"`
	PublishedDate     time.Time    `json:"publishedDate"`
	AuthorDisplayName string       `json:"authorDisplayName"`
	AuthorID          string       `json:"authorId"`
	IsAuthorBot       bool         `json:"isAuthorBot"`
	Status            ThreadStatus `json:"status"`
	CommentCount      int          `json:"commentCount"`
	IsVoteUpdate      bool         `json:"isVoteUpdate"`

	// VoteValue is meaningful only when IsVoteUpdate is set.
	VoteValue *int `json:"voteValue,omitempty"`
}

// IsApproval reports whether the thread records an approval vote.
func (t Thread) IsApproval() bool {
	return t.IsVoteUpdate && t.VoteValue != nil && *t.VoteValue >= ApprovalVoteThreshold
}

// IsResolved reports whether the thread reached a terminal resolution status.
func (t Thread) IsResolved() bool {
	switch t.Status {
	case ThreadStatusFixed, ThreadStatusClosed, ThreadStatusWontFix, ThreadStatusByDesign:
		return true
	}
	return false
}

// Iteration is a discrete push of commits onto a pull request.
type Iteration struct {
	ID          int             `json:"iterationId"`
	CreatedDate time.Time       `json:"createdDate"`
	Reason      IterationReason `json:"reason"`
}

// IsPush reports whether the iteration added code after the initial create.
func (i Iteration) IsPush() bool {
	return i.Reason == IterationReasonPush || i.Reason == IterationReasonForcePush
}
