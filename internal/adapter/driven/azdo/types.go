package azdo

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/jamesbondev/pr-stats/internal/domain/model"
)

// Wire DTOs for the Azure DevOps REST API (camelCase JSON). Mapping to domain
// types happens here and nowhere else.

type listResponse[T any] struct {
	Value []T `json:"value"`
	Count int `json:"count"`
}

type wireIdentity struct {
	DisplayName string `json:"displayName"`
	ID          string `json:"id"`
}

type wireRepository struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type wireReviewer struct {
	DisplayName string `json:"displayName"`
	ID          string `json:"id"`
	Vote        int    `json:"vote"`
	IsContainer bool   `json:"isContainer"`
	IsRequired  bool   `json:"isRequired"`
}

type wirePullRequest struct {
	PullRequestID int             `json:"pullRequestId"`
	Title         string          `json:"title"`
	Status        string          `json:"status"`
	IsDraft       bool            `json:"isDraft"`
	CreationDate  time.Time       `json:"creationDate"`
	ClosedDate    *time.Time      `json:"closedDate"`
	CreatedBy     *wireIdentity   `json:"createdBy"`
	ClosedBy      *wireIdentity   `json:"closedBy"`
	Repository    *wireRepository `json:"repository"`
	Reviewers     []wireReviewer  `json:"reviewers"`
}

type wireComment struct {
	Author      *wireIdentity `json:"author"`
	CommentType string        `json:"commentType"`
}

// wireProperty is one entry of the loosely-typed property bag Azure DevOps
// attaches to threads: {"$type": "System.Int32", "$value": ...}. The value
// arrives as a string or a number depending on the type.
type wireProperty struct {
	Type  string          `json:"$type"`
	Value json.RawMessage `json:"$value"`
}

type wireThread struct {
	ID            int                     `json:"id"`
	PublishedDate time.Time               `json:"publishedDate"`
	Status        string                  `json:"status"`
	Comments      []wireComment           `json:"comments"`
	Properties    map[string]wireProperty `json:"properties"`
}

type wireCommit struct {
	CommitID string `json:"commitId"`
}

type wireIteration struct {
	ID          *int         `json:"id"`
	CreatedDate *time.Time   `json:"createdDate"`
	Reason      string       `json:"reason"`
	Commits     []wireCommit `json:"commits"`
}

type wireChangeEntry struct {
	ChangeID int `json:"changeId"`
}

type iterationChangesResponse struct {
	ChangeEntries []wireChangeEntry `json:"changeEntries"`
}

type wireBuildDefinition struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type wireBuild struct {
	ID            int                  `json:"id"`
	Definition    *wireBuildDefinition `json:"definition"`
	Status        string               `json:"status"`
	Result        string               `json:"result"`
	QueueTime     *time.Time           `json:"queueTime"`
	StartTime     *time.Time           `json:"startTime"`
	FinishTime    *time.Time           `json:"finishTime"`
	SourceVersion string               `json:"sourceVersion"`
}

// threadProperties is the decoded form of the thread property bag: an
// explicitly tagged classification decoded once at this boundary.
type threadProperties struct {
	ThreadType string
	VoteValue  *int
}

const (
	propThreadType = "CodeReviewThreadType"
	propVoteResult = "CodeReviewVoteResult"
)

func decodeThreadProperties(props map[string]wireProperty) threadProperties {
	var decoded threadProperties

	if p, ok := props[propThreadType]; ok {
		var s string
		if err := json.Unmarshal(p.Value, &s); err == nil {
			decoded.ThreadType = s
		}
	}

	if p, ok := props[propVoteResult]; ok {
		if v, ok := decodeIntProperty(p.Value); ok {
			decoded.VoteValue = &v
		}
	}

	return decoded
}

// decodeIntProperty accepts both number and quoted-string encodings of an
// integer property value.
func decodeIntProperty(raw json.RawMessage) (int, bool) {
	var n int
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, true
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return n, true
		}
	}

	return 0, false
}

func mapPullRequest(pr wirePullRequest) model.PullRequest {
	var status model.PRStatus
	switch strings.ToLower(pr.Status) {
	case "completed":
		status = model.PRStatusCompleted
	case "abandoned":
		status = model.PRStatusAbandoned
	default:
		status = model.PRStatusActive
	}

	mapped := model.PullRequest{
		ID:           pr.PullRequestID,
		Title:        pr.Title,
		Status:       status,
		IsDraft:      pr.IsDraft,
		CreationDate: pr.CreationDate,
		ClosedDate:   pr.ClosedDate,
		Reviewers:    make([]model.Reviewer, 0, len(pr.Reviewers)),
	}

	if pr.Repository != nil {
		mapped.RepositoryID = pr.Repository.ID
		mapped.RepositoryName = pr.Repository.Name
	}
	if mapped.RepositoryName == "" {
		mapped.RepositoryName = "Unknown"
	}

	if pr.CreatedBy != nil {
		mapped.AuthorDisplayName = pr.CreatedBy.DisplayName
		mapped.AuthorID = pr.CreatedBy.ID
	}
	if mapped.AuthorDisplayName == "" {
		mapped.AuthorDisplayName = "Unknown"
	}

	if pr.ClosedBy != nil {
		mapped.ClosedByDisplayName = pr.ClosedBy.DisplayName
		mapped.ClosedByID = pr.ClosedBy.ID
	}

	for _, r := range pr.Reviewers {
		mapped.Reviewers = append(mapped.Reviewers, model.Reviewer{
			DisplayName: r.DisplayName,
			ID:          r.ID,
			Vote:        r.Vote,
			IsContainer: r.IsContainer,
			IsRequired:  r.IsRequired,
		})
	}

	return mapped
}

func mapThread(t wireThread) model.Thread {
	props := decodeThreadProperties(t.Properties)
	isVoteUpdate := strings.EqualFold(props.ThreadType, "VoteUpdate")

	var voteValue *int
	if isVoteUpdate {
		voteValue = props.VoteValue
	}

	kind := model.ThreadKindUnknown
	if len(t.Comments) > 0 {
		switch t.Comments[0].CommentType {
		case "text":
			kind = model.ThreadKindText
		case "system":
			kind = model.ThreadKindSystem
		case "codeChange":
			kind = model.ThreadKindCodeChange
		}
	}

	// Any system thread type (VoteUpdate, StatusUpdate, ...) is a system
	// thread regardless of the first comment's type.
	if props.ThreadType != "" && !strings.EqualFold(props.ThreadType, "Text") {
		kind = model.ThreadKindSystem
	}

	mapped := model.Thread{
		ID:            t.ID,
		Kind:          kind,
		PublishedDate: t.PublishedDate,
		Status:        mapThreadStatus(t.Status),
		CommentCount:  len(t.Comments),
		IsVoteUpdate:  isVoteUpdate,
		VoteValue:     voteValue,
	}

	if len(t.Comments) > 0 && t.Comments[0].Author != nil {
		mapped.AuthorDisplayName = t.Comments[0].Author.DisplayName
		mapped.AuthorID = t.Comments[0].Author.ID
	}
	if mapped.AuthorDisplayName == "" {
		mapped.AuthorDisplayName = "Unknown"
	}

	return mapped
}

func mapThreadStatus(s string) model.ThreadStatus {
	switch s {
	case "fixed":
		return model.ThreadStatusFixed
	case "closed":
		return model.ThreadStatusClosed
	case "wontFix":
		return model.ThreadStatusWontFix
	case "byDesign":
		return model.ThreadStatusByDesign
	case "active":
		return model.ThreadStatusActive
	case "pending":
		return model.ThreadStatusPending
	default:
		return model.ThreadStatusUnknown
	}
}

func mapIteration(i wireIteration) model.Iteration {
	mapped := model.Iteration{
		Reason: model.IterationReason(i.Reason),
	}
	if i.ID != nil {
		mapped.ID = *i.ID
	}
	if i.CreatedDate != nil {
		mapped.CreatedDate = *i.CreatedDate
	}
	return mapped
}

func mapBuild(b wireBuild) model.BuildRun {
	mapped := model.BuildRun{
		ID:            b.ID,
		PipelineName:  "Unknown",
		Status:        b.Status,
		Result:        model.BuildResult(b.Result),
		StartTime:     b.StartTime,
		FinishTime:    b.FinishTime,
		SourceVersion: b.SourceVersion,
	}
	if b.Definition != nil {
		mapped.PipelineName = b.Definition.Name
		mapped.PipelineID = b.Definition.ID
	}
	if b.QueueTime != nil {
		mapped.QueueTime = *b.QueueTime
	}
	return mapped
}
