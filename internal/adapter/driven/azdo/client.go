// Package azdo implements the AzureDevOpsClient and BuildClient ports
// against the Azure DevOps REST API.
package azdo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/gregjones/httpcache"

	"github.com/jamesbondev/pr-stats/internal/domain/model"
	"github.com/jamesbondev/pr-stats/internal/domain/port/driven"
)

// Compile-time interface satisfaction checks.
var (
	_ driven.AzureDevOpsClient = (*Client)(nil)
	_ driven.BuildClient       = (*Client)(nil)
)

const (
	apiVersion = "7.1"
	pageSize   = 100
)

// Client talks to the Azure DevOps REST API with PAT basic auth over an
// ETag-caching transport. Every request goes through the retry executor.
type Client struct {
	http    *http.Client
	baseURL string // organization URL, e.g. https://dev.azure.com/myorg
	project string
	pat     string
}

// NewClient creates a client for the given organization URL and project.
// The transport stack is httpcache (conditional-request caching) over the
// default transport; retries are layered on per call, not per transport.
func NewClient(organizationURL, project, pat string) *Client {
	return &Client{
		http: &http.Client{
			Transport: httpcache.NewMemoryCacheTransport(),
			Timeout:   60 * time.Second,
		},
		baseURL: organizationURL,
		project: project,
		pat:     pat,
	}
}

// NewClientWithHTTPClient creates a Client with a custom http.Client and base
// URL. This constructor is intended for testing, allowing injection of an
// httptest server.
func NewClientWithHTTPClient(httpClient *http.Client, baseURL, project, pat string) *Client {
	return &Client{
		http:    httpClient,
		baseURL: baseURL,
		project: project,
		pat:     pat,
	}
}

// FetchPullRequestsByStatus retrieves all pull requests in the given status
// using offset pagination: request pages of pageSize until a short page.
func (c *Client) FetchPullRequestsByStatus(ctx context.Context, status model.PRStatus, minClosedTime *time.Time) ([]model.PullRequest, error) {
	var all []model.PullRequest
	skip := 0

	for {
		q := url.Values{}
		q.Set("api-version", apiVersion)
		q.Set("searchCriteria.status", string(status))
		if minClosedTime != nil {
			q.Set("searchCriteria.queryTimeRangeType", "closed")
			q.Set("searchCriteria.minTime", minClosedTime.UTC().Format(time.RFC3339))
		}
		q.Set("$skip", strconv.Itoa(skip))
		q.Set("$top", strconv.Itoa(pageSize))

		u := fmt.Sprintf("%s/%s/_apis/git/pullrequests?%s", c.baseURL, url.PathEscape(c.project), q.Encode())

		var page listResponse[wirePullRequest]
		if err := c.getJSON(ctx, u, &page); err != nil {
			return nil, fmt.Errorf("listing %s pull requests (skip %d): %w", status, skip, err)
		}

		for _, pr := range page.Value {
			all = append(all, mapPullRequest(pr))
		}

		if len(page.Value) < pageSize {
			break
		}
		skip += len(page.Value)
	}

	if all == nil {
		all = []model.PullRequest{}
	}

	return all, nil
}

// FetchThreads retrieves the comment threads of one pull request and decodes
// the thread property bag into the tagged domain representation.
func (c *Client) FetchThreads(ctx context.Context, repositoryID string, pullRequestID int) ([]model.Thread, error) {
	u := fmt.Sprintf("%s/%s/_apis/git/repositories/%s/pullRequests/%d/threads?api-version=%s",
		c.baseURL, url.PathEscape(c.project), url.PathEscape(repositoryID), pullRequestID, apiVersion)

	var resp listResponse[wireThread]
	if err := c.getJSON(ctx, u, &resp); err != nil {
		return nil, fmt.Errorf("listing threads for PR %d: %w", pullRequestID, err)
	}

	threads := make([]model.Thread, 0, len(resp.Value))
	for _, t := range resp.Value {
		threads = append(threads, mapThread(t))
	}

	return threads, nil
}

// FetchIterations retrieves the iterations of one pull request, including the
// commit ids nested in each iteration. Commit ids are returned raw; the
// pipeline deduplicates them.
func (c *Client) FetchIterations(ctx context.Context, repositoryID string, pullRequestID int) ([]model.Iteration, []string, error) {
	u := fmt.Sprintf("%s/%s/_apis/git/repositories/%s/pullRequests/%d/iterations?includeCommits=true&api-version=%s",
		c.baseURL, url.PathEscape(c.project), url.PathEscape(repositoryID), pullRequestID, apiVersion)

	var resp listResponse[wireIteration]
	if err := c.getJSON(ctx, u, &resp); err != nil {
		return nil, nil, fmt.Errorf("listing iterations for PR %d: %w", pullRequestID, err)
	}

	iterations := make([]model.Iteration, 0, len(resp.Value))
	var commitIDs []string
	for _, it := range resp.Value {
		iterations = append(iterations, mapIteration(it))
		for _, commit := range it.Commits {
			if commit.CommitID != "" {
				commitIDs = append(commitIDs, commit.CommitID)
			}
		}
	}

	return iterations, commitIDs, nil
}

// FetchIterationChangeCount returns the file-change count of the given
// iteration diffed against the merge base (compareTo=0).
func (c *Client) FetchIterationChangeCount(ctx context.Context, repositoryID string, pullRequestID, iterationID int) (int, error) {
	u := fmt.Sprintf("%s/%s/_apis/git/repositories/%s/pullRequests/%d/iterations/%d/changes?$compareTo=0&api-version=%s",
		c.baseURL, url.PathEscape(c.project), url.PathEscape(repositoryID), pullRequestID, iterationID, apiVersion)

	var resp iterationChangesResponse
	if err := c.getJSON(ctx, u, &resp); err != nil {
		return 0, fmt.Errorf("fetching iteration %d changes for PR %d: %w", iterationID, pullRequestID, err)
	}

	return len(resp.ChangeEntries), nil
}

// getJSON issues a GET through the retry executor and decodes the body.
// Non-2xx responses become *apiError so the executor can classify them.
func (c *Client) getJSON(ctx context.Context, rawURL string, out any) error {
	return executeWithRetry(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return err
		}
		req.SetBasicAuth("", c.pat)
		req.Header.Set("Accept", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			return err
		}
		defer func() { _ = resp.Body.Close() }()

		logRateLimit(resp, rawURL)

		if resp.StatusCode != http.StatusOK {
			// Drain so the transport can reuse the connection.
			_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
			return &apiError{StatusCode: resp.StatusCode, URL: rawURL}
		}

		return json.NewDecoder(resp.Body).Decode(out)
	})
}

// logRateLimit logs rate-limit headroom reported by the service.
func logRateLimit(resp *http.Response, endpoint string) {
	remaining := resp.Header.Get("X-RateLimit-Remaining")
	if remaining == "" {
		return
	}

	slog.Debug("azure devops api call",
		"endpoint", endpoint,
		"rate_remaining", remaining,
		"rate_limit", resp.Header.Get("X-RateLimit-Limit"),
	)

	if n, err := strconv.Atoi(remaining); err == nil && n < 100 {
		slog.Warn("azure devops rate limit low",
			"remaining", n,
			"retry_after", resp.Header.Get("Retry-After"),
		)
	}
}
