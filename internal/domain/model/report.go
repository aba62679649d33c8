package model

import "time"

// ReportSchemaVersion identifies the exported report shape. Loaders reject
// any other version.
const ReportSchemaVersion = 1

// Report is the exported run snapshot consumed by external renderers and
// the query assistant.
type Report struct {
	SchemaVersion         int           `json:"schemaVersion"`
	GeneratedAtUTC        time.Time     `json:"generatedAtUtc"`
	Organization          string        `json:"organization"`
	Project               string        `json:"project"`
	RepositoryDisplayName string        `json:"repositoryDisplayName"`
	Days                  int           `json:"days"`
	PullRequests          []PullRequest `json:"pullRequests"`
	Metrics               []PRMetrics   `json:"metrics"`
	TeamMetrics           TeamSummary   `json:"teamMetrics"`
}
