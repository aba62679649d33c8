package driven

import "github.com/jamesbondev/pr-stats/internal/domain/model"

// ReportStore writes and reads the exported report snapshot. Unlike the
// cache, a malformed report is a hard error surfaced to the caller.
type ReportStore interface {
	Save(path string, report model.Report) error
	Load(path string) (*model.Report, error)
}
