// Package reportfile writes and reads the exported report snapshot as JSON.
package reportfile

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/natefinch/atomic"

	"github.com/jamesbondev/pr-stats/internal/domain/model"
	"github.com/jamesbondev/pr-stats/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.ReportStore = (*Store)(nil)

// Store persists reports at caller-supplied paths.
type Store struct{}

// New creates a Store.
func New() *Store {
	return &Store{}
}

// Save writes the report with an atomic rename so readers never observe a
// partial file.
func (s *Store) Save(path string, report model.Report) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}

	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("writing report %s: %w", path, err)
	}

	return nil
}

// Load reads a previously exported report. Unlike the cache, malformed input
// here is a hard error: downstream consumers must not operate on a report
// they cannot trust.
func (s *Store) Load(path string) (*model.Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading report %s: %w", path, err)
	}

	var report model.Report
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("parsing report %s: %w", path, err)
	}

	if report.SchemaVersion != model.ReportSchemaVersion {
		return nil, fmt.Errorf("report %s: unsupported schema version %d (want %d)",
			path, report.SchemaVersion, model.ReportSchemaVersion)
	}

	return &report, nil
}
