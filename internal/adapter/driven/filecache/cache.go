// Package filecache persists enriched pull requests between runs as a single
// schema-versioned JSON snapshot per (organization, project) pair.
//
// The cache is advisory. Load never fails a run: a missing, corrupt, or
// version-drifted snapshot degrades to a cold start with a warning.
package filecache

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/natefinch/atomic"

	"github.com/jamesbondev/pr-stats/internal/domain/model"
	"github.com/jamesbondev/pr-stats/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.PRCache = (*Cache)(nil)

const (
	// SchemaVersion must match exactly on load; any other version discards
	// the whole snapshot, no partial migration.
	SchemaVersion = 1

	appDirName      = "pr-stats"
	evictionHorizon = 180 * 24 * time.Hour
)

// snapshot is the on-disk envelope.
type snapshot struct {
	SchemaVersion int                       `json:"schemaVersion"`
	Organization  string                    `json:"organization"`
	Project       string                    `json:"project"`
	PullRequests  map[int]model.PullRequest `json:"pullRequests"`
}

// Cache stores snapshots under <baseDir>/pr-stats/cache.
type Cache struct {
	baseDir string
	now     func() time.Time
}

// New creates a Cache rooted at the user cache directory.
func New() (*Cache, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		return nil, fmt.Errorf("resolving user cache dir: %w", err)
	}
	return &Cache{baseDir: dir, now: time.Now}, nil
}

// NewAt creates a Cache rooted at an explicit directory. Intended for tests.
func NewAt(baseDir string) *Cache {
	return &Cache{baseDir: baseDir, now: time.Now}
}

// Path returns the snapshot path for the pair. The file name starts with the
// first 8 hex chars of SHA-256 over the lowercased "org|project" key, so
// repeated runs resolve to the same path regardless of input casing and
// without embedding the organization URL in the name.
func (c *Cache) Path(organization, project string) string {
	key := strings.ToLower(organization) + "|" + strings.ToLower(project)
	sum := sha256.Sum256([]byte(key))
	prefix := hex.EncodeToString(sum[:4])

	return filepath.Join(c.baseDir, appDirName, "cache", fmt.Sprintf("%s-%s.json", prefix, project))
}

// Load reads the snapshot for the pair. Missing files, parse failures, and
// schema-version mismatches all return an empty map.
func (c *Cache) Load(organization, project string) (map[int]model.PullRequest, error) {
	path := c.Path(organization, project)

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[int]model.PullRequest{}, nil
	}
	if err != nil {
		slog.Warn("cache unreadable, starting cold", "path", path, "error", err)
		return map[int]model.PullRequest{}, nil
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		slog.Warn("cache corrupt, discarding", "path", path, "error", err)
		return map[int]model.PullRequest{}, nil
	}

	if snap.SchemaVersion != SchemaVersion {
		slog.Warn("cache schema version mismatch, discarding",
			"path", path,
			"found", snap.SchemaVersion,
			"want", SchemaVersion,
		)
		return map[int]model.PullRequest{}, nil
	}

	if snap.PullRequests == nil {
		return map[int]model.PullRequest{}, nil
	}

	return snap.PullRequests, nil
}

// Save evicts entries older than the eviction horizon (relevant date = later
// of creation and close, relative to save time) and writes the survivors via
// a temp file and atomic rename, so a crash mid-write never corrupts the
// previous snapshot.
func (c *Cache) Save(organization, project string, pullRequests map[int]model.PullRequest) error {
	cutoff := c.now().Add(-evictionHorizon)

	survivors := make(map[int]model.PullRequest, len(pullRequests))
	for id, pr := range pullRequests {
		if !pr.RelevantDate().Before(cutoff) {
			survivors[id] = pr
		}
	}

	snap := snapshot{
		SchemaVersion: SchemaVersion,
		Organization:  organization,
		Project:       project,
		PullRequests:  survivors,
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding cache snapshot: %w", err)
	}

	path := c.Path(organization, project)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating cache dir: %w", err)
	}

	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("writing cache snapshot %s: %w", path, err)
	}

	slog.Debug("cache saved", "path", path, "entries", len(survivors), "evicted", len(pullRequests)-len(survivors))
	return nil
}

// Delete removes the snapshot for the pair. A missing snapshot is not an
// error.
func (c *Cache) Delete(organization, project string) error {
	err := os.Remove(c.Path(organization, project))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("deleting cache snapshot: %w", err)
	}
	return nil
}
