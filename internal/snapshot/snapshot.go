// Package snapshot keeps full copies of a table on disk. The newest snapshot plus the WAL
// written after it reconstruct the table.
package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/litetable/litetable-access/internal/litetable"
	"github.com/rs/zerolog/log"
)

const (
	dataDiskName = ".table"
	snapshotDir  = "snapshots"
	filePattern  = "snapshot-*.db"

	defaultSnapshotLimit = 10
	maxSnapshotLimit     = 50
)

type Config struct {
	// RootDir is the data directory. Snapshots live under RootDir/.table/snapshots.
	RootDir string
	// Limit is how many snapshots are kept. Zero keeps the default of 10.
	Limit int
}

func (c *Config) validate() error {
	var errGrp []error
	if c.RootDir == "" {
		errGrp = append(errGrp, errors.New("data directory is required"))
	}
	if c.Limit < 0 || c.Limit > maxSnapshotLimit {
		errGrp = append(errGrp, fmt.Errorf("snapshot limit must be between 1 and %d", maxSnapshotLimit))
	}
	return errors.Join(errGrp...)
}

// Manager writes, prunes and reads snapshot files.
type Manager struct {
	dir   string
	limit int
	// now names new files; tests pin it.
	now func() time.Time
}

func New(cfg *Config) (*Manager, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	dir := filepath.Join(cfg.RootDir, dataDiskName, snapshotDir)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	limit := cfg.Limit
	if limit == 0 {
		limit = defaultSnapshotLimit
	}
	return &Manager{
		dir:   dir,
		limit: limit,
		now:   time.Now,
	}, nil
}

// Dir returns the directory snapshots are written to.
func (m *Manager) Dir() string {
	return m.dir
}

// Save writes rows as a new snapshot and prunes the oldest ones beyond the limit. The file is
// renamed into place, so a crash never leaves a partial snapshot behind.
func (m *Manager) Save(rows []*litetable.Row) (string, error) {
	if rows == nil {
		rows = []*litetable.Row{}
	}
	dataBytes, err := json.Marshal(rows)
	if err != nil {
		return "", fmt.Errorf("failed to serialize snapshot: %w", err)
	}

	filename := filepath.Join(m.dir, fmt.Sprintf("snapshot-%d.db", m.now().UnixNano()))
	tmp := filename + ".tmp"
	if err = os.WriteFile(tmp, dataBytes, 0640); err != nil {
		return "", fmt.Errorf("failed to write snapshot file: %w", err)
	}
	if err = os.Rename(tmp, filename); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("failed to commit snapshot file: %w", err)
	}

	m.prune()
	return filename, nil
}

// Latest reads the newest snapshot. It returns nil rows when there is none.
func (m *Manager) Latest() ([]*litetable.Row, error) {
	files, err := m.list()
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, nil
	}

	latest := files[len(files)-1]
	dataBytes, err := os.ReadFile(latest)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot %s: %w", latest, err)
	}

	var rows []*litetable.Row
	if err := json.Unmarshal(dataBytes, &rows); err != nil {
		return nil, fmt.Errorf("failed to parse snapshot %s: %w", latest, err)
	}
	log.Debug().Msgf("Loaded %d rows from snapshot %s", len(rows), latest)
	return rows, nil
}

// list returns the snapshot files oldest first. Names carry a fixed-width nanosecond
// timestamp, so lexical order is chronological.
func (m *Manager) list() ([]string, error) {
	files, err := filepath.Glob(filepath.Join(m.dir, filePattern))
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshot files: %w", err)
	}
	sort.Strings(files)
	return files, nil
}

func (m *Manager) prune() {
	files, err := m.list()
	if err != nil {
		log.Error().Err(err).Msg("Snapshot prune skipped")
		return
	}
	if len(files) <= m.limit {
		return
	}

	for _, f := range files[:len(files)-m.limit] {
		if err := os.Remove(f); err != nil {
			log.Error().Err(err).Msgf("Failed to remove old snapshot %s", f)
			continue
		}
		log.Debug().Msgf("Pruned old snapshot: %s", f)
	}
}
