// Package memstore is an in-process implementation of the store: rows are kept in a B-tree
// ordered by key, mutations are optionally journaled to a WAL and announced to a CDC emitter,
// and the table can be snapshotted to disk.
package memstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/btree"
	"github.com/litetable/litetable-access/internal/cdc_emitter"
	"github.com/litetable/litetable-access/internal/litetable"
	"github.com/litetable/litetable-access/internal/store"
	"github.com/litetable/litetable-access/internal/wal"
	"github.com/rs/zerolog/log"
)

const btreeDegree = 32

type journal interface {
	Apply(e *wal.Entry) error
	Load(apply func(*wal.Entry) error) error
	Truncate() error
	Close() error
}

type snapshotter interface {
	Save(rows []*litetable.Row) (string, error)
	Latest() ([]*litetable.Row, error)
}

type emitter interface {
	Emit(params *cdc_emitter.CDCParams)
}

type Config struct {
	// Families lists the column families the table accepts. Empty accepts any family.
	Families []string
	// WAL journals every mutation before it is applied. Optional.
	WAL journal
	// CDC receives every applied mutation. Optional.
	CDC emitter
	// Snapshots persists full copies of the table. Optional.
	Snapshots snapshotter
	// SnapshotInterval is how often a snapshot is taken while running. Zero only snapshots on
	// Stop.
	SnapshotInterval time.Duration
}

func (c *Config) validate() error {
	var errGrp []error
	if c.SnapshotInterval < 0 {
		errGrp = append(errGrp, errors.New("snapshot interval cannot be negative"))
	}
	if c.SnapshotInterval > 0 && c.Snapshots == nil {
		errGrp = append(errGrp, errors.New("snapshot interval needs a snapshot manager"))
	}
	seen := make(map[string]struct{}, len(c.Families))
	for _, f := range c.Families {
		if f == "" {
			errGrp = append(errGrp, errors.New("column family cannot be empty"))
			continue
		}
		if _, dup := seen[f]; dup {
			errGrp = append(errGrp, fmt.Errorf("duplicate column family: %s", f))
		}
		seen[f] = struct{}{}
	}
	return errors.Join(errGrp...)
}

// Store is a single sorted table. It is both the store.Provider and, through the handles it
// hands out, the store.Handle.
type Store struct {
	mu       sync.RWMutex
	rows     *btree.BTreeG[*litetable.Row]
	families map[string]struct{}

	journal   journal
	emitter   emitter
	snapshots snapshotter
	interval  time.Duration

	procCtx   context.Context
	ctxCancel context.CancelFunc
	loopDone  chan struct{}

	outstanding atomic.Int64
	closed      atomic.Bool
}

func New(cfg *Config) (*Store, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Store{
		rows:      btree.NewG[*litetable.Row](btreeDegree, lessRow),
		journal:   cfg.WAL,
		emitter:   cfg.CDC,
		snapshots: cfg.Snapshots,
		interval:  cfg.SnapshotInterval,
		procCtx:   ctx,
		ctxCancel: cancel,
	}
	if len(cfg.Families) > 0 {
		s.families = make(map[string]struct{}, len(cfg.Families))
		for _, f := range cfg.Families {
			s.families[f] = struct{}{}
		}
	}
	return s, nil
}

func lessRow(a, b *litetable.Row) bool {
	return bytes.Compare(a.Key, b.Key) < 0
}

// Start loads the latest snapshot, replays the WAL on top of it and, with a snapshot interval,
// starts taking snapshots in the background. Replaying entries a snapshot already covers is
// harmless: puts and deletes converge on the same rows.
func (s *Store) Start() error {
	if err := s.load(); err != nil {
		return err
	}
	if s.interval <= 0 {
		return nil
	}

	s.loopDone = make(chan struct{})
	go func() {
		defer close(s.loopDone)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-s.procCtx.Done():
				return
			case <-ticker.C:
				if err := s.Checkpoint(); err != nil {
					log.Error().Err(err).Msg("Periodic snapshot failed")
				}
			}
		}
	}()
	return nil
}

func (s *Store) load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.snapshots != nil {
		rows, err := s.snapshots.Latest()
		if err != nil {
			return fmt.Errorf("failed to load snapshot: %w", err)
		}
		for _, r := range rows {
			if len(r.Key) == 0 {
				continue
			}
			s.rows.ReplaceOrInsert(r)
		}
	}

	if s.journal != nil {
		if err := s.journal.Load(func(e *wal.Entry) error {
			s.apply(e)
			return nil
		}); err != nil {
			return fmt.Errorf("failed to replay WAL: %w", err)
		}
	}
	log.Info().Msgf("Memory store loaded %d rows", s.rows.Len())
	return nil
}

// Checkpoint writes a snapshot of the table and empties the WAL it covers. Writers wait until
// both are done. It is a no-op without a snapshot manager.
func (s *Store) Checkpoint() error {
	if s.snapshots == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rows := make([]*litetable.Row, 0, s.rows.Len())
	s.rows.Ascend(func(r *litetable.Row) bool {
		rows = append(rows, r)
		return true
	})
	file, err := s.snapshots.Save(rows)
	if err != nil {
		return err
	}
	if s.journal != nil {
		if err := s.journal.Truncate(); err != nil {
			return err
		}
	}
	log.Debug().Msgf("Snapshot of %d rows written to %s", len(rows), file)
	return nil
}

// Stop refuses new handles, takes a final snapshot and closes the WAL.
func (s *Store) Stop() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	s.ctxCancel()
	if s.loopDone != nil {
		<-s.loopDone
	}

	var errs []error
	if err := s.Checkpoint(); err != nil {
		errs = append(errs, fmt.Errorf("final snapshot: %w", err))
	}
	if s.journal != nil {
		errs = append(errs, s.journal.Close())
	}
	return errors.Join(errs...)
}

func (s *Store) Name() string {
	return "Memory Store"
}

// Len returns the number of rows in the table.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rows.Len()
}

type handle struct {
	*Store
	released atomic.Bool
}

// Acquire hands out a handle to the table.
func (s *Store) Acquire(ctx context.Context) (store.Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.closed.Load() {
		return nil, store.ErrClosed
	}
	s.outstanding.Add(1)
	return &handle{Store: s}, nil
}

// Release returns a handle. Releasing the same handle twice is a no-op.
func (s *Store) Release(h store.Handle) {
	hd, ok := h.(*handle)
	if !ok || hd.Store != s {
		log.Warn().Msgf("Memory store asked to release a foreign handle %T", h)
		return
	}
	if hd.released.CompareAndSwap(false, true) {
		s.outstanding.Add(-1)
	}
}

// Outstanding returns the number of acquired handles not yet released.
func (s *Store) Outstanding() int64 {
	return s.outstanding.Load()
}

// commit journals, applies and announces a mutation. The caller holds the write lock.
func (s *Store) commit(e *wal.Entry) error {
	if s.journal != nil {
		if err := s.journal.Apply(e); err != nil {
			return fmt.Errorf("failed to journal %s of row %s: %w", e.Operation, e.Row, err)
		}
	}
	s.apply(e)
	if s.emitter != nil {
		s.emitter.Emit(&cdc_emitter.CDCParams{
			Operation: e.Operation,
			Row:       e.Row,
			Cells:     e.Cells,
			Timestamp: e.Timestamp,
		})
	}
	return nil
}

// apply mutates the tree. The caller holds the write lock.
func (s *Store) apply(e *wal.Entry) {
	switch e.Operation {
	case litetable.OperationPut, litetable.OperationCheckAndPut:
		row, found := s.rows.Get(&litetable.Row{Key: e.Row})
		if !found {
			row = litetable.NewRow(append(litetable.RowKey(nil), e.Row...))
		}
		for _, c := range e.Cells {
			row.Set(c.Family, c.Qualifier, append([]byte(nil), c.Value...))
		}
		s.rows.ReplaceOrInsert(row)
	case litetable.OperationDelete:
		s.rows.Delete(&litetable.Row{Key: e.Row})
	}
}

func (s *Store) checkOpen(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.closed.Load() {
		return store.ErrClosed
	}
	return nil
}

func (s *Store) validatePut(p *store.Put) error {
	if p == nil {
		return fmt.Errorf("%w: put is nil", store.ErrInvalidRequest)
	}
	if len(p.Row) == 0 {
		return fmt.Errorf("%w: put needs a row key", store.ErrInvalidRequest)
	}
	if len(p.Cells) == 0 {
		return fmt.Errorf("%w: put of row %s has no cells", store.ErrInvalidRequest, p.Row)
	}
	for _, c := range p.Cells {
		if c.Family == "" || c.Qualifier == "" {
			return fmt.Errorf("%w: cell of row %s needs a family and qualifier",
				store.ErrInvalidRequest, p.Row)
		}
		if s.families == nil {
			continue
		}
		if _, ok := s.families[c.Family]; !ok {
			return fmt.Errorf("%w: %s", store.ErrFamilyNotAllowed, c.Family)
		}
	}
	return nil
}

func putEntry(op litetable.Operation, p *store.Put) *wal.Entry {
	return &wal.Entry{
		Operation: op,
		Row:       p.Row,
		Cells:     p.Cells,
		Timestamp: time.Now(),
	}
}
