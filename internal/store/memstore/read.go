package memstore

import (
	"context"
	"fmt"

	"github.com/litetable/litetable-access/internal/litetable"
	"github.com/litetable/litetable-access/internal/store"
	"github.com/rs/zerolog/log"
)

// Get returns a copy of the row restricted to families, or nil when the row does not exist or
// carries none of the families.
func (s *Store) Get(ctx context.Context, key litetable.RowKey,
	families []string) (*litetable.Row, error) {
	if err := s.checkOpen(ctx); err != nil {
		return nil, err
	}
	if key == nil {
		return nil, fmt.Errorf("%w: get needs a row key", store.ErrInvalidRequest)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	row, found := s.rows.Get(&litetable.Row{Key: key})
	if !found {
		return nil, nil
	}
	return (&store.Scan{Families: families}).Project(row.Clone()), nil
}

// Scan opens a scanner over sc. Rows are read from the tree in batches of sc.Caching, each
// batch under its own read lock, so writers are not blocked for the length of the scan.
func (s *Store) Scan(ctx context.Context, sc *store.Scan) (store.Scanner, error) {
	if err := s.checkOpen(ctx); err != nil {
		return nil, err
	}
	if err := validateScan(sc); err != nil {
		return nil, err
	}

	caching := sc.Caching
	if caching < 1 {
		caching = 1
	}
	spec := *sc
	return &scanner{
		ctx:     ctx,
		store:   s,
		scan:    &spec,
		caching: caching,
		cursor:  append(litetable.RowKey(nil), sc.Start...),
	}, nil
}

// AggregateCount counts the rows of sc that pass its filter and keep at least one cell after
// projection.
func (s *Store) AggregateCount(ctx context.Context, sc *store.Scan) (int64, error) {
	if err := s.checkOpen(ctx); err != nil {
		return 0, err
	}
	if err := validateScan(sc); err != nil {
		return 0, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int64
	s.rows.AscendGreaterOrEqual(&litetable.Row{Key: sc.Start}, func(row *litetable.Row) bool {
		if !sc.Contains(row.Key) {
			return false
		}
		if selected(sc, row) != nil {
			count++
		}
		return true
	})
	return count, nil
}

func validateScan(sc *store.Scan) error {
	if sc == nil {
		return fmt.Errorf("%w: scan is nil", store.ErrInvalidRequest)
	}
	if sc.Start == nil || sc.Stop == nil {
		return fmt.Errorf("%w: scan needs start and stop keys", store.ErrInvalidRequest)
	}
	if len(sc.Stop) > 0 && sc.Start.Compare(sc.Stop) > 0 {
		return fmt.Errorf("%w: scan start %s is after stop %s", store.ErrInvalidRequest,
			sc.Start, sc.Stop)
	}
	return nil
}

// selected applies the filter to the full row and then projects it. It returns nil when the
// row is not part of the result.
func selected(sc *store.Scan, row *litetable.Row) *litetable.Row {
	if sc.Filter != nil {
		ok, err := sc.Filter.Match(row)
		if err != nil {
			log.Debug().Err(err).Msgf("Filter skipped row %s", row.Key)
			return nil
		}
		if !ok {
			return nil
		}
	}
	return sc.Project(row)
}

type scanner struct {
	ctx     context.Context
	store   *Store
	scan    *store.Scan
	caching int

	cursor litetable.RowKey
	batch  []*litetable.Row
	pos    int
	row    *litetable.Row
	done   bool
	closed bool
	err    error
}

func (sc *scanner) Next() bool {
	if sc.closed || sc.err != nil {
		return false
	}
	for sc.pos >= len(sc.batch) {
		if sc.done {
			sc.row = nil
			return false
		}
		if err := sc.store.checkOpen(sc.ctx); err != nil {
			sc.err = err
			return false
		}
		sc.fetch()
	}
	sc.row = sc.batch[sc.pos]
	sc.pos++
	return true
}

// fetch reads the next batch starting at the cursor.
func (sc *scanner) fetch() {
	sc.batch = sc.batch[:0]
	sc.pos = 0

	sc.store.mu.RLock()
	defer sc.store.mu.RUnlock()

	var last litetable.RowKey
	full := false
	sc.store.rows.AscendGreaterOrEqual(&litetable.Row{Key: sc.cursor},
		func(row *litetable.Row) bool {
			if !sc.scan.Contains(row.Key) {
				return false
			}
			last = row.Key
			if out := selected(sc.scan, row); out != nil {
				sc.batch = append(sc.batch, out.Clone())
			}
			if len(sc.batch) >= sc.caching {
				full = true
				return false
			}
			return true
		})

	if !full {
		sc.done = true
		return
	}
	// the smallest key after last
	sc.cursor = append(append(litetable.RowKey(nil), last...), 0x00)
}

func (sc *scanner) Row() *litetable.Row {
	return sc.row
}

func (sc *scanner) Err() error {
	return sc.err
}

func (sc *scanner) Close() error {
	sc.closed = true
	sc.batch = nil
	sc.row = nil
	return nil
}
