package memstore

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/litetable/litetable-access/internal/litetable"
	"github.com/litetable/litetable-access/internal/store"
	"github.com/litetable/litetable-access/internal/wal"
	"github.com/rs/zerolog/log"
)

// Put applies every cell of p to the row as one mutation.
func (s *Store) Put(ctx context.Context, p *store.Put) error {
	if err := s.checkOpen(ctx); err != nil {
		return err
	}
	if err := s.validatePut(p); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commit(putEntry(litetable.OperationPut, p))
}

// Delete removes the row. Deleting a missing row succeeds.
func (s *Store) Delete(ctx context.Context, d *store.Delete) error {
	if err := s.checkOpen(ctx); err != nil {
		return err
	}
	if d == nil || len(d.Row) == 0 {
		return fmt.Errorf("%w: delete needs a row key", store.ErrInvalidRequest)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleteLocked(d)
}

func (s *Store) deleteLocked(d *store.Delete) error {
	if _, found := s.rows.Get(&litetable.Row{Key: d.Row}); !found {
		return nil
	}
	return s.commit(&wal.Entry{
		Operation: litetable.OperationDelete,
		Row:       d.Row,
		Timestamp: time.Now(),
	})
}

// CheckAndPut applies p when the cell at column equals expected, or is absent when expected is
// nil. The comparison and the write happen under one lock.
func (s *Store) CheckAndPut(ctx context.Context, column litetable.Column, expected []byte,
	p *store.Put) (bool, error) {
	if err := s.checkOpen(ctx); err != nil {
		return false, err
	}
	if err := s.validatePut(p); err != nil {
		return false, err
	}
	if column.Family == "" || column.Qualifier == "" {
		return false, fmt.Errorf("%w: check column needs a family and qualifier",
			store.ErrInvalidRequest)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		current []byte
		present bool
	)
	if row, found := s.rows.Get(&litetable.Row{Key: p.Row}); found {
		current, present = row.Value(column.Family, column.Qualifier)
	}

	switch {
	case expected == nil && present:
		log.Debug().Msgf("CheckAndPut on %s rejected: %s is present", p.Row, column)
		return false, nil
	case expected != nil && (!present || !bytes.Equal(current, expected)):
		log.Debug().Msgf("CheckAndPut on %s rejected: %s does not match", p.Row, column)
		return false, nil
	}

	if err := s.commit(putEntry(litetable.OperationCheckAndPut, p)); err != nil {
		return false, err
	}
	return true, nil
}

// BatchDelete deletes every row in deletes and returns the deletes that were not applied.
func (s *Store) BatchDelete(ctx context.Context, deletes []*store.Delete) ([]*store.Delete,
	error) {
	if err := s.checkOpen(ctx); err != nil {
		return deletes, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i, d := range deletes {
		if d == nil || len(d.Row) == 0 {
			return deletes[i:], fmt.Errorf("%w: delete %d needs a row key",
				store.ErrInvalidRequest, i)
		}
		if err := s.deleteLocked(d); err != nil {
			return deletes[i:], err
		}
	}
	return nil, nil
}
