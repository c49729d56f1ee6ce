// Package store defines the primitive operations the access engine issues against a sorted,
// column-family key-value store, and the provider that hands out store handles.
//
// Implementations live in memstore (in-process B-tree) and remote (gRPC client of a store
// daemon).
package store

import (
	"bytes"
	"context"
	"errors"

	"github.com/litetable/litetable-access/internal/litetable"
)

//go:generate mockgen -destination=store_mock.go -package=store -source=store.go

var (
	ErrFamilyNotAllowed = errors.New("column family not allowed")
	ErrInvalidRequest   = errors.New("invalid store request")
	ErrClosed           = errors.New("store is closed")
)

// Filter is a predicate evaluated by the store against a full row during a scan. A row whose
// evaluation fails is treated as not matching.
type Filter interface {
	Match(row *litetable.Row) (bool, error)
}

// Put is an atomic mutation of one row.
type Put struct {
	Row   litetable.RowKey `json:"row"`
	Cells []litetable.Cell `json:"cells"`
}

// Delete removes an entire row.
type Delete struct {
	Row litetable.RowKey `json:"row"`
}

// Scan describes a range scan.
//
// The range is [Start, Stop). An empty Stop scans to the end of the table, and Start equal to
// Stop addresses exactly that one row.
type Scan struct {
	Start litetable.RowKey
	Stop  litetable.RowKey
	// Caching is the number of rows fetched per round trip. Values below 1 mean 1.
	Caching int
	// Families restricts the returned cells to these families. Empty returns every family.
	Families []string
	// Columns restricts the returned cells to these columns; it is applied after Families.
	Columns []litetable.Column
	// Filter is evaluated against the full stored row, before any projection.
	Filter Filter
}

// Contains reports whether key falls inside the scan range.
func (s *Scan) Contains(key litetable.RowKey) bool {
	if bytes.Equal(s.Start, s.Stop) && len(s.Start) > 0 {
		return bytes.Equal(key, s.Start)
	}
	if bytes.Compare(key, s.Start) < 0 {
		return false
	}
	return len(s.Stop) == 0 || bytes.Compare(key, s.Stop) < 0
}

// Project returns the part of row selected by the scan, or nil when nothing is selected.
func (s *Scan) Project(row *litetable.Row) *litetable.Row {
	if len(s.Families) == 0 && len(s.Columns) == 0 {
		return row
	}

	families := make(map[string]struct{}, len(s.Families))
	for _, f := range s.Families {
		families[f] = struct{}{}
	}
	columns := make(map[litetable.Column]struct{}, len(s.Columns))
	for _, c := range s.Columns {
		columns[c] = struct{}{}
	}

	out := litetable.NewRow(row.Key)
	for family, quals := range row.Columns {
		if len(families) > 0 {
			if _, ok := families[family]; !ok {
				continue
			}
		}
		for qualifier, value := range quals {
			if len(columns) > 0 {
				if _, ok := columns[litetable.Column{Family: family, Qualifier: qualifier}]; !ok {
					continue
				}
			}
			out.Set(family, qualifier, value)
		}
	}
	if len(out.Columns) == 0 {
		return nil
	}
	return out
}

// Scanner iterates the rows of a scan in ascending key order.
type Scanner interface {
	// Next advances to the next row. It returns false at the end of the range or on error.
	Next() bool
	// Row returns the current row.
	Row() *litetable.Row
	// Err returns the error that stopped the scan, if any.
	Err() error
	// Close releases the scanner. It is safe to call more than once.
	Close() error
}

// Handle is a connection to one table of the store.
type Handle interface {
	// Get reads one row restricted to families. It returns nil when the row does not exist.
	Get(ctx context.Context, key litetable.RowKey, families []string) (*litetable.Row, error)
	// Put applies all cells of p as one atomic row mutation.
	Put(ctx context.Context, p *Put) error
	// Delete removes the whole row.
	Delete(ctx context.Context, d *Delete) error
	// CheckAndPut atomically applies p only when the cell at column currently equals
	// expected. A nil expected requires the cell to be absent. It reports whether p was
	// applied.
	CheckAndPut(ctx context.Context, column litetable.Column, expected []byte, p *Put) (bool,
		error)
	// Scan opens a scanner over s.
	Scan(ctx context.Context, s *Scan) (Scanner, error)
	// BatchDelete applies deletes and returns the ones the store did not acknowledge. A
	// fully successful call returns an empty remainder.
	BatchDelete(ctx context.Context, deletes []*Delete) ([]*Delete, error)
	// AggregateCount counts, on the store side, the rows of s that carry at least one of the
	// projected cells and pass its filter.
	AggregateCount(ctx context.Context, s *Scan) (int64, error)
}

// Provider hands out handles. Every acquired handle must be released exactly once.
type Provider interface {
	Acquire(ctx context.Context) (Handle, error)
	Release(h Handle)
}
