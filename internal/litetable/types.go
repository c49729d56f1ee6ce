package litetable

import (
	"bytes"
	"encoding/binary"
	"sort"
	"strconv"
)

// Operation identifies a row mutation. It is shared by the WAL and the CDC emitter.
type Operation int

const (
	OperationUnknown Operation = iota
	OperationPut
	OperationDelete
	OperationCheckAndPut
)

func (o Operation) String() string {
	switch o {
	case OperationPut:
		return "PUT"
	case OperationDelete:
		return "DELETE"
	case OperationCheckAndPut:
		return "CHECK_AND_PUT"
	default:
		return "UNKNOWN"
	}
}

// RowKey is the primary sort key of a row. Keys are compared bytewise, so callers that need a
// numeric ordering must encode numbers big-endian (see Int64Key).
//
// A nil RowKey is never valid. An empty, non-nil RowKey is the start of the table when used as
// a start key and the end of the table when used as a stop key.
type RowKey []byte

// StringKey returns the RowKey for s.
func StringKey(s string) RowKey {
	return RowKey(s)
}

// Int64Key returns a RowKey that sorts in the same order as non-negative int64 values.
func Int64Key(n int64) RowKey {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(n))
	return b
}

// Compare returns -1, 0 or 1 comparing k to other bytewise.
func (k RowKey) Compare(other RowKey) int {
	return bytes.Compare(k, other)
}

func (k RowKey) String() string {
	return strconv.Quote(string(k))
}

// Column addresses a cell within a row.
type Column struct {
	Family    string `json:"family"`
	Qualifier string `json:"qualifier"`
}

func (c Column) String() string {
	return c.Family + ":" + c.Qualifier
}

// Cell is a single value stored at (family, qualifier).
type Cell struct {
	Family    string `json:"family"`
	Qualifier string `json:"qualifier"`
	Value     []byte `json:"value"`
}

// Qualifier maps qualifier names to cell values within one family.
type Qualifier map[string][]byte

// Row defines a row of data:
//
// Example:
//
//	Row{
//	  Key: RowKey("row1"),
//	  Columns: map[string]Qualifier{
//	    "family1": {
//	      "qualifier1": []byte("value1"),
//	      "qualifier2": []byte("value2"),
//	    },
//	    "family2": {
//	      "qualifier1": []byte("value3"),
//	    },
//	  },
//	}
type Row struct {
	Key     RowKey               `json:"key"`
	Columns map[string]Qualifier `json:"cols"` // family -> qualifier -> value
}

// NewRow returns an empty row for key.
func NewRow(key RowKey) *Row {
	return &Row{
		Key:     key,
		Columns: make(map[string]Qualifier),
	}
}

// Set stores value at (family, qualifier), creating the family if needed.
func (r *Row) Set(family, qualifier string, value []byte) {
	if r.Columns == nil {
		r.Columns = make(map[string]Qualifier)
	}
	fam, exists := r.Columns[family]
	if !exists {
		fam = make(Qualifier)
		r.Columns[family] = fam
	}
	fam[qualifier] = value
}

// Value returns the value stored at (family, qualifier).
func (r *Row) Value(family, qualifier string) ([]byte, bool) {
	if r == nil {
		return nil, false
	}
	fam, exists := r.Columns[family]
	if !exists {
		return nil, false
	}
	v, exists := fam[qualifier]
	return v, exists
}

// Cells flattens the row into cells ordered by family then qualifier.
func (r *Row) Cells() []Cell {
	var cells []Cell
	for family, quals := range r.Columns {
		for qualifier, value := range quals {
			cells = append(cells, Cell{Family: family, Qualifier: qualifier, Value: value})
		}
	}
	sort.Slice(cells, func(i, j int) bool {
		if cells[i].Family != cells[j].Family {
			return cells[i].Family < cells[j].Family
		}
		return cells[i].Qualifier < cells[j].Qualifier
	})
	return cells
}

// Clone returns a deep copy of the row.
func (r *Row) Clone() *Row {
	out := NewRow(append(RowKey(nil), r.Key...))
	for family, quals := range r.Columns {
		for qualifier, value := range quals {
			out.Set(family, qualifier, append([]byte(nil), value...))
		}
	}
	return out
}
