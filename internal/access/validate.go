package access

import (
	"math"
	"reflect"

	"github.com/litetable/litetable-access/internal/litetable"
)

// Window selects a slice of the filtered row stream: Start rows are skipped, then at most
// Length rows are returned.
type Window struct {
	Start  int64
	Length int64
}

// Edge is the empty row key: the start of the table as a start key, its end as a stop key.
var Edge = litetable.RowKey{}

// All is the unbounded window.
var All = Window{Start: 0, Length: math.MaxInt64}

// Page returns the window of length rows after skipping start rows.
func Page(start, length int64) Window {
	return Window{Start: start, Length: length}
}

func (w Window) validate(op string) error {
	if w.Start < 0 {
		return newError(ErrInvalidArgument, op, nil, "window start %d is negative", w.Start)
	}
	if w.Length < 1 {
		return newError(ErrInvalidArgument, op, nil, "window length %d is below 1", w.Length)
	}
	return nil
}

// validateKey accepts the key of a single row: non-nil and non-empty.
func validateKey(op string, key litetable.RowKey) error {
	if len(key) == 0 {
		return newError(ErrInvalidArgument, op, nil, "row key is nil or empty")
	}
	return nil
}

// validateRange accepts [start, end). Empty keys stand for the table boundaries.
func validateRange(op string, start, end litetable.RowKey) error {
	if start == nil || end == nil {
		return newError(ErrInvalidArgument, op, nil, "range keys cannot be nil")
	}
	if len(end) > 0 && start.Compare(end) > 0 {
		return newError(ErrInvalidArgument, op, nil, "start %s is after end %s", start, end)
	}
	return nil
}

// isNil reports whether obj is a nil pointer, interface, map, slice, channel or function.
func isNil(obj any) bool {
	if obj == nil {
		return true
	}
	v := reflect.ValueOf(obj)
	switch v.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Chan,
		reflect.Func:
		return v.IsNil()
	}
	return false
}
