// Package filter compiles query text into predicates that a store evaluates against rows
// during a scan.
//
// Query text is a CEL boolean expression. Every column of the schema is declared as a
// variable of its kind, and caller parameters are available under params:
//
//	age >= params.minAge && name.startsWith(params.prefix)
//
// A row that lacks a cell referenced by the expression does not match.
package filter

import (
	"fmt"
	"strings"

	"github.com/google/cel-go/cel"
	"github.com/litetable/litetable-access/internal/codec"
	"github.com/litetable/litetable-access/internal/litetable"
)

const paramsVariable = "params"

// Source is everything needed to rebuild a Filter. It is what travels to a remote store.
type Source struct {
	Expr    string                 `json:"expr"`
	Schema  codec.Schema           `json:"schema"`
	Params  map[string]codec.Value `json:"params,omitempty"`
	Require *litetable.Column      `json:"require,omitempty"`
}

// Filter is a compiled predicate over rows. A nil *Filter matches every row.
type Filter struct {
	source  Source
	program cel.Program
	params  map[string]any
}

// Source returns the portable form of the filter.
func (f *Filter) Source() Source {
	return f.source
}

func (f *Filter) String() string {
	if f == nil {
		return "<none>"
	}
	if f.source.Require != nil {
		return fmt.Sprintf("%s [requires %s]", f.source.Expr, f.source.Require)
	}
	return f.source.Expr
}

// Match evaluates the filter against a row. An error means the row could not be evaluated
// and must be treated as not matching.
func (f *Filter) Match(row *litetable.Row) (bool, error) {
	if f == nil {
		return true, nil
	}
	if req := f.source.Require; req != nil {
		if _, ok := row.Value(req.Family, req.Qualifier); !ok {
			return false, nil
		}
	}

	activation := make(map[string]any, len(f.source.Schema.Columns)+1)
	activation[paramsVariable] = f.params
	for _, c := range f.source.Schema.Columns {
		raw, ok := row.Value(c.Family, c.Qualifier)
		if !ok {
			continue
		}
		v, err := codec.Decode(c.Kind, raw)
		if err != nil {
			return false, fmt.Errorf("column %s: %w", c.Name, err)
		}
		activation[c.Name] = v
	}

	out, _, err := f.program.Eval(activation)
	if err != nil {
		return false, fmt.Errorf("eval %q on row %s: %w", f.source.Expr, row.Key, err)
	}
	matched, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("filter %q returned %T", f.source.Expr, out.Value())
	}
	return matched, nil
}

// IsBlank reports whether text carries no predicate.
func IsBlank(text string) bool {
	return strings.TrimSpace(text) == ""
}
