package main

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"

	"github.com/litetable/litetable-access/internal/access"
	"github.com/litetable/litetable-access/internal/codec"
	"github.com/litetable/litetable-access/internal/litetable"
)

// record is a row decoded through the columns given on the command line.
type record struct {
	Key    any            `json:"key"`
	Fields map[string]any `json:"fields"`
}

// columnSpec is one --column flag: name=family:qualifier[:kind].
type columnSpec struct {
	name      string
	family    string
	qualifier string
	kind      codec.Kind
}

func parseColumn(s string) (columnSpec, error) {
	name, ref, ok := strings.Cut(s, "=")
	if !ok || name == "" {
		return columnSpec{}, fmt.Errorf("column %q: want name=family:qualifier[:kind]", s)
	}
	parts := strings.Split(ref, ":")
	if len(parts) < 2 || len(parts) > 3 || parts[0] == "" || parts[1] == "" {
		return columnSpec{}, fmt.Errorf("column %q: want name=family:qualifier[:kind]", s)
	}
	spec := columnSpec{
		name:      name,
		family:    parts[0],
		qualifier: parts[1],
		kind:      codec.KindString,
	}
	if len(parts) == 3 {
		spec.kind = codec.Kind(parts[2])
		if !spec.kind.Valid() {
			return columnSpec{}, fmt.Errorf("column %q: unknown kind %q", s, parts[2])
		}
	}
	return spec, nil
}

func parseCell(s string) (litetable.Column, error) {
	family, qualifier, ok := strings.Cut(s, ":")
	if !ok || family == "" || qualifier == "" {
		return litetable.Column{}, fmt.Errorf("column %q: want family:qualifier", s)
	}
	return litetable.Column{Family: family, Qualifier: qualifier}, nil
}

func (c columnSpec) column() codec.Column[record] {
	return codec.CustomColumn(c.name, c.family, c.qualifier, c.kind,
		func(r record) ([]byte, error) {
			v, ok := r.Fields[c.name]
			if !ok {
				return nil, fmt.Errorf("field %s is not set", c.name)
			}
			return codec.Encode(c.kind, v)
		},
		func(r *record, raw []byte) error {
			v, err := codec.Decode(c.kind, raw)
			if err != nil {
				return err
			}
			r.Fields[c.name] = v
			return nil
		})
}

// recordMapping builds the mapping of record from the column flags. The version column, when
// given, must be one of them.
func recordMapping(specs []string, version string, intKeys bool) (codec.Mapping[record], error) {
	m := codec.Mapping[record]{
		Name:    "record",
		Version: version,
		New: func() record {
			return record{Fields: map[string]any{}}
		},
		Key: func(r *record, key litetable.RowKey) {
			r.Key = formatKey(key, intKeys)
		},
	}
	for _, s := range specs {
		spec, err := parseColumn(s)
		if err != nil {
			return m, err
		}
		m.Columns = append(m.Columns, spec.column())
	}
	return m, nil
}

// parseKey turns a flag value into a row key. The empty string is the table edge.
func parseKey(s string, intKeys bool) (litetable.RowKey, error) {
	if s == "" {
		return access.Edge, nil
	}
	if !intKeys {
		return litetable.StringKey(s), nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n < 0 {
		return nil, fmt.Errorf("key %q is not a non-negative integer", s)
	}
	return litetable.Int64Key(n), nil
}

func formatKey(key litetable.RowKey, intKeys bool) any {
	if intKeys && len(key) == 8 {
		return int64(binary.BigEndian.Uint64(key))
	}
	return string(key)
}

// parseParams turns name=value flags into filter parameters. Values are read as int64, then
// float64, then bool, and otherwise kept as strings.
func parseParams(flags []string) (map[string]any, error) {
	if len(flags) == 0 {
		return nil, nil
	}
	params := make(map[string]any, len(flags))
	for _, f := range flags {
		name, value, ok := strings.Cut(f, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("param %q: want name=value", f)
		}
		params[name] = parseValue(value)
	}
	return params, nil
}

func parseValue(v string) any {
	if n, err := strconv.ParseInt(v, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(v); err == nil {
		return b
	}
	return v
}
