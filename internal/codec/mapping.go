package codec

import (
	"github.com/litetable/litetable-access/internal/litetable"
)

// Column maps one field of T to a cell. Field access goes through the accessors supplied at
// registration, so no reflection is needed to read or write a field.
type Column[T any] struct {
	Name      string
	Family    string
	Qualifier string
	Kind      Kind

	encode func(T) ([]byte, error)
	decode func(*T, []byte) error
}

// StringColumn maps a string field.
func StringColumn[T any](name, family, qualifier string, get func(T) string,
	set func(*T, string)) Column[T] {
	return scalarColumn(name, family, qualifier, KindString, get, set)
}

// Int64Column maps an int64 field, stored big-endian.
func Int64Column[T any](name, family, qualifier string, get func(T) int64,
	set func(*T, int64)) Column[T] {
	return scalarColumn(name, family, qualifier, KindInt64, get, set)
}

// Float64Column maps a float64 field.
func Float64Column[T any](name, family, qualifier string, get func(T) float64,
	set func(*T, float64)) Column[T] {
	return scalarColumn(name, family, qualifier, KindFloat64, get, set)
}

// BoolColumn maps a bool field.
func BoolColumn[T any](name, family, qualifier string, get func(T) bool,
	set func(*T, bool)) Column[T] {
	return scalarColumn(name, family, qualifier, KindBool, get, set)
}

// BytesColumn maps a raw []byte field.
func BytesColumn[T any](name, family, qualifier string, get func(T) []byte,
	set func(*T, []byte)) Column[T] {
	return scalarColumn(name, family, qualifier, KindBytes, get, set)
}

// CustomColumn maps a field with caller supplied byte conversion. kind still decides how the
// column is typed inside filter expressions.
func CustomColumn[T any](name, family, qualifier string, kind Kind,
	encode func(T) ([]byte, error), decode func(*T, []byte) error) Column[T] {
	return Column[T]{
		Name:      name,
		Family:    family,
		Qualifier: qualifier,
		Kind:      kind,
		encode:    encode,
		decode:    decode,
	}
}

func scalarColumn[T any, V any](name, family, qualifier string, kind Kind, get func(T) V,
	set func(*T, V)) Column[T] {
	col := Column[T]{
		Name:      name,
		Family:    family,
		Qualifier: qualifier,
		Kind:      kind,
	}
	if get != nil {
		col.encode = func(obj T) ([]byte, error) {
			return Encode(kind, get(obj))
		}
	}
	if set != nil {
		col.decode = func(obj *T, raw []byte) error {
			v, err := Decode(kind, raw)
			if err != nil {
				return err
			}
			typed, ok := v.(V)
			if !ok {
				return newError(ErrCodec, "column %s decoded %T", name, v)
			}
			set(obj, typed)
			return nil
		}
	}
	return col
}

// Ref returns the cell address of the column.
func (c Column[T]) Ref() litetable.Column {
	return litetable.Column{Family: c.Family, Qualifier: c.Qualifier}
}

// Mapping is the registration form of a type mapping.
type Mapping[T any] struct {
	// Name identifies the type in filter schemas and errors. Defaults to the Go type name.
	Name    string
	Columns []Column[T]
	// Version names the column used as the compare-and-swap guard. Empty when the type is
	// not versioned.
	Version string
	// New builds the zero object rows are decoded into. Defaults to the zero value of T.
	New func() T
	// Key, when set, receives the row key of every decoded row.
	Key func(obj *T, key litetable.RowKey)
}

// ColumnSchema is the type-free description of a mapped column.
type ColumnSchema struct {
	Name      string `json:"name"`
	Family    string `json:"family"`
	Qualifier string `json:"qualifier"`
	Kind      Kind   `json:"kind"`
}

// Schema describes the columns of a mapped type. Filters are compiled against it.
type Schema struct {
	Name    string         `json:"name"`
	Columns []ColumnSchema `json:"columns"`
}

// Lookup returns the column called name.
func (s Schema) Lookup(name string) (ColumnSchema, bool) {
	for _, c := range s.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return ColumnSchema{}, false
}

// TypeMapping is the resolved, read-only metadata of a registered type.
type TypeMapping[T any] struct {
	name     string
	columns  []Column[T]
	version  *Column[T]
	newFn    func() T
	setKey   func(*T, litetable.RowKey)
	families []string
	schema   Schema
}

func newTypeMapping[T any](name string, m Mapping[T]) (*TypeMapping[T], error) {
	if len(m.Columns) == 0 {
		return nil, newError(ErrInvalidMapping, "%s: at least one column is required", name)
	}

	tm := &TypeMapping[T]{
		name:    name,
		columns: make([]Column[T], len(m.Columns)),
		newFn:   m.New,
		setKey:  m.Key,
		schema:  Schema{Name: name},
	}
	copy(tm.columns, m.Columns)

	names := make(map[string]struct{})
	cells := make(map[litetable.Column]struct{})
	families := make(map[string]struct{})
	for i := range tm.columns {
		c := &tm.columns[i]
		switch {
		case c.Name == "":
			return nil, newError(ErrInvalidMapping, "%s: column %d has no name", name, i)
		case c.Family == "" || c.Qualifier == "":
			return nil, newError(ErrInvalidMapping, "%s: column %s needs a family and qualifier",
				name, c.Name)
		case !c.Kind.Valid():
			return nil, newError(ErrInvalidMapping, "%s: column %s has unknown kind %q", name,
				c.Name, c.Kind)
		case c.encode == nil || c.decode == nil:
			return nil, newError(ErrInvalidMapping, "%s: column %s needs both accessors", name,
				c.Name)
		}
		if _, dup := names[c.Name]; dup {
			return nil, newError(ErrInvalidMapping, "%s: duplicate column %s", name, c.Name)
		}
		names[c.Name] = struct{}{}
		if _, dup := cells[c.Ref()]; dup {
			return nil, newError(ErrInvalidMapping, "%s: column %s reuses cell %s", name, c.Name,
				c.Ref())
		}
		cells[c.Ref()] = struct{}{}

		if _, seen := families[c.Family]; !seen {
			families[c.Family] = struct{}{}
			tm.families = append(tm.families, c.Family)
		}
		if c.Name == m.Version {
			tm.version = c
		}
		tm.schema.Columns = append(tm.schema.Columns, ColumnSchema{
			Name:      c.Name,
			Family:    c.Family,
			Qualifier: c.Qualifier,
			Kind:      c.Kind,
		})
	}

	if m.Version != "" && tm.version == nil {
		return nil, newError(ErrInvalidMapping, "%s: version column %s is not mapped", name,
			m.Version)
	}
	return tm, nil
}

// Name is the registered name of the type.
func (m *TypeMapping[T]) Name() string {
	return m.name
}

// Families lists the column families the type reads and writes, in mapping order.
func (m *TypeMapping[T]) Families() []string {
	return append([]string(nil), m.families...)
}

// Schema returns the filter schema of the type.
func (m *TypeMapping[T]) Schema() Schema {
	return m.schema
}

// Versioned reports whether the type declares a version column.
func (m *TypeMapping[T]) Versioned() bool {
	return m.version != nil
}

// VersionColumn returns the cell guarding conditional writes.
func (m *TypeMapping[T]) VersionColumn() (litetable.Column, bool) {
	if m.version == nil {
		return litetable.Column{}, false
	}
	return m.version.Ref(), true
}

// Encode converts obj into one cell per mapped column.
func (m *TypeMapping[T]) Encode(obj T) ([]litetable.Cell, error) {
	cells := make([]litetable.Cell, 0, len(m.columns))
	for _, c := range m.columns {
		value, err := c.encode(obj)
		if err != nil {
			return nil, newError(ErrCodec, "%s.%s: %v", m.name, c.Name, err)
		}
		cells = append(cells, litetable.Cell{
			Family:    c.Family,
			Qualifier: c.Qualifier,
			Value:     value,
		})
	}
	return cells, nil
}

// Decode materializes an object from a row. Cells missing from the row leave their field at
// the value New (or the zero value) gave it.
func (m *TypeMapping[T]) Decode(row *litetable.Row) (T, error) {
	var obj T
	if m.newFn != nil {
		obj = m.newFn()
	}
	for _, c := range m.columns {
		raw, ok := row.Value(c.Family, c.Qualifier)
		if !ok {
			continue
		}
		if err := c.decode(&obj, raw); err != nil {
			var zero T
			return zero, newError(ErrCodec, "%s.%s at row %s: %v", m.name, c.Name, row.Key, err)
		}
	}
	if m.setKey != nil {
		m.setKey(&obj, row.Key)
	}
	return obj, nil
}

// Version extracts the encoded version token from obj.
func (m *TypeMapping[T]) Version(obj T) ([]byte, error) {
	if m.version == nil {
		return nil, newError(ErrNotVersioned, "%s", m.name)
	}
	token, err := m.version.encode(obj)
	if err != nil {
		return nil, newError(ErrCodec, "%s.%s: %v", m.name, m.version.Name, err)
	}
	return token, nil
}
