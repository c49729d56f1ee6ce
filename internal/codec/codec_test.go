package codec

import (
	"errors"
	"math"
	"testing"

	"github.com/litetable/litetable-access/internal/litetable"
	"github.com/stretchr/testify/require"
)

type account struct {
	ID      string
	Balance int64
	Rate    float64
	Active  bool
	Blob    []byte
	Version int64
}

func accountMapping() Mapping[account] {
	return Mapping[account]{
		Name: "account",
		Columns: []Column[account]{
			StringColumn("id", "main", "id",
				func(a account) string { return a.ID },
				func(a *account, v string) { a.ID = v }),
			Int64Column("balance", "main", "balance",
				func(a account) int64 { return a.Balance },
				func(a *account, v int64) { a.Balance = v }),
			Float64Column("rate", "main", "rate",
				func(a account) float64 { return a.Rate },
				func(a *account, v float64) { a.Rate = v }),
			BoolColumn("active", "flags", "active",
				func(a account) bool { return a.Active },
				func(a *account, v bool) { a.Active = v }),
			BytesColumn("blob", "flags", "blob",
				func(a account) []byte { return a.Blob },
				func(a *account, v []byte) { a.Blob = v }),
			Int64Column("version", "main", "version",
				func(a account) int64 { return a.Version },
				func(a *account, v int64) { a.Version = v }),
		},
		Version: "version",
	}
}

func TestKindEncoding(t *testing.T) {
	t.Parallel()
	tests := map[string]struct {
		kind  Kind
		value any
	}{
		"string":       {kind: KindString, value: "hello"},
		"int64":        {kind: KindInt64, value: int64(-42)},
		"int64 max":    {kind: KindInt64, value: int64(math.MaxInt64)},
		"float64":      {kind: KindFloat64, value: 3.25},
		"bool true":    {kind: KindBool, value: true},
		"bool false":   {kind: KindBool, value: false},
		"bytes":        {kind: KindBytes, value: []byte{0x00, 0x01}},
		"empty string": {kind: KindString, value: ""},
		"empty bytes":  {kind: KindBytes, value: []byte{}},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			req := require.New(t)
			raw, err := Encode(tc.kind, tc.value)
			req.NoError(err)

			got, err := Decode(tc.kind, raw)
			req.NoError(err)
			req.Equal(tc.value, got)
		})
	}
}

func TestKindEncoding_errors(t *testing.T) {
	t.Parallel()
	req := require.New(t)

	_, err := Encode(KindInt64, "not a number")
	req.ErrorIs(err, ErrCodec)

	_, err = Encode(Kind("decimal"), 1)
	req.ErrorIs(err, ErrCodec)

	_, err = Decode(KindInt64, []byte{0x01})
	req.ErrorIs(err, ErrCodec)

	_, err = Decode(KindBool, nil)
	req.ErrorIs(err, ErrCodec)
}

func TestKindBytes_presence(t *testing.T) {
	t.Parallel()
	req := require.New(t)

	raw, err := Encode(KindBytes, []byte(nil))
	req.NoError(err)
	req.Nil(raw)

	raw, err = Encode(KindBytes, []byte{})
	req.NoError(err)
	req.NotNil(raw)
	req.Empty(raw)

	// a present cell decodes to a non-nil slice, whatever its stored form
	for _, stored := range [][]byte{nil, {}} {
		v, err := Decode(KindBytes, stored)
		req.NoError(err)
		req.NotNil(v)
		req.Equal([]byte{}, v)
	}
}

func TestValueOf(t *testing.T) {
	t.Parallel()
	tests := map[string]struct {
		input    any
		kind     Kind
		expected any
		wantErr  bool
	}{
		"int widens":     {input: 7, kind: KindInt64, expected: int64(7)},
		"uint32 widens":  {input: uint32(9), kind: KindInt64, expected: int64(9)},
		"float32 widens": {input: float32(1.5), kind: KindFloat64, expected: 1.5},
		"string":         {input: "x", kind: KindString, expected: "x"},
		"bool":           {input: true, kind: KindBool, expected: true},
		"uint64 overflow": {
			input:   uint64(math.MaxUint64),
			wantErr: true,
		},
		"unsupported": {
			input:   struct{}{},
			wantErr: true,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			req := require.New(t)
			v, err := ValueOf(tc.input)
			if tc.wantErr {
				req.ErrorIs(err, ErrCodec)
				return
			}
			req.NoError(err)
			req.Equal(tc.kind, v.Kind)

			got, err := v.Interface()
			req.NoError(err)
			req.Equal(tc.expected, got)
		})
	}
}

func TestTypeMapping_EncodeDecode(t *testing.T) {
	t.Parallel()
	req := require.New(t)

	tm, err := newTypeMapping("account", accountMapping())
	req.NoError(err)

	in := account{ID: "a1", Balance: 100, Rate: 0.5, Active: true, Blob: []byte("b"),
		Version: 3}
	cells, err := tm.Encode(in)
	req.NoError(err)
	req.Len(cells, 6)

	row := litetable.NewRow(litetable.StringKey("a1"))
	for _, c := range cells {
		row.Set(c.Family, c.Qualifier, c.Value)
	}

	out, err := tm.Decode(row)
	req.NoError(err)
	req.Equal(in, out)

	req.Equal([]string{"main", "flags"}, tm.Families())
	req.True(tm.Versioned())
	col, ok := tm.VersionColumn()
	req.True(ok)
	req.Equal(litetable.Column{Family: "main", Qualifier: "version"}, col)

	token, err := tm.Version(in)
	req.NoError(err)
	req.Equal(MustEncode(KindInt64, int64(3)), token)

	schemaCol, ok := tm.Schema().Lookup("balance")
	req.True(ok)
	req.Equal(KindInt64, schemaCol.Kind)
}

func TestTypeMapping_DecodeCorruptCell(t *testing.T) {
	t.Parallel()
	req := require.New(t)

	tm, err := newTypeMapping("account", accountMapping())
	req.NoError(err)

	row := litetable.NewRow(litetable.StringKey("a1"))
	row.Set("main", "balance", []byte("short"))

	_, err = tm.Decode(row)
	req.ErrorIs(err, ErrCodec)
}

func TestNewTypeMapping_invalid(t *testing.T) {
	t.Parallel()
	get := func(a account) string { return a.ID }
	set := func(a *account, v string) { a.ID = v }

	tests := map[string]Mapping[account]{
		"no columns": {},
		"missing family": {
			Columns: []Column[account]{StringColumn("id", "", "id", get, set)},
		},
		"missing accessor": {
			Columns: []Column[account]{StringColumn[account]("id", "main", "id", get, nil)},
		},
		"duplicate name": {
			Columns: []Column[account]{
				StringColumn("id", "main", "a", get, set),
				StringColumn("id", "main", "b", get, set),
			},
		},
		"duplicate cell": {
			Columns: []Column[account]{
				StringColumn("a", "main", "id", get, set),
				StringColumn("b", "main", "id", get, set),
			},
		},
		"unknown version column": {
			Columns: []Column[account]{StringColumn("id", "main", "id", get, set)},
			Version: "version",
		},
	}

	for name, m := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := newTypeMapping("account", m)
			require.True(t, errors.Is(err, ErrInvalidMapping), "got %v", err)
		})
	}
}

func TestRegistry(t *testing.T) {
	t.Parallel()
	req := require.New(t)

	r := NewRegistry()
	req.NoError(Register(r, accountMapping()))

	_, err := Lookup[account](r)
	req.ErrorIs(err, ErrRegistryOpen)

	req.ErrorIs(Register(r, accountMapping()), ErrInvalidMapping)

	r.Seal()
	r.Seal()

	tm, err := Lookup[account](r)
	req.NoError(err)
	req.Equal("account", tm.Name())

	_, err = Lookup[string](r)
	req.ErrorIs(err, ErrUnknownType)

	err = Register(r, Mapping[int]{
		Columns: []Column[int]{Int64Column("n", "main", "n",
			func(n int) int64 { return int64(n) },
			func(n *int, v int64) { *n = int(v) })},
	})
	req.ErrorIs(err, ErrRegistrySealed)
}

func TestTypeMapping_notVersioned(t *testing.T) {
	t.Parallel()
	m := accountMapping()
	m.Version = ""

	tm, err := newTypeMapping("account", m)
	require.NoError(t, err)
	require.False(t, tm.Versioned())

	_, err = tm.Version(account{})
	require.ErrorIs(t, err, ErrNotVersioned)
}

func TestTypeMapping_DecodeKey(t *testing.T) {
	t.Parallel()
	req := require.New(t)

	m := accountMapping()
	m.Key = func(a *account, key litetable.RowKey) { a.ID = "key:" + string(key) }
	tm, err := newTypeMapping("account", m)
	req.NoError(err)

	row := litetable.NewRow(litetable.StringKey("a9"))
	row.Set("main", "balance", MustEncode(KindInt64, int64(7)))

	out, err := tm.Decode(row)
	req.NoError(err)
	req.Equal(account{ID: "key:a9", Balance: 7}, out)
}
