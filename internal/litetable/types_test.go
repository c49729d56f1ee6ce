package litetable

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRowKey_Compare(t *testing.T) {
	t.Parallel()
	tests := map[string]struct {
		a, b RowKey
		want int
	}{
		"equal": {
			a: StringKey("user:1"), b: StringKey("user:1"), want: 0,
		},
		"less": {
			a: StringKey("user:1"), b: StringKey("user:2"), want: -1,
		},
		"greater": {
			a: StringKey("user:2"), b: StringKey("user:10"), want: 1,
		},
		"prefix sorts first": {
			a: StringKey("user"), b: StringKey("user:1"), want: -1,
		},
		"int keys keep numeric order": {
			a: Int64Key(2), b: Int64Key(10), want: -1,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			require.Equal(t, tc.want, tc.a.Compare(tc.b))
		})
	}
}

func TestRow(t *testing.T) {
	t.Parallel()
	req := require.New(t)

	r := NewRow(StringKey("row1"))
	r.Set("main", "b", []byte("2"))
	r.Set("main", "a", []byte("1"))
	r.Set("audit", "v", []byte("3"))

	v, ok := r.Value("main", "a")
	req.True(ok)
	req.Equal([]byte("1"), v)

	_, ok = r.Value("missing", "a")
	req.False(ok)

	cells := r.Cells()
	req.Len(cells, 3)
	req.Equal("audit", cells[0].Family)
	req.Equal("a", cells[1].Qualifier)
	req.Equal("b", cells[2].Qualifier)

	clone := r.Clone()
	clone.Set("main", "a", []byte("changed"))
	v, _ = r.Value("main", "a")
	req.Equal([]byte("1"), v)

	req.Equal("PUT", OperationPut.String())
	req.Equal("UNKNOWN", Operation(42).String())
}
