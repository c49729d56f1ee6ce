package store

import (
	"testing"

	"github.com/litetable/litetable-access/internal/litetable"
	"github.com/stretchr/testify/require"
)

func TestScan_Contains(t *testing.T) {
	t.Parallel()
	k := litetable.StringKey
	tests := map[string]struct {
		scan *Scan
		key  litetable.RowKey
		want bool
	}{
		"inside": {
			scan: &Scan{Start: k("b"), Stop: k("d")},
			key:  k("c"),
			want: true,
		},
		"start is inclusive": {
			scan: &Scan{Start: k("b"), Stop: k("d")},
			key:  k("b"),
			want: true,
		},
		"stop is exclusive": {
			scan: &Scan{Start: k("b"), Stop: k("d")},
			key:  k("d"),
		},
		"before start": {
			scan: &Scan{Start: k("b"), Stop: k("d")},
			key:  k("a"),
		},
		"empty stop is unbounded": {
			scan: &Scan{Start: k("b"), Stop: k("")},
			key:  k("zzz"),
			want: true,
		},
		"equal start and stop is one row": {
			scan: &Scan{Start: k("b"), Stop: k("b")},
			key:  k("b"),
			want: true,
		},
		"equal start and stop excludes neighbours": {
			scan: &Scan{Start: k("b"), Stop: k("b")},
			key:  k("b0"),
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			require.Equal(t, tc.want, tc.scan.Contains(tc.key))
		})
	}
}

func TestScan_Project(t *testing.T) {
	t.Parallel()
	req := require.New(t)

	row := litetable.NewRow(litetable.StringKey("r"))
	row.Set("main", "a", []byte("1"))
	row.Set("main", "b", []byte("2"))
	row.Set("audit", "c", []byte("3"))

	all := (&Scan{}).Project(row)
	req.Same(row, all)

	byFamily := (&Scan{Families: []string{"main"}}).Project(row)
	req.Len(byFamily.Cells(), 2)

	byColumn := (&Scan{Columns: []litetable.Column{{Family: "audit", Qualifier: "c"}}}).Project(row)
	req.Len(byColumn.Cells(), 1)

	none := (&Scan{Families: []string{"missing"}}).Project(row)
	req.Nil(none)
}
