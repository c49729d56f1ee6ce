package snapshot

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/litetable/litetable-access/internal/litetable"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Parallel()
	tests := map[string]struct {
		cfg     *Config
		wantErr bool
	}{
		"valid": {
			cfg: &Config{RootDir: t.TempDir()},
		},
		"missing dir": {
			cfg:     &Config{},
			wantErr: true,
		},
		"negative limit": {
			cfg:     &Config{RootDir: t.TempDir(), Limit: -1},
			wantErr: true,
		},
		"limit too large": {
			cfg:     &Config{RootDir: t.TempDir(), Limit: 51},
			wantErr: true,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := New(tc.cfg)
			if tc.wantErr {
				require.Error(t, err)
				require.Nil(t, got)
				return
			}
			require.NoError(t, err)
			require.DirExists(t, got.Dir())
			require.Equal(t, defaultSnapshotLimit, got.limit)
		})
	}
}

func row(key, name string) *litetable.Row {
	r := litetable.NewRow(litetable.StringKey(key))
	r.Set("main", "name", []byte(name))
	return r
}

func TestManager_SaveLatest(t *testing.T) {
	t.Parallel()
	req := require.New(t)

	m, err := New(&Config{RootDir: t.TempDir(), Limit: 2})
	req.NoError(err)

	rows, err := m.Latest()
	req.NoError(err)
	req.Nil(rows)

	clock := time.Unix(1_700_000_000, 0)
	m.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}

	for i, name := range []string{"ada", "grace", "linus"} {
		_, err := m.Save([]*litetable.Row{row("a", name), row("b", "same")})
		req.NoError(err, "save %d", i)
	}

	files, err := filepath.Glob(filepath.Join(m.Dir(), "*"))
	req.NoError(err)
	req.Len(files, 2)

	rows, err = m.Latest()
	req.NoError(err)
	req.Len(rows, 2)
	v, ok := rows[0].Value("main", "name")
	req.True(ok)
	req.Equal("linus", string(v))
	req.Equal(litetable.StringKey("b"), rows[1].Key)
}

func TestManager_SaveEmpty(t *testing.T) {
	t.Parallel()
	req := require.New(t)

	m, err := New(&Config{RootDir: t.TempDir()})
	req.NoError(err)

	_, err = m.Save(nil)
	req.NoError(err)
	rows, err := m.Latest()
	req.NoError(err)
	req.NotNil(rows)
	req.Empty(rows)
}

func TestManager_LatestCorrupt(t *testing.T) {
	t.Parallel()
	req := require.New(t)

	m, err := New(&Config{RootDir: t.TempDir()})
	req.NoError(err)
	req.NoError(os.WriteFile(filepath.Join(m.Dir(), "snapshot-1.db"), []byte("{"), 0o600))

	_, err = m.Latest()
	req.Error(err)
}
