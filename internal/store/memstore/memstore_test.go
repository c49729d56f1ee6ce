package memstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/litetable/litetable-access/internal/cdc_emitter"
	"github.com/litetable/litetable-access/internal/litetable"
	"github.com/litetable/litetable-access/internal/snapshot"
	"github.com/litetable/litetable-access/internal/store"
	"github.com/litetable/litetable-access/internal/wal"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

var (
	nameCol    = litetable.Column{Family: "main", Qualifier: "name"}
	versionCol = litetable.Column{Family: "main", Qualifier: "version"}
)

func put(key, name string) *store.Put {
	return &store.Put{
		Row: litetable.StringKey(key),
		Cells: []litetable.Cell{
			{Family: nameCol.Family, Qualifier: nameCol.Qualifier, Value: []byte(name)},
		},
	}
}

func newStore(t *testing.T, cfg *Config) (*Store, store.Handle) {
	t.Helper()
	if cfg == nil {
		cfg = &Config{}
	}
	s, err := New(cfg)
	require.NoError(t, err)
	require.NoError(t, s.Start())

	h, err := s.Acquire(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { s.Release(h) })
	return s, h
}

func seed(t *testing.T, h store.Handle, keys ...string) {
	t.Helper()
	for _, k := range keys {
		require.NoError(t, h.Put(context.Background(), put(k, "name-"+k)))
	}
}

func collect(t *testing.T, sc store.Scanner) []string {
	t.Helper()
	defer sc.Close()
	var keys []string
	for sc.Next() {
		keys = append(keys, string(sc.Row().Key))
	}
	require.NoError(t, sc.Err())
	return keys
}

type matchFunc func(*litetable.Row) (bool, error)

func (f matchFunc) Match(row *litetable.Row) (bool, error) {
	return f(row)
}

type recordingEmitter struct {
	mu     sync.Mutex
	events []*cdc_emitter.CDCParams
}

func (r *recordingEmitter) Emit(p *cdc_emitter.CDCParams) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, p)
}

func TestNew(t *testing.T) {
	t.Parallel()
	tests := map[string]struct {
		cfg     *Config
		wantErr bool
	}{
		"no families": {
			cfg: &Config{},
		},
		"families": {
			cfg: &Config{Families: []string{"main", "audit"}},
		},
		"empty family": {
			cfg:     &Config{Families: []string{""}},
			wantErr: true,
		},
		"duplicate family": {
			cfg:     &Config{Families: []string{"main", "main"}},
			wantErr: true,
		},
		"negative snapshot interval": {
			cfg:     &Config{SnapshotInterval: -time.Second},
			wantErr: true,
		},
		"snapshot interval without manager": {
			cfg:     &Config{SnapshotInterval: time.Second},
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
			require.Equal(t, "Memory Store", got.Name())
		})
	}
}

func TestStore_PutGet(t *testing.T) {
	t.Parallel()
	req := require.New(t)
	ctx := context.Background()
	_, h := newStore(t, &Config{Families: []string{"main", "audit"}})

	p := put("user:1", "ada")
	p.Cells = append(p.Cells, litetable.Cell{Family: "audit", Qualifier: "by", Value: []byte("x")})
	req.NoError(h.Put(ctx, p))

	row, err := h.Get(ctx, litetable.StringKey("user:1"), nil)
	req.NoError(err)
	req.Len(row.Cells(), 2)

	row, err = h.Get(ctx, litetable.StringKey("user:1"), []string{"main"})
	req.NoError(err)
	v, ok := row.Value("main", "name")
	req.True(ok)
	req.Equal("ada", string(v))
	_, ok = row.Value("audit", "by")
	req.False(ok)

	// returned rows are copies
	v[0] = 'X'
	row, err = h.Get(ctx, litetable.StringKey("user:1"), nil)
	req.NoError(err)
	v, _ = row.Value("main", "name")
	req.Equal("ada", string(v))

	row, err = h.Get(ctx, litetable.StringKey("missing"), nil)
	req.NoError(err)
	req.Nil(row)
}

func TestStore_PutInvalid(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	_, h := newStore(t, &Config{Families: []string{"main"}})

	tests := map[string]struct {
		put  *store.Put
		want error
	}{
		"nil put": {
			want: store.ErrInvalidRequest,
		},
		"no key": {
			put:  &store.Put{Cells: put("a", "b").Cells},
			want: store.ErrInvalidRequest,
		},
		"no cells": {
			put:  &store.Put{Row: litetable.StringKey("a")},
			want: store.ErrInvalidRequest,
		},
		"unknown family": {
			put: &store.Put{
				Row:   litetable.StringKey("a"),
				Cells: []litetable.Cell{{Family: "other", Qualifier: "q", Value: []byte("v")}},
			},
			want: store.ErrFamilyNotAllowed,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			require.ErrorIs(t, h.Put(ctx, tc.put), tc.want)
		})
	}
}

func TestStore_Delete(t *testing.T) {
	t.Parallel()
	req := require.New(t)
	ctx := context.Background()
	s, h := newStore(t, nil)
	seed(t, h, "a", "b")

	req.NoError(h.Delete(ctx, &store.Delete{Row: litetable.StringKey("a")}))
	req.NoError(h.Delete(ctx, &store.Delete{Row: litetable.StringKey("missing")}))
	req.Equal(1, s.Len())
	req.ErrorIs(h.Delete(ctx, &store.Delete{}), store.ErrInvalidRequest)
}

func TestStore_CheckAndPut(t *testing.T) {
	t.Parallel()
	versioned := func(key, version string) *store.Put {
		p := put(key, "n")
		p.Cells = append(p.Cells, litetable.Cell{
			Family:    versionCol.Family,
			Qualifier: versionCol.Qualifier,
			Value:     []byte(version),
		})
		return p
	}

	tests := map[string]struct {
		existing *store.Put
		expected []byte
		want     bool
	}{
		"absent cell and nil expected": {
			want: true,
		},
		"present cell and nil expected": {
			existing: versioned("k", "1"),
		},
		"matching version": {
			existing: versioned("k", "1"),
			expected: []byte("1"),
			want:     true,
		},
		"stale version": {
			existing: versioned("k", "2"),
			expected: []byte("1"),
		},
		"expected on missing row": {
			expected: []byte("1"),
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			req := require.New(t)
			ctx := context.Background()
			_, h := newStore(t, nil)
			if tc.existing != nil {
				req.NoError(h.Put(ctx, tc.existing))
			}

			applied, err := h.CheckAndPut(ctx, versionCol, tc.expected, versioned("k", "9"))
			req.NoError(err)
			req.Equal(tc.want, applied)

			row, err := h.Get(ctx, litetable.StringKey("k"), nil)
			req.NoError(err)
			v, _ := row.Value(versionCol.Family, versionCol.Qualifier)
			if tc.want {
				req.Equal("9", string(v))
			} else if tc.existing != nil {
				req.NotEqual("9", string(v))
			}
		})
	}
}

func TestStore_CheckAndPutConcurrent(t *testing.T) {
	t.Parallel()
	req := require.New(t)
	ctx := context.Background()
	_, h := newStore(t, nil)

	const writers = 16
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		applied int
	)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p := put("k", fmt.Sprintf("writer-%d", i))
			p.Cells = append(p.Cells, litetable.Cell{
				Family:    versionCol.Family,
				Qualifier: versionCol.Qualifier,
				Value:     []byte{byte(i)},
			})
			ok, err := h.CheckAndPut(ctx, versionCol, nil, p)
			if err != nil || !ok {
				return
			}
			mu.Lock()
			applied++
			mu.Unlock()
		}(i)
	}
	wg.Wait()
	req.Equal(1, applied)
}

func TestStore_Scan(t *testing.T) {
	t.Parallel()
	k := litetable.StringKey
	tests := map[string]struct {
		scan *store.Scan
		want []string
	}{
		"whole table": {
			scan: &store.Scan{Start: k(""), Stop: k("")},
			want: []string{"a", "b", "c", "d", "e"},
		},
		"range": {
			scan: &store.Scan{Start: k("b"), Stop: k("d")},
			want: []string{"b", "c"},
		},
		"single row": {
			scan: &store.Scan{Start: k("c"), Stop: k("c")},
			want: []string{"c"},
		},
		"small caching": {
			scan: &store.Scan{Start: k("a"), Stop: k(""), Caching: 2},
			want: []string{"a", "b", "c", "d", "e"},
		},
		"filter": {
			scan: &store.Scan{
				Start:   k(""),
				Stop:    k(""),
				Caching: 1,
				Filter: matchFunc(func(row *litetable.Row) (bool, error) {
					return string(row.Key) != "b", nil
				}),
			},
			want: []string{"a", "c", "d", "e"},
		},
		"filter error skips row": {
			scan: &store.Scan{
				Start: k(""),
				Stop:  k(""),
				Filter: matchFunc(func(row *litetable.Row) (bool, error) {
					if string(row.Key) == "c" {
						return false, errors.New("missing cell")
					}
					return true, nil
				}),
			},
			want: []string{"a", "b", "d", "e"},
		},
		"projection drops rows without selected cells": {
			scan: &store.Scan{Start: k(""), Stop: k(""), Families: []string{"audit"}},
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			_, h := newStore(t, nil)
			seed(t, h, "e", "c", "a", "d", "b")

			sc, err := h.Scan(context.Background(), tc.scan)
			require.NoError(t, err)
			require.Equal(t, tc.want, collect(t, sc))
		})
	}
}

func TestStore_ScanFilterSeesFullRow(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)
	_, h := newStore(t, nil)

	p := put("a", "ada")
	p.Cells = append(p.Cells, litetable.Cell{Family: "audit", Qualifier: "by", Value: []byte("x")})
	require.NoError(t, h.Put(context.Background(), p))

	f := store.NewMockFilter(ctrl)
	f.EXPECT().Match(gomock.Any()).DoAndReturn(func(row *litetable.Row) (bool, error) {
		_, ok := row.Value("audit", "by")
		return ok, nil
	})

	sc, err := h.Scan(context.Background(), &store.Scan{
		Start:    litetable.StringKey(""),
		Stop:     litetable.StringKey(""),
		Families: []string{"main"},
		Filter:   f,
	})
	require.NoError(t, err)
	require.True(t, sc.Next())
	require.Len(t, sc.Row().Cells(), 1)
	require.False(t, sc.Next())
	require.NoError(t, sc.Close())
}

func TestStore_ScanSeesWritesBetweenBatches(t *testing.T) {
	t.Parallel()
	req := require.New(t)
	ctx := context.Background()
	_, h := newStore(t, nil)
	seed(t, h, "a", "b", "c")

	sc, err := h.Scan(ctx, &store.Scan{
		Start:   litetable.StringKey(""),
		Stop:    litetable.StringKey(""),
		Caching: 1,
	})
	req.NoError(err)
	req.True(sc.Next())
	req.Equal("a", string(sc.Row().Key))

	// a write while the scan is open does not block and does not break ordering
	seed(t, h, "bb")
	req.Equal([]string{"b", "bb", "c"}, collect(t, sc))
}

func TestStore_ScanInvalid(t *testing.T) {
	t.Parallel()
	_, h := newStore(t, nil)
	k := litetable.StringKey

	for name, sc := range map[string]*store.Scan{
		"nil":      nil,
		"nil keys": {},
		"inverted": {Start: k("b"), Stop: k("a")},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := h.Scan(context.Background(), sc)
			require.ErrorIs(t, err, store.ErrInvalidRequest)
		})
	}
}

func TestStore_ScanCancelled(t *testing.T) {
	t.Parallel()
	_, h := newStore(t, nil)
	seed(t, h, "a", "b")

	ctx, cancel := context.WithCancel(context.Background())
	sc, err := h.Scan(ctx, &store.Scan{
		Start:   litetable.StringKey(""),
		Stop:    litetable.StringKey(""),
		Caching: 1,
	})
	require.NoError(t, err)
	require.True(t, sc.Next())
	cancel()
	require.False(t, sc.Next())
	require.ErrorIs(t, sc.Err(), context.Canceled)
}

func TestStore_BatchDelete(t *testing.T) {
	t.Parallel()
	req := require.New(t)
	ctx := context.Background()
	s, h := newStore(t, nil)
	seed(t, h, "a", "b", "c")

	remaining, err := h.BatchDelete(ctx, []*store.Delete{
		{Row: litetable.StringKey("a")},
		{Row: litetable.StringKey("c")},
		{Row: litetable.StringKey("missing")},
	})
	req.NoError(err)
	req.Empty(remaining)
	req.Equal(1, s.Len())

	deletes := []*store.Delete{{Row: litetable.StringKey("b")}, {}}
	remaining, err = h.BatchDelete(ctx, deletes)
	req.ErrorIs(err, store.ErrInvalidRequest)
	req.Equal(deletes[1:], remaining)
}

func TestStore_AggregateCount(t *testing.T) {
	t.Parallel()
	req := require.New(t)
	ctx := context.Background()
	_, h := newStore(t, nil)
	seed(t, h, "a", "b", "c", "d")
	req.NoError(h.Put(ctx, &store.Put{
		Row:   litetable.StringKey("e"),
		Cells: []litetable.Cell{{Family: "audit", Qualifier: "by", Value: []byte("x")}},
	}))

	all := &store.Scan{Start: litetable.StringKey(""), Stop: litetable.StringKey("")}
	n, err := h.AggregateCount(ctx, all)
	req.NoError(err)
	req.EqualValues(5, n)

	onName := &store.Scan{
		Start:   litetable.StringKey(""),
		Stop:    litetable.StringKey(""),
		Columns: []litetable.Column{nameCol},
	}
	n, err = h.AggregateCount(ctx, onName)
	req.NoError(err)
	req.EqualValues(4, n)

	onName.Filter = matchFunc(func(row *litetable.Row) (bool, error) {
		return string(row.Key) < "c", nil
	})
	n, err = h.AggregateCount(ctx, onName)
	req.NoError(err)
	req.EqualValues(2, n)
}

func TestStore_Provider(t *testing.T) {
	t.Parallel()
	req := require.New(t)
	s, err := New(&Config{})
	req.NoError(err)

	h1, err := s.Acquire(context.Background())
	req.NoError(err)
	h2, err := s.Acquire(context.Background())
	req.NoError(err)
	req.EqualValues(2, s.Outstanding())

	s.Release(h1)
	s.Release(h1)
	req.EqualValues(1, s.Outstanding())
	s.Release(h2)
	req.EqualValues(0, s.Outstanding())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.Acquire(ctx)
	req.ErrorIs(err, context.Canceled)

	req.NoError(s.Stop())
	_, err = s.Acquire(context.Background())
	req.ErrorIs(err, store.ErrClosed)
}

func TestStore_WALAndCDC(t *testing.T) {
	t.Parallel()
	req := require.New(t)
	ctx := context.Background()
	dir := t.TempDir()

	journal, err := wal.New(&wal.Config{Path: dir})
	req.NoError(err)
	events := &recordingEmitter{}

	s, h := newStore(t, &Config{WAL: journal, CDC: events})
	seed(t, h, "a", "b", "c")
	req.NoError(h.Delete(ctx, &store.Delete{Row: litetable.StringKey("b")}))
	applied, err := h.CheckAndPut(ctx, nameCol, []byte("name-c"), put("c", "changed"))
	req.NoError(err)
	req.True(applied)
	req.Len(events.events, 5)
	req.Equal(litetable.OperationDelete, events.events[3].Operation)
	req.Equal(litetable.OperationCheckAndPut, events.events[4].Operation)
	req.NoError(s.Stop())

	reopened, err := wal.New(&wal.Config{Path: dir})
	req.NoError(err)
	replayed, h2 := newStore(t, &Config{WAL: reopened})
	req.Equal(2, replayed.Len())

	row, err := h2.Get(ctx, litetable.StringKey("c"), nil)
	req.NoError(err)
	v, _ := row.Value(nameCol.Family, nameCol.Qualifier)
	req.Equal("changed", string(v))
}

func openDurable(t *testing.T, dir string, interval time.Duration) (*Store, store.Handle, *wal.Manager) {
	t.Helper()
	journal, err := wal.New(&wal.Config{Path: dir})
	require.NoError(t, err)
	snaps, err := snapshot.New(&snapshot.Config{RootDir: dir})
	require.NoError(t, err)
	s, h := newStore(t, &Config{WAL: journal, Snapshots: snaps, SnapshotInterval: interval})
	return s, h, journal
}

func TestStore_Checkpoint(t *testing.T) {
	t.Parallel()
	req := require.New(t)
	ctx := context.Background()
	dir := t.TempDir()

	s, h, journal := openDurable(t, dir, 0)
	seed(t, h, "a", "b")
	req.NoError(s.Checkpoint())

	info, err := os.Stat(journal.Path())
	req.NoError(err)
	req.Zero(info.Size())

	seed(t, h, "c")
	req.NoError(h.Delete(ctx, &store.Delete{Row: litetable.StringKey("a")}))
	req.NoError(s.Stop())
	req.NoError(s.Stop())

	reopened, h2, _ := openDurable(t, dir, 0)
	req.Equal(2, reopened.Len())
	sc, err := h2.Scan(ctx, &store.Scan{Start: litetable.StringKey(""), Stop: litetable.StringKey("")})
	req.NoError(err)
	req.Equal([]string{"b", "c"}, collect(t, sc))
	req.NoError(reopened.Stop())
}

func TestStore_CheckpointInterruptedBeforeTruncate(t *testing.T) {
	t.Parallel()
	req := require.New(t)
	ctx := context.Background()
	dir := t.TempDir()

	journal, err := wal.New(&wal.Config{Path: dir})
	req.NoError(err)
	s, h := newStore(t, &Config{WAL: journal})
	seed(t, h, "a", "b")
	req.NoError(h.Delete(ctx, &store.Delete{Row: litetable.StringKey("a")}))
	req.NoError(h.Put(ctx, put("b", "renamed")))
	req.NoError(s.Stop())

	// the snapshot made it to disk but the WAL still holds every entry it covers
	snaps, err := snapshot.New(&snapshot.Config{RootDir: dir})
	req.NoError(err)
	b := litetable.NewRow(litetable.StringKey("b"))
	b.Set(nameCol.Family, nameCol.Qualifier, []byte("renamed"))
	_, err = snaps.Save([]*litetable.Row{b})
	req.NoError(err)

	reopened, h2, _ := openDurable(t, dir, 0)
	req.Equal(1, reopened.Len())
	row, err := h2.Get(ctx, litetable.StringKey("b"), nil)
	req.NoError(err)
	v, _ := row.Value(nameCol.Family, nameCol.Qualifier)
	req.Equal("renamed", string(v))
	req.NoError(reopened.Stop())
}

func TestStore_PeriodicSnapshot(t *testing.T) {
	t.Parallel()
	req := require.New(t)
	dir := t.TempDir()

	s, h, _ := openDurable(t, dir, 10*time.Millisecond)
	seed(t, h, "a")

	req.Eventually(func() bool {
		files, err := filepath.Glob(filepath.Join(dir, ".table", "snapshots", "snapshot-*.db"))
		return err == nil && len(files) > 0
	}, 5*time.Second, 10*time.Millisecond)
	req.NoError(s.Stop())
}
