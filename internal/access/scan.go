package access

import (
	"context"

	"github.com/litetable/litetable-access/internal/codec"
	"github.com/litetable/litetable-access/internal/filter"
	"github.com/litetable/litetable-access/internal/litetable"
	"github.com/litetable/litetable-access/internal/store"
	"github.com/rs/zerolog/log"
)

// scanObjects is the scan executor. It validates everything before touching the store, skips
// w.Start rows of the filtered stream without decoding them and stops reading once w.Length
// objects are decoded. A store failure discards whatever was decoded so far.
func scanObjects[T any](ctx context.Context, c *Client, m *codec.TypeMapping[T], op string,
	start, end litetable.RowKey, w Window, f *filter.Filter) ([]T, error) {
	if err := validateRange(op, start, end); err != nil {
		return nil, err
	}
	if err := w.validate(op); err != nil {
		return nil, err
	}

	sc := &store.Scan{
		Start:    start,
		Stop:     end,
		Caching:  c.scanCaching,
		Families: m.Families(),
	}
	if f != nil {
		sc.Filter = f
	}
	if w.Length < int64(sc.Caching) && w.Start < int64(sc.Caching)-w.Length {
		// the whole window fits in one batch
		sc.Caching = int(w.Start + w.Length)
	}

	var out []T
	err := c.withHandle(ctx, op, func(h store.Handle) error {
		scanner, err := h.Scan(ctx, sc)
		if err != nil {
			return newError(ErrStoreAccess, op, err, "range [%s, %s) of %s", start, end,
				m.Name())
		}
		defer scanner.Close()

		var skipped int64
		for int64(len(out)) < w.Length && scanner.Next() {
			if skipped < w.Start {
				skipped++
				continue
			}
			obj, err := m.Decode(scanner.Row())
			if err != nil {
				return newError(ErrCodec, op, err, "range [%s, %s) of %s", start, end, m.Name())
			}
			out = append(out, obj)
		}
		if err := scanner.Err(); err != nil {
			return newError(ErrStoreAccess, op, err, "range [%s, %s) of %s", start, end,
				m.Name())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.metrics.Rows(op, len(out))
	log.Debug().Msgf("%s [%s, %s) of %s window=%d+%d filter=%s: %d rows", op, start, end,
		m.Name(), w.Start, w.Length, f, len(out))
	return out, nil
}

// findOne is a single-row scan: [key, key] addresses exactly that row.
func findOne[T any](ctx context.Context, c *Client, m *codec.TypeMapping[T], op string,
	key litetable.RowKey, f *filter.Filter) (T, bool, error) {
	var zero T
	if err := validateKey(op, key); err != nil {
		return zero, false, err
	}
	objs, err := scanObjects(ctx, c, m, op, key, key, Page(0, 1), f)
	if err != nil || len(objs) == 0 {
		return zero, false, err
	}
	return objs[0], true, nil
}

// Find returns the object stored at key. The boolean is false when the row does not exist.
func (t *Table[T]) Find(ctx context.Context, key litetable.RowKey) (T, bool, error) {
	return findOne(ctx, t.client, t.mapping, "findObject", key, nil)
}

// FindList returns the objects of [start, end) inside window w, in ascending key order.
func (t *Table[T]) FindList(ctx context.Context, start, end litetable.RowKey,
	w Window) ([]T, error) {
	return scanObjects(ctx, t.client, t.mapping, "findObjectList", start, end, w, nil)
}
