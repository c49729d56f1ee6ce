package access

import (
	"context"

	"github.com/litetable/litetable-access/internal/filter"
	"github.com/litetable/litetable-access/internal/litetable"
	"github.com/litetable/litetable-access/internal/store"
	"github.com/rs/zerolog/log"
)

// Count returns the number of rows of [start, end) carrying the counting column. The count is
// aggregated by the store.
func (c *Client) Count(ctx context.Context, start, end litetable.RowKey) (int64, error) {
	return c.count(ctx, "count", start, end, nil)
}

func (c *Client) count(ctx context.Context, op string, start, end litetable.RowKey,
	f *filter.Filter) (int64, error) {
	if err := validateRange(op, start, end); err != nil {
		return 0, err
	}

	sc := &store.Scan{
		Start:   start,
		Stop:    end,
		Caching: c.scanCaching,
		Columns: []litetable.Column{c.countColumn},
	}
	if f != nil {
		sc.Filter = f
	}

	var n int64
	err := c.withHandle(ctx, op, func(h store.Handle) error {
		var err error
		n, err = h.AggregateCount(ctx, sc)
		if err != nil {
			return newError(ErrStoreAccess, op, err, "range [%s, %s) on %s", start, end,
				c.countColumn)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	log.Debug().Msgf("%s [%s, %s) filter=%s: %d", op, start, end, f, n)
	return n, nil
}

// Count returns the number of rows of [start, end) carrying the counting column.
func (t *Table[T]) Count(ctx context.Context, start, end litetable.RowKey) (int64, error) {
	return t.client.Count(ctx, start, end)
}
