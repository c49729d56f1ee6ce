package access

import (
	"context"

	"github.com/litetable/litetable-access/internal/litetable"
	"github.com/litetable/litetable-access/internal/store"
	"github.com/rs/zerolog/log"
)

// DeleteObject removes the entire row at key.
func (c *Client) DeleteObject(ctx context.Context, key litetable.RowKey) error {
	const op = "deleteObject"
	if err := validateKey(op, key); err != nil {
		return err
	}

	return c.withHandle(ctx, op, func(h store.Handle) error {
		if err := h.Delete(ctx, &store.Delete{Row: key}); err != nil {
			return newError(ErrStoreAccess, op, err, "row %s", key)
		}
		return nil
	})
}

// DeleteObjectList removes every row of [start, end) that has a cell in families (any cell
// when families is empty). Rows go in batches of the configured delete batch size; each batch
// is collected by a fresh scan from start, so a failure leaves a deleted prefix and an intact
// suffix.
func (c *Client) DeleteObjectList(ctx context.Context, start, end litetable.RowKey,
	families []string) error {
	const op = "deleteObjectList"
	if err := validateRange(op, start, end); err != nil {
		return err
	}

	return c.withHandle(ctx, op, func(h store.Handle) error {
		var total int
		for {
			keys, err := c.collectKeys(ctx, h, op, start, end, families)
			if err != nil {
				return err
			}
			if len(keys) == 0 {
				break
			}

			deletes := make([]*store.Delete, len(keys))
			for i, key := range keys {
				deletes[i] = &store.Delete{Row: key}
			}
			remaining, err := h.BatchDelete(ctx, deletes)
			c.metrics.DeleteBatch()
			if err != nil || len(remaining) > 0 {
				return newError(ErrStoreAccess, op, err,
					"range [%s, %s): %d of %d deletes not acknowledged", start, end,
					len(remaining), len(deletes))
			}
			total += len(deletes)
			log.Debug().Msgf("deleteObjectList [%s, %s): batch of %d", start, end, len(deletes))

			if len(keys) < c.deleteBatch {
				break
			}
		}
		log.Debug().Msgf("deleteObjectList [%s, %s): %d rows", start, end, total)
		return nil
	})
}

// collectKeys returns up to deleteBatch row keys from the start of the range. The scanner is
// closed before the keys are returned.
func (c *Client) collectKeys(ctx context.Context, h store.Handle, op string, start,
	end litetable.RowKey, families []string) ([]litetable.RowKey, error) {
	scanner, err := h.Scan(ctx, &store.Scan{
		Start:    start,
		Stop:     end,
		Caching:  min(c.scanCaching, c.deleteBatch),
		Families: families,
	})
	if err != nil {
		return nil, newError(ErrStoreAccess, op, err, "range [%s, %s)", start, end)
	}
	defer scanner.Close()

	keys := make([]litetable.RowKey, 0, min(c.deleteBatch, c.scanCaching))
	for len(keys) < c.deleteBatch && scanner.Next() {
		keys = append(keys, scanner.Row().Key)
	}
	if err := scanner.Err(); err != nil {
		return nil, newError(ErrStoreAccess, op, err, "range [%s, %s)", start, end)
	}
	return keys, nil
}

// Delete removes the row at key.
func (t *Table[T]) Delete(ctx context.Context, key litetable.RowKey) error {
	return t.client.DeleteObject(ctx, key)
}

// DeleteList removes every row of [start, end) holding cells of the mapped families.
func (t *Table[T]) DeleteList(ctx context.Context, start, end litetable.RowKey) error {
	return t.client.DeleteObjectList(ctx, start, end, t.mapping.Families())
}
