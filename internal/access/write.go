package access

import (
	"context"
	"reflect"

	"github.com/litetable/litetable-access/internal/litetable"
	"github.com/litetable/litetable-access/internal/metrics"
	"github.com/litetable/litetable-access/internal/store"
	"github.com/rs/zerolog/log"
)

func (t *Table[T]) encode(op string, key litetable.RowKey, obj T) (*store.Put, error) {
	if err := validateKey(op, key); err != nil {
		return nil, err
	}
	if isNil(obj) {
		return nil, newError(ErrInvalidArgument, op, nil, "nil %s for row %s", t.mapping.Name(),
			key)
	}
	cells, err := t.mapping.Encode(obj)
	if err != nil {
		return nil, newError(ErrCodec, op, err, "row %s of %s", key, t.mapping.Name())
	}
	return &store.Put{Row: key, Cells: cells}, nil
}

// Put writes every mapped cell of obj to the row at key in one atomic mutation.
func (t *Table[T]) Put(ctx context.Context, key litetable.RowKey, obj T) error {
	const op = "putObject"
	put, err := t.encode(op, key, obj)
	if err != nil {
		return err
	}

	return t.client.withHandle(ctx, op, func(h store.Handle) error {
		if err := h.Put(ctx, put); err != nil {
			return newError(ErrStoreAccess, op, err, "row %s of %s", key, t.mapping.Name())
		}
		log.Debug().Msgf("putObject %s of %s: %d cells", key, t.mapping.Name(), len(put.Cells))
		return nil
	})
}

// UpdateWithVersion writes obj only if the stored version cell equals expected. A nil expected
// requires the version cell to be absent. The result reports whether the write was applied; a
// rejected write is not an error.
func (t *Table[T]) UpdateWithVersion(ctx context.Context, key litetable.RowKey, obj T,
	expected []byte) (bool, error) {
	const op = "updateObjectWithVersion"
	return t.updateWithVersion(ctx, op, key, obj, expected)
}

func (t *Table[T]) updateWithVersion(ctx context.Context, op string, key litetable.RowKey,
	obj T, expected []byte) (bool, error) {
	column, ok := t.mapping.VersionColumn()
	if !ok {
		return false, newError(ErrNotVersionedType, op, nil, "%s", t.mapping.Name())
	}
	put, err := t.encode(op, key, obj)
	if err != nil {
		return false, err
	}

	var applied bool
	err = t.client.observe(ctx, op, func(h store.Handle) (string, error) {
		var err error
		applied, err = h.CheckAndPut(ctx, column, expected, put)
		if err != nil {
			return metrics.OutcomeError, newError(ErrStoreAccess, op, err, "row %s of %s", key,
				t.mapping.Name())
		}
		if !applied {
			return metrics.OutcomeRejected, nil
		}
		return metrics.OutcomeOK, nil
	})
	if err != nil {
		return false, err
	}

	log.Debug().Msgf("%s %s of %s: applied=%t", op, key, t.mapping.Name(), applied)
	return applied, nil
}

// Insert writes obj only if the row has no version cell yet.
func (t *Table[T]) Insert(ctx context.Context, key litetable.RowKey, obj T) (bool, error) {
	return t.updateWithVersion(ctx, "insertObject", key, obj, nil)
}

// Update replaces old with updated, guarded by the version old was read with.
func (t *Table[T]) Update(ctx context.Context, key litetable.RowKey, old, updated T) (bool,
	error) {
	const op = "updateObject"
	if isNil(old) || isNil(updated) {
		return false, newError(ErrInvalidArgument, op, nil, "nil %s for row %s",
			t.mapping.Name(), key)
	}
	if oldType, newType := reflect.TypeOf(any(old)), reflect.TypeOf(any(updated)); oldType != newType {
		return false, newError(ErrTypeMismatch, op, nil, "row %s: %s and %s", key, oldType,
			newType)
	}
	if !t.mapping.Versioned() {
		return false, newError(ErrNotVersionedType, op, nil, "%s", t.mapping.Name())
	}

	expected, err := t.mapping.Version(old)
	if err != nil {
		return false, newError(ErrCodec, op, err, "row %s of %s", key, t.mapping.Name())
	}
	return t.updateWithVersion(ctx, op, key, updated, expected)
}

// VersionOf returns the encoded version token of obj, as compared by UpdateWithVersion.
func (t *Table[T]) VersionOf(obj T) ([]byte, error) {
	const op = "versionOf"
	if !t.mapping.Versioned() {
		return nil, newError(ErrNotVersionedType, op, nil, "%s", t.mapping.Name())
	}
	if isNil(obj) {
		return nil, newError(ErrInvalidArgument, op, nil, "nil %s", t.mapping.Name())
	}
	token, err := t.mapping.Version(obj)
	if err != nil {
		return nil, newError(ErrCodec, op, err, "%s", t.mapping.Name())
	}
	return token, nil
}
