package access

import (
	"context"

	"github.com/litetable/litetable-access/internal/filter"
	"github.com/litetable/litetable-access/internal/litetable"
)

// render resolves a registered query and renders it against params.
func (c *Client) render(op, id string, params map[string]any) (string, error) {
	if isNil(c.queries) {
		return "", newError(ErrInvalidArgument, op, nil, "no query templates, cannot run %s", id)
	}
	tmpl, err := c.queries.Lookup(id)
	if err != nil {
		return "", newError(ErrInvalidArgument, op, err, "query %s", id)
	}
	text, err := tmpl.Render(params)
	if err != nil {
		return "", newError(ErrInvalidArgument, op, err, "query %s", id)
	}
	return text, nil
}

func (t *Table[T]) compile(op, text string, params map[string]any) (*filter.Filter, error) {
	f, err := t.client.compiler.Compile(text, t.mapping.Schema(), params)
	if err != nil {
		return nil, newError(ErrInvalidArgument, op, err, "filter for %s", t.mapping.Name())
	}
	return f, nil
}

func (t *Table[T]) compileForCount(op, text string, params map[string]any) (*filter.Filter,
	error) {
	f, err := t.client.compiler.CompileForCount(text, t.mapping.Schema(), params,
		t.client.countColumn)
	if err != nil {
		return nil, newError(ErrInvalidArgument, op, err, "count filter for %s",
			t.mapping.Name())
	}
	return f, nil
}

func (t *Table[T]) queryFilter(op, id string, params map[string]any) (*filter.Filter, error) {
	text, err := t.client.render(op, id, params)
	if err != nil {
		return nil, err
	}
	return t.compile(op, text, params)
}

// FindByQuery returns the object at key if it matches the registered query id.
func (t *Table[T]) FindByQuery(ctx context.Context, key litetable.RowKey, id string,
	params map[string]any) (T, bool, error) {
	const op = "findObjectByQuery"
	if err := validateKey(op, key); err != nil {
		var zero T
		return zero, false, err
	}
	f, err := t.queryFilter(op, id, params)
	if err != nil {
		var zero T
		return zero, false, err
	}
	return findOne(ctx, t.client, t.mapping, op, key, f)
}

// FindListByQuery returns the window w of the objects of [start, end) that match the
// registered query id.
func (t *Table[T]) FindListByQuery(ctx context.Context, start, end litetable.RowKey, w Window,
	id string, params map[string]any) ([]T, error) {
	const op = "findObjectListByQuery"
	if err := validateRange(op, start, end); err != nil {
		return nil, err
	}
	if err := w.validate(op); err != nil {
		return nil, err
	}
	f, err := t.queryFilter(op, id, params)
	if err != nil {
		return nil, err
	}
	return scanObjects(ctx, t.client, t.mapping, op, start, end, w, f)
}

// FindByRawQuery returns the object at key if it matches the filter text. Blank text matches
// every row.
func (t *Table[T]) FindByRawQuery(ctx context.Context, key litetable.RowKey, text string,
	params map[string]any) (T, bool, error) {
	const op = "findObjectByRawQuery"
	if err := validateKey(op, key); err != nil {
		var zero T
		return zero, false, err
	}
	f, err := t.compile(op, text, params)
	if err != nil {
		var zero T
		return zero, false, err
	}
	return findOne(ctx, t.client, t.mapping, op, key, f)
}

// FindListByRawQuery returns the window w of the objects of [start, end) that match the filter
// text.
func (t *Table[T]) FindListByRawQuery(ctx context.Context, start, end litetable.RowKey,
	w Window, text string, params map[string]any) ([]T, error) {
	const op = "findObjectListByRawQuery"
	if err := validateRange(op, start, end); err != nil {
		return nil, err
	}
	if err := w.validate(op); err != nil {
		return nil, err
	}
	f, err := t.compile(op, text, params)
	if err != nil {
		return nil, err
	}
	return scanObjects(ctx, t.client, t.mapping, op, start, end, w, f)
}

// CountByQuery counts the rows of [start, end) that match the registered query id.
func (t *Table[T]) CountByQuery(ctx context.Context, start, end litetable.RowKey, id string,
	params map[string]any) (int64, error) {
	const op = "countByQuery"
	if err := validateRange(op, start, end); err != nil {
		return 0, err
	}
	text, err := t.client.render(op, id, params)
	if err != nil {
		return 0, err
	}
	f, err := t.compileForCount(op, text, params)
	if err != nil {
		return 0, err
	}
	return t.client.count(ctx, op, start, end, f)
}

// CountByRawQuery counts the rows of [start, end) that match the filter text.
func (t *Table[T]) CountByRawQuery(ctx context.Context, start, end litetable.RowKey,
	text string, params map[string]any) (int64, error) {
	const op = "countByRawQuery"
	if err := validateRange(op, start, end); err != nil {
		return 0, err
	}
	f, err := t.compileForCount(op, text, params)
	if err != nil {
		return 0, err
	}
	return t.client.count(ctx, op, start, end, f)
}
