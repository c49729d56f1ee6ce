package access

import (
	"github.com/litetable/litetable-access/internal/codec"
)

// Table binds a Client to the registered mapping of T.
type Table[T any] struct {
	client  *Client
	mapping *codec.TypeMapping[T]
}

// NewTable resolves the mapping of T from the client's registry. The registry must be sealed.
func NewTable[T any](c *Client) (*Table[T], error) {
	const op = "newTable"
	m, err := codec.Lookup[T](c.registry)
	if err != nil {
		return nil, newError(ErrInvalidArgument, op, err, "resolve type")
	}
	return &Table[T]{
		client:  c,
		mapping: m,
	}, nil
}
