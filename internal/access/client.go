// Package access is the row access engine. It maps typed objects onto rows of a sorted,
// column-family store and turns object reads, versioned writes, paged scans, range deletes and
// counts into primitive store operations.
//
// A Client carries the untyped, key-level operations and the shared configuration; a Table
// binds a Client to one registered type:
//
//	people, err := access.NewTable[Person](client)
//	p, found, err := people.Find(ctx, litetable.StringKey("person:1"))
package access

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/litetable/litetable-access/internal/codec"
	"github.com/litetable/litetable-access/internal/filter"
	"github.com/litetable/litetable-access/internal/litetable"
	"github.com/litetable/litetable-access/internal/metrics"
	"github.com/litetable/litetable-access/internal/query"
	"github.com/litetable/litetable-access/internal/store"
	"github.com/rs/zerolog/log"
)

const (
	DefaultScanCaching = 100
	DefaultDeleteBatch = 1000
)

type compiler interface {
	Compile(text string, schema codec.Schema, params map[string]any) (*filter.Filter, error)
	CompileForCount(text string, schema codec.Schema, params map[string]any,
		count litetable.Column) (*filter.Filter, error)
}

type templates interface {
	Lookup(id string) (*query.Template, error)
}

type Config struct {
	Provider store.Provider
	Registry *codec.Registry
	Compiler compiler
	// Queries resolves query ids. Optional; without it every query-by-id call fails.
	Queries templates
	// ScanCaching is the number of rows fetched per scanner round trip.
	ScanCaching int
	// DeleteBatch is the number of rows removed per batched delete.
	DeleteBatch int
	// CountColumn is the cell aggregated by counts. Rows without it are not counted.
	CountColumn litetable.Column
	// Metrics is optional.
	Metrics *metrics.Metrics
}

func (c *Config) validate() error {
	var errGrp []error
	if c.Provider == nil {
		errGrp = append(errGrp, errors.New("handle provider cannot be nil"))
	}
	if c.Registry == nil {
		errGrp = append(errGrp, errors.New("type registry cannot be nil"))
	}
	if c.Compiler == nil {
		errGrp = append(errGrp, errors.New("filter compiler cannot be nil"))
	}
	if c.ScanCaching < 0 {
		errGrp = append(errGrp, fmt.Errorf("scan caching cannot be negative: %d", c.ScanCaching))
	}
	if c.DeleteBatch < 0 {
		errGrp = append(errGrp, fmt.Errorf("delete batch cannot be negative: %d", c.DeleteBatch))
	}
	if c.CountColumn.Family == "" || c.CountColumn.Qualifier == "" {
		errGrp = append(errGrp, errors.New("count column needs a family and qualifier"))
	}
	return errors.Join(errGrp...)
}

// Client runs access operations. It holds no per-call state and is safe for concurrent use.
type Client struct {
	provider    store.Provider
	registry    *codec.Registry
	compiler    compiler
	queries     templates
	scanCaching int
	deleteBatch int
	countColumn litetable.Column
	metrics     *metrics.Metrics
}

func New(cfg *Config) (*Client, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	c := &Client{
		provider:    cfg.Provider,
		registry:    cfg.Registry,
		compiler:    cfg.Compiler,
		queries:     cfg.Queries,
		scanCaching: cfg.ScanCaching,
		deleteBatch: cfg.DeleteBatch,
		countColumn: cfg.CountColumn,
		metrics:     cfg.Metrics,
	}
	if c.scanCaching == 0 {
		c.scanCaching = DefaultScanCaching
	}
	if c.deleteBatch == 0 {
		c.deleteBatch = DefaultDeleteBatch
	}
	return c, nil
}

// withHandle runs fn with a handle acquired for this call alone. The handle is released on
// every path out of fn.
func (c *Client) withHandle(ctx context.Context, op string, fn func(store.Handle) error) error {
	return c.observe(ctx, op, func(h store.Handle) (string, error) {
		err := fn(h)
		return metrics.Outcome(err), err
	})
}

// observe is withHandle for operations that pick their own outcome label.
func (c *Client) observe(ctx context.Context, op string,
	fn func(store.Handle) (string, error)) error {
	started := time.Now()
	h, err := c.provider.Acquire(ctx)
	if err != nil {
		c.metrics.Observe(op, started, metrics.OutcomeError)
		return newError(ErrStoreAccess, op, err, "acquire handle")
	}
	defer c.provider.Release(h)

	outcome, err := fn(h)
	c.metrics.Observe(op, started, outcome)
	return err
}

// GetRow reads the raw row at key, restricted to families. It returns nil when the row does not
// exist.
func (c *Client) GetRow(ctx context.Context, key litetable.RowKey,
	families []string) (*litetable.Row, error) {
	const op = "getRow"
	if err := validateKey(op, key); err != nil {
		return nil, err
	}

	var row *litetable.Row
	err := c.withHandle(ctx, op, func(h store.Handle) error {
		var err error
		row, err = h.Get(ctx, key, families)
		if err != nil {
			return newError(ErrStoreAccess, op, err, "row %s", key)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Debug().Msgf("getRow %s found=%t", key, row != nil)
	return row, nil
}
