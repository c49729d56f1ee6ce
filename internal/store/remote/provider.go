// Package remote is the gRPC binding of the store: the service contract shared with the store
// daemon, and a store.Provider whose handles talk to that daemon.
package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/litetable/litetable-access/internal/filter"
	"github.com/litetable/litetable-access/internal/litetable"
	"github.com/litetable/litetable-access/internal/store"
	"github.com/rs/zerolog/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
)

// HandleHeader carries the id of the calling handle, so server logs can be correlated with
// client ones.
const HandleHeader = "x-litetable-handle"

type Config struct {
	// Target is the gRPC target of the store daemon, e.g. 127.0.0.1:9443.
	Target string
	// DialOptions are appended to the default insecure, JSON-coded options.
	DialOptions []grpc.DialOption
}

func (c *Config) validate() error {
	var errGrp []error
	if c.Target == "" {
		errGrp = append(errGrp, errors.New("target required"))
	}
	return errors.Join(errGrp...)
}

// Provider hands out handles sharing one client connection.
type Provider struct {
	conn        *grpc.ClientConn
	client      StoreClient
	outstanding atomic.Int64
}

func New(cfg *Config) (*Provider, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	opts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.ForceCodec(Codec{})),
	}, cfg.DialOptions...)

	conn, err := grpc.NewClient(cfg.Target, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create store client for %s: %w", cfg.Target, err)
	}
	return &Provider{
		conn:   conn,
		client: NewStoreClient(conn),
	}, nil
}

func (p *Provider) Acquire(ctx context.Context) (store.Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	h := &handle{
		id:     uuid.NewString(),
		client: p.client,
	}
	p.outstanding.Add(1)
	log.Debug().Str("handle", h.id).Msg("Acquired store handle")
	return h, nil
}

func (p *Provider) Release(h store.Handle) {
	hd, ok := h.(*handle)
	if !ok {
		log.Warn().Msgf("Remote provider asked to release a foreign handle %T", h)
		return
	}
	if hd.released.CompareAndSwap(false, true) {
		p.outstanding.Add(-1)
		log.Debug().Str("handle", hd.id).Msg("Released store handle")
	}
}

// Outstanding returns the number of acquired handles not yet released.
func (p *Provider) Outstanding() int64 {
	return p.outstanding.Load()
}

// Close closes the client connection.
func (p *Provider) Close() error {
	return p.conn.Close()
}

type handle struct {
	id       string
	client   StoreClient
	released atomic.Bool
}

func (h *handle) outgoing(ctx context.Context) context.Context {
	return metadata.AppendToOutgoingContext(ctx, HandleHeader, h.id)
}

func (h *handle) Get(ctx context.Context, key litetable.RowKey,
	families []string) (*litetable.Row, error) {
	resp, err := h.client.Get(h.outgoing(ctx), &GetRequest{Row: key, Families: families})
	if err != nil {
		return nil, FromStatus(err)
	}
	return resp.Row, nil
}

func (h *handle) Put(ctx context.Context, p *store.Put) error {
	_, err := h.client.Put(h.outgoing(ctx), &PutRequest{Put: p})
	return FromStatus(err)
}

func (h *handle) Delete(ctx context.Context, d *store.Delete) error {
	_, err := h.client.Delete(h.outgoing(ctx), &DeleteRequest{Delete: d})
	return FromStatus(err)
}

func (h *handle) CheckAndPut(ctx context.Context, column litetable.Column, expected []byte,
	p *store.Put) (bool, error) {
	resp, err := h.client.CheckAndPut(h.outgoing(ctx), &CheckAndPutRequest{
		Column:   column,
		Expected: expected,
		Put:      p,
	})
	if err != nil {
		return false, FromStatus(err)
	}
	return resp.Applied, nil
}

func (h *handle) BatchDelete(ctx context.Context, deletes []*store.Delete) ([]*store.Delete,
	error) {
	resp, err := h.client.BatchDelete(h.outgoing(ctx), &BatchDeleteRequest{Deletes: deletes})
	if err != nil {
		// nothing is known to be applied
		return deletes, FromStatus(err)
	}
	return resp.Remaining, nil
}

func (h *handle) AggregateCount(ctx context.Context, s *store.Scan) (int64, error) {
	req, err := NewScanRequest(s)
	if err != nil {
		return 0, err
	}
	resp, err := h.client.AggregateCount(h.outgoing(ctx), &CountRequest{Scan: req})
	if err != nil {
		return 0, FromStatus(err)
	}
	return resp.Count, nil
}

func (h *handle) Scan(ctx context.Context, s *store.Scan) (store.Scanner, error) {
	req, err := NewScanRequest(s)
	if err != nil {
		return nil, err
	}

	streamCtx, cancel := context.WithCancel(h.outgoing(ctx))
	stream, err := h.client.Scan(streamCtx, req)
	if err != nil {
		cancel()
		return nil, FromStatus(err)
	}
	return &scanner{stream: stream, cancel: cancel}, nil
}

// NewScanRequest converts s into its wire form. Only filters built by the filter package can
// travel.
func NewScanRequest(s *store.Scan) (*ScanRequest, error) {
	if s == nil {
		return nil, fmt.Errorf("%w: scan is nil", store.ErrInvalidRequest)
	}
	req := &ScanRequest{
		Start:    s.Start,
		Stop:     s.Stop,
		Caching:  s.Caching,
		Families: s.Families,
		Columns:  s.Columns,
	}
	switch f := s.Filter.(type) {
	case nil:
	case *filter.Filter:
		if f != nil {
			src := f.Source()
			req.Filter = &src
		}
	default:
		return nil, fmt.Errorf("%w: filter %T cannot be sent to a remote store",
			store.ErrInvalidRequest, s.Filter)
	}
	return req, nil
}

type scanner struct {
	stream Store_ScanClient
	cancel context.CancelFunc

	batch  []*litetable.Row
	pos    int
	row    *litetable.Row
	done   bool
	closed bool
	err    error
}

func (s *scanner) Next() bool {
	if s.closed || s.done || s.err != nil {
		return false
	}
	for s.pos >= len(s.batch) {
		resp, err := s.stream.Recv()
		if errors.Is(err, io.EOF) {
			s.done = true
			s.row = nil
			return false
		}
		if err != nil {
			s.err = FromStatus(err)
			return false
		}
		s.batch = resp.Rows
		s.pos = 0
	}
	s.row = s.batch[s.pos]
	s.pos++
	return true
}

func (s *scanner) Row() *litetable.Row {
	return s.row
}

func (s *scanner) Err() error {
	return s.err
}

// Close cancels the stream, so a scan abandoned early stops on the server too.
func (s *scanner) Close() error {
	if !s.closed {
		s.closed = true
		s.cancel()
	}
	return nil
}
