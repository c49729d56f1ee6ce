package grpc

import (
	"context"
	"time"

	"github.com/litetable/litetable-access/internal/litetable"
	"github.com/litetable/litetable-access/internal/store"
	"github.com/litetable/litetable-access/internal/store/remote"
	"github.com/rs/zerolog/log"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func (l *lt) Get(ctx context.Context, msg *remote.GetRequest) (*remote.GetResponse, error) {
	if msg.Row == nil {
		return nil, status.Errorf(codes.InvalidArgument, "row required")
	}

	resp := &remote.GetResponse{}
	err := l.withHandle(ctx, "Get", func(h store.Handle) error {
		row, err := h.Get(ctx, msg.Row, msg.Families)
		resp.Row = row
		return err
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// Scan streams the rows of the scan in batches of the requested caching size.
func (l *lt) Scan(msg *remote.ScanRequest, stream remote.Store_ScanServer) error {
	now := time.Now()
	sc, err := l.toScan(msg)
	if err != nil {
		return err
	}
	caching := sc.Caching
	if caching < 1 {
		caching = 1
	}

	ctx := stream.Context()
	sent := 0
	err = l.withHandle(ctx, "Scan", func(h store.Handle) error {
		scanner, err := h.Scan(ctx, sc)
		if err != nil {
			return err
		}
		defer scanner.Close()

		batch := make([]*litetable.Row, 0, caching)
		for scanner.Next() {
			batch = append(batch, scanner.Row())
			if len(batch) < caching {
				continue
			}
			if err := stream.Send(&remote.ScanResponse{Rows: batch}); err != nil {
				return err
			}
			sent += len(batch)
			batch = make([]*litetable.Row, 0, caching)
		}
		if err := scanner.Err(); err != nil {
			return err
		}
		if len(batch) > 0 {
			if err := stream.Send(&remote.ScanResponse{Rows: batch}); err != nil {
				return err
			}
			sent += len(batch)
		}
		return nil
	})

	l.metrics.Rows("Scan", sent)
	log.Debug().Msgf("Scan streamed %d rows in %v", sent, time.Since(now))
	return err
}

func (l *lt) AggregateCount(ctx context.Context, msg *remote.CountRequest) (*remote.CountResponse,
	error) {
	sc, err := l.toScan(msg.Scan)
	if err != nil {
		return nil, err
	}

	resp := &remote.CountResponse{}
	err = l.withHandle(ctx, "AggregateCount", func(h store.Handle) error {
		n, err := h.AggregateCount(ctx, sc)
		resp.Count = n
		return err
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}
