package grpc

import (
	"context"

	"github.com/litetable/litetable-access/internal/store"
	"github.com/litetable/litetable-access/internal/store/remote"
	"github.com/rs/zerolog/log"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func (l *lt) Delete(ctx context.Context, msg *remote.DeleteRequest) (*remote.DeleteResponse,
	error) {
	if msg.Delete == nil || len(msg.Delete.Row) == 0 {
		return nil, status.Errorf(codes.InvalidArgument, "row required")
	}
	err := l.withHandle(ctx, "Delete", func(h store.Handle) error {
		return h.Delete(ctx, msg.Delete)
	})
	if err != nil {
		return nil, err
	}
	return &remote.DeleteResponse{}, nil
}

// BatchDelete applies the deletes and reports the ones that were not applied. A partial
// failure is reported through Remaining, not as an error.
func (l *lt) BatchDelete(ctx context.Context,
	msg *remote.BatchDeleteRequest) (*remote.BatchDeleteResponse, error) {
	resp := &remote.BatchDeleteResponse{}
	err := l.withHandle(ctx, "BatchDelete", func(h store.Handle) error {
		remaining, err := h.BatchDelete(ctx, msg.Deletes)
		l.metrics.DeleteBatch()
		resp.Remaining = remaining
		if err != nil && len(remaining) == 0 {
			return err
		}
		if err != nil {
			log.Warn().Err(err).Msgf("BatchDelete left %d of %d deletes", len(remaining),
				len(msg.Deletes))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}
