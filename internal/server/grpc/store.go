package grpc

import (
	"context"
	"time"

	"github.com/litetable/litetable-access/internal/filter"
	"github.com/litetable/litetable-access/internal/metrics"
	"github.com/litetable/litetable-access/internal/store"
	"github.com/litetable/litetable-access/internal/store/remote"
	"github.com/rs/zerolog/log"
	"google.golang.org/grpc/metadata"
)

type compiler interface {
	FromSource(src filter.Source) (*filter.Filter, error)
}

// lt serves the store service. Every call acquires its own handle from the provider.
type lt struct {
	provider store.Provider
	compiler compiler
	metrics  *metrics.Metrics
}

var _ remote.StoreServer = (*lt)(nil)

// withHandle runs fn with a freshly acquired handle and converts its error to a status.
func (l *lt) withHandle(ctx context.Context, method string, fn func(store.Handle) error) error {
	started := time.Now()
	h, err := l.provider.Acquire(ctx)
	if err != nil {
		l.metrics.Observe(method, started, metrics.OutcomeError)
		return remote.ToStatus(err)
	}
	defer l.provider.Release(h)

	log.Debug().Str("handle", callerHandle(ctx)).Msgf("%s request", method)
	err = fn(h)
	l.metrics.Observe(method, started, metrics.Outcome(err))
	return remote.ToStatus(err)
}

func callerHandle(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	if ids := md.Get(remote.HandleHeader); len(ids) > 0 {
		return ids[0]
	}
	return ""
}
