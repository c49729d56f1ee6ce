package grpc

import (
	"github.com/litetable/litetable-access/internal/store"
	"github.com/litetable/litetable-access/internal/store/remote"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// toScan rebuilds a store.Scan from its wire form, recompiling the filter.
func (l *lt) toScan(req *remote.ScanRequest) (*store.Scan, error) {
	if req == nil {
		return nil, status.Errorf(codes.InvalidArgument, "scan required")
	}
	if req.Start == nil || req.Stop == nil {
		return nil, status.Errorf(codes.InvalidArgument, "start and stop keys required")
	}

	s := &store.Scan{
		Start:    req.Start,
		Stop:     req.Stop,
		Caching:  req.Caching,
		Families: req.Families,
		Columns:  req.Columns,
	}
	if req.Filter != nil {
		f, err := l.compiler.FromSource(*req.Filter)
		if err != nil {
			return nil, status.Errorf(codes.InvalidArgument, "invalid filter: %v", err)
		}
		// a nil *filter.Filter must not end up inside the interface
		if f != nil {
			s.Filter = f
		}
	}
	return s, nil
}
