package remote

import (
	"context"
	"errors"
	"fmt"

	"github.com/litetable/litetable-access/internal/store"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ToStatus converts a store error into a gRPC status error.
func ToStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return status.FromContextError(err).Err()
	case errors.Is(err, store.ErrInvalidRequest):
		return status.Errorf(codes.InvalidArgument, "%v", err)
	case errors.Is(err, store.ErrFamilyNotAllowed):
		return status.Errorf(codes.FailedPrecondition, "%v", err)
	case errors.Is(err, store.ErrClosed):
		return status.Errorf(codes.Unavailable, "%v", err)
	}
	return status.Errorf(codes.Internal, "%v", err)
}

// FromStatus converts a gRPC status error back into the matching store error.
func FromStatus(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	switch st.Code() {
	case codes.InvalidArgument:
		return fmt.Errorf("%w: %s", store.ErrInvalidRequest, st.Message())
	case codes.FailedPrecondition:
		return fmt.Errorf("%w: %s", store.ErrFamilyNotAllowed, st.Message())
	case codes.Unavailable:
		return fmt.Errorf("%w: %s", store.ErrClosed, st.Message())
	case codes.Canceled:
		return fmt.Errorf("%w: %s", context.Canceled, st.Message())
	case codes.DeadlineExceeded:
		return fmt.Errorf("%w: %s", context.DeadlineExceeded, st.Message())
	}
	return err
}
