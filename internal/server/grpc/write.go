package grpc

import (
	"context"
	"errors"

	"github.com/litetable/litetable-access/internal/store"
	"github.com/litetable/litetable-access/internal/store/remote"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func validatePut(p *store.Put) error {
	var errGrp []error
	if p == nil {
		return status.Errorf(codes.InvalidArgument, "put required")
	}
	if len(p.Row) == 0 {
		errGrp = append(errGrp, status.Errorf(codes.InvalidArgument, "row required"))
	}
	if len(p.Cells) == 0 {
		errGrp = append(errGrp, status.Errorf(codes.InvalidArgument, "cells required"))
	}
	return errors.Join(errGrp...)
}

func (l *lt) Put(ctx context.Context, msg *remote.PutRequest) (*remote.PutResponse, error) {
	if err := validatePut(msg.Put); err != nil {
		return nil, err
	}
	err := l.withHandle(ctx, "Put", func(h store.Handle) error {
		return h.Put(ctx, msg.Put)
	})
	if err != nil {
		return nil, err
	}
	return &remote.PutResponse{}, nil
}

func (l *lt) CheckAndPut(ctx context.Context,
	msg *remote.CheckAndPutRequest) (*remote.CheckAndPutResponse, error) {
	if err := validatePut(msg.Put); err != nil {
		return nil, err
	}
	if msg.Column.Family == "" || msg.Column.Qualifier == "" {
		return nil, status.Errorf(codes.InvalidArgument, "check column required")
	}

	resp := &remote.CheckAndPutResponse{}
	err := l.withHandle(ctx, "CheckAndPut", func(h store.Handle) error {
		applied, err := h.CheckAndPut(ctx, msg.Column, msg.Expected, msg.Put)
		resp.Applied = applied
		return err
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}
