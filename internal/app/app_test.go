package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestCreateApp(t *testing.T) {
	t.Parallel()
	tests := map[string]struct {
		cfg     *Config
		wantErr bool
	}{
		"valid": {
			cfg: &Config{ServiceName: "svc", StopTimeout: time.Second},
		},
		"missing name": {
			cfg:     &Config{StopTimeout: time.Second},
			wantErr: true,
		},
		"missing timeout": {
			cfg:     &Config{ServiceName: "svc"},
			wantErr: true,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := CreateApp(tc.cfg)
			if tc.wantErr {
				require.Error(t, err)
				require.Nil(t, got)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, got)
		})
	}
}

func newDep(ctrl *gomock.Controller, name string) *MockDependency {
	dep := NewMockDependency(ctrl)
	dep.EXPECT().Name().Return(name).AnyTimes()
	return dep
}

func TestApp_Run(t *testing.T) {
	t.Parallel()
	req := require.New(t)
	ctrl := gomock.NewController(t)

	store := newDep(ctrl, "store")
	server := newDep(ctrl, "server")
	gomock.InOrder(
		store.EXPECT().Start().Return(nil),
		server.EXPECT().Start().Return(nil),
		server.EXPECT().Stop().Return(nil),
		store.EXPECT().Stop().Return(nil),
	)

	a, err := CreateApp(&Config{ServiceName: "svc", StopTimeout: time.Second}, store, server)
	req.NoError(err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req.NoError(a.Run(ctx))
	req.Error(a.Run(ctx))
}

func TestApp_Run_startFailure(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)
	boom := errors.New("boom")

	tests := map[string]struct {
		fail func(dep *MockDependency)
	}{
		"error": {
			fail: func(dep *MockDependency) {
				dep.EXPECT().Start().Return(boom)
			},
		},
		"panic": {
			fail: func(dep *MockDependency) {
				dep.EXPECT().Start().DoAndReturn(func() error { panic("boom") })
			},
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			store := newDep(ctrl, "store")
			server := newDep(ctrl, "server")
			unreached := newDep(ctrl, "metrics")
			gomock.InOrder(
				store.EXPECT().Start().Return(nil),
				store.EXPECT().Stop().Return(nil),
			)
			tc.fail(server)

			a, err := CreateApp(&Config{ServiceName: "svc", StopTimeout: time.Second}, store,
				server, unreached)
			require.NoError(t, err)

			err = a.Run(context.Background())
			require.Error(t, err)
			require.Contains(t, err.Error(), "server")
		})
	}
}

func TestApp_Run_stopFailure(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)
	boom := errors.New("boom")

	dep := newDep(ctrl, "store")
	dep.EXPECT().Start().Return(nil)
	dep.EXPECT().Stop().Return(boom)

	a, err := CreateApp(&Config{ServiceName: "svc", StopTimeout: time.Second}, dep)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, a.Run(ctx), boom)
}
