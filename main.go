package main

import (
	"context"
	"os"
	"time"

	"github.com/litetable/litetable-access/internal/app"
	"github.com/litetable/litetable-access/internal/cdc_emitter"
	"github.com/litetable/litetable-access/internal/config"
	"github.com/litetable/litetable-access/internal/filter"
	"github.com/litetable/litetable-access/internal/metrics"
	"github.com/litetable/litetable-access/internal/server/grpc"
	"github.com/litetable/litetable-access/internal/snapshot"
	"github.com/litetable/litetable-access/internal/store/memstore"
	"github.com/litetable/litetable-access/internal/wal"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
)

// configPathEnv points at an explicit config file. Unset, the daemon looks in the LiteTable
// Access directory.
const configPathEnv = "LITETABLE_ACCESS_CONFIG"

func main() {
	application, err := initialize()
	if err != nil {
		panic(err)
	}

	if err = application.Run(context.Background()); err != nil {
		panic(err)
	}
}

func initialize() (*app.App, error) {
	var deps []app.Dependency

	cfg, err := config.Load(os.Getenv(configPathEnv))
	if err != nil {
		return nil, err
	}
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if cfg.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	// create the WAL manager; the memory store replays, truncates and closes it
	walManager, err := wal.New(&wal.Config{
		Path: cfg.Store.DataDir,
	})
	if err != nil {
		return nil, err
	}

	snapshots, err := snapshot.New(&snapshot.Config{
		RootDir: cfg.Store.DataDir,
		Limit:   cfg.Store.SnapshotLimit,
	})
	if err != nil {
		return nil, err
	}

	cdcEmitter, err := cdc_emitter.New(&cdc_emitter.Config{
		Port:    cfg.CDC.Port,
		Address: cfg.CDC.Address,
	})
	if err != nil {
		return nil, err
	}
	deps = append(deps, cdcEmitter)

	table, err := memstore.New(&memstore.Config{
		Families:         cfg.Store.Families,
		WAL:              walManager,
		CDC:              cdcEmitter,
		Snapshots:        snapshots,
		SnapshotInterval: cfg.Store.SnapshotInterval,
	})
	if err != nil {
		return nil, err
	}
	deps = append(deps, table)

	compiler, err := filter.New(&filter.Config{
		CacheSize: cfg.Filter.CacheSize,
	})
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(
		collectors.ProcessCollectorOpts{}))

	srv, err := grpc.NewServer(&grpc.Config{
		Address:  cfg.Store.Address,
		Port:     cfg.Store.Port,
		Provider: table,
		Compiler: compiler,
		Metrics:  metrics.New(registry),
	})
	if err != nil {
		return nil, err
	}
	deps = append(deps, srv)

	// port 0 turns the metrics endpoint off
	if cfg.Metrics.Port != 0 {
		metricsSrv, err := metrics.NewServer(&metrics.ServerConfig{
			Address:  cfg.Metrics.Address,
			Port:     cfg.Metrics.Port,
			Gatherer: registry,
		})
		if err != nil {
			return nil, err
		}
		deps = append(deps, metricsSrv)
	}

	application, err := app.CreateApp(&app.Config{
		ServiceName: "LiteTable Access",
		StopTimeout: 10 * time.Second,
	}, deps...)
	if err != nil {
		return nil, err
	}

	return application, nil
}
