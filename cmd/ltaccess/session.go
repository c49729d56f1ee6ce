package main

import (
	"errors"

	"github.com/litetable/litetable-access/internal/access"
	"github.com/litetable/litetable-access/internal/codec"
	"github.com/litetable/litetable-access/internal/config"
	"github.com/litetable/litetable-access/internal/filter"
	"github.com/litetable/litetable-access/internal/query"
	"github.com/litetable/litetable-access/internal/store"
	"github.com/litetable/litetable-access/internal/store/remote"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// session is the state shared by all subcommands: the global flags and the client built from
// them.
type session struct {
	configPath  string
	target      string
	columns     []string
	version     string
	countColumn string
	intKeys     bool
	debug       bool

	// provider is dialled from the config unless already set.
	provider store.Provider
	remote   *remote.Provider
	client   *access.Client
	records  *access.Table[record]
	queries  *query.Registry
}

func (s *session) open(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(s.configPath)
	if err != nil {
		return err
	}

	level := zerolog.WarnLevel
	if s.debug || cfg.Debug {
		level = zerolog.DebugLevel
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr()}).Level(level)

	if s.provider == nil {
		target := s.target
		if target == "" {
			target = cfg.Store.Target()
		}
		s.remote, err = remote.New(&remote.Config{Target: target})
		if err != nil {
			return err
		}
		s.provider = s.remote
	}

	countColumn := cfg.CountColumn()
	if s.countColumn != "" {
		if countColumn, err = parseCell(s.countColumn); err != nil {
			return err
		}
	}

	registry := codec.NewRegistry()
	if len(s.columns) > 0 {
		m, err := recordMapping(s.columns, s.version, s.intKeys)
		if err != nil {
			return err
		}
		if err := codec.Register(registry, m); err != nil {
			return err
		}
	} else if s.version != "" {
		return errors.New("--version needs at least one --column")
	}
	registry.Seal()

	compiler, err := filter.New(&filter.Config{CacheSize: cfg.Filter.CacheSize})
	if err != nil {
		return err
	}
	if s.queries, err = query.Load(cfg.Access.QueriesFile); err != nil {
		return err
	}

	s.client, err = access.New(&access.Config{
		Provider:    s.provider,
		Registry:    registry,
		Compiler:    compiler,
		Queries:     s.queries,
		ScanCaching: cfg.Access.ScanCaching,
		DeleteBatch: cfg.Access.DeleteBatch,
		CountColumn: countColumn,
	})
	if err != nil {
		return err
	}
	if len(s.columns) > 0 {
		if s.records, err = access.NewTable[record](s.client); err != nil {
			return err
		}
	}
	return nil
}

func (s *session) close(*cobra.Command, []string) error {
	if s.remote != nil {
		return s.remote.Close()
	}
	return nil
}

func (s *session) table() (*access.Table[record], error) {
	if s.records == nil {
		return nil, errors.New("this command needs at least one --column")
	}
	return s.records, nil
}
