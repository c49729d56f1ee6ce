// Package app runs the long-lived dependencies of the store daemon.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
)

//go:generate mockgen -destination=./app_mock.go -package=app -source=app.go

// Dependency is the interface that wraps the lifecycle of a component the application runs.
type Dependency interface {
	// Start readies the dependency. It must not block: servers serve from their own goroutine.
	Start() error
	// Stop releases everything Start acquired.
	Stop() error
	// Name is used for logging only.
	Name() string
}

type App struct {
	serviceName string
	// deps start in order and stop in reverse order.
	deps []Dependency
	// osSignalChan receives the signal that shuts the application down.
	osSignalChan chan os.Signal
	// runCalled allows Run to be called once
	runCalled atomic.Bool
	// stopTimeout bounds the whole shutdown.
	stopTimeout time.Duration
}

type Config struct {
	ServiceName string
	StopTimeout time.Duration
}

func (c *Config) validate() error {
	var errs []error
	if c.ServiceName == "" {
		errs = append(errs, errors.New("service name is required"))
	}
	if c.StopTimeout <= 0 {
		errs = append(errs, errors.New("stop timeout is required"))
	}
	return errors.Join(errs...)
}

// CreateApp creates a new application with the provided dependencies.
func CreateApp(cfg *Config, deps ...Dependency) (*App, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &App{
		serviceName:  cfg.ServiceName,
		deps:         deps,
		stopTimeout:  cfg.StopTimeout,
		osSignalChan: make(chan os.Signal, 1), // first signal we get shuts down the app
	}, nil
}

// Run starts every dependency and blocks until ctx is cancelled or the process receives
// SIGINT/SIGTERM. The store must be loaded before the servers accept traffic, so dependencies
// start one after the other; if one fails, those already started are stopped and the failure
// is returned.
func (a *App) Run(ctx context.Context) error {
	if !a.runCalled.CompareAndSwap(false, true) {
		return errors.New("run has already been called")
	}

	signal.Notify(a.osSignalChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(a.osSignalChan)

	started, err := a.start()
	if err != nil {
		log.Error().Msg("Dependency failed to start: " + err.Error())
		return errors.Join(err, a.stop(started))
	}
	log.Info().Msgf("%s is running", a.serviceName)

	select {
	case <-ctx.Done():
		log.Info().Msg("App Context cancelled: shutting down")
	case sig := <-a.osSignalChan:
		log.Info().Msg("OS Signal received: " + sig.String() + " shutdown beginning...")
	}

	if err := a.stop(started); err != nil {
		log.Error().Msg("Error stopping application: " + err.Error())
		return err
	}
	return nil
}

// start returns the dependencies that started, in start order.
func (a *App) start() (started []Dependency, err error) {
	for _, dep := range a.deps {
		log.Info().Msg("Starting dependency: " + dep.Name())
		if err := safeStart(dep); err != nil {
			return started, err
		}
		started = append(started, dep)
	}
	return started, nil
}

func safeStart(dep Dependency) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in Start() for dependency %s: %v", dep.Name(), r)
		}
	}()
	if err := dep.Start(); err != nil {
		return fmt.Errorf("failure in Start() for dependency %s: %w", dep.Name(), err)
	}
	return nil
}

// stop stops deps in reverse order and gives up waiting after the stop timeout.
func (a *App) stop(deps []Dependency) error {
	ctxTo, cancel := context.WithTimeout(context.Background(), a.stopTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		var errs []error
		for i := len(deps) - 1; i >= 0; i-- {
			dep := deps[i]
			log.Info().Msg("Stopping dependency: " + dep.Name())
			if err := dep.Stop(); err != nil {
				errs = append(errs, fmt.Errorf("failure in Stop() for dependency %s: %w",
					dep.Name(), err))
			}
		}
		done <- errors.Join(errs...)
	}()

	select {
	case err := <-done:
		return err
	case <-ctxTo.Done():
		return fmt.Errorf("stopping %s: %w", a.serviceName, ctxTo.Err())
	}
}
