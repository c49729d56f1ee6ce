// Package cdc_emitter broadcasts applied row mutations to TCP subscribers as JSON lines.
package cdc_emitter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/rs/zerolog/log"
)

const defaultBufferSize = 100000

type Config struct {
	// Port to listen on. Zero picks a free port.
	Port    int
	Address string
	// BufferSize is the number of pending events kept before new ones are dropped.
	BufferSize int
}

func (c *Config) validate() error {
	var errGrp []error
	if c.Port < 0 {
		errGrp = append(errGrp, fmt.Errorf("invalid port: %d", c.Port))
	}
	if c.Address == "" {
		errGrp = append(errGrp, fmt.Errorf("invalid address: %s", c.Address))
	}
	if c.BufferSize < 0 {
		errGrp = append(errGrp, fmt.Errorf("invalid buffer size: %d", c.BufferSize))
	}
	return errors.Join(errGrp...)
}

type Manager struct {
	listener net.Listener

	emitChan   chan *CDCParams
	procCtx    context.Context
	procCancel context.CancelFunc

	clients    map[net.Conn]bool
	clientsMux sync.Mutex
}

func New(cfg *Config) (*Manager, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	addrString := fmt.Sprintf("%s:%d", cfg.Address, cfg.Port)
	listener, err := net.Listen("tcp", addrString)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addrString, err)
	}

	size := cfg.BufferSize
	if size == 0 {
		size = defaultBufferSize
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		listener:   listener,
		emitChan:   make(chan *CDCParams, size),
		procCtx:    ctx,
		procCancel: cancel,

		clients: make(map[net.Conn]bool),
	}, nil
}

// Addr returns the address subscribers connect to.
func (m *Manager) Addr() net.Addr {
	return m.listener.Addr()
}

func (m *Manager) Start() error {
	go func() {
		for {
			select {
			case <-m.procCtx.Done():
				return
			case p := <-m.emitChan:
				m.raiseCDCEvent(p)
			}
		}
	}()

	go func() {
		for {
			conn, err := m.listener.Accept()
			if err != nil {
				if m.procCtx.Err() != nil || errors.Is(err, net.ErrClosed) {
					return
				}
				log.Warn().Err(err).Msg("Failed to accept CDC connection")
				continue
			}

			go m.handle(conn)
		}
	}()

	log.Info().Msgf("CDC emitter listening on %s", m.listener.Addr())
	return nil
}

func (m *Manager) Stop() error {
	if m.procCancel != nil {
		m.procCancel()
	}

	if m.listener != nil {
		if err := m.listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			return fmt.Errorf("failed to close listener: %w", err)
		}
	}

	m.clientsMux.Lock()
	for client := range m.clients {
		_ = client.Close()
		delete(m.clients, client)
	}
	m.clientsMux.Unlock()

	return nil
}

func (m *Manager) Name() string {
	return "CDC Emitter"
}

func (m *Manager) handle(conn net.Conn) {
	defer func() {
		_ = conn.Close()

		m.clientsMux.Lock()
		delete(m.clients, conn)
		m.clientsMux.Unlock()
	}()

	m.clientsMux.Lock()
	m.clients[conn] = true
	m.clientsMux.Unlock()

	log.Debug().Msgf("CDC client connected: %s", conn.RemoteAddr())

	// Reading is only used to detect disconnection
	buffer := make([]byte, 4096)
	for {
		if _, err := conn.Read(buffer); err != nil {
			if errors.Is(err, io.EOF) {
				log.Debug().Msgf("CDC client disconnected: %s", conn.RemoteAddr())
			} else {
				log.Debug().Err(err).Msgf("Error reading from CDC client %s", conn.RemoteAddr())
			}
			return
		}
	}
}
