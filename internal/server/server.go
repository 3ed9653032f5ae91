// Package server owns the listening socket and drives the accept loop that
// hands each connection to its own handler goroutine.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Tyrowin/gostatic/internal/protocol"
)

const maxAcceptDelay = time.Second

// ErrServerClosed is returned by Serve after Shutdown.
var ErrServerClosed = errors.New("server closed")

// Server serves the files of a route table over raw HTTP/1.1 connections.
type Server struct {
	config   *Config
	registry protocol.Resolver
	logger   zerolog.Logger
	limiter  *clientLimiter
	tracker  *connTracker

	// slots bounds the number of connections handled at once.
	slots chan struct{}
	quit  chan struct{}

	mu       sync.Mutex
	state    State
	listener net.Listener
	acceptWG sync.WaitGroup
}

// New creates a Server for the given configuration and route table, usually a
// *site.Registry. The table must be fully populated before Serve is called.
func New(cfg *Config, registry protocol.Resolver, logger zerolog.Logger) *Server {
	cfg.sanitize()

	return &Server{
		config:   cfg,
		registry: registry,
		logger:   logger,
		limiter:  newClientLimiter(cfg.RateLimit),
		tracker:  newConnTracker(logger),
		slots:    make(chan struct{}, cfg.ListenBacklog),
		quit:     make(chan struct{}),
		state:    StateIdle,
	}
}

// State returns the current lifecycle state.
func (s *Server) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Addr returns the listening address, or nil before Listen succeeds.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Listen binds the configured address. It returns a *BindError when the
// address is invalid or already in use.
func (s *Server) Listen() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateIdle {
		return fmt.Errorf("cannot listen: server is %s", s.state)
	}

	address := s.config.Address()
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return &BindError{Address: address, Err: err}
	}

	s.listener = listener
	s.state = StateListening
	s.logger.Info().Str("address", listener.Addr().String()).Msg("server listening")
	return nil
}

// Serve accepts connections until the listener is closed. Each connection is
// handled on its own goroutine; failures on one connection never stop the
// loop. Serve returns ErrServerClosed after Shutdown.
func (s *Server) Serve() error {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return ErrServerClosed
	}
	if s.state != StateListening {
		state := s.state
		s.mu.Unlock()
		return fmt.Errorf("cannot serve: server is %s", state)
	}
	listener := s.listener
	s.acceptWG.Add(1)
	s.mu.Unlock()

	defer s.acceptWG.Done()

	var acceptDelay time.Duration
	for {
		conn, err := listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return ErrServerClosed
			}

			if acceptDelay == 0 {
				acceptDelay = 5 * time.Millisecond
			} else {
				acceptDelay = min(2*acceptDelay, maxAcceptDelay)
			}
			s.logger.Error().Err(err).Dur("retry_in", acceptDelay).Msg("accept error")

			select {
			case <-time.After(acceptDelay):
				continue
			case <-s.quit:
				return ErrServerClosed
			}
		}
		acceptDelay = 0

		select {
		case s.slots <- struct{}{}:
		case <-s.quit:
			_ = conn.Close()
			return ErrServerClosed
		}

		id := uuid.NewString()
		s.tracker.register(conn, id)
		go func() {
			defer func() { <-s.slots }()
			s.handleConn(conn, id)
		}()
	}
}

// Start listens, serves, and blocks until ctx is cancelled or the process
// receives SIGINT or SIGTERM, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.Serve()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case <-ctx.Done():
		s.logger.Info().Msg("context cancelled")
	case sig := <-sigCh:
		s.logger.Info().Str("signal", sig.String()).Msg("received signal")
	case err := <-errCh:
		if !errors.Is(err, ErrServerClosed) {
			return err
		}
		return nil
	}

	return s.Shutdown(s.config.ShutdownTimeout)
}

// Shutdown closes the listener and waits up to timeout for in-flight
// connections to finish. Connections still open after the timeout are closed
// and context.DeadlineExceeded is returned.
func (s *Server) Shutdown(timeout time.Duration) error {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return nil
	}
	s.state = StateClosed
	listener := s.listener
	close(s.quit)
	s.mu.Unlock()

	s.logger.Info().Msg("shutting down the server")

	if listener != nil {
		if err := listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			s.logger.Warn().Err(err).Msg("error closing listener")
		}
	}
	s.acceptWG.Wait()

	if err := s.tracker.wait(timeout); err != nil {
		return err
	}

	s.logger.Info().Msg("server shutdown completed")
	return nil
}
