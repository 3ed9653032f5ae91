// Package server tracks in-flight client connections so shutdown can wait for
// them and close whatever is left when the timeout expires.
package server

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// connTracker records every connection currently being handled.
type connTracker struct {
	conns  map[net.Conn]string
	mutex  sync.Mutex
	wg     sync.WaitGroup
	logger zerolog.Logger
}

func newConnTracker(logger zerolog.Logger) *connTracker {
	return &connTracker{
		conns:  make(map[net.Conn]string),
		logger: logger,
	}
}

func (t *connTracker) register(conn net.Conn, id string) {
	t.mutex.Lock()
	t.conns[conn] = id
	t.mutex.Unlock()
	t.wg.Add(1)
}

func (t *connTracker) unregister(conn net.Conn) {
	t.mutex.Lock()
	_, ok := t.conns[conn]
	delete(t.conns, conn)
	t.mutex.Unlock()

	if ok {
		t.wg.Done()
	}
}

func (t *connTracker) count() int {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	return len(t.conns)
}

// closeAll force-closes every tracked connection.
func (t *connTracker) closeAll() int {
	t.mutex.Lock()
	conns := make([]net.Conn, 0, len(t.conns))
	for conn := range t.conns {
		conns = append(conns, conn)
	}
	t.mutex.Unlock()

	for _, conn := range conns {
		if err := conn.Close(); err != nil && !isExpectedCloseError(err) {
			t.logger.Warn().Err(err).Str("remote", conn.RemoteAddr().String()).Msg("error closing connection")
		}
	}
	return len(conns)
}

// wait blocks until every tracked connection has finished or the timeout
// expires, in which case the remaining connections are closed and
// context.DeadlineExceeded is returned.
func (t *connTracker) wait(timeout time.Duration) error {
	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		closed := t.closeAll()
		t.logger.Warn().Int("connections", closed).Msg("shutdown timeout reached, closed remaining connections")
		return context.DeadlineExceeded
	}
}
