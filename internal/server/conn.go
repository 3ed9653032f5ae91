// Package server handles individual client connections: framing the request,
// building the response, and closing the connection.
package server

import (
	"errors"
	"io"
	"net"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/Tyrowin/gostatic/internal/protocol"
)

const (
	closeLinger   = 250 * time.Millisecond
	maxDrainBytes = 64 << 10
)

// handleConn serves a single request on conn and closes it. It never panics
// past its own frame, so one bad connection cannot stop the accept loop.
func (s *Server) handleConn(conn net.Conn, id string) {
	logger := s.logger.With().
		Str("conn", id).
		Str("remote", conn.RemoteAddr().String()).
		Logger()

	defer func() {
		if r := recover(); r != nil {
			logger.Error().Interface("panic", r).Msg("recovered from panic while handling connection")
		}
		s.closeConnection(conn, logger)
		s.tracker.unregister(conn)
	}()

	resp := s.respond(conn, logger)
	if resp == nil {
		return
	}
	s.writeResponse(conn, resp, logger)
}

// respond reads the request from conn and decides the response. It returns
// nil when there is nobody to answer.
func (s *Server) respond(conn net.Conn, logger zerolog.Logger) *protocol.Response {
	if err := conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout)); err != nil {
		logger.Warn().Err(err).Msg("error setting read deadline")
	}

	data, err := protocol.ReadHead(conn, s.config.MaxRequestSize)
	switch {
	case errors.Is(err, protocol.ErrRequestTooLarge):
		logger.Warn().Int("limit", s.config.MaxRequestSize).Msg("request head too large")
		return protocol.ErrorResponse(413, "Payload Too Large")
	case errors.Is(err, os.ErrDeadlineExceeded):
		logger.Debug().Dur("timeout", s.config.ReadTimeout).Msg("client sent nothing before the read deadline")
		return nil
	case err != nil:
		s.logIOError(logger, err, "error reading request")
		return nil
	case len(data) == 0:
		logger.Debug().Msg("connection closed without sending data")
		return nil
	}

	if !s.limiter.allow(clientHost(conn.RemoteAddr())) {
		logger.Warn().
			Int("burst", s.config.RateLimit.Burst).
			Dur("interval", s.config.RateLimit.RefillInterval).
			Msg("rate limit exceeded")
		return protocol.ErrorResponse(429, "Too Many Requests")
	}

	req, err := protocol.ParseRequest(data)
	if err != nil {
		logger.Debug().Err(err).Int("bytes", len(data)).Msg("rejecting request")
		return protocol.ErrorResponse(400, "Bad Request")
	}
	logger.Debug().Str("request", req.RequestLine()).Msg("request")

	resp, err := protocol.BuildResponse(req, s.registry)
	if err != nil {
		logger.Error().Err(err).Str("url", req.URL).Msg("failed to read content")
	}

	logger.Info().
		Str("method", req.Method).
		Str("url", req.URL).
		Int("status", resp.StatusCode).
		Int("bytes", len(resp.Body)).
		Msg("served")
	return resp
}

func (s *Server) writeResponse(conn net.Conn, resp *protocol.Response, logger zerolog.Logger) {
	logger.Debug().Str("response", resp.StatusLine()).Msg("response")

	if err := conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout)); err != nil {
		logger.Warn().Err(err).Msg("error setting write deadline")
	}
	if _, err := resp.WriteTo(conn); err != nil {
		s.logIOError(logger, err, "error writing response")
	}
}

// closeConnection half-closes the outbound direction so the client sees the
// end of the response, drains what the client still sends for a short while,
// then releases the socket. Closing with unread input would make the kernel
// reset the connection and could discard the response.
func (s *Server) closeConnection(conn net.Conn, logger zerolog.Logger) {
	if cw, ok := conn.(interface{ CloseWrite() error }); ok {
		if err := cw.CloseWrite(); err != nil {
			s.logIOError(logger, err, "error half-closing connection")
		} else if err := conn.SetReadDeadline(time.Now().Add(closeLinger)); err == nil {
			_, _ = io.Copy(io.Discard, io.LimitReader(conn, maxDrainBytes))
		}
	}
	if err := conn.Close(); err != nil {
		s.logIOError(logger, err, "error closing connection")
	}
}

// logIOError keeps client disconnects out of the warning log.
func (s *Server) logIOError(logger zerolog.Logger, err error, msg string) {
	if isExpectedCloseError(err) {
		logger.Debug().Err(err).Msg(msg)
		return
	}
	logger.Warn().Err(err).Msg(msg)
}

func clientHost(addr net.Addr) string {
	if tcp, ok := addr.(*net.TCPAddr); ok {
		return tcp.IP.String()
	}
	host, _, err := net.SplitHostPort(addr.String())
	if err != nil {
		return addr.String()
	}
	return host
}
