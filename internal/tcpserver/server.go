// Package tcpserver accepts connections on a TCP or Unix socket listener
// and runs one session per connection until the process is told to shut
// down.
package tcpserver

// file: internal/tcpserver/server.go

import (
	"context"
	"net"
	"os"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/dkoosis/tokenizesrv/internal/handler"
	"github.com/dkoosis/tokenizesrv/internal/logging"
	"github.com/dkoosis/tokenizesrv/internal/session"
)

// Server owns a listener and the roster of sessions it has accepted.
type Server struct {
	protocol string
	address  string
	handler  *handler.Handler
	logger   logging.Logger

	mu       sync.Mutex
	sessions map[*session.Session]net.Conn
	listener net.Listener
}

// New builds a Server that will listen on protocol ("tcp" or "unix") at
// address once Serve is called.
func New(protocol, address string, h *handler.Handler, logger logging.Logger) *Server {
	if logger == nil {
		logger = logging.GetNoopLogger()
	}
	return &Server{
		protocol: protocol,
		address:  address,
		handler:  h,
		logger:   logger.WithField("component", "tcpserver"),
		sessions: make(map[*session.Session]net.Conn),
	}
}

// Serve binds the listener and accepts connections until ctx is
// cancelled, at which point it stops accepting, closes every open
// session, and returns nil. It returns a non-nil error only for a bind
// failure or an unexpected accept error.
func (s *Server) Serve(ctx context.Context) error {
	if s.protocol == "unix" {
		// A stale socket file from a previous, uncleanly terminated run
		// would otherwise make Listen fail with "address already in use".
		if _, err := os.Stat(s.address); err == nil {
			if err := os.Remove(s.address); err != nil {
				return errors.Wrapf(err, "tcpserver: failed to remove stale socket %q", s.address)
			}
		}
	}

	ln, err := net.Listen(s.protocol, s.address)
	if err != nil {
		return errors.Wrapf(err, "tcpserver: failed to listen on %s %s", s.protocol, s.address)
	}
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	s.logger.Info("listening", "protocol", s.protocol, "address", s.address)

	go func() {
		<-ctx.Done()
		s.logger.Info("shutdown requested, closing listener")
		_ = ln.Close()
	}()

	var wg sync.WaitGroup
	var acceptErr error
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			s.logger.Error("accept error", "error", err)
			acceptErr = err
			break
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.handleConn(ctx, conn)
		}()
	}

	s.closeRemainingSessions()
	wg.Wait()
	if s.protocol == "unix" {
		_ = os.Remove(s.address)
	}
	if acceptErr != nil {
		return errors.Wrap(acceptErr, "tcpserver: accept failed")
	}
	return nil
}

func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	sess := session.New(conn, s.handler, s.logger)

	s.mu.Lock()
	s.sessions[sess] = conn
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.sessions, sess)
		s.mu.Unlock()
		_ = conn.Close()
	}()

	sess.Run(ctx)
}

// closeRemainingSessions forces every still-open connection closed; their
// Run loops observe the resulting I/O error and exit on their own.
func (s *Server) closeRemainingSessions() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for sess, conn := range s.sessions {
		_ = conn.Close()
		delete(s.sessions, sess)
	}
}

// Addr returns the bound listener's address, valid only after Serve has
// started listening. It is mainly useful in tests that bind to ":0".
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}
