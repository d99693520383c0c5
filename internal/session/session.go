// Package session drives one connection's read/handle/write lifecycle.
// It owns the per-connection buffers and the net.Conn; it never decodes
// wire bytes itself, delegating that to the handler.
package session

// file: internal/session/session.go

import (
	"context"
	"io"
	"net"

	"github.com/dkoosis/tokenizesrv/internal/fsm"
	"github.com/dkoosis/tokenizesrv/internal/handler"
	"github.com/dkoosis/tokenizesrv/internal/logging"
	"github.com/dkoosis/tokenizesrv/internal/sessionerr"
)

const (
	// StateReading is waiting on the socket for more bytes.
	StateReading fsm.State = "Reading"
	// StateHandling is running the decoded request through the handler.
	StateHandling fsm.State = "Handling"
	// StateWriting is flushing a built response back to the socket.
	StateWriting fsm.State = "Writing"
	// StateClosed is terminal; the connection is shut down.
	StateClosed fsm.State = "Closed"
)

const (
	eventReadOK        fsm.Event = "read-ok"
	eventPartial       fsm.Event = "partial"
	eventResponseReady fsm.Event = "response-ready"
	eventWriteOK       fsm.Event = "write-ok"
	eventFatal         fsm.Event = "fatal"
)

// requestBufferReserved and responseBufferReserved mirror the original
// server's fixed pre-allocation, sized to avoid reallocation churn for
// the common case.
const (
	requestBufferReserved  = 1024 * 1000
	responseBufferReserved = 1024 * 1000
)

// readChunkSize is how much we ask the socket for on each Read call.
const readChunkSize = 64 * 1024

// Session owns one connection's lifecycle: Reading -> Handling -> Writing,
// looping back to Reading after every response, and dropping to Closed on
// EOF, a fatal protocol error, or an I/O error.
type Session struct {
	conn    net.Conn
	handler *handler.Handler
	logger  logging.Logger
	machine fsm.FSM

	reqBuf []byte
	resBuf []byte
}

// New builds a Session bound to conn. The handler is shared across
// sessions; the buffers below are not.
func New(conn net.Conn, h *handler.Handler, logger logging.Logger) *Session {
	if logger == nil {
		logger = logging.GetNoopLogger()
	}
	logger = logger.WithField("component", "session").WithField("remote_addr", conn.RemoteAddr().String())

	s := &Session{
		conn:    conn,
		handler: h,
		logger:  logger,
		reqBuf:  make([]byte, 0, requestBufferReserved),
		resBuf:  make([]byte, 0, responseBufferReserved),
	}
	s.machine = buildMachine(logger)
	return s
}

// buildMachine declares the Reading/Handling/Writing/Closed transition
// table. The actions here are observability only (logging); the actual
// I/O is driven explicitly by Run, since looplab/fsm callbacks are not a
// natural place to block on socket reads.
func buildMachine(logger logging.Logger) fsm.FSM {
	m := fsm.NewFSM(StateReading, logger)
	m.AddTransition(fsm.Transition{From: []fsm.State{StateReading}, To: StateHandling, Event: eventReadOK})
	m.AddTransition(fsm.Transition{From: []fsm.State{StateHandling}, To: StateReading, Event: eventPartial})
	m.AddTransition(fsm.Transition{From: []fsm.State{StateHandling}, To: StateWriting, Event: eventResponseReady})
	m.AddTransition(fsm.Transition{From: []fsm.State{StateWriting}, To: StateReading, Event: eventWriteOK})
	m.AddTransition(fsm.Transition{
		From:  []fsm.State{StateReading, StateHandling, StateWriting},
		To:    StateClosed,
		Event: eventFatal,
	})
	if err := m.Build(); err != nil {
		logger.Error("failed to build session state machine", "error", err)
	}
	return m
}

// Run drives the session to completion: it blocks until the connection
// is closed, either by the peer, by a fatal protocol error, or because
// ctx was cancelled. The caller is responsible for closing conn
// afterward (Run does not close it, so callers can inspect state first).
func (s *Session) Run(ctx context.Context) {
	defer s.logger.Debug("session loop exited", "final_state", s.machine.CurrentState())

	for {
		if ctx.Err() != nil {
			s.transitionFatal(ctx, "context cancelled")
			return
		}

		n, err := s.readMore(ctx)
		if err != nil {
			if err == io.EOF {
				s.logger.Debug("client closed connection")
			} else {
				s.logger.Warn("read error", "error", err)
			}
			s.transitionFatal(ctx, "read error")
			return
		}
		s.logger.Debug("read bytes", "count", n)
		_ = s.machine.Transition(ctx, eventReadOK, nil)

		ignoreLength, handleErr := s.handler.Handle(s.reqBuf, &s.resBuf)
		if handleErr != nil {
			if sessionerr.IsPartialData(handleErr) {
				s.trimRequestBuffer(ignoreLength)
				_ = s.machine.Transition(ctx, eventPartial, nil)
				continue
			}
			s.logger.Error("fatal handler error", "error", handleErr)
			s.transitionFatal(ctx, "fatal handler error")
			return
		}

		_ = s.machine.Transition(ctx, eventResponseReady, nil)

		if len(s.resBuf) == 0 {
			s.logger.Error("handler produced empty response")
			s.transitionFatal(ctx, "empty response")
			return
		}

		if err := s.writeResponse(ctx); err != nil {
			s.logger.Warn("write error", "error", err)
			s.transitionFatal(ctx, "write error")
			return
		}
		_ = s.machine.Transition(ctx, eventWriteOK, nil)

		// A complete message was handled: the whole request buffer is
		// consumed (the handler already resolved any stale duplicates
		// within it), so start the next read cycle from empty.
		s.reqBuf = s.reqBuf[:0]
		s.resBuf = s.resBuf[:0]
	}
}

// readMore appends at least one byte from the connection onto reqBuf.
// When ctx has a deadline it becomes the read deadline; cancelling a ctx
// without one does not interrupt a pending Read, which then ends only
// when the peer sends or disconnects or the connection is closed.
func (s *Session) readMore(ctx context.Context) (int, error) {
	if deadline, ok := ctx.Deadline(); ok {
		_ = s.conn.SetReadDeadline(deadline)
	}
	chunk := make([]byte, readChunkSize)
	n, err := s.conn.Read(chunk)
	if n > 0 {
		s.reqBuf = append(s.reqBuf, chunk[:n]...)
	}
	if err != nil {
		return n, err
	}
	return n, nil
}

// writeResponse flushes resBuf to the connection in full.
func (s *Session) writeResponse(ctx context.Context) error {
	if deadline, ok := ctx.Deadline(); ok {
		_ = s.conn.SetWriteDeadline(deadline)
	}
	_, err := s.conn.Write(s.resBuf)
	return err
}

// trimRequestBuffer discards the stale, already-superseded prefix of
// reqBuf identified by the handler, keeping only the still-incomplete
// tail so the next read appends onto it.
func (s *Session) trimRequestBuffer(ignoreLength int) {
	if ignoreLength <= 0 {
		return
	}
	if ignoreLength >= len(s.reqBuf) {
		s.reqBuf = s.reqBuf[:0]
		return
	}
	remaining := len(s.reqBuf) - ignoreLength
	copy(s.reqBuf, s.reqBuf[ignoreLength:])
	s.reqBuf = s.reqBuf[:remaining]
}

func (s *Session) transitionFatal(ctx context.Context, reason string) {
	s.logger.Debug("closing session", "reason", reason)
	_ = s.machine.Transition(ctx, eventFatal, reason)
}

// State reports the session's current lifecycle state, mostly useful
// for tests and diagnostics.
func (s *Session) State() fsm.State {
	return s.machine.CurrentState()
}
