// Package server implements the TCP front end: one listener, one goroutine
// per accepted connection, each running its own read-dispatch-write loop
// against a shared Engine. No connection pool, no backpressure queue, no
// framing state crosses connections — the engine's own lock is the only
// coordination point workers share.
package server

import (
	stdErrors "errors"
	"net"
	"sync"

	"github.com/iamNilotpal/kegdb/internal/engine"
	"github.com/iamNilotpal/kegdb/internal/protocol"
	"go.uber.org/zap"
)

// version is reported verbatim by the "version" command.
const version = "kegdb 0.1.0"

// Server accepts Memcached ASCII connections and dispatches their commands
// to an Engine.
type Server struct {
	addr     string
	listener net.Listener
	engine   *engine.Engine
	log      *zap.SugaredLogger

	wg sync.WaitGroup
}

// New binds addr and returns a Server ready to Serve.
func New(addr string, eng *engine.Engine, log *zap.SugaredLogger) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Server{addr: addr, listener: ln, engine: eng, log: log}, nil
}

// Addr returns the address the listener is actually bound to, useful when
// addr was passed as ":0" in tests.
func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

// Serve accepts connections until the listener is closed, blocking the
// caller. Returns nil when Close caused the accept loop to exit cleanly.
func (s *Server) Serve() error {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if stdErrors.Is(err, net.ErrClosed) {
				s.wg.Wait()
				return nil
			}
			return err
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConn(conn)
		}()
	}
}

// Close stops accepting new connections. In-flight connections are allowed
// to finish their current command before Serve returns.
func (s *Server) Close() error {
	return s.listener.Close()
}

func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()

	remote := conn.RemoteAddr().String()
	s.log.Infow("connection accepted", "remote", remote)
	defer s.log.Infow("connection closed", "remote", remote)

	parser := protocol.NewParser(conn)
	resp := protocol.NewResponseWriter(conn)

	for {
		cmd, err := parser.ReadCommand()
		if err != nil {
			if protocol.IsProtocolError(err) {
				resp.WriteClientError(err.Error())
				resp.Flush()
				continue
			}
			// Any other error reading off the connection is terminal: the
			// peer closed, or the socket failed outright.
			return
		}

		if cmd.Kind == protocol.KindQuit {
			return
		}

		if err := s.dispatch(&cmd, resp); err != nil {
			s.log.Warnw("failed writing response", "remote", remote, "error", err)
			return
		}
		if err := resp.Flush(); err != nil {
			return
		}
	}
}
