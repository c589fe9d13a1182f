// Package tcp serves the line-oriented chat protocol over plain TCP.
package tcp

import (
	"bufio"
	"context"
	"errors"
	"net"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/parlorchat/parlor/internal/core"
	"github.com/parlorchat/parlor/internal/protocol"
)

// maxLineLen bounds one inbound line; anything longer ends the connection.
const maxLineLen = 64 * 1024

// Server accepts chat connections and runs one session per connection.
type Server struct {
	registry   *core.Registry
	addr       string
	sendBuffer int

	mu    sync.Mutex
	ln    net.Listener
	conns map[*Conn]struct{}
	wg    sync.WaitGroup
}

func NewServer(registry *core.Registry, addr string, sendBuffer int) *Server {
	return &Server{
		registry:   registry,
		addr:       addr,
		sendBuffer: sendBuffer,
		conns:      make(map[*Conn]struct{}),
	}
}

// Listen binds the chat port. Split from Serve so callers (and tests using
// port :0) can learn the bound address before accepting.
func (s *Server) Listen() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.ln = ln
	s.mu.Unlock()
	log.Info().Str("module", "adapters.tcp").Str("addr", ln.Addr().String()).Msg("chat server listening")
	return nil
}

func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Serve accepts connections until the context is canceled or the listener is
// closed. A failed accept is logged and never stops the loop on its own.
func (s *Server) Serve(ctx context.Context) error {
	s.mu.Lock()
	ln := s.ln
	s.mu.Unlock()
	if ln == nil {
		return errors.New("serve before listen")
	}

	go func() {
		<-ctx.Done()
		s.Shutdown()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				s.wg.Wait()
				return nil
			}
			log.Warn().Err(err).Str("module", "adapters.tcp").Msg("accept failed")
			continue
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handle(conn)
		}()
	}
}

// Shutdown closes the listener and every live connection. Closing the
// connections unblocks their read loops, so Serve's handler wait completes.
func (s *Server) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln != nil {
		_ = s.ln.Close()
	}
	for conn := range s.conns {
		conn.Close()
	}
}

func (s *Server) track(conn *Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conns[conn] = struct{}{}
}

func (s *Server) untrack(conn *Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conns, conn)
}

func (s *Server) handle(nc net.Conn) {
	sid := core.SessionID(uuid.NewString())
	log.Info().Str("module", "adapters.tcp").Str("sid", string(sid)).
		Str("remote", nc.RemoteAddr().String()).Msg("new connection")

	conn := newConn(nc, s.sendBuffer)
	s.track(conn)
	go conn.writePump()

	sess := protocol.NewSession(sid, s.registry, conn)
	sess.Greet()

	defer func() {
		sess.Leave()
		conn.Close()
		s.untrack(conn)
		log.Info().Str("module", "adapters.tcp").Str("sid", string(sid)).Msg("connection closed")
	}()

	scanner := bufio.NewScanner(nc)
	scanner.Buffer(make([]byte, 0, 4096), maxLineLen)
	for scanner.Scan() {
		sess.HandleLine(scanner.Text())
	}
	if err := scanner.Err(); err != nil && !errors.Is(err, net.ErrClosed) {
		log.Warn().Err(err).Str("module", "adapters.tcp").Str("sid", string(sid)).Msg("read error")
	}
}
