// Package server accepts TCP connections and serves the command/response
// wire protocol against a single shared storage engine.
package server

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"

	"github.com/google/uuid"

	"spacekv/internal/common"
	"spacekv/internal/metrics"
	"spacekv/internal/store"
	"spacekv/internal/wire"
)

// Server accepts connections on one TCP listener and dispatches each one's
// commands against engine. Readers are snapshot-based and writers use the
// engine's own CAS loop and internal queueing, so no per-connection
// synchronization against the engine is required here.
type Server struct {
	engine  *store.Engine
	logger  *common.Logger
	metrics *metrics.Metrics

	mu       sync.Mutex
	listener net.Listener
}

// New returns a Server bound to engine. metrics may be nil to disable
// per-command observation.
func New(engine *store.Engine, logger *common.Logger, m *metrics.Metrics) *Server {
	return &Server{engine: engine, logger: logger, metrics: m}
}

// Serve binds addr, disables Nagle on accepted sockets, and spawns one
// goroutine per connection until the listener is closed (by Shutdown or an
// accept error). It blocks until every connection handler has returned.
func (s *Server) Serve(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	s.logger.Info("listening on %s", addr)

	var wg sync.WaitGroup
	for {
		conn, err := ln.Accept()
		if err != nil {
			s.logger.Info("listener closed: %v", err)
			break
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.handleConnection(conn)
		}()
	}
	wg.Wait()
	return nil
}

// Shutdown stops accepting new connections. In-flight connections are not
// force-drained; each finishes its current request/response loop on its own.
func (s *Server) Shutdown() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Close()
}

func (s *Server) handleConnection(conn net.Conn) {
	id := uuid.New()
	defer conn.Close()

	if tcpConn, ok := conn.(*net.TCPConn); ok {
		_ = tcpConn.SetNoDelay(true)
	}

	s.logger.Info("[%s] accepted connection from %s", id, conn.RemoteAddr())
	defer s.logger.Info("[%s] connection closed", id)

	for {
		payload, err := wire.ReadFrame(conn, wire.MaxCommandFrame)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return
			}
			s.logger.Error("[%s] protocol error reading frame: %v", id, err)
			return
		}

		cmd, err := wire.DecodeCommand(payload)
		if err != nil {
			s.logger.Error("[%s] protocol error decoding command: %v", id, err)
			return
		}

		resp := s.engine.Execute(context.Background(), cmd)
		s.observe(cmd, resp)

		if err := wire.WriteFrame(conn, wire.EncodeResponse(resp)); err != nil {
			s.logger.Error("[%s] write error: %v", id, err)
			return
		}
	}
}

func (s *Server) observe(cmd wire.Command, resp wire.Response) {
	if s.metrics == nil {
		return
	}
	result := "ok"
	if _, isErr := resp.(wire.Error); isErr {
		result = "error"
	}
	s.metrics.ObserveCommand(commandName(cmd), result)
	s.metrics.ObserveAofQueueDepth(s.engine.QueueDepth())
}

func commandName(cmd wire.Command) string {
	switch cmd.(type) {
	case wire.Get:
		return "get"
	case wire.Set:
		return "set"
	case wire.Delete:
		return "delete"
	case wire.ListSpaces:
		return "list_spaces"
	case wire.ListKeys:
		return "list_keys"
	case wire.DeleteSpace:
		return "delete_space"
	case wire.CreateSpace:
		return "create_space"
	case wire.IsSpaceExists:
		return "is_space_exists"
	default:
		return "unknown"
	}
}
