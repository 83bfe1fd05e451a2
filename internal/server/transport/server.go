// Package transport accepts client connections over TCP, optionally wrapped
// in TLS, and runs one handler goroutine per connection.
package transport

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/dmitrijs2005/flightkeeper/internal/logging"
	"github.com/google/uuid"
)

// ConnHandler serves a single connection until it is done. logger already
// carries the connection attributes.
type ConnHandler func(ctx context.Context, conn net.Conn, logger logging.Logger) error

type Server struct {
	address   string
	tlsConfig *tls.Config
	handle    ConnHandler
	logger    logging.Logger
}

// NewServer returns a server for address. A nil tlsConfig means plain TCP.
func NewServer(address string, tlsConfig *tls.Config, handle ConnHandler, l logging.Logger) *Server {
	return &Server{
		address:   address,
		tlsConfig: tlsConfig,
		handle:    handle,
		logger:    l.With("module", "transport"),
	}
}

// LoadTLSConfig reads a PEM certificate and key pair.
func LoadTLSConfig(certFile, keyFile string) (*tls.Config, error) {
	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return nil, fmt.Errorf("load TLS key pair: %w", err)
	}
	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}, nil
}

// Run listens on the configured address and serves until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	if s.tlsConfig != nil {
		listen = tls.NewListener(listen, s.tlsConfig)
	}

	s.logger.Info(ctx, "Starting server", "address", listen.Addr().String(), "tls", s.tlsConfig != nil)
	return s.Serve(ctx, listen)
}

// Serve accepts connections from listen until ctx is done or accepting
// fails. It closes listen and waits for every connection goroutine before
// returning. Cancelling ctx stops blocked reads; a request already being
// answered is finished first.
func (s *Server) Serve(ctx context.Context, listen net.Listener) error {
	stop := context.AfterFunc(ctx, func() {
		s.logger.Info(ctx, "Stopping server...")
		listen.Close()
	})
	defer stop()
	defer listen.Close()

	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		conn, err := listen.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("accept: %w", err)
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			s.serveConn(ctx, conn)
		}()
	}
}

func (s *Server) serveConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	logger := s.logger.With("conn_id", uuid.NewString(), "remote", conn.RemoteAddr().String())
	logger.Debug(ctx, "connection accepted")

	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetReadDeadline(time.Now())
	})
	defer stop()

	err := s.handle(ctx, conn, logger)
	switch {
	case err == nil, ctx.Err() != nil:
		logger.Debug(ctx, "connection closed")
	default:
		logger.Warn(ctx, "connection closed with error", "error", err)
	}
}
