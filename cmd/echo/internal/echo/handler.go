package echo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"time"

	"github.com/google/uuid"

	"github.com/hasirciogluhq/tcp-echo/cmd/echo/internal/core"
	"github.com/hasirciogluhq/tcp-echo/cmd/echo/internal/logger"
)

const (
	readBufferSize = 32 * 1024
	resolveTimeout = 2 * time.Second
)

// Handler echoes every byte a client sends back to that same client.
// It holds no per-connection state; each accepted connection gets its own
// session. Writes block until the kernel takes the bytes, there is no
// additional buffering or flow control on top of that.
type Handler struct {
	// Logger defaults to the package logger when nil.
	Logger *slog.Logger
	// Resolver is optional. When set, "made connection" carries peer_name.
	Resolver core.PeerResolver
}

// session is the state of one connection: the transport and the peer
// identity, both fixed at creation.
type session struct {
	conn net.Conn
	peer string
	log  *slog.Logger
}

// HandleConnection implements core.ConnectionHandler.
// It takes full ownership of the connection lifecycle.
func (h *Handler) HandleConnection(conn net.Conn) {
	s := h.connectionMade(conn)
	s.connectionLost(s.serve())
}

func (h *Handler) connectionMade(conn net.Conn) *session {
	base := h.Logger
	if base == nil {
		base = logger.Default()
	}

	peer := conn.RemoteAddr().String()
	s := &session{
		conn: conn,
		peer: peer,
		log:  base.With("peer", peer, "conn_id", uuid.NewString()),
	}

	if name := h.resolvePeer(conn.RemoteAddr(), s.log); name != "" {
		s.log.Info("made connection", "peer_name", name)
	} else {
		s.log.Info("made connection")
	}
	return s
}

func (h *Handler) resolvePeer(addr net.Addr, log *slog.Logger) string {
	if h.Resolver == nil {
		return ""
	}

	ctx, cancel := context.WithTimeout(context.Background(), resolveTimeout)
	defer cancel()

	name, err := h.Resolver.Resolve(ctx, addr)
	if err != nil {
		log.Debug("peer lookup failed", "error", err)
		return ""
	}
	return name
}

// serve runs the echo loop and returns what ended it: nil for a clean EOF,
// otherwise the read or write error.
func (s *session) serve() error {
	buf := make([]byte, readBufferSize)
	for {
		n, err := s.conn.Read(buf)
		if n > 0 {
			if werr := s.dataReceived(buf[:n]); werr != nil {
				return werr
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
	}
}

func (s *session) dataReceived(data []byte) error {
	s.log.Info("received bytes", "bytes", len(data))
	if _, err := s.conn.Write(data); err != nil {
		return fmt.Errorf("echo write failed: %w", err)
	}
	return nil
}

func (s *session) connectionLost(err error) {
	s.conn.Close()

	if err == nil {
		s.log.Info("received EOF")
		return
	}
	s.log.Warn("lost connection", "error", err)
}
