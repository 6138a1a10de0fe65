package nrepl

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"

	"github.com/google/uuid"

	"github.com/oxhq/corelisp/internal/runtime"
)

// Server is the nREPL engine's TCP listener: one Session per accepted
// connection, reading bencode frames and dispatching them through
// Dispatch (spec §4.8). Shaped after internal/remote.Server's
// accept-loop split (ListenAndServe binds, Serve runs on an existing
// listener so tests can use an ephemeral port).
type Server struct {
	Ctx    *runtime.Context
	Logger *slog.Logger
}

func NewServer(ctx *runtime.Context) *Server {
	return &Server{Ctx: ctx, Logger: slog.Default()}
}

func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	lc := net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("nrepl: listen %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	defer ln.Close()

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				return fmt.Errorf("nrepl: accept: %w", err)
			}
		}
		go s.handleConn(ctx, conn)
	}
}

func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	// A fresh uuid per connection, not the remote address: two clients
	// behind the same NAT/proxy (or a websocket reverse proxy that
	// reuses RemoteAddr) must not collide on the session id a client
	// pins for the life of its nREPL session.
	sess := NewSession(uuid.NewString(), s.Ctx)
	buf := make([]byte, 4096)

	for {
		n, err := conn.Read(buf)
		if n > 0 {
			reqs, decErr := sess.Feed(buf[:n])
			if decErr != nil {
				s.Logger.Error("nrepl: bencode decode error", "err", decErr, "session", sess.ID)
				return
			}
			for _, req := range reqs {
				frames := Dispatch(ctx, sess, req)
				for _, frame := range frames {
					encoded, encErr := Encode(frame)
					if encErr != nil {
						s.Logger.Error("nrepl: bencode encode error", "err", encErr, "session", sess.ID)
						return
					}
					if _, werr := conn.Write(encoded); werr != nil {
						return
					}
				}
			}
		}
		if err != nil {
			if err != io.EOF {
				s.Logger.Debug("nrepl: connection closed", "err", err, "session", sess.ID)
			}
			return
		}
	}
}
