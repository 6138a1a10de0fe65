package nrepl

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/oxhq/corelisp/internal/runtime"
)

// WSServer serves the same bencode-over-byte-stream nREPL protocol over a
// websocket connection instead of a raw TCP socket, for browser-hosted
// editor clients that cannot open arbitrary TCP sockets. coder/websocket
// is only an indirect dependency of the teacher's MCP stack (pulled in by
// its SDK's optional HTTP transports, never directly imported there); it
// gets a real call site here rather than staying dead weight in go.mod.
type WSServer struct {
	Ctx    *runtime.Context
	Logger *slog.Logger
}

func NewWSServer(ctx *runtime.Context) *WSServer {
	return &WSServer{Ctx: ctx, Logger: slog.Default()}
}

// ServeHTTP upgrades the request to a websocket and runs one Session over
// it for the connection's lifetime, framing each websocket binary message
// as a chunk fed to the session's incremental bencode decoder.
func (s *WSServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.Logger.Error("nrepl: websocket accept failed", "err", err)
		return
	}
	defer conn.CloseNow()

	ctx := r.Context()
	sess := NewSession(uuid.NewString(), s.Ctx)

	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			return
		}
		if typ != websocket.MessageBinary && typ != websocket.MessageText {
			continue
		}

		reqs, decErr := sess.Feed(data)
		if decErr != nil {
			s.Logger.Error("nrepl: bencode decode error", "err", decErr, "session", sess.ID)
			conn.Close(websocket.StatusProtocolError, "malformed bencode frame")
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
				if writeErr := conn.Write(ctx, websocket.MessageBinary, encoded); writeErr != nil {
					return
				}
			}
		}
	}
}
