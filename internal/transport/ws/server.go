package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"devotions.gg/internal/protocol"
	"devotions.gg/internal/sim/world"
)

const (
	handshakeTimeout  = 5 * time.Second
	readTimeout       = 60 * time.Second
	writeTimeout      = 5 * time.Second
	completionTimeout = 2 * time.Second
)

type Server struct {
	world *world.World
	log   *log.Logger

	upgrader websocket.Upgrader
}

func NewServer(w *world.World, logger *log.Logger) *Server {
	return &Server{
		world: w,
		log:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 16 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		playerID, out := s.handshake(conn)
		if playerID == uuid.Nil {
			return
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		// Writer goroutine: the only writer after the handshake.
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case <-s.world.Done():
					cancel()
					_ = conn.Close()
					return
				case b, ok := <-out:
					if !ok {
						return
					}
					_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						cancel()
						return
					}
				}
			}
		}()

		// Reader loop.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				cancel()
				break
			}
			s.route(ctx, playerID, out, msg)
		}

		// Cleanup.
		select {
		case s.world.Leave() <- world.LeaveRequest{PlayerID: playerID, Out: out}:
		case <-s.world.Done():
		}
	}
}

func (s *Server) route(ctx context.Context, playerID uuid.UUID, out chan []byte, msg []byte) {
	base, err := protocol.DecodeBase(msg)
	if err != nil {
		s.reply(ctx, out, errorMsg(protocol.ErrProtoBadRequest, "malformed json"))
		return
	}
	if base.ProtocolVersion != protocol.Version {
		s.reply(ctx, out, errorMsg(protocol.ErrProtoBadRequest, "bad protocol_version"))
		return
	}

	switch base.Type {
	case protocol.TypeAct:
		var act protocol.ActMsg
		if err := json.Unmarshal(msg, &act); err != nil || act.Break == nil {
			s.reply(ctx, out, errorMsg(protocol.ErrProtoBadRequest, "bad ACT"))
			return
		}
		pos := world.Vec3i{X: act.Break[0], Y: act.Break[1], Z: act.Break[2]}
		select {
		case s.world.Breaks() <- world.BreakRequest{PlayerID: playerID, Pos: pos}:
		case <-ctx.Done():
		case <-s.world.Done():
		}

	case protocol.TypeCmd:
		var cmd protocol.CmdMsg
		if err := json.Unmarshal(msg, &cmd); err != nil || cmd.Line == "" {
			s.reply(ctx, out, errorMsg(protocol.ErrProtoBadRequest, "bad CMD"))
			return
		}
		select {
		case s.world.Commands() <- world.CommandRequest{PlayerID: playerID, Line: cmd.Line}:
		case <-ctx.Done():
		case <-s.world.Done():
		}

	case protocol.TypeComplete:
		var c protocol.CompleteMsg
		if err := json.Unmarshal(msg, &c); err != nil {
			s.reply(ctx, out, errorMsg(protocol.ErrProtoBadRequest, "bad COMPLETE"))
			return
		}
		s.complete(ctx, playerID, out, c.Line)

	default:
		s.reply(ctx, out, errorMsg(protocol.ErrProtoBadRequest, "unknown type "+base.Type))
	}
}

func (s *Server) complete(ctx context.Context, playerID uuid.UUID, out chan []byte, line string) {
	resp := make(chan []string, 1)
	select {
	case s.world.Completions() <- world.CompleteRequest{PlayerID: playerID, Line: line, Resp: resp}:
	case <-ctx.Done():
		return
	case <-s.world.Done():
		return
	}

	var suggestions []string
	select {
	case suggestions = <-resp:
	case <-time.After(completionTimeout):
		s.logf("completion timed out for %s", playerID)
	case <-ctx.Done():
		return
	}
	if suggestions == nil {
		suggestions = []string{}
	}
	s.reply(ctx, out, protocol.CompletionsMsg{
		Type:            protocol.TypeCompletions,
		ProtocolVersion: protocol.Version,
		Suggestions:     suggestions,
	})
}

func (s *Server) reply(ctx context.Context, out chan []byte, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	select {
	case out <- b:
	case <-ctx.Done():
	}
}

func (s *Server) handshake(conn *websocket.Conn) (uuid.UUID, chan []byte) {
	_ = conn.SetReadDeadline(time.Now().Add(handshakeTimeout))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return uuid.Nil, nil
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		closeWith(conn, "expected HELLO")
		return uuid.Nil, nil
	}

	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		return uuid.Nil, nil
	}
	if hello.ProtocolVersion != protocol.Version {
		closeWith(conn, "bad protocol_version")
		return uuid.Nil, nil
	}

	maxQ := hello.MaxQueue
	if maxQ <= 0 {
		maxQ = 8
	}
	if maxQ > 64 {
		maxQ = 64
	}
	out := make(chan []byte, maxQ)

	respCh := make(chan world.JoinResponse, 1)
	select {
	case s.world.Join() <- world.JoinRequest{Name: hello.PlayerName, Out: out, Resp: respCh}:
	case <-s.world.Done():
		return uuid.Nil, nil
	}
	var resp world.JoinResponse
	select {
	case resp = <-respCh:
	case <-s.world.Done():
		return uuid.Nil, nil
	}

	if resp.Code != "" {
		_ = writeJSON(conn, errorMsg(resp.Code, "join rejected"))
		closeWith(conn, "join rejected")
		return uuid.Nil, nil
	}
	id, err := uuid.Parse(resp.Welcome.PlayerID)
	if err != nil {
		return uuid.Nil, nil
	}
	if err := writeJSON(conn, resp.Welcome); err != nil {
		return uuid.Nil, nil
	}
	s.logf("player %s joined as %s", resp.Welcome.PlayerName, id)
	return id, out
}

func (s *Server) logf(format string, args ...any) {
	if s.log != nil {
		s.log.Printf(format, args...)
	}
}

func errorMsg(code, message string) protocol.ErrorMsg {
	return protocol.ErrorMsg{
		Type:            protocol.TypeError,
		ProtocolVersion: protocol.Version,
		Code:            code,
		Message:         message,
	}
}

func closeWith(conn *websocket.Conn, reason string) {
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason), time.Now().Add(time.Second))
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteMessage(websocket.TextMessage, b)
}
