package ws

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"devotions.gg/internal/protocol"
	"devotions.gg/internal/sim/world"
)

func startWorld(t *testing.T) (*world.World, string) {
	t.Helper()
	w, err := world.New(world.WorldConfig{ID: "W1", TickRateHz: 100}, nil)
	if err != nil {
		t.Fatalf("new world: %v", err)
	}
	w.SetBlock(world.Vec3i{X: 1, Y: 0, Z: 1}, world.MaterialWheat, 7)
	w.SetCommandHandler(func(p *world.PlayerState, line string) {
		p.SendMessage("pong " + line)
	})
	w.SetCompleter(func(_ *world.PlayerState, line string) []string {
		if strings.HasPrefix("favor", line) {
			return []string{"favor"}
		}
		return nil
	})
	w.OnBlockBreak(func(ev *world.BlockBreakEvent) {
		ev.Player.SendMessage("broke " + string(ev.Block.Type))
	})

	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = w.Run(ctx) }()

	srv := httptest.NewServer(NewServer(w, nil).Handler())
	t.Cleanup(func() {
		cancel()
		<-w.Done()
		srv.Close()
	})
	return w, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	if err := conn.WriteJSON(v); err != nil {
		t.Fatalf("write: %v", err)
	}
}

// readType reads until a message of the wanted type arrives.
func readType(t *testing.T, conn *websocket.Conn, typ string) []byte {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read waiting for %s: %v", typ, err)
		}
		base, err := protocol.DecodeBase(msg)
		if err == nil && base.Type == typ {
			return msg
		}
	}
}

func hello(name string) protocol.HelloMsg {
	return protocol.HelloMsg{Type: protocol.TypeHello, ProtocolVersion: protocol.Version, PlayerName: name}
}

func TestServer_SessionRoundTrip(t *testing.T) {
	_, url := startWorld(t)
	conn := dial(t, url)

	send(t, conn, hello("Bob"))
	var welcome protocol.WelcomeMsg
	if err := json.Unmarshal(readType(t, conn, protocol.TypeWelcome), &welcome); err != nil {
		t.Fatalf("welcome: %v", err)
	}
	if welcome.PlayerName != "Bob" || welcome.PlayerID != world.OfflineID("Bob").String() {
		t.Fatalf("unexpected welcome %+v", welcome)
	}
	if welcome.WorldParams.WorldID != "W1" || welcome.WorldParams.TickRateHz != 100 {
		t.Fatalf("unexpected world params %+v", welcome.WorldParams)
	}

	send(t, conn, protocol.CmdMsg{Type: protocol.TypeCmd, ProtocolVersion: protocol.Version, Line: "favor"})
	var notify protocol.NotifyMsg
	_ = json.Unmarshal(readType(t, conn, protocol.TypeNotify), &notify)
	if notify.Text != "pong favor" {
		t.Fatalf("unexpected notify %+v", notify)
	}

	send(t, conn, protocol.CompleteMsg{Type: protocol.TypeComplete, ProtocolVersion: protocol.Version, Line: "fa"})
	var comp protocol.CompletionsMsg
	_ = json.Unmarshal(readType(t, conn, protocol.TypeCompletions), &comp)
	if len(comp.Suggestions) != 1 || comp.Suggestions[0] != "favor" {
		t.Fatalf("unexpected completions %+v", comp)
	}

	send(t, conn, protocol.ActMsg{Type: protocol.TypeAct, ProtocolVersion: protocol.Version, Break: &[3]int{1, 0, 1}})
	_ = json.Unmarshal(readType(t, conn, protocol.TypeNotify), &notify)
	if notify.Text != "broke WHEAT" {
		t.Fatalf("unexpected notify %+v", notify)
	}
}

func TestServer_RejectsBadMessages(t *testing.T) {
	_, url := startWorld(t)
	conn := dial(t, url)
	send(t, conn, hello("Ann"))
	readType(t, conn, protocol.TypeWelcome)

	send(t, conn, map[string]any{"type": "DANCE", "protocol_version": protocol.Version})
	var e protocol.ErrorMsg
	_ = json.Unmarshal(readType(t, conn, protocol.TypeError), &e)
	if e.Code != protocol.ErrProtoBadRequest {
		t.Fatalf("unexpected error %+v", e)
	}

	send(t, conn, protocol.CmdMsg{Type: protocol.TypeCmd, ProtocolVersion: "0.1", Line: "favor"})
	_ = json.Unmarshal(readType(t, conn, protocol.TypeError), &e)
	if e.Message != "bad protocol_version" {
		t.Fatalf("unexpected error %+v", e)
	}
}

func TestServer_RejectsInvalidName(t *testing.T) {
	_, url := startWorld(t)
	conn := dial(t, url)
	send(t, conn, hello("x"))

	var e protocol.ErrorMsg
	_ = json.Unmarshal(readType(t, conn, protocol.TypeError), &e)
	if e.Code != protocol.ErrBadRequest {
		t.Fatalf("unexpected join error %+v", e)
	}
}

func TestServer_DuplicateNameKeepsFirstSession(t *testing.T) {
	_, url := startWorld(t)
	first := dial(t, url)
	send(t, first, hello("Bob"))
	readType(t, first, protocol.TypeWelcome)

	second := dial(t, url)
	send(t, second, hello("bob"))
	var e protocol.ErrorMsg
	_ = json.Unmarshal(readType(t, second, protocol.TypeError), &e)
	if e.Code != protocol.ErrBadRequest {
		t.Fatalf("expected duplicate name rejected, got %+v", e)
	}
	_ = second.Close()

	send(t, first, protocol.CmdMsg{Type: protocol.TypeCmd, ProtocolVersion: protocol.Version, Line: "favor"})
	var n protocol.NotifyMsg
	_ = json.Unmarshal(readType(t, first, protocol.TypeNotify), &n)
	if n.Text != "pong favor" {
		t.Fatalf("first session should stay live, got %+v", n)
	}
}
