package main

import (
	"encoding/json"
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"devotions.gg/internal/protocol"
)

func main() {
	var (
		url      = flag.String("url", "ws://localhost:8080/v1/ws", "ws url")
		name     = flag.String("name", "bot", "player name")
		commands = flag.String("cmds", "favor", "semicolon separated command lines sent after WELCOME")
		harvest  = flag.Bool("harvest", true, "break blocks along the starter wheat row, one per interval")
		every    = flag.Duration("every", 5*time.Second, "interval between periodic actions")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[bot] ", log.LstdFlags|log.Lmicroseconds)
	conn, _, err := websocket.DefaultDialer.Dial(*url, nil)
	if err != nil {
		logger.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	hello := protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		PlayerName:      *name,
		MaxQueue:        16,
	}
	if err := conn.WriteJSON(hello); err != nil {
		logger.Fatalf("send HELLO: %v", err)
	}

	msgs := make(chan []byte, 16)
	go func() {
		defer close(msgs)
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			msgs <- msg
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	ticker := time.NewTicker(*every)
	defer ticker.Stop()

	welcomed := false
	var step int
	for {
		select {
		case <-stop:
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			if handleMessage(logger, msg) && !welcomed {
				welcomed = true
				for _, line := range splitCommands(*commands) {
					sendCmd(conn, line)
				}
				sendComplete(conn, "favor ")
			}
		case <-ticker.C:
			if !welcomed || !*harvest {
				continue
			}
			// Walk along the starter field one block per interval.
			pos := [3]int{3 + step%6, 64, 2}
			step++
			_ = conn.WriteJSON(protocol.ActMsg{Type: protocol.TypeAct, ProtocolVersion: protocol.Version, Break: &pos})
			sendCmd(conn, "favor")
		}
	}
}

// handleMessage logs a server message and reports whether it was WELCOME.
func handleMessage(logger *log.Logger, msg []byte) bool {
	base, err := protocol.DecodeBase(msg)
	if err != nil {
		return false
	}
	switch base.Type {
	case protocol.TypeWelcome:
		var w protocol.WelcomeMsg
		if err := json.Unmarshal(msg, &w); err != nil {
			return false
		}
		logger.Printf("WELCOME player_id=%s world=%s tick_rate=%d", w.PlayerID, w.WorldParams.WorldID, w.WorldParams.TickRateHz)
		return true
	case protocol.TypeNotify:
		var n protocol.NotifyMsg
		if err := json.Unmarshal(msg, &n); err == nil {
			logger.Printf("tick=%d %s", n.Tick, n.Text)
		}
	case protocol.TypeCompletions:
		var c protocol.CompletionsMsg
		if err := json.Unmarshal(msg, &c); err == nil {
			logger.Printf("completions: %s", strings.Join(c.Suggestions, " "))
		}
	case protocol.TypeError:
		var e protocol.ErrorMsg
		if err := json.Unmarshal(msg, &e); err == nil {
			logger.Printf("error %s: %s", e.Code, e.Message)
		}
	}
	return false
}

func splitCommands(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ";") {
		if line := strings.TrimSpace(part); line != "" {
			out = append(out, line)
		}
	}
	return out
}

func sendCmd(conn *websocket.Conn, line string) {
	_ = conn.WriteJSON(protocol.CmdMsg{Type: protocol.TypeCmd, ProtocolVersion: protocol.Version, Line: line})
}

func sendComplete(conn *websocket.Conn, line string) {
	_ = conn.WriteJSON(protocol.CompleteMsg{Type: protocol.TypeComplete, ProtocolVersion: protocol.Version, Line: line})
}
