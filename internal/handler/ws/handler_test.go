package ws

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/zhouzirui/twinchat/backend/internal/model/chat"
	chatService "github.com/zhouzirui/twinchat/backend/internal/service/chat"
	"github.com/zhouzirui/twinchat/backend/internal/storage"
)

type chunkResponder struct{}

func (chunkResponder) GenerateResponse(context.Context, string, []chat.Message, string) (*schema.Message, error) {
	return schema.AssistantMessage("unused", nil), nil
}

func (chunkResponder) StreamResponse(context.Context, string, []chat.Message, string) (*schema.StreamReader[*schema.Message], error) {
	return schema.StreamReaderFromArray([]*schema.Message{
		schema.AssistantMessage("Hel", nil),
		schema.AssistantMessage("lo", nil),
	}), nil
}

func dial(t *testing.T, responder chatService.Responder) (*websocket.Conn, storage.Store) {
	t.Helper()
	store, err := storage.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore err: %v", err)
	}
	r := chi.NewRouter()
	New(chatService.NewService(store, responder, zerolog.Nop()), false, zerolog.Nop()).RegisterRoutes(r)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial err: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	return conn, store
}

func read(t *testing.T, conn *websocket.Conn) Outbound {
	t.Helper()
	var msg Outbound
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read err: %v", err)
	}
	return msg
}

func TestWebSocketTurn(t *testing.T) {
	conn, store := dial(t, chunkResponder{})

	if msg := read(t, conn); msg.Type != TypeConnected {
		t.Fatalf("expected connected frame, got %+v", msg)
	}

	if err := conn.WriteJSON(Inbound{Type: TypeMessage, Message: "Hello"}); err != nil {
		t.Fatalf("write err: %v", err)
	}

	first := read(t, conn)
	second := read(t, conn)
	reply := read(t, conn)
	if first.Type != TypeDelta || first.Content != "Hel" || second.Content != "lo" {
		t.Fatalf("unexpected deltas %+v %+v", first, second)
	}
	if reply.Type != TypeReply || reply.Content != "Hello" || reply.SessionID == "" {
		t.Fatalf("unexpected reply %+v", reply)
	}
	if first.SessionID != reply.SessionID {
		t.Fatalf("deltas and reply must share the session id")
	}

	stored, err := store.Load(context.Background(), reply.SessionID)
	if err != nil || len(stored) != 2 {
		t.Fatalf("expected persisted turn, got %v, %v", stored, err)
	}

	// 同一连接上的后续消息沿用该会话。
	if err := conn.WriteJSON(Inbound{Type: TypeMessage, Message: "Again"}); err != nil {
		t.Fatalf("write err: %v", err)
	}
	read(t, conn)
	read(t, conn)
	if again := read(t, conn); again.SessionID != reply.SessionID {
		t.Fatalf("expected session reuse, got %q", again.SessionID)
	}
}

func TestWebSocketErrors(t *testing.T) {
	conn, _ := dial(t, nil)
	read(t, conn)

	conn.WriteJSON(Inbound{Type: "audio"})
	if msg := read(t, conn); msg.Type != TypeError {
		t.Fatalf("expected error for unsupported type, got %+v", msg)
	}

	conn.WriteJSON(Inbound{Type: TypeMessage, Message: "hi"})
	msg := read(t, conn)
	if msg.Type != TypeError || msg.Details != "API key not configured" {
		t.Fatalf("expected credential error frame, got %+v", msg)
	}

	conn.WriteJSON(Inbound{Type: TypeMessage, Message: " "})
	if msg := read(t, conn); msg.Type != TypeError || msg.Error != "Message is required" {
		t.Fatalf("expected validation error frame, got %+v", msg)
	}
}
