package ws

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	chatHandler "github.com/zhouzirui/twinchat/backend/internal/handler/chat"
	"github.com/zhouzirui/twinchat/backend/internal/model/chat"
	chatService "github.com/zhouzirui/twinchat/backend/internal/service/chat"
)

const (
	readTimeout  = 60 * time.Second
	pingInterval = 54 * time.Second
	writeTimeout = 10 * time.Second
	maxFrameSize = chatHandler.MaxBodyBytes
)

// 消息类型。
const (
	TypeMessage   = "message"
	TypeConnected = "connected"
	TypeDelta     = "delta"
	TypeReply     = "reply"
	TypeError     = "error"
)

// Inbound 客户端发来的消息
type Inbound struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId,omitempty"`
	Message   string `json:"message"`
}

// Outbound 服务端推送的消息
type Outbound struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId,omitempty"`
	Content   string `json:"content,omitempty"`
	Error     string `json:"error,omitempty"`
	Details   string `json:"details,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// Handler WebSocket聊天处理器
type Handler struct {
	chatSvc     *chatService.Service
	debugErrors bool
	log         zerolog.Logger
	upgrader    websocket.Upgrader
}

// New 创建WebSocket处理器
func New(chatSvc *chatService.Service, debugErrors bool, log zerolog.Logger) *Handler {
	return &Handler{
		chatSvc:     chatSvc,
		debugErrors: debugErrors,
		log:         log,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes 注册WebSocket路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/ws", h.handleWebSocket)
}

// conn 串行化写操作；gorilla 的连接只允许一个并发写者。
type conn struct {
	ws *websocket.Conn
	mu sync.Mutex
}

func (c *conn) send(msg Outbound) error {
	msg.Timestamp = time.Now().UnixMilli()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.ws.WriteJSON(msg)
}

func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer ws.Close()

	c := &conn{ws: ws}
	// 每条连接绑定一个会话，客户端可以在第一条消息里指定。
	sessionID := ""

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ws.SetReadLimit(maxFrameSize)
	ws.SetReadDeadline(time.Now().Add(readTimeout))
	ws.SetPongHandler(func(string) error {
		ws.SetReadDeadline(time.Now().Add(readTimeout))
		return nil
	})

	go h.pingLoop(ctx, ws)

	h.log.Debug().Str("remote_addr", r.RemoteAddr).Msg("websocket connected")
	c.send(Outbound{Type: TypeConnected})

	for {
		var msg Inbound
		if err := ws.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Warn().Err(err).Msg("websocket read error")
			}
			return
		}
		ws.SetReadDeadline(time.Now().Add(readTimeout))

		if msg.Type != TypeMessage {
			c.send(Outbound{Type: TypeError, Error: "unsupported message type"})
			continue
		}

		requested := strings.TrimSpace(msg.SessionID)
		if requested == "" {
			requested = sessionID
		}
		if requested == "" {
			requested = chat.NewSessionID()
		}

		// 轮次不随连接断开而取消，与 HTTP 接口一致。
		result, err := h.chatSvc.StreamTurn(ctx, requested, msg.Message, func(delta string) error {
			return c.send(Outbound{Type: TypeDelta, SessionID: requested, Content: delta})
		})
		if err != nil {
			status, body := chatHandler.TurnError(err, h.debugErrors)
			if status >= http.StatusInternalServerError {
				h.log.Error().Err(err).Str("session_id", requested).Msg("websocket chat turn failed")
			}
			c.send(Outbound{Type: TypeError, SessionID: requested, Error: body.Error, Details: body.Details})
			continue
		}

		sessionID = result.SessionID
		c.send(Outbound{Type: TypeReply, SessionID: result.SessionID, Content: result.Reply})
	}
}

func (h *Handler) pingLoop(ctx context.Context, ws *websocket.Conn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				return
			}
		}
	}
}
