package stream

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	chatHandler "github.com/zhouzirui/twinchat/backend/internal/handler/chat"
	"github.com/zhouzirui/twinchat/backend/internal/model/chat"
	chatService "github.com/zhouzirui/twinchat/backend/internal/service/chat"
	"github.com/zhouzirui/twinchat/backend/pkg/utils"
)

// SSE 事件名。
const (
	EventStart   = "start"
	EventDelta   = "delta"
	EventMessage = "message"
	EventEnd     = "end"
	EventError   = "error"
)

// Handler manages streaming chat turns via Server-Sent Events
type Handler struct {
	chatSvc     *chatService.Service
	debugErrors bool
	log         zerolog.Logger
}

// New creates a new stream handler
func New(chatSvc *chatService.Service, debugErrors bool, log zerolog.Logger) *Handler {
	return &Handler{
		chatSvc:     chatSvc,
		debugErrors: debugErrors,
		log:         log,
	}
}

// StreamEvent is the payload of every SSE frame.
type StreamEvent struct {
	SessionID string `json:"session_id,omitempty"`
	Content   string `json:"content,omitempty"`
	Response  string `json:"response,omitempty"`
	Error     string `json:"error,omitempty"`
	Details   string `json:"details,omitempty"`
}

// RegisterRoutes 注册流式聊天路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/chat/stream", h.handleStream)
}

// handleStream 校验请求后以 SSE 推送回复增量，完整回复生成后才保存会话。
func (h *Handler) handleStream(w http.ResponseWriter, r *http.Request) {
	var payload chatHandler.TurnRequest
	if err := utils.DecodeJSON(w, r, chatHandler.MaxBodyBytes, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, chatHandler.MsgInvalidBody)
		return
	}

	// 在切换到 SSE 之前完成校验，这样校验失败仍然返回普通 JSON 错误。
	if strings.TrimSpace(payload.Message) == "" {
		utils.RespondError(w, http.StatusBadRequest, chatHandler.MsgMessageRequired)
		return
	}
	sessionID := strings.TrimSpace(payload.SessionID)
	if sessionID == "" {
		sessionID = chat.NewSessionID()
	} else if !chat.ValidSessionID(sessionID) {
		utils.RespondError(w, http.StatusBadRequest, chatHandler.MsgInvalidSessionID)
		return
	}
	if !h.chatSvc.Available() {
		status, body := chatHandler.TurnError(chatService.ErrAIUnavailable, h.debugErrors)
		utils.RespondJSON(w, status, body)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	utils.SetupSSEHeaders(w)
	w.WriteHeader(http.StatusOK)

	if err := utils.SendSSEEvent(w, flusher, EventStart, StreamEvent{SessionID: sessionID}); err != nil {
		h.log.Warn().Err(err).Str("session_id", sessionID).Msg("client went away before stream start")
	}

	// 连接断开只停止推送，本轮仍然完成并保存。
	result, err := h.chatSvc.StreamTurn(context.WithoutCancel(r.Context()), sessionID, payload.Message, func(delta string) error {
		return utils.SendSSEEvent(w, flusher, EventDelta, StreamEvent{Content: delta})
	})
	if err != nil {
		h.log.Error().Err(err).Str("session_id", sessionID).Msg("streamed chat turn failed")
		_, body := chatHandler.TurnError(err, h.debugErrors)
		utils.SendSSEEvent(w, flusher, EventError, StreamEvent{SessionID: sessionID, Error: body.Error, Details: body.Details})
		return
	}

	utils.SendSSEEvent(w, flusher, EventMessage, StreamEvent{SessionID: result.SessionID, Response: result.Reply})
	utils.SendSSEEvent(w, flusher, EventEnd, StreamEvent{SessionID: result.SessionID})
}
