package chat

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/zhouzirui/twinchat/backend/internal/model/chat"
	chatService "github.com/zhouzirui/twinchat/backend/internal/service/chat"
	"github.com/zhouzirui/twinchat/backend/pkg/utils"
)

// MaxBodyBytes 限制聊天请求体大小。
const MaxBodyBytes = 1 << 20

// 对外的错误文案。
const (
	MsgMessageRequired   = "Message is required"
	MsgInvalidSessionID  = "Invalid session id"
	MsgInvalidBody       = "Invalid request body"
	MsgProcessingFailed  = "Failed to process chat message"
	MsgCredentialMissing = "API key not configured"
	MsgLoadFailed        = "Failed to load conversation"
)

// TurnRequest 是聊天请求体。
type TurnRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
}

// ConversationResponse 是会话查询的响应体。
type ConversationResponse struct {
	SessionID string         `json:"session_id"`
	Messages  []chat.Message `json:"messages"`
}

// Handler 聊天服务的HTTP处理器
type Handler struct {
	chatSvc     *chatService.Service
	debugErrors bool
	log         zerolog.Logger
}

// New 创建聊天处理器
func New(chatSvc *chatService.Service, debugErrors bool, log zerolog.Logger) *Handler {
	return &Handler{
		chatSvc:     chatSvc,
		debugErrors: debugErrors,
		log:         log,
	}
}

// RegisterRoutes 注册聊天相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/chat", h.handleChat)
	r.Get("/conversation/{sessionID}", h.handleConversation)
}

// handleChat 处理一次完整的对话轮次
func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	var payload TurnRequest
	if err := utils.DecodeJSON(w, r, MaxBodyBytes, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, MsgInvalidBody)
		return
	}

	// 客户端断开不取消本轮，回复照常生成并保存。
	result, err := h.chatSvc.HandleTurn(context.WithoutCancel(r.Context()), payload.SessionID, payload.Message)
	if err != nil {
		status, body := TurnError(err, h.debugErrors)
		if status >= http.StatusInternalServerError {
			h.log.Error().Err(err).Str("session_id", payload.SessionID).Msg("chat turn failed")
		}
		utils.RespondJSON(w, status, body)
		return
	}

	utils.RespondJSON(w, http.StatusOK, result)
}

// handleConversation 返回某个会话的完整记录
func (h *Handler) handleConversation(w http.ResponseWriter, r *http.Request) {
	sessionID := strings.TrimSpace(chi.URLParam(r, "sessionID"))

	messages, err := h.chatSvc.Conversation(r.Context(), sessionID)
	if errors.Is(err, chatService.ErrInvalidSessionID) {
		utils.RespondError(w, http.StatusBadRequest, MsgInvalidSessionID)
		return
	}
	if err != nil {
		h.log.Error().Err(err).Str("session_id", sessionID).Msg("conversation load failed")
		utils.RespondErrorDetail(w, http.StatusInternalServerError, MsgLoadFailed, h.details(err))
		return
	}

	utils.RespondJSON(w, http.StatusOK, ConversationResponse{SessionID: sessionID, Messages: messages})
}

func (h *Handler) details(err error) string {
	if h.debugErrors {
		return err.Error()
	}
	return ""
}

// TurnError maps an orchestrator error to a status and response body.
// Internal detail is only exposed when debug is set; credential failures
// always carry their distinguishing detail.
func TurnError(err error, debug bool) (int, utils.ErrorResponse) {
	switch {
	case errors.Is(err, chatService.ErrMessageRequired):
		return http.StatusBadRequest, utils.ErrorResponse{Error: MsgMessageRequired}
	case errors.Is(err, chatService.ErrInvalidSessionID):
		return http.StatusBadRequest, utils.ErrorResponse{Error: MsgInvalidSessionID}
	case chatService.IsCredentialError(err):
		return http.StatusInternalServerError, utils.ErrorResponse{Error: MsgProcessingFailed, Details: MsgCredentialMissing}
	}

	body := utils.ErrorResponse{Error: MsgProcessingFailed}
	if debug {
		body.Details = err.Error()
	}
	return http.StatusInternalServerError, body
}
