package auth

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	authService "github.com/zhouzirui/twinchat/backend/internal/service/auth"
	"github.com/zhouzirui/twinchat/backend/pkg/utils"
)

const maxBodyBytes = 16 << 10

// 响应文案。
const (
	MsgPasswordRequired = "Password is required"
	MsgNotConfigured    = "Password authentication not configured"
	MsgAccessGranted    = "Access granted"
	MsgInvalidPassword  = "Invalid password"
	MsgValidationFailed = "Password validation failed"
)

// Response 是密码校验的响应体。
type Response struct {
	Valid   bool   `json:"valid"`
	Message string `json:"message"`
}

// Handler 密码校验的HTTP处理器
type Handler struct {
	gate *authService.Gate
	log  zerolog.Logger
}

// New 创建密码校验处理器
func New(gate *authService.Gate, log zerolog.Logger) *Handler {
	return &Handler{gate: gate, log: log}
}

// RegisterRoutes 注册校验路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/validate-password", h.handleValidate)
}

func (h *Handler) handleValidate(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Password string `json:"password"`
	}
	if err := utils.DecodeJSON(w, r, maxBodyBytes, &payload); err != nil || payload.Password == "" {
		utils.RespondJSON(w, http.StatusBadRequest, Response{Valid: false, Message: MsgPasswordRequired})
		return
	}

	ok, err := h.gate.Verify(payload.Password)
	switch {
	case errors.Is(err, authService.ErrNotConfigured):
		h.log.Error().Msg("CHAT_PASSWORD_HASH is not set")
		utils.RespondJSON(w, http.StatusInternalServerError, Response{Valid: false, Message: MsgNotConfigured})
	case err != nil:
		utils.RespondJSON(w, http.StatusInternalServerError, Response{Valid: false, Message: MsgValidationFailed})
	case ok:
		utils.RespondJSON(w, http.StatusOK, Response{Valid: true, Message: MsgAccessGranted})
	default:
		utils.RespondJSON(w, http.StatusOK, Response{Valid: false, Message: MsgInvalidPassword})
	}
}
