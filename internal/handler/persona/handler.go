package persona

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/zhouzirui/twinchat/backend/internal/model/persona"
	"github.com/zhouzirui/twinchat/backend/pkg/utils"
)

// Handler persona服务的HTTP处理器
type Handler struct {
	personas persona.Store
	log      zerolog.Logger
}

// New 创建persona处理器
func New(personas persona.Store, log zerolog.Logger) *Handler {
	return &Handler{
		personas: personas,
		log:      log,
	}
}

// RegisterRoutes 注册persona相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/persona", h.handlePersona)
}

// handlePersona 只返回名字和简介，不暴露原始 facts。
func (h *Handler) handlePersona(w http.ResponseWriter, r *http.Request) {
	bundle, err := h.personas.Load(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("persona resources unavailable")
		utils.RespondError(w, http.StatusServiceUnavailable, "persona resources unavailable")
		return
	}
	utils.RespondJSON(w, http.StatusOK, bundle.Card())
}
