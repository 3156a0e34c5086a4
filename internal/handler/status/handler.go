package status

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/twinchat/backend/pkg/utils"
)

// Report 描述当前部署的配置情况，只包含布尔值和名称，不包含任何密钥。
type Report struct {
	AIConfigured       bool   `json:"ai_configured"`
	Provider           string `json:"provider"`
	Model              string `json:"model"`
	PasswordConfigured bool   `json:"password_configured"`
	StorageBackend     string `json:"storage_backend"`
	StrictReads        bool   `json:"strict_reads"`
	DebugErrors        bool   `json:"debug_errors"`
}

// Handler 配置状态处理器
type Handler struct {
	report Report
}

// New 创建状态处理器，report 在启动时计算一次。
func New(report Report) *Handler {
	return &Handler{report: report}
}

// RegisterRoutes 注册状态路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/status", h.handleStatus)
}

func (h *Handler) handleStatus(w http.ResponseWriter, _ *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.report)
}
