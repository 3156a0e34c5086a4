package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/zhouzirui/twinchat/backend/internal/handler/auth"
	"github.com/zhouzirui/twinchat/backend/internal/handler/chat"
	"github.com/zhouzirui/twinchat/backend/internal/handler/persona"
	"github.com/zhouzirui/twinchat/backend/internal/handler/status"
	"github.com/zhouzirui/twinchat/backend/internal/handler/stream"
	"github.com/zhouzirui/twinchat/backend/internal/handler/ws"
	"github.com/zhouzirui/twinchat/backend/internal/metrics"
	middlewarePkg "github.com/zhouzirui/twinchat/backend/internal/middleware"
	personaModel "github.com/zhouzirui/twinchat/backend/internal/model/persona"
	authService "github.com/zhouzirui/twinchat/backend/internal/service/auth"
	chatService "github.com/zhouzirui/twinchat/backend/internal/service/chat"
	"github.com/zhouzirui/twinchat/backend/pkg/utils"
)

// Options 汇总路由需要的依赖。
type Options struct {
	Personas    personaModel.Store
	Chat        *chatService.Service
	Gate        *authService.Gate
	Status      status.Report
	DebugErrors bool
	Logger      zerolog.Logger
	Metrics     *metrics.Metrics
	// Gatherer 为空时不挂载 /metrics。
	Gatherer prometheus.Gatherer
}

// NewRouter wires HTTP routes to core services.
func NewRouter(opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middlewarePkg.AccessLog(opts.Logger))
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.Metrics(opts.Metrics))
	r.Use(middlewarePkg.CORS)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if opts.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api", func(api chi.Router) {
		chat.New(opts.Chat, opts.DebugErrors, opts.Logger).RegisterRoutes(api)
		stream.New(opts.Chat, opts.DebugErrors, opts.Logger).RegisterRoutes(api)
		ws.New(opts.Chat, opts.DebugErrors, opts.Logger).RegisterRoutes(api)
		auth.New(opts.Gate, opts.Logger).RegisterRoutes(api)
		persona.New(opts.Personas, opts.Logger).RegisterRoutes(api)
		status.New(opts.Status).RegisterRoutes(api)
	})

	return r
}
